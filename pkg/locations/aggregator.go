// Package locations aggregates the complete location collection for the
// filter picker.
package locations

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/rickmorty-client/pkg/model"
	"github.com/Sternrassler/rickmorty-client/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var locationsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "rickmorty_locations_loaded",
	Help: "Number of locations held by the aggregator after the last successful load",
})

// Aggregator walks the paginated location collection to completion.
type Aggregator struct {
	fetcher  pagination.PageFetcher
	firstURL string
	logger   zerolog.Logger

	mu        sync.RWMutex
	locations []model.Location
	loadedAt  time.Time
}

// NewAggregator creates an aggregator starting at firstURL, typically
// client.LocationsURL().
func NewAggregator(fetcher pagination.PageFetcher, firstURL string) *Aggregator {
	return &Aggregator{
		fetcher:  fetcher,
		firstURL: firstURL,
		logger:   log.With().Str("component", "location-aggregator").Logger(),
	}
}

// LoadAll fetches every page in server order and returns the flattened
// locations. On failure nothing is returned and the previously held result
// is kept.
func (a *Aggregator) LoadAll(ctx context.Context) ([]model.Location, error) {
	start := time.Now()
	var all []model.Location

	err := pagination.Walk(ctx, a.fetcher, a.firstURL, func(page model.Page[model.LocationRecord]) error {
		all = append(all, model.ProjectLocations(page.Items)...)
		return nil
	})
	if err != nil {
		a.logger.Warn().Err(err).Int("loaded", len(all)).Msg("Location aggregation failed")
		return nil, fmt.Errorf("load locations: %w", err)
	}
	if all == nil {
		all = []model.Location{}
	}

	a.mu.Lock()
	a.locations = all
	a.loadedAt = time.Now()
	a.mu.Unlock()

	locationsLoaded.Set(float64(len(all)))
	a.logger.Info().
		Int("locations", len(all)).
		Dur("duration", time.Since(start)).
		Msg("Locations loaded")

	return copyLocations(all), nil
}

// Locations returns the result of the last successful LoadAll, or nil if
// none has completed.
func (a *Aggregator) Locations() []model.Location {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return copyLocations(a.locations)
}

// LoadedAt returns when the held result was fetched.
func (a *Aggregator) LoadedAt() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loadedAt
}

// Find looks up a held location by numeric ID or case-insensitive name.
func (a *Aggregator) Find(nameOrID string) (model.Location, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	nameOrID = strings.TrimSpace(nameOrID)
	id, idErr := strconv.Atoi(nameOrID)
	for _, loc := range a.locations {
		if (idErr == nil && loc.ID == id) || strings.EqualFold(loc.Name, nameOrID) {
			return loc, true
		}
	}
	return model.Location{}, false
}

func copyLocations(in []model.Location) []model.Location {
	if in == nil {
		return nil
	}
	return append(make([]model.Location, 0, len(in)), in...)
}
