package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/rickmorty-client/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "rickmorty_pages_fetched_total",
	Help: "Total collection pages fetched by Walk",
})

// PageFetcher is the interface the API client must implement for fetching
// a single URL.
type PageFetcher interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// Walk fetches firstURL, hands the decoded page to visit, and repeats with
// the page's next link until a page has none. Any fetch, decode or visit
// error aborts the walk.
func Walk[T any](ctx context.Context, fetcher PageFetcher, firstURL string, visit func(model.Page[T]) error) error {
	start := time.Now()
	pages := 0

	for pageURL := firstURL; pageURL != ""; {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("walk cancelled after %d pages: %w", pages, err)
		}

		data, err := fetcher.Get(ctx, pageURL)
		if err != nil {
			return fmt.Errorf("fetch page %d: %w", pages+1, err)
		}

		page, err := model.DecodePage[T](data)
		if err != nil {
			return fmt.Errorf("decode page %d: %w", pages+1, err)
		}
		pages++
		pagesFetchedTotal.Inc()

		log.Debug().
			Str("url", pageURL).
			Int("page", pages).
			Int("items", len(page.Items)).
			Int("total", page.TotalCount).
			Msg("Page fetched")

		if err := visit(page); err != nil {
			return err
		}
		pageURL = page.NextPageURL
	}

	log.Info().
		Str("url", firstURL).
		Int("pages", pages).
		Dur("duration", time.Since(start)).
		Msg("Walk complete")

	return nil
}
