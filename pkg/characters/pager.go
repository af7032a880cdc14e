// Package characters implements the paged, filterable character list.
//
// A Pager owns a State and moves it through Idle, LoadingFirstPage,
// LoadingMore, Ready and Error. Reset starts over under a new filter,
// LoadNext appends the next page, Retry repeats the operation that failed.
// All three block until their fetch completes; callers wanting asynchrony
// run them in a goroutine and observe progress through Subscribe.
//
// Every Reset bumps a generation token. A fetch whose token is no longer the
// latest when it completes is discarded without touching State, so a slow
// response for an old filter can never overwrite or mix into a newer one.
package characters

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/rickmorty-client/pkg/client"
	"github.com/Sternrassler/rickmorty-client/pkg/model"
	"github.com/Sternrassler/rickmorty-client/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	pagerLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rickmorty_pager_loads_total",
		Help: "Total pager loads applied to state by mode and result",
	}, []string{"mode", "result"})

	pagerStaleResultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rickmorty_pager_stale_results_total",
		Help: "Total fetch results discarded because a newer reset was issued",
	})
)

// ErrFetchFailed wraps every failure the pager reports.
var ErrFetchFailed = errors.New("fetch failed")

// errStaleResult marks a discarded result in logs; it is never returned.
var errStaleResult = errors.New("stale result")

// Config holds pager configuration.
type Config struct {
	// BaseURL is the API root used to build character URLs.
	BaseURL string

	// FanOut bounds resident resolution in location mode.
	FanOut pagination.Config
}

// DefaultConfig returns the default pager configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: client.DefaultBaseURL,
		FanOut:  pagination.DefaultConfig(),
	}
}

type operation int

const (
	opFirstPage operation = iota
	opLoadMore
)

type subscriber struct {
	id int
	fn func(State)
}

// delivery is a snapshot queued for the subscribers registered when it was taken.
type delivery struct {
	state State
	subs  []func(State)
}

// Pager fetches characters page by page under a Filter.
type Pager struct {
	fetcher pagination.PageFetcher
	config  Config
	logger  zerolog.Logger

	mu          sync.Mutex
	state       State
	generation  uint64
	lastOp      operation
	subscribers []subscriber
	nextSubID   int
	pending     []delivery

	// notifyMu serializes delivery so subscribers see snapshots in order.
	// It is never acquired while mu is held.
	notifyMu sync.Mutex
}

// NewPager creates an idle pager. Nothing is fetched until Reset.
func NewPager(fetcher pagination.PageFetcher, cfg Config) *Pager {
	if cfg.BaseURL == "" {
		cfg.BaseURL = client.DefaultBaseURL
	}
	return &Pager{
		fetcher: fetcher,
		config:  cfg,
		logger:  log.With().Str("component", "character-pager").Logger(),
		state: State{
			Phase:       PhaseIdle,
			Mode:        ModePaged,
			CurrentPage: 1,
			Items:       []model.Character{},
		},
	}
}

// State returns a snapshot of the current state.
func (p *Pager) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.clone()
}

// Subscribe registers fn to receive a snapshot after every state change and
// returns a function that removes it. Snapshots arrive in the order the
// changes happened. fn runs on a goroutine that is changing the pager; it may
// call State but must not call Reset, LoadNext, Retry or LoadPages.
func (p *Pager) Subscribe(fn func(State)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextSubID++
	id := p.nextSubID
	p.subscribers = append(p.subscribers, subscriber{id: id, fn: fn})

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, s := range p.subscribers {
			if s.id == id {
				p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Reset discards loaded characters and fetches page 1 under f. Any fetch
// still in flight from an earlier Reset or LoadNext is superseded.
func (p *Pager) Reset(ctx context.Context, f Filter) error {
	start := time.Now()

	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.lastOp = opFirstPage
	p.state = State{
		Phase:              PhaseLoadingFirstPage,
		Filter:             f,
		Mode:               f.Mode(),
		CurrentPage:        1,
		Items:              []model.Character{},
		IsLoadingFirstPage: true,
	}
	p.publishLocked()

	p.logger.Debug().
		Uint64("generation", gen).
		Str("mode", string(f.Mode())).
		Msg("Reset")

	var (
		res loadResult
		err error
	)
	if f.Mode() == ModeLocation {
		res, err = p.fetchResidents(ctx, f)
	} else {
		res, err = p.fetchPage(ctx, f, 1)
	}
	return p.apply(gen, opFirstPage, f.Mode(), start, res, err)
}

// LoadNext fetches and appends the next page. It is a no-op when there is no
// next page, a load is already in flight, or the pager is in location mode.
func (p *Pager) LoadNext(ctx context.Context) error {
	_, err := p.loadNext(ctx)
	return err
}

// loadNext reports whether it issued a fetch.
func (p *Pager) loadNext(ctx context.Context) (bool, error) {
	start := time.Now()

	p.mu.Lock()
	if !p.state.HasMore || p.state.IsLoadingFirstPage || p.state.IsLoadingMore || p.state.Mode == ModeLocation {
		p.mu.Unlock()
		return false, nil
	}

	gen := p.generation
	p.lastOp = opLoadMore
	p.state.CurrentPage++
	page := p.state.CurrentPage
	filter := p.state.Filter
	p.state.Phase = PhaseLoadingMore
	p.state.IsLoadingMore = true
	p.state.Err = nil
	p.publishLocked()

	p.logger.Debug().
		Uint64("generation", gen).
		Int("page", page).
		Msg("Loading next page")

	res, err := p.fetchPage(ctx, filter, page)
	return true, p.apply(gen, opLoadMore, ModePaged, start, res, err)
}

// Retry repeats the operation that moved the pager into PhaseError. It is a
// no-op in any other phase.
func (p *Pager) Retry(ctx context.Context) error {
	p.mu.Lock()
	if p.state.Phase != PhaseError {
		p.mu.Unlock()
		return nil
	}
	op := p.lastOp
	filter := p.state.Filter
	p.mu.Unlock()

	if op == opLoadMore {
		return p.LoadNext(ctx)
	}
	return p.Reset(ctx, filter)
}

// LoadPages resets to f and keeps loading until pages pages are held or the
// collection is exhausted. pages <= 0 loads every page. It stops early when
// another caller's load is in flight on the same pager.
func (p *Pager) LoadPages(ctx context.Context, f Filter, pages int) error {
	if err := p.Reset(ctx, f); err != nil {
		return err
	}
	for loaded := 1; pages <= 0 || loaded < pages; loaded++ {
		if !p.State().HasMore {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		started, err := p.loadNext(ctx)
		if err != nil {
			return err
		}
		if !started {
			p.logger.Debug().Int("loaded", loaded).Msg("Load in flight elsewhere, stopping")
			return nil
		}
	}
	return nil
}

// apply folds a fetch outcome into state unless gen has been superseded.
func (p *Pager) apply(gen uint64, op operation, mode Mode, start time.Time, res loadResult, fetchErr error) error {
	p.mu.Lock()
	if gen != p.generation {
		latest := p.generation
		p.mu.Unlock()

		pagerStaleResultsTotal.Inc()
		p.logger.Debug().
			Err(errStaleResult).
			Uint64("generation", gen).
			Uint64("latest", latest).
			Msg("Discarding result")
		return nil
	}

	p.state.IsLoadingFirstPage = false
	p.state.IsLoadingMore = false

	if fetchErr != nil {
		if op == opLoadMore {
			p.state.CurrentPage--
		}
		err := fmt.Errorf("%w: %w", ErrFetchFailed, fetchErr)
		p.state.Phase = PhaseError
		p.state.Err = err
		p.publishLocked()

		pagerLoadsTotal.WithLabelValues(string(mode), "error").Inc()
		p.logger.Warn().
			Err(fetchErr).
			Uint64("generation", gen).
			Str("mode", string(mode)).
			Msg("Character fetch failed")
		return err
	}

	if op == opLoadMore {
		p.state.Items = appendNew(p.state.Items, res.items)
	} else {
		p.state.Items = res.items
	}
	p.state.TotalCount = res.totalCount
	p.state.TotalKnown = true
	if len(p.state.Items) > p.state.TotalCount {
		// The collection grew between page reads.
		p.state.TotalCount = len(p.state.Items)
	}
	p.state.HasMore = res.hasMore
	p.state.Phase = PhaseReady
	p.state.Err = nil

	loaded, total, page := len(p.state.Items), p.state.TotalCount, p.state.CurrentPage
	p.publishLocked()

	pagerLoadsTotal.WithLabelValues(string(mode), "ok").Inc()
	p.logger.Info().
		Uint64("generation", gen).
		Str("mode", string(mode)).
		Int("page", page).
		Int("loaded", loaded).
		Int("total", total).
		Dur("duration", time.Since(start)).
		Msg("Characters loaded")
	return nil
}

// publishLocked queues a snapshot, releases p.mu and delivers everything
// queued so far. Must be called with p.mu held.
func (p *Pager) publishLocked() {
	if len(p.subscribers) > 0 {
		subs := make([]func(State), 0, len(p.subscribers))
		for _, s := range p.subscribers {
			subs = append(subs, s.fn)
		}
		p.pending = append(p.pending, delivery{state: p.state.clone(), subs: subs})
	}
	p.mu.Unlock()

	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()
	for {
		p.mu.Lock()
		batch := p.pending
		p.pending = nil
		p.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, d := range batch {
			for _, fn := range d.subs {
				fn(d.state)
			}
		}
	}
}

// appendNew appends characters not already present by ID. Pages can shift
// between requests when the collection changes server-side.
func appendNew(have, page []model.Character) []model.Character {
	seen := make(map[int]struct{}, len(have))
	for _, c := range have {
		seen[c.ID] = struct{}{}
	}
	for _, c := range page {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		have = append(have, c)
	}
	return have
}
