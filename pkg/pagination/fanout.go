package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var fanOutRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rickmorty_fanout_requests_total",
	Help: "Total FanOut fetches by result",
}, []string{"result"})

// Config holds fan-out configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel requests.
	MaxConcurrency int

	// Timeout per fetch; 0 disables the per-fetch deadline.
	Timeout time.Duration
}

// DefaultConfig returns the default fan-out configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 10,
		Timeout:        15 * time.Second,
	}
}

// FanOut calls fetch for every URL with at most MaxConcurrency calls in
// flight. Results keep the order of urls. The first error cancels the
// context handed to outstanding fetches and FanOut returns it alone.
func FanOut[T any](ctx context.Context, cfg Config, urls []string, fetch func(ctx context.Context, rawURL string) (T, error)) ([]T, error) {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultConfig().MaxConcurrency
	}

	start := time.Now()
	results := make([]T, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrency)

	for i, u := range urls {
		g.Go(func() error {
			fetchCtx := gctx
			if cfg.Timeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(gctx, cfg.Timeout)
				defer cancel()
			}

			v, err := fetch(fetchCtx, u)
			if err != nil {
				fanOutRequestsTotal.WithLabelValues("error").Inc()
				log.Warn().
					Err(err).
					Str("url", u).
					Int("index", i).
					Msg("Fan-out fetch failed")
				return fmt.Errorf("fetch %s: %w", u, err)
			}
			fanOutRequestsTotal.WithLabelValues("ok").Inc()

			// Each goroutine owns results[i]; Wait orders the writes before the read.
			results[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debug().
		Int("urls", len(urls)).
		Int("max_concurrency", cfg.MaxConcurrency).
		Dur("duration", time.Since(start)).
		Msg("Fan-out complete")

	return results, nil
}
