// Package metrics exposes the Prometheus metrics registered by the client
// packages. Each metric is declared with promauto next to the code that
// updates it; this package only serves them and lists what exists.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every package registers its metrics with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer Handler serves.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics exposition handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Catalogue lists every metric name by owning package.
var Catalogue = map[string][]string{
	"client": {
		"rickmorty_requests_total",
		"rickmorty_request_duration_seconds",
		"rickmorty_errors_total",
	},
	"cache": {
		"rickmorty_cache_hits_total",
		"rickmorty_cache_misses_total",
		"rickmorty_cache_revalidations_total",
		"rickmorty_cache_errors_total",
	},
	"pagination": {
		"rickmorty_pages_fetched_total",
		"rickmorty_fanout_requests_total",
	},
	"locations": {
		"rickmorty_locations_loaded",
	},
	"characters": {
		"rickmorty_pager_loads_total",
		"rickmorty_pager_stale_results_total",
	},
}

// Labels
//
//   rickmorty_requests_total{endpoint, status}  status is the HTTP code, cache or network_error
//   rickmorty_request_duration_seconds{endpoint}
//   rickmorty_errors_total{class}            client, server, network
//   rickmorty_cache_hits_total{freshness}    fresh, stale
//   rickmorty_cache_revalidations_total{result}  not_modified, modified
//   rickmorty_cache_errors_total{operation}  get, set, delete
//   rickmorty_fanout_requests_total{result}  ok, error
//   rickmorty_pager_loads_total{mode, result}
//
// Example queries
//
//   # Cache hit rate
//   sum(rate(rickmorty_cache_hits_total[5m])) /
//   (sum(rate(rickmorty_cache_hits_total[5m])) + sum(rate(rickmorty_cache_misses_total[5m])))
//
//   # P95 latency of the character collection
//   histogram_quantile(0.95, rate(rickmorty_request_duration_seconds_bucket{endpoint="/api/character"}[5m]))
//
//   # Share of pager results thrown away by newer resets
//   rate(rickmorty_pager_stale_results_total[5m]) / sum(rate(rickmorty_pager_loads_total[5m]))
