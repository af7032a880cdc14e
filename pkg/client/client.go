// Package client provides the HTTP collaborator used by the aggregation and
// paging components: a JSON GET against the Rick and Morty API with error
// classification, metrics and an optional Redis response cache.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/rickmorty-client/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public Rick and Morty API root.
const DefaultBaseURL = "https://rickandmortyapi.com/api"

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rickmorty_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rickmorty_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rickmorty_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// Getter fetches a URL and returns the JSON body of a 2xx response.
// Client implements it; the paging components depend only on this.
type Getter interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// GetterFunc adapts a function to the Getter interface.
type GetterFunc func(ctx context.Context, rawURL string) ([]byte, error)

// Get calls f(ctx, rawURL).
func (f GetterFunc) Get(ctx context.Context, rawURL string) ([]byte, error) {
	return f(ctx, rawURL)
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, e.g. "https://rickandmortyapi.com/api".
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout bounds a single HTTP round-trip.
	Timeout time.Duration

	// Redis enables the response cache when non-nil.
	Redis *redis.Client

	// Cache tunes the response cache.
	Cache cache.Config
}

// DefaultConfig returns a default configuration without caching.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: "rickmorty-client/0.1.0",
		Timeout:   30 * time.Second,
		Cache:     cache.DefaultConfig(),
	}
}

// Client is the Rick and Morty API client.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	baseURL    string
	config     Config
	logger     zerolog.Logger
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		config:  cfg,
		logger:  log.With().Str("component", "api-client").Logger(),
	}
	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis, cfg.Cache)
	}
	return c, nil
}

// Get performs a GET request and returns the response body.
// Non-2xx responses and transport failures yield a *NetworkError.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	endpoint := endpointLabel(req.URL)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Cache
	var (
		key       cache.Key
		cached    *cache.Entry
		cacheable = c.cache != nil
	)
	if cacheable {
		key, err = cache.KeyForURL(rawURL)
		if err != nil {
			cacheable = false
		} else {
			cached, err = c.cache.Get(ctx, key)
			if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
				c.logger.Warn().Err(err).Str("url", rawURL).Msg("Cache get error")
			}
		}
	}

	if cached != nil {
		if cached.IsFresh(time.Now()) {
			c.logger.Debug().Str("url", rawURL).Msg("Serving fresh cache entry")
			requestsTotal.WithLabelValues(endpoint, "cache").Inc()
			return cached.Body, nil
		}
		if cached.CanRevalidate() {
			cache.AddConditionalHeaders(req, cached)
			c.logger.Debug().
				Str("url", rawURL).
				Str("etag", cached.ETag).
				Msg("Making conditional request")
		}
	}

	// Step 2: Execute request
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", rawURL).Msg("Executing API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Error().Err(err).Str("url", rawURL).Msg("HTTP request failed")
		return nil, &NetworkError{
			URL:        rawURL,
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	// Step 3: Handle 304 Not Modified
	if resp.StatusCode == http.StatusNotModified && cached != nil {
		cache.Revalidations.WithLabelValues("not_modified").Inc()
		expires, ok := cache.Expiry(resp.Header, c.cache.DefaultTTL(), time.Now())
		if ok {
			if err := c.cache.Refresh(ctx, key, cached, expires); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
			}
		}
		c.logger.Debug().Str("url", rawURL).Msg("304 Not Modified - using cache")
		return cached.Body, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &NetworkError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	// Step 4: Handle HTTP errors
	if class := classifyStatus(resp.StatusCode); class != "" {
		errorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("API request error")
		return nil, &NetworkError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    errorMessage(resp, body),
		}
	}

	// Step 5: Update cache on success
	if cacheable && resp.StatusCode == http.StatusOK {
		if cached != nil {
			cache.Revalidations.WithLabelValues("modified").Inc()
		}
		if entry := cache.NewEntry(resp.Header, body, c.cache.DefaultTTL(), time.Now()); entry != nil {
			if err := c.cache.Set(ctx, key, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				c.logger.Debug().
					Str("url", rawURL).
					Dur("ttl", entry.TTL(time.Now())).
					Msg("Cached response")
			}
		}
	}

	return body, nil
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// errorMessage extracts the API's {"error": "..."} message, falling back to
// the status line.
func errorMessage(resp *http.Response, body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return resp.Status
}

// endpointLabel collapses numeric and list path segments so metric label
// cardinality stays bounded: /api/character/42 -> /api/character/:id.
func endpointLabel(u *url.URL) string {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := strconv.Atoi(strings.Split(seg, ",")[0]); err == nil {
			segments[i] = ":id"
		}
	}
	return "/" + strings.Join(segments, "/")
}
