// Package httpserver serves the location and character lists over HTTP.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/rickmorty-client/pkg/characters"
	"github.com/Sternrassler/rickmorty-client/pkg/client"
	"github.com/Sternrassler/rickmorty-client/pkg/locations"
	"github.com/Sternrassler/rickmorty-client/pkg/metrics"
	"github.com/Sternrassler/rickmorty-client/pkg/model"
	"github.com/Sternrassler/rickmorty-client/pkg/pagination"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Deps are the components the handlers read from.
type Deps struct {
	Fetcher    pagination.PageFetcher
	Aggregator *locations.Aggregator
	Pager      characters.Config

	// Redis is pinged by /health when the response cache is enabled.
	Redis *redis.Client
}

// Server is the rickmorty HTTP API.
type Server struct {
	addr      string
	deps      Deps
	engine    *gin.Engine
	logger    zerolog.Logger
	startTime time.Time
}

// NewServer creates a server listening on addr once Run is called.
func NewServer(addr string, deps Deps) *Server {
	if addr == "" {
		addr = ":8080"
	}
	s := &Server{
		addr:      addr,
		deps:      deps,
		logger:    log.With().Str("component", "http-server").Logger(),
		startTime: time.Now(),
	}
	s.engine = s.routes()
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/api/locations", s.handleLocations)
	r.GET("/api/characters", s.handleCharacters)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Handler:           s.engine,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info().Msg("HTTP server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status_code", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	status, code, cacheState := "ok", http.StatusOK, "disabled"
	if s.deps.Redis != nil {
		if err := s.deps.Redis.Ping(c.Request.Context()).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("Cache health check failed")
			status, code, cacheState = "degraded", http.StatusServiceUnavailable, "unreachable"
		} else {
			cacheState = "ok"
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"uptime":    time.Since(s.startTime).String(),
		"cache":     cacheState,
		"locations": len(s.deps.Aggregator.Locations()),
	})
}

// locationList returns held locations, loading them on first use or when
// refresh is set.
func (s *Server) locationList(ctx context.Context, refresh bool) ([]model.Location, error) {
	if held := s.deps.Aggregator.Locations(); held != nil && !refresh {
		return held, nil
	}
	return s.deps.Aggregator.LoadAll(ctx)
}

func (s *Server) handleLocations(c *gin.Context) {
	refresh, _ := strconv.ParseBool(c.Query("refresh"))

	locs, err := s.locationList(c.Request.Context(), refresh)
	if err != nil {
		s.upstreamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":     len(locs),
		"loaded_at": s.deps.Aggregator.LoadedAt(),
		"locations": locs,
	})
}

func (s *Server) handleCharacters(c *gin.Context) {
	var filter characters.Filter

	if raw := c.Query("status"); raw != "" {
		st, ok := model.ParseStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + strconv.Quote(raw)})
			return
		}
		filter.Status = &st
	}

	if raw := c.Query("location"); raw != "" {
		if _, err := s.locationList(c.Request.Context(), false); err != nil {
			s.upstreamError(c, err)
			return
		}
		loc, ok := s.deps.Aggregator.Find(raw)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown location " + strconv.Quote(raw)})
			return
		}
		filter.Location = &loc
	}

	pages := 1
	if raw := c.Query("pages"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pages must be a non-negative integer"})
			return
		}
		pages = n
	}

	pager := characters.NewPager(s.deps.Fetcher, s.deps.Pager)
	if err := pager.LoadPages(c.Request.Context(), filter, pages); err != nil {
		s.upstreamError(c, err)
		return
	}

	st := pager.State()
	var total any
	if st.TotalKnown {
		total = st.TotalCount
	}
	c.JSON(http.StatusOK, gin.H{
		"header":        st.Header(),
		"mode":          st.Mode,
		"filter_active": st.FilterActive(),
		"current_page":  st.CurrentPage,
		"total_count":   total,
		"has_more":      st.HasMore,
		"characters":    st.Items,
	})
}

func (s *Server) upstreamError(c *gin.Context, err error) {
	code := http.StatusBadGateway
	if errors.Is(err, context.DeadlineExceeded) {
		code = http.StatusGatewayTimeout
	}

	body := gin.H{"error": err.Error()}
	var netErr *client.NetworkError
	if errors.As(err, &netErr) {
		body["error_class"] = netErr.ErrorClass
		body["upstream_status"] = netErr.StatusCode
	}

	s.logger.Warn().Err(err).Str("path", c.FullPath()).Msg("Upstream request failed")
	c.JSON(code, body)
}
