//go:build integration

package integration

import (
	"context"
	"net/http"
	"reflect"
	"testing"

	"github.com/Sternrassler/rickmorty-client/internal/testutil"
	"github.com/Sternrassler/rickmorty-client/pkg/characters"
	"github.com/Sternrassler/rickmorty-client/pkg/client"
	"github.com/Sternrassler/rickmorty-client/pkg/locations"
	"github.com/Sternrassler/rickmorty-client/pkg/model"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	t.Cleanup(func() {
		redisClient.Close()
		container.Terminate(ctx)
	})

	return redisClient
}

type stack struct {
	api    *testutil.MockAPI
	client *client.Client
	agg    *locations.Aggregator
	pager  *characters.Pager
}

func newStack(t *testing.T, redisClient *redis.Client, cacheControl string) *stack {
	t.Helper()

	api := testutil.NewMockAPI()
	t.Cleanup(api.Close)
	api.SetPageSize(2)
	api.SetCacheControl(cacheControl)
	locs, chars := testutil.Universe()
	api.AddLocations(locs...)
	api.AddCharacters(chars...)

	cfg := client.DefaultConfig()
	cfg.BaseURL = api.URL()
	cfg.UserAgent = "rickmorty-integration/1.0"
	cfg.Redis = redisClient
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	pagerCfg := characters.DefaultConfig()
	pagerCfg.BaseURL = c.BaseURL()

	return &stack{
		api:    api,
		client: c,
		agg:    locations.NewAggregator(c, c.LocationsURL()),
		pager:  characters.NewPager(c, pagerCfg),
	}
}

// TestFullFlow_WarmCache loads the picker and a location filter twice; the
// second round is served from Redis without touching the API.
func TestFullFlow_WarmCache(t *testing.T) {
	s := newStack(t, setupRedis(t), "max-age=300")
	ctx := context.Background()

	first, err := s.agg.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("locations = %d, want 3", len(first))
	}
	if s.api.RequestCount() != 2 {
		t.Errorf("location requests = %d, want 2 pages", s.api.RequestCount())
	}

	earth, ok := s.agg.Find("Earth (C-137)")
	if !ok {
		t.Fatal("Earth (C-137) not found")
	}
	alive := model.StatusAlive
	if err := s.pager.Reset(ctx, characters.Filter{Status: &alive, Location: &earth}); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	cold := s.api.RequestCount()
	if cold != 5 {
		t.Errorf("requests after resident fan-out = %d, want 5", cold)
	}

	second, err := s.agg.LoadAll(ctx)
	if err != nil {
		t.Fatalf("Warm LoadAll failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Warm result differs from cold result")
	}
	if err := s.pager.Reset(ctx, characters.Filter{Status: &alive, Location: &earth}); err != nil {
		t.Fatalf("Warm Reset failed: %v", err)
	}
	if s.api.RequestCount() != cold {
		t.Errorf("warm round made %d API requests, want 0", s.api.RequestCount()-cold)
	}

	st := s.pager.State()
	if st.Header() != "Total Characters 1" || len(st.Items) != 1 || st.Items[0].Name != "Morty Smith" {
		t.Errorf("Unexpected pager state: %s %+v", st.Header(), st.Items)
	}
}

// TestFullFlow_Revalidation revalidates every page with If-None-Match when
// the server marks responses no-cache.
func TestFullFlow_Revalidation(t *testing.T) {
	s := newStack(t, setupRedis(t), "no-cache")
	ctx := context.Background()

	if err := s.pager.LoadPages(ctx, characters.Filter{}, 0); err != nil {
		t.Fatalf("LoadPages failed: %v", err)
	}
	first := s.pager.State()
	if len(first.Items) != 6 || first.HasMore {
		t.Fatalf("Expected all 6 characters, got %d (has more %v)", len(first.Items), first.HasMore)
	}
	pages := s.api.RequestCount()

	if err := s.pager.LoadPages(ctx, characters.Filter{}, 0); err != nil {
		t.Fatalf("Second LoadPages failed: %v", err)
	}
	if got := s.api.ConditionalCount(); got != pages {
		t.Errorf("conditional requests = %d, want %d", got, pages)
	}
	if !reflect.DeepEqual(first.Items, s.pager.State().Items) {
		t.Error("Revalidated items differ from the original fetch")
	}
}

// TestFullFlow_FailedPageRecovers keeps already cached pages when a later
// page fails, and only refetches the failed page after the API recovers.
func TestFullFlow_FailedPageRecovers(t *testing.T) {
	s := newStack(t, setupRedis(t), "max-age=300")
	ctx := context.Background()

	s.api.SetResponse("/api/location?page=2", testutil.MockResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       `{"error":"maintenance"}`,
	})

	if _, err := s.agg.LoadAll(ctx); err == nil {
		t.Fatal("Expected LoadAll to fail")
	}
	if s.agg.Locations() != nil {
		t.Error("A failed first load must not publish a partial result")
	}

	s.api.ClearResponse("/api/location?page=2")
	before := s.api.RequestCount()

	locs, err := s.agg.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll after recovery failed: %v", err)
	}
	if len(locs) != 3 {
		t.Errorf("locations = %d, want 3", len(locs))
	}
	if got := s.api.RequestCount() - before; got != 1 {
		t.Errorf("requests after recovery = %d, want 1 (page 1 cached)", got)
	}
}
