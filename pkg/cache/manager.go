package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Config holds cache manager configuration.
type Config struct {
	// DefaultTTL applies when the server sends no expiry information.
	DefaultTTL time.Duration

	// RevalidateWindow keeps stale entries with validators around for
	// conditional requests after they expire.
	RevalidateWindow time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:       5 * time.Minute,
		RevalidateWindow: 1 * time.Hour,
	}
}

// Manager handles caching operations with Redis backend.
type Manager struct {
	redis  *redis.Client
	config Config
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient *redis.Client, config Config) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = DefaultConfig().DefaultTTL
	}
	if config.RevalidateWindow < 0 {
		config.RevalidateWindow = 0
	}
	return &Manager{
		redis:  redisClient,
		config: config,
	}
}

// DefaultTTL returns the fallback freshness lifetime.
func (m *Manager) DefaultTTL() time.Duration {
	return m.config.DefaultTTL
}

// Get retrieves a cache entry by key. Stale entries are returned too; callers
// decide between serving, revalidating or refetching via Entry.IsFresh.
// Returns ErrCacheMiss if the key doesn't exist.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsFresh(time.Now()) {
		CacheHits.WithLabelValues("fresh").Inc()
	} else {
		CacheHits.WithLabelValues("stale").Inc()
	}
	return &entry, nil
}

// Set stores a cache entry. The Redis TTL covers the freshness lifetime plus
// the revalidation window when the entry carries validators.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := m.storageTTL(entry, time.Now())
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Refresh extends an entry after the server answered 304 Not Modified.
func (m *Manager) Refresh(ctx context.Context, key Key, entry *Entry, expires time.Time) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	refreshed := *entry
	refreshed.Expires = expires
	refreshed.StoredAt = time.Now()
	return m.Set(ctx, key, &refreshed)
}

func (m *Manager) storageTTL(entry *Entry, now time.Time) time.Duration {
	ttl := entry.TTL(now)
	if entry.CanRevalidate() {
		ttl += m.config.RevalidateWindow
	}
	return ttl
}
