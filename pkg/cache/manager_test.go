package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis on DB 15 and skips when none is
// running. tests/integration covers the same paths against a container.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil, DefaultConfig())
}

func TestNewManager_Defaults(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	m := NewManager(client, Config{})
	if m.DefaultTTL() != DefaultConfig().DefaultTTL {
		t.Errorf("DefaultTTL = %v, want %v", m.DefaultTTL(), DefaultConfig().DefaultTTL)
	}
}

func TestManager_SetAndGet(t *testing.T) {
	m := NewManager(setupTestRedis(t), DefaultConfig())
	ctx := context.Background()

	key, _ := KeyForURL("https://example.test/api/character/?page=1")
	entry := &Entry{
		Body:     []byte(`{"info":{}}`),
		ETag:     `"abc"`,
		Expires:  time.Now().Add(time.Minute),
		StoredAt: time.Now(),
	}

	if err := m.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := m.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Body) != string(entry.Body) || got.ETag != entry.ETag {
		t.Errorf("Get = %+v, want %+v", got, entry)
	}
	if !got.IsFresh(time.Now()) {
		t.Error("Entry should still be fresh")
	}
}

func TestManager_GetMiss(t *testing.T) {
	m := NewManager(setupTestRedis(t), DefaultConfig())

	key, _ := KeyForURL("https://example.test/api/location/")
	if _, err := m.Get(context.Background(), key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestManager_StaleEntryWithoutValidatorsNotStored(t *testing.T) {
	m := NewManager(setupTestRedis(t), DefaultConfig())
	ctx := context.Background()

	key, _ := KeyForURL("https://example.test/api/character/1")
	entry := &Entry{Body: []byte(`{}`), Expires: time.Now().Add(-time.Second)}
	if err := m.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := m.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss for unrevalidatable stale entry, got %v", err)
	}
}

func TestManager_StaleEntryKeptForRevalidation(t *testing.T) {
	m := NewManager(setupTestRedis(t), DefaultConfig())
	ctx := context.Background()

	key, _ := KeyForURL("https://example.test/api/character/1")
	entry := &Entry{Body: []byte(`{}`), ETag: `"v1"`, Expires: time.Now().Add(-time.Second)}
	if err := m.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := m.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.IsFresh(time.Now()) {
		t.Error("Entry should be stale")
	}

	if err := m.Refresh(ctx, key, got, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	got, err = m.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after refresh failed: %v", err)
	}
	if !got.IsFresh(time.Now()) {
		t.Error("Entry should be fresh after refresh")
	}
}

func TestManager_Delete(t *testing.T) {
	m := NewManager(setupTestRedis(t), DefaultConfig())
	ctx := context.Background()

	key, _ := KeyForURL("https://example.test/api/character/2")
	if err := m.Set(ctx, key, &Entry{Body: []byte(`{}`), Expires: time.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := m.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := m.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after delete, got %v", err)
	}
}
