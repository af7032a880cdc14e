// Package cache provides a Redis-backed response cache for the Rick and Morty
// API client.
//
// Entries are keyed by the normalized request URL and stay fresh until the
// expiry the server advertised (Cache-Control max-age or Expires), falling
// back to a configured TTL when the server sends neither. Stale entries that
// carry an ETag or Last-Modified value are kept for a revalidation window so
// the client can issue a conditional request instead of a full fetch.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient, cache.DefaultConfig())
//
//	key, err := cache.KeyForURL("https://rickandmortyapi.com/api/character/?page=2")
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API
//	}
//
// # Conditional Requests
//
//	if entry != nil && !entry.IsFresh(time.Now()) && entry.CanRevalidate() {
//		cache.AddConditionalHeaders(req, entry)
//	}
//
// # Metrics
//
//   - rickmorty_cache_hits_total{freshness} - Entries served from Redis
//   - rickmorty_cache_misses_total - Lookups that found nothing usable
//   - rickmorty_cache_revalidations_total{result} - Conditional request outcomes
//   - rickmorty_cache_errors_total{operation} - Redis operation errors
package cache
