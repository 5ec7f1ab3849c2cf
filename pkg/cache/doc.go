// Package cache provides optional Redis-backed caching of successful
// publisher lookups, so repeated runs over overlapping input sheets skip
// the network for identifiers already resolved.
//
// Entries are the JSON encoding of a lookup record, stored under a
// deterministic key per identifier and expired by Redis TTL. Failed
// lookups are never cached: an all-null record must stay retryable on
// the next run.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient, cache.DefaultTTL)
//
//	key := cache.Key{Kind: "domain", Value: "example.com"}
//
//	data, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// Not cached - fetch from the API
//	}
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - sincera_cache_hits_total - Cache hits
//   - sincera_cache_misses_total - Cache misses
//   - sincera_cache_size_bytes - Bytes written to the cache
//   - sincera_cache_errors_total{operation} - Cache operation errors
package cache
