// Package cache provides an explicit, caller-keyed response cache for
// idempotent read-only API calls.
//
// Nothing is cached implicitly. A caller names the cache entry with Key,
// typically scoped by tenant and resource, and routes a GET through
// ReadThrough. Mutating methods pass straight through: caching a
// payment-session creation would hand two callers the same session.
//
// Concurrent misses for the same key are collapsed into one upstream call
// with golang.org/x/sync/singleflight.
//
// MemoryCache serves a single process. RedisCache lets several processes
// share entries and leaves expiry to Redis.
package cache
