package cache

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc performs the upstream call on a cache miss.
type FetchFunc func(ctx context.Context) ([]byte, error)

// IsCacheable reports whether responses to method may be cached. Only GET
// and HEAD qualify.
func IsCacheable(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// ReadThrough serves GET responses from a Cache and fills it on miss.
//
// Contract:
//   - Concurrency: safe for concurrent use; concurrent misses for one key
//     share a single fetch.
//   - Errors: fetch errors are returned and never cached.
//   - Invalidation: a fetch still in flight when Invalidate is called does
//     not write its result to the cache.
type ReadThrough struct {
	cache  Cache
	policy Policy
	group  singleflight.Group

	// generation is bumped by every Invalidate. It is shared by all keys, so
	// an invalidation only costs concurrent fetches of other keys a store.
	generation atomic.Uint64
}

// NewReadThrough creates a ReadThrough over cache. A nil cache returns
// ErrNilCache.
func NewReadThrough(cache Cache, policy Policy) (*ReadThrough, error) {
	if cache == nil {
		return nil, ErrNilCache
	}
	return &ReadThrough{cache: cache, policy: policy}, nil
}

// Get returns the cached response for key or calls fetch and caches its
// result for ttl (0 uses the policy default).
//
// Non-cacheable methods, disabled policies and invalid keys call fetch
// directly without touching the cache.
func (r *ReadThrough) Get(ctx context.Context, method, key string, ttl time.Duration, fetch FetchFunc) ([]byte, error) {
	if !IsCacheable(method) || !r.policy.ShouldCache() || ValidateKey(key) != nil {
		return fetch(ctx)
	}

	if cached, ok := r.cache.Get(ctx, key); ok {
		return cached, nil
	}

	ch := r.group.DoChan(key, func() (any, error) {
		// Detached so one caller's cancellation does not fail the others.
		fetchCtx := context.WithoutCancel(ctx)
		gen := r.generation.Load()
		body, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if r.generation.Load() != gen {
			return body, nil
		}
		_ = r.cache.Set(fetchCtx, key, body, r.policy.EffectiveTTL(ttl))
		if r.generation.Load() != gen {
			// Invalidate ran between the check and the store.
			_ = r.cache.Delete(fetchCtx, key)
		}
		return body, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate removes key from the cache, for example after a mutation of
// the resource it names.
func (r *ReadThrough) Invalidate(ctx context.Context, key string) error {
	r.generation.Add(1)
	r.group.Forget(key)
	return r.cache.Delete(ctx, key)
}
