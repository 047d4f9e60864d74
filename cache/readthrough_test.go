package cache

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewReadThrough_NilCache(t *testing.T) {
	if _, err := NewReadThrough(nil, DefaultPolicy()); !errors.Is(err, ErrNilCache) {
		t.Fatalf("expected ErrNilCache, got %v", err)
	}
}

func TestIsCacheable(t *testing.T) {
	for method, want := range map[string]bool{
		http.MethodGet:    true,
		http.MethodHead:   true,
		http.MethodPost:   false,
		http.MethodPut:    false,
		http.MethodPatch:  false,
		http.MethodDelete: false,
	} {
		if got := IsCacheable(method); got != want {
			t.Errorf("IsCacheable(%s) = %v, want %v", method, got, want)
		}
	}
}

func TestReadThrough_CachesGET(t *testing.T) {
	rt, _ := NewReadThrough(NewMemoryCache(DefaultPolicy()), DefaultPolicy())
	ctx := context.Background()

	var calls int
	fetch := func(context.Context) ([]byte, error) {
		calls++
		return []byte(`{"id":"ps_1"}`), nil
	}

	for i := 0; i < 3; i++ {
		got, err := rt.Get(ctx, http.MethodGet, "shora:t:payments:session:ps_1", 0, fetch)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(got) != `{"id":"ps_1"}` {
			t.Fatalf("Get() = %s", got)
		}
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1", calls)
	}
}

func TestReadThrough_BypassesCache(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		policy Policy
		method string
		key    string
	}{
		{name: "POST is never cached", policy: DefaultPolicy(), method: http.MethodPost, key: "k"},
		{name: "caching disabled", policy: NoCachePolicy(), method: http.MethodGet, key: "k"},
		{name: "invalid key", policy: DefaultPolicy(), method: http.MethodGet, key: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, _ := NewReadThrough(NewMemoryCache(tt.policy), tt.policy)

			var calls int
			fetch := func(context.Context) ([]byte, error) {
				calls++
				return []byte("new-session"), nil
			}
			for i := 0; i < 2; i++ {
				if _, err := rt.Get(ctx, tt.method, tt.key, 0, fetch); err != nil {
					t.Fatalf("Get() error = %v", err)
				}
			}
			if calls != 2 {
				t.Errorf("fetch calls = %d, want 2", calls)
			}
		})
	}
}

func TestReadThrough_ErrorsNotCached(t *testing.T) {
	rt, _ := NewReadThrough(NewMemoryCache(DefaultPolicy()), DefaultPolicy())
	ctx := context.Background()
	upstream := errors.New("503")

	var calls int
	fetch := func(context.Context) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, upstream
		}
		return []byte("ok"), nil
	}

	if _, err := rt.Get(ctx, http.MethodGet, "k", 0, fetch); !errors.Is(err, upstream) {
		t.Fatalf("first Get() error = %v, want %v", err, upstream)
	}
	got, err := rt.Get(ctx, http.MethodGet, "k", 0, fetch)
	if err != nil || string(got) != "ok" {
		t.Fatalf("second Get() = %q, %v", got, err)
	}
	if calls != 2 {
		t.Errorf("fetch calls = %d, want 2", calls)
	}
}

func TestReadThrough_CollapsesConcurrentMisses(t *testing.T) {
	rt, _ := NewReadThrough(NewMemoryCache(DefaultPolicy()), DefaultPolicy())
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("shared"), nil
	}

	const callers = 10
	var wg sync.WaitGroup
	results := make(chan string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := rt.Get(ctx, http.MethodGet, "k", 0, fetch)
			if err != nil {
				t.Errorf("Get() error = %v", err)
				return
			}
			results <- string(got)
		}()
	}

	// Give every caller time to join the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	for r := range results {
		if r != "shared" {
			t.Errorf("result = %q, want shared", r)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
}

func TestReadThrough_CallerCancellation(t *testing.T) {
	rt, _ := NewReadThrough(NewMemoryCache(DefaultPolicy()), DefaultPolicy())

	release := make(chan struct{})
	defer close(release)
	fetch := func(context.Context) ([]byte, error) {
		<-release
		return []byte("late"), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := rt.Get(ctx, http.MethodGet, "k", 0, fetch); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Get() error = %v, want DeadlineExceeded", err)
	}
}

func TestReadThrough_Invalidate(t *testing.T) {
	rt, _ := NewReadThrough(NewMemoryCache(DefaultPolicy()), DefaultPolicy())
	ctx := context.Background()

	version := 0
	fetch := func(context.Context) ([]byte, error) {
		version++
		return []byte{byte('0' + version)}, nil
	}

	first, _ := rt.Get(ctx, http.MethodGet, "k", 0, fetch)
	if err := rt.Invalidate(ctx, "k"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	second, _ := rt.Get(ctx, http.MethodGet, "k", 0, fetch)

	if string(first) != "1" || string(second) != "2" {
		t.Errorf("got %q then %q, want 1 then 2", first, second)
	}
}

func TestReadThrough_InvalidateDuringFetch(t *testing.T) {
	mem := NewMemoryCache(DefaultPolicy())
	rt, _ := NewReadThrough(mem, DefaultPolicy())
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(context.Context) ([]byte, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
			return []byte("open"), nil
		}
		return []byte("cancelled"), nil
	}

	done := make(chan []byte, 1)
	go func() {
		body, _ := rt.Get(ctx, http.MethodGet, "k", 0, fetch)
		done <- body
	}()

	<-entered
	if err := rt.Invalidate(ctx, "k"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	close(release)

	if got := <-done; string(got) != "open" {
		t.Errorf("in-flight Get() = %q, want open", got)
	}
	if _, ok := mem.Get(ctx, "k"); ok {
		t.Fatal("fetch started before Invalidate was stored")
	}

	got, err := rt.Get(ctx, http.MethodGet, "k", 0, fetch)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "cancelled" {
		t.Errorf("Get() after invalidate = %q, want cancelled", got)
	}
	if calls.Load() != 2 {
		t.Errorf("fetch calls = %d, want 2", calls.Load())
	}
}
