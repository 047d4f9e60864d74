package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shora-ai/shora-go/resilience"
)

func TestBreakerChecker(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	fail := func(context.Context) error { return errors.New("503") }
	ok := func(context.Context) error { return nil }

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		Clock:            clock,
	})
	checker := NewBreakerChecker(cb)
	ctx := context.Background()

	r := checker.Check(ctx)
	if r.Status != StatusHealthy || r.Breaker == nil || r.Breaker.State != resilience.StateClosed {
		t.Fatalf("closed breaker: %+v", r)
	}
	if r.Ping != nil {
		t.Errorf("Ping = %+v, want nil", r.Ping)
	}

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	r = checker.Check(ctx)
	if r.Status != StatusUnhealthy || !errors.Is(r.Err, ErrCircuitOpen) {
		t.Fatalf("open breaker: %+v", r)
	}
	if r.Breaker.TotalFailures != 2 || !r.Breaker.NextAttempt.Equal(now.Add(time.Minute)) {
		t.Errorf("Breaker = %+v, want 2 failures and retry at %v", r.Breaker, now.Add(time.Minute))
	}

	now = now.Add(time.Minute)
	_ = cb.Execute(ctx, ok)
	r = checker.Check(ctx)
	if r.Status != StatusDegraded || r.Breaker.HalfOpenSuccesses != 1 {
		t.Fatalf("half-open breaker: %+v", r)
	}
	if r.Message != "circuit half-open, 1 trial successes" {
		t.Errorf("Message = %q", r.Message)
	}
}
