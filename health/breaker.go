package health

import (
	"context"
	"fmt"

	"github.com/shora-ai/shora-go/resilience"
)

// BreakerSource exposes circuit breaker metrics. *resilience.CircuitBreaker
// satisfies it.
type BreakerSource interface {
	Metrics() resilience.CircuitBreakerMetrics
}

// BreakerChecker reports the state of one circuit breaker.
type BreakerChecker struct {
	breaker BreakerSource
}

// NewBreakerChecker creates a checker for breaker.
func NewBreakerChecker(breaker BreakerSource) *BreakerChecker {
	return &BreakerChecker{breaker: breaker}
}

// Check maps the breaker state to a status and attaches the metrics
// snapshot. It never blocks.
func (c *BreakerChecker) Check(_ context.Context) Result {
	m := c.breaker.Metrics()

	var r Result
	switch status := StatusForState(m.State); status {
	case StatusHealthy:
		r = newResult(status, "circuit closed", nil)
	case StatusDegraded:
		r = newResult(status, fmt.Sprintf("circuit half-open, %d trial successes", m.HalfOpenSuccesses), nil)
	default:
		r = newResult(status, fmt.Sprintf("circuit open until %s", m.NextAttempt.Format("15:04:05")), ErrCircuitOpen)
	}
	r.Breaker = &m
	return r
}
