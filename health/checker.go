package health

import (
	"context"
	"time"

	"github.com/shora-ai/shora-go/resilience"
)

// Status represents the health status of a component.
type Status int

const (
	// StatusHealthy indicates the component is functioning normally.
	StatusHealthy Status = iota
	// StatusDegraded indicates the component is functioning but with issues.
	StatusDegraded
	// StatusUnhealthy indicates the component is not functioning properly.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status as its string form.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StatusForState maps a circuit state to a status: closed is healthy,
// half-open is degraded and open is unhealthy.
func StatusForState(state resilience.State) Status {
	switch state {
	case resilience.StateClosed:
		return StatusHealthy
	case resilience.StateHalfOpen:
		return StatusDegraded
	default:
		return StatusUnhealthy
	}
}

// Ping is what a RemoteChecker observed on the wire.
type Ping struct {
	URL        string
	StatusCode int
	Latency    time.Duration
}

// Result is the outcome of one check.
type Result struct {
	Status  Status
	Message string
	Err     error

	// Breaker is the circuit snapshot the status was derived from. Only
	// BreakerChecker sets it.
	Breaker *resilience.CircuitBreakerMetrics

	// Ping is set by RemoteChecker once a response arrived.
	Ping *Ping

	// Duration is how long the check took; the aggregator fills it in.
	Duration time.Duration

	// CheckedAt is when the check started.
	CheckedAt time.Time
}

// Available reports whether calls guarded by this check may go through.
// Degraded components still take traffic.
func (r Result) Available() bool {
	return r.Status != StatusUnhealthy
}

func newResult(status Status, message string, err error) Result {
	return Result{Status: status, Message: message, Err: err, CheckedAt: time.Now()}
}

// Checker reports the health of one dependency. The aggregator keys it by
// the name it was registered under.
type Checker interface {
	Check(ctx context.Context) Result
}

// CheckFunc adapts a function to the Checker interface.
type CheckFunc func(ctx context.Context) Result

// Check calls f.
func (f CheckFunc) Check(ctx context.Context) Result {
	return f(ctx)
}
