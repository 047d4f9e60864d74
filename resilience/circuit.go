package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is rejecting all requests.
	StateOpen
	// StateHalfOpen means the circuit is letting trial requests through.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// a closed circuit.
	// Default: 5
	FailureThreshold int

	// ResetTimeout is how long an open circuit rejects calls before the
	// next call is let through as a half-open trial.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenSuccessThreshold is the number of consecutive half-open
	// successes that closes the circuit.
	// Default: 3
	HalfOpenSuccessThreshold int

	// Timeout is an advisory per-call budget. The breaker itself never
	// enforces it; Executor applies it when no explicit timeout is set.
	// Default: 60 seconds
	Timeout time.Duration

	// OnStateChange is called when the circuit state changes.
	// It runs with the breaker lock held and must not call back into the breaker.
	OnStateChange func(from, to State)

	// IsFailure determines if an error should count as a failure.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool

	// IsExcluded reports outcomes that count as neither success nor
	// failure, such as a call abandoned by its caller. It is checked
	// before IsFailure.
	// Default: nothing is excluded.
	IsExcluded func(err error) bool

	// Clock returns the current time. Default: time.Now
	Clock func() time.Time
}

// CircuitBreaker implements the circuit breaker pattern.
//
// A breaker is meant to be created once per dependency (for example one per
// endpoint group of an API client) and shared by every call to it.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu                sync.Mutex
	state             State
	failureCount      int
	lastFailureTime   time.Time
	nextAttemptTime   time.Time
	halfOpenSuccesses int
	totalSuccesses    int64
	totalFailures     int64
	totalRejected     int64
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenSuccessThreshold <= 0 {
		config.HalfOpenSuccessThreshold = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Execute runs the operation through the circuit breaker.
//
// When the circuit is open and the reset timeout has not elapsed, Execute
// returns ErrCircuitOpen without invoking op. Errors from op are returned
// unchanged.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := op(ctx)
	cb.afterRequest(err)
	return err
}

// State returns the current circuit state.
//
// An open circuit whose reset timeout has elapsed still reports StateOpen;
// the transition to half-open happens on the next call.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Config returns the circuit breaker configuration.
func (cb *CircuitBreaker) Config() CircuitBreakerConfig {
	return cb.config
}

// Reset forces the circuit back to closed and clears its failure state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	cb.halfOpenSuccesses = 0
	cb.lastFailureTime = time.Time{}
	cb.nextAttemptTime = time.Time{}
	cb.setStateLocked(StateClosed)
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return nil
	}

	if cb.config.Clock().Before(cb.nextAttemptTime) {
		cb.totalRejected++
		return ErrCircuitOpen
	}

	cb.setStateLocked(StateHalfOpen)
	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil && cb.config.IsExcluded != nil && cb.config.IsExcluded(err) {
		return
	}
	if !cb.config.IsFailure(err) {
		cb.onSuccessLocked()
		return
	}
	cb.onFailureLocked()
}

func (cb *CircuitBreaker) onSuccessLocked() {
	cb.totalSuccesses++

	switch cb.state {
	case StateHalfOpen:
		cb.halfOpenSuccesses++
		if cb.halfOpenSuccesses >= cb.config.HalfOpenSuccessThreshold {
			cb.failureCount = 0
			cb.setStateLocked(StateClosed)
		}
	case StateClosed:
		cb.failureCount = 0
	}
}

func (cb *CircuitBreaker) onFailureLocked() {
	now := cb.config.Clock()

	cb.totalFailures++
	cb.failureCount++
	cb.lastFailureTime = now

	switch cb.state {
	case StateHalfOpen:
		cb.tripLocked(now)
	case StateClosed:
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.tripLocked(now)
		}
	}
}

func (cb *CircuitBreaker) tripLocked(now time.Time) {
	cb.nextAttemptTime = now.Add(cb.config.ResetTimeout)
	cb.setStateLocked(StateOpen)
}

func (cb *CircuitBreaker) setStateLocked(state State) {
	old := cb.state
	cb.state = state
	if state == StateHalfOpen || state == StateClosed {
		cb.halfOpenSuccesses = 0
	}
	if old != state && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(old, state)
	}
}

// Metrics returns current circuit breaker metrics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerMetrics{
		State:             cb.state,
		FailureCount:      cb.failureCount,
		HalfOpenSuccesses: cb.halfOpenSuccesses,
		LastFailure:       cb.lastFailureTime,
		NextAttempt:       cb.nextAttemptTime,
		TotalSuccesses:    cb.totalSuccesses,
		TotalFailures:     cb.totalFailures,
		TotalRejected:     cb.totalRejected,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State             State
	FailureCount      int
	HalfOpenSuccesses int
	LastFailure       time.Time
	NextAttempt       time.Time
	TotalSuccesses    int64
	TotalFailures     int64
	TotalRejected     int64
}
