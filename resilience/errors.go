package resilience

import (
	"errors"
	"fmt"
)

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open. No call
	// to the dependency was made.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrMaxRetriesExceeded matches a *RetryError via errors.Is.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("resilience: operation timed out")
)

// RetryError is returned when every attempt of a retried operation failed.
// It carries the attempt count and the last underlying error so callers can
// tell a dependency that is down from one that is slow.
type RetryError struct {
	Attempts int
	Last     error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("resilience: gave up after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap returns the last underlying error.
func (e *RetryError) Unwrap() error {
	return e.Last
}

// Is reports ErrMaxRetriesExceeded as matching.
func (e *RetryError) Is(target error) bool {
	return target == ErrMaxRetriesExceeded
}

// IsCircuitOpen reports whether err was caused by an open circuit.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}
