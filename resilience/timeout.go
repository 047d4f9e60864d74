package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimeoutConfig configures the timeout wrapper.
type TimeoutConfig struct {
	// Timeout is the maximum duration of a single attempt.
	// Default: 60 seconds
	Timeout time.Duration
}

// Timeout bounds a single attempt of an operation.
//
// The operation receives a context that is cancelled at the deadline; an
// operation that ignores its context keeps running in the background, but
// its result is discarded.
type Timeout struct {
	config TimeoutConfig
}

// NewTimeout creates a new timeout wrapper.
func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	return &Timeout{config: config}
}

// Execute runs the operation with a timeout. A deadline hit by this wrapper
// yields an error matching ErrTimeout; cancellation of the parent context is
// returned as the parent's error.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(attemptCtx)
	}()

	select {
	case err := <-done:
		// The attempt's own deadline is reported as ErrTimeout only, so the
		// retry policy does not mistake it for the caller's deadline.
		if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w after %s", ErrTimeout, t.config.Timeout)
		}
		return err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w after %s", ErrTimeout, t.config.Timeout)
	}
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}
