package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt, so an
	// always-failing operation is invoked MaxRetries+1 times.
	// Default: 3. Set DisableRetries to run the operation exactly once.
	MaxRetries int

	// DisableRetries forces MaxRetries to zero.
	DisableRetries bool

	// BaseDelay is the delay before the first retry.
	// Default: 1s
	BaseDelay time.Duration

	// MaxDelay caps the delay before jitter is added.
	// Default: 30s
	MaxDelay time.Duration

	// BackoffMultiplier is the exponential growth factor.
	// Default: 2.0
	BackoffMultiplier float64

	// JitterFraction is the upper bound of the random extra delay, as a
	// fraction of the computed delay.
	// Default: 0.1. Negative disables jitter.
	JitterFraction float64

	// RetryIf determines if an error should trigger a retry.
	// Default: DefaultRetryIf.
	RetryIf func(err error) bool

	// OnRetry is called before each retry sleep. attempt is 1-based.
	OnRetry func(attempt int, err error, delay time.Duration)

	// Sleep waits for d or until ctx is done. Default: a timer select.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryIf retries every error except an open circuit and context
// cancellation. An open circuit will keep failing fast until its reset
// timeout elapses, so spending retries on it only burns the budget.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// RetryAll retries every non-nil error, including ErrCircuitOpen.
func RetryAll(err error) bool {
	return err != nil
}

// Retry implements retry with exponential backoff and jitter. It holds no
// mutable state and may be shared between goroutines.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.DisableRetries {
		config.MaxRetries = 0
	} else if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.MaxDelay < config.BaseDelay {
		config.MaxDelay = config.BaseDelay
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = 2.0
	}
	if config.JitterFraction == 0 {
		config.JitterFraction = 0.1
	}
	if config.JitterFraction < 0 {
		config.JitterFraction = 0
	}
	if config.RetryIf == nil {
		config.RetryIf = DefaultRetryIf
	}
	if config.Sleep == nil {
		config.Sleep = sleepContext
	}

	return &Retry{config: config}
}

// Execute runs the operation with retry logic.
//
// A non-retryable error is returned as is. When all attempts fail the last
// error is returned wrapped in a *RetryError.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	maxAttempts := r.config.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.config.RetryIf(err) {
			return err
		}
		if attempt >= maxAttempts {
			break
		}

		delay := r.Delay(attempt - 1)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		if err := r.config.Sleep(ctx, delay); err != nil {
			return err
		}
	}

	return &RetryError{Attempts: maxAttempts, Last: lastErr}
}

// BaseDelay returns the delay for the zero-based retry index without jitter:
// min(BaseDelay * BackoffMultiplier^attempt, MaxDelay).
func (r *Retry) BaseDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	multiplier := math.Pow(r.config.BackoffMultiplier, float64(attempt))
	delay := float64(r.config.BaseDelay) * multiplier
	if delay > float64(r.config.MaxDelay) || math.IsInf(delay, 0) || math.IsNaN(delay) {
		return r.config.MaxDelay
	}
	return time.Duration(delay)
}

// Delay returns BaseDelay(attempt) plus up to JitterFraction of it,
// truncated to whole milliseconds.
func (r *Retry) Delay(attempt int) time.Duration {
	delay := r.BaseDelay(attempt)
	if r.config.JitterFraction > 0 && delay > 0 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		jitter := float64(delay) * r.config.JitterFraction * rand.Float64()
		delay += time.Duration(jitter)
	}
	return delay.Truncate(time.Millisecond)
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
