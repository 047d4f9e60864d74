// Package resilience provides the retry and circuit breaking layer used
// around every outbound call of the Shora client.
//
// # Patterns
//
//   - Circuit Breaker: stops calling a failing dependency once a threshold
//     of consecutive failures is reached, then lets trial calls through
//     after a reset timeout. Three consecutive trial successes close it
//     again; a single trial failure reopens it.
//
//   - Retry: re-attempts failed operations with exponential backoff and
//     jitter, up to MaxRetries retries after the first attempt.
//
//   - Timeout: bounds a single attempt.
//
// # Usage
//
// A breaker is created once per dependency and shared; the executor
// composes retry outside the breaker so every attempt is gated:
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    FailureThreshold: 5,
//	    ResetTimeout:     30 * time.Second,
//	})
//
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxRetries:        3,
//	    BaseDelay:         time.Second,
//	    MaxDelay:          30 * time.Second,
//	    BackoffMultiplier: 2,
//	    JitterFraction:    0.1,
//	})
//
//	executor := resilience.NewExecutor(
//	    resilience.WithRetry(retry),
//	    resilience.WithCircuitBreaker(cb),
//	    resilience.WithTimeout(10*time.Second),
//	)
//
//	session, err := resilience.Do(ctx, executor, func(ctx context.Context) (*Session, error) {
//	    return api.CreateSession(ctx, req)
//	})
//
// By default an open circuit ends the retry loop immediately (see
// DefaultRetryIf); use RetryAll to keep retrying through it.
package resilience
