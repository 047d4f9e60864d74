// Package health reports whether the SDK can currently reach the Shora API.
//
// Two kinds of Checker feed an Aggregator:
//   - BreakerChecker maps a circuit breaker to a status: closed is healthy,
//     half-open is degraded and open is unhealthy.
//   - RemoteChecker pings an HTTP endpoint and reports slow responses as
//     degraded.
//
// Each Result carries what the check looked at: the breaker metrics
// snapshot for a BreakerChecker, the observed response for a RemoteChecker.
// The overall status is the worst status of any check.
//
//	agg := health.NewAggregator()
//	agg.Register("payments", health.NewBreakerChecker(breaker))
//	agg.Register("api", health.NewRemoteChecker(health.RemoteCheckerConfig{URL: baseURL + "/health"}))
//
//	report := agg.Report(ctx)
//	if open := report.OpenCircuits(); len(open) > 0 {
//	    // fail over or shed load
//	}
package health
