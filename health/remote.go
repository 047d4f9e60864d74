package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteCheckerConfig configures a RemoteChecker.
type RemoteCheckerConfig struct {
	// URL is pinged with a GET request. Required.
	URL string

	// Client performs the request.
	// Default: an http.Client with a 5s timeout.
	Client *http.Client

	// DegradedLatency marks a successful but slow response as degraded.
	// Default: 2 seconds
	DegradedLatency time.Duration

	// Decorate adds headers such as credentials to the request.
	Decorate func(*http.Request)
}

// RemoteChecker pings an HTTP endpoint.
type RemoteChecker struct {
	config RemoteCheckerConfig
}

// NewRemoteChecker creates a new remote checker.
func NewRemoteChecker(config RemoteCheckerConfig) *RemoteChecker {
	if config.Client == nil {
		config.Client = &http.Client{Timeout: 5 * time.Second}
	}
	if config.DegradedLatency <= 0 {
		config.DegradedLatency = 2 * time.Second
	}
	return &RemoteChecker{config: config}
}

// Check sends the ping. A 2xx response is healthy, or degraded when slower
// than DegradedLatency; anything else is unhealthy.
func (c *RemoteChecker) Check(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.URL, nil)
	if err != nil {
		return newResult(StatusUnhealthy, "invalid health url", err)
	}
	if c.config.Decorate != nil {
		c.config.Decorate(req)
	}

	start := time.Now()
	resp, err := c.config.Client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return newResult(StatusUnhealthy, "health endpoint unreachable", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	var r Result
	switch {
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		err := fmt.Errorf("%w: status %d", ErrCheckFailed, resp.StatusCode)
		r = newResult(StatusUnhealthy, "health endpoint returned an error", err)
	case latency > c.config.DegradedLatency:
		r = newResult(StatusDegraded, "health endpoint is slow", nil)
	default:
		r = newResult(StatusHealthy, "health endpoint reachable", nil)
	}
	r.CheckedAt = start
	r.Ping = &Ping{URL: c.config.URL, StatusCode: resp.StatusCode, Latency: latency}
	return r
}
