// Package shora is the Go SDK for the Shora Core payment API.
//
// The SDK is split into focused packages:
//
//   - resilience: circuit breaker, retry with backoff and jitter, timeouts
//   - vault: tenant-bound token encryption, payment tokens, audit log
//   - client: HTTP facade with per-endpoint-group breakers
//   - observe: logging, metrics and tracing
//   - secret, auth, cache, health: supporting infrastructure for the client
package shora

// Version is the SDK version reported in the User-Agent header and in
// audit metadata.
const Version = "0.4.0"
