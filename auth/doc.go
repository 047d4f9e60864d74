// Package auth attaches Shora API credentials to outgoing requests.
//
// Two credential kinds are supported: an API key sent in X-API-Key, and a
// bearer token sent in Authorization. Bearer tokens that are JWTs are
// inspected locally, without signature verification, so an expired token
// fails fast instead of costing a round trip.
//
// Transport wraps an http.RoundTripper and applies credentials, the tenant
// header and the user agent to every request. A call can override the
// client's credentials with WithCredentials.
package auth
