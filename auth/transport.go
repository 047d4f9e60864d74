package auth

import (
	"net/http"
)

// Transport is an http.RoundTripper that authenticates every request.
//
// Usage:
//
//	client := &http.Client{Transport: &auth.Transport{
//		Credentials: auth.APIKey{Key: key},
//		TenantID:    "tenant-a",
//	}}
type Transport struct {
	// Base performs the request. Default: http.DefaultTransport.
	Base http.RoundTripper

	// Credentials are applied unless the request context carries its own.
	Credentials Credentials

	// TenantID is sent in X-Tenant-ID unless the request context overrides it.
	TenantID string

	// UserAgent is sent in User-Agent when non-empty.
	UserAgent string
}

// RoundTrip clones req, applies credentials and headers, and sends it.
// The caller's request is never modified.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	creds := CredentialsFromContext(ctx)
	if creds == nil {
		creds = t.Credentials
	}
	if creds == nil {
		closeBody(req)
		return nil, ErrMissingCredentials
	}

	out := req.Clone(ctx)
	if err := creds.Apply(ctx, out); err != nil {
		closeBody(req)
		return nil, err
	}

	tenant := TenantIDFromContext(ctx)
	if tenant == "" {
		tenant = t.TenantID
	}
	if tenant != "" {
		out.Header.Set(HeaderTenantID, tenant)
	}
	if t.UserAgent != "" {
		out.Header.Set("User-Agent", t.UserAgent)
	}

	return t.base().RoundTrip(out)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrippers must close the body even on error.
func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
