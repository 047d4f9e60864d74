package auth

import (
	"context"
)

type contextKey int

const (
	credentialsKey contextKey = iota
	tenantKey
)

// WithCredentials returns a context whose requests are authenticated with
// creds instead of the transport's default credentials.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey, creds)
}

// CredentialsFromContext returns the per-call credentials, or nil.
func CredentialsFromContext(ctx context.Context) Credentials {
	c, _ := ctx.Value(credentialsKey).(Credentials)
	return c
}

// WithTenantID returns a context whose requests carry tenantID in
// X-Tenant-ID instead of the transport's default tenant.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey, tenantID)
}

// TenantIDFromContext returns the per-call tenant, or "".
func TenantIDFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tenantKey).(string)
	return t
}
