package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields of a bearer JWT the SDK cares about. They are read
// without verifying the signature and must not be used for authorization.
type Claims struct {
	Subject   string
	TenantID  string
	Issuer    string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Raw       map[string]any
}

// tenantClaims lists claim names checked, in order, for the tenant.
var tenantClaims = []string{"tenant_id", "tenantId", "tid"}

// LooksLikeJWT reports whether s has the three dot-separated segments of a
// compact JWS.
func LooksLikeJWT(s string) bool {
	return strings.Count(s, ".") == 2 && !strings.ContainsAny(s, " \t")
}

// ParseClaims decodes a JWT's claims without verifying it.
func ParseClaims(token string) (*Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	c := &Claims{Raw: make(map[string]any, len(mc))}
	for k, v := range mc {
		c.Raw[k] = v
	}
	c.Subject, _ = mc.GetSubject()
	c.Issuer, _ = mc.GetIssuer()
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	for _, name := range tenantClaims {
		if tenant, ok := mc[name].(string); ok && tenant != "" {
			c.TenantID = tenant
			break
		}
	}
	return c, nil
}

// ExpiredAt reports whether the token is expired at now, allowing leeway
// for clock skew. Tokens without exp never expire.
func (c *Claims) ExpiredAt(now time.Time, leeway time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return now.After(c.ExpiresAt.Add(leeway))
}

// CheckTenant returns ErrTenantMismatch when the token names a tenant other
// than tenantID. Tokens without a tenant claim pass.
func (c *Claims) CheckTenant(tenantID string) error {
	if c.TenantID == "" || tenantID == "" || c.TenantID == tenantID {
		return nil
	}
	return fmt.Errorf("%w: token %q, configured %q", ErrTenantMismatch, c.TenantID, tenantID)
}
