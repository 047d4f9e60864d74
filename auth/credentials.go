package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Header names set by this package.
const (
	HeaderAPIKey        = "X-API-Key"
	HeaderAuthorization = "Authorization"
	HeaderTenantID      = "X-Tenant-ID"
)

// Method identifies how a request is authenticated.
type Method string

const (
	MethodAPIKey Method = "api_key"
	MethodBearer Method = "bearer"
)

// Credentials authenticate an outgoing request.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Apply returns an error instead of sending a request that is
//   certain to be rejected.
type Credentials interface {
	// Method reports the credential kind.
	Method() Method

	// Apply sets the credential headers on req.
	Apply(ctx context.Context, req *http.Request) error
}

// APIKey authenticates with a static API key.
type APIKey struct {
	Key string
}

// Method returns MethodAPIKey.
func (APIKey) Method() Method { return MethodAPIKey }

// Apply sets the X-API-Key header.
func (k APIKey) Apply(_ context.Context, req *http.Request) error {
	if strings.TrimSpace(k.Key) == "" {
		return ErrMissingCredentials
	}
	req.Header.Set(HeaderAPIKey, k.Key)
	return nil
}

// BearerToken authenticates with a bearer token. JWT tokens are checked for
// expiry before use; opaque tokens are sent as is.
type BearerToken struct {
	token  string
	claims *Claims
	leeway time.Duration
	now    func() time.Time
}

// NewBearerToken creates bearer credentials. leeway tolerates clock skew in
// the expiry check.
func NewBearerToken(token string, leeway time.Duration) *BearerToken {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	b := &BearerToken{token: token, leeway: leeway, now: time.Now}
	if LooksLikeJWT(token) {
		// A malformed JWT is still sent; the server has the final word.
		b.claims, _ = ParseClaims(token)
	}
	return b
}

// Method returns MethodBearer.
func (*BearerToken) Method() Method { return MethodBearer }

// Claims returns the token's unverified claims, or nil for opaque tokens.
func (b *BearerToken) Claims() *Claims { return b.claims }

// Apply sets the Authorization header. It fails with ErrTokenExpired when
// the token's exp claim has passed.
func (b *BearerToken) Apply(_ context.Context, req *http.Request) error {
	if b.token == "" {
		return ErrMissingCredentials
	}
	if b.claims != nil && b.claims.ExpiredAt(b.now(), b.leeway) {
		return fmt.Errorf("%w: expired at %s", ErrTokenExpired, b.claims.ExpiresAt.Format(time.RFC3339))
	}
	req.Header.Set(HeaderAuthorization, "Bearer "+b.token)
	return nil
}

// FromKey picks credentials for key: a value that looks like a JWT or
// starts with "Bearer " becomes a BearerToken, anything else an APIKey.
func FromKey(key string) Credentials {
	if strings.HasPrefix(key, "Bearer ") || LooksLikeJWT(key) {
		return NewBearerToken(key, 30*time.Second)
	}
	return APIKey{Key: key}
}

var (
	_ Credentials = APIKey{}
	_ Credentials = (*BearerToken)(nil)
)
