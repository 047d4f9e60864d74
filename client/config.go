package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/shora-ai/shora-go/cache"
	"github.com/shora-ai/shora-go/observe"
	"github.com/shora-ai/shora-go/resilience"
	"github.com/shora-ai/shora-go/secret"
)

// Environment selects a Shora deployment.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvSandbox     Environment = "sandbox"
	EnvDevelopment Environment = "development"
)

var environmentURLs = map[Environment]string{
	EnvProduction:  "https://api.shora.cloud",
	EnvSandbox:     "https://sandbox.api.shora.cloud",
	EnvDevelopment: "http://localhost:3000",
}

// Environment variables read by ConfigFromEnv. SHORA_BASE_URL is also
// consulted by New when Config.BaseURL is empty.
const (
	EnvVarAPIKey        = "SHORA_API_KEY"
	EnvVarTenantID      = "SHORA_TENANT_ID"
	EnvVarEnvironment   = "SHORA_ENV"
	EnvVarBaseURL       = "SHORA_BASE_URL"
	EnvVarEncryptionKey = "SHORA_ENCRYPTION_KEY"
)

const defaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	// APIKey is an API key, or a bearer token prefixed with "Bearer " or
	// shaped like a JWT. Required.
	APIKey string

	// TenantID is sent in X-Tenant-ID and scopes the vault. Required.
	TenantID string

	// Environment picks the base URL when neither BaseURL nor
	// SHORA_BASE_URL is set.
	// Default: sandbox
	Environment Environment

	// BaseURL overrides every other base URL source.
	BaseURL string

	// Timeout bounds a single attempt of a call.
	// Default: 30 seconds
	Timeout time.Duration

	// UserAgent is appended to the SDK's own User-Agent.
	UserAgent string

	// Retry is the retry template for every endpoint group. OnRetry and
	// RetryIf are wrapped, not replaced.
	Retry resilience.RetryConfig

	// Breaker is the breaker template for every endpoint group.
	Breaker resilience.CircuitBreakerConfig

	// Cache enables read-through caching of idempotent reads. Nil disables it.
	Cache cache.Cache

	// CachePolicy applies when Cache is set.
	// Default: cache.DefaultPolicy()
	CachePolicy cache.Policy

	// Observer supplies tracing, metrics and the logger.
	// Default: no telemetry
	Observer observe.Observer

	// Logger overrides the observer's logger.
	Logger observe.Logger

	// HTTPClient sends requests. Its Transport is wrapped with credentials;
	// per-attempt deadlines come from Timeout.
	// Default: a new http.Client
	HTTPClient *http.Client

	// EncryptionKey enables the token vault.
	EncryptionKey string

	// EnableAuditLogging and AuditLogEndpoint configure the vault's audit log.
	EnableAuditLogging bool
	AuditLogEndpoint   string

	// LookupEnv reads SHORA_BASE_URL during New.
	// Default: os.LookupEnv
	LookupEnv secret.LookupFunc
}

// Validate checks the required fields and the environment.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(c.TenantID) == "" {
		return ErrMissingTenantID
	}
	if c.Environment != "" {
		if _, ok := environmentURLs[c.Environment]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownEnvironment, c.Environment)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvSandbox
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.Cache != nil && c.CachePolicy == (cache.Policy{}) {
		c.CachePolicy = cache.DefaultPolicy()
	}
	if c.LookupEnv == nil {
		c.LookupEnv = os.LookupEnv
	}
}

// ResolveBaseURL returns the API base URL: explicit, then the
// SHORA_BASE_URL variable, then the environment's URL. The result has no
// trailing slash.
func ResolveBaseURL(explicit string, env Environment, lookup secret.LookupFunc) (string, error) {
	base := strings.TrimSpace(explicit)
	if base == "" && lookup != nil {
		if v, ok := lookup(EnvVarBaseURL); ok {
			base = strings.TrimSpace(v)
		}
	}
	if base == "" {
		if env == "" {
			env = EnvSandbox
		}
		u, ok := environmentURLs[env]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, env)
		}
		base = u
	}

	base = strings.TrimRight(base, "/")
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidBaseURL, base)
	}
	return base, nil
}

// ConfigFromEnv builds a Config from SHORA_* variables read with lookup
// (nil uses the process environment). Each value is resolved through a
// strict secret.Resolver, so it may hold ${VAR} references or
// secretref:<provider>:<ref> secrets. Missing variables are left empty.
func ConfigFromEnv(ctx context.Context, lookup secret.LookupFunc) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	resolver := secret.NewResolver(true, secret.EnvProvider{Lookup: lookup}, secret.FileProvider{}).
		WithLookup(lookup)

	read := func(name string) (string, error) {
		raw, ok := lookup(name)
		if !ok || raw == "" {
			return "", nil
		}
		v, err := resolver.ResolveValue(ctx, raw)
		if err != nil {
			return "", fmt.Errorf("client: %s: %w", name, err)
		}
		return v, nil
	}

	var cfg Config
	var env string
	fields := []struct {
		name string
		dst  *string
	}{
		{EnvVarAPIKey, &cfg.APIKey},
		{EnvVarTenantID, &cfg.TenantID},
		{EnvVarEnvironment, &env},
		{EnvVarBaseURL, &cfg.BaseURL},
		{EnvVarEncryptionKey, &cfg.EncryptionKey},
	}
	for _, f := range fields {
		v, err := read(f.name)
		if err != nil {
			return Config{}, err
		}
		*f.dst = v
	}
	cfg.Environment = Environment(strings.ToLower(env))
	cfg.LookupEnv = lookup
	return cfg, nil
}
