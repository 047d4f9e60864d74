package vault

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shora-ai/shora-go/observe"
)

const (
	// DefaultKeyDerivationIterations is the PBKDF2 round count.
	DefaultKeyDerivationIterations = 100000

	// DefaultAuditLogCapacity bounds the in-memory audit log.
	DefaultAuditLogCapacity = 10000

	// PaymentTokenTTL is the lifetime of a payment token.
	PaymentTokenTTL = 30 * time.Minute

	defaultForwardTimeout = 10 * time.Second
)

// Config configures a Vault.
type Config struct {
	// EncryptionKey is the passphrase every token key is derived from.
	// Required. GenerateEncryptionKey produces a suitable value.
	EncryptionKey string

	// TenantID is bound into every envelope this vault encrypts.
	// Required.
	TenantID string

	// AuditLogEndpoint optionally receives every audit entry as a JSON POST.
	AuditLogEndpoint string

	// EnableAuditLogging turns on the audit log.
	// Default: false
	EnableAuditLogging bool

	// KeyDerivationIterations is the PBKDF2 round count.
	// Default: 100000
	KeyDerivationIterations int

	// AuditLogCapacity is the number of entries kept in memory. The oldest
	// entry is evicted when the log is full.
	// Default: 10000
	AuditLogCapacity int

	// HTTPClient forwards audit entries.
	// Default: an http.Client with a 10s timeout.
	HTTPClient *http.Client

	// Logger receives forwarding warnings.
	// Default: observe.NopLogger()
	Logger observe.Logger

	// Metrics counts vault operations by audit action.
	// Default: observe.NopMetrics()
	Metrics observe.Metrics

	// Clock returns the current time. Default: time.Now
	Clock func() time.Time
}

// Validate checks the required fields and the audit endpoint.
func (c *Config) Validate() error {
	if c.EncryptionKey == "" {
		return ErrMissingEncryptionKey
	}
	if c.TenantID == "" {
		return ErrMissingTenantID
	}
	if c.AuditLogEndpoint != "" {
		u, err := url.Parse(c.AuditLogEndpoint)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidAuditEndpoint, c.AuditLogEndpoint)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.KeyDerivationIterations <= 0 {
		c.KeyDerivationIterations = DefaultKeyDerivationIterations
	}
	if c.AuditLogCapacity <= 0 {
		c.AuditLogCapacity = DefaultAuditLogCapacity
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: defaultForwardTimeout}
	}
	if c.Logger == nil {
		c.Logger = observe.NopLogger()
	}
	if c.Metrics == nil {
		c.Metrics = observe.NopMetrics()
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}
