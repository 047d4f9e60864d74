package vault

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/shora-ai/shora-go/observe"
)

// Vault encrypts secrets under one encryption key and binds them to one
// tenant. A Vault is safe for concurrent use.
type Vault struct {
	config    Config
	logger    observe.Logger
	audit     *auditLog
	forwarder *forwarder

	reqMu  sync.RWMutex
	reqCtx RequestContext
}

// New creates a Vault. It fails only on invalid configuration.
func New(config Config) (*Vault, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	v := &Vault{
		config: config,
		logger: config.Logger.With(
			observe.Field{Key: "component", Value: "vault"},
			observe.Field{Key: "tenant_id", Value: config.TenantID},
		),
		audit: newAuditLog(config.AuditLogCapacity),
	}
	if config.EnableAuditLogging && config.AuditLogEndpoint != "" {
		v.forwarder = newForwarder(config.AuditLogEndpoint, config.HTTPClient, v.logger, v.Sign)
	}
	return v, nil
}

// TenantID returns the tenant this vault is bound to.
func (v *Vault) TenantID() string {
	return v.config.TenantID
}

// SetRequestContext sets the IP address and user agent stamped on
// subsequent audit entries.
func (v *Vault) SetRequestContext(rc RequestContext) {
	v.reqMu.Lock()
	v.reqCtx = rc
	v.reqMu.Unlock()
}

func (v *Vault) requestContext() RequestContext {
	v.reqMu.RLock()
	defer v.reqMu.RUnlock()
	return v.reqCtx
}

// EncryptToken seals plaintext and additionalData in a tenant-bound envelope.
// Every call uses a fresh salt and IV, so equal inputs never produce equal
// ciphertexts. It fails only for an empty plaintext or when the system
// entropy source fails.
func (v *Vault) EncryptToken(plaintext, additionalData string) (*EncryptedToken, error) {
	if plaintext == "" {
		return nil, ErrEmptyPlaintext
	}

	salt, err := randomBytes(saltSize)
	if err != nil {
		return nil, err
	}
	iv, err := randomBytes(ivSize)
	if err != nil {
		return nil, err
	}

	now := v.config.Clock().UnixMilli()
	body, err := json.Marshal(envelope{
		Token:          plaintext,
		AdditionalData: additionalData,
		TenantID:       v.config.TenantID,
		Timestamp:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("vault: marshal envelope: %w", err)
	}

	key := deriveKey(v.config.EncryptionKey, salt, v.config.KeyDerivationIterations)
	ciphertext, err := encryptCBC(key, iv, body)
	if err != nil {
		return nil, err
	}

	return &EncryptedToken{
		Encrypted: base64.StdEncoding.EncodeToString(ciphertext),
		IV:        hex.EncodeToString(iv),
		Salt:      hex.EncodeToString(salt),
		Timestamp: now,
	}, nil
}

// DecryptToken returns the plaintext sealed in tok.
//
// Any failure returns ("", false): undecodable fields, a wrong key, a
// corrupt ciphertext, a malformed envelope, or an envelope bound to another
// tenant. Callers cannot tell these apart; the audit log can.
func (v *Vault) DecryptToken(tok *EncryptedToken) (string, bool) {
	body, err := v.open(tok)
	if err != nil {
		v.record(AuditLogEntry{
			Action:   ActionDecryptFailed,
			Status:   AuditFailed,
			Metadata: map[string]any{"reason": err.Error()},
		})
		return "", false
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		v.record(AuditLogEntry{
			Action:   ActionDecryptError,
			Status:   AuditFailed,
			Metadata: map[string]any{"reason": "malformed envelope"},
		})
		return "", false
	}

	if env.TenantID != v.config.TenantID {
		v.record(AuditLogEntry{
			Action:   ActionDecryptFailed,
			Status:   AuditFailed,
			Metadata: map[string]any{"reason": ReasonTenantMismatch},
		})
		return "", false
	}

	v.record(AuditLogEntry{Action: ActionDecryptSuccess, Status: AuditSuccess})
	return env.Token, true
}

func (v *Vault) open(tok *EncryptedToken) ([]byte, error) {
	ciphertext, iv, salt, err := tok.decode()
	if err != nil {
		return nil, err
	}
	if len(salt) == 0 {
		return nil, errors.New("vault: empty salt")
	}
	key := deriveKey(v.config.EncryptionKey, salt, v.config.KeyDerivationIterations)
	return decryptCBC(key, iv, ciphertext)
}

// Close waits for in-flight audit forwards to finish. If ctx ends first the
// remaining forwards are cancelled and ctx's error is returned. Audit entries
// logged after Close are kept in memory but no longer forwarded.
func (v *Vault) Close(ctx context.Context) error {
	if v.forwarder == nil {
		return nil
	}
	return v.forwarder.close(ctx)
}

func (v *Vault) record(entry AuditLogEntry) {
	v.config.Metrics.RecordVaultOperation(context.Background(), entry.Action, string(entry.Status))
	v.LogAudit(entry)
}
