package vault

import "errors"

// Configuration errors returned by New and Config.Validate.
var (
	// ErrMissingEncryptionKey is returned when Config.EncryptionKey is empty.
	ErrMissingEncryptionKey = errors.New("vault: encryption key is required")

	// ErrMissingTenantID is returned when Config.TenantID is empty.
	ErrMissingTenantID = errors.New("vault: tenant id is required")

	// ErrInvalidAuditEndpoint is returned when Config.AuditLogEndpoint is
	// not an absolute http(s) URL.
	ErrInvalidAuditEndpoint = errors.New("vault: audit log endpoint must be an absolute http(s) URL")
)

// ErrEmptyPlaintext is returned by EncryptToken for an empty plaintext.
var ErrEmptyPlaintext = errors.New("vault: plaintext must not be empty")

// Errors produced while decoding or decrypting a token. DecryptToken never
// returns them; they appear as the reason in decrypt_failed audit entries.
var (
	ErrInvalidToken      = errors.New("vault: malformed encrypted token")
	ErrInvalidCiphertext = errors.New("vault: ciphertext is not a whole number of blocks")
	ErrInvalidPadding    = errors.New("vault: invalid PKCS7 padding")
)
