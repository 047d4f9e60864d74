// Package vault protects opaque secrets under a caller-controlled key and
// binds them to a tenant.
//
// Each EncryptToken call derives a fresh AES-256 key from the configured
// encryption key with PBKDF2-HMAC-SHA256 over a random 256-bit salt, then
// encrypts a JSON envelope with AES-256-CBC and PKCS7 padding under a random
// 128-bit IV. The envelope carries the tenant identifier, and DecryptToken
// refuses any envelope minted for a different tenant, even when the key is
// correct.
//
// # Failure model
//
// DecryptToken and ValidatePaymentToken never return errors for bad input.
// A corrupt ciphertext and a token from another tenant both yield
// ("", false); the audit log records which one it was.
//
// # Audit log
//
// When EnableAuditLogging is set, every decrypt and payment-token operation
// appends an AuditLogEntry to a bounded in-memory ring buffer and, if an
// AuditLogEndpoint is configured, forwards it with a fire-and-forget POST.
// Forwarding failures are logged as warnings and never surface to callers.
//
// # Example
//
//	key, _ := vault.GenerateEncryptionKey()
//	v, err := vault.New(vault.Config{EncryptionKey: key, TenantID: "tenant-a"})
//	if err != nil {
//	    return err
//	}
//	tok, err := v.EncryptToken("sk_live_123", "txn-42")
//	if err != nil {
//	    return err
//	}
//	plaintext, ok := v.DecryptToken(tok)
package vault
