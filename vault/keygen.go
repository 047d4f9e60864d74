package vault

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// GenerateEncryptionKey returns 32 random bytes, hex encoded, for use as
// Config.EncryptionKey.
func GenerateEncryptionKey() (string, error) {
	b, err := randomBytes(keySize)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashSensitive returns the hex SHA-256 of s, for logging identifiers
// without revealing them.
func HashSensitive(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Sign returns the hex HMAC-SHA256 of data under the vault's encryption key.
func (v *Vault) Sign(data []byte) string {
	mac := hmac.New(sha256.New, []byte(v.config.EncryptionKey))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is Sign(data).
func (v *Vault) Verify(data []byte, signature string) bool {
	want, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(v.config.EncryptionKey))
	mac.Write(data)
	return hmac.Equal(mac.Sum(nil), want)
}
