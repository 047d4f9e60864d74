package vault

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// EncryptedToken is the wire form of an encrypted secret. Salt and IV travel
// as separate hex fields next to the ciphertext.
type EncryptedToken struct {
	// Encrypted is the AES-256-CBC ciphertext, standard base64.
	Encrypted string `json:"encrypted"`

	// IV is the 16-byte initialization vector, hex.
	IV string `json:"iv"`

	// Salt is the 32-byte PBKDF2 salt, hex.
	Salt string `json:"salt"`

	// Timestamp is the encryption time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// MarshalString returns the token as a JSON string.
func (t *EncryptedToken) MarshalString() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("vault: marshal token: %w", err)
	}
	return string(b), nil
}

// ParseEncryptedToken parses a token produced by MarshalString.
func ParseEncryptedToken(s string) (*EncryptedToken, error) {
	var tok EncryptedToken
	if err := json.Unmarshal([]byte(s), &tok); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if tok.Encrypted == "" || tok.IV == "" || tok.Salt == "" {
		return nil, fmt.Errorf("%w: missing field", ErrInvalidToken)
	}
	return &tok, nil
}

func (t *EncryptedToken) decode() (ciphertext, iv, salt []byte, err error) {
	if t == nil {
		return nil, nil, nil, fmt.Errorf("%w: nil token", ErrInvalidToken)
	}
	if ciphertext, err = base64.StdEncoding.DecodeString(t.Encrypted); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: ciphertext: %v", ErrInvalidToken, err)
	}
	if iv, err = hex.DecodeString(t.IV); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: iv: %v", ErrInvalidToken, err)
	}
	if salt, err = hex.DecodeString(t.Salt); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: salt: %v", ErrInvalidToken, err)
	}
	return ciphertext, iv, salt, nil
}

// envelope is the plaintext sealed inside every EncryptedToken.
type envelope struct {
	Token          string `json:"token"`
	AdditionalData string `json:"additionalData,omitempty"`
	TenantID       string `json:"tenantId"`
	Timestamp      int64  `json:"timestamp"`
}
