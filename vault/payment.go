package vault

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Error strings reported in ValidationResult.Error.
const (
	ErrorInvalidToken   = "Invalid token"
	ErrorTokenExpired   = "Token expired"
	ErrorTenantMismatch = "Tenant mismatch"
)

// PaymentData describes the payment a token authorizes.
type PaymentData struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	UserID   string  `json:"userId"`
	AgentID  string  `json:"agentId,omitempty"`
}

// PaymentTokenPayload is the envelope sealed inside a payment token.
type PaymentTokenPayload struct {
	PaymentData

	TenantID string `json:"tenantId"`
	Nonce    string `json:"nonce"`
	IssuedAt int64  `json:"issuedAt"`

	// Expires is the expiry in epoch milliseconds. Zero means no expiry.
	Expires int64 `json:"expires,omitempty"`
}

// ExpiresAt returns the expiry as a time.Time, or the zero time if unset.
func (p *PaymentTokenPayload) ExpiresAt() time.Time {
	if p.Expires == 0 {
		return time.Time{}
	}
	return time.UnixMilli(p.Expires)
}

// ValidationResult is the outcome of ValidatePaymentToken.
type ValidationResult struct {
	Valid bool
	Data  *PaymentTokenPayload
	Error string
}

// GeneratePaymentToken issues a payment token that expires after
// PaymentTokenTTL.
func (v *Vault) GeneratePaymentToken(data PaymentData) (*EncryptedToken, error) {
	return v.GeneratePaymentTokenWithTTL(data, PaymentTokenTTL)
}

// GeneratePaymentTokenWithTTL issues a payment token that expires after ttl.
// A ttl of zero or less yields a token that is already expired.
func (v *Vault) GeneratePaymentTokenWithTTL(data PaymentData, ttl time.Duration) (*EncryptedToken, error) {
	now := v.config.Clock()
	payload := PaymentTokenPayload{
		PaymentData: data,
		TenantID:    v.config.TenantID,
		Nonce:       uuid.NewString(),
		Expires:     now.Add(ttl).UnixMilli(),
		IssuedAt:    now.UnixMilli(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("vault: marshal payment payload: %w", err)
	}

	tok, err := v.EncryptToken(string(body), "")
	if err != nil {
		return nil, err
	}

	entry := paymentEntry(ActionPaymentTokenGenerated, AuditSuccess, &payload)
	entry.Metadata = map[string]any{"expires": payload.Expires}
	v.record(entry)
	return tok, nil
}

// ValidatePaymentToken decrypts tok and checks its expiry and tenant.
// Failures are reported in the result, never as an error.
func (v *Vault) ValidatePaymentToken(tok *EncryptedToken) ValidationResult {
	plaintext, ok := v.DecryptToken(tok)
	if !ok {
		return v.rejectPayment(ErrorInvalidToken, nil)
	}

	var payload PaymentTokenPayload
	if err := json.Unmarshal([]byte(plaintext), &payload); err != nil {
		return v.rejectPayment(ErrorInvalidToken, nil)
	}

	if payload.Expires != 0 && !v.config.Clock().Before(payload.ExpiresAt()) {
		return v.rejectPayment(ErrorTokenExpired, &payload)
	}
	if payload.TenantID != v.config.TenantID {
		return v.rejectPayment(ErrorTenantMismatch, &payload)
	}

	v.record(paymentEntry(ActionPaymentTokenValidated, AuditSuccess, &payload))
	return ValidationResult{Valid: true, Data: &payload}
}

func (v *Vault) rejectPayment(reason string, payload *PaymentTokenPayload) ValidationResult {
	entry := paymentEntry(ActionPaymentTokenValidationFailed, AuditFailed, payload)
	entry.Metadata = map[string]any{"error": reason}
	v.record(entry)
	return ValidationResult{Error: reason}
}

func paymentEntry(action string, status AuditStatus, payload *PaymentTokenPayload) AuditLogEntry {
	entry := AuditLogEntry{Action: action, Status: status}
	if payload == nil {
		return entry
	}
	amount := payload.Amount
	entry.Amount = &amount
	entry.Currency = payload.Currency
	entry.UserID = payload.UserID
	entry.AgentID = payload.AgentID
	entry.TransactionID = payload.Nonce
	return entry
}
