package vault

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	shora "github.com/shora-ai/shora-go"
)

// Audit actions recorded by the vault.
const (
	ActionDecryptSuccess               = "decrypt_success"
	ActionDecryptFailed                = "decrypt_failed"
	ActionDecryptError                 = "decrypt_error"
	ActionPaymentTokenGenerated        = "payment_token_generated"
	ActionPaymentTokenValidated        = "payment_token_validated"
	ActionPaymentTokenValidationFailed = "payment_token_validation_failed"
)

// ReasonTenantMismatch is the decrypt_failed reason for a token sealed for
// another tenant.
const ReasonTenantMismatch = "tenant_mismatch"

// AuditStatus is the outcome recorded in an audit entry.
type AuditStatus string

const (
	AuditSuccess AuditStatus = "success"
	AuditFailed  AuditStatus = "failed"
	AuditPending AuditStatus = "pending"
)

// AuditLogEntry is one audited vault operation.
type AuditLogEntry struct {
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	TenantID      string         `json:"tenantId"`
	Action        string         `json:"action"`
	TransactionID string         `json:"transactionId,omitempty"`
	UserID        string         `json:"userId,omitempty"`
	AgentID       string         `json:"agentId,omitempty"`
	Amount        *float64       `json:"amount,omitempty"`
	Currency      string         `json:"currency,omitempty"`
	Status        AuditStatus    `json:"status"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	IPAddress     string         `json:"ipAddress,omitempty"`
	UserAgent     string         `json:"userAgent,omitempty"`
}

// AuditFilter selects audit entries. Zero fields match everything; time
// bounds are inclusive.
type AuditFilter struct {
	Start  time.Time
	End    time.Time
	Action string
}

func (f AuditFilter) match(e *AuditLogEntry) bool {
	if !f.Start.IsZero() && e.Timestamp.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && e.Timestamp.After(f.End) {
		return false
	}
	return f.Action == "" || e.Action == f.Action
}

// RequestContext describes the caller of the current operation.
type RequestContext struct {
	IPAddress string
	UserAgent string
}

// LogAudit appends entry to the audit log and forwards it to the audit
// endpoint, if one is configured. It does nothing unless audit logging is
// enabled.
//
// The vault assigns the ID, timestamp and tenant, fills missing request
// context fields from SetRequestContext, and adds the sdkVersion and
// keyDerivationIterations metadata keys.
func (v *Vault) LogAudit(entry AuditLogEntry) {
	if !v.config.EnableAuditLogging {
		return
	}

	entry.ID = uuid.NewString()
	entry.Timestamp = v.config.Clock()
	entry.TenantID = v.config.TenantID

	rc := v.requestContext()
	if entry.IPAddress == "" {
		entry.IPAddress = rc.IPAddress
	}
	if entry.UserAgent == "" {
		entry.UserAgent = rc.UserAgent
	}

	metadata := make(map[string]any, len(entry.Metadata)+2)
	for k, val := range entry.Metadata {
		metadata[k] = val
	}
	metadata["sdkVersion"] = shora.Version
	metadata["keyDerivationIterations"] = v.config.KeyDerivationIterations
	entry.Metadata = metadata

	v.audit.append(entry)
	if v.forwarder != nil {
		v.forwarder.send(entry)
	}
}

// AuditLogs returns this tenant's entries matching filter, newest first.
func (v *Vault) AuditLogs(filter AuditFilter) []AuditLogEntry {
	entries := v.audit.snapshot()

	out := make([]AuditLogEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := &entries[i]
		if e.TenantID != v.config.TenantID || !filter.match(e) {
			continue
		}
		out = append(out, *e)
	}

	slices.SortStableFunc(out, func(a, b AuditLogEntry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

// auditLog is a fixed-capacity ring buffer of audit entries.
type auditLog struct {
	mu       sync.RWMutex
	entries  []AuditLogEntry
	next     int
	capacity int
}

func newAuditLog(capacity int) *auditLog {
	return &auditLog{capacity: capacity}
}

func (l *auditLog) append(e AuditLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) < l.capacity {
		l.entries = append(l.entries, e)
		return
	}
	l.entries[l.next] = e
	l.next = (l.next + 1) % l.capacity
}

// snapshot returns the entries oldest first. Metadata maps are copied so
// callers cannot mutate the stored entries.
func (l *auditLog) snapshot() []AuditLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]AuditLogEntry, 0, len(l.entries))
	out = append(out, l.entries[l.next:]...)
	out = append(out, l.entries[:l.next]...)
	for i := range out {
		out[i].Metadata = maps.Clone(out[i].Metadata)
	}
	return out
}
