package vault

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shora-ai/shora-go/observe"
)

const testIterations = 1000

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingMetrics struct {
	observe.Metrics

	mu      sync.Mutex
	actions []string
}

func (m *recordingMetrics) RecordVaultOperation(_ context.Context, action, status string) {
	m.mu.Lock()
	m.actions = append(m.actions, action+":"+status)
	m.mu.Unlock()
}

func testKey(t *testing.T) string {
	t.Helper()
	key, err := GenerateEncryptionKey()
	if err != nil {
		t.Fatalf("GenerateEncryptionKey() error = %v", err)
	}
	return key
}

func newTestVault(t *testing.T, key, tenant string, mutate ...func(*Config)) *Vault {
	t.Helper()
	cfg := Config{
		EncryptionKey:           key,
		TenantID:                tenant,
		EnableAuditLogging:      true,
		KeyDerivationIterations: testIterations,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	v, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = v.Close(context.Background()) })
	return v
}

// mustEncrypt encrypts plaintext or fails the test.
func mustEncrypt(t *testing.T, v *Vault, plaintext string) *EncryptedToken {
	t.Helper()
	tok, err := v.EncryptToken(plaintext, "")
	if err != nil {
		t.Fatalf("EncryptToken() error = %v", err)
	}
	return tok
}

func actions(entries []AuditLogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Action
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "valid", cfg: Config{EncryptionKey: "k", TenantID: "t"}},
		{name: "valid with endpoint", cfg: Config{EncryptionKey: "k", TenantID: "t", AuditLogEndpoint: "https://audit.example.com/v1/logs"}},
		{name: "missing key", cfg: Config{TenantID: "t"}, wantErr: ErrMissingEncryptionKey},
		{name: "missing tenant", cfg: Config{EncryptionKey: "k"}, wantErr: ErrMissingTenantID},
		{name: "relative endpoint", cfg: Config{EncryptionKey: "k", TenantID: "t", AuditLogEndpoint: "/logs"}, wantErr: ErrInvalidAuditEndpoint},
		{name: "non-http endpoint", cfg: Config{EncryptionKey: "k", TenantID: "t", AuditLogEndpoint: "ftp://audit.example.com"}, wantErr: ErrInvalidAuditEndpoint},
		{name: "unparseable endpoint", cfg: Config{EncryptionKey: "k", TenantID: "t", AuditLogEndpoint: "http://[::1"}, wantErr: ErrInvalidAuditEndpoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := New(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("New() error = %v, want %v", err, tt.wantErr)
				}
				if v != nil {
					t.Error("New() returned a vault with an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if v == nil {
				t.Fatal("New() = nil")
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	v, err := New(Config{EncryptionKey: "k", TenantID: "t"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if v.config.KeyDerivationIterations != DefaultKeyDerivationIterations {
		t.Errorf("KeyDerivationIterations = %d, want %d", v.config.KeyDerivationIterations, DefaultKeyDerivationIterations)
	}
	if v.config.AuditLogCapacity != DefaultAuditLogCapacity {
		t.Errorf("AuditLogCapacity = %d, want %d", v.config.AuditLogCapacity, DefaultAuditLogCapacity)
	}
	if v.config.HTTPClient == nil || v.config.Logger == nil || v.config.Metrics == nil {
		t.Error("HTTPClient, Logger and Metrics must default to non-nil")
	}
	if v.config.EnableAuditLogging {
		t.Error("EnableAuditLogging defaulted to true")
	}
	if v.forwarder != nil {
		t.Error("forwarder started without an endpoint")
	}
	if v.TenantID() != "t" {
		t.Errorf("TenantID() = %q, want t", v.TenantID())
	}
}

func TestEncryptDecrypt_ColonPayload(t *testing.T) {
	v := newTestVault(t, testKey(t), "tenant-test")

	tok, err := v.EncryptToken("token:with:multiple:colons:and:data", "additional:data:with:colons")
	if err != nil {
		t.Fatalf("EncryptToken() error = %v", err)
	}

	plaintext, ok := v.DecryptToken(tok)
	if !ok || plaintext != "token:with:multiple:colons:and:data" {
		t.Errorf("DecryptToken() = %q, %v", plaintext, ok)
	}
}

func TestEncryptDecrypt_DefaultIterations(t *testing.T) {
	v, err := New(Config{EncryptionKey: testKey(t), TenantID: "tenant-test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	plaintext, ok := v.DecryptToken(mustEncrypt(t, v, "sk_live_51H8"))
	if !ok || plaintext != "sk_live_51H8" {
		t.Errorf("DecryptToken() = %q, %v", plaintext, ok)
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	v := newTestVault(t, testKey(t), "tenant-a")

	inputs := []string{
		"a",
		"exactly-16-bytes",
		`{"nested":"json","with":["quotes","\"escaped\""]}`,
		"unicode ✓ 支付 🔐",
		string(make([]byte, 1024)),
	}
	for _, in := range inputs {
		tok, err := v.EncryptToken(in, "ref")
		if err != nil {
			t.Fatalf("EncryptToken(%q) error = %v", in, err)
		}

		out, ok := v.DecryptToken(tok)
		if !ok || out != in {
			t.Errorf("DecryptToken() = %q, %v, want %q", out, ok, in)
		}
	}
}

func TestEncryptToken_NonDeterministic(t *testing.T) {
	v := newTestVault(t, testKey(t), "tenant-a")

	first := mustEncrypt(t, v, "same-secret")
	second := mustEncrypt(t, v, "same-secret")

	if first.Encrypted == second.Encrypted || first.IV == second.IV || first.Salt == second.Salt {
		t.Errorf("repeated encryption reused output: %+v and %+v", first, second)
	}
}

func TestEncryptToken_EmptyPlaintext(t *testing.T) {
	v := newTestVault(t, testKey(t), "tenant-a")

	tok, err := v.EncryptToken("", "data")
	if !errors.Is(err, ErrEmptyPlaintext) {
		t.Errorf("EncryptToken() error = %v, want %v", err, ErrEmptyPlaintext)
	}
	if tok != nil {
		t.Errorf("EncryptToken() = %+v, want nil", tok)
	}
}

func TestEncryptToken_WireFormat(t *testing.T) {
	clock := newFakeClock()
	v := newTestVault(t, testKey(t), "tenant-a", func(c *Config) { c.Clock = clock.Now })

	tok := mustEncrypt(t, v, "secret")

	if iv, err := hex.DecodeString(tok.IV); err != nil || len(iv) != 16 {
		t.Errorf("IV = %q (err %v), want 16 hex-encoded bytes", tok.IV, err)
	}
	if salt, err := hex.DecodeString(tok.Salt); err != nil || len(salt) != 32 {
		t.Errorf("Salt = %q (err %v), want 32 hex-encoded bytes", tok.Salt, err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(tok.Encrypted)
	if err != nil || len(ciphertext)%16 != 0 {
		t.Errorf("Encrypted = %q (err %v), want base64 whole blocks", tok.Encrypted, err)
	}
	if tok.Timestamp != clock.Now().UnixMilli() {
		t.Errorf("Timestamp = %d, want %d", tok.Timestamp, clock.Now().UnixMilli())
	}

	s, err := tok.MarshalString()
	if err != nil {
		t.Fatalf("MarshalString() error = %v", err)
	}
	for _, field := range []string{`"encrypted":`, `"timestamp":`} {
		if !strings.Contains(s, field) {
			t.Errorf("MarshalString() = %s, missing %s", s, field)
		}
	}

	parsed, err := ParseEncryptedToken(s)
	if err != nil {
		t.Fatalf("ParseEncryptedToken() error = %v", err)
	}
	if *parsed != *tok {
		t.Errorf("ParseEncryptedToken() = %+v, want %+v", parsed, tok)
	}

	plaintext, ok := v.DecryptToken(parsed)
	if !ok || plaintext != "secret" {
		t.Errorf("DecryptToken() = %q, %v", plaintext, ok)
	}
}

func TestParseEncryptedToken_Invalid(t *testing.T) {
	for _, s := range []string{"", "not json", `{"encrypted":"abc"}`, `{"iv":"00","salt":"00"}`} {
		if _, err := ParseEncryptedToken(s); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ParseEncryptedToken(%q) error = %v, want %v", s, err, ErrInvalidToken)
		}
	}
}

func TestDecryptToken_SharedKeyAcrossInstances(t *testing.T) {
	key := testKey(t)
	a := newTestVault(t, key, "tenant-a")
	b := newTestVault(t, key, "tenant-a")

	plaintext, ok := b.DecryptToken(mustEncrypt(t, a, "secret"))
	if !ok || plaintext != "secret" {
		t.Errorf("DecryptToken() = %q, %v", plaintext, ok)
	}
}

func TestDecryptToken_TenantIsolation(t *testing.T) {
	key := testKey(t)
	a := newTestVault(t, key, "tenant-a")
	b := newTestVault(t, key, "tenant-b")

	plaintext, ok := b.DecryptToken(mustEncrypt(t, a, "secret"))
	if ok || plaintext != "" {
		t.Errorf("DecryptToken() = %q, %v, want rejection", plaintext, ok)
	}

	logs := b.AuditLogs(AuditFilter{Action: ActionDecryptFailed})
	if len(logs) != 1 {
		t.Fatalf("len(decrypt_failed logs) = %d, want 1", len(logs))
	}
	if logs[0].Metadata["reason"] != ReasonTenantMismatch {
		t.Errorf("reason = %v, want %s", logs[0].Metadata["reason"], ReasonTenantMismatch)
	}
	if logs[0].Status != AuditFailed || logs[0].TenantID != "tenant-b" {
		t.Errorf("entry = %s/%s, want %s/tenant-b", logs[0].Status, logs[0].TenantID, AuditFailed)
	}
}

func TestDecryptToken_WrongKey(t *testing.T) {
	a := newTestVault(t, testKey(t), "tenant-a")
	b := newTestVault(t, testKey(t), "tenant-a")

	plaintext, ok := b.DecryptToken(mustEncrypt(t, a, "secret"))
	if ok || plaintext != "" {
		t.Errorf("DecryptToken() = %q, %v, want rejection", plaintext, ok)
	}

	// A wrong key almost always breaks the padding; rarely it yields
	// well-padded garbage that fails to parse.
	logs := b.AuditLogs(AuditFilter{})
	if len(logs) != 1 {
		t.Fatalf("len(AuditLogs()) = %d, want 1", len(logs))
	}
	if action := logs[0].Action; action != ActionDecryptFailed && action != ActionDecryptError {
		t.Errorf("Action = %q, want %s or %s", action, ActionDecryptFailed, ActionDecryptError)
	}
}

func TestDecryptToken_Corrupt(t *testing.T) {
	v := newTestVault(t, testKey(t), "tenant-a")
	good := mustEncrypt(t, v, "secret")

	mutate := func(f func(*EncryptedToken)) *EncryptedToken {
		tok := *good
		f(&tok)
		return &tok
	}

	tests := []struct {
		name string
		tok  *EncryptedToken
	}{
		{name: "nil token", tok: nil},
		{name: "bad base64", tok: mutate(func(tok *EncryptedToken) { tok.Encrypted = "!!!" })},
		{name: "bad iv hex", tok: mutate(func(tok *EncryptedToken) { tok.IV = "zz" })},
		{name: "short iv", tok: mutate(func(tok *EncryptedToken) { tok.IV = "0011" })},
		{name: "bad salt hex", tok: mutate(func(tok *EncryptedToken) { tok.Salt = "xyz" })},
		{name: "empty salt", tok: mutate(func(tok *EncryptedToken) { tok.Salt = "" })},
		{name: "partial block", tok: mutate(func(tok *EncryptedToken) {
			tok.Encrypted = base64.StdEncoding.EncodeToString([]byte("short"))
		})},
		{name: "empty ciphertext", tok: mutate(func(tok *EncryptedToken) { tok.Encrypted = "" })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(v.AuditLogs(AuditFilter{Action: ActionDecryptFailed}))

			plaintext, ok := v.DecryptToken(tt.tok)
			if ok || plaintext != "" {
				t.Errorf("DecryptToken() = %q, %v, want rejection", plaintext, ok)
			}

			failed := v.AuditLogs(AuditFilter{Action: ActionDecryptFailed})
			if len(failed) != before+1 {
				t.Fatalf("len(decrypt_failed logs) = %d, want %d", len(failed), before+1)
			}
			if reason, _ := failed[0].Metadata["reason"].(string); reason == "" {
				t.Error("decrypt_failed entry has no reason")
			}
		})
	}
}

func TestDecryptToken_MalformedEnvelope(t *testing.T) {
	v := newTestVault(t, testKey(t), "tenant-a")

	salt, err := randomBytes(saltSize)
	if err != nil {
		t.Fatal(err)
	}
	iv, err := randomBytes(ivSize)
	if err != nil {
		t.Fatal(err)
	}
	key := deriveKey(v.config.EncryptionKey, salt, v.config.KeyDerivationIterations)
	ciphertext, err := encryptCBC(key, iv, []byte("token:not-an-envelope"))
	if err != nil {
		t.Fatalf("encryptCBC() error = %v", err)
	}

	tok := &EncryptedToken{
		Encrypted: base64.StdEncoding.EncodeToString(ciphertext),
		IV:        hex.EncodeToString(iv),
		Salt:      hex.EncodeToString(salt),
	}

	plaintext, ok := v.DecryptToken(tok)
	if ok || plaintext != "" {
		t.Errorf("DecryptToken() = %q, %v, want rejection", plaintext, ok)
	}
	if got := actions(v.AuditLogs(AuditFilter{})); !slices.Equal(got, []string{ActionDecryptError}) {
		t.Errorf("audit actions = %v, want [%s]", got, ActionDecryptError)
	}
}

func TestDecryptToken_RecordsMetrics(t *testing.T) {
	metrics := &recordingMetrics{Metrics: observe.NopMetrics()}
	v := newTestVault(t, testKey(t), "tenant-a", func(c *Config) {
		c.Metrics = metrics
		c.EnableAuditLogging = false
	})

	if _, ok := v.DecryptToken(mustEncrypt(t, v, "secret")); !ok {
		t.Fatal("DecryptToken() failed on a fresh token")
	}
	if _, ok := v.DecryptToken(nil); ok {
		t.Fatal("DecryptToken(nil) succeeded")
	}

	want := []string{"decrypt_success:success", "decrypt_failed:failed"}
	if !slices.Equal(metrics.actions, want) {
		t.Errorf("recorded = %v, want %v", metrics.actions, want)
	}
	if got := v.AuditLogs(AuditFilter{}); len(got) != 0 {
		t.Errorf("AuditLogs() = %v, want none with auditing disabled", got)
	}
}

func TestVault_ConcurrentUse(t *testing.T) {
	v := newTestVault(t, testKey(t), "tenant-a")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := v.EncryptToken("secret", "")
			if err != nil {
				t.Errorf("EncryptToken() error = %v", err)
				return
			}
			if plaintext, ok := v.DecryptToken(tok); !ok || plaintext != "secret" {
				t.Errorf("DecryptToken() = %q, %v", plaintext, ok)
			}
		}()
	}
	wg.Wait()

	if n := len(v.AuditLogs(AuditFilter{Action: ActionDecryptSuccess})); n != 20 {
		t.Errorf("decrypt_success entries = %d, want 20", n)
	}
}
