package vault_test

import (
	"fmt"
	"time"

	"github.com/shora-ai/shora-go/vault"
)

func ExampleVault_EncryptToken() {
	key, err := vault.GenerateEncryptionKey()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	v, err := vault.New(vault.Config{EncryptionKey: key, TenantID: "tenant-test"})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	tok, err := v.EncryptToken("token:with:multiple:colons:and:data", "additional:data:with:colons")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	plaintext, ok := v.DecryptToken(tok)
	fmt.Println(plaintext, ok)
	// Output:
	// token:with:multiple:colons:and:data true
}

func ExampleVault_DecryptToken_tenantIsolation() {
	key, _ := vault.GenerateEncryptionKey()
	a, _ := vault.New(vault.Config{EncryptionKey: key, TenantID: "tenant-a"})
	b, _ := vault.New(vault.Config{EncryptionKey: key, TenantID: "tenant-b", EnableAuditLogging: true})

	tok, _ := a.EncryptToken("secret", "")
	plaintext, ok := b.DecryptToken(tok)
	fmt.Printf("%q %v\n", plaintext, ok)

	logs := b.AuditLogs(vault.AuditFilter{Action: vault.ActionDecryptFailed})
	fmt.Println(logs[0].Metadata["reason"])
	// Output:
	// "" false
	// tenant_mismatch
}

func ExampleVault_ValidatePaymentToken() {
	key, _ := vault.GenerateEncryptionKey()
	v, _ := vault.New(vault.Config{EncryptionKey: key, TenantID: "tenant-a"})

	tok, _ := v.GeneratePaymentToken(vault.PaymentData{Amount: 25, Currency: "USD", UserID: "user-1"})
	res := v.ValidatePaymentToken(tok)
	fmt.Println(res.Valid, res.Data.Currency, res.Data.Amount)

	expired, _ := v.GeneratePaymentTokenWithTTL(vault.PaymentData{Amount: 25, Currency: "USD"}, -time.Minute)
	fmt.Println(v.ValidatePaymentToken(expired).Error)
	// Output:
	// true USD 25
	// Token expired
}
