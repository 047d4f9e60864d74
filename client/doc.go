// Package client is the Shora Core API facade.
//
// A Client resolves the base URL, authenticates every request and runs each
// call through the resilience executor of its endpoint group. Breakers are
// created once per group when the client is built and shared by every call
// to that group for the client's lifetime.
//
// Only idempotent reads are cached, and only when a cache is configured.
// Mutating calls such as CreatePaymentSession always reach the API.
//
// Usage:
//
//	cfg, err := client.ConfigFromEnv(ctx, nil)
//	if err != nil {
//		return err
//	}
//	c, err := client.New(cfg)
//	if err != nil {
//		return err
//	}
//	defer c.Close(ctx)
//
//	session, err := c.CreatePaymentSession(ctx, client.CreatePaymentSessionRequest{
//		Amount:   49.99,
//		Currency: "EUR",
//	})
package client
