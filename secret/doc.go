// Package secret resolves credentials referenced from configuration values.
//
// Two mechanisms are supported:
//   - Strict environment expansion: ${VAR} must be set, $$ is a literal $.
//   - Secret references of the form secretref:<provider>:<ref>, resolved by
//     a registered Provider. A reference may be the whole value or appear
//     inline, as in "Bearer secretref:file:/run/secrets/shora_token".
//
// The client package passes SHORA_API_KEY and SHORA_ENCRYPTION_KEY through a
// Resolver, so deployments can keep the raw key out of the process
// environment:
//
//	SHORA_ENCRYPTION_KEY=secretref:file:/run/secrets/shora_encryption_key
//
// Providers must never log resolved values.
package secret
