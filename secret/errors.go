package secret

import "errors"

var (
	// ErrMissingEnv is returned when a ${VAR} reference names an unset
	// variable.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrProviderNotRegistered is returned for a secretref naming an unknown
	// provider.
	ErrProviderNotRegistered = errors.New("secret: provider is not registered")

	// ErrNotFound is returned by a provider that has no value for a ref.
	ErrNotFound = errors.New("secret: not found")

	// ErrEmptySecret is returned by a strict Resolver when a provider
	// resolves to the empty string.
	ErrEmptySecret = errors.New("secret: provider returned empty value")
)
