package secret

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
)

const refPrefix = "secretref:"

var inlineSecretRefPattern = regexp.MustCompile(`secretref:([^:\s]+):([^\s]+)`) // provider:ref

// Resolver expands environment variables in configuration values and then
// resolves any secret references they contain.
//
// A Resolver is safe for concurrent use once all providers are registered.
type Resolver struct {
	providers map[string]Provider
	strict    bool
	lookup    LookupFunc
}

// NewResolver creates a resolver. With strict set, a provider resolving to
// the empty string is an error.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{
		providers: make(map[string]Provider),
		strict:    strict,
		lookup:    os.LookupEnv,
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// DefaultResolver returns a strict resolver with the env and file providers.
func DefaultResolver() *Resolver {
	return NewResolver(true, EnvProvider{}, FileProvider{})
}

// Register adds provider, replacing any provider with the same name.
func (r *Resolver) Register(provider Provider) {
	if provider == nil {
		return
	}
	r.providers[provider.Name()] = provider
}

// WithLookup returns a copy of r that expands ${VAR} with lookup instead of
// the process environment.
func (r *Resolver) WithLookup(lookup LookupFunc) *Resolver {
	clone := *r
	clone.lookup = lookup
	return &clone
}

// ResolveValue expands environment variables in value, then resolves a
// whole-value or inline secret reference.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandStrict(value, r.lookup)
	if err != nil {
		return "", err
	}

	if providerName, ref, ok := ParseSecretRef(expanded); ok {
		return r.resolveSingle(ctx, providerName, ref)
	}
	return r.resolveInline(ctx, expanded)
}

// ResolveMap resolves each value in input.
func (r *Resolver) ResolveMap(ctx context.Context, input map[string]string) (map[string]string, error) {
	if input == nil {
		return nil, nil
	}
	out := make(map[string]string, len(input))
	for k, v := range input {
		resolved, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

// ParseSecretRef parses a full secret reference of the form:
//
//	secretref:<provider>:<ref>
func ParseSecretRef(value string) (provider string, ref string, ok bool) {
	if !strings.HasPrefix(value, refPrefix) {
		return "", "", false
	}
	provider, ref, found := strings.Cut(strings.TrimPrefix(value, refPrefix), ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

func (r *Resolver) resolveSingle(ctx context.Context, providerName string, ref string) (string, error) {
	provider, ok := r.providers[providerName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrProviderNotRegistered, providerName)
	}
	resolved, err := provider.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && resolved == "" {
		return "", fmt.Errorf("%w: %q", ErrEmptySecret, providerName)
	}
	return resolved, nil
}

func (r *Resolver) resolveInline(ctx context.Context, value string) (string, error) {
	matches := inlineSecretRefPattern.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return value, nil
	}

	out := value
	// Replace from the end so earlier match indexes stay valid.
	for i := len(matches) - 1; i >= 0; i-- {
		match := matches[i]
		resolved, err := r.resolveSingle(ctx, out[match[2]:match[3]], out[match[4]:match[5]])
		if err != nil {
			return "", err
		}
		out = out[:match[0]] + resolved + out[match[1]:]
	}
	return out, nil
}
