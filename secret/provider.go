package secret

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// EnvProvider resolves secretref:env:<VAR> from the environment.
type EnvProvider struct {
	// Lookup defaults to os.LookupEnv.
	Lookup LookupFunc
}

// Name returns "env".
func (EnvProvider) Name() string { return "env" }

// Resolve returns the value of the variable named by ref.
func (p EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	lookup := p.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, ok := lookup(ref)
	if !ok {
		return "", fmt.Errorf("%w: env %s", ErrNotFound, ref)
	}
	return v, nil
}

// FileProvider resolves secretref:file:<path> by reading the file, as
// mounted by Docker and Kubernetes secrets. Trailing newlines are trimmed.
type FileProvider struct{}

// Name returns "file".
func (FileProvider) Name() string { return "file" }

// Resolve returns the contents of the file at ref.
func (FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	b, err := os.ReadFile(ref)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: file %s", ErrNotFound, ref)
		}
		return "", fmt.Errorf("secret: read %s: %w", ref, err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

// StaticProvider resolves refs from a fixed map. It is meant for tests and
// for applications that load secrets themselves.
type StaticProvider struct {
	name   string
	values map[string]string
}

// NewStaticProvider creates a provider registered under name.
func NewStaticProvider(name string, values map[string]string) *StaticProvider {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &StaticProvider{name: name, values: copied}
}

// Name returns the provider name.
func (p *StaticProvider) Name() string { return p.name }

// Resolve returns the value stored for ref.
func (p *StaticProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := p.values[ref]
	if !ok {
		return "", fmt.Errorf("%w: %s:%s", ErrNotFound, p.name, ref)
	}
	return v, nil
}
