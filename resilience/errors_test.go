package resilience

import (
	"errors"
	"strings"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrCircuitOpen", ErrCircuitOpen},
		{"ErrMaxRetriesExceeded", ErrMaxRetriesExceeded},
		{"ErrTimeout", ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatalf("%s is nil", tt.name)
			}
			if !strings.HasPrefix(tt.err.Error(), "resilience: ") {
				t.Errorf("%s message %q lacks package prefix", tt.name, tt.err.Error())
			}
		})
	}
}

func TestRetryError(t *testing.T) {
	err := &RetryError{Attempts: 4, Last: errTest}

	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Error("RetryError should match ErrMaxRetriesExceeded")
	}
	if !errors.Is(err, errTest) {
		t.Error("RetryError should unwrap to the last error")
	}
	if errors.Is(err, ErrCircuitOpen) {
		t.Error("RetryError should not match ErrCircuitOpen")
	}
	if !strings.Contains(err.Error(), "4 attempts") {
		t.Errorf("Error() = %q, want attempt count", err.Error())
	}
}
