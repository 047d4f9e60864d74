package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRemoteChecker(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		degraded   time.Duration
		wantStatus Status
	}{
		{
			name:       "healthy",
			handler:    func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) },
			wantStatus: StatusHealthy,
		},
		{
			name: "slow",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				time.Sleep(30 * time.Millisecond)
				w.WriteHeader(http.StatusOK)
			},
			degraded:   10 * time.Millisecond,
			wantStatus: StatusDegraded,
		},
		{
			name:       "server error",
			handler:    func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
			wantStatus: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewRemoteChecker(RemoteCheckerConfig{URL: srv.URL, DegradedLatency: tt.degraded})
			r := c.Check(context.Background())
			if r.Status != tt.wantStatus {
				t.Fatalf("Status = %v, want %v (%s)", r.Status, tt.wantStatus, r.Message)
			}
			if r.Ping == nil || r.Ping.Latency <= 0 {
				t.Errorf("Ping = %+v, want a measured latency", r.Ping)
			}
		})
	}
}

func TestRemoteChecker_ErrorPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := NewRemoteChecker(RemoteCheckerConfig{URL: srv.URL}).Check(context.Background())
	if !errors.Is(r.Err, ErrCheckFailed) {
		t.Errorf("Err = %v, want ErrCheckFailed", r.Err)
	}
	if r.Ping == nil || r.Ping.StatusCode != http.StatusBadGateway || r.Ping.URL != srv.URL {
		t.Errorf("Ping = %+v, want status 502 from %s", r.Ping, srv.URL)
	}
	if r.Breaker != nil {
		t.Errorf("Breaker = %+v, want nil", r.Breaker)
	}
}

func TestRemoteChecker_Decorate(t *testing.T) {
	gotKey := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey <- r.Header.Get("X-API-Key")
	}))
	defer srv.Close()

	c := NewRemoteChecker(RemoteCheckerConfig{
		URL:      srv.URL,
		Decorate: func(r *http.Request) { r.Header.Set("X-API-Key", "sk_test") },
	})
	if r := c.Check(context.Background()); r.Status != StatusHealthy {
		t.Fatalf("Status = %v", r.Status)
	}
	if key := <-gotKey; key != "sk_test" {
		t.Errorf("X-API-Key = %q", key)
	}
}

func TestRemoteChecker_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r := NewRemoteChecker(RemoteCheckerConfig{URL: url}).Check(context.Background())
	if r.Status != StatusUnhealthy || r.Err == nil || r.Available() {
		t.Fatalf("unreachable endpoint: %+v", r)
	}
	if r.Ping != nil {
		t.Errorf("Ping = %+v, want nil without a response", r.Ping)
	}
	if NewRemoteChecker(RemoteCheckerConfig{URL: "://bad"}).Check(context.Background()).Status != StatusUnhealthy {
		t.Error("invalid URL should be unhealthy")
	}
}
