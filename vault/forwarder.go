package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/shora-ai/shora-go/observe"
)

// SignatureHeader carries the hex HMAC-SHA256 of a forwarded audit entry.
const SignatureHeader = "X-Shora-Signature"

// forwarder posts audit entries to a remote sink without blocking the caller.
type forwarder struct {
	endpoint string
	client   *http.Client
	logger   observe.Logger
	sign     func([]byte) string

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func newForwarder(endpoint string, client *http.Client, logger observe.Logger, sign func([]byte) string) *forwarder {
	ctx, cancel := context.WithCancel(context.Background())
	return &forwarder{
		endpoint: endpoint,
		client:   client,
		logger:   logger,
		sign:     sign,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (f *forwarder) send(entry AuditLogEntry) {
	body, err := json.Marshal(entry)
	if err != nil {
		f.logger.Warn(f.ctx, "audit log forwarding failed",
			observe.Field{Key: "action", Value: entry.Action},
			observe.Field{Key: "error", Value: err},
		)
		return
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()
		if err := f.post(body); err != nil {
			f.logger.Warn(f.ctx, "audit log forwarding failed",
				observe.Field{Key: "endpoint", Value: f.endpoint},
				observe.Field{Key: "action", Value: entry.Action},
				observe.Field{Key: "error", Value: err},
			)
		}
	}()
}

func (f *forwarder) post(body []byte) error {
	req, err := http.NewRequestWithContext(f.ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, f.sign(body))

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("audit sink returned status %d", resp.StatusCode)
	}
	return nil
}

func (f *forwarder) close(ctx context.Context) error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		f.cancel()
		return nil
	case <-ctx.Done():
		f.cancel()
		return ctx.Err()
	}
}
