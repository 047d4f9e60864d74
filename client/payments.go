package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shora-ai/shora-go/cache"
)

const paymentSessionsPath = "/v1/payments/sessions"

// CreatePaymentSessionRequest opens a payment session.
type CreatePaymentSessionRequest struct {
	Amount      float64           `json:"amount"`
	Currency    string            `json:"currency"`
	UserID      string            `json:"userId,omitempty"`
	AgentID     string            `json:"agentId,omitempty"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Validate checks the fields the API always rejects.
func (r CreatePaymentSessionRequest) Validate() error {
	if r.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if len(strings.TrimSpace(r.Currency)) != 3 {
		return fmt.Errorf("%w: currency must be an ISO 4217 code", ErrInvalidRequest)
	}
	return nil
}

// PaymentSession is a payment session as returned by the API.
type PaymentSession struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Amount    float64           `json:"amount"`
	Currency  string            `json:"currency"`
	TenantID  string            `json:"tenantId"`
	UserID    string            `json:"userId,omitempty"`
	AgentID   string            `json:"agentId,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// CreatePaymentSession opens a new session. It is never cached: every call
// creates a distinct session.
func (c *Client) CreatePaymentSession(ctx context.Context, req CreatePaymentSessionRequest) (*PaymentSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var session PaymentSession
	if err := c.call(ctx, GroupPayments, "create_session", http.MethodPost, paymentSessionsPath, req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetPaymentSession fetches a session. With a cache configured, the
// response is served from it until the policy TTL expires.
func (c *Client) GetPaymentSession(ctx context.Context, id string) (*PaymentSession, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty session id", ErrInvalidRequest)
	}
	path := paymentSessionsPath + "/" + url.PathEscape(id)

	fetch := func(ctx context.Context) ([]byte, error) {
		return c.send(ctx, GroupPayments, "get_session", http.MethodGet, path, nil)
	}
	var (
		data []byte
		err  error
	)
	if c.readThrough != nil {
		data, err = c.readThrough.Get(ctx, http.MethodGet, c.sessionKey(id), 0, fetch)
	} else {
		data, err = fetch(ctx)
	}
	if err != nil {
		return nil, err
	}

	var session PaymentSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("client: decode response: %w", err)
	}
	return &session, nil
}

// CancelPaymentSession cancels a session and drops any cached copy of it.
func (c *Client) CancelPaymentSession(ctx context.Context, id string) (*PaymentSession, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty session id", ErrInvalidRequest)
	}
	path := paymentSessionsPath + "/" + url.PathEscape(id) + "/cancel"

	var session PaymentSession
	err := c.call(ctx, GroupPayments, "cancel_session", http.MethodPost, path, nil, &session)
	if c.readThrough != nil {
		// Invalidate even on failure; the cancel may have been applied.
		_ = c.readThrough.Invalidate(ctx, c.sessionKey(id))
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) sessionKey(id string) string {
	return cache.Key(c.config.TenantID, string(GroupPayments), "session", id)
}
