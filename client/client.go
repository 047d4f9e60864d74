package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	shora "github.com/shora-ai/shora-go"
	"github.com/shora-ai/shora-go/auth"
	"github.com/shora-ai/shora-go/cache"
	"github.com/shora-ai/shora-go/health"
	"github.com/shora-ai/shora-go/observe"
	"github.com/shora-ai/shora-go/resilience"
	"github.com/shora-ai/shora-go/vault"
)

// Group is an endpoint group. Each group owns one circuit breaker.
type Group string

const (
	GroupPayments Group = "payments"
	GroupMandates Group = "mandates"
	GroupTokens   Group = "tokens"
	GroupAudit    Group = "audit"
)

// Groups returns every endpoint group.
func Groups() []Group {
	return []Group{GroupPayments, GroupMandates, GroupTokens, GroupAudit}
}

// HeaderRequestID carries the per-call request ID. Retries of one call
// reuse it.
const HeaderRequestID = "X-Request-ID"

const (
	maxResponseBytes     = 4 << 20
	healthCheckTimeout   = 5 * time.Second
	healthCheckName      = "api"
	breakerCheckerPrefix = "breaker."
)

type endpoint struct {
	breaker  *resilience.CircuitBreaker
	executor *resilience.Executor
}

// Client calls the Shora Core API.
//
// A Client is safe for concurrent use. Create one per tenant and reuse it.
type Client struct {
	config  Config
	baseURL string
	http    *http.Client
	logger  observe.Logger
	metrics observe.Metrics
	mw      *observe.Middleware

	endpoints   map[Group]*endpoint
	readThrough *cache.ReadThrough
	vault       *vault.Vault
	health      *health.Aggregator
}

// New creates a client. It fails on missing credentials or tenant, an
// unknown environment, an invalid base URL, a bearer token issued for a
// different tenant, or invalid vault settings.
func New(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	baseURL, err := ResolveBaseURL(config.BaseURL, config.Environment, config.LookupEnv)
	if err != nil {
		return nil, err
	}

	creds := auth.FromKey(config.APIKey)
	if bearer, ok := creds.(*auth.BearerToken); ok && bearer.Claims() != nil {
		if err := bearer.Claims().CheckTenant(config.TenantID); err != nil {
			return nil, err
		}
	}

	tracer := observe.NopTracer()
	metrics := observe.NopMetrics()
	logger := observe.NopLogger()
	if config.Observer != nil {
		tracer = observe.NewTracer(config.Observer.Tracer())
		if metrics, err = observe.NewMetrics(config.Observer.Meter()); err != nil {
			return nil, fmt.Errorf("client: metrics: %w", err)
		}
		logger = config.Observer.Logger()
	}
	if config.Logger != nil {
		logger = config.Logger
	}
	baseLogger := logger
	logger = logger.With(
		observe.Field{Key: "component", Value: "client"},
		observe.Field{Key: "tenant_id", Value: config.TenantID},
	)

	httpClient := *config.HTTPClient
	httpClient.Transport = &auth.Transport{
		Base:        config.HTTPClient.Transport,
		Credentials: creds,
		TenantID:    config.TenantID,
		UserAgent:   userAgent(config.UserAgent),
	}

	c := &Client{
		config:    config,
		baseURL:   baseURL,
		http:      &httpClient,
		logger:    logger,
		metrics:   metrics,
		mw:        observe.NewMiddleware(tracer, metrics, logger),
		endpoints: make(map[Group]*endpoint, len(Groups())),
		health:    health.NewAggregator(),
	}

	for _, g := range Groups() {
		ep := c.newEndpoint(g)
		c.endpoints[g] = ep
		c.health.Register(breakerCheckerPrefix+string(g), health.NewBreakerChecker(ep.breaker))
	}

	pingClient := httpClient
	pingClient.Timeout = healthCheckTimeout
	c.health.Register(healthCheckName, health.NewRemoteChecker(health.RemoteCheckerConfig{
		URL:    baseURL + "/health",
		Client: &pingClient,
	}))

	if config.Cache != nil {
		if c.readThrough, err = cache.NewReadThrough(config.Cache, config.CachePolicy); err != nil {
			return nil, err
		}
	}

	if config.EncryptionKey != "" {
		c.vault, err = vault.New(vault.Config{
			EncryptionKey:      config.EncryptionKey,
			TenantID:           config.TenantID,
			AuditLogEndpoint:   config.AuditLogEndpoint,
			EnableAuditLogging: config.EnableAuditLogging,
			Logger:             baseLogger,
			Metrics:            metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("client: vault: %w", err)
		}
	}

	return c, nil
}

func userAgent(extra string) string {
	ua := "shora-go/" + shora.Version
	if extra = strings.TrimSpace(extra); extra != "" {
		ua += " " + extra
	}
	return ua
}

// newEndpoint builds the breaker and executor for g, wiring their hooks to
// the client's metrics and logger.
func (c *Client) newEndpoint(g Group) *endpoint {
	group := string(g)
	groupLogger := c.logger.With(observe.Field{Key: "group", Value: group})

	bc := c.config.Breaker
	onStateChange := bc.OnStateChange
	bc.OnStateChange = func(from, to resilience.State) {
		ctx := context.Background()
		c.metrics.RecordCircuitTransition(ctx, group, from.String(), to.String())
		groupLogger.Warn(ctx, "circuit state changed",
			observe.Field{Key: "from", Value: from.String()},
			observe.Field{Key: "to", Value: to.String()},
		)
		if onStateChange != nil {
			onStateChange(from, to)
		}
	}
	if bc.IsFailure == nil {
		bc.IsFailure = countsAsFailure
	}
	if bc.IsExcluded == nil {
		bc.IsExcluded = callerAborted
	}
	breaker := resilience.NewCircuitBreaker(bc)

	rc := c.config.Retry
	retryIf := rc.RetryIf
	if retryIf == nil {
		retryIf = resilience.DefaultRetryIf
	}
	rc.RetryIf = func(err error) bool {
		return retryable(err) && retryIf(err)
	}
	onRetry := rc.OnRetry
	rc.OnRetry = func(attempt int, err error, delay time.Duration) {
		ctx := context.Background()
		c.metrics.RecordRetry(ctx, group, attempt)
		groupLogger.Warn(ctx, "retrying call",
			observe.Field{Key: "attempt", Value: attempt},
			observe.Field{Key: "delay_ms", Value: delay.Milliseconds()},
			observe.Field{Key: "error", Value: err.Error()},
		)
		if onRetry != nil {
			onRetry(attempt, err, delay)
		}
	}

	return &endpoint{
		breaker: breaker,
		executor: resilience.NewExecutor(
			resilience.WithRetry(resilience.NewRetry(rc)),
			resilience.WithCircuitBreaker(breaker),
			resilience.WithTimeout(c.config.Timeout),
		),
	}
}

// retryable reports whether a failed attempt may succeed when repeated.
// Client errors other than 408 and 429, credential errors and malformed
// requests are final.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, auth.ErrMissingCredentials) || errors.Is(err, auth.ErrTokenExpired) {
		return false
	}
	return true
}

// countsAsFailure reports whether err says something about the health of
// the API. Rejections of the caller's own request do not, and neither does
// a call the caller gave up on.
func countsAsFailure(err error) bool {
	return retryable(err) && !callerAborted(err)
}

// callerAborted reports whether the call ended because the caller's context
// was cancelled or ran out of time. The per-attempt timeout surfaces as
// resilience.ErrTimeout, so a context.DeadlineExceeded reaching the breaker
// belongs to the caller.
func callerAborted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// BaseURL returns the resolved API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// TenantID returns the configured tenant.
func (c *Client) TenantID() string {
	return c.config.TenantID
}

// Breaker returns the circuit breaker of group, or nil for an unknown group.
func (c *Client) Breaker(group Group) *resilience.CircuitBreaker {
	ep, ok := c.endpoints[group]
	if !ok {
		return nil
	}
	return ep.breaker
}

// ResetBreakers closes every group's circuit.
func (c *Client) ResetBreakers() {
	for _, ep := range c.endpoints {
		ep.breaker.Reset()
	}
}

// Vault returns the token vault, or ErrVaultDisabled when no encryption key
// was configured.
func (c *Client) Vault() (*vault.Vault, error) {
	if c.vault == nil {
		return nil, ErrVaultDisabled
	}
	return c.vault, nil
}

// Health checks every breaker and pings the API.
func (c *Client) Health(ctx context.Context) health.Report {
	return c.health.Report(ctx)
}

// Close waits for pending audit forwards until ctx is done.
func (c *Client) Close(ctx context.Context) error {
	if c.vault == nil {
		return nil
	}
	return c.vault.Close(ctx)
}

// Do sends in as JSON to path and decodes a 2xx response into out. A nil
// in sends no body; a nil out discards the response. Non-2xx responses
// return *APIError.
//
// The call runs through the executor of group: retries, the group's
// breaker and a per-attempt timeout.
func (c *Client) Do(ctx context.Context, group Group, method, path string, in, out any) error {
	return c.call(ctx, group, "", method, path, in, out)
}

func (c *Client) call(ctx context.Context, group Group, operation, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
	}

	data, err := c.send(ctx, group, operation, method, path, body)
	if err != nil {
		return err
	}
	return decode(data, out)
}

func decode(data []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

// send performs one logical call and returns the raw 2xx body.
func (c *Client) send(ctx context.Context, group Group, operation, method, path string, body []byte) ([]byte, error) {
	ep, ok := c.endpoints[group]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGroup, group)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	metaPath, _, _ := strings.Cut(path, "?")

	meta := observe.CallMeta{
		Group:     string(group),
		Operation: operation,
		Method:    method,
		Path:      metaPath,
		TenantID:  c.config.TenantID,
	}
	requestID := uuid.NewString()

	var data []byte
	call := c.mw.Wrap(func(ctx context.Context, _ observe.CallMeta) error {
		var err error
		data, err = resilience.Do(ctx, ep.executor, func(ctx context.Context) ([]byte, error) {
			return c.attempt(ctx, group, method, path, requestID, body)
		})
		return err
	})
	if err := call(ctx, meta); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) attempt(ctx context.Context, group Group, method, path, requestID string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &permanentError{err: fmt.Errorf("client: build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(HeaderRequestID, requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("client: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(group, resp.StatusCode, requestID, data)
	}
	return data, nil
}
