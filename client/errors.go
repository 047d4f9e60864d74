package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for client configuration and calls.
var (
	ErrMissingAPIKey      = errors.New("client: missing API key")
	ErrMissingTenantID    = errors.New("client: missing tenant ID")
	ErrUnknownEnvironment = errors.New("client: unknown environment")
	ErrInvalidBaseURL     = errors.New("client: invalid base URL")
	ErrUnknownGroup       = errors.New("client: unknown endpoint group")
	ErrVaultDisabled      = errors.New("client: vault not configured")
	ErrInvalidRequest     = errors.New("client: invalid request")
)

// permanentError marks a failure that repeating the attempt cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// APIError is returned for a non-2xx response.
type APIError struct {
	StatusCode int
	Group      Group
	RequestID  string

	// Message is the server's error message, when the body carries one.
	Message string

	// Body is the raw response body.
	Body string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("client: %s: %d %s", e.Group, e.StatusCode, msg)
}

// Temporary reports whether the request may succeed if repeated: server
// errors, 408 and 429.
func (e *APIError) Temporary() bool {
	switch {
	case e.StatusCode >= 500:
		return true
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// IsNotFound reports whether err is a 404 APIError.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func newAPIError(group Group, status int, requestID string, body []byte) *APIError {
	e := &APIError{StatusCode: status, Group: group, RequestID: requestID, Body: string(body)}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		e.Message = payload.Message
		if e.Message == "" {
			e.Message = payload.Error
		}
	}
	return e
}
