package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ProviderConfigError reports an unknown provider or a provider without
// credentials. It is raised before any network call.
type ProviderConfigError struct {
	Provider string
	Reason   string
}

func (e *ProviderConfigError) Error() string {
	return fmt.Sprintf("provider %q: %s", e.Provider, e.Reason)
}

// TransientError is a failure worth retrying: timeouts, connection errors,
// rate limiting and 5xx responses.
type TransientError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// ExhaustedRetriesError is returned when every attempt failed with a
// transient error. It unwraps to the last failure.
type ExhaustedRetriesError struct {
	Provider string
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("%s: giving up after %d attempts: %v", e.Provider, e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.Last
}

// ContentError reports an empty or malformed provider response.
type ContentError struct {
	Provider string
	Reason   string
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("%s returned unusable content: %s", e.Provider, e.Reason)
}

// APIError is a non-retryable error response, such as a bad request or a
// rejected API key.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsRetryable reports whether err was caused by a transient provider
// failure, including after retries were exhausted.
func IsRetryable(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

func transientStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

// statusError classifies a non-200 response.
func statusError(provider ProviderName, code int, body []byte) error {
	msg := apiMessage(body)
	if transientStatus(code) {
		return &TransientError{Provider: string(provider), StatusCode: code, Err: errors.New(msg)}
	}
	return &APIError{Provider: string(provider), StatusCode: code, Message: msg}
}

// transportError classifies a failure to complete the HTTP exchange.
// Cancellation by the caller is passed through unchanged.
func transportError(provider ProviderName, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &TransientError{Provider: string(provider), Err: err}
}

// apiMessage pulls the message out of the error bodies used by Anthropic
// and OpenAI, falling back to the raw body.
func apiMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	if msg == "" {
		msg = "empty error body"
	}
	return msg
}
