package cli

import (
	"context"
	"encoding/json/v2"
	"encoding/json/jsontext"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxBodyBytes caps how much of a response the CLI will read.
const maxBodyBytes = 8 << 20

// envelope mirrors the server's response envelope.
type envelope struct {
	Version int            `json:"v"`
	Success bool           `json:"success"`
	Data    jsontext.Value `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Details any            `json:"details,omitempty"`
}

// APIError is a failure reported by the server inside the envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s, HTTP %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// client is a minimal envelope-aware HTTP client for the Holocron API.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(server string, timeout time.Duration) *client {
	return &client{
		baseURL: strings.TrimRight(server, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *client) get(ctx context.Context, path string, query url.Values) (jsontext.Value, error) {
	return c.do(ctx, http.MethodGet, path, query)
}

func (c *client) post(ctx context.Context, path string) (jsontext.Value, error) {
	return c.do(ctx, http.MethodPost, path, nil)
}

// do sends one request and returns the envelope's data member.
func (c *client) do(ctx context.Context, method, path string, query url.Values) (jsontext.Value, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Status: resp.StatusCode, Code: env.Code, Message: msg, Details: env.Details}
	}

	return env.Data, nil
}

// IsAPIError reports whether err came from the server rather than the transport.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
