// Package databank is a client for the Star Wars Databank, the primary
// source of entity names, descriptions and images.
package databank

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/holocronapp/holocron-server/internal/domain"
)

const (
	defaultBaseURL = "https://starwars-databank-server.vercel.app/api/v1"
	defaultTimeout = 10 * time.Second

	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 30 * time.Second

	maxBodySize = 4 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	DefaultLimit int

	// BreakerFailures consecutive failures open the breaker for BreakerTimeout.
	BreakerFailures int
	BreakerTimeout  time.Duration
}

// Client fetches entities from the databank behind a circuit breaker.
type Client struct {
	http         *http.Client
	baseURL      string
	timeout      time.Duration
	defaultLimit int
	breaker      *gobreaker.CircuitBreaker
	logger       *slog.Logger
}

// New creates a databank client. Zero config fields fall back to defaults.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = defaultBreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = defaultBreakerTimeout
	}

	c := &Client{
		http:         &http.Client{},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		timeout:      cfg.Timeout,
		defaultLimit: cfg.DefaultLimit,
		logger:       logger,
	}

	failures := uint32(cfg.BreakerFailures)
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "databank",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return !countsAsFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("databank circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return c
}

// DefaultLimit is the page size used when a listing omits one.
func (c *Client) DefaultLimit() int {
	return c.defaultLimit
}

// BreakerState reports the circuit breaker state: closed, half-open or open.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// ListEntities returns one page of a category. Zero params take the
// databank defaults.
func (c *Client) ListEntities(ctx context.Context, category domain.Category, params ListParams) (*domain.EntityPage, error) {
	if !category.Valid() {
		return nil, wrapError("list", category, "", fmt.Errorf("%w: unknown category %q", ErrInvalidRequest, category))
	}
	params = params.WithDefaults(c.defaultLimit)

	query := url.Values{}
	query.Set("page", strconv.Itoa(params.Page))
	query.Set("limit", strconv.Itoa(params.Limit))
	if params.Search != "" {
		query.Set("search", params.Search)
	}

	body, err := c.fetch(ctx, "/"+string(category), query)
	if err != nil {
		return nil, wrapError("list", category, "", err)
	}

	var raw rawPage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, wrapError("list", category, "", fmt.Errorf("%w: %v", ErrDecode, err))
	}

	page := &domain.EntityPage{
		Info: raw.Info,
		Data: make([]domain.BaseEntity, 0, len(raw.Data)),
	}
	if page.Info.Page == 0 {
		page.Info.Page = params.Page
	}
	if page.Info.Limit == 0 {
		page.Info.Limit = params.Limit
	}
	for _, r := range raw.Data {
		page.Data = append(page.Data, r.toDomain(category))
	}
	return page, nil
}

// GetEntity fetches a single entity by databank id.
func (c *Client) GetEntity(ctx context.Context, category domain.Category, id string) (*domain.BaseEntity, error) {
	id = strings.TrimSpace(id)
	if !category.Valid() || id == "" || strings.Contains(id, "/") {
		return nil, wrapError("get", category, id, ErrInvalidRequest)
	}

	body, err := c.fetch(ctx, "/"+string(category)+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, wrapError("get", category, id, err)
	}

	var raw rawEntity
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, wrapError("get", category, id, fmt.Errorf("%w: %v", ErrDecode, err))
	}
	if raw.ID == "" {
		return nil, wrapError("get", category, id, ErrNotFound)
	}
	e := raw.toDomain(category)
	return &e, nil
}

// fetch runs a request through the breaker.
func (c *Client) fetch(ctx context.Context, path string, query url.Values) ([]byte, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		return c.do(ctx, path, query)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrUnavailable
	}
	if err != nil {
		if countsAsFailure(err) && ctx.Err() == nil {
			c.logger.Error("databank request failed", "path", path, "error", err)
		}
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Client) do(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Holocron/1.0")

	c.logger.Debug("databank request", "path", path, "query", query.Encode())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.classify(ctx, reqCtx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, c.classify(ctx, reqCtx, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusBadRequest:
		return nil, ErrBadRequest
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
	default:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

func (c *Client) classify(parent, reqCtx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
