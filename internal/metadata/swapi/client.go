// Package swapi is a client for the Star Wars API, the secondary source of
// canonical attributes used for enrichment.
package swapi

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

	"github.com/holocronapp/holocron-server/internal/ratelimit"
)

const (
	defaultBaseURL = "https://swapi.dev/api"
	defaultTimeout = 5 * time.Second
	defaultRPS     = 5.0
	defaultBurst   = 10

	// maxBodySize caps how much of a response is read.
	maxBodySize = 4 << 20

	probeID = "1"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration // applied to every request
	RPS     float64       // per endpoint
	Burst   int
}

// Client is a rate-limited SWAPI client. It never retries; failure policy
// belongs to the caller.
type Client struct {
	http    *http.Client
	baseURL string
	timeout time.Duration
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// New creates a SWAPI client. Zero config fields fall back to defaults.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RPS <= 0 {
		cfg.RPS = defaultRPS
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}

	return &Client{
		http:    &http.Client{},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		limiter: ratelimit.New(cfg.RPS, cfg.Burst),
		logger:  logger,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Search returns the first page of records in endpoint whose name matches
// name. A 404 yields an empty result, not an error.
func (c *Client) Search(ctx context.Context, endpoint Endpoint, name string) ([]Record, error) {
	page, err := c.search(ctx, "search", endpoint, name, 0)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return page.Results, nil
}

// SearchPage returns one page of search results including pagination links.
// An empty query lists the endpoint.
func (c *Client) SearchPage(ctx context.Context, endpoint Endpoint, query string, page int) (*Page, error) {
	p, err := c.search(ctx, "searchPage", endpoint, query, page)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &Page{Results: []Record{}}, nil
		}
		return nil, err
	}
	return p, nil
}

func (c *Client) search(ctx context.Context, op string, endpoint Endpoint, query string, page int) (*Page, error) {
	if !endpoint.Valid() {
		return nil, wrapError(op, endpoint, query, fmt.Errorf("unknown endpoint %q", endpoint))
	}

	params := url.Values{}
	if query != "" {
		params.Set("search", query)
	}
	if page > 1 {
		params.Set("page", strconv.Itoa(page))
	}

	body, err := c.doRequest(ctx, endpoint, "/"+string(endpoint)+"/", params)
	if err != nil {
		return nil, wrapError(op, endpoint, query, err)
	}

	var resp Page
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapError(op, endpoint, query, fmt.Errorf("%w: %v", ErrDecode, err))
	}
	if resp.Results == nil {
		resp.Results = []Record{}
	}
	return &resp, nil
}

// Get fetches a single record by id. A 404 yields ErrNotFound.
func (c *Client) Get(ctx context.Context, endpoint Endpoint, id string) (Record, error) {
	if !endpoint.Valid() || !validID(id) {
		return nil, wrapError("get", endpoint, id, ErrInvalidReference)
	}

	body, err := c.doRequest(ctx, endpoint, "/"+string(endpoint)+"/"+id+"/", nil)
	if err != nil {
		return nil, wrapError("get", endpoint, id, err)
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, wrapError("get", endpoint, id, fmt.Errorf("%w: %v", ErrDecode, err))
	}
	if rec == nil {
		return nil, wrapError("get", endpoint, id, fmt.Errorf("%w: empty body", ErrDecode))
	}
	return rec, nil
}

// GetByReference fetches the record a reference URL points to.
func (c *Client) GetByReference(ctx context.Context, ref string) (Record, error) {
	r, err := ParseReference(ref)
	if err != nil {
		return nil, wrapError("get", "", ref, err)
	}
	return c.Get(ctx, r.Endpoint, r.ID)
}

// Probe issues a request for a known-good record and reports whether SWAPI answered.
func (c *Client) Probe(ctx context.Context) error {
	if _, err := c.Get(ctx, People, probeID); err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	return nil
}

// doRequest executes a GET and logs failures other than not-found.
func (c *Client) doRequest(ctx context.Context, endpoint Endpoint, path string, query url.Values) ([]byte, error) {
	body, err := c.do(ctx, endpoint, path, query)
	if err != nil && !errors.Is(err, ErrNotFound) && ctx.Err() == nil {
		c.logger.Warn("swapi request failed",
			"endpoint", endpoint,
			"path", path,
			"error", err,
		)
	}
	return body, err
}

// do executes a GET with rate limiting and the per-request timeout.
func (c *Client) do(ctx context.Context, endpoint Endpoint, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx, string(endpoint)); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Holocron/1.0")

	c.logger.Debug("swapi request", "endpoint", endpoint, "path", path, "query", query.Get("search"))

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
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
	default:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

// classify maps a transport error onto a sentinel. A caller that gave up is
// reported as such rather than as a SWAPI fault.
func (c *Client) classify(parent, reqCtx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
