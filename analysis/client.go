package analysis

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prashanthpai/readcache/cache"
)

const (
	defaultTimeout = 2 * time.Second
	maxErrBody     = 512
)

// ErrNotFound is returned by operations that address a single remote object
// which does not exist.
var ErrNotFound = errors.New("analysis: not found")

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analysis %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Config is the configuration passed to NewClient.
type Config struct {
	// BaseURL is the root URL of the analysis service, e.g.
	// "http://127.0.0.1:8090". Required.
	BaseURL string
	// Timeout bounds every request. Defaults to 2s.
	Timeout time.Duration
	// HTTPClient can be optionally set to reuse a transport. Its own Timeout
	// is left untouched.
	HTTPClient *http.Client
}

// Client is an HTTP/JSON client for the analysis service. It is safe for
// concurrent use.
type Client struct {
	base    *url.URL
	hc      *http.Client
	timeout time.Duration
}

var _ Service = (*Client)(nil)

// NewClient returns a new Client initialised with the provided config.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("analysis: BaseURL must be set")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("analysis: invalid BaseURL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("analysis: unsupported scheme %q", base.Scheme)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{base: base, hc: hc, timeout: timeout}, nil
}

type statementRequest struct {
	SQL    string `json:"sql"`
	Params any    `json:"params"`
}

type registerRequest struct {
	SQL    string  `json:"sql"`
	Params any     `json:"params"`
	Result *Result `json:"result"`
	TTL    int     `json:"ttl"`
}

type cacheResponse struct {
	Result *Result `json:"result"`
}

// Analyze asks the service to classify and fingerprint a statement.
func (c *Client) Analyze(ctx context.Context, query string, args []driver.NamedValue) (*QueryAnalysis, error) {
	var a QueryAnalysis
	err := c.do(ctx, "analyze", http.MethodPost, "/analyze",
		statementRequest{SQL: query, Params: Params(args)}, &a)
	if err != nil {
		return nil, err
	}

	switch a.OperationType {
	case OperationRead, OperationWrite, OperationUnknown:
	default:
		return nil, fmt.Errorf("analysis analyze: malformed response: operation_type %q", a.OperationType)
	}
	if a.OperationType == OperationRead && a.CacheKey == nil {
		return nil, fmt.Errorf("analysis analyze: malformed response: read without cache_key")
	}

	return &a, nil
}

// Register records a freshly cached result with the service.
func (c *Client) Register(ctx context.Context, query string, args []driver.NamedValue, item *cache.Item, ttl time.Duration) error {
	return c.do(ctx, "register", http.MethodPost, "/register", registerRequest{
		SQL:    query,
		Params: Params(args),
		Result: NewResult(item),
		TTL:    int(ttl / time.Second),
	}, nil)
}

// Get fetches the result the service holds for a fingerprint. A missing
// entry is reported as (nil, false, nil).
func (c *Client) Get(ctx context.Context, fingerprint string) (*Result, bool, error) {
	var resp cacheResponse
	err := c.do(ctx, "get", http.MethodGet, "/cache/"+url.PathEscape(fingerprint), nil, &resp)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if resp.Result == nil {
		return nil, false, nil
	}
	return resp.Result, true, nil
}

// Invalidate tells the service that a write statement was executed.
func (c *Client) Invalidate(ctx context.Context, query string, args []driver.NamedValue) error {
	return c.do(ctx, "invalidate", http.MethodPost, "/invalidate",
		statementRequest{SQL: query, Params: Params(args)}, nil)
}

// ClearTable drops every cached result the service tracks for a table.
func (c *Client) ClearTable(ctx context.Context, table string) error {
	if table == "" {
		return fmt.Errorf("analysis clear: empty table name")
	}
	return c.do(ctx, "clear", http.MethodDelete, "/table/"+url.PathEscape(table), nil, nil)
}

// Stats returns the service's statistics object as decoded JSON.
func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	out := make(map[string]any)
	if err := c.do(ctx, "stats", http.MethodGet, "/stats", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("analysis %s: encoding request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("analysis %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("analysis %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && method == http.MethodGet {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("analysis %s: %w", op, ErrNotFound)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("analysis %s: malformed response: %w", op, err)
	}

	return nil
}
