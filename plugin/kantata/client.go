// Package kantata is the adapter for the Kantata OX (Mavenlink) API: a
// rate-limited JSON client plus the paginated time-entry fetch and the
// user/workspace/story name lookups built on top of it.
package kantata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	errs "github.com/timeclerk/timeclerk/internal/errors"
)

const (
	defaultTimeout = 30 * time.Second

	// Kantata allows a sustained request rate per token; stay under it.
	defaultRateLimit = rate.Limit(10)
	defaultRateBurst = 20

	defaultNameCacheSize = 1000
	defaultNameCacheTTL  = 5 * time.Minute
)

// Client is a Kantata API client. Safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	perPage    int
	names      *nameCache
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit overrides the request rate limit.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithPerPage overrides the pagination page size.
func WithPerPage(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.perPage = n
		}
	}
}

// NewClient creates a Kantata API client for the given endpoint and token.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(defaultRateLimit, defaultRateBurst),
		perPage:    defaultPerPage,
		names:      newNameCache(defaultNameCacheSize, defaultNameCacheTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get issues a rate-limited GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// post issues a rate-limited POST with a JSON body and decodes the response.
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	if c.token == "" {
		return errs.Unauthorized("kantata API token not set")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return classifyTransport(err, path)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errs.Wrap(err, errs.ErrCodeInvalidArgument, "encode request body")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return errs.Wrap(err, errs.ErrCodeInvalidArgument, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err, path)
	}
	defer resp.Body.Close()

	if err := statusError(resp, path); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Upstream(fmt.Sprintf("decode %s response", path), err)
	}
	return nil
}

// statusError maps non-success HTTP statuses to domain errors.
func statusError(resp *http.Response, path string) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errs.Unauthorized(fmt.Sprintf("kantata rejected credentials for %s", path))
	case resp.StatusCode == http.StatusNotFound:
		return errs.NotFound(fmt.Sprintf("%s not found", path))
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errs.Upstream(
			fmt.Sprintf("%s returned status %d: %s", path, resp.StatusCode, string(detail)), nil)
	}
}

// classifyTransport maps transport failures to Timeout or Upstream errors.
func classifyTransport(err error, path string) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errs.Timeout(fmt.Sprintf("request to %s timed out", path), err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Timeout(fmt.Sprintf("request to %s canceled", path), err)
	}
	return errs.Upstream(fmt.Sprintf("request to %s failed", path), err)
}
