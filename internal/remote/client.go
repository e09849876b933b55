// Package remote is the HTTP client for the paged file listing endpoint.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// FilesPath is the listing endpoint relative to the base URL.
const FilesPath = "/rest/files"

// Options tunes a Client. Zero values select the defaults noted per field.
type Options struct {
	Timeout     time.Duration     // Per-request timeout (default 30s)
	MaxInFlight int64             // Cap on concurrent HTTP requests (default unlimited)
	RateLimit   float64           // Requests per second (default unlimited)
	RateBurst   int               // Limiter burst (default 1)
	CacheTTL    time.Duration     // Page cache lifetime (default disabled)
	CacheSize   int               // Page cache entries (default 256)
	Transport   http.RoundTripper // Base transport (default http.DefaultTransport)
	Logger      *slog.Logger
}

// Client fetches listing pages. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	sem     *semaphore.Weighted // nil if unlimited
	limiter *rate.Limiter       // nil if unlimited
	group   singleflight.Group
	cache   *expirable.LRU[string, *Page] // nil if disabled
}

// New creates a client for the endpoint rooted at baseURL.
func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: gzhttp.Transport(base),
		},
		logger: logger,
	}
	if opts.MaxInFlight > 0 {
		c.sem = semaphore.NewWeighted(opts.MaxInFlight)
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	if opts.CacheTTL > 0 {
		size := opts.CacheSize
		if size <= 0 {
			size = 256
		}
		c.cache = expirable.NewLRU[string, *Page](size, nil, opts.CacheTTL)
	}
	return c
}

// BaseURL returns the endpoint root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListFiles fetches one window of the listing. Identical concurrent queries
// share a single HTTP request.
func (c *Client) ListFiles(ctx context.Context, q Query) (*Page, error) {
	key := q.key()
	if c.cache != nil {
		if page, ok := c.cache.Get(key); ok {
			c.logger.Debug("files: cache hit", "offset", q.Offset, "limit", q.Limit, "query", q.Text)
			return page, nil
		}
	}

	// The shared call outlives any single caller's cancellation; the HTTP
	// client timeout still bounds it.
	ch := c.group.DoChan(key, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), q)
	})

	select {
	case <-ctx.Done():
		return nil, &TransportError{Op: "list", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		page := res.Val.(*Page)
		if res.Shared {
			c.logger.Debug("files: collapsed request", "offset", q.Offset, "limit", q.Limit, "query", q.Text)
		}
		return page, nil
	}
}

func (c *Client) fetch(ctx context.Context, q Query) (*Page, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Op: "list", Err: fmt.Errorf("rate limit: %w", err)}
		}
	}
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, &TransportError{Op: "list", Err: err}
		}
		defer c.sem.Release(1)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(q), nil)
	if err != nil {
		return nil, fmt.Errorf("files: list: %w", err)
	}
	requestID := q.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "list", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.parseErrorResponse("list", resp)
	}

	var out listResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, &ProtocolError{Op: "list", Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Status != StatusOK {
		err := ErrBadStatus
		if out.Error != "" {
			err = fmt.Errorf("%w: %s", ErrBadStatus, out.Error)
		}
		return nil, &ProtocolError{Op: "list", Status: out.Status, Err: err}
	}

	c.logger.Debug("files: list",
		"request_id", requestID,
		"offset", q.Offset,
		"limit", q.Limit,
		"query", q.Text,
		"rows", len(out.Files),
		"matching", out.Matching,
		"total", out.Total,
		"elapsed", time.Since(start),
	)

	page := &Page{Files: out.Files, Matching: out.Matching, Total: out.Total}
	if c.cache != nil {
		c.cache.Add(q.key(), page)
	}
	return page, nil
}

func (c *Client) parseErrorResponse(operation string, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: operation, StatusCode: resp.StatusCode, Err: fmt.Errorf("read error body: %w", err)}
	}

	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return &TransportError{Op: operation, StatusCode: resp.StatusCode, Err: errors.New(apiErr.Error)}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return &TransportError{Op: operation, StatusCode: resp.StatusCode}
	}
	return &TransportError{Op: operation, StatusCode: resp.StatusCode, Err: errors.New(msg)}
}

func (c *Client) url(q Query) string {
	v := url.Values{}
	v.Set("offset", strconv.Itoa(q.Offset))
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("query", q.Text)
	return c.baseURL + FilesPath + "?" + v.Encode()
}
