package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/oakwood-commons/dview/pkg/loader"
	"github.com/oakwood-commons/dview/pkg/logger"
	"github.com/oakwood-commons/dview/pkg/view"
)

// Retry defaults. Public APIs used here are slow to recover, so waits are
// short and attempts few.
const (
	DefaultRetryMax     = 3
	DefaultRetryWaitMin = 200 * time.Millisecond
	DefaultRetryWaitMax = 2 * time.Second
	DefaultTimeout      = 15 * time.Second

	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes = 32 << 20
)

// ErrBodyTooLarge reports a response body over the client's size limit.
var ErrBodyTooLarge = errors.New("response body exceeds limit")

// Client performs GET requests with retries on connection errors, 429 and
// 5xx responses.
type Client struct {
	retry   *retryablehttp.Client
	log     logr.Logger
	maxBody int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRetryMax sets the number of retries after the first attempt.
func WithRetryMax(n int) ClientOption {
	return func(c *Client) {
		c.retry.RetryMax = n
	}
}

// WithRetryWait bounds the backoff between attempts.
func WithRetryWait(minWait, maxWait time.Duration) ClientOption {
	return func(c *Client) {
		c.retry.RetryWaitMin = minWait
		c.retry.RetryWaitMax = maxWait
	}
}

// WithMaxBodyBytes sets the largest response body Get accepts.
func WithMaxBodyBytes(n int64) ClientOption {
	return func(c *Client) {
		c.maxBody = n
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.retry.HTTPClient = hc
	}
}

// WithClientLogger routes retry and request logging to lgr.
func WithClientLogger(lgr logr.Logger) ClientOption {
	return func(c *Client) {
		c.log = lgr
		c.retry.Logger = logger.NewLeveled(lgr)
	}
}

// NewClient returns a Client with the package retry defaults.
func NewClient(opts ...ClientOption) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = DefaultRetryMax
	rc.RetryWaitMin = DefaultRetryWaitMin
	rc.RetryWaitMax = DefaultRetryWaitMax
	rc.HTTPClient.Timeout = DefaultTimeout
	rc.Logger = logger.NewLeveled(logr.Discard())

	c := &Client{retry: rc, log: logr.Discard(), maxBody: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches rawURL with query merged into its query string and returns
// the body. Non-2xx responses and bodies over the size limit are errors.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.retry.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("GET %s: read body: %w", u.Redacted(), err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("GET %s: %w (%d bytes)", u.Redacted(), ErrBodyTooLarge, c.maxBody)
	}
	c.log.V(1).Info("fetched", "url", u.Redacted(), "status", resp.StatusCode, "bytes", len(body), "elapsed", time.Since(start))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: unexpected status %s", u.Redacted(), resp.Status)
	}
	return body, nil
}

// GetJSON fetches rawURL and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	body, err := c.Get(ctx, rawURL, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", rawURL, err)
	}
	return nil
}

// HTTPOptions shapes the records produced by HTTPJSON.
type HTTPOptions struct {
	// RecordsPath is a dotted path to the record list, e.g. "results".
	RecordsPath string
	Query       url.Values
	// Transform, when set, rewrites each record. Returning nil drops it.
	Transform func(view.Record) view.Record
}

// HTTPJSON fetches a JSON document on every call and turns it into records
// the same way files are loaded.
func HTTPJSON(c *Client, rawURL string, opts HTTPOptions) Source {
	if c == nil {
		c = NewClient()
	}
	return func(ctx context.Context) ([]view.Record, error) {
		body, err := c.Get(ctx, rawURL, opts.Query)
		if err != nil {
			return nil, err
		}
		recs, err := loader.LoadRecords(body,
			loader.WithFormat(loader.FormatJSON),
			loader.WithRecordsPath(opts.RecordsPath),
		)
		if err != nil {
			return nil, fmt.Errorf("decode response from %s: %w", rawURL, err)
		}
		if opts.Transform == nil {
			return recs, nil
		}
		out := recs[:0]
		for _, r := range recs {
			if t := opts.Transform(r); t != nil {
				out = append(out, t)
			}
		}
		return out, nil
	}
}
