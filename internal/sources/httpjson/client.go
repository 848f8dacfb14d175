// Package httpjson is the shared outbound client for the JSON providers.
package httpjson

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	DefaultUserAgent   = "api-aggregator/0.1"
	DefaultTimeout     = 15 * time.Second
	DefaultRetryMax    = 2
	defaultMaxBodySize = 10 << 20 // 10 MiB
)

// Config controls the outbound client. Zero values select the defaults.
type Config struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	UserAgent    string
	MaxBodySize  int64
	Logger       *slog.Logger
	// Transport overrides the underlying round tripper; used in tests.
	Transport http.RoundTripper
}

type Client struct {
	rclient     *retryablehttp.Client
	userAgent   string
	maxBodySize int64
}

// NewClient builds a client that retries connection errors, 429 and 5xx
// responses up to cfg.RetryMax times. A negative RetryMax disables retries.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryMax == 0 {
		cfg.RetryMax = DefaultRetryMax
	} else if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = 200 * time.Millisecond
	}
	if cfg.RetryWaitMax <= 0 {
		cfg.RetryWaitMax = 2 * time.Second
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultMaxBodySize
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.Transport != nil {
		httpClient.Transport = cfg.Transport
	}

	rclient := &retryablehttp.Client{
		HTTPClient:   httpClient,
		RetryWaitMin: cfg.RetryWaitMin,
		RetryWaitMax: cfg.RetryWaitMax,
		RetryMax:     cfg.RetryMax,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: keepLastResponse,
	}
	if cfg.Logger != nil {
		rclient.Logger = cfg.Logger
	}

	return &Client{
		rclient:     rclient,
		userAgent:   cfg.UserAgent,
		maxBodySize: cfg.MaxBodySize,
	}
}

// keepLastResponse hands the final response back once retries are exhausted
// so its status and body can be reported.
func keepLastResponse(resp *http.Response, err error, _ int) (*http.Response, error) {
	if resp != nil {
		return resp, nil
	}
	return nil, err
}

// GetJSON issues a GET to rawURL and decodes a 2xx body into out. Non-2xx
// responses are returned as *StatusError.
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	body, err := c.Get(ctx, rawURL, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", redact(rawURL), err)
	}
	return nil
}

// Get issues a GET to rawURL and returns the raw 2xx body.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", c.userAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.rclient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", redact(rawURL), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", redact(rawURL), err)
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", redact(rawURL), c.maxBodySize)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewStatusError(resp.StatusCode, body)
	}
	return body, nil
}

// redact drops the query string, which may carry credentials.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
