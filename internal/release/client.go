package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/asgardeo/mcp-launcher/internal/console"
)

var (
	// ErrBadHTTPStatus is returned for any non-200 response.
	ErrBadHTTPStatus = errors.New("unexpected http status")
	// ErrTooManyRedirects is returned when the redirect chain exceeds the cap.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrInsecureRedirect is returned when an https request is redirected to http.
	ErrInsecureRedirect = errors.New("redirect downgrades https to http")
	// ErrMalformedRelease is returned when the metadata document cannot be decoded.
	ErrMalformedRelease = errors.New("malformed release metadata")
)

const (
	// DefaultMaxRedirects is used when no cap is configured.
	DefaultMaxRedirects = 10

	// maxMetadataSize bounds the metadata and small-asset reads.
	maxMetadataSize = 16 << 20

	acceptJSON   = "application/vnd.github+json"
	acceptBinary = "application/octet-stream"
)

// Client fetches release metadata and assets over HTTP.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	maxRedirects int
	timeout      time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its CheckRedirect is overridden.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMaxRedirects caps the redirect chain. Zero disables redirects entirely.
func WithMaxRedirects(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRedirects = n
		}
	}
}

// WithTimeout bounds every request. Zero disables the limit.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout >= 0 {
			c.timeout = timeout
		}
	}
}

// NewClient creates a client for the metadata API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient:   new(http.Client),
		baseURL:      strings.TrimRight(baseURL, "/"),
		maxRedirects: DefaultMaxRedirects,
	}

	for _, opt := range opts {
		opt(c)
	}

	hc := *c.httpClient
	hc.Timeout = c.timeout
	hc.CheckRedirect = c.checkRedirect
	c.httpClient = &hc

	return c
}

// checkRedirect enforces the redirect cap and forbids protocol downgrades.
func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) > c.maxRedirects {
		return fmt.Errorf("%w: more than %d", ErrTooManyRedirects, c.maxRedirects)
	}

	if prev := via[len(via)-1]; prev.URL.Scheme == "https" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w: %s", ErrInsecureRedirect, req.URL.Redacted())
	}

	return nil
}

// Latest fetches the latest-release metadata of repo ("owner/name").
func (c *Client) Latest(ctx context.Context, repo string) (*Release, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}

	// Use path.Join to normalize duplicate slashes when composing the URL path.
	endpoint.Path = path.Join(endpoint.Path, "repos", repo, "releases", "latest")

	resp, err := c.get(ctx, endpoint.String(), acceptJSON)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	var rel Release
	if err = json.NewDecoder(io.LimitReader(resp.Body, maxMetadataSize)).Decode(&rel); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRelease, err)
	}

	return &rel, nil
}

// Download streams the resource at rawURL into w and returns the number of bytes written.
// The progress function, when not nil, wraps the response body.
func (c *Client) Download(ctx context.Context, rawURL string, w io.Writer, progress console.ProgressFunc) (int64, error) {
	resp, err := c.get(ctx, rawURL, acceptBinary)
	if err != nil {
		return 0, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if progress == nil {
		progress = console.NoProgress
	}

	body, finish := progress(resp.Body, resp.ContentLength)
	defer finish()

	n, err := io.Copy(w, body)
	if err != nil {
		return n, fmt.Errorf("copy response body: %w", err)
	}

	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return n, fmt.Errorf("short download: got %d of %d bytes: %w", n, resp.ContentLength, io.ErrUnexpectedEOF)
	}

	return n, nil
}

// Fetch downloads a small resource into memory.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.get(ctx, rawURL, acceptBinary)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataSize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return data, nil
}

// get issues a GET and returns the response only when the status is 200.
func (c *Client) get(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", accept)

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.URL.Redacted(), err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s, %s: %w", req.URL.Redacted(), resp.Status, ErrBadHTTPStatus)
	}

	return resp, nil
}
