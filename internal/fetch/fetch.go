// SPDX-License-Identifier: MPL-2.0

// Package fetch downloads mod payloads over HTTP, reporting byte-level
// progress. Failures are reported as *NetworkError so callers can tell them
// apart from local I/O problems and offer a retry.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds one download when no timeout is configured.
	DefaultTimeout = 5 * time.Minute

	// DefaultMaxBytes caps a payload (1 GB).
	DefaultMaxBytes int64 = 1 << 30

	fallbackFilename = "download"
)

// ErrNetwork classifies transport failures, timeouts and non-success statuses.
var ErrNetwork = errors.New("network failure")

type (
	// Progress is a snapshot of one download. Total is -1 when the server
	// does not announce a length.
	Progress struct {
		Downloaded int64
		Total      int64
	}

	// ProgressFunc receives progress updates from the downloading goroutine.
	ProgressFunc func(Progress)

	// Payload is a downloaded body plus the filename it was served under.
	Payload struct {
		Filename string
		Data     []byte
	}

	// NetworkError describes a failed download. StatusCode is zero when no
	// response was received.
	NetworkError struct {
		URL        string
		StatusCode int
		Err        error
	}

	// Client downloads payloads.
	Client struct {
		httpClient *http.Client
		timeout    time.Duration
		maxBytes   int64
		userAgent  string
	}

	// Option configures a Client during construction.
	Option func(*Client)
)

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("downloading %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("downloading %s: %v", e.URL, e.Err)
}

// Unwrap exposes the transport error (for example context.DeadlineExceeded).
func (e *NetworkError) Unwrap() error { return e.Err }

// Is makes every NetworkError match ErrNetwork.
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// Timeout reports whether the failure was a deadline.
func (e *NetworkError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Percent returns completion in [0, 100], or -1 when Total is unknown.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return -1
	}
	return float64(p.Downloaded) * 100 / float64(p.Total)
}

// WithHTTPClient sets a custom HTTP client, useful for tests or proxies.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTimeout sets the per-download budget. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.timeout = d }
}

// WithMaxBytes caps the payload size.
func WithMaxBytes(n int64) Option {
	return func(cl *Client) { cl.maxBytes = n }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) { cl.userAgent = ua }
}

// New creates a Client with defaults.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
		maxBytes:   DefaultMaxBytes,
		userAgent:  "scarab/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Download fetches rawURL into memory. file:// links are read from disk so
// local catalogs can point at payloads beside them.
func (c *Client) Download(ctx context.Context, rawURL string, progress ProgressFunc) (*Payload, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &NetworkError{URL: redactURL(rawURL), Err: err}
	}
	if u.Scheme == "file" {
		return c.readLocal(u, progress)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, &NetworkError{URL: redactURL(rawURL), Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: redactURL(rawURL), Err: err}
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{URL: redactURL(rawURL), StatusCode: resp.StatusCode}
	}

	total := resp.ContentLength
	if total < 0 {
		total = -1
	}
	data, err := c.readAll(resp.Body, total, progress)
	if err != nil {
		return nil, &NetworkError{URL: redactURL(rawURL), Err: err}
	}

	return &Payload{Filename: filenameFor(resp, u), Data: data}, nil
}

func (c *Client) readLocal(u *url.URL, progress ProgressFunc) (*Payload, error) {
	p := filepath.FromSlash(u.Path)
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	defer func() { _ = f.Close() }() // read-only file handle

	total := int64(-1)
	if info, statErr := f.Stat(); statErr == nil {
		total = info.Size()
	}
	data, err := c.readAll(f, total, progress)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	return &Payload{Filename: filepath.Base(p), Data: data}, nil
}

func (c *Client) readAll(r io.Reader, total int64, progress ProgressFunc) ([]byte, error) {
	var buf bytes.Buffer
	if total > 0 && total <= c.maxBytes {
		buf.Grow(int(total))
	}

	pr := &progressReader{r: io.LimitReader(r, c.maxBytes+1), total: total, fn: progress}
	n, err := io.Copy(&buf, pr)
	if err != nil {
		return nil, err
	}
	if n > c.maxBytes {
		return nil, fmt.Errorf("payload exceeds maximum size of %d bytes", c.maxBytes)
	}
	return buf.Bytes(), nil
}

type progressReader struct {
	r     io.Reader
	done  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		if p.fn != nil {
			p.fn(Progress{Downloaded: p.done, Total: p.total})
		}
	}
	return n, err
}

// filenameFor prefers Content-Disposition, then the last URL path segment.
func filenameFor(resp *http.Response, u *url.URL) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := path.Base(strings.ReplaceAll(params["filename"], `\`, "/")); name != "" && name != "." && name != "/" {
				return name
			}
		}
	}
	if name := path.Base(u.Path); name != "" && name != "." && name != "/" {
		return name
	}
	return fallbackFilename
}

// redactURL strips query parameters and fragments so tokens in download
// links never reach logs or error messages.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
