// Package httpclient is the HTTP capability shared by classification and downloads: blocking HEAD, streaming GET,
// explicit per-call timeouts, no automatic retries, and a token bucket limiter shared by all calls.
//
// A HEAD timeout bounds the whole call. A streaming timeout is an inactivity limit: it bounds the wait for response
// headers and then each gap between body reads, so a slow but steady transfer can run for as long as it needs.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrStatus = errors.New("unexpected HTTP status")
	// ErrIdleTimeout means a streaming call saw no progress for longer than its timeout.
	ErrIdleTimeout = errors.New("no progress before timeout")
)

type Options struct {
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
	// Transport overrides http.DefaultTransport, mainly for tests.
	Transport http.RoundTripper
}

type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
}

func New(opts Options) *Client {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		http:      &http.Client{Transport: transport},
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: opts.UserAgent,
	}
}

// Head returns the response headers for url. Redirects are followed.
func (c *Client) Head(ctx context.Context, url string, timeout time.Duration) (http.Header, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	resp, err := c.do(ctx, http.MethodHead, url, "", nil)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return resp.Header, nil
}

// Response is a streaming GET response; the caller must Close it.
type Response struct {
	Header        http.Header
	ContentLength int64
	Body          io.Reader

	body  io.ReadCloser
	watch *idleWatch
}

func (r *Response) Close() error {
	defer r.watch.stop()
	return r.body.Close()
}

// ContentType returns the media type of the response without parameters, or "".
func (r *Response) ContentType() string {
	return ContentType(r.Header)
}

// Get starts a streaming GET. The timeout limits the wait for headers and each stall while reading the body, not the
// total transfer time.
func (c *Client) Get(ctx context.Context, url string, timeout time.Duration) (*Response, error) {
	return c.stream(ctx, http.MethodGet, url, "", nil, timeout)
}

// Post sends body with the given content type, returning a streaming response like Get.
func (c *Client) Post(ctx context.Context, url string, contentType string, body io.Reader, timeout time.Duration) (*Response, error) {
	return c.stream(ctx, http.MethodPost, url, contentType, body, timeout)
}

func (c *Client) stream(ctx context.Context, method string, url string, contentType string, body io.Reader, timeout time.Duration) (*Response, error) {
	ctx, watch := newIdleWatch(ctx, timeout)
	resp, err := c.do(ctx, method, url, contentType, body)
	if err != nil {
		watch.stop()
		return nil, watch.wrap(err)
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		watch.stop()
		return nil, err
	}
	watch.touch()
	return &Response{
		Header:        resp.Header,
		ContentLength: resp.ContentLength,
		Body:          &idleReader{r: resp.Body, watch: watch},
		body:          resp.Body,
		watch:         watch,
	}, nil
}

// idleWatch cancels a context once timeout passes without a touch.
type idleWatch struct {
	ctx     context.Context
	cancel  context.CancelCauseFunc
	timer   *time.Timer
	timeout time.Duration
}

func newIdleWatch(parent context.Context, timeout time.Duration) (context.Context, *idleWatch) {
	ctx, cancel := context.WithCancelCause(parent)
	w := &idleWatch{ctx: ctx, cancel: cancel, timeout: timeout}
	if timeout > 0 {
		w.timer = time.AfterFunc(timeout, func() {
			cancel(fmt.Errorf("%w (%s)", ErrIdleTimeout, timeout))
		})
	}
	return ctx, w
}

func (w *idleWatch) touch() {
	if w.timer != nil {
		w.timer.Reset(w.timeout)
	}
}

func (w *idleWatch) stop() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.cancel(context.Canceled)
}

// wrap attaches ErrIdleTimeout to err if the watch is what cancelled the call.
func (w *idleWatch) wrap(err error) error {
	if cause := context.Cause(w.ctx); errors.Is(cause, ErrIdleTimeout) && !errors.Is(err, ErrIdleTimeout) {
		return fmt.Errorf("%w: %w", cause, err)
	}
	return err
}

type idleReader struct {
	r     io.Reader
	watch *idleWatch
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.watch.touch()
	}
	if err != nil && err != io.EOF {
		err = r.watch.wrap(err)
	}
	return n, err
}

func (c *Client) do(ctx context.Context, method string, url string, contentType string, body io.Reader) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, url, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}
	return nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// ContentType extracts the lowercased media type from a Content-Type header.
func ContentType(h http.Header) string {
	raw := h.Get("Content-Type")
	if raw == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(raw); err == nil {
		return mediaType
	}
	return strings.ToLower(strings.TrimSpace(strings.SplitN(raw, ";", 2)[0]))
}
