package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/netfilter/conn/internal/tracing"
)

const maxSnippetBytes = 512

// HTTPError reports a response whose final status is 400 or above.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// NewClient builds the load-test client. Certificate verification is always disabled.
// timeout bounds each network operation separately: dialing, the TLS
// handshake, waiting for response headers, and every read of the body.
// A body that keeps streaming is never cut off. Zero disables the timeouts.
func NewClient(timeout time.Duration, maxConns int) *http.Client {
	if timeout < 0 {
		timeout = 0
	}
	if maxConns <= 0 {
		maxConns = 32
	}

	dialTimeout := 30 * time.Second
	if timeout > 0 {
		dialTimeout = timeout
	}
	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   maxConns,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec
		},
	}
	if timeout == 0 {
		return &http.Client{Transport: transport}
	}
	transport.TLSHandshakeTimeout = timeout

	return &http.Client{Transport: &readTimeoutTransport{base: transport, idle: timeout}}
}

// Fetcher issues GET requests and reports the size of each response body.
type Fetcher struct {
	client    *http.Client
	userAgent string
	propagate bool
}

// FetcherOption customizes a Fetcher.
type FetcherOption func(*Fetcher)

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) { f.userAgent = strings.TrimSpace(ua) }
}

// WithTracePropagation injects W3C trace context headers into every request.
func WithTracePropagation(enabled bool) FetcherOption {
	return func(f *Fetcher) { f.propagate = enabled }
}

// NewFetcher wraps client. A nil client gets a default one with a 100s timeout.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = NewClient(100*time.Second, 0)
	}
	f := &Fetcher{client: client}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs GET target, reads the whole body and returns its length.
// Statuses of 400 and above are returned as *HTTPError with zero bytes.
func (f *Fetcher) Fetch(ctx context.Context, target string) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if f.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, readErr := io.ReadAll(io.LimitReader(resp.Body, maxSnippetBytes))
		if readErr != nil {
			return 0, readErr
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read body: %w", err)
	}
	return n, nil
}
