package httpclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchReturnsBodyLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer server.Close()

	f := NewFetcher(NewClient(5*time.Second, 4))
	n, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if n != 2048 {
		t.Fatalf("expected 2048 bytes, got %d", n)
	}
}

func TestFetchSkipsCertificateVerification(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("secure"))
	}))
	defer server.Close()

	f := NewFetcher(NewClient(5*time.Second, 0))
	n, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() against self-signed server error = %v", err)
	}
	if n != int64(len("secure")) {
		t.Fatalf("expected %d bytes, got %d", len("secure"), n)
	}
}

func TestFetchFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("moved"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	n, err := NewFetcher(nil).Fetch(context.Background(), server.URL+"/old")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 bytes, got %d", n)
	}
}

func TestFetchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("  overloaded  "))
	}))
	defer server.Close()

	n, err := NewFetcher(nil).Fetch(context.Background(), server.URL)
	if n != 0 {
		t.Fatalf("expected 0 bytes on error status, got %d", n)
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %T: %v", err, err)
	}
	if httpErr.StatusCode != http.StatusServiceUnavailable || httpErr.Body != "overloaded" {
		t.Fatalf("unexpected error details: %+v", httpErr)
	}
	if httpErr.Error() != "HTTP 503: overloaded" {
		t.Fatalf("unexpected message %q", httpErr.Error())
	}
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	f := NewFetcher(NewClient(50*time.Millisecond, 0))
	if _, err := f.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestFetchSetsUserAgent(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	if _, err := NewFetcher(nil, WithUserAgent("conn/test")).Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got != "conn/test" {
		t.Fatalf("expected user agent conn/test, got %q", got)
	}
}

func TestFetchInvalidURL(t *testing.T) {
	if _, err := NewFetcher(nil).Fetch(context.Background(), "://bad"); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestNewClientNegativeTimeout(t *testing.T) {
	client := NewClient(-time.Second, 0)
	if client.Timeout != 0 {
		t.Fatalf("expected timeout clamped to 0, got %s", client.Timeout)
	}
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if !transport.TLSClientConfig.InsecureSkipVerify {
		t.Fatal("expected certificate verification disabled")
	}
}

func TestFetchSlowStreamingBodyIsNotCutOff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 6; i++ {
			_, _ = w.Write([]byte(strings.Repeat("x", 100)))
			flusher.Flush()
			time.Sleep(40 * time.Millisecond)
		}
	}))
	defer server.Close()

	// 6 chunks 40ms apart take well over the 100ms timeout in total.
	client := NewClient(100*time.Millisecond, 0)
	if client.Timeout != 0 {
		t.Fatalf("expected no whole-request timeout, got %s", client.Timeout)
	}
	n, err := NewFetcher(client).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if n != 600 {
		t.Fatalf("expected 600 bytes, got %d", n)
	}
}

func TestFetchStalledBodyTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := NewFetcher(NewClient(50*time.Millisecond, 0)).Fetch(context.Background(), server.URL)
	var readErr *ReadTimeoutError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected *ReadTimeoutError, got %T: %v", err, err)
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("expected a timeout net.Error, got %v", err)
	}
}
