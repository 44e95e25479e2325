package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/netfilter/conn/internal/config"
)

func newCountingServer(t *testing.T, status int, body string) (*httptest.Server, *int64) {
	t.Helper()
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRunDryRunPrintsEveryURL(t *testing.T) {
	stdout, _, err := runCLI(t, "-i", "http://example.test/", "-t", "3", "--dry-run")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := strings.Count(stdout, "http://example.test/\n"); got != 3 {
		t.Errorf("expected 3 dry-run lines, got %d:\n%s", got, stdout)
	}
	for _, want := range []string{"Bytes: 0.00 MB", "Requests: 3", "Max Simultaneous Requests: 3", "Connection Errors: 0"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in report:\n%s", want, stdout)
		}
	}
}

func TestRunQuietDryRunHidesURLs(t *testing.T) {
	stdout, _, err := runCLI(t, "-i", "http://example.test/", "-t", "2", "--dry-run", "-q")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if strings.Contains(stdout, "http://example.test/") {
		t.Errorf("quiet run printed URLs:\n%s", stdout)
	}
	if !strings.Contains(stdout, "Requests: 2") {
		t.Errorf("expected report in quiet mode:\n%s", stdout)
	}
}

func TestRunAgainstServer(t *testing.T) {
	srv, hits := newCountingServer(t, http.StatusOK, "hello")

	stdout, _, err := runCLI(t, "-i", srv.URL, "-p", "2", "-t", "3", "-r", "4")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := atomic.LoadInt64(hits); got != 12 {
		t.Errorf("server hits = %d, want 12", got)
	}
	for _, want := range []string{"Requests: 12", "Max Simultaneous Requests: 6", "Connection Errors: 0", "Latency:"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in report:\n%s", want, stdout)
		}
	}
}

func TestRunJSONOutput(t *testing.T) {
	srv, _ := newCountingServer(t, http.StatusOK, "0123456789")

	stdout, _, err := runCLI(t, "-i", srv.URL, "-t", "2", "--json-output")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	var report struct {
		RunID    string `json:"run_id"`
		Bytes    int64  `json:"bytes"`
		Requests int    `json:"requests"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("invalid JSON report: %v\n%s", err, stdout)
	}
	if report.RunID == "" {
		t.Error("expected run_id in JSON report")
	}
	if report.Bytes != 20 || report.Requests != 2 {
		t.Errorf("bytes=%d requests=%d, want 20 and 2", report.Bytes, report.Requests)
	}
}

func TestRunConnectErrorsAreCountedAndLogged(t *testing.T) {
	srv, _ := newCountingServer(t, http.StatusInternalServerError, "boom")

	stdout, stderr, err := runCLI(t, "-i", srv.URL, "-t", "2")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(stdout, "Connection Errors: 2") {
		t.Errorf("expected 2 connection errors:\n%s", stdout)
	}
	if !strings.Contains(stderr, "level=warning") || !strings.Contains(stderr, "run_id=") {
		t.Errorf("expected warn logs with run_id, got:\n%s", stderr)
	}
}

func TestRunQuietSuppressesConnectErrors(t *testing.T) {
	srv, _ := newCountingServer(t, http.StatusBadGateway, "")

	stdout, stderr, err := runCLI(t, "-i", srv.URL, "-t", "2", "-q")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if strings.Contains(stderr, "level=warning") {
		t.Errorf("quiet run logged connect errors:\n%s", stderr)
	}
	if !strings.Contains(stdout, "Connection Errors: 2") {
		t.Errorf("quiet must not change counting:\n%s", stdout)
	}
}

func TestRunFailOnErrors(t *testing.T) {
	srv, _ := newCountingServer(t, http.StatusNotFound, "")

	_, _, err := runCLI(t, "-i", srv.URL, "-q", "--fail-on-errors")
	if err == nil || !strings.Contains(err.Error(), "1 requests failed") {
		t.Fatalf("expected failure error, got %v", err)
	}
}

func TestRunThresholds(t *testing.T) {
	srv, _ := newCountingServer(t, http.StatusOK, "ok")

	tests := []struct {
		name      string
		threshold string
		wantErr   bool
	}{
		{"pass", "http_requests:count >= 2", false},
		{"fail", "http_requests:count > 100", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := runCLI(t, "-i", srv.URL, "-t", "2", "--threshold", tt.threshold)
			if (err != nil) != tt.wantErr {
				t.Fatalf("run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(stdout, tt.threshold) {
				t.Errorf("expected threshold %q in report:\n%s", tt.threshold, stdout)
			}
		})
	}
}

func TestRunInvalidThreshold(t *testing.T) {
	if _, _, err := runCLI(t, "-i", "http://example.test/", "--dry-run", "--threshold", "bogus"); err == nil {
		t.Fatal("expected error for an unparsable threshold")
	}
}

func TestRunURLFileWithSkip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := "http://a.test/\n\nhttp://b.test/\nhttp://c.test/\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := runCLI(t, "-f", "-i", path, "--skip", "1", "--dry-run")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.HasPrefix(stdout, "http://b.test/\n") {
		t.Errorf("expected first URL b after skip 1, got:\n%s", stdout)
	}
}

func TestRunEmptyURLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("\n\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, "-f", "-i", path, "--dry-run"); err == nil {
		t.Fatal("expected error for an empty URL file")
	}
}

func TestRunValidationError(t *testing.T) {
	_, _, err := runCLI(t, "-i", "http://example.test/", "-p", "0")
	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestRunVersion(t *testing.T) {
	if _, _, err := runCLI(t, "--version"); err != nil {
		t.Fatalf("--version returned %v", err)
	}
}

func TestRunMetricsAddrInUse(t *testing.T) {
	srv, _ := newCountingServer(t, http.StatusOK, "")
	addr := strings.TrimPrefix(srv.URL, "http://")

	if _, _, err := runCLI(t, "-i", "http://example.test/", "--dry-run", "--metrics-addr", addr); err == nil {
		t.Fatal("expected error when the metrics address is already bound")
	}
}

func TestRunSendsUserAgent(t *testing.T) {
	agents := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.UserAgent()
	}))
	defer srv.Close()

	if _, _, err := runCLI(t, "-i", srv.URL); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := <-agents; got != "conn/"+config.Version {
		t.Errorf("default User-Agent = %q", got)
	}

	if _, _, err := runCLI(t, "-i", srv.URL, "--user-agent", "probe/1"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := <-agents; got != "probe/1" {
		t.Errorf("User-Agent = %q, want probe/1", got)
	}
}
