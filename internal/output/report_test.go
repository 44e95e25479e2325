package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/netfilter/conn/internal/metrics"
	"github.com/netfilter/conn/internal/runner"
	"github.com/netfilter/conn/internal/threshold"
)

func TestNewReport(t *testing.T) {
	agg := runner.Aggregate{
		Sessions: 3,
		Requests: 30,
		Bytes:    512 * 1024,
		Errors:   []error{errors.New("a"), errors.New("b")},
	}
	r := NewReport(agg, 2*time.Second, 10, metrics.Stats{})

	if r.TimeSeconds != 2 {
		t.Errorf("TimeSeconds = %v, want 2", r.TimeSeconds)
	}
	if r.Megabytes != 0.5 {
		t.Errorf("Megabytes = %v, want 0.5", r.Megabytes)
	}
	if r.Mbps != 2 {
		t.Errorf("Mbps = %v, want 2", r.Mbps)
	}
	if r.Requests != 30 || r.MaxSimultaneous != 10 || r.ConnectionErrors != 2 {
		t.Errorf("unexpected counts %+v", r)
	}
}

func TestNewReportZeroElapsed(t *testing.T) {
	r := NewReport(runner.Aggregate{Bytes: 100}, 0, 1, metrics.Stats{})
	if r.Mbps != 0 {
		t.Errorf("Mbps = %v, want 0 when no time elapsed", r.Mbps)
	}
}

func TestPrintReportBasic(t *testing.T) {
	r := NewReport(runner.Aggregate{Requests: 30, Bytes: 512 * 1024}, 1234*time.Millisecond, 10, metrics.Stats{})

	var buf bytes.Buffer
	PrintReport(&buf, r)

	want := strings.Join([]string{
		"Time: 1.234s",
		"Bytes: 0.50 MB",
		"Rate: 3.24 mbps",
		"",
		"Requests: 30",
		"Max Simultaneous Requests: 10",
		"Connection Errors: 0",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("PrintReport() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestPrintReportIncludesLatencyAndBreakdowns(t *testing.T) {
	collector := metrics.NewCollector()
	collector.RecordRequest(20*time.Millisecond, 100, nil, &metrics.RequestMetadata{Host: "a.example"})
	collector.RecordRequest(40*time.Millisecond, 0, errors.New("boom"), &metrics.RequestMetadata{Host: "b.example", StatusCode: "network"})
	stats := collector.Stats(time.Second)

	results := []threshold.Result{
		{Threshold: threshold.Threshold{Raw: "http_req_failed:count < 1"}, Actual: 1, Pass: false},
	}
	r := NewReport(runner.Aggregate{Requests: 2, Bytes: 100, Errors: []error{errors.New("boom")}}, time.Second, 2, stats).WithThresholds(results)

	var buf bytes.Buffer
	PrintReport(&buf, r)
	output := buf.String()

	for _, want := range []string{"Latency:", "P95:", "Error Breakdown:", "Other error: 1", "Failed Statuses:", "network: 1", "Hosts:", "a.example", "Thresholds:", "✗ http_req_failed:count < 1"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in report:\n%s", want, output)
		}
	}
}

func TestPrintJSONReport(t *testing.T) {
	r := NewReport(runner.Aggregate{Requests: 3}, time.Second, 3, metrics.Stats{Total: 3})
	r.RunID = "01ARZ3NDEKTSV4RRFFQ69G5FAV"

	var buf bytes.Buffer
	if err := PrintJSONReport(&buf, r); err != nil {
		t.Fatalf("PrintJSONReport() error = %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, field := range []string{"run_id", "time_seconds", "megabytes", "mbps", "requests", "max_simultaneous_requests", "connection_errors", "stats"} {
		if _, ok := parsed[field]; !ok {
			t.Errorf("missing field %q", field)
		}
	}
	if _, ok := parsed["thresholds"]; ok {
		t.Errorf("thresholds should be omitted when none were evaluated")
	}
}
