package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/gizak/termui/v3/widgets"

	"github.com/netfilter/conn/internal/metrics"
)

func TestJoinLines(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		expected string
	}{
		{"empty", []string{}, ""},
		{"single", []string{"line1"}, "line1"},
		{"multiple", []string{"line1", "line2", "line3"}, "line1\nline2\nline3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinLines(tt.lines); got != tt.expected {
				t.Errorf("joinLines() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSessionPercent(t *testing.T) {
	tests := []struct {
		done  int64
		total int
		want  int
	}{
		{0, 0, 0},
		{0, 10, 0},
		{5, 10, 50},
		{10, 10, 100},
		{12, 10, 100},
	}
	for _, tt := range tests {
		if got := sessionPercent(tt.done, tt.total); got != tt.want {
			t.Errorf("sessionPercent(%d, %d) = %d, want %d", tt.done, tt.total, got, tt.want)
		}
	}
}

func TestFormatStatusListRows(t *testing.T) {
	rows := formatStatusListRows(map[string]int{
		"404":     3,
		"500":     1,
		"network": 2,
	})
	if len(rows) != 3 {
		t.Fatalf("expected 3 status rows, got %v", rows)
	}
	if !strings.Contains(rows[0], "404") {
		t.Fatalf("expected highest count first, got %v", rows)
	}
	if !strings.Contains(rows[1], "NETWORK") {
		t.Fatalf("expected network failures second, got %v", rows)
	}

	empty := formatStatusListRows(nil)
	if len(empty) != 1 || !strings.Contains(empty[0], "No failures") {
		t.Fatalf("expected placeholder row, got %v", empty)
	}
}

func TestUpdateHostList(t *testing.T) {
	d := &Dashboard{
		hostList: widgets.NewList(),
	}

	stats := metrics.Stats{
		Total: 100,
		Hosts: map[string]metrics.HostStats{
			"api.example": {
				Total:          80,
				RequestsPerSec: 10.5,
				P99LatencyMs:   120.5,
				Failures:       2,
				Bytes:          1024 * 1024,
			},
			"cdn.example": {
				Total:          20,
				RequestsPerSec: 5.0,
				P99LatencyMs:   50.0,
			},
		},
	}

	d.updateHostList(stats)

	if len(d.hostList.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(d.hostList.Rows))
	}

	// Check sorting (by total desc)
	if !strings.Contains(d.hostList.Rows[0], "api.example") {
		t.Error("Expected api.example to be first")
	}
	if !strings.Contains(d.hostList.Rows[1], "cdn.example") {
		t.Error("Expected cdn.example to be second")
	}

	row1 := d.hostList.Rows[0]
	if !strings.Contains(row1, "80.0%") {
		t.Error("Expected 80.0% share in row 1")
	}
	if !strings.Contains(row1, "Err 2") || !strings.Contains(row1, "1.00 MB") {
		t.Errorf("Expected failures and bytes in row 1, got %q", row1)
	}

	d.updateHostList(metrics.Stats{})
	if !strings.Contains(d.hostList.Rows[0], "No host data") {
		t.Errorf("Expected placeholder, got %v", d.hostList.Rows)
	}
}

func TestUpdateErrorBreakdown(t *testing.T) {
	d := &Dashboard{
		errorPara: widgets.NewParagraph(),
	}

	d.updateErrorBreakdown(metrics.Stats{
		Errors: map[string]int{
			"Timeout":             7,
			"HTTP error response": 3,
			"Network error":       2,
			"DNS lookup error":    1,
			"Other error":         1,
		},
	})

	text := d.errorPara.Text
	if !strings.HasPrefix(text, "[Timeout:]") {
		t.Errorf("Expected Timeout first, got %q", text)
	}
	if strings.Count(text, "\n") != 3 {
		t.Errorf("Expected 4 lines, got %q", text)
	}

	d.updateErrorBreakdown(metrics.Stats{})
	if !strings.Contains(d.errorPara.Text, "No connection errors") {
		t.Errorf("Expected placeholder, got %q", d.errorPara.Text)
	}
}

func TestFormatRunParams(t *testing.T) {
	tests := []struct {
		name     string
		config   RunConfig
		contains []string
		excludes []string
	}{
		{
			name: "basic config",
			config: RunConfig{
				URLCount:  3,
				Processes: 2,
				Threads:   10,
				Sessions:  4,
			},
			contains: []string{"URLs: 3", "Procs: 2", "Threads: 10", "Sessions: 4"},
			excludes: []string{"Sleep:", "Shuffled", "Offset:", "Dry run"},
		},
		{
			name: "pacing and ordering",
			config: RunConfig{
				Sleep:   250 * time.Millisecond,
				Shuffle: true,
				Offset:  2,
			},
			contains: []string{"Sleep: 250ms", "Shuffled", "Offset: 2"},
		},
		{
			name: "dry run",
			config: RunConfig{
				DryRun: true,
			},
			contains: []string{"Dry run"},
		},
		{
			name: "with config file",
			config: RunConfig{
				ConfigFile: "test.yml",
			},
			contains: []string{"Config: test.yml"},
		},
		{
			name: "with timeout",
			config: RunConfig{
				Timeout: 10 * time.Second,
			},
			contains: []string{"Timeout: 10s"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Dashboard{runConfig: tt.config}
			result := d.formatRunParams()

			for _, s := range tt.contains {
				if !strings.Contains(result, s) {
					t.Errorf("expected result to contain %q, got %q", s, result)
				}
			}

			for _, s := range tt.excludes {
				if strings.Contains(result, s) {
					t.Errorf("expected result NOT to contain %q, got %q", s, result)
				}
			}
		})
	}
}
