package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/netfilter/conn/internal/metrics"
	"github.com/netfilter/conn/internal/runner"
	"github.com/netfilter/conn/internal/threshold"
)

// Report is the end-of-run summary.
type Report struct {
	RunID            string             `json:"run_id,omitempty"`
	Elapsed          time.Duration      `json:"-"`
	TimeSeconds      float64            `json:"time_seconds"`
	Bytes            int64              `json:"bytes"`
	Megabytes        float64            `json:"megabytes"`
	Mbps             float64            `json:"mbps"`
	Requests         int                `json:"requests"`
	MaxSimultaneous  int                `json:"max_simultaneous_requests"`
	ConnectionErrors int                `json:"connection_errors"`
	Stats            metrics.Stats      `json:"stats"`
	Thresholds       []ThresholdOutcome `json:"thresholds,omitempty"`
}

// ThresholdOutcome is the JSON form of a threshold result.
type ThresholdOutcome struct {
	Threshold string  `json:"threshold"`
	Actual    float64 `json:"actual"`
	Pass      bool    `json:"pass"`
}

// NewReport summarises agg over elapsed. Rate is zero when no time elapsed.
func NewReport(agg runner.Aggregate, elapsed time.Duration, maxSimultaneous int, stats metrics.Stats) Report {
	r := Report{
		Elapsed:          elapsed,
		TimeSeconds:      elapsed.Seconds(),
		Bytes:            agg.Bytes,
		Megabytes:        metrics.Megabytes(agg.Bytes),
		Requests:         agg.Requests,
		MaxSimultaneous:  maxSimultaneous,
		ConnectionErrors: agg.ErrorCount(),
		Stats:            stats,
	}
	if r.TimeSeconds > 0 {
		r.Mbps = metrics.Megabits(agg.Bytes) / r.TimeSeconds
	}
	return r
}

// WithThresholds attaches evaluated thresholds to the report.
func (r Report) WithThresholds(results []threshold.Result) Report {
	r.Thresholds = make([]ThresholdOutcome, 0, len(results))
	for _, res := range results {
		r.Thresholds = append(r.Thresholds, ThresholdOutcome{
			Threshold: res.Threshold.Raw,
			Actual:    res.Actual,
			Pass:      res.Pass,
		})
	}
	return r
}

// PrintReport writes the plain-text summary.
func PrintReport(w io.Writer, r Report) {
	fmt.Fprintf(w, "Time: %.3fs\n", r.TimeSeconds)
	fmt.Fprintf(w, "Bytes: %.2f MB\n", r.Megabytes)
	fmt.Fprintf(w, "Rate: %.2f mbps\n", r.Mbps)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Requests: %d\n", r.Requests)
	fmt.Fprintf(w, "Max Simultaneous Requests: %d\n", r.MaxSimultaneous)
	fmt.Fprintf(w, "Connection Errors: %d\n", r.ConnectionErrors)

	stats := r.Stats
	if stats.MaxLatency > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Latency:")
		fmt.Fprintf(w, "  Min:  %s\n", stats.MinLatency)
		fmt.Fprintf(w, "  Mean: %s\n", stats.MeanLatency)
		fmt.Fprintf(w, "  P50:  %s\n", stats.P50Latency)
		fmt.Fprintf(w, "  P90:  %s\n", stats.P90Latency)
		fmt.Fprintf(w, "  P95:  %s\n", stats.P95Latency)
		fmt.Fprintf(w, "  P99:  %s\n", stats.P99Latency)
		fmt.Fprintf(w, "  Max:  %s\n", stats.MaxLatency)
	}

	if len(stats.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Error Breakdown:")
		for _, name := range sortedByCount(stats.Errors) {
			fmt.Fprintf(w, "  %s: %d\n", name, stats.Errors[name])
		}
	}

	if len(stats.StatusBuckets) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Failed Statuses:")
		writeStatusBuckets(w, stats.StatusBuckets, "  ")
	}

	if len(stats.Hosts) > 1 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Hosts:")
		names := make([]string, 0, len(stats.Hosts))
		for name := range stats.Hosts {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			a, b := stats.Hosts[names[i]], stats.Hosts[names[j]]
			if a.Total == b.Total {
				return names[i] < names[j]
			}
			return a.Total > b.Total
		})
		for _, name := range names {
			host := stats.Hosts[name]
			share := 0.0
			if stats.Total > 0 {
				share = (float64(host.Total) / float64(stats.Total)) * 100
			}
			fmt.Fprintf(w, "  %s: %d requests (%.1f%%), %d failed, %.2f MB, P99 %.2fms\n",
				name, host.Total, share, host.Failures, metrics.Megabytes(host.Bytes), host.P99LatencyMs)
		}
	}

	if len(r.Thresholds) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Thresholds:")
		for _, t := range r.Thresholds {
			mark := "✓"
			if !t.Pass {
				mark = "✗"
			}
			fmt.Fprintf(w, "  %s %s (actual %.2f)\n", mark, t.Threshold, t.Actual)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func writeStatusBuckets(w io.Writer, buckets map[string]int, indent string) {
	for _, row := range metrics.FlattenStatusBuckets(buckets) {
		fmt.Fprintf(w, "%s%s: %d\n", indent, row.Code, row.Count)
	}
}

func sortedByCount(counts map[string]int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] == counts[names[j]] {
			return names[i] < names[j]
		}
		return counts[names[i]] > counts[names[j]]
	})
	return names
}
