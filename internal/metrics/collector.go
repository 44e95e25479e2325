package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// RequestMetadata describes the target and outcome of one request.
type RequestMetadata struct {
	Host       string // URL host, used for the per-host breakdown
	StatusCode string // HTTP status of a failed request, or "network" when no response arrived
}

// Observer receives every recorded request. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveRequest(latency time.Duration, bytes int64, errorClass string)
}

// Collector records per-request metrics in a thread-safe manner.
type Collector struct {
	mu            sync.Mutex
	hist          *hdrhistogram.Histogram
	successes     int64
	failures      int64
	bytes         int64
	inFlight      int64
	sessions      int64
	minLatency    time.Duration
	maxLatency    time.Duration
	sumLatency    time.Duration
	errorsByType  map[string]int64
	statusBuckets map[string]int64
	hosts         map[string]*hostBucket
	observers     []Observer
	start         time.Time
}

type hostBucket struct {
	hist      *hdrhistogram.Histogram
	successes int64
	failures  int64
	bytes     int64
}

// Stats represents aggregated metrics.
type Stats struct {
	Total          int64         `json:"total"`
	Successes      int64         `json:"successes"`
	Failures       int64         `json:"failures"`
	Bytes          int64         `json:"bytes"`
	InFlight       int64         `json:"-"`
	Sessions       int64         `json:"sessions_completed"`
	MinLatency     time.Duration `json:"-"`
	MaxLatency     time.Duration `json:"-"`
	MeanLatency    time.Duration `json:"-"`
	P50Latency     time.Duration `json:"-"`
	P90Latency     time.Duration `json:"-"`
	P95Latency     time.Duration `json:"-"`
	P99Latency     time.Duration `json:"-"`
	Duration       time.Duration `json:"-"`
	RequestsPerSec float64       `json:"requests_per_sec"`
	Mbps           float64       `json:"mbps"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64              `json:"min_latency_ms"`
	MaxLatencyMs  float64              `json:"max_latency_ms"`
	MeanLatencyMs float64              `json:"mean_latency_ms"`
	P50LatencyMs  float64              `json:"p50_latency_ms"`
	P90LatencyMs  float64              `json:"p90_latency_ms"`
	P95LatencyMs  float64              `json:"p95_latency_ms"`
	P99LatencyMs  float64              `json:"p99_latency_ms"`
	DurationMs    float64              `json:"duration_ms"`
	Errors        map[string]int       `json:"errors,omitempty"`
	StatusBuckets map[string]int       `json:"status_buckets,omitempty"`
	Hosts         map[string]HostStats `json:"hosts,omitempty"`
}

// HostStats is the per-host slice of Stats.
type HostStats struct {
	Total          int64   `json:"total"`
	Failures       int64   `json:"failures"`
	Bytes          int64   `json:"bytes"`
	P50LatencyMs   float64 `json:"p50_latency_ms"`
	P99LatencyMs   float64 `json:"p99_latency_ms"`
	RequestsPerSec float64 `json:"requests_per_sec"`
}

func newHistogram() *hdrhistogram.Histogram {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return hdrhistogram.New(1, 60_000_000, 3)
}

func NewCollector() *Collector {
	return &Collector{
		hist:          newHistogram(),
		errorsByType:  make(map[string]int64),
		statusBuckets: make(map[string]int64),
		hosts:         make(map[string]*hostBucket),
		start:         time.Now(),
	}
}

// AddObserver registers o to be notified of every recorded request.
func (c *Collector) AddObserver(o Observer) {
	if o == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// RequestStarted marks a request as in flight until its RecordRequest call.
func (c *Collector) RequestStarted() {
	c.mu.Lock()
	c.inFlight++
	c.mu.Unlock()
}

// SessionCompleted counts one finished session.
func (c *Collector) SessionCompleted() {
	c.mu.Lock()
	c.sessions++
	c.mu.Unlock()
}

// RecordRequest records a single request's latency, body size and error state.
// Bytes from failed requests are not counted.
func (c *Collector) RecordRequest(latency time.Duration, bytes int64, err error, meta *RequestMetadata) {
	class := ""
	if err != nil {
		class = ErrorClass(err)
	}

	c.mu.Lock()
	if c.inFlight > 0 {
		c.inFlight--
	}
	recordLatency(c.hist, latency)
	c.sumLatency += latency

	if c.minLatency == 0 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}

	var host *hostBucket
	if meta != nil && meta.Host != "" {
		host = c.hosts[meta.Host]
		if host == nil {
			host = &hostBucket{hist: newHistogram()}
			c.hosts[meta.Host] = host
		}
		recordLatency(host.hist, latency)
	}

	if err == nil {
		c.successes++
		c.bytes += bytes
		if host != nil {
			host.successes++
			host.bytes += bytes
		}
	} else {
		c.failures++
		c.errorsByType[class]++
		if meta != nil && meta.StatusCode != "" {
			c.statusBuckets[meta.StatusCode]++
		}
		if host != nil {
			host.failures++
		}
	}
	observers := c.observers
	c.mu.Unlock()

	if err != nil {
		bytes = 0
	}
	for _, o := range observers {
		o.ObserveRequest(latency, bytes, class)
	}
}

func recordLatency(h *hdrhistogram.Histogram, latency time.Duration) {
	if latency <= 0 {
		return
	}
	us := latency.Microseconds()
	if us < h.LowestTrackableValue() {
		us = h.LowestTrackableValue()
	}
	if us > h.HighestTrackableValue() {
		us = h.HighestTrackableValue()
	}
	_ = h.RecordValue(us)
}

// Elapsed returns the time since the collector was created.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.start)
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.successes + c.failures
	stats := Stats{
		Total:      total,
		Successes:  c.successes,
		Failures:   c.failures,
		Bytes:      c.bytes,
		InFlight:   c.inFlight,
		Sessions:   c.sessions,
		MinLatency: c.minLatency,
		MaxLatency: c.maxLatency,
	}

	if total > 0 {
		stats.MeanLatency = time.Duration(int64(c.sumLatency) / total)
	}

	if c.hist.TotalCount() > 0 {
		stats.P50Latency = quantile(c.hist, 50)
		stats.P90Latency = quantile(c.hist, 90)
		stats.P95Latency = quantile(c.hist, 95)
		stats.P99Latency = quantile(c.hist, 99)
	}

	stats.MinLatencyMs = toMs(stats.MinLatency)
	stats.MaxLatencyMs = toMs(stats.MaxLatency)
	stats.MeanLatencyMs = toMs(stats.MeanLatency)
	stats.P50LatencyMs = toMs(stats.P50Latency)
	stats.P90LatencyMs = toMs(stats.P90Latency)
	stats.P95LatencyMs = toMs(stats.P95Latency)
	stats.P99LatencyMs = toMs(stats.P99Latency)

	stats.Duration = elapsed
	stats.DurationMs = toMs(elapsed)
	if elapsed > 0 {
		if total > 0 {
			stats.RequestsPerSec = float64(total) / elapsed.Seconds()
		}
		stats.Mbps = Megabits(c.bytes) / elapsed.Seconds()
	}

	if len(c.errorsByType) > 0 {
		stats.Errors = make(map[string]int, len(c.errorsByType))
		for k, v := range c.errorsByType {
			stats.Errors[k] = int(v)
		}
	}
	if len(c.statusBuckets) > 0 {
		stats.StatusBuckets = make(map[string]int, len(c.statusBuckets))
		for k, v := range c.statusBuckets {
			stats.StatusBuckets[k] = int(v)
		}
	}
	if len(c.hosts) > 0 {
		stats.Hosts = make(map[string]HostStats, len(c.hosts))
		for name, h := range c.hosts {
			hs := HostStats{
				Total:    h.successes + h.failures,
				Failures: h.failures,
				Bytes:    h.bytes,
			}
			if h.hist.TotalCount() > 0 {
				hs.P50LatencyMs = toMs(quantile(h.hist, 50))
				hs.P99LatencyMs = toMs(quantile(h.hist, 99))
			}
			if elapsed > 0 {
				hs.RequestsPerSec = float64(hs.Total) / elapsed.Seconds()
			}
			stats.Hosts[name] = hs
		}
	}

	return stats
}

// GetErrorBreakdown returns a map of error classes to their counts.
func (c *Collector) GetErrorBreakdown() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make(map[string]int)
	for k, v := range c.errorsByType {
		result[k] = int(v)
	}
	return result
}

// Megabytes converts a byte count to binary megabytes.
func Megabytes(bytes int64) float64 {
	return float64(bytes) / (1024 * 1024)
}

// Megabits converts a byte count to binary megabits.
func Megabits(bytes int64) float64 {
	return Megabytes(bytes) * 8
}

// ErrorClass labels err for breakdowns. Timeouts and cancellations get fixed
// labels; anything else is named after the innermost wrapped error type.
func ErrorClass(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "Canceled"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Timeout"
	}
	inner := err
	for {
		next := errors.Unwrap(inner)
		if next == nil {
			break
		}
		inner = next
	}
	return FriendlyErrorName(fmt.Sprintf("%T", inner))
}

func quantile(h *hdrhistogram.Histogram, q float64) time.Duration {
	return time.Duration(h.ValueAtQuantile(q)) * time.Microsecond
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
