// Package threshold evaluates pass/fail assertions against end-of-run stats.
//
// An assertion reads "metric:aggregate operator value", for example
//
//	http_req_duration:p95 < 500     latency percentile in ms
//	http_req_failed:rate < 0.01     failed share of all requests
//	http_requests:count >= 1000     requests issued
//	data_received:rate > 8          megabits per second
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/netfilter/conn/internal/metrics"
)

var thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

const epsilon = 1e-9

type extractor func(metrics.Stats) float64

// aggregates lists, per metric, how each aggregate is read from Stats.
var aggregates = map[string]map[string]extractor{
	"http_req_duration": {
		"p50":  func(s metrics.Stats) float64 { return s.P50LatencyMs },
		"p90":  func(s metrics.Stats) float64 { return s.P90LatencyMs },
		"p95":  func(s metrics.Stats) float64 { return s.P95LatencyMs },
		"p99":  func(s metrics.Stats) float64 { return s.P99LatencyMs },
		"avg":  func(s metrics.Stats) float64 { return s.MeanLatencyMs },
		"mean": func(s metrics.Stats) float64 { return s.MeanLatencyMs },
		"min":  func(s metrics.Stats) float64 { return s.MinLatencyMs },
		"max":  func(s metrics.Stats) float64 { return s.MaxLatencyMs },
	},
	"http_req_failed": {
		"count": func(s metrics.Stats) float64 { return float64(s.Failures) },
		"rate": func(s metrics.Stats) float64 {
			if s.Total == 0 {
				return 0
			}
			return float64(s.Failures) / float64(s.Total)
		},
	},
	"http_requests": {
		"count": func(s metrics.Stats) float64 { return float64(s.Total) },
		"rate":  func(s metrics.Stats) float64 { return s.RequestsPerSec },
	},
	"data_received": {
		"count": func(s metrics.Stats) float64 { return float64(s.Bytes) },
		"rate":  func(s metrics.Stats) float64 { return s.Mbps },
	},
}

var operators = map[string]func(actual, expected float64) bool{
	"<":  func(a, e float64) bool { return a < e },
	"<=": func(a, e float64) bool { return a <= e || math.Abs(a-e) < epsilon },
	">":  func(a, e float64) bool { return a > e },
	">=": func(a, e float64) bool { return a >= e || math.Abs(a-e) < epsilon },
	"==": func(a, e float64) bool { return math.Abs(a-e) < epsilon },
}

// Threshold is one parsed assertion.
type Threshold struct {
	Metric    string
	Aggregate string
	Operator  string
	Value     float64
	Raw       string // as written, for display
}

// Result is the outcome of checking one Threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

type Evaluator struct {
	thresholds []Threshold
}

func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks every threshold in declaration order.
func (e *Evaluator) Evaluate(stats metrics.Stats) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}
	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, t.Check(stats))
	}
	return results
}

// Check compares the threshold against stats. A threshold that was not built
// by Parse and names an unknown metric or operator fails.
func (t Threshold) Check(stats metrics.Stats) Result {
	read, ok := aggregates[t.Metric][t.Aggregate]
	compare, opOK := operators[t.Operator]
	if !ok || !opOK {
		return Result{Threshold: t, Message: fmt.Sprintf("✗ %s: unsupported threshold", t.Raw)}
	}

	actual := read(stats)
	pass := compare(actual, t.Value)
	mark := "✓"
	if !pass {
		mark = "✗"
	}
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", mark, t.Raw, actual, t.Operator, t.Value),
	}
}

// Parse reads one assertion. The aggregate must be valid for the metric.
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	m := thresholdPattern.FindStringSubmatch(s)
	if m == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected metric:aggregate operator value, e.g. 'http_req_duration:p95 < 500')", s)
	}
	metric, aggregate, operator := m[1], m[2], m[3]

	value, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %w", m[4], err)
	}

	byAggregate, ok := aggregates[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: %s)", metric, strings.Join(keys(aggregates), ", "))
	}
	if _, ok := byAggregate[aggregate]; !ok {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(keys(byAggregate), ", "))
	}
	if _, ok := operators[operator]; !ok {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses every assertion and reports all malformed ones at once.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errs *multierror.Error
	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("threshold[%d]: %w", i, err))
			continue
		}
		result = append(result, t)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return result, nil
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
