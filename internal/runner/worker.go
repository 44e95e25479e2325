package runner

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/netfilter/conn/internal/cycle"
	"github.com/netfilter/conn/internal/httpclient"
	"github.com/netfilter/conn/internal/metrics"
	"github.com/netfilter/conn/internal/tracing"
)

// Worker issues exactly one request against the next URL of its cycle.
type Worker struct {
	Cycle     *cycle.Cycle
	Fetcher   Fetcher
	Sleep     time.Duration
	DryRun    bool
	Display   Display
	Tracer    trace.Tracer
	Collector *metrics.Collector
}

// Run draws a URL, sleeps, then fetches it. It returns the body length on
// success. Every failure is a *ConnectError, except a recovered panic which
// is an *UnexpectedError.
func (w *Worker) Run(ctx context.Context) (n int64, err error) {
	target := w.Cycle.Next()

	var start time.Time
	if w.Collector != nil {
		w.Collector.RequestStarted()
	}
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, &UnexpectedError{URL: target, Value: r}
		}
		w.record(target, start, n, err)
	}()

	if err := sleepContext(ctx, w.Sleep); err != nil {
		return 0, &ConnectError{URL: target, Err: err}
	}

	if w.DryRun {
		if w.Display != nil {
			w.Display.ShowURL(target)
		}
		return 0, nil
	}

	if w.Tracer != nil {
		var span trace.Span
		ctx, span = tracing.StartRequestSpan(ctx, w.Tracer, target)
		defer func() {
			tracing.EndSpan(span, err, attribute.Int64("http.response.body.size", n))
		}()
	}

	start = time.Now()
	n, err = w.Fetcher.Fetch(ctx, target)
	if err != nil {
		return 0, &ConnectError{URL: target, Err: err}
	}
	return n, nil
}

func (w *Worker) record(target string, start time.Time, n int64, err error) {
	if w.Collector == nil {
		return
	}
	var latency time.Duration
	if !start.IsZero() {
		latency = time.Since(start)
	}
	meta := &metrics.RequestMetadata{}
	if u, perr := url.Parse(target); perr == nil {
		meta.Host = u.Host
	}
	var httpErr *httpclient.HTTPError
	var connErr *ConnectError
	switch {
	case errors.As(err, &httpErr):
		meta.StatusCode = strconv.Itoa(httpErr.StatusCode)
	case errors.As(err, &connErr):
		meta.StatusCode = "network"
	}
	w.Collector.RecordRequest(latency, n, err, meta)
}

// sleepContext pauses for d, returning early with the context error on cancellation.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
