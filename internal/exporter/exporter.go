// Package exporter publishes live run metrics in the Prometheus exposition format.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "conn"

// Exporter implements metrics.Observer and serves what it observed on /metrics
// from its own registry.
type Exporter struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	bytes    prometheus.Counter
	latency  prometheus.Histogram

	server   *http.Server
	listener net.Listener
}

// New creates an exporter whose series carry the run_id label.
func New(runID string) *Exporter {
	labels := prometheus.Labels{"run_id": runID}
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "requests_total",
			Help:        "Requests issued, by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "request_errors_total",
			Help:        "Failed requests, by error class.",
			ConstLabels: labels,
		}, []string{"class"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "received_bytes_total",
			Help:        "Response body bytes read from successful requests.",
			ConstLabels: labels,
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "request_duration_seconds",
			Help:        "Time from sending a request to reading its whole body.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
	}
	e.registry.MustRegister(e.requests, e.errors, e.bytes, e.latency)
	return e
}

// ObserveRequest records one request outcome. An empty errorClass means success.
func (e *Exporter) ObserveRequest(latency time.Duration, bytes int64, errorClass string) {
	if errorClass == "" {
		e.requests.WithLabelValues("success").Inc()
		e.bytes.Add(float64(bytes))
	} else {
		e.requests.WithLabelValues("failure").Inc()
		e.errors.WithLabelValues(errorClass).Inc()
	}
	if latency > 0 {
		e.latency.Observe(latency.Seconds())
	}
}

// Registry exposes the exporter's registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry in the Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Serve binds addr and serves /metrics in the background. Binding errors are
// returned immediately; later server errors are logged.
func (e *Exporter) Serve(addr string, log logrus.FieldLogger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	e.listener = ln
	e.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := e.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	log.WithField("addr", ln.Addr().String()).Info("serving prometheus metrics")
	return nil
}

// Addr is the bound listener address, or "" before Serve.
func (e *Exporter) Addr() string {
	if e.listener == nil {
		return ""
	}
	return e.listener.Addr().String()
}

// Close stops the metrics server.
func (e *Exporter) Close(ctx context.Context) error {
	if e.server == nil {
		return nil
	}
	return e.server.Shutdown(ctx)
}
