// Package tracing provides OpenTelemetry initialization and W3C trace context propagation.
package tracing

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/netfilter/conn/internal/config"
)

const (
	instrumentationName = "github.com/netfilter/conn"
	defaultServiceName  = "conn"
)

// Run identifies one load run and its shape. It becomes the OTel resource,
// so every span the run exports carries it.
type Run struct {
	ID        string // run ULID, exported as service.instance.id
	Processes int
	Threads   int
	Sessions  int // total sessions (repeat)
}

func (r Run) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceVersion(config.Version),
		attribute.Int("conn.run.processes", r.Processes),
		attribute.Int("conn.run.threads", r.Threads),
		attribute.Int("conn.run.sessions", r.Sessions),
	}
	if r.ID != "" {
		attrs = append(attrs, semconv.ServiceInstanceID(r.ID))
	}
	return attrs
}

// Provider owns the run's TracerProvider. The zero value and a nil Provider
// are disabled: they hand out no-op tracers and never propagate.
type Provider struct {
	tp        *sdktrace.TracerProvider
	res       *resource.Resource
	tracer    trace.Tracer
	propagate bool
}

// Init exports spans for run to the configured OTLP endpoint. Without an
// endpoint it returns a disabled provider. When enabled, the provider and a
// TraceContext+Baggage propagator are installed globally.
func Init(ctx context.Context, cfg config.TracingConfig, run Run) (*Provider, error) {
	if !cfg.Enabled() {
		return &Provider{}, nil
	}

	sampler, err := newSampler(cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	res, err := newResource(ctx, cfg.ServiceName, run)
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}
	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("tracing exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{
		tp:        tp,
		res:       res,
		tracer:    tp.Tracer(instrumentationName),
		propagate: cfg.ShouldPropagate(),
	}, nil
}

// Tracer returns the run's tracer, or a no-op tracer when disabled.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tracer == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return p.tracer
}

// Resource describes the run to the collector. Nil when disabled.
func (p *Provider) Resource() *resource.Resource {
	if p == nil {
		return nil
	}
	return p.res
}

// ShouldPropagate reports whether requests carry W3C trace headers.
func (p *Provider) ShouldPropagate() bool {
	return p != nil && p.propagate
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

// newSampler maps a sample rate onto a sampler: 1 keeps every trace, 0 none.
func newSampler(rate float64) (sdktrace.Sampler, error) {
	switch {
	case rate < 0 || rate > 1:
		return nil, fmt.Errorf("tracing sample_rate must be between 0.0 and 1.0, got %g", rate)
	case rate == 0:
		return sdktrace.NeverSample(), nil
	case rate == 1:
		return sdktrace.AlwaysSample(), nil
	default:
		return sdktrace.TraceIDRatioBased(rate), nil
	}
}

// newResource layers service.name: "conn", then OTEL_SERVICE_NAME and
// OTEL_RESOURCE_ATTRIBUTES, then an explicit service name. The run
// attributes always win.
func newResource(ctx context.Context, serviceName string, run Run) (*resource.Resource, error) {
	opts := []resource.Option{
		resource.WithAttributes(semconv.ServiceName(defaultServiceName)),
		resource.WithFromEnv(),
	}
	if name := strings.TrimSpace(serviceName); name != "" {
		opts = append(opts, resource.WithAttributes(semconv.ServiceName(name)))
	}
	opts = append(opts, resource.WithAttributes(run.attributes()...))
	return resource.New(ctx, opts...)
}

func newExporter(ctx context.Context, cfg config.TracingConfig) (sdktrace.SpanExporter, error) {
	switch protocol := strings.ToLower(strings.TrimSpace(cfg.Protocol)); protocol {
	case "", "grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts,
				otlptracegrpc.WithInsecure(),
				otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			)
		}
		return otlptracegrpc.New(ctx, opts...)
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q: use \"grpc\" or \"http\"", cfg.Protocol)
	}
}
