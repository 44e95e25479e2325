package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartRunSpan starts the root span covering a whole load run.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, runID string, sessions, threads int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "conn run")
	span.SetAttributes(
		attribute.String("conn.run_id", runID),
		attribute.Int("conn.sessions", sessions),
		attribute.Int("conn.threads", threads),
	)
	return ctx, span
}

// StartSessionSpan starts a span for one session invocation.
func StartSessionSpan(ctx context.Context, tracer trace.Tracer, index, offset int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "conn session")
	span.SetAttributes(
		attribute.Int("conn.session.index", index),
		attribute.Int("conn.session.offset", offset),
	)
	return ctx, span
}

// StartRequestSpan starts a client span for a single GET.
func StartRequestSpan(ctx context.Context, tracer trace.Tracer, url string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "GET",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("http.request.method", http.MethodGet),
		attribute.String("url.full", url),
	)
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
