package trace

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	otelTrace "go.opentelemetry.io/otel/trace"
)

// Tracer starts spans on an OpenTelemetry SDK provider.
type Tracer struct {
	log      zerolog.Logger
	provider *sdktrace.TracerProvider
	tracer   otelTrace.Tracer
}

// NewTracer creates a tracer for serviceName. opts configure where spans go, e.g.
// sdktrace.WithBatcher(exporter).
func NewTracer(log zerolog.Logger, serviceName string, opts ...sdktrace.TracerProviderOption) *Tracer {
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))
	provider := sdktrace.NewTracerProvider(append([]sdktrace.TracerProviderOption{sdktrace.WithResource(res)}, opts...)...)
	return &Tracer{
		log:      log.With().Str("component", "tracer").Logger(),
		provider: provider,
		tracer:   provider.Tracer(serviceName),
	}
}

// NewOTLPTracer creates a tracer exporting spans in batches to the OTLP gRPC collector at endpoint.
func NewOTLPTracer(ctx context.Context, log zerolog.Logger, serviceName string, endpoint string) (*Tracer, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create trace exporter for %s: %w", endpoint, err)
	}
	t := NewTracer(log, serviceName, sdktrace.WithBatcher(exporter))
	t.log.Info().Str("endpoint", endpoint).Msg("exporting spans")
	return t, nil
}

// Shutdown flushes pending spans and stops the exporter.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if err := t.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("could not shut down tracer: %w", err)
	}
	return nil
}

// StartSpanFromContext starts a span as a child of the span carried by ctx, if any. The returned
// context carries the new span.
func (t *Tracer) StartSpanFromContext(ctx context.Context, operationName SpanName, opts ...otelTrace.SpanStartOption) (otelTrace.Span, context.Context) {
	ctx, span := t.tracer.Start(ctx, string(operationName), opts...)
	return span, ctx
}

// WithSpanFromContext runs f within a span started from ctx.
func (t *Tracer) WithSpanFromContext(ctx context.Context, operationName SpanName, f func(), opts ...otelTrace.SpanStartOption) {
	span, _ := t.StartSpanFromContext(ctx, operationName, opts...)
	defer span.End()
	f()
}

// EndSpan ends span, marking it failed with err when err is not nil.
func EndSpan(span otelTrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
