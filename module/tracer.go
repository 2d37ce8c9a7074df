package module

import (
	"context"

	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/osmosis-labs/cosmos-gravity-bridge/module/trace"
)

var (
	_ Tracer = &trace.Tracer{}
	_ Tracer = &trace.NoopTracer{}
)

// Tracer starts the spans of a scenario run.
type Tracer interface {
	// StartSpanFromContext starts a span as a child of the span carried by ctx and returns the
	// context carrying the new span, for nested calls.
	StartSpanFromContext(
		ctx context.Context,
		operationName trace.SpanName,
		opts ...otelTrace.SpanStartOption,
	) (
		otelTrace.Span,
		context.Context,
	)

	// WithSpanFromContext runs f within a span started from ctx and ends the span once f returns.
	WithSpanFromContext(
		ctx context.Context,
		operationName trace.SpanName,
		f func(),
		opts ...otelTrace.SpanStartOption,
	)
}
