package trace_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/osmosis-labs/cosmos-gravity-bridge/module/trace"
	"github.com/osmosis-labs/cosmos-gravity-bridge/utils/unittest"
)

func TestTracer_ChildSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := trace.NewTracer(unittest.Logger(), "test", sdktrace.WithSpanProcessor(recorder))

	root, ctx := tracer.StartSpanFromContext(context.Background(), trace.ScenarioRun)
	child, _ := tracer.StartSpanFromContext(ctx, trace.ScenarioState("baseline"))
	trace.EndSpan(child, errors.New("validators disagree"))
	tracer.WithSpanFromContext(ctx, trace.VoteCollection, func() {})
	trace.EndSpan(root, nil)

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	assert.Equal(t, "scenario.state.baseline", spans[0].Name())
	assert.Equal(t, root.SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "validators disagree", spans[0].Status().Description)

	assert.Equal(t, string(trace.VoteCollection), spans[1].Name())
	assert.Equal(t, root.SpanContext().SpanID(), spans[1].Parent().SpanID())

	assert.Equal(t, string(trace.ScenarioRun), spans[2].Name())
	assert.False(t, spans[2].Parent().IsValid())
	assert.Equal(t, codes.Unset, spans[2].Status().Code)

	require.NoError(t, tracer.Shutdown(context.Background()))
}

// TestNoopTracer checks that the noop tracer never records and never ends a span it did not start.
func TestNoopTracer(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	recording := trace.NewTracer(unittest.Logger(), "test", sdktrace.WithSpanProcessor(recorder))
	parent, ctx := recording.StartSpanFromContext(context.Background(), trace.ScenarioRun)

	noop := trace.NewNoopTracer()
	span, spanCtx := noop.StartSpanFromContext(ctx, trace.FalseClaimInjection)
	assert.False(t, span.IsRecording())
	assert.Equal(t, ctx, spanCtx)
	trace.EndSpan(span, errors.New("ignored"))
	assert.True(t, parent.IsRecording())
	assert.Empty(t, recorder.Ended())

	called := false
	noop.WithSpanFromContext(ctx, trace.VoteCollection, func() { called = true })
	assert.True(t, called)
}
