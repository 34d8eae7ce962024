package tracing

import (
	"context"
	"testing"
)

func TestInitTracerWithoutEndpoint(t *testing.T) {
	ctx := context.Background()
	tp, tracer, err := InitTracer(ctx, "  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer tp.Shutdown(ctx)

	_, span := tracer.Start(ctx, "test.span")
	if !span.SpanContext().IsValid() {
		t.Fatal("expected a recording span with a valid context")
	}
	span.End()
}

func TestInitTracerWithEndpoint(t *testing.T) {
	ctx := context.Background()
	tp, tracer, err := InitTracer(ctx, "localhost:4317")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tracer == nil {
		t.Fatal("expected tracer")
	}
	_ = tp.Shutdown(ctx)
}
