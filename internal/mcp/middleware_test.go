package mcp

import (
	"context"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpanName(t *testing.T) {
	cases := []struct {
		method string
		req    sdkmcp.Request
		want   string
	}{
		{"tools/call", &sdkmcp.CallToolRequest{Params: &sdkmcp.CallToolParamsRaw{Name: "activity_list"}}, "mcp.activity_list"},
		{"tools/call", &sdkmcp.CallToolRequest{}, "mcp.tools.call"},
		{"resources/read", &sdkmcp.ReadResourceRequest{Params: &sdkmcp.ReadResourceParams{URI: "activity://bot-1?limit=5"}}, "mcp.activity.read"},
		{"resources/read", &sdkmcp.ReadResourceRequest{Params: &sdkmcp.ReadResourceParams{URI: "engine://status"}}, "mcp.engine.read"},
		{"tools/list", nil, "mcp.tools.list"},
	}
	for _, tc := range cases {
		if got := spanName(tc.method, tc.req); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.method, tc.want, got)
		}
	}
}

func TestWithDeadlineBoundsHandlers(t *testing.T) {
	var deadline time.Time
	h := withDeadline(50 * time.Millisecond)(func(ctx context.Context, _ string, _ sdkmcp.Request) (sdkmcp.Result, error) {
		deadline, _ = ctx.Deadline()
		return nil, nil
	})
	if _, err := h(context.Background(), "tools/call", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deadline.IsZero() || time.Until(deadline) > 50*time.Millisecond {
		t.Fatalf("expected a deadline within 50ms, got %v", deadline)
	}
}

func TestToolCallsAreTraced(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	srv := NewServer(tp.Tracer("test"), testSources(), ServerConfig{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	session, stop, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer stop()
	defer session.Close()

	if _, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "cache_health", Arguments: map[string]any{}}); err != nil {
		t.Fatalf("call failed: %v", err)
	}

	found := false
	for _, s := range exporter.GetSpans() {
		if s.Name == "mcp.cache_health" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an mcp.cache_health span, got %d spans", len(exporter.GetSpans()))
	}
}
