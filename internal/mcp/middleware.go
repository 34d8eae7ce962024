package mcp

import (
	"context"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func withDeadline(timeout time.Duration) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next(ctx, method, req)
		}
	}
}

func traceRequests(tracer trace.Tracer) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		if tracer == nil {
			return next
		}
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			ctx, span := tracer.Start(ctx, spanName(method, req))
			defer span.End()
			span.SetAttributes(attribute.String("mcp.method", method))
			if target := requestTarget(req); target != "" {
				span.SetAttributes(attribute.String("mcp.target", target))
			}

			result, err := next(ctx, method, req)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return result, err
		}
	}
}

func logRequests(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
	return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
		started := time.Now()
		result, err := next(ctx, method, req)

		ev := log.Debug()
		if err != nil {
			ev = log.Warn().Err(err)
		}
		ev.Str("mcp_method", method).
			Str("target", requestTarget(req)).
			Dur("elapsed", time.Since(started)).
			Msg("mcp request")
		return result, err
	}
}

// spanName is "mcp.<tool>" for tool calls, "mcp.<scheme>.read" for resource
// reads and the dotted method name otherwise.
func spanName(method string, req sdkmcp.Request) string {
	target := requestTarget(req)
	switch method {
	case "tools/call":
		if target != "" {
			return "mcp." + target
		}
	case "resources/read":
		if scheme, _, ok := strings.Cut(target, "://"); ok && scheme != "" {
			return "mcp." + scheme + ".read"
		}
	}
	return "mcp." + strings.ReplaceAll(method, "/", ".")
}

// requestTarget names the tool or resource a request addresses.
func requestTarget(req sdkmcp.Request) string {
	switch r := req.(type) {
	case *sdkmcp.CallToolRequest:
		if r.Params != nil {
			return strings.TrimSpace(r.Params.Name)
		}
	case *sdkmcp.ReadResourceRequest:
		if r.Params != nil {
			return strings.TrimSpace(r.Params.URI)
		}
	}
	return ""
}
