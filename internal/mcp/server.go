package mcp

import (
	"net/http"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"
)

const (
	serverName            = "autotrader-mcp"
	serverVersion         = "1.0.0"
	defaultRequestTimeout = 5 * time.Second
)

const instructions = `Read-only view of the autotrader engine. Nothing here places orders or changes bot state.
Tools: engine_status, activity_list, cache_health.
Resources: engine://watchlist, engine://risk-thresholds, engine://status and activity://{bot_id}.`

type ServerConfig struct {
	RequestTimeout time.Duration
}

// NewServer exposes src over MCP. Sources left nil make their tools and
// resources report the data as unavailable.
func NewServer(tracer trace.Tracer, src Sources, cfg ServerConfig) *sdkmcp.Server {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	srv := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, &sdkmcp.ServerOptions{
		Instructions: instructions,
	})
	// First listed runs outermost.
	srv.AddReceivingMiddleware(logRequests, traceRequests(tracer), withDeadline(timeout))

	registerTools(srv, src)
	registerResources(srv, src)
	return srv
}

// NewHTTPTransportHandler serves server over streamable HTTP behind the
// token, method and rate guard.
func NewHTTPTransportHandler(server *sdkmcp.Server, cfg HTTPHandlerConfig) http.Handler {
	base := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return server
	}, &sdkmcp.StreamableHTTPOptions{})
	return newGuard(base, cfg)
}
