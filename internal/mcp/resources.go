package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerResources(server *mcp.Server, src Sources) {
	server.AddResource(&mcp.Resource{
		URI:         "engine://watchlist",
		Name:        "watchlist",
		Description: "Symbols refreshed every tick in addition to the bots' own symbols",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if src.Engine == nil {
			return nil, fmt.Errorf("engine unavailable")
		}
		return jsonResource(req.Params.URI, src.Engine.Watchlist())
	})

	server.AddResource(&mcp.Resource{
		URI:         "engine://risk-thresholds",
		Name:        "risk-thresholds",
		Description: "Maximum composite risk score accepted at each risk level, and the minimum signal confidence",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return jsonResource(req.Params.URI, riskThresholds())
	})

	server.AddResource(&mcp.Resource{
		URI:         "engine://status",
		Name:        "engine-status",
		Description: "Scheduler statuses and per-bot pipeline phases",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return jsonResource(req.Params.URI, engineStatus(src))
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "activity://{bot_id}{?kind,limit}",
		Name:        "bot-activity",
		Description: "Recent activity of one bot with optional kind/limit query params",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if src.Activities == nil {
			return nil, fmt.Errorf("activity store unavailable")
		}

		parsed, err := url.Parse(req.Params.URI)
		if err != nil || parsed.Scheme != "activity" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}

		input := activityListInput{
			BotID: parsed.Host,
			Kind:  parsed.Query().Get("kind"),
		}
		if rawLimit := strings.TrimSpace(parsed.Query().Get("limit")); rawLimit != "" {
			n, err := strconv.Atoi(rawLimit)
			if err != nil {
				return nil, fmt.Errorf("invalid limit: %s", rawLimit)
			}
			input.Limit = n
		}

		filter, err := normalizeActivityFilter(input)
		if err != nil {
			return nil, err
		}
		records, err := src.Activities.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, activityListOutput{BotID: filter.BotID, Activity: records})
	})
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
