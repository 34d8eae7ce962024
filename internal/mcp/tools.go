package mcp

import (
	"context"
	"fmt"

	"autotrader/internal/domain"
	"autotrader/internal/job"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerTools(server *mcp.Server, src Sources) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "engine_status",
		Description: "Scheduler statuses, per-bot pipeline phase, watchlist and daily trade cap",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ engineStatusInput) (*mcp.CallToolResult, engineStatusOutput, error) {
		return nil, engineStatus(src), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "activity_list",
		Description: "Most recent activity records for a bot, optionally filtered by kind",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in activityListInput) (*mcp.CallToolResult, activityListOutput, error) {
		if src.Activities == nil {
			return nil, activityListOutput{}, fmt.Errorf("activity store unavailable")
		}
		filter, err := normalizeActivityFilter(in)
		if err != nil {
			return nil, activityListOutput{}, err
		}
		records, err := src.Activities.List(ctx, filter)
		if err != nil {
			return nil, activityListOutput{}, err
		}
		return nil, activityListOutput{BotID: filter.BotID, Activity: records}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cache_health",
		Description: "Market data cache statistics and traffic-light health",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ cacheHealthInput) (*mcp.CallToolResult, cacheHealthOutput, error) {
		if src.Cache == nil {
			return nil, cacheHealthOutput{}, fmt.Errorf("cache unavailable")
		}
		return nil, cacheHealthOutput{Health: src.Cache.Health()}, nil
	})
}

func engineStatus(src Sources) engineStatusOutput {
	out := engineStatusOutput{
		Schedulers: []job.SchedulerStatus{},
		Phases:     map[string]domain.BotPhase{},
		Watchlist:  []string{},
	}
	if src.Schedulers != nil {
		out.Schedulers = src.Schedulers.List()
	}
	if src.Engine != nil {
		out.Phases = src.Engine.Phases().Snapshot()
		out.Watchlist = src.Engine.Watchlist()
		out.DailyTradeCap = src.Engine.DailyTradeCap()
	}
	return out
}
