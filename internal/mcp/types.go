package mcp

import (
	"fmt"
	"strings"

	"autotrader/internal/cache"
	"autotrader/internal/domain"
	"autotrader/internal/job"
	"autotrader/internal/risk"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

type engineStatusInput struct{}

type engineStatusOutput struct {
	Schedulers    []job.SchedulerStatus      `json:"schedulers"`
	Phases        map[string]domain.BotPhase `json:"phases"`
	Watchlist     []string                   `json:"watchlist"`
	DailyTradeCap int                        `json:"daily_trade_cap"`
}

type activityListInput struct {
	BotID string `json:"bot_id" jsonschema:"bot id whose activity to list"`
	Kind  string `json:"kind,omitempty" jsonschema:"optional kind: signal_generated, risk_rejected, order_placed, order_filled, order_failed, eod_close, skipped, error"`
	Limit int    `json:"limit,omitempty" jsonschema:"number of records to return, max 500"`
}

type activityListOutput struct {
	BotID    string                  `json:"bot_id"`
	Activity []domain.ActivityRecord `json:"activity"`
}

type cacheHealthInput struct{}

type cacheHealthOutput struct {
	Health cache.Health `json:"health"`
}

type riskThreshold struct {
	Level     int     `json:"level"`
	Threshold float64 `json:"threshold"`
}

type riskThresholdsOutput struct {
	Levels        []riskThreshold `json:"levels"`
	MinConfidence float64         `json:"min_confidence"`
}

func riskThresholds() riskThresholdsOutput {
	out := riskThresholdsOutput{MinConfidence: risk.MinConfidence}
	for level := domain.RiskLevel1; level <= domain.RiskLevel5; level++ {
		out.Levels = append(out.Levels, riskThreshold{Level: int(level), Threshold: level.Threshold()})
	}
	return out
}

func normalizeBotID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("bot_id is required")
	}
	return id, nil
}

func normalizeActivityLimit(limit int) int {
	if limit <= 0 {
		return defaultActivityLimit
	}
	if limit > maxActivityLimit {
		return maxActivityLimit
	}
	return limit
}

func normalizeActivityFilter(in activityListInput) (domain.ActivityFilter, error) {
	id, err := normalizeBotID(in.BotID)
	if err != nil {
		return domain.ActivityFilter{}, err
	}
	filter := domain.ActivityFilter{BotID: id, Limit: normalizeActivityLimit(in.Limit)}
	if strings.TrimSpace(in.Kind) != "" {
		kind, err := domain.ParseActivityKind(in.Kind)
		if err != nil {
			return domain.ActivityFilter{}, err
		}
		filter.Kind = &kind
	}
	return filter, nil
}
