package engine

import (
	"context"
	"time"

	"autotrader/internal/decision"
	"autotrader/internal/domain"
	"autotrader/internal/market"
	"autotrader/internal/risk"
)

type BotStore interface {
	ListRunning(ctx context.Context, ownerID string) ([]domain.Bot, error)
	UpdateState(ctx context.Context, b domain.Bot) error
}

type ActivityStore interface {
	Append(ctx context.Context, rec domain.ActivityRecord) (domain.ActivityRecord, error)
}

type TradeStore interface {
	Insert(ctx context.Context, t domain.Trade) error
	RecentClosed(ctx context.Context, botID string, limit int) ([]domain.Trade, error)
	OpenPositions(ctx context.Context, botID string) ([]domain.Trade, error)
	ClosePosition(ctx context.Context, id string, exitPrice, pnl float64, closedAt time.Time) error
}

type MarketData interface {
	Refresh(ctx context.Context, symbols []string) market.RefreshReport
	Snapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error)
	Indicators(ctx context.Context, symbol string) (domain.Indicators, []domain.PricePoint, error)
	Sentiment(ctx context.Context) (domain.Sentiment, error)
	News(ctx context.Context, symbol string) ([]domain.NewsItem, error)
}

type Decider interface {
	Decide(ctx context.Context, in decision.Input) decision.Result
}

type RiskAssessor interface {
	Assess(ctx context.Context, in risk.Input) domain.RiskAssessment
}

// Notifier is told about every activity record; it decides what to forward.
type Notifier interface {
	NotifyActivity(ctx context.Context, rec domain.ActivityRecord)
}

type Metrics interface {
	ActivityRecorded(kind, status string)
	TickObserved(owner string, seconds float64)
	BotOutcome(outcome string)
}
