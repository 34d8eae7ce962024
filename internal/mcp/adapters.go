package mcp

import (
	"context"

	"autotrader/internal/cache"
	"autotrader/internal/domain"
	"autotrader/internal/engine"
	"autotrader/internal/job"
)

// EngineReader exposes the engine's in-memory view.
type EngineReader interface {
	Phases() *engine.PhaseTracker
	Watchlist() []string
	DailyTradeCap() int
}

type SchedulerReader interface {
	List() []job.SchedulerStatus
}

type ActivityReader interface {
	List(ctx context.Context, filter domain.ActivityFilter) ([]domain.ActivityRecord, error)
}

type CacheReader interface {
	Health() cache.Health
}

// Sources groups the read-only views the server exposes. Nil members make
// the matching tools report themselves unavailable.
type Sources struct {
	Engine     EngineReader
	Schedulers SchedulerReader
	Activities ActivityReader
	Cache      CacheReader
}
