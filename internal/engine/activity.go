package engine

import (
	"context"
	"time"

	"autotrader/internal/domain"

	"github.com/rs/zerolog/log"
)

const persistTimeout = 5 * time.Second

// record writes one activity record. Persistence is fire-and-forget: a
// failed write is logged and the decision already taken stands.
func (e *Engine) record(ctx context.Context, botID string, kind domain.ActivityKind, status domain.ActivityStatus, title, description string, data map[string]any) domain.ActivityRecord {
	rec, err := domain.NewActivityRecord(botID, kind, status, title, description, data, e.now())
	if err != nil {
		log.Error().Err(err).Str("bot_id", botID).Msg("invalid activity record")
		return domain.ActivityRecord{}
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if saved, err := e.deps.Activities.Append(wctx, rec); err != nil {
		log.Error().Err(err).Str("bot_id", botID).Str("kind", string(kind)).Msg("persist activity failed")
	} else {
		rec = saved
	}

	if e.deps.Metrics != nil {
		e.deps.Metrics.ActivityRecorded(string(rec.Kind), string(rec.Status))
	}
	if e.deps.Notifier != nil {
		e.deps.Notifier.NotifyActivity(wctx, rec)
	}
	e.deps.Broadcast.Publish(rec)
	return rec
}

// persistBot stores the bot's new state, fire-and-forget like activity.
func (e *Engine) persistBot(ctx context.Context, b domain.Bot) {
	e.remember(b)
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := e.deps.Bots.UpdateState(wctx, b); err != nil {
		log.Error().Err(err).Str("bot_id", b.ID).Msg("persist bot state failed")
	}
}
