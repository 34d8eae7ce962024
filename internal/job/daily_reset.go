package job

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

const dailyResetSpec = "0 0 * * *"

type DailyCounterResetter interface {
	ResetDailyTradeCounts(ctx context.Context) (int64, error)
}

// DailyReset zeroes every bot's daily trade counter at local midnight.
type DailyReset struct {
	tracer trace.Tracer
	store  DailyCounterResetter
	loc    *time.Location
}

func NewDailyReset(tracer trace.Tracer, store DailyCounterResetter, loc *time.Location) *DailyReset {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyReset{tracer: tracer, store: store, loc: loc}
}

// Start blocks until ctx is cancelled.
func (j *DailyReset) Start(ctx context.Context) {
	if j == nil || j.store == nil {
		<-ctx.Done()
		return
	}

	c := cron.New(cron.WithLocation(j.loc))
	if _, err := c.AddFunc(dailyResetSpec, func() { _, _ = j.Run(ctx) }); err != nil {
		log.Error().Err(err).Msg("schedule daily reset failed")
		<-ctx.Done()
		return
	}
	c.Start()
	log.Info().Str("timezone", j.loc.String()).Msg("daily reset scheduled")

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info().Msg("daily reset stopped")
}

func (j *DailyReset) Run(ctx context.Context) (int64, error) {
	ctx, span := j.tracer.Start(ctx, "daily-reset-job.run")
	defer span.End()

	n, err := j.store.ResetDailyTradeCounts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("daily trade count reset failed")
		return 0, err
	}
	log.Info().Int64("bots", n).Msg("daily trade counts reset")
	return n, nil
}

// NextRun returns when the reset fires next after now.
func (j *DailyReset) NextRun(now time.Time) time.Time {
	sched, err := cron.ParseStandard(dailyResetSpec)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(now.In(j.loc))
}
