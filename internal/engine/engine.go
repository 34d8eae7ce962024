package engine

import (
	"context"
	"sync"
	"time"

	"autotrader/internal/domain"
	"autotrader/internal/exchange"
	"autotrader/internal/market"
	"autotrader/internal/retry"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const recentTradeWindow = 10

type Config struct {
	Watchlist         []string
	DailyTradeCap     int
	MaxConcurrentBots int
	TickTimeout       time.Duration
	// Cutoff is the end-of-day close time as an offset from local midnight.
	Cutoff    time.Duration
	EODWindow time.Duration
	Location  *time.Location
	// OrderRetry bounds exchange submissions. The zero value tries once.
	OrderRetry retry.Policy
}

func (c Config) withDefaults() Config {
	if c.DailyTradeCap <= 0 {
		c.DailyTradeCap = 10
	}
	if c.MaxConcurrentBots <= 0 {
		c.MaxConcurrentBots = 4
	}
	if c.TickTimeout <= 0 {
		c.TickTimeout = 2 * time.Minute
	}
	if c.EODWindow <= 0 {
		c.EODWindow = 15 * time.Minute
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

type Deps struct {
	Bots       BotStore
	Activities ActivityStore
	Trades     TradeStore
	Market     MarketData
	Decider    Decider
	Risk       RiskAssessor
	Sink       exchange.Sink
	Notifier   Notifier
	Metrics    Metrics
	Broadcast  *Broadcaster
}

// TickScope restricts a tick to one owner's bots. An empty OwnerID covers
// every owner.
type TickScope struct {
	OwnerID string
}

func (s TickScope) key() string {
	if s.OwnerID == "" {
		return "*"
	}
	return s.OwnerID
}

type Outcome string

const (
	OutcomeExecuted Outcome = "executed"
	OutcomeHeld     Outcome = "held"
	OutcomeRejected Outcome = "rejected"
	OutcomeCapped   Outcome = "capped"
	OutcomeFailed   Outcome = "failed"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeClosed   Outcome = "eod_closed"
)

type BotResult struct {
	BotID   string  `json:"bot_id"`
	Symbol  string  `json:"symbol"`
	Outcome Outcome `json:"outcome"`
	Detail  string  `json:"detail,omitempty"`
}

type TickReport struct {
	Owner      string               `json:"owner"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	EndOfDay   bool                 `json:"end_of_day"`
	Refresh    market.RefreshReport `json:"refresh"`
	Bots       []BotResult          `json:"bots"`
	Error      string               `json:"error,omitempty"`
}

// Count returns how many bots ended the tick with outcome o.
func (r TickReport) Count(o Outcome) int {
	return lo.CountBy(r.Bots, func(b BotResult) bool { return b.Outcome == o })
}

// Engine runs the per-bot decision pipeline. One Engine may serve several
// schedulers; state it shares between ticks is guarded internally.
type Engine struct {
	tracer trace.Tracer
	deps   Deps
	cfg    Config
	phases *PhaseTracker
	now    func() time.Time

	mu       sync.Mutex
	botLocks map[string]*sync.Mutex
	bots     map[string]domain.Bot
	// eodDone maps bot ID to the last trading day it was closed out.
	eodDone map[string]string
}

func New(tracer trace.Tracer, deps Deps, cfg Config) *Engine {
	if deps.Broadcast == nil {
		deps.Broadcast = NewBroadcaster()
	}
	return &Engine{
		tracer:   tracer,
		deps:     deps,
		cfg:      cfg.withDefaults(),
		phases:   NewPhaseTracker(),
		now:      time.Now,
		botLocks: make(map[string]*sync.Mutex),
		bots:     make(map[string]domain.Bot),
		eodDone:  make(map[string]string),
	}
}

func (e *Engine) Phases() *PhaseTracker { return e.phases }

func (e *Engine) Broadcaster() *Broadcaster { return e.deps.Broadcast }

func (e *Engine) Watchlist() []string { return append([]string(nil), e.cfg.Watchlist...) }

func (e *Engine) DailyTradeCap() int { return e.cfg.DailyTradeCap }

// Bots returns the last state the engine saw or produced for each bot.
func (e *Engine) Bots() []domain.Bot {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := lo.Values(e.bots)
	return out
}

// RunTick executes one cycle for scope. It never returns an error: failures
// are recorded per bot and summarised in the report.
func (e *Engine) RunTick(ctx context.Context, scope TickScope) TickReport {
	ctx, span := e.tracer.Start(ctx, "engine.run-tick")
	defer span.End()
	span.SetAttributes(attribute.String("owner", scope.key()))

	started := e.now()
	report := TickReport{Owner: scope.key(), StartedAt: started.UTC()}
	defer func() {
		report.FinishedAt = e.now().UTC()
		if e.deps.Metrics != nil {
			e.deps.Metrics.TickObserved(scope.key(), report.FinishedAt.Sub(report.StartedAt).Seconds())
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.TickTimeout)
	defer cancel()

	bots, err := e.deps.Bots.ListRunning(ctx, scope.OwnerID)
	if err != nil {
		log.Error().Err(err).Str("owner", scope.key()).Msg("list running bots failed")
		report.Error = err.Error()
		return report
	}
	bots = lo.Filter(bots, func(b domain.Bot, _ int) bool { return b.Status == domain.BotRunning })
	e.remember(bots...)

	symbols := append(e.Watchlist(), lo.Map(bots, func(b domain.Bot, _ int) string { return b.Symbol })...)
	report.Refresh = e.deps.Market.Refresh(ctx, symbols)

	if e.inEndOfDayWindow(started) {
		report.EndOfDay = true
		day := e.tradingDay(started)
		pending := lo.Filter(bots, func(b domain.Bot, _ int) bool { return !e.closedOn(b.ID, day) })
		if len(pending) > 0 {
			log.Info().Str("owner", scope.key()).Int("bots", len(pending)).Msg("end-of-day close-out")
			report.Bots = e.fanOut(ctx, pending, func(ctx context.Context, b domain.Bot) BotResult {
				return e.closeOut(ctx, b, day)
			})
		}
		return report
	}

	report.Bots = e.fanOut(ctx, bots, e.processBot)
	log.Info().
		Str("owner", scope.key()).
		Int("bots", len(bots)).
		Int("executed", report.Count(OutcomeExecuted)).
		Int("rejected", report.Count(OutcomeRejected)+report.Count(OutcomeCapped)).
		Int("failed", report.Count(OutcomeFailed)).
		Msg("tick complete")
	return report
}

// fanOut runs step for every bot with bounded concurrency. Bots not started
// before the tick deadline are recorded as skipped.
func (e *Engine) fanOut(ctx context.Context, bots []domain.Bot, step func(context.Context, domain.Bot) BotResult) []BotResult {
	results := make([]BotResult, len(bots))
	var g errgroup.Group
	g.SetLimit(e.cfg.MaxConcurrentBots)

	for i, b := range bots {
		g.Go(func() error {
			if ctx.Err() != nil {
				e.record(ctx, b.ID, domain.ActivitySkipped, domain.StatusWarning,
					"Tick deadline exceeded", "bot was not processed before the tick deadline", nil)
				results[i] = BotResult{BotID: b.ID, Symbol: b.Symbol, Outcome: OutcomeSkipped, Detail: "tick deadline exceeded"}
			} else {
				results[i] = step(ctx, b)
			}
			if e.deps.Metrics != nil {
				e.deps.Metrics.BotOutcome(string(results[i].Outcome))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Engine) lockFor(botID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.botLocks[botID]
	if !ok {
		l = &sync.Mutex{}
		e.botLocks[botID] = l
	}
	return l
}

// remember stores bot states unless a newer one is already known.
func (e *Engine) remember(bots ...domain.Bot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, b := range bots {
		if cur, ok := e.bots[b.ID]; ok && cur.UpdatedAt.After(b.UpdatedAt) {
			continue
		}
		e.bots[b.ID] = b
	}
}

// latest returns the freshest known state for b. Callers hold b's lock.
func (e *Engine) latest(b domain.Bot) domain.Bot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cur, ok := e.bots[b.ID]; ok && cur.UpdatedAt.After(b.UpdatedAt) {
		return cur
	}
	return b
}
