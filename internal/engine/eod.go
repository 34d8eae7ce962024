package engine

import (
	"context"
	"fmt"
	"time"

	"autotrader/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// inEndOfDayWindow reports whether now falls in [cutoff, cutoff+window) of
// the local day. A window running past midnight continues into the next day.
func (e *Engine) inEndOfDayWindow(now time.Time) bool {
	off := sinceLocalMidnight(now.In(e.cfg.Location))
	end := e.cfg.Cutoff + e.cfg.EODWindow
	if off >= e.cfg.Cutoff && off < end {
		return true
	}
	return end > 24*time.Hour && off+24*time.Hour < end
}

// tradingDay names the trading day containing now. Days roll over at the
// cutoff, so a window running past midnight stays on one day.
func (e *Engine) tradingDay(now time.Time) string {
	return now.In(e.cfg.Location).Add(-e.cfg.Cutoff).Format(time.DateOnly)
}

// closedOn reports whether botID finished its close-out on day.
func (e *Engine) closedOn(botID, day string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eodDone[botID] == day
}

func (e *Engine) markClosed(botID, day string) {
	e.mu.Lock()
	e.eodDone[botID] = day
	e.mu.Unlock()
}

func sinceLocalMidnight(t time.Time) time.Duration {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return t.Sub(midnight)
}

// closeOut sells every open position of b at the end of the day. The bot
// counts as closed for day only once that succeeds; a failed close-out is
// tried again on the next tick inside the window.
func (e *Engine) closeOut(ctx context.Context, b domain.Bot, day string) BotResult {
	lock := e.lockFor(b.ID)
	lock.Lock()
	defer lock.Unlock()
	b = e.latest(b)
	if e.closedOn(b.ID, day) {
		return BotResult{BotID: b.ID, Symbol: b.Symbol, Outcome: OutcomeSkipped, Detail: "already closed today"}
	}

	ctx, span := e.tracer.Start(ctx, "engine.close-out")
	defer span.End()
	span.SetAttributes(attribute.String("bot_id", b.ID))

	res := BotResult{BotID: b.ID, Symbol: b.Symbol}
	e.phases.Move(b.ID, domain.PhaseEndOfDayClosing)
	defer e.phases.Idle(b.ID)

	open, err := e.deps.Trades.OpenPositions(ctx, b.ID)
	if err != nil {
		return e.fail(ctx, b, res, "End-of-day close failed", err)
	}
	if len(open) == 0 {
		e.record(ctx, b.ID, domain.ActivityEndOfDayClose, domain.StatusInfo, "End-of-day close",
			"no open positions", map[string]any{"positions": 0})
		e.markClosed(b.ID, day)
		res.Outcome, res.Detail = OutcomeClosed, "no open positions"
		return res
	}

	var last float64
	if snap, err := e.deps.Market.Snapshot(ctx, b.Symbol); err == nil {
		last = snap.Price
	}
	fill, pnl, err := e.liquidate(ctx, &b, open, last)
	if err != nil {
		res.Outcome, res.Detail = OutcomeFailed, err.Error()
		return res
	}
	e.persistBot(ctx, b)

	desc := fmt.Sprintf("closed %d position(s) at %.8g, realized P&L %.2f", len(open), fill.AveragePrice, pnl)
	e.record(ctx, b.ID, domain.ActivityEndOfDayClose, domain.StatusSuccess, "End-of-day close", desc,
		map[string]any{"positions": len(open), "order_id": fill.OrderID, "price": fill.AveragePrice,
			"pnl": pnl, "balance": b.CurrentBalance})
	e.markClosed(b.ID, day)
	res.Outcome, res.Detail = OutcomeClosed, desc
	return res
}
