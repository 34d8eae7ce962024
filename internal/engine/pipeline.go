package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"autotrader/internal/decision"
	"autotrader/internal/domain"
	"autotrader/internal/indicator"
	"autotrader/internal/logging"
	"autotrader/internal/retry"
	"autotrader/internal/risk"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// minHistory is the shortest series worth deciding on.
const minHistory = 2

// processBot runs fetch, analyze, risk check and execution for one bot.
// Steps are strictly sequential and every exit path records exactly one
// outcome activity.
func (e *Engine) processBot(ctx context.Context, b domain.Bot) BotResult {
	lock := e.lockFor(b.ID)
	lock.Lock()
	defer lock.Unlock()
	b = e.latest(b)

	ctx, span := e.tracer.Start(ctx, "engine.process-bot")
	defer span.End()
	span.SetAttributes(attribute.String("bot_id", b.ID), attribute.String("symbol", b.Symbol))

	logger := logging.Bot(b.ID, b.Symbol)
	res := BotResult{BotID: b.ID, Symbol: b.Symbol}
	defer e.phases.Idle(b.ID)

	e.phases.Move(b.ID, domain.PhaseFetching)
	snap, err := e.deps.Market.Snapshot(ctx, b.Symbol)
	if err != nil {
		return e.fail(ctx, b, res, "Market data unavailable", err)
	}
	ind, history, err := e.deps.Market.Indicators(ctx, b.Symbol)
	if err != nil {
		return e.fail(ctx, b, res, "Price history unavailable", err)
	}
	if len(history) < minHistory {
		err := fmt.Errorf("%w: %d price points for %s", ErrInsufficientData, len(history), b.Symbol)
		e.record(ctx, b.ID, domain.ActivitySkipped, domain.StatusInfo, "Not enough price history", err.Error(),
			map[string]any{"points": len(history)})
		res.Outcome, res.Detail = OutcomeSkipped, err.Error()
		return res
	}

	var sentiment *domain.Sentiment
	if s, err := e.deps.Market.Sentiment(ctx); err == nil {
		sentiment = &s
	} else {
		logger.Debug().Err(err).Msg("sentiment unavailable, continuing without it")
	}
	news, err := e.deps.Market.News(ctx, b.Symbol)
	if err != nil {
		logger.Debug().Err(err).Msg("news unavailable, continuing without it")
	}

	e.phases.Move(b.ID, domain.PhaseAnalyzing)
	decided := e.deps.Decider.Decide(ctx, decision.Input{
		Symbol:       b.Symbol,
		Snapshot:     &snap,
		Indicators:   ind,
		Sentiment:    sentiment,
		News:         news,
		RiskSettings: b.RiskSettings,
	})
	sig := decided.Signal
	e.record(ctx, b.ID, domain.ActivitySignalGenerated, domain.StatusInfo,
		fmt.Sprintf("Signal: %s %s", strings.ToUpper(string(sig.Action)), b.Symbol),
		sig.Reasoning,
		map[string]any{
			"action":          string(sig.Action),
			"confidence":      sig.Confidence,
			"quantity":        sig.Quantity,
			"price":           snap.Price,
			"question":        decided.Question,
			"source":          string(decided.Source),
			"fallback_reason": decided.FallbackReason,
		})
	logger.Info().Str("action", string(sig.Action)).Float64("confidence", sig.Confidence).
		Str("source", string(decided.Source)).Msg("signal generated")

	if sig.Action == domain.ActionHold {
		res.Outcome, res.Detail = OutcomeHeld, sig.Reasoning
		return res
	}

	e.phases.Move(b.ID, domain.PhaseRiskChecking)
	if b.DailyTradeCount >= e.cfg.DailyTradeCap {
		err := fmt.Errorf("%w (%d/%d)", ErrDailyCapReached, b.DailyTradeCount, e.cfg.DailyTradeCap)
		e.phases.Move(b.ID, domain.PhaseRejected)
		e.record(ctx, b.ID, domain.ActivityRiskRejected, domain.StatusWarning, "Trade rejected", err.Error(),
			map[string]any{"action": string(sig.Action), "daily_trade_count": b.DailyTradeCount, "daily_trade_cap": e.cfg.DailyTradeCap})
		res.Outcome, res.Detail = OutcomeCapped, err.Error()
		return res
	}

	var open []domain.Trade
	if sig.Action == domain.ActionSell {
		open, err = e.deps.Trades.OpenPositions(ctx, b.ID)
		if err != nil {
			return e.fail(ctx, b, res, "Open positions unavailable", err)
		}
		if len(open) == 0 {
			e.record(ctx, b.ID, domain.ActivitySkipped, domain.StatusInfo, "Nothing to sell",
				"sell signal ignored: no open position", map[string]any{"confidence": sig.Confidence})
			res.Outcome, res.Detail = OutcomeHeld, "no open position"
			return res
		}
	}

	recent, err := e.deps.Trades.RecentClosed(ctx, b.ID, recentTradeWindow)
	if err != nil {
		logger.Warn().Err(err).Msg("recent trades unavailable, drawdown risk assumes none")
	}
	assessment := e.deps.Risk.Assess(ctx, risk.Input{
		Bot:          b,
		Signal:       sig,
		Snapshot:     snap,
		Closes:       indicator.Closes(history),
		RecentTrades: recent,
	})
	if !assessment.Approved {
		e.phases.Move(b.ID, domain.PhaseRejected)
		e.record(ctx, b.ID, domain.ActivityRiskRejected, domain.StatusWarning, "Trade rejected", assessment.Reason,
			assessmentData(sig, assessment))
		res.Outcome, res.Detail = OutcomeRejected, assessment.Reason
		return res
	}

	e.phases.Move(b.ID, domain.PhaseExecuting)
	if sig.Action == domain.ActionBuy {
		return e.buy(ctx, b, res, assessment, snap)
	}
	return e.sell(ctx, b, res, open, snap)
}

func (e *Engine) buy(ctx context.Context, b domain.Bot, res BotResult, assessment domain.RiskAssessment, snap domain.MarketSnapshot) BotResult {
	req := domain.OrderRequest{
		Symbol:        b.Symbol,
		Side:          domain.ActionBuy,
		Quantity:      assessment.RecommendedQuantity,
		ClientOrderID: newClientOrderID(),
	}
	fill, err := e.submit(ctx, b, req, fmt.Sprintf("buy %.8g %s at market", req.Quantity, b.Symbol),
		map[string]any{"side": "buy", "quantity": req.Quantity, "price": snap.Price,
			"risk_score": assessment.OverallRiskScore, "recommendation": string(assessment.Recommendation)})
	if err != nil {
		return e.orderFailed(ctx, b, res, req, err)
	}

	price := fill.AveragePrice
	if price <= 0 {
		price = snap.Price
	}
	qty := fill.ExecutedQuantity
	if qty <= 0 {
		qty = req.Quantity
	}
	openedAt := fill.FilledAt
	if openedAt.IsZero() {
		openedAt = e.now().UTC()
	}
	trade := domain.Trade{
		ID:         uuid.NewString(),
		BotID:      b.ID,
		Symbol:     b.Symbol,
		Side:       domain.ActionBuy,
		Quantity:   qty,
		EntryPrice: price,
		Status:     domain.TradeOpen,
		OrderID:    fill.OrderID,
		OpenedAt:   openedAt,
	}
	e.persistTrade(ctx, trade)

	b.DailyTradeCount++
	b.TotalTrades++
	b.UpdatedAt = e.now().UTC()
	e.persistBot(ctx, b)

	e.record(ctx, b.ID, domain.ActivityOrderFilled, domain.StatusSuccess, "Order filled",
		fmt.Sprintf("bought %.8g %s at %.8g", qty, b.Symbol, price),
		map[string]any{"side": "buy", "order_id": fill.OrderID, "quantity": qty, "price": price,
			"trade_id": trade.ID, "daily_trade_count": b.DailyTradeCount})
	res.Outcome, res.Detail = OutcomeExecuted, fmt.Sprintf("bought %.8g", qty)
	return res
}

func (e *Engine) sell(ctx context.Context, b domain.Bot, res BotResult, open []domain.Trade, snap domain.MarketSnapshot) BotResult {
	fill, pnl, err := e.liquidate(ctx, &b, open, snap.Price)
	if err != nil {
		res.Outcome, res.Detail = OutcomeFailed, err.Error()
		return res
	}
	b.DailyTradeCount++
	b.TotalTrades++
	e.persistBot(ctx, b)

	e.record(ctx, b.ID, domain.ActivityOrderFilled, domain.StatusSuccess, "Order filled",
		fmt.Sprintf("sold %.8g %s at %.8g, realized P&L %.2f", fill.ExecutedQuantity, b.Symbol, fill.AveragePrice, pnl),
		map[string]any{"side": "sell", "order_id": fill.OrderID, "quantity": fill.ExecutedQuantity,
			"price": fill.AveragePrice, "pnl": pnl, "positions": len(open), "balance": b.CurrentBalance,
			"daily_trade_count": b.DailyTradeCount})
	res.Outcome, res.Detail = OutcomeExecuted, fmt.Sprintf("sold %d position(s)", len(open))
	return res
}

// liquidate sells every open position in one market order and books the
// realized P&L into b. The returned fill always carries a price and quantity.
func (e *Engine) liquidate(ctx context.Context, b *domain.Bot, open []domain.Trade, lastPrice float64) (domain.OrderResult, float64, error) {
	total := decimal.Zero
	for _, t := range open {
		total = total.Add(decimal.NewFromFloat(t.Quantity))
	}
	qty, _ := total.Float64()
	req := domain.OrderRequest{
		Symbol:        b.Symbol,
		Side:          domain.ActionSell,
		Quantity:      qty,
		ClientOrderID: newClientOrderID(),
	}
	fill, err := e.submit(ctx, *b, req, fmt.Sprintf("sell %.8g %s at market", qty, b.Symbol),
		map[string]any{"side": "sell", "quantity": qty, "price": lastPrice, "positions": len(open)})
	if err != nil {
		e.orderFailed(ctx, *b, BotResult{}, req, err)
		return domain.OrderResult{}, 0, err
	}
	if fill.AveragePrice <= 0 {
		fill.AveragePrice = lastPrice
	}
	if fill.ExecutedQuantity <= 0 {
		fill.ExecutedQuantity = qty
	}
	closedAt := fill.FilledAt
	if closedAt.IsZero() {
		closedAt = e.now().UTC()
	}

	exit := decimal.NewFromFloat(fill.AveragePrice)
	realized := decimal.Zero
	for _, t := range open {
		pnl := exit.Sub(decimal.NewFromFloat(t.EntryPrice)).Mul(decimal.NewFromFloat(t.Quantity))
		f, _ := pnl.Float64()
		e.closeTrade(ctx, t, fill.AveragePrice, f, closedAt)
		b.ApplyRealized(f)
		realized = realized.Add(pnl)
	}
	b.UpdatedAt = e.now().UTC()
	out, _ := realized.Float64()
	return fill, out, nil
}

// submit sends req under the order retry policy. Every attempt is recorded
// as an order_placed activity and reuses req.ClientOrderID so the exchange
// can drop duplicates. Only transient failures are retried.
func (e *Engine) submit(ctx context.Context, b domain.Bot, req domain.OrderRequest, summary string, data map[string]any) (domain.OrderResult, error) {
	attempt := 0
	return retry.Do(ctx, e.cfg.OrderRetry, func(ctx context.Context) (domain.OrderResult, error) {
		attempt++
		e.record(ctx, b.ID, domain.ActivityOrderPlaced, domain.StatusInfo, "Order placed", summary,
			lo.Assign(data, map[string]any{"client_order_id": req.ClientOrderID, "attempt": attempt}))

		fill, err := e.deps.Sink.SubmitOrder(ctx, req)
		if err == nil {
			return fill, nil
		}
		if Classify(err) != ClassTransient {
			return domain.OrderResult{}, retry.Permanent(err)
		}
		logging.Bot(b.ID, b.Symbol).Warn().Err(err).Int("attempt", attempt).Msg("order submission failed")
		return domain.OrderResult{}, err
	})
}

func (e *Engine) orderFailed(ctx context.Context, b domain.Bot, res BotResult, req domain.OrderRequest, err error) BotResult {
	e.record(ctx, b.ID, domain.ActivityOrderFailed, domain.StatusError, "Order failed", err.Error(),
		map[string]any{"side": string(req.Side), "quantity": req.Quantity, "client_order_id": req.ClientOrderID,
			"class": string(Classify(err))})
	res.Outcome, res.Detail = OutcomeFailed, err.Error()
	return res
}

func (e *Engine) fail(ctx context.Context, b domain.Bot, res BotResult, title string, err error) BotResult {
	logging.Bot(b.ID, b.Symbol).Warn().Err(err).Msg(title)
	e.record(ctx, b.ID, domain.ActivityError, domain.StatusError, title, err.Error(),
		map[string]any{"class": string(Classify(err))})
	res.Outcome, res.Detail = OutcomeFailed, err.Error()
	return res
}

func (e *Engine) persistTrade(ctx context.Context, t domain.Trade) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := e.deps.Trades.Insert(wctx, t); err != nil {
		logging.Bot(t.BotID, t.Symbol).Error().Err(err).Str("trade_id", t.ID).Msg("persist trade failed")
	}
}

func (e *Engine) closeTrade(ctx context.Context, t domain.Trade, exit, pnl float64, closedAt time.Time) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := e.deps.Trades.ClosePosition(wctx, t.ID, exit, pnl, closedAt); err != nil {
		logging.Bot(t.BotID, t.Symbol).Error().Err(err).Str("trade_id", t.ID).Msg("close trade failed")
	}
}

func assessmentData(sig domain.TradeSignal, a domain.RiskAssessment) map[string]any {
	return map[string]any{
		"action":         string(sig.Action),
		"confidence":     sig.Confidence,
		"quantity":       sig.Quantity,
		"risk_score":     a.OverallRiskScore,
		"recommendation": string(a.Recommendation),
		"warnings":       a.Warnings,
		"factors": map[string]float64{
			"portfolio":     a.Factors.Portfolio,
			"concentration": a.Factors.Concentration,
			"volatility":    a.Factors.Volatility,
			"liquidity":     a.Factors.Liquidity,
			"drawdown":      a.Factors.Drawdown,
			"correlation":   a.Factors.Correlation,
		},
	}
}

// newClientOrderID fits Binance's 36 character limit.
func newClientOrderID() string {
	return "at" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
