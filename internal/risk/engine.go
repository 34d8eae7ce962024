package risk

import (
	"context"
	"fmt"
	"math"

	"autotrader/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	MinConfidence        = 60.0
	DefaultMinTradeValue = 10.0

	// A single factor at or above criticalScore lifts the composite to at
	// least criticalFloorRatio of that factor.
	criticalScore      = 90.0
	criticalFloorRatio = 0.6
	minSizeMultiplier  = 0.25
)

var weights = domain.RiskFactors{
	Portfolio:     0.25,
	Concentration: 0.20,
	Volatility:    0.20,
	Liquidity:     0.15,
	Drawdown:      0.15,
	Correlation:   0.05,
}

var warnThresholds = domain.RiskFactors{
	Portfolio:     40,
	Concentration: 50,
	Volatility:    50,
	Liquidity:     60,
	Drawdown:      50,
}

type Config struct {
	MinConfidence    float64
	MinTradeValue    float64
	CorrelationScore float64
}

type Input struct {
	Bot          domain.Bot
	Signal       domain.TradeSignal
	Snapshot     domain.MarketSnapshot
	Closes       []float64
	RecentTrades []domain.Trade
}

type Engine struct {
	tracer trace.Tracer
	cfg    Config
}

func NewEngine(tracer trace.Tracer, cfg Config) *Engine {
	if cfg.MinConfidence < MinConfidence {
		cfg.MinConfidence = MinConfidence
	}
	if cfg.MinTradeValue <= 0 {
		cfg.MinTradeValue = DefaultMinTradeValue
	}
	if cfg.CorrelationScore <= 0 {
		cfg.CorrelationScore = CorrelationRisk()
	}
	return &Engine{tracer: tracer, cfg: cfg}
}

// Factors computes the six sub-scores for a proposed trade.
func (e *Engine) Factors(in Input) domain.RiskFactors {
	price := in.Snapshot.Price
	tradeValue := in.Signal.Quantity * price

	volatility := VolatilityRisk(in.Closes)
	if len(in.Closes) < 3 {
		volatility = VolatilityFromStdDev(math.Abs(in.Snapshot.Change24hPct) / 100)
	}

	return domain.RiskFactors{
		Portfolio:     PortfolioRisk(in.Bot.CurrentBalance, in.Bot.InitialBalance),
		Concentration: ConcentrationRisk(tradeValue, in.Bot.CurrentBalance),
		Volatility:    volatility,
		Liquidity:     LiquidityRisk(in.Snapshot.QuoteVolume24h),
		Drawdown:      DrawdownRisk(in.RecentTrades),
		Correlation:   e.cfg.CorrelationScore,
	}
}

// Composite is the weighted sum of the factors, floored by any critical factor.
func Composite(f domain.RiskFactors) float64 {
	score := f.Portfolio*weights.Portfolio +
		f.Concentration*weights.Concentration +
		f.Volatility*weights.Volatility +
		f.Liquidity*weights.Liquidity +
		f.Drawdown*weights.Drawdown +
		f.Correlation*weights.Correlation

	for _, v := range []float64{f.Portfolio, f.Concentration, f.Volatility, f.Liquidity, f.Drawdown, f.Correlation} {
		if v >= criticalScore {
			score = math.Max(score, v*criticalFloorRatio)
		}
	}
	return clamp(score)
}

// Assess scores a proposed trade and either rejects it or approves it with
// a size. It has no side effects.
func (e *Engine) Assess(ctx context.Context, in Input) domain.RiskAssessment {
	_, span := e.tracer.Start(ctx, "risk.assess")
	defer span.End()

	factors := e.Factors(in)
	score := Composite(factors)
	threshold := in.Bot.RiskSettings.RiskLevel.Threshold()
	span.SetAttributes(
		attribute.String("bot_id", in.Bot.ID),
		attribute.Float64("risk.score", score),
		attribute.Float64("risk.threshold", threshold),
	)

	out := domain.RiskAssessment{
		OverallRiskScore: score,
		Factors:          factors,
		Warnings:         warnings(factors),
		Recommendation:   domain.RecommendReject,
	}

	switch {
	case in.Signal.Action == domain.ActionHold:
		out.Reason = "hold signal, nothing to execute"
		return out
	case in.Signal.Confidence < e.cfg.MinConfidence:
		out.Reason = fmt.Sprintf("confidence %.0f below minimum %.0f", in.Signal.Confidence, e.cfg.MinConfidence)
		return out
	case in.Snapshot.Price <= 0:
		out.Reason = "no market price available"
		return out
	case score > threshold:
		out.Reason = fmt.Sprintf("risk score %.1f exceeds risk level %d threshold %.0f", score, in.Bot.RiskSettings.RiskLevel, threshold)
		return out
	}

	base := in.Bot.CurrentBalance * in.Bot.RiskSettings.MaxTradeFraction
	sized := base * sizeMultiplier(factors)
	price := in.Snapshot.Price

	out.MaxQuantity = base / price
	recommended := sized / price
	if in.Signal.Quantity > 0 && in.Signal.Quantity < recommended {
		recommended = in.Signal.Quantity
	}
	out.RecommendedQuantity = recommended

	if recommended*price < e.cfg.MinTradeValue {
		out.Reason = fmt.Sprintf("position too small: %.2f below minimum trade value %.2f", recommended*price, e.cfg.MinTradeValue)
		return out
	}

	out.Approved = true
	out.Recommendation = domain.RecommendApprove
	out.Reason = fmt.Sprintf("risk score %.1f within threshold %.0f", score, threshold)
	if in.Signal.Quantity > 0 && recommended < in.Signal.Quantity {
		out.Recommendation = domain.RecommendReduce
		out.Reason = fmt.Sprintf("approved at reduced size %.6f (requested %.6f)", recommended, in.Signal.Quantity)
	}
	return out
}

func sizeMultiplier(f domain.RiskFactors) float64 {
	m := 1.0
	pairs := [][2]float64{
		{f.Portfolio, warnThresholds.Portfolio},
		{f.Concentration, warnThresholds.Concentration},
		{f.Volatility, warnThresholds.Volatility},
		{f.Liquidity, warnThresholds.Liquidity},
		{f.Drawdown, warnThresholds.Drawdown},
	}
	for _, p := range pairs {
		score, warn := p[0], p[1]
		if score > warn {
			m *= math.Max(minSizeMultiplier, 1-(score-warn)/100)
		}
	}
	return m
}

func warnings(f domain.RiskFactors) []string {
	var out []string
	check := func(name string, score, warn float64) {
		if score > warn {
			out = append(out, fmt.Sprintf("%s risk %.0f above %.0f", name, score, warn))
		}
	}
	check("portfolio", f.Portfolio, warnThresholds.Portfolio)
	check("concentration", f.Concentration, warnThresholds.Concentration)
	check("volatility", f.Volatility, warnThresholds.Volatility)
	check("liquidity", f.Liquidity, warnThresholds.Liquidity)
	check("drawdown", f.Drawdown, warnThresholds.Drawdown)
	return out
}
