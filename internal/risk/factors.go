package risk

import (
	"math"
	"sort"

	"autotrader/internal/domain"

	"gonum.org/v1/gonum/stat"
)

const (
	portfolioMaxDrawdown  = 0.50
	concentrationFloor    = 0.02
	concentrationCeiling  = 0.10
	volatilityCeiling     = 0.10
	drawdownLookback      = 10
	drawdownLossWeight    = 70.0
	drawdownStreakPenalty = 10.0
	drawdownStreakCap     = 30.0

	// DefaultCorrelationScore stands in until cross-asset correlation is modelled.
	DefaultCorrelationScore = 25.0
)

// PortfolioRisk is 0 while the balance is at or above its starting value
// and reaches 100 at a 50% drawdown.
func PortfolioRisk(balance, initial float64) float64 {
	if initial <= 0 {
		return 100
	}
	if balance >= initial {
		return 0
	}
	dd := (initial - balance) / initial
	return clamp(dd / portfolioMaxDrawdown * 100)
}

// ConcentrationRisk scores the trade's share of the balance: 0 up to 2%,
// 100 from 10%.
func ConcentrationRisk(tradeValue, balance float64) float64 {
	if balance <= 0 {
		return 100
	}
	share := tradeValue / balance
	if share <= concentrationFloor {
		return 0
	}
	return clamp((share - concentrationFloor) / (concentrationCeiling - concentrationFloor) * 100)
}

// VolatilityRisk maps the sample standard deviation of simple returns onto
// 0..100 with 10% scoring 100.
func VolatilityRisk(closes []float64) float64 {
	returns := Returns(closes)
	if len(returns) < 2 {
		return 0
	}
	return VolatilityFromStdDev(stat.StdDev(returns, nil))
}

func VolatilityFromStdDev(sd float64) float64 {
	if sd <= 0 || math.IsNaN(sd) {
		return 0
	}
	return clamp(sd / volatilityCeiling * 100)
}

// LiquidityRisk is a step function of 24h quote volume.
func LiquidityRisk(quoteVolume float64) float64 {
	switch {
	case quoteVolume >= 50_000_000:
		return 5
	case quoteVolume >= 10_000_000:
		return 15
	case quoteVolume >= 1_000_000:
		return 35
	case quoteVolume >= 100_000:
		return 60
	case quoteVolume > 0:
		return 85
	}
	return 100
}

// DrawdownRisk blends the loss rate of the last ten closed trades with a
// capped penalty for the current losing streak.
func DrawdownRisk(trades []domain.Trade) float64 {
	closed := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Status == domain.TradeClosed && t.PnL != nil {
			closed = append(closed, t)
		}
	}
	if len(closed) == 0 {
		return 0
	}
	sort.SliceStable(closed, func(i, j int) bool {
		return closedAt(closed[i]) > closedAt(closed[j])
	})
	if len(closed) > drawdownLookback {
		closed = closed[:drawdownLookback]
	}

	losses := 0
	for _, t := range closed {
		if *t.PnL < 0 {
			losses++
		}
	}
	streak := 0
	for _, t := range closed {
		if *t.PnL >= 0 {
			break
		}
		streak++
	}

	lossRate := float64(losses) / float64(len(closed))
	penalty := math.Min(drawdownStreakCap, float64(streak)*drawdownStreakPenalty)
	return clamp(lossRate*drawdownLossWeight + penalty)
}

// CorrelationRisk is a fixed placeholder.
func CorrelationRisk() float64 {
	return DefaultCorrelationScore
}

func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		out = append(out, (closes[i]-closes[i-1])/closes[i-1])
	}
	return out
}

func closedAt(t domain.Trade) int64 {
	if t.ClosedAt != nil {
		return t.ClosedAt.UnixNano()
	}
	return t.OpenedAt.UnixNano()
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
