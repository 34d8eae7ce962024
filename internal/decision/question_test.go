package decision

import (
	"strings"
	"testing"

	"autotrader/internal/domain"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestBuildQuestionListsTriggers(t *testing.T) {
	in := Input{
		Symbol:   "BTCUSDT",
		Snapshot: &domain.MarketSnapshot{Symbol: "BTCUSDT", Price: 100, Change24hPct: -7.5},
		Indicators: domain.Indicators{
			RSI:        f(25),
			SMA20:      f(101),
			SMA50:      f(99),
			VolumeAvg:  f(10),
			LastVolume: 35,
		},
		Sentiment:    &domain.Sentiment{Value: 12, Classification: "Extreme Fear"},
		RiskSettings: domain.RiskSettings{RiskLevel: domain.RiskLevel3, MaxTradeFraction: 0.05},
	}

	q := BuildQuestion(in)
	assert.True(t, strings.HasPrefix(q, "Should I buy, sell or hold BTCUSDT at 100.0000?"))
	assert.Contains(t, q, "24h move of -7.50%")
	assert.Contains(t, q, "RSI 25.0 is oversold")
	assert.Contains(t, q, "bullish crossover")
	assert.Contains(t, q, "volume spike 3.5x average")
	assert.Contains(t, q, "extreme fear (12)")
	assert.Contains(t, q, "Risk level 3, at most 5.0% of balance per trade.")
}

func TestBuildQuestionWithoutTriggers(t *testing.T) {
	in := Input{
		Symbol:     "ETHUSDT",
		Snapshot:   &domain.MarketSnapshot{Price: 2000, Change24hPct: 1},
		Indicators: domain.Indicators{RSI: f(50)},
		Sentiment:  &domain.Sentiment{Value: 50},
	}
	q := BuildQuestion(in)
	assert.Contains(t, q, "No notable triggers this cycle.")
	assert.Empty(t, Triggers(in))
}

func TestTriggersOverboughtAndGreed(t *testing.T) {
	in := Input{
		Indicators: domain.Indicators{RSI: f(81), SMA20: f(90), SMA50: f(95)},
		Sentiment:  &domain.Sentiment{Value: 80},
	}
	got := Triggers(in)
	assert.Equal(t, []string{
		"RSI 81.0 is overbought",
		"SMA20 below SMA50 (bearish crossover)",
		"extreme greed (80)",
	}, got)
}
