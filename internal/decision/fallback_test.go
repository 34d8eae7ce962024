package decision

import (
	"testing"

	"autotrader/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackRules(t *testing.T) {
	cases := []struct {
		name       string
		ind        domain.Indicators
		snap       *domain.MarketSnapshot
		action     domain.Action
		confidence float64
	}{
		{"oversold dip", domain.Indicators{RSI: f(25), Momentum: f(-2)}, nil, domain.ActionBuy, 65},
		{"overbought rally", domain.Indicators{RSI: f(78), Momentum: f(3)}, nil, domain.ActionSell, 65},
		{"bullish crossover", domain.Indicators{RSI: f(55), SMA20: f(105), SMA50: f(100), Momentum: f(1)}, nil, domain.ActionBuy, 55},
		{"crossover without momentum", domain.Indicators{RSI: f(55), SMA20: f(105), SMA50: f(100), Momentum: f(-1)}, nil, domain.ActionHold, 50},
		{"oversold but rising", domain.Indicators{RSI: f(25), Momentum: f(2)}, nil, domain.ActionHold, 50},
		{"24h change used without momentum", domain.Indicators{RSI: f(20)}, &domain.MarketSnapshot{Change24hPct: -4}, domain.ActionBuy, 65},
		{"no indicators", domain.Indicators{}, nil, domain.ActionHold, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sig := Fallback("BTCUSDT", tc.ind, tc.snap, 0)
			assert.Equal(t, tc.action, sig.Action)
			assert.Equal(t, tc.confidence, sig.Confidence)
			assert.Equal(t, DefaultQuantity, sig.Quantity)
			assert.Equal(t, "BTCUSDT", sig.Symbol)
			assert.NotEmpty(t, sig.Reasoning)
		})
	}
}

func TestFallbackIsDeterministic(t *testing.T) {
	ind := domain.Indicators{RSI: f(28), SMA20: f(10), SMA50: f(11), Momentum: f(-0.5)}
	first := Fallback("SOLUSDT", ind, nil, 0.5)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, Fallback("SOLUSDT", ind, nil, 0.5))
	}
	assert.Equal(t, 0.5, first.Quantity)
}
