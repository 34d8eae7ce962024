package decision

import (
	"fmt"

	"autotrader/internal/domain"
)

// DefaultQuantity is used when no sizing suggestion is available. The risk
// engine resizes it afterwards.
const DefaultQuantity = 0.001

// Fallback is the deterministic technical rule set used whenever the
// reasoning source is unavailable or unusable.
func Fallback(symbol string, ind domain.Indicators, snap *domain.MarketSnapshot, quantity float64) domain.TradeSignal {
	if quantity <= 0 {
		quantity = DefaultQuantity
	}
	sig := domain.TradeSignal{Symbol: symbol, Quantity: quantity}

	move, hasMove := shortMove(ind, snap)

	if ind.RSI != nil && hasMove {
		rsi := *ind.RSI
		if rsi < rsiOversold && move < 0 {
			sig.Action = domain.ActionBuy
			sig.Confidence = 65
			sig.Reasoning = fmt.Sprintf("technical fallback: RSI %.1f oversold with short move %.2f%%", rsi, move)
			return sig
		}
		if rsi > rsiOverbought && move > 0 {
			sig.Action = domain.ActionSell
			sig.Confidence = 65
			sig.Reasoning = fmt.Sprintf("technical fallback: RSI %.1f overbought with short move %+.2f%%", rsi, move)
			return sig
		}
	}
	if ind.SMA20 != nil && ind.SMA50 != nil && hasMove && *ind.SMA20 > *ind.SMA50 && move > 0 {
		sig.Action = domain.ActionBuy
		sig.Confidence = 55
		sig.Reasoning = fmt.Sprintf("technical fallback: SMA20 %.4f above SMA50 %.4f with positive momentum", *ind.SMA20, *ind.SMA50)
		return sig
	}

	sig.Action = domain.ActionHold
	sig.Confidence = 50
	sig.Reasoning = "technical fallback: no actionable setup"
	return sig
}

// shortMove prefers the recent momentum over the 24h change.
func shortMove(ind domain.Indicators, snap *domain.MarketSnapshot) (float64, bool) {
	if ind.Momentum != nil {
		return *ind.Momentum, true
	}
	if snap != nil {
		return snap.Change24hPct, true
	}
	return 0, false
}
