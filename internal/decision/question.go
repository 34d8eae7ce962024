package decision

import (
	"fmt"
	"math"
	"strings"
)

const (
	largeMovePct      = 5.0
	rsiOversold       = 30.0
	rsiOverbought     = 70.0
	volumeSpikeFactor = 2.0
	extremeFear       = 25
	extremeGreed      = 75
)

// BuildQuestion summarises what makes this cycle interesting for symbol.
// The text is logged and stored with the activity record; nothing parses it.
func BuildQuestion(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Should I buy, sell or hold %s", in.Symbol)
	if in.Snapshot != nil && in.Snapshot.Price > 0 {
		fmt.Fprintf(&b, " at %.4f", in.Snapshot.Price)
	}
	b.WriteString("? ")

	triggers := Triggers(in)
	if len(triggers) == 0 {
		b.WriteString("No notable triggers this cycle.")
	} else {
		b.WriteString("Triggers: ")
		b.WriteString(strings.Join(triggers, "; "))
		b.WriteString(".")
	}

	if in.RiskSettings.RiskLevel.IsValid() {
		fmt.Fprintf(&b, " Risk level %d, at most %.1f%% of balance per trade.",
			in.RiskSettings.RiskLevel, in.RiskSettings.MaxTradeFraction*100)
	}
	return b.String()
}

// Triggers lists the conditions worth asking about.
func Triggers(in Input) []string {
	var out []string
	ind := in.Indicators

	if in.Snapshot != nil && math.Abs(in.Snapshot.Change24hPct) >= largeMovePct {
		out = append(out, fmt.Sprintf("24h move of %+.2f%%", in.Snapshot.Change24hPct))
	}
	if ind.RSI != nil {
		switch {
		case *ind.RSI < rsiOversold:
			out = append(out, fmt.Sprintf("RSI %.1f is oversold", *ind.RSI))
		case *ind.RSI > rsiOverbought:
			out = append(out, fmt.Sprintf("RSI %.1f is overbought", *ind.RSI))
		}
	}
	if ind.SMA20 != nil && ind.SMA50 != nil {
		switch {
		case *ind.SMA20 > *ind.SMA50:
			out = append(out, "SMA20 above SMA50 (bullish crossover)")
		case *ind.SMA20 < *ind.SMA50:
			out = append(out, "SMA20 below SMA50 (bearish crossover)")
		}
	}
	if ind.VolumeAvg != nil && *ind.VolumeAvg > 0 {
		avg := *ind.VolumeAvg
		if ind.LastVolume >= volumeSpikeFactor*avg {
			out = append(out, fmt.Sprintf("volume spike %.1fx average", ind.LastVolume/avg))
		}
	}
	if in.Sentiment != nil {
		switch {
		case in.Sentiment.Value <= extremeFear:
			out = append(out, fmt.Sprintf("extreme fear (%d)", in.Sentiment.Value))
		case in.Sentiment.Value >= extremeGreed:
			out = append(out, fmt.Sprintf("extreme greed (%d)", in.Sentiment.Value))
		}
	}
	return out
}
