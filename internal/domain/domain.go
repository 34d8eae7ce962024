package domain

import (
	"fmt"
	"time"
)

type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// MarketSnapshot is the latest 24h ticker view of a symbol.
type MarketSnapshot struct {
	Symbol         string    `json:"symbol"`
	Price          float64   `json:"price"`
	Change24hPct   float64   `json:"change_24h_pct"`
	High24h        float64   `json:"high_24h"`
	Low24h         float64   `json:"low_24h"`
	Volume24h      float64   `json:"volume_24h"`
	QuoteVolume24h float64   `json:"quote_volume_24h"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Sentiment is a market-wide fear/greed reading on a 0..100 scale.
type Sentiment struct {
	Value          int       `json:"value"`
	Classification string    `json:"classification"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type NewsItem struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

type MACD struct {
	Line      float64  `json:"line"`
	Signal    *float64 `json:"signal,omitempty"`
	Histogram *float64 `json:"histogram,omitempty"`
}

type Bollinger struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

type SupportResistance struct {
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
}

// Indicators is derived from a price series every cycle. A nil field means
// the series was too short to compute it.
type Indicators struct {
	SMA20             *float64           `json:"sma20,omitempty"`
	SMA50             *float64           `json:"sma50,omitempty"`
	EMA12             *float64           `json:"ema12,omitempty"`
	EMA26             *float64           `json:"ema26,omitempty"`
	RSI               *float64           `json:"rsi,omitempty"`
	MACD              *MACD              `json:"macd,omitempty"`
	Bollinger         *Bollinger         `json:"bollinger,omitempty"`
	SupportResistance *SupportResistance `json:"support_resistance,omitempty"`
	VolumeAvg         *float64           `json:"volume_avg,omitempty"`
	Momentum          *float64           `json:"momentum_pct,omitempty"`
	LastClose         float64            `json:"last_close"`
	LastVolume        float64            `json:"last_volume"`
	Points            int                `json:"points"`
}

type RiskSettings struct {
	RiskLevel        RiskLevel `json:"risk_level"`
	MaxTradeFraction float64   `json:"max_trade_fraction"`
	StopLossPct      float64   `json:"stop_loss_pct"`
	TakeProfitPct    float64   `json:"take_profit_pct"`
}

func (r RiskSettings) Validate() error {
	if !r.RiskLevel.IsValid() {
		return fmt.Errorf("risk level %d out of range 1..5", r.RiskLevel)
	}
	if r.MaxTradeFraction <= 0 || r.MaxTradeFraction > 1 {
		return fmt.Errorf("max trade fraction %.4f out of range (0,1]", r.MaxTradeFraction)
	}
	if r.StopLossPct < 0 || r.TakeProfitPct < 0 {
		return fmt.Errorf("stop loss and take profit must not be negative")
	}
	return nil
}

type Bot struct {
	ID              string       `json:"id"`
	OwnerID         string       `json:"owner_id"`
	Name            string       `json:"name"`
	Symbol          string       `json:"symbol"`
	Status          BotStatus    `json:"status"`
	CurrentBalance  float64      `json:"current_balance"`
	InitialBalance  float64      `json:"initial_balance"`
	PeakBalance     float64      `json:"peak_balance"`
	RiskSettings    RiskSettings `json:"risk_settings"`
	DailyTradeCount int          `json:"daily_trade_count"`
	TotalTrades     int          `json:"total_trades"`
	ClosedTrades    int          `json:"closed_trades"`
	WinningTrades   int          `json:"winning_trades"`
	WinRate         float64      `json:"win_rate"`
	MaxDrawdown     float64      `json:"max_drawdown"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// ApplyRealized books a closed position's profit or loss into balance,
// win rate and drawdown statistics.
func (b *Bot) ApplyRealized(pnl float64) {
	b.CurrentBalance += pnl
	b.ClosedTrades++
	if pnl > 0 {
		b.WinningTrades++
	}
	if b.ClosedTrades > 0 {
		b.WinRate = float64(b.WinningTrades) / float64(b.ClosedTrades) * 100
	}
	if b.CurrentBalance > b.PeakBalance {
		b.PeakBalance = b.CurrentBalance
	}
	if b.PeakBalance > 0 {
		dd := (b.PeakBalance - b.CurrentBalance) / b.PeakBalance * 100
		if dd > b.MaxDrawdown {
			b.MaxDrawdown = dd
		}
	}
}

type TradeSignal struct {
	Symbol     string  `json:"symbol"`
	Action     Action  `json:"action"`
	Quantity   float64 `json:"quantity"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type RiskFactors struct {
	Portfolio     float64 `json:"portfolio"`
	Concentration float64 `json:"concentration"`
	Volatility    float64 `json:"volatility"`
	Liquidity     float64 `json:"liquidity"`
	Drawdown      float64 `json:"drawdown"`
	Correlation   float64 `json:"correlation"`
}

type RiskAssessment struct {
	Approved            bool               `json:"approved"`
	OverallRiskScore    float64            `json:"overall_risk_score"`
	RecommendedQuantity float64            `json:"recommended_quantity"`
	MaxQuantity         float64            `json:"max_quantity"`
	Warnings            []string           `json:"warnings,omitempty"`
	Reason              string             `json:"reason"`
	Recommendation      RiskRecommendation `json:"recommendation"`
	Factors             RiskFactors        `json:"factors"`
}

// ActivityRecord is the append-only audit entry for one engine step.
type ActivityRecord struct {
	ID          int64          `json:"id"`
	BotID       string         `json:"bot_id"`
	Kind        ActivityKind   `json:"kind"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      ActivityStatus `json:"status"`
	Data        map[string]any `json:"data,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewActivityRecord validates kind and status before the record exists.
func NewActivityRecord(botID string, kind ActivityKind, status ActivityStatus, title, description string, data map[string]any, now time.Time) (ActivityRecord, error) {
	if !kind.IsValid() {
		return ActivityRecord{}, fmt.Errorf("invalid activity kind %q", kind)
	}
	if !status.IsValid() {
		return ActivityRecord{}, fmt.Errorf("invalid activity status %q", status)
	}
	if data == nil {
		data = map[string]any{}
	}
	return ActivityRecord{
		BotID:       botID,
		Kind:        kind,
		Status:      status,
		Title:       title,
		Description: description,
		Data:        data,
		CreatedAt:   now.UTC(),
	}, nil
}

type ActivityFilter struct {
	BotID string
	Kind  *ActivityKind
	Limit int
}

// Trade is a position opened by a filled buy and closed by a sell or the
// end-of-day close-out.
type Trade struct {
	ID         string      `json:"id"`
	BotID      string      `json:"bot_id"`
	Symbol     string      `json:"symbol"`
	Side       Action      `json:"side"`
	Quantity   float64     `json:"quantity"`
	EntryPrice float64     `json:"entry_price"`
	ExitPrice  *float64    `json:"exit_price,omitempty"`
	PnL        *float64    `json:"pnl,omitempty"`
	Status     TradeStatus `json:"status"`
	OrderID    string      `json:"order_id"`
	OpenedAt   time.Time   `json:"opened_at"`
	ClosedAt   *time.Time  `json:"closed_at,omitempty"`
}

type OrderRequest struct {
	Symbol        string  `json:"symbol"`
	Side          Action  `json:"side"`
	Quantity      float64 `json:"quantity"`
	ClientOrderID string  `json:"client_order_id"`
}

type OrderResult struct {
	OrderID          string    `json:"order_id"`
	ClientOrderID    string    `json:"client_order_id"`
	ExecutedQuantity float64   `json:"executed_quantity"`
	AveragePrice     float64   `json:"average_price"`
	Status           string    `json:"status"`
	FilledAt         time.Time `json:"filled_at"`
}
