package exchange

import (
	"context"
	"fmt"
	"time"

	"autotrader/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PriceSource supplies the last traded price used for simulated fills.
type PriceSource interface {
	Snapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error)
}

// PaperSink fills every order immediately at the last known price.
type PaperSink struct {
	prices PriceSource
	now    func() time.Time
}

func NewPaperSink(prices PriceSource) *PaperSink {
	return &PaperSink{prices: prices, now: time.Now}
}

func (p *PaperSink) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if err := validate(req); err != nil {
		return domain.OrderResult{}, err
	}
	snap, err := p.prices.Snapshot(ctx, req.Symbol)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("paper fill %s: %w", req.Symbol, err)
	}
	if snap.Price <= 0 {
		return domain.OrderResult{}, fmt.Errorf("paper fill %s: %w", req.Symbol, ErrNoPrice)
	}

	clientID := req.ClientOrderID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	res := domain.OrderResult{
		OrderID:          "paper-" + uuid.NewString(),
		ClientOrderID:    clientID,
		ExecutedQuantity: req.Quantity,
		AveragePrice:     snap.Price,
		Status:           "FILLED",
		FilledAt:         p.now().UTC(),
	}
	log.Debug().Str("symbol", req.Symbol).Str("side", string(req.Side)).Float64("qty", req.Quantity).
		Float64("price", snap.Price).Str("order_id", res.OrderID).Msg("paper order filled")
	return res, nil
}
