package exchange

import (
	"context"
	"errors"

	"autotrader/internal/domain"
)

var (
	ErrInvalidOrder = errors.New("invalid order")
	ErrNoPrice      = errors.New("no price available")
)

// Sink submits orders. Implementations must not retry on their own: a
// failed submission is reported back so the attempt can be recorded.
type Sink interface {
	SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error)
}

func validate(req domain.OrderRequest) error {
	if req.Symbol == "" {
		return errors.Join(ErrInvalidOrder, errors.New("missing symbol"))
	}
	if req.Side != domain.ActionBuy && req.Side != domain.ActionSell {
		return errors.Join(ErrInvalidOrder, errors.New("side must be buy or sell"))
	}
	if req.Quantity <= 0 {
		return errors.Join(ErrInvalidOrder, errors.New("quantity must be positive"))
	}
	return nil
}
