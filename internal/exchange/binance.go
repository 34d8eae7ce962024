package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"autotrader/internal/domain"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

const quantityPrecision = 8

// BinanceSink places spot market orders.
type BinanceSink struct {
	client *binance.Client
}

func NewBinanceSink(apiKey, secretKey string, testnet bool) *BinanceSink {
	binance.UseTestnet = testnet
	return &BinanceSink{client: binance.NewClient(apiKey, secretKey)}
}

func (b *BinanceSink) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if err := validate(req); err != nil {
		return domain.OrderResult{}, err
	}
	side := binance.SideTypeBuy
	if req.Side == domain.ActionSell {
		side = binance.SideTypeSell
	}

	svc := b.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(QuantityString(req.Quantity))
	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance create order %s %s: %w", req.Side, req.Symbol, err)
	}
	return orderResult(resp), nil
}

// QuantityString formats a quantity without float noise.
func QuantityString(q float64) string {
	return decimal.NewFromFloat(q).Round(quantityPrecision).String()
}

func orderResult(resp *binance.CreateOrderResponse) domain.OrderResult {
	executed, _ := decimal.NewFromString(resp.ExecutedQuantity)
	quote, _ := decimal.NewFromString(resp.CummulativeQuoteQuantity)

	out := domain.OrderResult{
		OrderID:       strconv.FormatInt(resp.OrderID, 10),
		ClientOrderID: resp.ClientOrderID,
		Status:        string(resp.Status),
		FilledAt:      time.UnixMilli(resp.TransactTime).UTC(),
	}
	out.ExecutedQuantity, _ = executed.Float64()
	if executed.IsPositive() {
		out.AveragePrice, _ = quote.Div(executed).Float64()
	}
	return out
}
