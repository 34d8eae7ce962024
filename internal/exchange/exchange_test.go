package exchange

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"autotrader/internal/domain"

	"github.com/adshao/go-binance/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticPrices struct {
	price float64
	err   error
}

func (s staticPrices) Snapshot(_ context.Context, symbol string) (domain.MarketSnapshot, error) {
	return domain.MarketSnapshot{Symbol: symbol, Price: s.price}, s.err
}

func TestPaperSinkFillsAtLastPrice(t *testing.T) {
	sink := NewPaperSink(staticPrices{price: 250.5})
	fixed := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	sink.now = func() time.Time { return fixed }

	res, err := sink.SubmitOrder(context.Background(), domain.OrderRequest{
		Symbol: "SOLUSDT", Side: domain.ActionBuy, Quantity: 2, ClientOrderID: "bot-1-abc",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.OrderID, "paper-"))
	assert.Equal(t, "bot-1-abc", res.ClientOrderID)
	assert.Equal(t, 2.0, res.ExecutedQuantity)
	assert.Equal(t, 250.5, res.AveragePrice)
	assert.Equal(t, "FILLED", res.Status)
	assert.Equal(t, fixed, res.FilledAt)
}

func TestPaperSinkRejectsInvalidOrders(t *testing.T) {
	sink := NewPaperSink(staticPrices{price: 1})
	bad := []domain.OrderRequest{
		{Symbol: "", Side: domain.ActionBuy, Quantity: 1},
		{Symbol: "BTCUSDT", Side: domain.ActionHold, Quantity: 1},
		{Symbol: "BTCUSDT", Side: domain.ActionSell, Quantity: 0},
	}
	for _, req := range bad {
		_, err := sink.SubmitOrder(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidOrder)
	}
}

func TestPaperSinkNeedsPrice(t *testing.T) {
	_, err := NewPaperSink(staticPrices{}).SubmitOrder(context.Background(), domain.OrderRequest{Symbol: "BTCUSDT", Side: domain.ActionBuy, Quantity: 1})
	assert.ErrorIs(t, err, ErrNoPrice)

	down := errors.New("feed down")
	_, err = NewPaperSink(staticPrices{err: down}).SubmitOrder(context.Background(), domain.OrderRequest{Symbol: "BTCUSDT", Side: domain.ActionBuy, Quantity: 1})
	assert.ErrorIs(t, err, down)
}

func TestQuantityString(t *testing.T) {
	assert.Equal(t, "0.001", QuantityString(0.001))
	assert.Equal(t, "0.3", QuantityString(0.1+0.2))
	assert.Equal(t, "0.12345679", QuantityString(0.123456789))
}

func TestOrderResultFromBinance(t *testing.T) {
	res := orderResult(&binance.CreateOrderResponse{
		OrderID:                  42,
		ClientOrderID:            "cid",
		TransactTime:             1700000000000,
		ExecutedQuantity:         "0.5",
		CummulativeQuoteQuantity: "15000",
		Status:                   binance.OrderStatusTypeFilled,
	})
	assert.Equal(t, "42", res.OrderID)
	assert.Equal(t, 0.5, res.ExecutedQuantity)
	assert.Equal(t, 30000.0, res.AveragePrice)
	assert.Equal(t, "FILLED", res.Status)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), res.FilledAt)
}
