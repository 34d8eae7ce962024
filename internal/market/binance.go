package market

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"autotrader/internal/domain"

	"github.com/adshao/go-binance/v2"
)

// BinanceFeed reads spot tickers and klines from Binance.
type BinanceFeed struct {
	client *binance.Client
	now    func() time.Time
}

func NewBinanceFeed(apiKey, secretKey string, testnet bool) *BinanceFeed {
	binance.UseTestnet = testnet
	return &BinanceFeed{client: binance.NewClient(apiKey, secretKey), now: time.Now}
}

func (f *BinanceFeed) Snapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error) {
	stats, err := f.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("binance 24h ticker %s: %w", symbol, err)
	}
	if len(stats) == 0 || stats[0] == nil {
		return domain.MarketSnapshot{}, fmt.Errorf("binance 24h ticker %s: empty response", symbol)
	}
	return statsToSnapshot(stats[0], f.now())
}

func (f *BinanceFeed) History(ctx context.Context, symbol, interval string, limit int) ([]domain.PricePoint, error) {
	klines, err := f.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", symbol, err)
	}
	return klinesToPoints(klines)
}

func statsToSnapshot(s *binance.PriceChangeStats, now time.Time) (domain.MarketSnapshot, error) {
	price, err := parseFloat(s.LastPrice)
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("last price: %w", err)
	}
	if price <= 0 {
		return domain.MarketSnapshot{}, fmt.Errorf("last price %q is not positive", s.LastPrice)
	}
	snap := domain.MarketSnapshot{
		Symbol:    strings.ToUpper(s.Symbol),
		Price:     price,
		UpdatedAt: now.UTC(),
	}
	// Optional fields stay zero when Binance omits them.
	snap.Change24hPct, _ = parseFloat(s.PriceChangePercent)
	snap.High24h, _ = parseFloat(s.HighPrice)
	snap.Low24h, _ = parseFloat(s.LowPrice)
	snap.Volume24h, _ = parseFloat(s.Volume)
	snap.QuoteVolume24h, _ = parseFloat(s.QuoteVolume)
	return snap, nil
}

func klinesToPoints(klines []*binance.Kline) ([]domain.PricePoint, error) {
	points := make([]domain.PricePoint, 0, len(klines))
	for i, k := range klines {
		if k == nil {
			continue
		}
		var p domain.PricePoint
		var err error
		if p.Open, err = parseFloat(k.Open); err != nil {
			return nil, fmt.Errorf("kline %d open: %w", i, err)
		}
		if p.High, err = parseFloat(k.High); err != nil {
			return nil, fmt.Errorf("kline %d high: %w", i, err)
		}
		if p.Low, err = parseFloat(k.Low); err != nil {
			return nil, fmt.Errorf("kline %d low: %w", i, err)
		}
		if p.Close, err = parseFloat(k.Close); err != nil {
			return nil, fmt.Errorf("kline %d close: %w", i, err)
		}
		if p.Volume, err = parseFloat(k.Volume); err != nil {
			return nil, fmt.Errorf("kline %d volume: %w", i, err)
		}
		p.Timestamp = time.UnixMilli(k.OpenTime).UTC()
		points = append(points, p)
	}
	return points, nil
}

func parseFloat(raw string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}
