package market

import (
	"context"
	"errors"

	"autotrader/internal/domain"
)

// ErrUnavailable is returned when a provider is not configured.
var ErrUnavailable = errors.New("provider unavailable")

type PriceFeed interface {
	Snapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error)
	History(ctx context.Context, symbol, interval string, limit int) ([]domain.PricePoint, error)
}

type SentimentFeed interface {
	Sentiment(ctx context.Context) (domain.Sentiment, error)
}

type NewsFeed interface {
	Headlines(ctx context.Context, symbol string, limit int) ([]domain.NewsItem, error)
}
