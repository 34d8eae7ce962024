package market

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"autotrader/internal/cache"
	"autotrader/internal/domain"
	"autotrader/internal/indicator"
	"autotrader/internal/retry"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Interval     string
	HistoryLimit int
	NewsLimit    int
	Concurrency  int
	Policy       retry.Policy
}

func (o Options) withDefaults() Options {
	if o.Interval == "" {
		o.Interval = "1h"
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = 100
	}
	if o.NewsLimit <= 0 {
		o.NewsLimit = 5
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	return o
}

// RefreshReport summarises one batch refresh. Failed maps "kind:symbol" to
// the last error for that fetch.
type RefreshReport struct {
	Symbols []string          `json:"symbols"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// Service reads market data through the expiring cache. Every fetch on a
// miss is retried with the configured policy; a failing provider never
// blocks the others.
type Service struct {
	tracer    trace.Tracer
	store     *cache.Store
	prices    PriceFeed
	sentiment SentimentFeed
	news      NewsFeed
	opts      Options
}

func NewService(tracer trace.Tracer, store *cache.Store, prices PriceFeed, sentiment SentimentFeed, news NewsFeed, opts Options) *Service {
	return &Service{
		tracer:    tracer,
		store:     store,
		prices:    prices,
		sentiment: sentiment,
		news:      news,
		opts:      opts.withDefaults(),
	}
}

// Refresh warms the cache for every symbol in one batch so bots watching the
// same symbol share a single fetch.
func (s *Service) Refresh(ctx context.Context, symbols []string) RefreshReport {
	ctx, span := s.tracer.Start(ctx, "market.refresh")
	defer span.End()

	symbols = NormalizeSymbols(symbols)
	span.SetAttributes(attribute.Int("symbols", len(symbols)))
	report := RefreshReport{Symbols: symbols, Failed: map[string]string{}}

	var mu sync.Mutex
	fail := func(kind domain.SourceKind, symbol string, err error) {
		key := string(kind)
		if symbol != "" {
			key += ":" + symbol
		}
		log.Warn().Err(err).Str("source", string(kind)).Str("symbol", symbol).Msg("market refresh failed")
		mu.Lock()
		report.Failed[key] = err.Error()
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	if s.sentiment != nil {
		g.Go(func() error {
			if _, err := s.Sentiment(gctx); err != nil {
				fail(domain.SourceSentiment, "", err)
			}
			return nil
		})
	}
	for _, symbol := range symbols {
		g.Go(func() error {
			if _, err := s.Snapshot(gctx, symbol); err != nil {
				fail(domain.SourceMarket, symbol, err)
			}
			if _, err := s.History(gctx, symbol); err != nil {
				fail(domain.SourceHistory, symbol, err)
			}
			if s.news != nil {
				if _, err := s.News(gctx, symbol); err != nil {
					fail(domain.SourceNews, symbol, err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(report.Failed) == 0 {
		report.Failed = nil
	}
	return report
}

func (s *Service) Snapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error) {
	symbol = strings.ToUpper(symbol)
	if s.prices == nil {
		return domain.MarketSnapshot{}, fmt.Errorf("price feed: %w", ErrUnavailable)
	}
	params := map[string]string{"symbol": symbol}
	return cache.GetOrFetch(ctx, s.store, domain.SourceMarket, params, func(ctx context.Context) (domain.MarketSnapshot, error) {
		return retry.Do(ctx, s.opts.Policy, func(ctx context.Context) (domain.MarketSnapshot, error) {
			return s.prices.Snapshot(ctx, symbol)
		})
	})
}

func (s *Service) History(ctx context.Context, symbol string) ([]domain.PricePoint, error) {
	symbol = strings.ToUpper(symbol)
	if s.prices == nil {
		return nil, fmt.Errorf("price feed: %w", ErrUnavailable)
	}
	params := map[string]string{
		"symbol":   symbol,
		"interval": s.opts.Interval,
		"limit":    strconv.Itoa(s.opts.HistoryLimit),
	}
	return cache.GetOrFetch(ctx, s.store, domain.SourceHistory, params, func(ctx context.Context) ([]domain.PricePoint, error) {
		return retry.Do(ctx, s.opts.Policy, func(ctx context.Context) ([]domain.PricePoint, error) {
			return s.prices.History(ctx, symbol, s.opts.Interval, s.opts.HistoryLimit)
		})
	})
}

// Sentiment is market-wide, so it is cached once for all symbols.
func (s *Service) Sentiment(ctx context.Context) (domain.Sentiment, error) {
	if s.sentiment == nil {
		return domain.Sentiment{}, fmt.Errorf("sentiment feed: %w", ErrUnavailable)
	}
	return cache.GetOrFetch(ctx, s.store, domain.SourceSentiment, nil, func(ctx context.Context) (domain.Sentiment, error) {
		return retry.Do(ctx, s.opts.Policy, s.sentiment.Sentiment)
	})
}

func (s *Service) News(ctx context.Context, symbol string) ([]domain.NewsItem, error) {
	symbol = strings.ToUpper(symbol)
	if s.news == nil {
		return nil, fmt.Errorf("news feed: %w", ErrUnavailable)
	}
	params := map[string]string{"symbol": symbol, "limit": strconv.Itoa(s.opts.NewsLimit)}
	return cache.GetOrFetch(ctx, s.store, domain.SourceNews, params, func(ctx context.Context) ([]domain.NewsItem, error) {
		return retry.Do(ctx, s.opts.Policy, func(ctx context.Context) ([]domain.NewsItem, error) {
			return s.news.Headlines(ctx, symbol, s.opts.NewsLimit)
		})
	})
}

// Indicators returns the indicators and the history they were derived from.
// They are cached per symbol and last candle time, so a new candle always
// produces a fresh computation.
func (s *Service) Indicators(ctx context.Context, symbol string) (domain.Indicators, []domain.PricePoint, error) {
	ctx, span := s.tracer.Start(ctx, "market.indicators")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	history, err := s.History(ctx, symbol)
	if err != nil {
		return domain.Indicators{}, nil, err
	}
	if len(history) == 0 {
		return domain.Indicators{}, nil, nil
	}

	last := history[len(history)-1].Timestamp
	params := map[string]string{
		"symbol":   strings.ToUpper(symbol),
		"interval": s.opts.Interval,
		"last":     strconv.FormatInt(last.UnixMilli(), 10),
	}
	ind, err := cache.GetOrFetch(ctx, s.store, domain.SourceIndicators, params, func(context.Context) (domain.Indicators, error) {
		return indicator.Compute(history), nil
	})
	return ind, history, err
}

// NormalizeSymbols upper-cases, trims and de-duplicates symbols, keeping order.
func NormalizeSymbols(symbols []string) []string {
	cleaned := lo.FilterMap(symbols, func(s string, _ int) (string, bool) {
		s = strings.ToUpper(strings.TrimSpace(s))
		return s, s != ""
	})
	return lo.Uniq(cleaned)
}
