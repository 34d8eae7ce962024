package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"autotrader/internal/decision"
	"autotrader/internal/domain"
	"autotrader/internal/indicator"
	"autotrader/internal/market"
)

type fakeBots struct {
	mu      sync.Mutex
	bots    []domain.Bot
	updates map[string]domain.Bot
	err     error
}

func (f *fakeBots) ListRunning(_ context.Context, ownerID string) ([]domain.Bot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Bot
	for _, b := range f.bots {
		if ownerID == "" || b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBots) UpdateState(_ context.Context, b domain.Bot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updates == nil {
		f.updates = map[string]domain.Bot{}
	}
	f.updates[b.ID] = b
	return nil
}

func (f *fakeBots) updated(id string) (domain.Bot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.updates[id]
	return b, ok
}

type fakeActivities struct {
	mu      sync.Mutex
	records []domain.ActivityRecord
	nextID  int64
}

func (f *fakeActivities) Append(_ context.Context, rec domain.ActivityRecord) (domain.ActivityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	rec.ID = f.nextID
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeActivities) forBot(botID string) []domain.ActivityRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ActivityRecord
	for _, r := range f.records {
		if r.BotID == botID {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeActivities) kinds(botID string) []domain.ActivityKind {
	var out []domain.ActivityKind
	for _, r := range f.forBot(botID) {
		out = append(out, r.Kind)
	}
	return out
}

type fakeTrades struct {
	mu     sync.Mutex
	trades map[string]domain.Trade
}

func newFakeTrades(seed ...domain.Trade) *fakeTrades {
	f := &fakeTrades{trades: map[string]domain.Trade{}}
	for _, t := range seed {
		f.trades[t.ID] = t
	}
	return f
}

func (f *fakeTrades) Insert(_ context.Context, t domain.Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades[t.ID] = t
	return nil
}

func (f *fakeTrades) RecentClosed(_ context.Context, botID string, limit int) ([]domain.Trade, error) {
	return f.filter(botID, domain.TradeClosed), nil
}

func (f *fakeTrades) OpenPositions(_ context.Context, botID string) ([]domain.Trade, error) {
	return f.filter(botID, domain.TradeOpen), nil
}

func (f *fakeTrades) ClosePosition(_ context.Context, id string, exitPrice, pnl float64, closedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trades[id]
	if !ok || t.Status != domain.TradeOpen {
		return errors.New("not open")
	}
	t.Status = domain.TradeClosed
	t.ExitPrice = &exitPrice
	t.PnL = &pnl
	t.ClosedAt = &closedAt
	f.trades[id] = t
	return nil
}

func (f *fakeTrades) filter(botID string, status domain.TradeStatus) []domain.Trade {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Trade
	for _, t := range f.trades {
		if t.BotID == botID && t.Status == status {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type fakeMarket struct {
	mu           sync.Mutex
	prices       map[string]float64
	fail         map[string]error
	points       int
	blockRefresh bool
	refreshed    [][]string
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{prices: map[string]float64{}, fail: map[string]error{}, points: 30}
}

func (f *fakeMarket) Refresh(ctx context.Context, symbols []string) market.RefreshReport {
	f.mu.Lock()
	f.refreshed = append(f.refreshed, symbols)
	block := f.blockRefresh
	f.mu.Unlock()
	if block {
		<-ctx.Done()
	}
	return market.RefreshReport{Symbols: market.NormalizeSymbols(symbols)}
}

func (f *fakeMarket) Snapshot(_ context.Context, symbol string) (domain.MarketSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[symbol]; err != nil {
		return domain.MarketSnapshot{}, err
	}
	price, ok := f.prices[symbol]
	if !ok {
		price = 100
	}
	return domain.MarketSnapshot{Symbol: symbol, Price: price, QuoteVolume24h: 100_000_000}, nil
}

func (f *fakeMarket) Indicators(_ context.Context, symbol string) (domain.Indicators, []domain.PricePoint, error) {
	f.mu.Lock()
	n := f.points
	f.mu.Unlock()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	history := make([]domain.PricePoint, n)
	for i := range history {
		c := 100.0
		if i%2 == 1 {
			c = 100.5
		}
		history[i] = domain.PricePoint{Timestamp: start.Add(time.Duration(i) * time.Hour), Open: c, High: c, Low: c, Close: c, Volume: 10}
	}
	return indicator.Compute(history), history, nil
}

func (f *fakeMarket) Sentiment(context.Context) (domain.Sentiment, error) {
	return domain.Sentiment{}, market.ErrUnavailable
}

func (f *fakeMarket) News(context.Context, string) ([]domain.NewsItem, error) {
	return nil, market.ErrUnavailable
}

// scriptedDecider returns a fixed signal per symbol, hold otherwise.
type scriptedDecider struct {
	mu      sync.Mutex
	signals map[string]domain.TradeSignal
	calls   int
}

func (d *scriptedDecider) Decide(_ context.Context, in decision.Input) decision.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	sig, ok := d.signals[in.Symbol]
	if !ok {
		sig = domain.TradeSignal{Action: domain.ActionHold, Confidence: 50, Reasoning: "nothing to do"}
	}
	sig.Symbol = in.Symbol
	return decision.Result{Signal: sig, Question: fmt.Sprintf("what about %s?", in.Symbol), Source: decision.SourceAI}
}

type fakeSink struct {
	mu     sync.Mutex
	orders []domain.OrderRequest
	price  float64
	err    error
	// failures are returned, in order, before err or a fill.
	failures []error
}

func (s *fakeSink) SubmitOrder(_ context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, req)
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return domain.OrderResult{}, err
	}
	if s.err != nil {
		return domain.OrderResult{}, s.err
	}
	price := s.price
	if price == 0 {
		price = 100
	}
	return domain.OrderResult{
		OrderID:          fmt.Sprintf("o-%d", len(s.orders)),
		ClientOrderID:    req.ClientOrderID,
		ExecutedQuantity: req.Quantity,
		AveragePrice:     price,
		Status:           "FILLED",
	}, nil
}

type countingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	ticks    int
	records  int
}

func (m *countingMetrics) ActivityRecorded(string, string) {
	m.mu.Lock()
	m.records++
	m.mu.Unlock()
}

func (m *countingMetrics) TickObserved(string, float64) {
	m.mu.Lock()
	m.ticks++
	m.mu.Unlock()
}

func (m *countingMetrics) BotOutcome(outcome string) {
	m.mu.Lock()
	if m.outcomes == nil {
		m.outcomes = map[string]int{}
	}
	m.outcomes[outcome]++
	m.mu.Unlock()
}
