package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKlinesToPoints(t *testing.T) {
	klines := []*binance.Kline{
		{OpenTime: 1700000000000, Open: "100.5", High: "101", Low: "99", Close: "100", Volume: "12.5"},
		nil,
		{OpenTime: 1700003600000, Open: "100", High: "102", Low: "100", Close: "101.25", Volume: "3"},
	}
	points, err := klinesToPoints(klines)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 100.5, points[0].Open)
	assert.Equal(t, 101.25, points[1].Close)
	assert.Equal(t, time.UnixMilli(1700003600000).UTC(), points[1].Timestamp)

	_, err = klinesToPoints([]*binance.Kline{{Open: "x"}})
	assert.Error(t, err)
}

func TestStatsToSnapshot(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	snap, err := statsToSnapshot(&binance.PriceChangeStats{
		Symbol:             "btcusdt",
		LastPrice:          "65000.10",
		PriceChangePercent: "-3.2",
		HighPrice:          "67000",
		LowPrice:           "64000",
		Volume:             "1200",
		QuoteVolume:        "78000000",
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", snap.Symbol)
	assert.Equal(t, 65000.10, snap.Price)
	assert.Equal(t, -3.2, snap.Change24hPct)
	assert.Equal(t, 78000000.0, snap.QuoteVolume24h)
	assert.Equal(t, now, snap.UpdatedAt)

	_, err = statsToSnapshot(&binance.PriceChangeStats{LastPrice: "0"}, now)
	assert.Error(t, err)
}

func TestFearGreedFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"value":"23","value_classification":"Extreme Fear","timestamp":"1700000000"}],"metadata":{"error":null}}`))
	}))
	defer srv.Close()

	feed := NewFearGreedFeed()
	feed.endpoint = srv.URL
	s, err := feed.Sentiment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 23, s.Value)
	assert.Equal(t, "Extreme Fear", s.Classification)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), s.UpdatedAt)
}

func TestFearGreedFeedErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	feed := NewFearGreedFeed()
	feed.endpoint = srv.URL
	_, err := feed.Sentiment(context.Background())
	assert.Error(t, err)
}

func TestCryptoCompareNews(t *testing.T) {
	var gotCategories, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCategories = r.URL.Query().Get("categories")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"Data":[
			{"title":"BTC breaks out","source":"coindesk","url":"https://x/1","published_on":1700000000},
			{"title":"","source":"skip"},
			{"title":"Miners sell","source":"decrypt","url":"https://x/2","published_on":1700000100},
			{"title":"Third","source":"theblock","url":"https://x/3","published_on":1700000200}
		]}`))
	}))
	defer srv.Close()

	news := NewCryptoCompareNews("secret")
	news.endpoint = srv.URL
	items, err := news.Headlines(context.Background(), "BTCUSDT", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "BTC breaks out", items[0].Title)
	assert.Equal(t, "decrypt", items[1].Source)
	assert.Equal(t, "BTC", gotCategories)
	assert.Equal(t, "Apikey secret", gotAuth)
}

func TestBaseAsset(t *testing.T) {
	assert.Equal(t, "BTC", BaseAsset("btcusdt"))
	assert.Equal(t, "ETH", BaseAsset("ETHBTC"))
	assert.Equal(t, "USDT", BaseAsset("USDT"))
}
