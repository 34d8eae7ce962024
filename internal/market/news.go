package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"autotrader/internal/domain"

	"github.com/tidwall/gjson"
)

const cryptoCompareNewsEndpoint = "https://min-api.cryptocompare.com/data/v2/news/"

// CryptoCompareNews fetches recent headlines for a base asset.
type CryptoCompareNews struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewCryptoCompareNews(apiKey string) *CryptoCompareNews {
	return &CryptoCompareNews{
		endpoint: cryptoCompareNewsEndpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 8 * time.Second},
	}
}

func (n *CryptoCompareNews) Headlines(ctx context.Context, symbol string, limit int) ([]domain.NewsItem, error) {
	q := url.Values{}
	q.Set("lang", "EN")
	if base := BaseAsset(symbol); base != "" {
		q.Set("categories", base)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if n.apiKey != "" {
		req.Header.Set("Authorization", "Apikey "+n.apiKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("news: unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("read news: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("news: invalid JSON")
	}

	var items []domain.NewsItem
	gjson.GetBytes(body, "Data").ForEach(func(_, v gjson.Result) bool {
		title := strings.TrimSpace(v.Get("title").String())
		if title == "" {
			return true
		}
		items = append(items, domain.NewsItem{
			Title:       title,
			Source:      v.Get("source").String(),
			URL:         v.Get("url").String(),
			PublishedAt: time.Unix(v.Get("published_on").Int(), 0).UTC(),
		})
		return limit <= 0 || len(items) < limit
	})
	return items, nil
}

var quoteAssets = []string{"USDT", "USDC", "BUSD", "FDUSD", "BTC", "ETH"}

// BaseAsset strips the quote asset from a spot symbol: BTCUSDT -> BTC.
func BaseAsset(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, quote := range quoteAssets {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return strings.TrimSuffix(s, quote)
		}
	}
	return s
}
