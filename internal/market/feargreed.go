package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"autotrader/internal/domain"
)

const fearGreedEndpoint = "https://api.alternative.me/fng/?limit=1"

// FearGreedFeed reads the alternative.me crypto fear & greed index.
type FearGreedFeed struct {
	endpoint string
	client   *http.Client
}

func NewFearGreedFeed() *FearGreedFeed {
	return &FearGreedFeed{
		endpoint: fearGreedEndpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

type fearGreedResponse struct {
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
		Timestamp           string `json:"timestamp"`
	} `json:"data"`
	Metadata struct {
		Error any `json:"error"`
	} `json:"metadata"`
}

func (f *FearGreedFeed) Sentiment(ctx context.Context) (domain.Sentiment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return domain.Sentiment{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.Sentiment{}, fmt.Errorf("fear & greed request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Sentiment{}, fmt.Errorf("fear & greed: unexpected status %s", resp.Status)
	}

	var payload fearGreedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Sentiment{}, fmt.Errorf("decode fear & greed: %w", err)
	}
	if payload.Metadata.Error != nil {
		return domain.Sentiment{}, fmt.Errorf("fear & greed api error: %v", payload.Metadata.Error)
	}
	if len(payload.Data) == 0 {
		return domain.Sentiment{}, fmt.Errorf("fear & greed: empty data")
	}

	item := payload.Data[0]
	value, err := strconv.Atoi(strings.TrimSpace(item.Value))
	if err != nil {
		return domain.Sentiment{}, fmt.Errorf("fear & greed value %q: %w", item.Value, err)
	}
	if value < 0 || value > 100 {
		return domain.Sentiment{}, fmt.Errorf("fear & greed value %d out of range", value)
	}
	s := domain.Sentiment{Value: value, Classification: item.ValueClassification}
	if ts, err := strconv.ParseInt(strings.TrimSpace(item.Timestamp), 10, 64); err == nil {
		s.UpdatedAt = time.Unix(ts, 0).UTC()
	}
	return s, nil
}
