package cache

import (
	"testing"

	"autotrader/internal/domain"
)

func TestKeyIsOrderIndependent(t *testing.T) {
	a := Key(domain.SourceHistory, map[string]string{"symbol": "BTCUSDT", "interval": "1h"})
	b := Key(domain.SourceHistory, map[string]string{"interval": "1h", "symbol": "BTCUSDT"})
	if a != b {
		t.Fatalf("expected identical keys, got %q and %q", a, b)
	}
}

func TestKeyNormalisesNamesAndValues(t *testing.T) {
	a := Key(domain.SourceMarket, map[string]string{" Symbol ": " BTCUSDT"})
	b := Key(domain.SourceMarket, map[string]string{"symbol": "BTCUSDT"})
	if a != b {
		t.Fatalf("expected normalised keys to match, got %q and %q", a, b)
	}
}

func TestKeyDistinguishesKindsAndValues(t *testing.T) {
	params := map[string]string{"symbol": "BTCUSDT"}
	if Key(domain.SourceMarket, params) == Key(domain.SourceNews, params) {
		t.Fatal("expected different kinds to produce different keys")
	}
	if Key(domain.SourceMarket, params) == Key(domain.SourceMarket, map[string]string{"symbol": "ETHUSDT"}) {
		t.Fatal("expected different values to produce different keys")
	}
}

func TestKeyEscapesSeparators(t *testing.T) {
	a := Key(domain.SourceNews, map[string]string{"q": "a&b=c"})
	b := Key(domain.SourceNews, map[string]string{"q": "a", "b": "c"})
	if a == b {
		t.Fatalf("expected escaped values not to collide: %q", a)
	}
}

func TestKeyWithoutParams(t *testing.T) {
	if got := Key(domain.SourceSentiment, nil); got != "sentiment" {
		t.Fatalf("unexpected key %q", got)
	}
}
