package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.CacheHit("market")
	r.CacheHit("market")
	r.CacheMiss("news")
	r.CacheError("news")
	r.CacheEvicted(3)
	r.CacheSize(12)
	r.ActivityRecorded("order_filled", "success")
	r.BotOutcome("executed")
	r.TickObserved("", 0.2)
	r.MCPRejected("rate_limited")

	if got := testutil.ToFloat64(r.cacheLookups.WithLabelValues("market", "hit")); got != 2 {
		t.Fatalf("expected 2 hits, got %v", got)
	}
	if got := testutil.ToFloat64(r.cacheErrors.WithLabelValues("news")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if got := testutil.ToFloat64(r.cacheEvicted); got != 3 {
		t.Fatalf("expected 3 evictions, got %v", got)
	}
	if got := testutil.ToFloat64(r.cacheEntries); got != 12 {
		t.Fatalf("expected gauge 12, got %v", got)
	}
	if got := testutil.ToFloat64(r.activities.WithLabelValues("order_filled", "success")); got != 1 {
		t.Fatalf("expected 1 activity, got %v", got)
	}

	if got := testutil.ToFloat64(r.mcpRejected.WithLabelValues("rate_limited")); got != 1 {
		t.Fatalf("expected 1 mcp rejection, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestNewOnSeparateRegistries(t *testing.T) {
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}
