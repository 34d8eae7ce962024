package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exports engine and cache counters to Prometheus.
type Recorder struct {
	cacheLookups  *prometheus.CounterVec
	cacheErrors   *prometheus.CounterVec
	cacheEvicted  prometheus.Counter
	cacheEntries  prometheus.Gauge
	activities    *prometheus.CounterVec
	tickDuration  *prometheus.HistogramVec
	botsProcessed *prometheus.CounterVec
	mcpRejected   *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autotrader_cache_lookups_total",
				Help: "Cache lookups by source kind and result",
			},
			[]string{"kind", "result"},
		),
		cacheErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autotrader_cache_fetch_errors_total",
				Help: "Failed upstream fetches behind the cache",
			},
			[]string{"kind"},
		),
		cacheEvicted: f.NewCounter(prometheus.CounterOpts{
			Name: "autotrader_cache_evictions_total",
			Help: "Entries evicted for capacity",
		}),
		cacheEntries: f.NewGauge(prometheus.GaugeOpts{
			Name: "autotrader_cache_entries",
			Help: "Entries currently held",
		}),
		activities: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autotrader_activity_records_total",
				Help: "Activity records written by kind and status",
			},
			[]string{"kind", "status"},
		),
		tickDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autotrader_tick_duration_seconds",
				Help:    "Duration of scheduler ticks",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"owner"},
		),
		botsProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autotrader_bot_outcomes_total",
				Help: "Per-bot tick outcomes",
			},
			[]string{"outcome"},
		),
		mcpRejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autotrader_mcp_rejected_requests_total",
				Help: "MCP HTTP requests refused before reaching the server",
			},
			[]string{"reason"},
		),
	}
}

func (r *Recorder) CacheHit(kind string) {
	r.cacheLookups.WithLabelValues(kind, "hit").Inc()
}

func (r *Recorder) CacheMiss(kind string) {
	r.cacheLookups.WithLabelValues(kind, "miss").Inc()
}

func (r *Recorder) CacheError(kind string) {
	r.cacheErrors.WithLabelValues(kind).Inc()
}

func (r *Recorder) CacheEvicted(n int) {
	r.cacheEvicted.Add(float64(n))
}

func (r *Recorder) CacheSize(n int) {
	r.cacheEntries.Set(float64(n))
}

func (r *Recorder) ActivityRecorded(kind, status string) {
	r.activities.WithLabelValues(kind, status).Inc()
}

func (r *Recorder) TickObserved(owner string, seconds float64) {
	r.tickDuration.WithLabelValues(owner).Observe(seconds)
}

func (r *Recorder) BotOutcome(outcome string) {
	r.botsProcessed.WithLabelValues(outcome).Inc()
}

func (r *Recorder) MCPRejected(reason string) {
	r.mcpRejected.WithLabelValues(reason).Inc()
}
