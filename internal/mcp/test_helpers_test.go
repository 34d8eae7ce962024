package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"autotrader/internal/cache"
	"autotrader/internal/domain"
	"autotrader/internal/engine"
	"autotrader/internal/job"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type stubEngine struct {
	phases    *engine.PhaseTracker
	watchlist []string
	tradeCap  int
}

func (s *stubEngine) Phases() *engine.PhaseTracker { return s.phases }
func (s *stubEngine) Watchlist() []string          { return append([]string(nil), s.watchlist...) }
func (s *stubEngine) DailyTradeCap() int           { return s.tradeCap }

type stubSchedulers struct {
	statuses []job.SchedulerStatus
}

func (s *stubSchedulers) List() []job.SchedulerStatus {
	return append([]job.SchedulerStatus(nil), s.statuses...)
}

type stubActivities struct {
	records    []domain.ActivityRecord
	lastFilter domain.ActivityFilter
}

func (s *stubActivities) List(ctx context.Context, filter domain.ActivityFilter) ([]domain.ActivityRecord, error) {
	s.lastFilter = filter
	return append([]domain.ActivityRecord(nil), s.records...), nil
}

type stubCache struct {
	health cache.Health
}

func (s *stubCache) Health() cache.Health { return s.health }

func testSources() Sources {
	phases := engine.NewPhaseTracker()
	phases.Move("bot-1", domain.PhaseFetching)

	activities := &stubActivities{
		records: []domain.ActivityRecord{{
			ID: 7, BotID: "bot-1", Kind: domain.ActivityOrderFilled, Status: domain.StatusSuccess,
			Title: "Order filled", Description: "buy 0.01 BTCUSDT", CreatedAt: time.Unix(0, 0).UTC(),
		}},
	}
	return Sources{
		Engine: &stubEngine{phases: phases, watchlist: []string{"BTCUSDT", "ETHUSDT"}, tradeCap: 10},
		Schedulers: &stubSchedulers{statuses: []job.SchedulerStatus{
			{Owner: job.AllOwners, Running: true, Interval: "5m0s", Ticks: 3},
		}},
		Activities: activities,
		Cache: &stubCache{health: cache.Health{
			Status: cache.HealthGreen,
			Reason: "not enough traffic",
			Stats:  cache.Stats{Hits: 4, Entries: 2},
		}},
	}
}

func testServer() (*sdkmcp.Server, *stubActivities) {
	src := testSources()
	srv := NewServer(nil, src, ServerConfig{RequestTimeout: time.Second})
	return srv, src.Activities.(*stubActivities)
}

func connectInMemory(ctx context.Context, srv *sdkmcp.Server) (*sdkmcp.ClientSession, context.CancelFunc, error) {
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = srv.Run(runCtx, serverTransport) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "mcp-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return session, cancel, nil
}

type authRoundTripper struct {
	token string
	base  http.RoundTripper
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if t.token != "" {
		clone.Header.Set("Authorization", "Bearer "+t.token)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}

func decodeResourceJSON(result *sdkmcp.ReadResourceResult, out any) error {
	if len(result.Contents) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(result.Contents[0].Text), out)
}

func decodeToolJSON(result *sdkmcp.CallToolResult, out any) error {
	body, err := json.Marshal(result.StructuredContent)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
