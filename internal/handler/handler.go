package handler

import (
	"context"
	"time"

	"autotrader/internal/cache"
	"autotrader/internal/domain"
	"autotrader/internal/engine"
	"autotrader/internal/job"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
)

type CacheHealth interface {
	Health() cache.Health
}

type EngineView interface {
	Phases() *engine.PhaseTracker
	Broadcaster() *engine.Broadcaster
	Watchlist() []string
	DailyTradeCap() int
}

type Schedulers interface {
	Start(owner string) (job.SchedulerStatus, error)
	Stop(owner string) (job.SchedulerStatus, error)
	Status(owner string) (job.SchedulerStatus, bool)
	List() []job.SchedulerStatus
	Running() int
}

type ActivityLister interface {
	List(ctx context.Context, filter domain.ActivityFilter) ([]domain.ActivityRecord, error)
}

type BotStore interface {
	Get(ctx context.Context, id string) (domain.Bot, error)
	SetStatus(ctx context.Context, id string, status domain.BotStatus) error
}

type Handler struct {
	tracer     trace.Tracer
	cache      CacheHealth
	engine     EngineView
	schedulers Schedulers
	activities ActivityLister
	bots       BotStore
	gatherer   prometheus.Gatherer
	startedAt  time.Time
}

// New wires the status surface. Any dependency may be nil; its routes then
// answer 503.
func New(
	tracer trace.Tracer,
	cacheHealth CacheHealth,
	eng EngineView,
	schedulers Schedulers,
	activities ActivityLister,
	bots BotStore,
	gatherer prometheus.Gatherer,
) *Handler {
	return &Handler{
		tracer:     tracer,
		cache:      cacheHealth,
		engine:     eng,
		schedulers: schedulers,
		activities: activities,
		bots:       bots,
		gatherer:   gatherer,
		startedAt:  time.Now().UTC(),
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	r.GET("/health", h.Health)
	r.GET("/api/status", h.GetStatus)
	r.GET("/api/bots/:id", h.GetBot)
	r.POST("/api/bots/:id/status", h.SetBotStatus)
	r.GET("/api/bots/:id/activity", h.GetBotActivity)
	r.GET("/api/activity/stream", h.StreamActivity)
	r.GET("/api/schedulers", h.ListSchedulers)
	r.GET("/api/schedulers/:owner", h.GetScheduler)
	r.POST("/api/schedulers/:owner/start", h.StartScheduler)
	r.POST("/api/schedulers/:owner/stop", h.StopScheduler)

	if h.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}
}
