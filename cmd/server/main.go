package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"autotrader/internal/bot"
	"autotrader/internal/cache"
	"autotrader/internal/config"
	"autotrader/internal/db"
	"autotrader/internal/decision"
	"autotrader/internal/engine"
	"autotrader/internal/exchange"
	"autotrader/internal/handler"
	"autotrader/internal/job"
	"autotrader/internal/logging"
	"autotrader/internal/market"
	mcpserver "autotrader/internal/mcp"
	"autotrader/internal/metrics"
	"autotrader/internal/repository"
	"autotrader/internal/retry"
	"autotrader/internal/risk"
	"autotrader/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	_ "autotrader/docs"
)

const (
	cacheSweepInterval       = time.Minute
	mcpMaxBodyBytes    int64 = 1 << 20
	shutdownTimeout          = 5 * time.Second
	retryMaxDelay            = 10 * time.Second
	leaseGrace               = 30 * time.Second
)

var errNoDatabase = errors.New("DATABASE_URL is required to run the engine")

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initLoggingFunc  = logging.Init
	initTracerFunc   = tracing.InitTracer
	initPostgresFunc = func(ctx context.Context, dsn string) (repository.PgxPool, error) {
		if err := db.InitPostgres(ctx, dsn); err != nil {
			return nil, err
		}
		if db.Pool == nil {
			return nil, errNoDatabase
		}
		return db.Pool, nil
	}
	initRedisFunc = func(ctx context.Context, addr string) (*redis.Client, error) {
		if err := cache.InitRedis(ctx, addr); err != nil {
			return nil, err
		}
		return cache.Client, nil
	}
	newMetricsFunc = func() (*metrics.Recorder, prometheus.Gatherer) {
		return metrics.New(prometheus.DefaultRegisterer), prometheus.DefaultGatherer
	}
	newPriceFeedFunc = func(cfg *config.Config) market.PriceFeed {
		return market.NewBinanceFeed(cfg.BinanceAPIKey, cfg.BinanceSecretKey, cfg.BinanceTestnet)
	}
	newSentimentFeedFunc = func() market.SentimentFeed { return market.NewFearGreedFeed() }
	newNewsFeedFunc      = func(cfg *config.Config) market.NewsFeed { return market.NewCryptoCompareNews(cfg.NewsAPIKey) }
	newReasonerFunc      = func(cfg *config.Config) decision.Reasoner {
		if cfg.OpenAIAPIKey == "" {
			return nil
		}
		return decision.NewOpenAIReasoner(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	}
	newSinkFunc = func(cfg *config.Config, prices exchange.PriceSource) exchange.Sink {
		if cfg.PaperTrading {
			return exchange.NewPaperSink(prices)
		}
		return exchange.NewBinanceSink(cfg.BinanceAPIKey, cfg.BinanceSecretKey, cfg.BinanceTestnet)
	}
	startTelegramBotFunc   = bot.StartTelegramBot
	startCacheSweepFunc    = func(s *cache.Store, ctx context.Context) { go s.Run(ctx, cacheSweepInterval) }
	startDailyResetFunc    = func(j *job.DailyReset, ctx context.Context) { go j.Start(ctx) }
	newRouterFunc          = gin.Default
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Autotrader API
// @version         1.0
// @description     Multi-bot crypto trading engine: bot control, activity logs and scheduler management.

// @host      localhost:8080
// @BasePath  /
func main() {
	_ = loadEnvFunc()

	cfg, err := loadConfigFunc()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := initLoggingFunc(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("failed to configure logging")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	pool, err := initPostgresFunc(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Postgres")
	}
	botRepo := repository.NewBotRepository(pool, tracer)
	activityRepo := repository.NewActivityRepository(pool, tracer)
	tradeRepo := repository.NewTradeRepository(pool, tracer)
	for _, migrate := range []func(context.Context) error{
		botRepo.RunMigrations,
		activityRepo.RunMigrations,
		tradeRepo.RunMigrations,
	} {
		if err := migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	redisClient, err := initRedisFunc(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, scheduler ticks run without a lease")
		redisClient = nil
	}
	lease := cache.NewLease(redisClient, "", cfg.TickTimeout()+leaseGrace)

	recorder, gatherer := newMetricsFunc()
	store := cache.NewStore(
		cache.WithMaxEntries(cfg.CacheMaxEntries),
		cache.WithObserver(recorder),
	)
	startCacheSweepFunc(store, ctx)

	policy := retry.Policy{
		MaxAttempts:  cfg.RetryMaxAttempts,
		InitialDelay: cfg.RetryInitialDelay(),
		MaxDelay:     retryMaxDelay,
	}
	marketSvc := market.NewService(tracer, store, newPriceFeedFunc(cfg), newSentimentFeedFunc(), newNewsFeedFunc(cfg), market.Options{
		Interval:     cfg.KlineInterval,
		HistoryLimit: cfg.HistoryLimit,
		Concurrency:  cfg.MaxConcurrentBots,
		Policy:       policy,
	})
	decider := decision.NewService(tracer, newReasonerFunc(cfg), policy)
	riskEngine := risk.NewEngine(tracer, risk.Config{
		MinConfidence: cfg.ConfidenceThreshold,
		MinTradeValue: cfg.MinTradeValue,
	})
	sink := newSinkFunc(cfg, marketSvc)

	// The registry only calls the factory on Start, after eng is assigned.
	var eng *engine.Engine
	registry := job.NewRegistry(ctx, func(owner string) *job.Scheduler {
		return job.NewScheduler(tracer, eng, owner, cfg.TickInterval(), lease)
	})
	defer registry.StopAll()

	deps := engine.Deps{
		Bots:       botRepo,
		Activities: activityRepo,
		Trades:     tradeRepo,
		Market:     marketSvc,
		Decider:    decider,
		Risk:       riskEngine,
		Sink:       sink,
		Metrics:    recorder,
	}
	if alerts := startTelegramBotFunc(ctx, cfg.TelegramBotToken, registry, store); alerts != nil {
		deps.Notifier = alerts
	}
	eng = engine.New(tracer, deps, engine.Config{
		Watchlist:         cfg.Watchlist,
		DailyTradeCap:     cfg.DailyTradeCap,
		MaxConcurrentBots: cfg.MaxConcurrentBots,
		TickTimeout:       cfg.TickTimeout(),
		Cutoff:            cfg.Cutoff(),
		EODWindow:         time.Duration(cfg.EODWindowMinutes) * time.Minute,
		Location:          cfg.Location(),
		OrderRetry:        policy,
	})

	if cfg.SchedulerAutostart {
		if _, err := registry.Start(job.AllOwners); err != nil {
			log.Error().Err(err).Msg("failed to start default scheduler")
		}
	}
	startDailyResetFunc(job.NewDailyReset(tracer, botRepo, cfg.Location()), ctx)

	h := handler.New(tracer, store, eng, registry, activityRepo, botRepo, gatherer)

	r := newRouterFunc()
	r.Use(otelgin.Middleware(tracing.ServiceName))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	mountMCP(r, cfg, tracer, recorder, mcpserver.Sources{
		Engine:     eng,
		Schedulers: registry,
		Activities: activityRepo,
		Cache:      store,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()
	log.Info().Str("addr", srv.Addr).Bool("paper", cfg.PaperTrading).Msg("server started")

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("Shutting down server...")

	registry.StopAll()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("Server exiting")
}

// mountMCP serves the MCP streamable HTTP transport on /mcp next to the
// REST routes when it is enabled and guarded by a token.
func mountMCP(r *gin.Engine, cfg *config.Config, tracer trace.Tracer, obs mcpserver.RejectionObserver, src mcpserver.Sources) bool {
	if !cfg.MCPHTTPEnabled {
		return false
	}
	if strings.TrimSpace(cfg.MCPAuthToken) == "" {
		log.Warn().Msg("MCP_HTTP_ENABLED without MCP_AUTH_TOKEN, not mounting /mcp")
		return false
	}
	srv := mcpserver.NewServer(tracer, src, mcpserver.ServerConfig{
		RequestTimeout: time.Duration(cfg.MCPRequestTimeoutSecs) * time.Second,
	})
	h := gin.WrapH(mcpserver.NewHTTPTransportHandler(srv, mcpserver.HTTPHandlerConfig{
		AuthToken:       cfg.MCPAuthToken,
		RateLimitPerMin: cfg.MCPRateLimitPerMin,
		MaxBodyBytes:    mcpMaxBodyBytes,
		Observer:        obs,
	}))
	r.Any("/mcp", h)
	return true
}
