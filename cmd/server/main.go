package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "market-pulse/docs"
	"market-pulse/internal/app"
	"market-pulse/internal/bot"
	"market-pulse/internal/cache"
	"market-pulse/internal/config"
	"market-pulse/internal/db"
	"market-pulse/internal/handler"
	"market-pulse/internal/job"
	"market-pulse/internal/logging"
	"market-pulse/internal/metrics"
	"market-pulse/internal/service"
	"market-pulse/internal/stream"
	"market-pulse/pkg/tracing"
)

var (
	loadEnvFunc             = godotenv.Load
	loadConfigFunc          = config.Load
	setupLoggingFunc        = logging.Setup
	initPostgresFunc        = db.InitPostgres
	initRedisFunc           = cache.InitRedis
	initTracerFunc          = tracing.InitTracer
	newTelegramBotFunc      = bot.NewTelegramBot
	buildPipelineFunc       = app.Build
	newOverviewPollerFunc   = job.NewOverviewPoller
	startPollerFunc         = func(p *job.OverviewPoller, ctx context.Context) { go p.Start(ctx) }
	newBoardRefresherFunc   = job.NewBoardRefresher
	startBoardRefresherFunc = func(r *job.BoardRefresher, ctx context.Context) { go r.Start(ctx) }
	newRouterFunc           = gin.Default
	setupSignalNotify       = ossignal.Notify
	waitForSignalFunc       = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc     = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc  = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Market Pulse API
// @version         1.0
// @description     Multi-timeframe market overview with AI trading signals.

// @host      localhost:8080
// @BasePath  /
func main() {
	_ = loadEnvFunc()

	cfg, err := loadConfigFunc()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := setupLoggingFunc(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		log.Warn().Err(err).Msg("logging setup failed, keeping defaults")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage is optional; failures fall back to SQLite and the in-process cache.
	if err := initPostgresFunc(ctx, cfg.DatabaseURL); err != nil {
		log.Warn().Err(err).Msg("postgres unavailable, using sqlite stats store")
	}
	defer db.Close()
	if err := initRedisFunc(ctx, cfg.RedisURL); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-memory movers cache")
	}

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()
	metrics.Register()

	tgBot, err := newTelegramBotFunc(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		log.Error().Err(err).Msg("telegram bot disabled")
	}
	hub := stream.NewHub()

	opts := app.Options{Observers: []service.PassObserver{hub}}
	if tgBot != nil {
		opts.Notifier = tgBot.Alerts
	}
	pipeline, err := buildPipelineFunc(ctx, cfg, tracer, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pipeline")
	}
	defer pipeline.Close()

	if tgBot != nil {
		tgBot.Start(pipeline.Overview, pipeline.Stats)
		defer tgBot.Stop()
	}

	poller, err := newOverviewPollerFunc(tracer, pipeline.Overview, cfg.RefreshCron, cfg.WatchSymbols)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid refresh schedule")
	}
	startPollerFunc(poller, ctx)
	startBoardRefresherFunc(newBoardRefresherFunc(tracer, pipeline.Overview, hub, 0), ctx)

	h := handler.New(tracer, handler.Deps{
		Overview: pipeline.Overview,
		Snapshot: pipeline.Snapshot,
		Stats:    pipeline.Stats,
		Backtest: pipeline.Backtest,
		Chart:    pipeline.Chart,
		Stream:   hub,
		Primary:  cfg.PrimaryTimeframe,
	})

	r := newRouterFunc()
	r.Use(otelgin.Middleware("market-pulse"))
	r.Use(cors.New(corsConfig()))

	h.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              httpAddr(cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}

func corsConfig() cors.Config {
	c := cors.DefaultConfig()
	c.AllowAllOrigins = true
	c.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	c.ExposeHeaders = []string{"Content-Length"}
	return c
}

func httpAddr(port int) string {
	if port <= 0 {
		port = 8080
	}
	return fmt.Sprintf(":%d", port)
}
