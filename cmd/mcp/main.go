package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"market-pulse/internal/app"
	"market-pulse/internal/cache"
	"market-pulse/internal/config"
	"market-pulse/internal/db"
	"market-pulse/internal/job"
	"market-pulse/internal/logging"
	mcpserver "market-pulse/internal/mcp"
	"market-pulse/pkg/tracing"
)

const defaultMCPHTTPMaxBodyBytes int64 = 1 << 20

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	setupLoggingFunc  = logging.Setup
	initPostgresFunc  = db.InitPostgres
	initRedisFunc     = cache.InitRedis
	initTracerFunc    = tracing.InitTracer
	buildPipelineFunc = app.Build
	newPollerFunc     = job.NewOverviewPoller
	startPollerFunc   = func(p *job.OverviewPoller, ctx context.Context) { go p.Start(ctx) }
	newMCPServerFunc  = mcpserver.NewServer
	newMCPHandlerFunc = mcpserver.NewHTTPTransportHandler
	runStdioFunc      = func(ctx context.Context, server *sdkmcp.Server) error {
		return server.Run(ctx, &sdkmcp.StdioTransport{})
	}
	startHTTPServerFunc  = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFn = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	setupSignalNotify    = ossignal.Notify
	waitForSignalFunc    = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	_ = loadEnvFunc()
	cfg, err := loadConfigFunc()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	// stdout carries the stdio protocol; logs always go to stderr.
	if err := setupLoggingFunc(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		log.Warn().Err(err).Msg("logging setup failed, keeping defaults")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	pipeline, err := buildPipelineFunc(ctx, cfg, tracer, app.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pipeline")
	}
	defer pipeline.Close()

	// Keep overview://latest warm so agents rarely wait on a full pass.
	poller, err := newPollerFunc(tracer, pipeline.Overview, cfg.RefreshCron, cfg.WatchSymbols)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid refresh schedule")
	}
	startPollerFunc(poller, ctx)

	mcpSrv := newMCPServerFunc(tracer, mcpserver.Deps{
		Overview: pipeline.Overview,
		Snapshot: pipeline.Snapshot,
		Stats:    pipeline.Stats,
	}, mcpserver.ServerConfig{
		RequestTimeout: time.Duration(cfg.MCPRequestTimeoutSecs) * time.Second,
	})

	switch strings.ToLower(strings.TrimSpace(cfg.MCPTransport)) {
	case "", "stdio":
		if err := runStdioFunc(ctx, mcpSrv); err != nil {
			log.Fatal().Err(err).Msg("mcp stdio server failed")
		}
	case "http":
		if err := runHTTPMode(ctx, cancel, cfg, mcpSrv); err != nil {
			log.Fatal().Err(err).Msg("mcp http server failed")
		}
	default:
		log.Fatal().Str("transport", cfg.MCPTransport).Msg("unsupported MCP_TRANSPORT")
	}
}

func runHTTPMode(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, mcpSrv *sdkmcp.Server) error {
	if strings.TrimSpace(cfg.MCPAuthToken) == "" {
		return fmt.Errorf("MCP_AUTH_TOKEN is required when MCP_TRANSPORT=http")
	}

	handler := newMCPHandlerFunc(mcpSrv, mcpserver.HTTPHandlerConfig{
		AuthToken:       cfg.MCPAuthToken,
		RateLimitPerMin: cfg.MCPRateLimitPerMin,
		MaxBodyBytes:    defaultMCPHTTPMaxBodyBytes,
	})

	addr := net.JoinHostPort(cfg.MCPHTTPBind, fmt.Sprintf("%d", cfg.MCPHTTPPort))
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.Info().Str("addr", addr).Msg("MCP HTTP transport listening")
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("mcp http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFn(srv, shutdownCtx); err != nil {
		return fmt.Errorf("mcp server forced to shutdown: %w", err)
	}
	return nil
}
