package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"market-pulse/internal/app"
	"market-pulse/internal/cache"
	"market-pulse/internal/config"
	"market-pulse/internal/db"
	"market-pulse/internal/job"
	"market-pulse/internal/logging"
	"market-pulse/internal/tui"
)

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	setupLoggingFunc  = logging.Setup
	initPostgresFunc  = db.InitPostgres
	initRedisFunc     = cache.InitRedis
	buildPipelineFunc = app.Build
	newPollerFunc     = job.NewOverviewPoller
	startPollerFunc   = func(p *job.OverviewPoller, ctx context.Context) { go p.Start(ctx) }
	openLogFunc       = func() (io.WriteCloser, error) {
		return os.OpenFile(filepath.Join(os.TempDir(), "market-pulse-dashboard.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	}
	runProgramFunc = func(m tea.Model) error {
		_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	}
)

func main() {
	_ = loadEnvFunc()
	cfg, err := loadConfigFunc()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// The terminal belongs to the dashboard; logs go to a file.
	logFile, err := openLogFunc()
	if err != nil {
		log.Fatal().Err(err).Msg("open dashboard log")
	}
	defer logFile.Close()
	if err := setupLoggingFunc(cfg.LogLevel, "json", logFile); err != nil {
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

	tracer := trace.NewNoopTracerProvider().Tracer("dashboard")
	pipeline, err := buildPipelineFunc(ctx, cfg, tracer, app.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pipeline")
	}
	defer pipeline.Close()

	poller, err := newPollerFunc(tracer, pipeline.Overview, cfg.RefreshCron, cfg.WatchSymbols)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid refresh schedule")
	}
	startPollerFunc(poller, ctx)

	model := tui.NewAppModel(tui.Services{
		Snapshot:   pipeline.Snapshot,
		Overview:   pipeline.Overview,
		Board:      pipeline.Overview,
		Stats:      pipeline.Stats,
		BoardLimit: 20,
	})
	if err := runProgramFunc(model); err != nil {
		log.Fatal().Err(err).Msg("dashboard exited with error")
	}
}
