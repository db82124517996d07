package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"market-pulse/internal/app"
	"market-pulse/internal/backtest"
	"market-pulse/internal/config"
	"market-pulse/internal/domain"
	"market-pulse/internal/logging"
)

const maxDays = 90

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	setupLoggingFunc  = logging.Setup
	buildPipelineFunc = app.Build
	runBacktestFunc   = func(p *app.Pipeline, ctx context.Context, symbol string, opts backtest.Options) (domain.BacktestResult, error) {
		return p.Backtest.Run(ctx, symbol, opts)
	}
	stdout io.Writer = os.Stdout
)

type options struct {
	symbol  string
	run     backtest.Options
	jsonOut bool
}

func main() {
	_ = loadEnvFunc()

	opts, err := parseOptions(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatal().Err(err).Msg("parse options")
	}

	cfg, err := loadConfigFunc()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := setupLoggingFunc(cfg.LogLevel, cfg.LogFormat, os.Stderr); err != nil {
		log.Warn().Err(err).Msg("logging setup failed, keeping defaults")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	tracer := trace.NewNoopTracerProvider().Tracer("backtest")
	pipeline, err := buildPipelineFunc(ctx, cfg, tracer, app.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pipeline")
	}
	defer pipeline.Close()

	log.Info().
		Str("symbol", opts.symbol).
		Str("timeframe", opts.run.Timeframe).
		Int("days", opts.run.Days).
		Int("step", opts.run.Step).
		Msg("starting backtest")

	result, err := runBacktestFunc(pipeline, ctx, opts.symbol, opts.run)
	if err != nil {
		log.Fatal().Err(err).Str("symbol", opts.symbol).Msg("backtest failed")
	}

	if opts.jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatal().Err(err).Msg("encode result")
		}
		return
	}
	printSummary(stdout, result)
}

func parseOptions(args []string, getenv func(string) string) (options, error) {
	fs := flag.NewFlagSet("backtest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	symbol := fs.String("symbol", "BTCUSDT", "symbol to replay")
	timeframe := fs.String("timeframe", defaultTimeframe(getenv), "candle timeframe (default from PRIMARY_TIMEFRAME)")
	days := fs.Int("days", envInt(getenv, "BACKTEST_DAYS", backtest.DefaultDays), "days of history to replay")
	step := fs.Int("step", backtest.DefaultStep, "candles to advance between analyses")
	capital := fs.Float64("capital", backtest.DefaultInitialCapital, "initial capital")
	jsonOut := fs.Bool("json", false, "print the full result as JSON")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	sym := strings.ToUpper(strings.TrimSpace(*symbol))
	if sym == "" {
		return options{}, fmt.Errorf("symbol cannot be empty")
	}
	tf := strings.TrimSpace(*timeframe)
	if !supportedTimeframe(tf) {
		return options{}, fmt.Errorf("unsupported timeframe: %s", tf)
	}
	if *days <= 0 || *days > maxDays {
		return options{}, fmt.Errorf("days must be between 1 and %d", maxDays)
	}
	if *step <= 0 {
		return options{}, fmt.Errorf("step must be > 0")
	}
	if *capital <= 0 {
		return options{}, fmt.Errorf("capital must be > 0")
	}

	return options{
		symbol: sym,
		run: backtest.Options{
			Timeframe:      tf,
			Days:           *days,
			InitialCapital: *capital,
			Step:           *step,
		},
		jsonOut: *jsonOut,
	}, nil
}

func defaultTimeframe(getenv func(string) string) string {
	if tf := strings.TrimSpace(getenv("PRIMARY_TIMEFRAME")); supportedTimeframe(tf) {
		return tf
	}
	return backtest.DefaultTimeframe
}

func envInt(getenv func(string) string, key string, fallback int) int {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func supportedTimeframe(tf string) bool {
	for _, s := range domain.SupportedIntervals {
		if s == tf {
			return true
		}
	}
	return false
}

func printSummary(w io.Writer, r domain.BacktestResult) {
	fmt.Fprintf(w, "Backtest %s (%s)\n", r.Symbol, r.Timeframe)
	fmt.Fprintf(w, "  initial capital: %.2f\n", r.InitialCapital)
	fmt.Fprintf(w, "  final equity:    %.2f\n", r.FinalEquity)
	fmt.Fprintf(w, "  profit:          %+.2f%%\n", r.ProfitPct)
	fmt.Fprintf(w, "  win rate:        %.1f%%\n", r.WinRate)
	fmt.Fprintf(w, "  trades:          %d\n", r.TotalTrades)
	fmt.Fprintf(w, "  tokens:          %d\n", r.Usage.Total)
	for _, t := range r.Trades {
		line := fmt.Sprintf("  %s %-18s %.4f @ %.4f", t.Time.UTC().Format(time.RFC3339), t.Side, t.Amount, t.Price)
		if t.Side != backtest.SideBuy {
			line += fmt.Sprintf(" (%+.2f%%)", t.ProfitPct)
		}
		fmt.Fprintln(w, line)
	}
}
