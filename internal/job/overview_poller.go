package job

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"market-pulse/internal/domain"
)

type OverviewRunner interface {
	Run(ctx context.Context, symbols []string) ([]domain.AnalyzedAsset, error)
}

// OverviewPoller runs overview passes on a cron schedule. A pass still in
// flight when the next tick fires causes that tick to be skipped.
type OverviewPoller struct {
	tracer   trace.Tracer
	runner   OverviewRunner
	symbols  []string
	schedule string
	cron     *cron.Cron
}

func NewOverviewPoller(tracer trace.Tracer, runner OverviewRunner, schedule string, symbols []string) (*OverviewPoller, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return nil, fmt.Errorf("refresh schedule is required")
	}
	logger := cronLogger{log.With().Str("component", "scheduler").Logger()}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	p := &OverviewPoller{
		tracer:   tracer,
		runner:   runner,
		symbols:  append([]string(nil), symbols...),
		schedule: schedule,
		cron:     c,
	}
	if _, err := c.AddFunc(schedule, func() { p.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("register overview schedule %q: %w", schedule, err)
	}
	return p, nil
}

// Start runs one pass immediately, then follows the schedule until ctx is
// cancelled. It blocks.
func (p *OverviewPoller) Start(ctx context.Context) {
	if p.runner == nil {
		log.Info().Msg("overview poller disabled: no runner")
		<-ctx.Done()
		return
	}

	log.Info().Str("schedule", p.schedule).Strs("symbols", p.symbols).Msg("overview poller starting")
	p.RunOnce(ctx)
	p.cron.Start()

	<-ctx.Done()
	<-p.cron.Stop().Done()
	log.Info().Msg("overview poller stopped")
}

func (p *OverviewPoller) RunOnce(ctx context.Context) {
	ctx, span := p.tracer.Start(ctx, "overview-job.run")
	defer span.End()

	assets, err := p.runner.Run(ctx, p.symbols)
	if err != nil {
		log.Error().Err(err).Msg("scheduled overview pass failed")
		return
	}
	log.Debug().Int("assets", len(assets)).Msg("scheduled overview pass done")
}

type cronLogger struct {
	zl zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.zl.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.zl.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
