package job

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"market-pulse/internal/domain"
)

const (
	defaultBoardLimit = 20
	defaultBoardTick  = 30 * time.Second
)

type TickerBoardSource interface {
	TickerBoard(ctx context.Context, limit int) ([]domain.Ticker, error)
}

type TickerBoardPublisher interface {
	PublishTickers(tickers []domain.Ticker)
}

// BoardRefresher keeps the price strip fresh between full analysis passes.
type BoardRefresher struct {
	tracer    trace.Tracer
	source    TickerBoardSource
	publisher TickerBoardPublisher
	limit     int
	tick      time.Duration
}

func NewBoardRefresher(tracer trace.Tracer, source TickerBoardSource, publisher TickerBoardPublisher, tick time.Duration) *BoardRefresher {
	if tick <= 0 {
		tick = defaultBoardTick
	}
	return &BoardRefresher{
		tracer:    tracer,
		source:    source,
		publisher: publisher,
		limit:     defaultBoardLimit,
		tick:      tick,
	}
}

func (j *BoardRefresher) Start(ctx context.Context) {
	if j == nil || j.source == nil || j.publisher == nil {
		<-ctx.Done()
		return
	}

	log.Info().Dur("every", j.tick).Msg("ticker board refresher starting")
	ticker := time.NewTicker(j.tick)
	defer ticker.Stop()

	j.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("ticker board refresher stopped")
			return
		case <-ticker.C:
			j.refresh(ctx)
		}
	}
}

func (j *BoardRefresher) refresh(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "board-job.refresh")
	defer span.End()

	board, err := j.source.TickerBoard(ctx, j.limit)
	if err != nil {
		log.Warn().Err(err).Msg("ticker board refresh failed")
		return
	}
	if len(board) == 0 {
		return
	}
	j.publisher.PublishTickers(board)
}
