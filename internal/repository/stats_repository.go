package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"

	"market-pulse/internal/domain"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// statsRowID pins the single counters row; the tracker is process-wide.
const statsRowID = 1

const statsSchema = `CREATE TABLE IF NOT EXISTS prediction_stats (
	id                SMALLINT PRIMARY KEY,
	hits              BIGINT NOT NULL DEFAULT 0,
	misses            BIGINT NOT NULL DEFAULT 0,
	prompt_tokens     BIGINT NOT NULL DEFAULT 0,
	completion_tokens BIGINT NOT NULL DEFAULT 0,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type StatsRepository struct {
	pool   PgxPool
	tracer trace.Tracer
	now    func() time.Time
}

func NewStatsRepository(pool PgxPool, tracer trace.Tracer) *StatsRepository {
	return &StatsRepository{pool: pool, tracer: tracer, now: time.Now}
}

func (r *StatsRepository) EnsureSchema(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "stats-repo.ensure-schema")
	defer span.End()

	if _, err := r.pool.Exec(ctx, statsSchema); err != nil {
		return fmt.Errorf("create prediction_stats: %w", err)
	}
	return nil
}

func (r *StatsRepository) Load(ctx context.Context) (domain.StatsSnapshot, error) {
	ctx, span := r.tracer.Start(ctx, "stats-repo.load")
	defer span.End()

	var s domain.StatsSnapshot
	err := r.pool.QueryRow(ctx,
		`SELECT hits, misses, prompt_tokens, completion_tokens
		 FROM prediction_stats
		 WHERE id = $1`,
		statsRowID,
	).Scan(&s.Hits, &s.Misses, &s.PromptTokens, &s.CompletionTokens)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StatsSnapshot{}, nil
	}
	if err != nil {
		return domain.StatsSnapshot{}, err
	}
	return s, nil
}

func (r *StatsRepository) Save(ctx context.Context, s domain.StatsSnapshot) error {
	ctx, span := r.tracer.Start(ctx, "stats-repo.save")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO prediction_stats (id, hits, misses, prompt_tokens, completion_tokens, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   hits = EXCLUDED.hits,
		   misses = EXCLUDED.misses,
		   prompt_tokens = EXCLUDED.prompt_tokens,
		   completion_tokens = EXCLUDED.completion_tokens,
		   updated_at = EXCLUDED.updated_at`,
		statsRowID, s.Hits, s.Misses, s.PromptTokens, s.CompletionTokens, r.now().UTC(),
	)
	return err
}
