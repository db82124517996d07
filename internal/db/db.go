package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var Pool *pgxpool.Pool

// InitPostgres opens the shared pool. An empty DSN leaves Pool nil so the
// caller can fall back to the SQLite stats store.
func InitPostgres(ctx context.Context, dsn string) error {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		log.Info().Msg("DATABASE_URL not set, skipping Postgres connection")
		return nil
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}
	Pool = pool
	log.Info().Msg("Connected to Postgres")
	return nil
}

func Close() {
	if Pool != nil {
		Pool.Close()
		Pool = nil
	}
}
