package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"market-pulse/internal/domain"
)

// SQLiteStatsStore keeps prediction counters in a local file when no
// Postgres is configured.
type SQLiteStatsStore struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

func NewSQLiteStatsStore(path string) (*SQLiteStatsStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create stats dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS prediction_stats (
		id                INTEGER PRIMARY KEY,
		hits              INTEGER NOT NULL DEFAULT 0,
		misses            INTEGER NOT NULL DEFAULT 0,
		prompt_tokens     INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		updated_at        INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", path).Msg("sqlite stats store opened")
	return &SQLiteStatsStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStatsStore) Load(ctx context.Context) (domain.StatsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out domain.StatsSnapshot
	err := s.db.QueryRowContext(ctx,
		`SELECT hits, misses, prompt_tokens, completion_tokens FROM prediction_stats WHERE id = ?`,
		statsRowID,
	).Scan(&out.Hits, &out.Misses, &out.PromptTokens, &out.CompletionTokens)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StatsSnapshot{}, nil
	}
	if err != nil {
		return domain.StatsSnapshot{}, fmt.Errorf("load stats: %w", err)
	}
	return out, nil
}

func (s *SQLiteStatsStore) Save(ctx context.Context, stats domain.StatsSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prediction_stats (id, hits, misses, prompt_tokens, completion_tokens, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   hits = excluded.hits,
		   misses = excluded.misses,
		   prompt_tokens = excluded.prompt_tokens,
		   completion_tokens = excluded.completion_tokens,
		   updated_at = excluded.updated_at`,
		statsRowID, stats.Hits, stats.Misses, stats.PromptTokens, stats.CompletionTokens, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}

func (s *SQLiteStatsStore) Close() error {
	return s.db.Close()
}
