package repository

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"

	"market-pulse/internal/domain"
)

func TestStatsRepositoryLoadReturnsRow(t *testing.T) {
	pool := &statsStubPool{row: []int64{7, 3, 1200, 300}}
	repo := NewStatsRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.StatsSnapshot{Hits: 7, Misses: 3, PromptTokens: 1200, CompletionTokens: 300}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if len(pool.queryArgs) != 1 || pool.queryArgs[0] != statsRowID {
		t.Fatalf("expected row id arg, got %+v", pool.queryArgs)
	}
}

func TestStatsRepositoryLoadNoRows(t *testing.T) {
	pool := &statsStubPool{rowErr: pgx.ErrNoRows}
	repo := NewStatsRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("expected no error on empty table, got %v", err)
	}
	if got != (domain.StatsSnapshot{}) {
		t.Fatalf("expected zero stats, got %+v", got)
	}
}

func TestStatsRepositoryLoadPropagatesErrors(t *testing.T) {
	pool := &statsStubPool{rowErr: errors.New("connection reset")}
	repo := NewStatsRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	if _, err := repo.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestStatsRepositorySaveUpserts(t *testing.T) {
	pool := &statsStubPool{}
	repo := NewStatsRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected schema error: %v", err)
	}
	if err := repo.Save(context.Background(), domain.StatsSnapshot{Hits: 2, Misses: 1, PromptTokens: 10, CompletionTokens: 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.execSQL) != 2 {
		t.Fatalf("expected 2 exec calls, got %d", len(pool.execSQL))
	}
	if !strings.Contains(pool.execSQL[0], "CREATE TABLE IF NOT EXISTS prediction_stats") {
		t.Fatalf("unexpected schema sql: %s", pool.execSQL[0])
	}
	if !strings.Contains(pool.execSQL[1], "ON CONFLICT (id) DO UPDATE") {
		t.Fatalf("expected upsert, got %s", pool.execSQL[1])
	}
	if pool.execArgs[1] != int64(2) || pool.execArgs[4] != int64(4) {
		t.Fatalf("unexpected args %+v", pool.execArgs)
	}
}

func TestSQLiteStatsStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "stats.db")
	store, err := NewSQLiteStatsStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	got, err := store.Load(ctx)
	if err != nil || got != (domain.StatsSnapshot{}) {
		t.Fatalf("expected empty stats, got %+v err=%v", got, err)
	}

	want := domain.StatsSnapshot{Hits: 5, Misses: 2, PromptTokens: 900, CompletionTokens: 120}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	want.Hits = 6
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

type statsStubPool struct {
	row       []int64
	rowErr    error
	queryArgs []any
	execSQL   []string
	execArgs  []any
}

func (s *statsStubPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execSQL = append(s.execSQL, sql)
	s.execArgs = args
	return pgconn.CommandTag{}, nil
}

func (s *statsStubPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	s.queryArgs = args
	return &statsStubRow{values: s.row, err: s.rowErr}
}

type statsStubRow struct {
	values []int64
	err    error
}

func (r *statsStubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		*(d.(*int64)) = r.values[i]
	}
	return nil
}
