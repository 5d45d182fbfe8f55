package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"dreamclerk/internal/domain"
)

type CounterStore struct {
	db *sqlx.DB
}

func NewCounterStore(db *sqlx.DB) *CounterStore {
	return &CounterStore{db: db}
}

// Lock takes a transaction-scoped advisory lock on the named counter. It
// must be called inside WithTransaction.
func (s *CounterStore) Lock(ctx context.Context, name string) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, name)
	return err
}

func (s *CounterStore) Get(ctx context.Context, name string) (*domain.CounterStat, error) {
	var stat domain.CounterStat
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &stat,
		`SELECT name, count, updated_at FROM stats WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		// no row yet counts as zero
		return &domain.CounterStat{Name: name}, nil
	}
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

func (s *CounterStore) Set(ctx context.Context, name string, count int64) error {
	query := `
		INSERT INTO stats (name, count, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET
			count = EXCLUDED.count,
			updated_at = EXCLUDED.updated_at`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, name, count)
	return err
}

// Increment adds one to the counter in a single statement and returns the new value.
func (s *CounterStore) Increment(ctx context.Context, name string) (int64, error) {
	query := `
		INSERT INTO stats (name, count, updated_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (name) DO UPDATE SET
			count = stats.count + 1,
			updated_at = NOW()
		RETURNING count`

	var count int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query, name).Scan(&count)
	return count, err
}
