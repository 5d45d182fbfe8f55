package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"dreamclerk/internal/domain"
)

type RegistrationStore struct {
	db *sqlx.DB
}

func NewRegistrationStore(db *sqlx.DB) *RegistrationStore {
	return &RegistrationStore{db: db}
}

// Insert records a registration once; repeating it for the same user is a no-op.
func (s *RegistrationStore) Insert(ctx context.Context, rec *domain.RegistrationRecord) error {
	query := `
		INSERT INTO registrations (
			user_id, email, name, date_of_birth, registered_at, status, completed_profile, source
		) VALUES (
			:user_id, :email, :name, :date_of_birth, :registered_at, :status, :completed_profile, :source
		)
		ON CONFLICT (user_id) DO NOTHING`

	_, err := sqlx.NamedExecContext(ctx, GetExecutor(ctx, s.db), query, rec)
	return err
}

func (s *RegistrationStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &count, `SELECT COUNT(*) FROM registrations`)
	return count, err
}

func (s *RegistrationStore) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &count,
		`SELECT COUNT(*) FROM registrations WHERE registered_at >= $1`, since)
	return count, err
}

func (s *RegistrationStore) CountByStatus(ctx context.Context) (map[domain.RegistrationStatus]int64, error) {
	rows, err := GetExecutor(ctx, s.db).QueryxContext(ctx,
		`SELECT status, COUNT(*) FROM registrations GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[domain.RegistrationStatus]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		result[domain.RegistrationStatus(status)] = count
	}

	return result, rows.Err()
}
