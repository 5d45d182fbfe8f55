package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"dreamclerk/internal/domain"
)

type SignupAttemptStore struct {
	db *sqlx.DB
}

func NewSignupAttemptStore(db *sqlx.DB) *SignupAttemptStore {
	return &SignupAttemptStore{db: db}
}

func (s *SignupAttemptStore) Create(ctx context.Context, a *domain.SignupAttempt) error {
	query := `
		INSERT INTO signup_attempts (
			id, email, user_id, source, date_of_birth, step, status, last_error, created_at, updated_at
		) VALUES (
			:id, :email, :user_id, :source, :date_of_birth, :step, :status, :last_error, :created_at, :updated_at
		)`

	_, err := sqlx.NamedExecContext(ctx, GetExecutor(ctx, s.db), query, a)
	return err
}

func (s *SignupAttemptStore) Update(ctx context.Context, a *domain.SignupAttempt) error {
	query := `
		UPDATE signup_attempts SET
			user_id = :user_id,
			step = :step,
			status = :status,
			last_error = :last_error,
			updated_at = :updated_at
		WHERE id = :id`

	_, err := sqlx.NamedExecContext(ctx, GetExecutor(ctx, s.db), query, a)
	return err
}

// ListStale returns attempts last touched before the cutoff that still need
// work: unfinished, compensation failed or degraded. Oldest first.
func (s *SignupAttemptStore) ListStale(ctx context.Context, before time.Time, limit int) ([]domain.SignupAttempt, error) {
	query := `
		SELECT id, email, user_id, source, date_of_birth, step, status, last_error, created_at, updated_at
		FROM signup_attempts
		WHERE status IN ('in_progress', 'compensation_failed', 'degraded') AND updated_at < $1
		ORDER BY updated_at
		LIMIT $2`

	attempts := []domain.SignupAttempt{}
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &attempts, query, before, limit); err != nil {
		return nil, err
	}
	return attempts, nil
}
