package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"dreamclerk/internal/apperror"
	"dreamclerk/internal/domain"
)

type AuthUserStore struct {
	db *sqlx.DB
}

func NewAuthUserStore(db *sqlx.DB) *AuthUserStore {
	return &AuthUserStore{db: db}
}

func (s *AuthUserStore) Create(ctx context.Context, user *domain.AuthUser) error {
	query := `
		INSERT INTO auth_users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.CreatedAt)
	if isUniqueViolation(err, "auth_users_email_key") {
		return apperror.Conflict("email already exists")
	}
	return err
}

func (s *AuthUserStore) Delete(ctx context.Context, id string) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, `DELETE FROM auth_users WHERE id = $1`, id)
	return err
}

func (s *AuthUserStore) GetByEmail(ctx context.Context, email string) (*domain.AuthUser, error) {
	var user domain.AuthUser
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &user, `
		SELECT id, email, password_hash, created_at, last_sign_in_at
		FROM auth_users
		WHERE LOWER(email) = LOWER($1)`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", email)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthUserStore) TouchLastSignIn(ctx context.Context, id string, at time.Time) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		`UPDATE auth_users SET last_sign_in_at = $2 WHERE id = $1`, id, at)
	return err
}
