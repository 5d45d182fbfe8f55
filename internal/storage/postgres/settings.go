package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"dreamclerk/internal/domain"
)

type SettingsStore struct {
	db *sqlx.DB
}

func NewSettingsStore(db *sqlx.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Insert(ctx context.Context, settings *domain.UserSettings) error {
	query := `
		INSERT INTO user_settings (user_id, email_notifications, theme, created_at)
		VALUES (:user_id, :email_notifications, :theme, :created_at)
		ON CONFLICT (user_id) DO NOTHING`

	_, err := sqlx.NamedExecContext(ctx, GetExecutor(ctx, s.db), query, settings)
	return err
}
