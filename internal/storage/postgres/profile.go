package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"dreamclerk/internal/apperror"
	"dreamclerk/internal/domain"
)

type profileRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Email       string         `db:"email"`
	Role        string         `db:"role"`
	College     *string        `db:"college"`
	Major       *string        `db:"major"`
	Bio         *string        `db:"bio"`
	Interests   pq.StringArray `db:"interests"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
	LastLoginAt *time.Time     `db:"last_login_at"`
}

func (r profileRow) toDomain() *domain.UserProfile {
	interests := []string(r.Interests)
	if interests == nil {
		interests = []string{}
	}
	return &domain.UserProfile{
		ID:          r.ID,
		Name:        r.Name,
		Email:       r.Email,
		Role:        domain.Role(r.Role),
		College:     r.College,
		Major:       r.Major,
		Bio:         r.Bio,
		Interests:   interests,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		LastLoginAt: r.LastLoginAt,
	}
}

type ProfileStore struct {
	db *sqlx.DB
}

func NewProfileStore(db *sqlx.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) Insert(ctx context.Context, p *domain.UserProfile) error {
	query := `
		INSERT INTO profiles (id, name, email, role, college, major, bio, interests, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		p.ID, p.Name, p.Email, string(p.Role), p.College, p.Major, p.Bio,
		pq.Array(nonNil(p.Interests)), p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (s *ProfileStore) Get(ctx context.Context, id string) (*domain.UserProfile, error) {
	var row profileRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, `
		SELECT id, name, email, role, college, major, bio, interests, created_at, updated_at, last_login_at
		FROM profiles
		WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("profile", id)
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// Update writes the user-editable fields of p.
func (s *ProfileStore) Update(ctx context.Context, p *domain.UserProfile) error {
	query := `
		UPDATE profiles SET
			name = $2,
			college = $3,
			major = $4,
			bio = $5,
			interests = $6,
			updated_at = $7
		WHERE id = $1`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		p.ID, p.Name, p.College, p.Major, p.Bio, pq.Array(nonNil(p.Interests)), p.UpdatedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperror.NotFound("profile", p.ID)
	}
	return nil
}

func (s *ProfileStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		`UPDATE profiles SET last_login_at = $2 WHERE id = $1`, id, at)
	return err
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
