package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"dreamclerk/internal/domain"
)

type ArticleGenerator interface {
	Generate(ctx context.Context, category domain.Category) (*domain.Article, error)
}

type ArticleStore interface {
	Insert(ctx context.Context, article *domain.Article) error
	CountPublishedSince(ctx context.Context, since time.Time) (int, error)
	List(ctx context.Context, opts domain.ListOptions) ([]domain.Article, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Article, error)
}

type CounterStore interface {
	Lock(ctx context.Context, name string) error
	Get(ctx context.Context, name string) (*domain.CounterStat, error)
	Set(ctx context.Context, name string, count int64) error
	Increment(ctx context.Context, name string) (int64, error)
}

type RegistrationStore interface {
	Insert(ctx context.Context, rec *domain.RegistrationRecord) error
	Count(ctx context.Context) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[domain.RegistrationStatus]int64, error)
}

type AuthUserStore interface {
	Create(ctx context.Context, user *domain.AuthUser) error
	Delete(ctx context.Context, id string) error
	GetByEmail(ctx context.Context, email string) (*domain.AuthUser, error)
	TouchLastSignIn(ctx context.Context, id string, at time.Time) error
}

type ProfileStore interface {
	Insert(ctx context.Context, profile *domain.UserProfile) error
	Get(ctx context.Context, id string) (*domain.UserProfile, error)
	Update(ctx context.Context, profile *domain.UserProfile) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type SettingsStore interface {
	Insert(ctx context.Context, settings *domain.UserSettings) error
}

type SignupAttemptStore interface {
	Create(ctx context.Context, attempt *domain.SignupAttempt) error
	Update(ctx context.Context, attempt *domain.SignupAttempt) error
	ListStale(ctx context.Context, before time.Time, limit int) ([]domain.SignupAttempt, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	PublishArticle(ctx context.Context, article *domain.Article) error
	PublishRegistration(ctx context.Context, rec *domain.RegistrationRecord) error
	Close() error
}
