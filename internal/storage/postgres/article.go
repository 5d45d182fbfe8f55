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

const articleColumns = `id, title, slug, excerpt, content, category, read_time, image_url, featured, published_at`

type ArticleStore struct {
	db *sqlx.DB
}

func NewArticleStore(db *sqlx.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

// Insert stores a new article. A duplicate slug yields domain.ErrSlugTaken.
func (s *ArticleStore) Insert(ctx context.Context, article *domain.Article) error {
	query := `
		INSERT INTO blog_posts (` + articleColumns + `)
		VALUES (:id, :title, :slug, :excerpt, :content, :category, :read_time, :image_url, :featured, :published_at)`

	_, err := sqlx.NamedExecContext(ctx, GetExecutor(ctx, s.db), query, article)
	if isUniqueViolation(err, "blog_posts_slug_key") {
		return domain.ErrSlugTaken
	}
	return err
}

func (s *ArticleStore) CountPublishedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &count,
		`SELECT COUNT(*) FROM blog_posts WHERE published_at >= $1`, since)
	return count, err
}

func (s *ArticleStore) List(ctx context.Context, opts domain.ListOptions) ([]domain.Article, error) {
	query := `
		SELECT ` + articleColumns + `
		FROM blog_posts
		WHERE ($1 = '' OR category = $1)
		ORDER BY published_at DESC, featured DESC
		LIMIT $2 OFFSET $3`

	articles := []domain.Article{}
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &articles, query,
		string(opts.Category), opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	return articles, nil
}

func (s *ArticleStore) GetBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	var article domain.Article
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &article,
		`SELECT `+articleColumns+` FROM blog_posts WHERE slug = $1`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("post", slug)
	}
	if err != nil {
		return nil, err
	}
	return &article, nil
}
