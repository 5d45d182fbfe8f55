package service

import (
	"context"
	"fmt"
	"time"

	"dreamclerk/internal/content"
	"dreamclerk/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// BlogService serves the read side of the blog.
type BlogService struct {
	articles ArticleStore
	now      func() time.Time
}

func NewBlogService(articles ArticleStore) *BlogService {
	return &BlogService{articles: articles, now: time.Now}
}

// CountToday counts posts published since midnight UTC.
func (s *BlogService) CountToday(ctx context.Context) (int, time.Time, error) {
	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	count, err := s.articles.CountPublishedSince(ctx, start)
	if err != nil {
		return 0, start, fmt.Errorf("count posts: %w", err)
	}
	return count, start, nil
}

func (s *BlogService) ListPosts(ctx context.Context, opts domain.ListOptions) ([]domain.Article, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultPageSize
	}
	if opts.Limit > maxPageSize {
		opts.Limit = maxPageSize
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	articles, err := s.articles.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return articles, nil
}

func (s *BlogService) GetPost(ctx context.Context, slug string) (*domain.Article, error) {
	article, err := s.articles.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return article, nil
}

// PostMarkdown renders a stored post as a Markdown document.
func (s *BlogService) PostMarkdown(ctx context.Context, slug string) (string, error) {
	article, err := s.GetPost(ctx, slug)
	if err != nil {
		return "", err
	}

	body, err := content.ToMarkdown(article.Content)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}

	return fmt.Sprintf("# %s\n\n_%s · %s_\n\n%s\n", article.Title, article.Category, article.ReadTime, body), nil
}
