package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dreamclerk/internal/apperror"
	"dreamclerk/internal/config"
	"dreamclerk/internal/content"
	"dreamclerk/internal/domain"
)

type BatchService struct {
	generator ArticleGenerator
	articles  ArticleStore
	publisher Publisher
	logger    *slog.Logger
	config    config.BlogConfig
}

func NewBatchService(
	generator ArticleGenerator,
	articles ArticleStore,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.BlogConfig,
) *BatchService {
	if len(cfg.Categories) == 0 {
		cfg.Categories = domain.Categories
	}
	if cfg.PostsPerBatch < 0 {
		cfg.PostsPerBatch = 0
	}
	return &BatchService{
		generator: generator,
		articles:  articles,
		publisher: publisher,
		logger:    logger.With("component", "daily_batch"),
		config:    cfg,
	}
}

// RunDailyBatch generates PostsPerBatch articles one after another, cycling
// through the configured categories. Each article is stored as soon as it is
// generated. Failed slots are skipped; the run only fails when nothing at
// all was generated. A configured Timeout bounds the whole run.
func (s *BatchService) RunDailyBatch(ctx context.Context) (*domain.BatchResult, error) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	s.logger.Info("starting daily batch",
		"posts", s.config.PostsPerBatch,
		"categories", len(s.config.Categories),
	)

	result := &domain.BatchResult{
		Articles: make([]domain.Article, 0, s.config.PostsPerBatch),
		Stats:    domain.BatchStats{Requested: s.config.PostsPerBatch},
	}
	stats := &result.Stats

	for i := 0; i < s.config.PostsPerBatch; i++ {
		if i > 0 {
			if err := s.pause(ctx); err != nil {
				s.logger.Warn("daily batch interrupted", "completed_slots", i, "error", err)
				break
			}
		}

		category := s.config.Categories[i%len(s.config.Categories)]

		article, err := s.generator.Generate(ctx, category)
		if err != nil {
			if errors.Is(err, apperror.ErrConfiguration) {
				return nil, fmt.Errorf("generate article: %w", err)
			}
			stats.GenerationErrors++
			s.logger.Warn("article generation failed",
				"slot", i,
				"category", category,
				"error", err,
			)
			continue
		}

		article.Featured = len(result.Articles) == 0
		stats.Generated++

		if err := s.persist(ctx, article); err != nil {
			stats.PersistErrors++
			s.logger.Error("failed to store article",
				"slug", article.Slug,
				"category", category,
				"error", err,
			)
		} else {
			stats.Persisted++
			s.publish(ctx, article, stats)
		}

		result.Articles = append(result.Articles, *article)
	}

	stats.Duration = time.Since(startTime)

	s.logger.Info("daily batch completed",
		"requested", stats.Requested,
		"generated", stats.Generated,
		"persisted", stats.Persisted,
		"generation_errors", stats.GenerationErrors,
		"persist_errors", stats.PersistErrors,
		"published", stats.Published,
		"duration", stats.Duration,
	)

	if len(result.Articles) == 0 {
		return result, apperror.Generation("no posts were generated", ctx.Err())
	}

	return result, nil
}

// GenerateOne produces a single article without storing it.
func (s *BatchService) GenerateOne(ctx context.Context, category domain.Category) (*domain.Article, error) {
	if category == "" {
		category = s.config.Categories[0]
	}
	article, err := s.generator.Generate(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("generate article: %w", err)
	}
	return article, nil
}

func (s *BatchService) persist(ctx context.Context, article *domain.Article) error {
	err := s.articles.Insert(ctx, article)
	if !errors.Is(err, domain.ErrSlugTaken) {
		return err
	}

	original := article.Slug
	article.Slug = content.SuffixSlug(original, article.ID)
	s.logger.Info("slug taken, retrying with suffix", "slug", original, "new_slug", article.Slug)

	if err := s.articles.Insert(ctx, article); err != nil {
		return fmt.Errorf("insert with suffixed slug: %w", err)
	}
	return nil
}

func (s *BatchService) publish(ctx context.Context, article *domain.Article, stats *domain.BatchStats) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishArticle(ctx, article); err != nil {
		s.logger.Warn("failed to publish article event", "slug", article.Slug, "error", err)
		return
	}
	stats.Published++
}

func (s *BatchService) pause(ctx context.Context) error {
	if s.config.Delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.config.Delay):
		return nil
	}
}
