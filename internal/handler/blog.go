package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"dreamclerk/internal/apperror"
	"dreamclerk/internal/config"
	"dreamclerk/internal/domain"
)

type BatchRunner interface {
	RunDailyBatch(ctx context.Context) (*domain.BatchResult, error)
	GenerateOne(ctx context.Context, category domain.Category) (*domain.Article, error)
}

type PostReader interface {
	CountToday(ctx context.Context) (int, time.Time, error)
	ListPosts(ctx context.Context, opts domain.ListOptions) ([]domain.Article, error)
	GetPost(ctx context.Context, slug string) (*domain.Article, error)
	PostMarkdown(ctx context.Context, slug string) (string, error)
}

// GeneratorStatus reports whether the text-generation credential is set.
type GeneratorStatus interface {
	Configured() bool
}

type BlogHandler struct {
	batch   BatchRunner
	posts   PostReader
	llm     GeneratorStatus
	secrets config.SecretsConfig
	logger  *slog.Logger
}

func NewBlogHandler(batch BatchRunner, posts PostReader, llm GeneratorStatus, secrets config.SecretsConfig, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{
		batch:   batch,
		posts:   posts,
		llm:     llm,
		secrets: secrets,
		logger:  logger,
	}
}

type generateResponse struct {
	Success        bool              `json:"success"`
	PostsGenerated int               `json:"postsGenerated"`
	Posts          []domain.Article  `json:"posts"`
	Stats          domain.BatchStats `json:"stats"`
}

type generationStatusResponse struct {
	PostsGeneratedToday int    `json:"postsGeneratedToday"`
	Date                string `json:"date"`
}

type testGenerateRequest struct {
	Category domain.Category `json:"category"`
}

type testGenerateResponse struct {
	Success bool            `json:"success"`
	Post    *domain.Article `json:"post"`
}

// HandleGenerate runs the daily batch on demand. Requires ?secret=.
func (h *BlogHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, h.logger, "blog_generate", r.URL.Query().Get("secret"), h.secrets.BlogGeneration) {
		return
	}
	h.runBatch(w, r, "manual")
}

// HandleCron is the scheduled trigger. The secret may come from ?secret= or
// an Authorization bearer header.
func (h *BlogHandler) HandleCron(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, h.logger, "cron_generate", secretFromRequest(r), h.secrets.Cron) {
		return
	}
	h.runBatch(w, r, "cron")
}

func (h *BlogHandler) runBatch(w http.ResponseWriter, r *http.Request, trigger string) {
	if !h.llm.Configured() {
		writeError(w, h.logger, apperror.Configuration("OPENROUTER_API_KEY"))
		return
	}

	h.logger.Info("blog generation triggered", "trigger", trigger)

	// A caller that hangs up does not stop the batch; it runs to completion
	// or to the server-side batch timeout.
	result, err := h.batch.RunDailyBatch(context.WithoutCancel(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		Success:        true,
		PostsGenerated: len(result.Articles),
		Posts:          result.Articles,
		Stats:          result.Stats,
	})
}

func (h *BlogHandler) HandleGenerateStatus(w http.ResponseWriter, r *http.Request) {
	count, day, err := h.posts.CountToday(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, generationStatusResponse{
		PostsGeneratedToday: count,
		Date:                day.Format(time.DateOnly),
	})
}

// HandleTest generates one article without storing it.
func (h *BlogHandler) HandleTest(w http.ResponseWriter, r *http.Request) {
	if !h.llm.Configured() {
		writeError(w, h.logger, apperror.Configuration("OPENROUTER_API_KEY"))
		return
	}

	var req testGenerateRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Category != "" && !slices.Contains(domain.Categories, req.Category) {
		writeError(w, h.logger, apperror.ValidationFailed("category", "unknown category"))
		return
	}

	article, err := h.batch.GenerateOne(r.Context(), req.Category)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, testGenerateResponse{Success: true, Post: article})
}

func (h *BlogHandler) HandleListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := domain.ListOptions{Category: domain.Category(q.Get("category"))}

	var err error
	if opts.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if opts.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		writeError(w, h.logger, err)
		return
	}

	posts, err := h.posts.ListPosts(r.Context(), opts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (h *BlogHandler) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.GetPost(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *BlogHandler) HandleMarkdown(w http.ResponseWriter, r *http.Request) {
	md, err := h.posts.PostMarkdown(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(md)); err != nil {
		h.logger.Error("failed to write markdown", "error", err)
	}
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperror.ValidationFailed(name, name+" must be a non-negative integer")
	}
	return n, nil
}
