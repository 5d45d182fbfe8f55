package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dreamclerk/internal/apperror"
	"dreamclerk/internal/config"
	"dreamclerk/internal/domain"
)

type fakeBatch struct {
	runs      int
	generated int
	category  domain.Category
	result    *domain.BatchResult
	err       error
	batchCtx  context.Context
}

func (f *fakeBatch) RunDailyBatch(ctx context.Context) (*domain.BatchResult, error) {
	f.runs++
	f.batchCtx = ctx
	return f.result, f.err
}

func (f *fakeBatch) GenerateOne(ctx context.Context, category domain.Category) (*domain.Article, error) {
	f.generated++
	f.category = category
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Article{Title: "One", Category: category}, nil
}

type fakePosts struct {
	today   int
	day     time.Time
	posts   map[string]*domain.Article
	listed  domain.ListOptions
	listErr error
}

func (f *fakePosts) CountToday(ctx context.Context) (int, time.Time, error) {
	return f.today, f.day, nil
}

func (f *fakePosts) ListPosts(ctx context.Context, opts domain.ListOptions) ([]domain.Article, error) {
	f.listed = opts
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Article, 0, len(f.posts))
	for _, p := range f.posts {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakePosts) GetPost(ctx context.Context, slug string) (*domain.Article, error) {
	if p, ok := f.posts[slug]; ok {
		return p, nil
	}
	return nil, apperror.NotFound("post", slug)
}

func (f *fakePosts) PostMarkdown(ctx context.Context, slug string) (string, error) {
	p, err := f.GetPost(ctx, slug)
	if err != nil {
		return "", err
	}
	return "# " + p.Title + "\n", nil
}

type fakeLLM bool

func (f fakeLLM) Configured() bool { return bool(f) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

var testSecrets = config.SecretsConfig{
	BlogGeneration: "blog-secret",
	Cron:           "cron-secret",
	AdminInit:      "admin-secret",
}

func blogRouter(h *BlogHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/blog/generate", h.HandleGenerate)
	r.Get("/api/blog/generate", h.HandleGenerateStatus)
	r.Post("/api/blog/test", h.HandleTest)
	r.Get("/api/cron/generate-blogs", h.HandleCron)
	r.Get("/api/blog/posts", h.HandleListPosts)
	r.Get("/api/blog/posts/{slug}", h.HandleGetPost)
	r.Get("/api/blog/posts/{slug}/markdown", h.HandleMarkdown)
	return r
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var res ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	return res
}

func TestBlogHandler_GenerateDeniedWithoutSideEffects(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		configured string
	}{
		{name: "missing secret", url: "/api/blog/generate", configured: "blog-secret"},
		{name: "wrong secret", url: "/api/blog/generate?secret=nope", configured: "blog-secret"},
		{name: "server secret unset", url: "/api/blog/generate?secret=blog-secret", configured: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := &fakeBatch{}
			secrets := testSecrets
			secrets.BlogGeneration = tt.configured
			h := NewBlogHandler(batch, &fakePosts{}, fakeLLM(true), secrets, testLogger())

			rr := serve(blogRouter(h), httptest.NewRequest(http.MethodPost, tt.url, nil))

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, ErrorResponse{Error: "unauthorized", Message: "unauthorized"}, decodeError(t, rr))
			assert.Zero(t, batch.runs)
		})
	}
}

func TestBlogHandler_GenerateIgnoresBearerForManualTrigger(t *testing.T) {
	batch := &fakeBatch{}
	h := NewBlogHandler(batch, &fakePosts{}, fakeLLM(true), testSecrets, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/blog/generate", nil)
	req.Header.Set("Authorization", "Bearer blog-secret")
	rr := serve(blogRouter(h), req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Zero(t, batch.runs)
}

func TestBlogHandler_GenerateWithoutAPIKeyLooksUnauthorized(t *testing.T) {
	batch := &fakeBatch{}
	h := NewBlogHandler(batch, &fakePosts{}, fakeLLM(false), testSecrets, testLogger())

	rr := serve(blogRouter(h), httptest.NewRequest(http.MethodPost, "/api/blog/generate?secret=blog-secret", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, ErrorResponse{Error: "unauthorized", Message: "unauthorized"}, decodeError(t, rr))
	assert.Zero(t, batch.runs)
}

func TestBlogHandler_GenerateSuccess(t *testing.T) {
	batch := &fakeBatch{result: &domain.BatchResult{
		Articles: []domain.Article{{Title: "A", Featured: true}, {Title: "B"}},
		Stats:    domain.BatchStats{Requested: 3, Generated: 2, Persisted: 2, GenerationErrors: 1},
	}}
	h := NewBlogHandler(batch, &fakePosts{}, fakeLLM(true), testSecrets, testLogger())

	rr := serve(blogRouter(h), httptest.NewRequest(http.MethodPost, "/api/blog/generate?secret=blog-secret", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var res generateResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.PostsGenerated)
	assert.Len(t, res.Posts, 2)
	assert.Equal(t, 1, res.Stats.GenerationErrors)
	assert.Equal(t, 1, batch.runs)
}

func TestBlogHandler_GenerateOutlivesCancelledRequest(t *testing.T) {
	batch := &fakeBatch{result: &domain.BatchResult{Articles: []domain.Article{{Title: "A"}}}}
	h := NewBlogHandler(batch, &fakePosts{}, fakeLLM(true), testSecrets, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/blog/generate?secret=blog-secret", nil).WithContext(ctx)

	rr := serve(blogRouter(h), req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, batch.batchCtx)
	assert.NoError(t, batch.batchCtx.Err())
}

func TestBlogHandler_GenerateNothingGenerated(t *testing.T) {
	batch := &fakeBatch{
		result: &domain.BatchResult{},
		err:    apperror.Generation("no posts were generated", nil),
	}
	h := NewBlogHandler(batch, &fakePosts{}, fakeLLM(true), testSecrets, testLogger())

	rr := serve(blogRouter(h), httptest.NewRequest(http.MethodPost, "/api/blog/generate?secret=blog-secret", nil))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "generation_error", decodeError(t, rr).Error)
}

func TestBlogHandler_Cron(t *testing.T) {
	result := &domain.BatchResult{Articles: []domain.Article{{Title: "A"}}}

	t.Run("query secret", func(t *testing.T) {
		batch := &fakeBatch{result: result}
		h := NewBlogHandler(batch, &fakePosts{}, fakeLLM(true), testSecrets, testLogger())

		rr := serve(blogRouter(h), httptest.NewRequest(http.MethodGet, "/api/cron/generate-blogs?secret=cron-secret", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 1, batch.runs)
	})

	t.Run("bearer secret", func(t *testing.T) {
		batch := &fakeBatch{result: result}
		h := NewBlogHandler(batch, &fakePosts{}, fakeLLM(true), testSecrets, testLogger())

		req := httptest.NewRequest(http.MethodGet, "/api/cron/generate-blogs", nil)
		req.Header.Set("Authorization", "Bearer cron-secret")
		rr := serve(blogRouter(h), req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 1, batch.runs)
	})

	t.Run("blog secret is not the cron secret", func(t *testing.T) {
		batch := &fakeBatch{result: result}
		h := NewBlogHandler(batch, &fakePosts{}, fakeLLM(true), testSecrets, testLogger())

		rr := serve(blogRouter(h), httptest.NewRequest(http.MethodGet, "/api/cron/generate-blogs?secret=blog-secret", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Zero(t, batch.runs)
	})
}

func TestBlogHandler_GenerateStatus(t *testing.T) {
	posts := &fakePosts{today: 12, day: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)}
	h := NewBlogHandler(&fakeBatch{}, posts, fakeLLM(true), testSecrets, testLogger())

	rr := serve(blogRouter(h), httptest.NewRequest(http.MethodGet, "/api/blog/generate", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"postsGeneratedToday":12,"date":"2026-09-01"}`, rr.Body.String())
}

func TestBlogHandler_Test(t *testing.T) {
	t.Run("empty body uses default category", func(t *testing.T) {
		batch := &fakeBatch{}
		h := NewBlogHandler(batch, &fakePosts{}, fakeLLM(true), testSecrets, testLogger())

		rr := serve(blogRouter(h), httptest.NewRequest(http.MethodPost, "/api/blog/test", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 1, batch.generated)
		assert.Equal(t, domain.Category(""), batch.category)
		assert.Zero(t, batch.runs)
	})

	t.Run("explicit category", func(t *testing.T) {
		batch := &fakeBatch{}
		h := NewBlogHandler(batch, &fakePosts{}, fakeLLM(true), testSecrets, testLogger())

		body := bytes.NewBufferString(`{"category":"Technology"}`)
		rr := serve(blogRouter(h), httptest.NewRequest(http.MethodPost, "/api/blog/test", body))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, domain.CategoryTechnology, batch.category)
	})

	t.Run("unknown category", func(t *testing.T) {
		batch := &fakeBatch{}
		h := NewBlogHandler(batch, &fakePosts{}, fakeLLM(true), testSecrets, testLogger())

		body := bytes.NewBufferString(`{"category":"Astrology"}`)
		rr := serve(blogRouter(h), httptest.NewRequest(http.MethodPost, "/api/blog/test", body))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		res := decodeError(t, rr)
		require.Len(t, res.Fields, 1)
		assert.Equal(t, "category", res.Fields[0].Field)
		assert.Zero(t, batch.generated)
	})

	t.Run("api key missing", func(t *testing.T) {
		batch := &fakeBatch{}
		h := NewBlogHandler(batch, &fakePosts{}, fakeLLM(false), testSecrets, testLogger())

		rr := serve(blogRouter(h), httptest.NewRequest(http.MethodPost, "/api/blog/test", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Zero(t, batch.generated)
	})
}

func TestBlogHandler_Posts(t *testing.T) {
	posts := &fakePosts{posts: map[string]*domain.Article{
		"focus": {Title: "Focus", Slug: "focus"},
	}}
	router := blogRouter(NewBlogHandler(&fakeBatch{}, posts, fakeLLM(true), testSecrets, testLogger()))

	t.Run("list with paging", func(t *testing.T) {
		rr := serve(router, httptest.NewRequest(http.MethodGet, "/api/blog/posts?category=Technology&limit=5&offset=10", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, domain.ListOptions{Category: domain.CategoryTechnology, Limit: 5, Offset: 10}, posts.listed)
	})

	t.Run("invalid limit", func(t *testing.T) {
		rr := serve(router, httptest.NewRequest(http.MethodGet, "/api/blog/posts?limit=many", nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("get by slug", func(t *testing.T) {
		rr := serve(router, httptest.NewRequest(http.MethodGet, "/api/blog/posts/focus", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var got domain.Article
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, "Focus", got.Title)
	})

	t.Run("unknown slug", func(t *testing.T) {
		rr := serve(router, httptest.NewRequest(http.MethodGet, "/api/blog/posts/missing", nil))

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "not_found", decodeError(t, rr).Error)
	})

	t.Run("markdown", func(t *testing.T) {
		rr := serve(router, httptest.NewRequest(http.MethodGet, "/api/blog/posts/focus/markdown", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "text/markdown; charset=utf-8", rr.Header().Get("Content-Type"))
		assert.Equal(t, "# Focus\n", rr.Body.String())
	})
}
