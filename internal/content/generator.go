package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/xid"

	"dreamclerk/internal/apperror"
	"dreamclerk/internal/domain"
)

// TextGenerator is the black-box language model: instructions in, text out.
type TextGenerator interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type generatedArticle struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Content string `json:"content"`
}

type Generator struct {
	client TextGenerator
	body   *bluemonday.Policy
	plain  *bluemonday.Policy
	logger *slog.Logger
	now    func() time.Time
}

func NewGenerator(client TextGenerator, logger *slog.Logger) *Generator {
	body := bluemonday.NewPolicy()
	body.AllowElements("p", "h2", "h3", "ul", "li")

	return &Generator{
		client: client,
		body:   body,
		plain:  bluemonday.StrictPolicy(),
		logger: logger.With("component", "content_generator"),
		now:    time.Now,
	}
}

// Generate produces one complete article for category. It never returns a
// partially filled article.
func (g *Generator) Generate(ctx context.Context, category domain.Category) (*domain.Article, error) {
	raw, err := g.client.Complete(ctx, systemPrompt, buildPrompt(category))
	if err != nil {
		if errors.Is(err, apperror.ErrConfiguration) {
			return nil, err
		}
		return nil, apperror.Generation("text generation failed", err)
	}

	parsed, err := parseArticle(raw)
	if err != nil {
		return nil, apperror.Generation("invalid generation output", err)
	}

	title := g.plainText(parsed.Title)
	excerpt := g.plainText(parsed.Excerpt)
	body := strings.TrimSpace(g.body.Sanitize(parsed.Content))
	if title == "" || excerpt == "" || body == "" {
		return nil, apperror.Generation("generation output is empty after sanitizing", nil)
	}

	article := &domain.Article{
		ID:          xid.New().String(),
		Title:       title,
		Slug:        Slugify(title),
		Excerpt:     excerpt,
		Content:     body,
		Category:    category,
		ReadTime:    ReadTime(body),
		ImageURL:    ImageFor(category),
		PublishedAt: g.now().UTC(),
	}

	g.logger.Debug("generated article",
		"category", category,
		"slug", article.Slug,
		"read_time", article.ReadTime,
	)

	return article, nil
}

// plainText strips markup from a text field, including markup that arrives
// entity-encoded, and returns the text with entities decoded.
func (g *Generator) plainText(s string) string {
	text := strings.TrimSpace(html.UnescapeString(s))
	for range 4 {
		clean := strings.TrimSpace(html.UnescapeString(g.plain.Sanitize(text)))
		if clean == text {
			return text
		}
		text = clean
	}
	return strings.TrimSpace(g.plain.Sanitize(text))
}

func parseArticle(raw string) (*generatedArticle, error) {
	text := stripCodeFence(strings.TrimSpace(raw))

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no json object in output")
	}

	var out generatedArticle
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	var missing []string
	if strings.TrimSpace(out.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(out.Excerpt) == "" {
		missing = append(missing, "excerpt")
	}
	if strings.TrimSpace(out.Content) == "" {
		missing = append(missing, "content")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}

	return &out, nil
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(text), "```")
}
