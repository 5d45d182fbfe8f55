package content

import (
	"fmt"

	"dreamclerk/internal/domain"
)

const systemPrompt = `You are a staff writer for Dreamclerk, a platform that helps university students study, plan their careers and look after themselves. You write practical, encouraging and accurate articles. You always answer with a single JSON object and nothing else.`

const articlePrompt = `Write an original blog article for students in the category "%s".

Requirements:
- between 800 and 1200 words
- a specific, engaging title (no clickbait)
- a one or two sentence excerpt that summarises the article
- the body as HTML using only these tags: <p>, <h2>, <h3>, <ul>, <li>
- at least three <h2> sections with actionable advice

Respond with JSON in exactly this shape:
{"title": "...", "excerpt": "...", "content": "<p>...</p>"}`

func buildPrompt(category domain.Category) string {
	return fmt.Sprintf(articlePrompt, category)
}
