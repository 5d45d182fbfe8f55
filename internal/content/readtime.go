package content

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

const wordsPerMinute = 200

var converter = md.NewConverter("", true, nil)

// ToMarkdown renders article HTML as Markdown.
func ToMarkdown(html string) (string, error) {
	out, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}
	return out, nil
}

// WordCount counts words in the text rendering of html. Markup tokens such
// as heading hashes and list bullets are not words.
func WordCount(html string) int {
	text, err := ToMarkdown(html)
	if err != nil {
		text = html
	}

	count := 0
	for _, field := range strings.Fields(text) {
		if strings.IndexFunc(field, isWordRune) >= 0 {
			count++
		}
	}
	return count
}

// ReadTime formats the estimated reading time, never less than one minute.
func ReadTime(html string) string {
	minutes := int(math.Ceil(float64(WordCount(html)) / wordsPerMinute))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
