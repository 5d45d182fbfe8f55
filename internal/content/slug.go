package content

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

const fallbackSlug = "post"

// Slugify lowercases title and collapses every run of characters outside
// [a-z0-9] into a single hyphen.
func Slugify(title string) string {
	slug := nonAlnum.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

// SuffixSlug disambiguates slug with the tail of id.
func SuffixSlug(slug, id string) string {
	tail := strings.ToLower(id)
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}
	return slug + "-" + nonAlnum.ReplaceAllString(tail, "")
}
