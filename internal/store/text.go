package store

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// maxCleanRounds bounds CleanText on deeply nested entities (&amp;amp;lt;...).
const maxCleanRounds = 16

// CleanText strips HTML markup from user input and trims surrounding whitespace.
// Entities escaped by the sanitizer are decoded so "Fish & chips" is stored as
// typed; decoding can expose new markup, so stripping repeats until the text no
// longer changes. CleanText(CleanText(s)) == CleanText(s).
func CleanText(s string) string {
	cur := cleanRound(s)
	for i := 0; i < maxCleanRounds; i++ {
		next := cleanRound(cur)
		if next == cur {
			return cur
		}
		cur = next
	}
	// Still unstable: drop the characters markup is made of.
	return strings.TrimSpace(strings.NewReplacer("<", "", ">", "", "&", "").Replace(cur))
}

func cleanRound(s string) string {
	return strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(s)))
}
