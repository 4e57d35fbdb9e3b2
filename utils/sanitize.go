package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.StrictPolicy()

// CleanText strips all markup from an externally supplied label (game title,
// reward name) and caps it at max runes. bluemonday escapes entities, so the
// result is unescaped back to plain text.
func CleanText(input string, max int) string {
	s := html.UnescapeString(sanitizer.Sanitize(input))
	s = strings.Join(strings.Fields(s), " ")
	if max > 0 {
		if rs := []rune(s); len(rs) > max {
			s = string(rs[:max])
		}
	}
	return s
}
