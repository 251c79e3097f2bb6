package htmlutil

import (
	"strings"
	"unicode/utf8"

	"github.com/k3a/html2text"
)

// ToText converts HTML to plain text using a proper HTML parser.
// Handles entities, strips tags, and preserves readable text.
func ToText(s string) string {
	return html2text.HTML2Text(s)
}

// Summary flattens an upstream response body, often an HTML error page from a
// proxy, into a single line of at most n runes.
func Summary(body string, n int) string {
	text := strings.Join(strings.Fields(ToText(body)), " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n]) + "…"
}
