package llm

import (
	"regexp"
	"strings"
)

var (
	reCode       = regexp.MustCompile("(?s)`{1,3}.*?`{1,3}")
	reEmphasis   = regexp.MustCompile(`[*_]{1,3}`)
	reLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	reBulletItem = regexp.MustCompile(`(?m)^\s*[-+*]\s+`)
	reNumberItem = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// CleanMarkdown strips residual markdown formatting from generated text so
// replies read as plain spoken sentences before synthesis.
func CleanMarkdown(text string) string {
	text = reCode.ReplaceAllString(text, "")
	text = reEmphasis.ReplaceAllString(text, "")
	text = reLink.ReplaceAllString(text, "$1")
	text = reBulletItem.ReplaceAllString(text, "")
	text = reNumberItem.ReplaceAllString(text, "")
	text = reWhitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
