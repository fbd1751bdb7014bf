package sql

import (
	"regexp"
	"strings"
)

// FallbackSQL is what the generator is told to emit when a question cannot be
// answered from the allowed tables.
const FallbackSQL = "SELECT 1 WHERE FALSE"

var (
	fencedBlockPattern = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\\s*(.*?)```")
	leadingFence       = regexp.MustCompile("^```[a-zA-Z0-9_-]*")
)

// Sanitize turns raw completion output into a single line of SQL: it keeps the
// first fenced code block (or drops a lone fence marker), removes comments,
// collapses whitespace runs to one space, trims, and strips one trailing
// semicolon.
func Sanitize(raw string) string {
	text := strings.TrimSpace(raw)

	if m := fencedBlockPattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	} else {
		text = leadingFence.ReplaceAllString(text, "")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	// Line comments would swallow the rest of the query once newlines collapse.
	text = blankComments(text)
	text = strings.Join(strings.Fields(text), " ")

	return stripTrailingSemicolon(text)
}

// IsFallback reports whether sqlQuery is the "cannot answer" literal, ignoring
// case and spacing.
func IsFallback(sqlQuery string) bool {
	normalized := strings.Join(strings.Fields(stripTrailingSemicolon(sqlQuery)), " ")
	return strings.EqualFold(normalized, FallbackSQL)
}
