package sql

import (
	"strings"
)

// tokenKind classifies a lexical token produced by tokenize.
type tokenKind int

const (
	tokIdent tokenKind = iota
	tokQuotedIdent
	tokNumber
	tokDot
	tokComma
	tokLParen
	tokRParen
	tokSemicolon
	tokOther
)

// token is a lexical unit with its byte span in the original SQL text.
type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
}

func (t token) isIdent() bool {
	return t.kind == tokIdent || t.kind == tokQuotedIdent
}

// name returns the identifier value. Quoted identifiers lose their quotes and
// doubled quotes collapse to one; [bracketed] names lose their brackets.
func (t token) name() string {
	if t.kind != tokQuotedIdent {
		return t.text
	}
	if strings.HasPrefix(t.text, "[") {
		inner := strings.TrimSuffix(strings.TrimPrefix(t.text, "["), "]")
		return strings.ReplaceAll(inner, "]]", "]")
	}
	inner := strings.TrimPrefix(t.text, `"`)
	inner = strings.TrimSuffix(inner, `"`)
	return strings.ReplaceAll(inner, `""`, `"`)
}

// isKeyword reports whether t is the bare (unquoted) keyword kw.
func (t token) isKeyword(kw string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

// maskLiterals blanks out string literals and comments with spaces so that
// keywords inside them are invisible to the table scanners. Byte offsets are
// preserved, which lets callers rewrite the original text at scanned positions.
// Double-quoted identifiers are kept intact.
//
// Handles:
//   - 'single quoted' strings with '' escapes
//   - E'escape strings' with backslash escapes
//   - $tag$dollar quoted$tag$ strings
//   - -- line comments and nested /* block comments */
//
// SQL Server [bracket identifiers] are skipped over unchanged.
func maskLiterals(sqlQuery string) string {
	return maskSpans(sqlQuery, true)
}

// blankComments replaces comments with spaces and leaves string literals as
// written.
func blankComments(sqlQuery string) string {
	return maskSpans(sqlQuery, false)
}

func maskSpans(sqlQuery string, maskStrings bool) string {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateLineComment
		stateBlockComment
		stateDollarQuote
	)

	src := []byte(sqlQuery)
	out := make([]byte, len(src))
	copy(out, src)

	blank := func(from, to int) {
		if !maskStrings {
			return
		}
		for j := from; j < to; j++ {
			out[j] = ' '
		}
	}

	state := stateNormal
	escapeString := false
	blockDepth := 0
	dollarTag := ""

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch state {
		case stateNormal:
			switch {
			case c == '\'':
				escapeString = i > 0 && (src[i-1] == 'e' || src[i-1] == 'E') && (i < 2 || !isIdentByte(src[i-2]))
				state = stateSingleQuote
				blank(i, i+1)
			case c == '"':
				state = stateDoubleQuote
			case c == '[':
				if end, ok := bracketIdentEnd(sqlQuery, i); ok {
					i = end - 1
				}
			case c == '-' && i+1 < len(src) && src[i+1] == '-':
				state = stateLineComment
				out[i] = ' '
			case c == '/' && i+1 < len(src) && src[i+1] == '*':
				state = stateBlockComment
				blockDepth = 1
				out[i] = ' '
				out[i+1] = ' '
				i++
			case c == '$' && (i == 0 || !isIdentByte(src[i-1])):
				if tag, ok := readDollarTag(src, i); ok {
					dollarTag = tag
					state = stateDollarQuote
					blank(i, i+len(tag))
					i += len(tag) - 1
				}
			}
		case stateSingleQuote:
			blank(i, i+1)
			if escapeString && c == '\\' && i+1 < len(src) {
				blank(i+1, i+2)
				i++
				continue
			}
			if c == '\'' {
				// A doubled quote stays inside the literal.
				if i+1 < len(src) && src[i+1] == '\'' {
					blank(i+1, i+2)
					i++
					continue
				}
				state = stateNormal
			}
		case stateDoubleQuote:
			if c == '"' {
				if i+1 < len(src) && src[i+1] == '"' {
					i++
					continue
				}
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				continue
			}
			out[i] = ' '
		case stateBlockComment:
			out[i] = ' '
			if c == '/' && i+1 < len(src) && src[i+1] == '*' {
				blockDepth++
				out[i+1] = ' '
				i++
			} else if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				blockDepth--
				out[i+1] = ' '
				i++
				if blockDepth == 0 {
					state = stateNormal
				}
			}
		case stateDollarQuote:
			if c == '$' && strings.HasPrefix(sqlQuery[i:], dollarTag) {
				blank(i, i+len(dollarTag))
				i += len(dollarTag) - 1
				state = stateNormal
				continue
			}
			blank(i, i+1)
		}
	}

	return string(out)
}

// readDollarTag returns the opening tag ("$$" or "$name$") starting at src[i].
func readDollarTag(src []byte, i int) (string, bool) {
	j := i + 1
	if j < len(src) && src[j] != '$' {
		if !isIdentStart(src[j]) {
			return "", false
		}
		for j < len(src) && src[j] != '$' && isIdentByte(src[j]) {
			j++
		}
	}
	if j < len(src) && src[j] == '$' {
		return string(src[i : j+1]), true
	}
	return "", false
}

// bracketIdentEnd reports whether src[i] opens a SQL Server [identifier] and
// returns the index just past its closing bracket; "]]" stays inside the name.
// A bracket directly after an identifier, a bracket or ')' is a subscript, and
// one after ARRAY builds an array.
func bracketIdentEnd(src string, i int) (int, bool) {
	if i > 0 && (isIdentByte(src[i-1]) || strings.IndexByte("[])", src[i-1]) >= 0) {
		return 0, false
	}
	if precededByWord(src, i, "array") {
		return 0, false
	}
	for j := i + 1; j < len(src); j++ {
		if src[j] != ']' {
			continue
		}
		if j+1 < len(src) && src[j+1] == ']' {
			j++
			continue
		}
		return j + 1, j > i+1
	}
	return 0, false
}

// precededByWord reports whether the word before src[i], ignoring whitespace,
// is word.
func precededByWord(src string, i int, word string) bool {
	end := i
	for end > 0 && (src[end-1] == ' ' || src[end-1] == '\t' || src[end-1] == '\n' || src[end-1] == '\r') {
		end--
	}
	start := end
	for start > 0 && isIdentByte(src[start-1]) {
		start--
	}
	return strings.EqualFold(src[start:end], word)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '$'
}

// tokenize splits already-masked SQL into tokens. Whitespace is dropped.
func tokenize(masked string) []token {
	var tokens []token
	n := len(masked)

	for i := 0; i < n; {
		c := masked[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			i++
		case isIdentStart(c):
			j := i + 1
			for j < n && isIdentByte(masked[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tokIdent, text: masked[i:j], start: i, end: j})
			i = j
		case c == '"':
			j := i + 1
			for j < n {
				if masked[j] == '"' {
					if j+1 < n && masked[j+1] == '"' {
						j += 2
						continue
					}
					j++
					break
				}
				j++
			}
			tokens = append(tokens, token{kind: tokQuotedIdent, text: masked[i:j], start: i, end: j})
			i = j
		case c == '[':
			if j, ok := bracketIdentEnd(masked, i); ok {
				tokens = append(tokens, token{kind: tokQuotedIdent, text: masked[i:j], start: i, end: j})
				i = j
				continue
			}
			tokens = append(tokens, token{kind: tokOther, text: "[", start: i, end: i + 1})
			i++
		case c >= '0' && c <= '9':
			j := i + 1
			for j < n && (isIdentByte(masked[j]) || masked[j] == '.') {
				j++
			}
			tokens = append(tokens, token{kind: tokNumber, text: masked[i:j], start: i, end: j})
			i = j
		default:
			kind := tokOther
			switch c {
			case '.':
				kind = tokDot
			case ',':
				kind = tokComma
			case '(':
				kind = tokLParen
			case ')':
				kind = tokRParen
			case ';':
				kind = tokSemicolon
			}
			tokens = append(tokens, token{kind: kind, text: masked[i : i+1], start: i, end: i + 1})
			i++
		}
	}

	return tokens
}

// quoteIdent double-quotes an identifier, escaping embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
