package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// AnswerFormat selects how /api/ask renders its result.
type AnswerFormat string

const (
	FormatJSON     AnswerFormat = "json"
	FormatSQL      AnswerFormat = "sql"
	FormatMarkdown AnswerFormat = "markdown"
	FormatDownload AnswerFormat = "download"
)

// maxAskBodyBytes bounds POST bodies; a question is a sentence, not a file.
const maxAskBodyBytes = 64 << 10

// askRequest is the POST body of /api/ask. Query parameters take precedence.
type askRequest struct {
	Question string `json:"question"`
	Q        string `json:"q"`
	Format   string `json:"format"`
}

// ParseAskParams reads the question and answer format from the query string
// (q, format) and, for POST, from a JSON body. The question is returned
// untrimmed; blank questions are rejected by the service.
func ParseAskParams(r *http.Request) (string, AnswerFormat, error) {
	query := r.URL.Query()
	question := query.Get("q")
	format := query.Get("format")

	if r.Method == http.MethodPost && r.Body != nil {
		var body askRequest
		err := json.NewDecoder(io.LimitReader(r.Body, maxAskBodyBytes)).Decode(&body)
		if err != nil && !errors.Is(err, io.EOF) {
			return "", "", fmt.Errorf("invalid request body: %w", err)
		}
		if question == "" {
			question = body.Question
			if question == "" {
				question = body.Q
			}
		}
		if format == "" {
			format = body.Format
		}
	}

	f, err := parseFormat(format)
	if err != nil {
		return "", "", err
	}
	return question, f, nil
}

func parseFormat(s string) (AnswerFormat, error) {
	switch f := AnswerFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatSQL, FormatMarkdown, FormatDownload:
		return f, nil
	default:
		return "", fmt.Errorf("format must be one of json, sql, markdown, download; got %q", s)
	}
}
