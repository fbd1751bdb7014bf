package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/config"
	"github.com/ekaya-inc/ekaya-ask/pkg/llm"
	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/sql"
)

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		MaxRows:           100,
		DisplaySampleRows: 2,
		StatsSampleRows:   100,
		CurrencyHints:     []string{"precio"},
	}
}

func productRows() []map[string]any {
	return []map[string]any{
		{"nombre": "Laptop Pro 15", "precio": "1899.00"},
		{"nombre": "Escritorio de pie", "precio": "699.00"},
		{"nombre": "Monitor 27", "precio": "349.50"},
	}
}

func productRequest() models.FormatRequest {
	return models.FormatRequest{
		Question:      "top products by price",
		SQL:           `SELECT nombre, precio FROM "public"."producto" ORDER BY precio DESC`,
		Columns:       []string{"nombre", "precio"},
		Rows:          productRows(),
		AllowedTables: sql.ParseAllowList("public.producto"),
	}
}

func TestResultFormatter_UsesCompletion(t *testing.T) {
	mock := llm.NewMockCompleter("\n## Answer\nThe most expensive product is Laptop Pro 15.\n")
	formatter := NewResultFormatter(mock, testPipelineConfig(), zap.NewNop())

	answer := formatter.Format(context.Background(), productRequest())

	assert.Equal(t, "## Answer\nThe most expensive product is Laptop Pro 15.", answer)
	require.Equal(t, 1, mock.Calls())

	prompt := mock.UserPrompts()[0]
	assert.Contains(t, prompt, "Question: top products by price")
	assert.Contains(t, prompt, "Tables: public.producto")
	assert.Contains(t, prompt, "Total rows: 3 (showing 2)")
	assert.Contains(t, prompt, "- precio: count=3 min=349.5 max=1899 avg=982.5 (currency: min=$350 max=$1,899 avg=$983)")
	assert.Contains(t, prompt, "Laptop Pro 15")
	assert.NotContains(t, prompt, "Monitor 27", "sample is capped at the display row count")
}

func TestResultFormatter_NoRowsKeepsDiagnostic(t *testing.T) {
	const diagnostic = "Blocked execution: unknown tables: public.unknown_table"

	tests := []struct {
		name       string
		completion string
		want       string
	}{
		{
			name:       "diagnostic appended to the answer",
			completion: "## Answer\nThe question needs a table that is not available.",
			want:       "## Answer\nThe question needs a table that is not available.\n\n" + diagnostic,
		},
		{
			name:       "diagnostic already quoted",
			completion: "## Answer\n" + diagnostic,
			want:       "## Answer\n" + diagnostic,
		},
		{
			name:       "blank completion",
			completion: "  ",
			want:       diagnostic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockCompleter(tt.completion)
			formatter := NewResultFormatter(mock, testPipelineConfig(), zap.NewNop())

			req := productRequest()
			req.Rows = nil
			req.PriorAnswer = diagnostic
			req.Error = models.ErrorKindUnknownTables

			assert.Equal(t, tt.want, formatter.Format(context.Background(), req))
			require.Equal(t, 1, mock.Calls())
			assert.Contains(t, mock.UserPrompts()[0], "Diagnostic: "+diagnostic)
		})
	}
}

func TestResultFormatter_NoRowsWithoutCompleter(t *testing.T) {
	formatter := NewResultFormatter(nil, testPipelineConfig(), zap.NewNop())

	req := productRequest()
	req.Rows = nil
	req.PriorAnswer = "No results. Diagnostics: table public.producto has 8 rows"
	assert.Equal(t, req.PriorAnswer, formatter.Format(context.Background(), req))

	req.PriorAnswer = ""
	assert.Equal(t, "No results found.", formatter.Format(context.Background(), req))
}

func TestResultFormatter_FatalError(t *testing.T) {
	formatter := NewResultFormatter(llm.NewMockCompleter("x"), testPipelineConfig(), zap.NewNop())

	answer := formatter.Format(context.Background(), models.FormatRequest{
		Question: "q",
		Error:    models.ErrorKindCatalogUnavailable,
	})

	assert.Equal(t, catalogFailureAnswer, answer)
}

func TestResultFormatter_Fallback(t *testing.T) {
	failing := &llm.MockCompleter{
		CompleteFunc: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			return "", errors.New("upstream unavailable")
		},
	}

	tests := []struct {
		name      string
		completer llm.Completer
	}{
		{"no completer", nil},
		{"completion error", failing},
		{"blank completion", llm.NewMockCompleter("   ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := NewResultFormatter(tt.completer, testPipelineConfig(), zap.NewNop())

			answer := formatter.Format(context.Background(), productRequest())

			assert.Contains(t, answer, "Found 3 rows. Columns: nombre, precio.")
			assert.Contains(t, answer, "| nombre | precio |")
			assert.Contains(t, answer, "| Laptop Pro 15 | 1899.00 |")
			assert.Contains(t, answer, "| Monitor 27 | 349.50 |")
		})
	}
}

func TestDisplayValue(t *testing.T) {
	assert.Equal(t, "NULL", displayValue(nil))
	assert.Equal(t, "abc", displayValue([]byte("abc")))
	assert.Equal(t, int64(3), displayValue(int64(3)))
	assert.Equal(t, "text", displayValue("text"))
}
