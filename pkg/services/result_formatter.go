package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/config"
	"github.com/ekaya-inc/ekaya-ask/pkg/llm"
	"github.com/ekaya-inc/ekaya-ask/pkg/logging"
	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/prompts"
	"github.com/ekaya-inc/ekaya-ask/pkg/sql"
)

const (
	noResultsAnswer       = "No results found."
	catalogFailureAnswer  = "The database schema could not be read, so no SQL was generated."
	fallbackSampleRows    = 3
	defaultDisplayRows    = 10
	defaultStatisticsRows = 100
)

// ResultFormatter turns query results into the final answer, through the
// completion service when one is configured and deterministically otherwise.
type ResultFormatter struct {
	completer     llm.Completer
	displayRows   int
	statsRows     int
	currencyHints []string
	logger        *zap.Logger
}

// NewResultFormatter creates a formatter. completer may be nil.
func NewResultFormatter(completer llm.Completer, cfg config.PipelineConfig, logger *zap.Logger) *ResultFormatter {
	f := &ResultFormatter{
		completer:     completer,
		displayRows:   cfg.DisplaySampleRows,
		statsRows:     cfg.StatsSampleRows,
		currencyHints: cfg.CurrencyHints,
		logger:        logger.Named("result_formatter"),
	}
	if f.displayRows <= 0 {
		f.displayRows = defaultDisplayRows
	}
	if f.statsRows <= 0 {
		f.statsRows = defaultStatisticsRows
	}
	return f
}

// Format returns the answer for a finished run. It never fails.
//
// When there are no rows, a diagnostic from an earlier stage is kept verbatim
// in the answer, so the reason a question went unanswered is never lost to a
// paraphrase.
func (f *ResultFormatter) Format(ctx context.Context, in models.FormatRequest) string {
	if in.Error.IsFatal() {
		if in.PriorAnswer != "" {
			return in.PriorAnswer
		}
		return catalogFailureAnswer
	}

	if f.completer == nil {
		return f.fallback(in)
	}

	userPrompt := prompts.FormattingUser(f.promptInput(in))
	out, err := f.completer.Complete(ctx, prompts.FormattingSystem, userPrompt)
	if err != nil {
		f.logger.Warn("Answer formatting failed, using summary",
			zap.String("error_type", string(llm.GetErrorType(err))),
			zap.String("error", logging.SanitizeError(err)))
		return f.fallback(in)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return f.fallback(in)
	}
	if len(in.Rows) == 0 && in.PriorAnswer != "" && !strings.Contains(out, in.PriorAnswer) {
		out += "\n\n" + in.PriorAnswer
	}
	return out
}

func (f *ResultFormatter) promptInput(in models.FormatRequest) prompts.FormattingInput {
	display := headRows(in.Rows, f.displayRows)
	stats := ComputeColumnStats(headRows(in.Rows, f.statsRows), in.Columns, f.currencyHints)

	summaries := make([]prompts.ColumnSummary, len(stats))
	for i, s := range stats {
		summaries[i] = prompts.ColumnSummary{
			Column: s.Column,
			Count:  s.Count,
			Min:    renderStat(s.Min),
			Max:    renderStat(s.Max),
			Avg:    renderStat(s.Avg),
		}
		if s.Currency {
			summaries[i].Currency = &prompts.CurrencySummary{
				Min: FormatCurrency(s.Min),
				Max: FormatCurrency(s.Max),
				Avg: FormatCurrency(s.Avg),
			}
		}
	}

	sample := make([]map[string]any, len(display))
	for i, row := range display {
		out := make(map[string]any, len(row))
		for k, v := range row {
			out[k] = displayValue(v)
		}
		sample[i] = out
	}

	columns := in.Columns
	if len(columns) == 0 {
		columns = rowKeys(in.Rows)
	}

	return prompts.FormattingInput{
		Question:    in.Question,
		FoundTables: sql.ValidateTables(in.SQL, in.AllowedTables).FoundTables,
		Columns:     columns,
		RowCount:    len(in.Rows),
		SampleRows:  sample,
		Summaries:   summaries,
		PriorAnswer: in.PriorAnswer,
	}
}

// fallback summarizes rows without the completion service: row count,
// columns and a short markdown sample. With no rows it is the prior
// diagnostic, or "No results found.".
func (f *ResultFormatter) fallback(in models.FormatRequest) string {
	if len(in.Rows) == 0 {
		if in.PriorAnswer != "" {
			return in.PriorAnswer
		}
		return noResultsAnswer
	}

	columns := in.Columns
	if len(columns) == 0 {
		columns = rowKeys(in.Rows)
	}

	var b strings.Builder
	noun := "rows"
	if len(in.Rows) == 1 {
		noun = "row"
	}
	fmt.Fprintf(&b, "Found %d %s. Columns: %s.", len(in.Rows), noun, strings.Join(columns, ", "))

	sample := headRows(in.Rows, fallbackSampleRows)
	if len(sample) > 0 && len(columns) > 0 {
		b.WriteString("\n\n| ")
		b.WriteString(strings.Join(columns, " | "))
		b.WriteString(" |\n|")
		b.WriteString(strings.Repeat(" --- |", len(columns)))
		for _, row := range sample {
			b.WriteString("\n|")
			for _, col := range columns {
				fmt.Fprintf(&b, " %v |", displayValue(row[col]))
			}
		}
	}
	return b.String()
}

func headRows(rows []map[string]any, n int) []map[string]any {
	if len(rows) <= n {
		return rows
	}
	return rows[:n]
}

func renderStat(d decimal.Decimal) string {
	return d.Round(2).String()
}

// displayValue converts driver values to something readable in prompts and
// summaries.
func displayValue(v any) any {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case string, bool, int, int32, int64, float32, float64:
		return val
	}
	if d, ok := ParseNumber(v); ok {
		return d.String()
	}
	return fmt.Sprint(v)
}
