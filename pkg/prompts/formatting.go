package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ColumnSummary is the numeric summary of one result column, already rendered
// for the prompt.
type ColumnSummary struct {
	Column string
	Count  int
	Min    string
	Max    string
	Avg    string
	// Currency repeats min, max and avg as money; nil for other columns.
	Currency *CurrencySummary
}

// CurrencySummary is the money rendering of a column's statistics.
type CurrencySummary struct {
	Min string
	Max string
	Avg string
}

// FormattingInput is everything the answer-formatting prompt shows the model.
type FormattingInput struct {
	Question    string
	FoundTables []string
	Columns     []string
	RowCount    int
	SampleRows  []map[string]any
	Summaries   []ColumnSummary
	PriorAnswer string
}

// FormattingSystem is the structural contract for the final answer.
const FormattingSystem = `You write the answer to a database question from query results.

Output markdown with exactly these sections, in this order:

## Answer
One or two sentences that answer the question directly.

## Results
An HTML table of the sample rows:
- Start with <table> and a <caption> describing the data.
- Header cells are <th scope="col">.
- Monetary columns are right-aligned (style="text-align:right").
- Use the column names as given.

## Notes
Short bullets: row count, whether the sample is partial, and anything the reader should know.

Rules:
- Use only the numbers provided. Never invent, estimate, round differently or alter a value.
- Format money as US dollars with thousands separators and no decimals, e.g. $1,235 or -$40. Use the currency renderings provided when present.
- Never include SQL text in the answer.
- If there are no rows, say so plainly and repeat the diagnostic if one is given.`

// FormattingUser renders the results context for the formatting call.
func FormattingUser(in FormattingInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Question: %s\n\n", strings.TrimSpace(in.Question))

	if len(in.FoundTables) > 0 {
		fmt.Fprintf(&b, "Tables: %s\n", strings.Join(in.FoundTables, ", "))
	}
	fmt.Fprintf(&b, "Columns: %s\n", strings.Join(in.Columns, ", "))
	fmt.Fprintf(&b, "Total rows: %d (showing %d)\n", in.RowCount, len(in.SampleRows))

	if in.PriorAnswer != "" {
		fmt.Fprintf(&b, "Diagnostic: %s\n", in.PriorAnswer)
	}

	if len(in.Summaries) > 0 {
		b.WriteString("\nColumn statistics:\n")
		for _, s := range in.Summaries {
			fmt.Fprintf(&b, "- %s: count=%d min=%s max=%s avg=%s", s.Column, s.Count, s.Min, s.Max, s.Avg)
			if c := s.Currency; c != nil {
				fmt.Fprintf(&b, " (currency: min=%s max=%s avg=%s)", c.Min, c.Max, c.Avg)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nSample rows (JSON):\n")
	b.WriteString(sampleJSON(in.SampleRows))
	b.WriteString("\n")

	return b.String()
}

func sampleJSON(rows []map[string]any) string {
	if len(rows) == 0 {
		return "[]"
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		// Unencodable driver values; fall back to Go's rendering.
		return fmt.Sprintf("%v", rows)
	}
	return string(data)
}
