// Package prompts builds the system and user prompts sent to the completion
// service for SQL generation and answer formatting.
package prompts

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-ask/pkg/sql"
)

// GenerationSystem returns the system prompt that constrains SQL generation to
// a single read-only query over the allowed tables.
func GenerationSystem(dialect datasource.Dialect, allowed *sql.AllowList) string {
	var b strings.Builder

	b.WriteString("You translate questions into one SQL query for a ")
	b.WriteString(dialect.DisplayName())
	b.WriteString(" database.\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- Write a single read-only SELECT statement. Never modify data or schema.\n")
	b.WriteString("- Double-quote every identifier exactly as it is written in the schema, keeping its case: \"schema\".\"table\" and \"column\".\n")
	b.WriteString("- Every FROM and JOIN target must be fully qualified as \"schema\".\"table\".\n")
	b.WriteString("- Only use these tables: ")
	if allowed.Len() == 0 {
		b.WriteString("(none)")
	} else {
		b.WriteString(strings.Join(quotedTables(allowed), ", "))
	}
	b.WriteString("\n")
	b.WriteString("- Aggregations and rankings must have an explicit ORDER BY and a row limit")
	b.WriteString(limitHint(dialect))
	b.WriteString(".\n")
	b.WriteString("- Do not add filters the question does not ask for.\n")
	b.WriteString("- Reply with the SQL only. No explanations, no markdown, no code fences.\n")
	fmt.Fprintf(&b, "- If the question cannot be answered from these tables, reply exactly: %s\n", sql.FallbackSQL)

	return b.String()
}

// GenerationUser returns the user prompt: the catalog text followed by the
// question.
func GenerationUser(schemaText, question string) string {
	var b strings.Builder
	b.WriteString("Schema:\n")
	if schemaText == "" {
		b.WriteString("(no tables)")
	} else {
		b.WriteString(schemaText)
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nSQL:")
	return b.String()
}

func quotedTables(allowed *sql.AllowList) []string {
	tables := allowed.Tables()
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = t.Quoted()
	}
	return out
}

func limitHint(dialect datasource.Dialect) string {
	if dialect == datasource.DialectSQLServer {
		return " (use SELECT TOP n, SQL Server has no LIMIT)"
	}
	return " (use LIMIT n)"
}
