package services

import (
	"context"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-ask/pkg/audit"
	"github.com/ekaya-inc/ekaya-ask/pkg/llm"
	"github.com/ekaya-inc/ekaya-ask/pkg/logging"
	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/prompts"
	"github.com/ekaya-inc/ekaya-ask/pkg/sql"
)

// SQLGenerator asks the completion service for SQL and decides whether the
// result may be executed. The completion output is untrusted: it is sanitized,
// checked as a single read-only statement, qualified, and validated against
// the allow-list before it is handed on.
type SQLGenerator struct {
	completer llm.Completer
	dialect   datasource.Dialect
	auditor   *audit.SecurityAuditor
	logger    *zap.Logger
}

// NewSQLGenerator creates a generator. completer may be nil when no
// completion service is configured.
func NewSQLGenerator(completer llm.Completer, dialect datasource.Dialect, auditor *audit.SecurityAuditor, logger *zap.Logger) *SQLGenerator {
	return &SQLGenerator{
		completer: completer,
		dialect:   dialect,
		auditor:   auditor,
		logger:    logger.Named("sql_generator"),
	}
}

// Generate turns question into SQL. Every failure is recoverable and reported
// through the result's Answer and Error fields.
func (g *SQLGenerator) Generate(ctx context.Context, question, schemaText string, allowed *sql.AllowList) models.GenerationResult {
	if allowed.Len() == 0 {
		return models.GenerationResult{
			Answer: "Cannot generate SQL: the database has no tables that can be queried.",
			Error:  models.ErrorKindUnknownTables,
		}
	}

	if g.completer == nil {
		return models.GenerationResult{
			Answer: "SQL generation is unavailable: no completion service is configured.",
			Error:  models.ErrorKindCompletionUnavailable,
		}
	}

	raw, err := g.completer.Complete(ctx,
		prompts.GenerationSystem(g.dialect, allowed),
		prompts.GenerationUser(schemaText, question))
	if err != nil {
		g.logger.Error("SQL generation failed",
			zap.String("model", g.completer.GetModel()),
			zap.String("error_type", string(llm.GetErrorType(err))),
			zap.String("error", logging.SanitizeError(err)))
		return models.GenerationResult{
			Answer: "SQL generation failed: " + logging.SanitizeError(err),
			Error:  models.ErrorKindCompletionUnavailable,
		}
	}

	query := sql.Sanitize(raw)
	if query == "" || sql.IsFallback(query) {
		return models.GenerationResult{
			SQL:    query,
			Answer: "The question cannot be answered from the available tables.",
			Error:  models.ErrorKindNotAnswerable,
		}
	}

	if err := sql.CheckStatement(query); err != nil {
		g.auditor.LogBlockedSQL(ctx, audit.BlockedSQLDetails{Stage: "generate", Reason: err.Error(), SQL: query})
		return models.GenerationResult{
			SQL:    query,
			Answer: "Cannot run the generated SQL: " + err.Error(),
			Error:  models.ErrorKindUnsafeStatement,
		}
	}

	query = sql.Qualify(query, allowed)
	validation := sql.ValidateTables(query, allowed)
	if !validation.OK {
		answer := unknownTablesAnswer(validation, allowed)
		g.auditor.LogBlockedSQL(ctx, audit.BlockedSQLDetails{
			Stage:         "generate",
			Reason:        answer,
			SQL:           query,
			UnknownTables: validation.UnknownTables,
		})
		return models.GenerationResult{
			SQL:    query,
			Answer: answer,
			Error:  models.ErrorKindUnknownTables,
		}
	}

	g.logger.Debug("Generated SQL",
		zap.String("sql", logging.SanitizeQuery(query)),
		zap.Strings("tables", validation.FoundTables),
		zap.Int("qualified_refs", validation.QualifiedRefs))

	return models.GenerationResult{
		SQL:      query,
		SQLClean: sql.CleanForDisplay(query, validation.FoundTables),
	}
}

// unknownTablesAnswer explains why a validation failed, listing the allowed
// tables and singular/plural near misses.
func unknownTablesAnswer(v sql.ValidationResult, allowed *sql.AllowList) string {
	var b strings.Builder
	b.WriteString("Cannot run the generated SQL: ")
	if len(v.UnknownTables) == 0 {
		b.WriteString("no qualified table referenced.")
	} else {
		b.WriteString("unknown tables: ")
		b.WriteString(strings.Join(v.UnknownTables, ", "))
		b.WriteString(".")
	}

	b.WriteString(" Allowed tables: ")
	b.WriteString(allowed.String())
	b.WriteString(".")

	if suggestions := suggestTables(v.UnknownTables, allowed); len(suggestions) > 0 {
		b.WriteString(" Did you mean ")
		b.WriteString(strings.Join(suggestions, ", "))
		b.WriteString("?")
	}
	return b.String()
}

// suggestTables maps unknown names to allowed tables whose bare name is the
// singular or plural form of the unknown one ("productos" -> public.producto),
// and ambiguous bare names to all of their candidates.
func suggestTables(unknown []string, allowed *sql.AllowList) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(refs []sql.TableRef) {
		for _, ref := range refs {
			q := ref.Qualified()
			if !seen[q] {
				seen[q] = true
				out = append(out, q)
			}
		}
	}

	for _, name := range unknown {
		bare := name
		if i := strings.LastIndex(name, "."); i >= 0 {
			bare = name[i+1:]
		}
		// Ambiguous bare names: offer every qualified candidate.
		if matches := allowed.ResolveBare(bare); len(matches) > 1 {
			add(matches)
		}
		for _, form := range []string{inflection.Singular(bare), inflection.Plural(bare)} {
			if strings.EqualFold(form, bare) {
				continue
			}
			add(allowed.ResolveBare(form))
		}
	}
	return out
}
