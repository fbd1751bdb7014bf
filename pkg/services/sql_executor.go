package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-ask/pkg/audit"
	"github.com/ekaya-inc/ekaya-ask/pkg/logging"
	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/sql"
)

// SQLExecutor runs generated SQL after checking it again. It never trusts a
// validation done at generation time: the statement and table guards run on
// exactly the text about to be executed.
type SQLExecutor struct {
	ds      datasource.Datasource
	maxRows int
	auditor *audit.SecurityAuditor
	logger  *zap.Logger
}

// NewSQLExecutor creates an executor reading at most maxRows rows per query
// (maxRows <= 0 means unbounded).
func NewSQLExecutor(ds datasource.Datasource, maxRows int, auditor *audit.SecurityAuditor, logger *zap.Logger) *SQLExecutor {
	return &SQLExecutor{
		ds:      ds,
		maxRows: maxRows,
		auditor: auditor,
		logger:  logger.Named("sql_executor"),
	}
}

// Execute runs query. Blocked queries never reach the database. Database
// errors and empty results become diagnostic answers; Execute itself never
// fails.
func (e *SQLExecutor) Execute(ctx context.Context, query string, allowed *sql.AllowList) models.ExecutionResult {
	empty := models.ExecutionResult{Rows: []map[string]any{}}

	if err := sql.CheckStatement(query); err != nil {
		e.auditor.LogBlockedSQL(ctx, audit.BlockedSQLDetails{Stage: "execute", Reason: err.Error(), SQL: query})
		empty.Answer = "Blocked execution: " + err.Error()
		empty.Error = models.ErrorKindUnsafeStatement
		return empty
	}

	validation := sql.ValidateTables(query, allowed)
	if !validation.OK {
		reason := "no qualified table referenced"
		if len(validation.UnknownTables) > 0 {
			reason = "unknown tables: " + strings.Join(validation.UnknownTables, ", ")
		}
		e.auditor.LogBlockedSQL(ctx, audit.BlockedSQLDetails{
			Stage:         "execute",
			Reason:        reason,
			SQL:           query,
			UnknownTables: validation.UnknownTables,
		})
		empty.Answer = "Blocked execution: " + reason
		empty.Error = models.ErrorKindUnknownTables
		return empty
	}

	e.auditor.LogSQLExecuted(ctx, query, validation.FoundTables)

	result, err := e.ds.Query(ctx, query, e.maxRows)
	if err != nil {
		e.logger.Error("Query failed",
			zap.String("sql", logging.SanitizeQuery(query)),
			zap.String("error", logging.SanitizeError(err)))
		empty.Answer = "DB error: " + logging.SanitizeError(err)
		empty.Error = models.ErrorKindDatabaseError
		return empty
	}

	if result.Truncated {
		e.logger.Info("Result truncated at row cap", zap.Int("max_rows", e.maxRows))
	}

	out := models.ExecutionResult{
		Columns: result.Columns,
		Rows:    result.Rows,
	}
	if out.Rows == nil {
		out.Rows = []map[string]any{}
	}
	if len(out.Rows) == 0 {
		out.Answer = e.emptyResultDiagnostic(ctx, validation.FoundTables[0], allowed)
	}
	return out
}

// emptyResultDiagnostic counts the rows of the first referenced table so an
// empty answer can be told apart from a wrong query.
func (e *SQLExecutor) emptyResultDiagnostic(ctx context.Context, table string, allowed *sql.AllowList) string {
	ref, ok := allowed.Lookup(table)
	if !ok {
		return "No results."
	}

	countSQL := fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s.%s",
		e.ds.QuoteIdentifier(ref.Schema), e.ds.QuoteIdentifier(ref.Name))

	result, err := e.ds.Query(ctx, countSQL, 1)
	if err != nil || len(result.Rows) == 0 || len(result.Columns) == 0 {
		if err != nil {
			e.logger.Warn("Diagnostic count failed",
				zap.String("table", ref.Qualified()),
				zap.String("error", logging.SanitizeError(err)))
		}
		return "No results."
	}

	count := result.Rows[0][result.Columns[0]]
	return fmt.Sprintf("No results. Diagnostics: table %s has %v rows", ref.Qualified(), count)
}
