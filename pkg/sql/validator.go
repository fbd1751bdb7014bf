// Package sql provides lexical SQL analysis: table extraction and
// qualification against an allow-list, statement guards, and sanitizing of
// generated SQL.
package sql

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyStatement indicates there is no SQL to check.
	ErrEmptyStatement = errors.New("empty SQL statement")

	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

	// ErrNotReadOnly indicates the statement could modify data or lock rows.
	ErrNotReadOnly = errors.New("only read-only SELECT statements are allowed")
)

// StatementType represents the type of SQL statement.
type StatementType string

const (
	StatementSelect  StatementType = "SELECT"
	StatementModify  StatementType = "MODIFY"  // INSERT, UPDATE, DELETE, MERGE, CALL
	StatementDDL     StatementType = "DDL"     // CREATE, ALTER, DROP, TRUNCATE, GRANT
	StatementUnknown StatementType = "UNKNOWN" // unrecognized, or a data-modifying CTE
)

// modifyingCTEPattern matches CTEs that contain data-modifying operations.
// Example: WITH deleted AS (DELETE FROM ...) SELECT * FROM deleted
var modifyingCTEPattern = regexp.MustCompile(`(?i)\bAS\s*(NOT\s+)?(MATERIALIZED\s*)?\(\s*(INSERT|UPDATE|DELETE|MERGE)\b`)

// DetectStatementType classifies a statement by its first keyword. Literals
// and comments are ignored.
func DetectStatementType(sqlQuery string) StatementType {
	masked := maskLiterals(sqlQuery)
	normalized := strings.ToUpper(strings.TrimLeft(masked, " \t\r\n("))

	switch {
	case hasKeywordPrefix(normalized, "SELECT"):
		return StatementSelect

	case hasKeywordPrefix(normalized, "WITH"):
		if modifyingCTEPattern.MatchString(masked) {
			return StatementUnknown
		}
		return StatementSelect

	case hasKeywordPrefix(normalized, "INSERT"),
		hasKeywordPrefix(normalized, "UPDATE"),
		hasKeywordPrefix(normalized, "DELETE"),
		hasKeywordPrefix(normalized, "MERGE"),
		hasKeywordPrefix(normalized, "CALL"),
		hasKeywordPrefix(normalized, "EXEC"),
		hasKeywordPrefix(normalized, "EXECUTE"):
		return StatementModify

	case hasKeywordPrefix(normalized, "CREATE"),
		hasKeywordPrefix(normalized, "ALTER"),
		hasKeywordPrefix(normalized, "DROP"),
		hasKeywordPrefix(normalized, "TRUNCATE"),
		hasKeywordPrefix(normalized, "GRANT"),
		hasKeywordPrefix(normalized, "REVOKE"):
		return StatementDDL

	default:
		return StatementUnknown
	}
}

func hasKeywordPrefix(upper, kw string) bool {
	if !strings.HasPrefix(upper, kw) {
		return false
	}
	return len(upper) == len(kw) || !isIdentByte(upper[len(kw)])
}

// CheckStatement enforces that sqlQuery is a single read-only statement.
//
// The checks run in order:
//  1. Strip a trailing semicolon and whitespace
//  2. Reject any remaining semicolon outside literals and comments
//  3. Require SELECT or a WITH whose CTEs do not modify data
//  4. Reject SELECT ... INTO and row locking clauses (FOR UPDATE / FOR SHARE)
func CheckStatement(sqlQuery string) error {
	normalized := stripTrailingSemicolon(strings.TrimSpace(sqlQuery))
	if normalized == "" {
		return ErrEmptyStatement
	}

	if hasSemicolonOutsideStrings(normalized) {
		return ErrMultipleStatements
	}

	if DetectStatementType(normalized) != StatementSelect {
		return ErrNotReadOnly
	}

	tokens := tokenize(maskLiterals(normalized))
	if hasTopLevelInto(tokens) || hasLockingClause(tokens) {
		return ErrNotReadOnly
	}

	return nil
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals and comments.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	return strings.ContainsRune(maskLiterals(sqlQuery), ';')
}

// hasTopLevelInto reports a SELECT ... INTO target outside parentheses, which
// creates a table in both PostgreSQL and SQL Server.
func hasTopLevelInto(tokens []token) bool {
	depth := 0
	for _, t := range tokens {
		switch {
		case t.kind == tokLParen:
			depth++
		case t.kind == tokRParen:
			depth--
		case depth == 0 && t.isKeyword("into"):
			return true
		}
	}
	return false
}

// hasLockingClause reports FOR UPDATE, FOR NO KEY UPDATE, FOR SHARE and
// FOR KEY SHARE.
func hasLockingClause(tokens []token) bool {
	for i := 0; i+1 < len(tokens); i++ {
		if !tokens[i].isKeyword("for") {
			continue
		}
		next := tokens[i+1]
		if next.isKeyword("update") || next.isKeyword("share") || next.isKeyword("no") || next.isKeyword("key") {
			return true
		}
	}
	return false
}

// stripTrailingSemicolon removes a trailing semicolon and any whitespace after it.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")

	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimSuffix(sqlQuery, ";")
		sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	}

	return sqlQuery
}
