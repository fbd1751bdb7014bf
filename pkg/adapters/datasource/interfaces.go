// Package datasource defines the read-only database capability the question
// pipeline needs and a registry of adapters implementing it.
package datasource

import (
	"context"

	"github.com/ekaya-inc/ekaya-ask/pkg/models"
)

// Dialect names the SQL dialect a datasource speaks.
type Dialect string

const (
	DialectPostgres  Dialect = "postgres"
	DialectSQLServer Dialect = "mssql"
)

// DisplayName returns the name used in prompts and logs.
func (d Dialect) DisplayName() string {
	switch d {
	case DialectPostgres:
		return "PostgreSQL"
	case DialectSQLServer:
		return "Microsoft SQL Server"
	default:
		return string(d)
	}
}

// QueryResult contains the rows of a capped SELECT.
type QueryResult struct {
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	Truncated bool             `json:"truncated"` // true if more rows existed beyond the cap
}

// Datasource is a questioned database.
// Each implementation owns its connections and must be closed when done.
type Datasource interface {
	// ListColumns returns every column of every base table visible to the
	// connected user, ordered by schema, table, ordinal position. Views and
	// system schemas are excluded.
	ListColumns(ctx context.Context) ([]models.CatalogColumn, error)

	// Query runs a read-only statement and returns at most limit rows.
	// The cap is applied while reading rows; the statement is not rewritten.
	Query(ctx context.Context, sqlQuery string, limit int) (*QueryResult, error)

	// QuoteIdentifier quotes one identifier in the datasource's dialect.
	QuoteIdentifier(name string) string

	// Ping verifies the database is reachable with valid credentials.
	Ping(ctx context.Context) error

	// Dialect reports the SQL dialect.
	Dialect() Dialect

	// Close releases the database connections.
	Close() error
}
