package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/models"
)

// listColumnsQuery reads base-table columns only; views, foreign tables and
// system schemas never reach the allow-list.
const listColumnsQuery = `
	SELECT
		c.table_schema,
		c.table_name,
		c.column_name,
		c.data_type
	FROM information_schema.columns c
	JOIN information_schema.tables t
	  ON t.table_schema = c.table_schema
	 AND t.table_name = c.table_name
	WHERE t.table_type = 'BASE TABLE'
	  AND c.table_schema NOT IN ('pg_catalog', 'information_schema')
	  AND c.table_schema NOT LIKE 'pg\_toast%'
	  AND c.table_schema NOT LIKE 'pg\_temp%'
	ORDER BY c.table_schema, c.table_name, c.ordinal_position
`

// ListColumns implements datasource.Datasource.
func (a *Adapter) ListColumns(ctx context.Context) ([]models.CatalogColumn, error) {
	conn, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, listColumnsQuery)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []models.CatalogColumn
	for rows.Next() {
		var c models.CatalogColumn
		if err := rows.Scan(&c.SchemaName, &c.TableName, &c.ColumnName, &c.DataType); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	a.logger.Debug("Listed catalog columns", zap.Int("columns", len(columns)))
	return columns, nil
}
