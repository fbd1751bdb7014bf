package mssql

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/models"
)

const listColumnsQuery = `
	SET NOCOUNT ON;
	SELECT
	    c.TABLE_SCHEMA,
	    c.TABLE_NAME,
	    c.COLUMN_NAME,
	    c.DATA_TYPE
	FROM INFORMATION_SCHEMA.COLUMNS c
	INNER JOIN INFORMATION_SCHEMA.TABLES t
	    ON t.TABLE_SCHEMA = c.TABLE_SCHEMA
	   AND t.TABLE_NAME = c.TABLE_NAME
	WHERE t.TABLE_TYPE = 'BASE TABLE'
	  AND c.TABLE_SCHEMA NOT IN ('sys', 'INFORMATION_SCHEMA')
	  AND OBJECTPROPERTY(OBJECT_ID(QUOTENAME(c.TABLE_SCHEMA) + '.' + QUOTENAME(c.TABLE_NAME)), 'IsMSShipped') = 0
	ORDER BY c.TABLE_SCHEMA, c.TABLE_NAME, c.ORDINAL_POSITION
	`

// ListColumns implements datasource.Datasource.
func (a *Adapter) ListColumns(ctx context.Context) ([]models.CatalogColumn, error) {
	rows, err := a.db.QueryContext(ctx, listColumnsQuery)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []models.CatalogColumn
	for rows.Next() {
		var c models.CatalogColumn
		if err := rows.Scan(&c.SchemaName, &c.TableName, &c.ColumnName, &c.DataType); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}

	a.logger.Debug("Listed catalog columns", zap.Int("columns", len(columns)))
	return columns, nil
}
