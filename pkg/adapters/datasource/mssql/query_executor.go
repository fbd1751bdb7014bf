package mssql

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
)

// Query runs sqlQuery and reads at most limit rows (limit <= 0 means
// unbounded). The statement is not wrapped: SQL Server rejects ORDER BY inside
// derived tables without TOP. go-mssqldb has no read-only transactions, so
// read-only enforcement relies on the statement guard and database grants.
func (a *Adapter) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error) {
	rows, err := a.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columnNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	result := &datasource.QueryResult{
		Columns: columnNames,
		Rows:    make([]map[string]any, 0),
	}
	for rows.Next() {
		if limit > 0 && len(result.Rows) >= limit {
			result.Truncated = true
			break
		}

		values := make([]any, len(columnNames))
		valuePtrs := make([]any, len(columnNames))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]any, len(columnNames))
		for i, col := range columnNames {
			rowMap[col] = convertValue(values[i], columnTypes[i].DatabaseTypeName())
		}
		result.Rows = append(result.Rows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
