package services

import (
	"context"
	"strings"
	"sync"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-ask/pkg/models"
)

// fakeDatasource is an in-memory datasource for unit tests. Query answers
// come from QueryFunc; every call is recorded.
type fakeDatasource struct {
	Columns   []models.CatalogColumn
	ListErr   error
	QueryFunc func(sqlQuery string, limit int) (*datasource.QueryResult, error)

	mu          sync.Mutex
	listCalls   int
	queries     []string
	queryLimits []int
}

func newProductDatasource() *fakeDatasource {
	return &fakeDatasource{
		Columns: []models.CatalogColumn{
			{SchemaName: "public", TableName: "producto", ColumnName: "id", DataType: "integer"},
			{SchemaName: "public", TableName: "producto", ColumnName: "nombre", DataType: "text"},
			{SchemaName: "public", TableName: "producto", ColumnName: "precio", DataType: "numeric"},
		},
	}
}

func (f *fakeDatasource) ListColumns(ctx context.Context) ([]models.CatalogColumn, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Columns, nil
}

func (f *fakeDatasource) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, sqlQuery)
	f.queryLimits = append(f.queryLimits, limit)
	fn := f.QueryFunc
	f.mu.Unlock()

	if fn != nil {
		return fn(sqlQuery, limit)
	}
	return &datasource.QueryResult{Rows: []map[string]any{}}, nil
}

func (f *fakeDatasource) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (f *fakeDatasource) Ping(ctx context.Context) error { return nil }

func (f *fakeDatasource) Dialect() datasource.Dialect { return datasource.DialectPostgres }

func (f *fakeDatasource) Close() error { return nil }

func (f *fakeDatasource) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func (f *fakeDatasource) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

var _ datasource.Datasource = (*fakeDatasource)(nil)
