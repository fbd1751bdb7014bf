package models

import (
	"strings"

	"github.com/ekaya-inc/ekaya-ask/pkg/sql"
)

// SchemaColumn is one column of a base table as reported by the catalog.
type SchemaColumn struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
}

// SchemaTable is a base table with its columns in ordinal order.
type SchemaTable struct {
	SchemaName string         `json:"schema_name"`
	TableName  string         `json:"table_name"`
	Columns    []SchemaColumn `json:"columns"`
}

// Ref returns the table's allow-list reference.
func (t SchemaTable) Ref() sql.TableRef {
	return sql.TableRef{Schema: t.SchemaName, Name: t.TableName}
}

// SchemaCatalog is the set of base tables visible to one invocation, ordered by
// schema, table. It is built fresh for every question.
type SchemaCatalog struct {
	Tables []SchemaTable `json:"tables"`
}

// CatalogColumn is a flat catalog row: one column of one table.
type CatalogColumn struct {
	SchemaName string
	TableName  string
	ColumnName string
	DataType   string
}

// NewSchemaCatalog groups flat catalog rows by (schema, table). Rows must
// already be ordered by schema, table, ordinal position; grouping keeps that
// order.
func NewSchemaCatalog(rows []CatalogColumn) *SchemaCatalog {
	catalog := &SchemaCatalog{}
	index := make(map[string]int)

	for _, r := range rows {
		key := r.SchemaName + "\x00" + r.TableName
		i, ok := index[key]
		if !ok {
			i = len(catalog.Tables)
			index[key] = i
			catalog.Tables = append(catalog.Tables, SchemaTable{
				SchemaName: r.SchemaName,
				TableName:  r.TableName,
			})
		}
		catalog.Tables[i].Columns = append(catalog.Tables[i].Columns, SchemaColumn{
			Name:     r.ColumnName,
			DataType: r.DataType,
		})
	}

	return catalog
}

// AllowList derives the allow-list 1:1 from the catalog's tables.
func (c *SchemaCatalog) AllowList() *sql.AllowList {
	if c == nil {
		return sql.NewAllowList()
	}
	refs := make([]sql.TableRef, len(c.Tables))
	for i, t := range c.Tables {
		refs[i] = t.Ref()
	}
	return sql.NewAllowList(refs...)
}

// Text renders one line per table:
//
//	TABLE schema.table ( col1 type1, col2 type2 )
func (c *SchemaCatalog) Text() string {
	if c == nil {
		return ""
	}

	var b strings.Builder
	for i, t := range c.Tables {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("TABLE ")
		b.WriteString(t.SchemaName)
		b.WriteString(".")
		b.WriteString(t.TableName)
		b.WriteString(" ( ")
		for j, col := range t.Columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(col.Name)
			b.WriteString(" ")
			b.WriteString(col.DataType)
		}
		b.WriteString(" )")
	}
	return b.String()
}
