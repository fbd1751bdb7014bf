package sql

import (
	"sort"
	"strings"
)

// TableRef identifies a base table by schema and name, in catalog case.
type TableRef struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

// Qualified returns "schema.table" in catalog case.
func (t TableRef) Qualified() string {
	return t.Schema + "." + t.Name
}

// Key returns the lower-cased qualified name used for membership checks.
func (t TableRef) Key() string {
	return strings.ToLower(t.Qualified())
}

// Quoted returns the "schema"."table" form safe to embed in SQL.
func (t TableRef) Quoted() string {
	return quoteIdent(t.Schema) + "." + quoteIdent(t.Name)
}

// AllowList is the set of tables generated SQL may reference.
// Matching is case-insensitive; the catalog's original case is kept for
// rendering and quoting. A nil *AllowList behaves as an empty list.
type AllowList struct {
	tables []TableRef
	index  map[string]int
}

// NewAllowList builds an allow-list, dropping duplicates (case-insensitive)
// while keeping first-seen order.
func NewAllowList(tables ...TableRef) *AllowList {
	a := &AllowList{index: make(map[string]int, len(tables))}
	for _, t := range tables {
		if t.Schema == "" || t.Name == "" {
			continue
		}
		if _, exists := a.index[t.Key()]; exists {
			continue
		}
		a.index[t.Key()] = len(a.tables)
		a.tables = append(a.tables, t)
	}
	return a
}

// ParseAllowList builds an allow-list from "schema.table" strings.
// Entries without a schema part are ignored.
func ParseAllowList(names ...string) *AllowList {
	refs := make([]TableRef, 0, len(names))
	for _, n := range names {
		schema, table, ok := strings.Cut(strings.TrimSpace(n), ".")
		if !ok {
			continue
		}
		refs = append(refs, TableRef{Schema: schema, Name: table})
	}
	return NewAllowList(refs...)
}

// Len returns the number of allowed tables.
func (a *AllowList) Len() int {
	if a == nil {
		return 0
	}
	return len(a.tables)
}

// Tables returns a copy of the allowed tables in insertion order.
func (a *AllowList) Tables() []TableRef {
	if a == nil {
		return nil
	}
	out := make([]TableRef, len(a.tables))
	copy(out, a.tables)
	return out
}

// Contains reports whether "schema.table" is allowed (case-insensitive).
func (a *AllowList) Contains(qualified string) bool {
	_, ok := a.Lookup(qualified)
	return ok
}

// Lookup returns the catalog-case table for "schema.table" (case-insensitive).
func (a *AllowList) Lookup(qualified string) (TableRef, bool) {
	if a == nil {
		return TableRef{}, false
	}
	i, ok := a.index[strings.ToLower(qualified)]
	if !ok {
		return TableRef{}, false
	}
	return a.tables[i], true
}

// ResolveBare returns every allowed table whose qualified name ends with
// ".name". More than one result means the bare name is ambiguous.
func (a *AllowList) ResolveBare(name string) []TableRef {
	if a == nil || name == "" {
		return nil
	}
	suffix := "." + strings.ToLower(name)
	var matches []TableRef
	for _, t := range a.tables {
		if strings.HasSuffix(t.Key(), suffix) {
			matches = append(matches, t)
		}
	}
	return matches
}

// Qualified returns the allowed tables as sorted "schema.table" strings.
func (a *AllowList) Qualified() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.tables))
	for i, t := range a.tables {
		out[i] = t.Qualified()
	}
	sort.Strings(out)
	return out
}

// String renders the allow-list as a comma separated list.
func (a *AllowList) String() string {
	return strings.Join(a.Qualified(), ", ")
}
