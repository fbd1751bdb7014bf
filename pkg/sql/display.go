package sql

import (
	"regexp"
	"strings"
)

// CleanForDisplay strips "schema"."table". prefixes from column references
// when the query touches exactly one table. The FROM target keeps its
// qualifier. The result is for display only and is never executed.
func CleanForDisplay(sqlQuery string, foundTables []string) string {
	if len(foundTables) != 1 {
		return sqlQuery
	}
	schema, table, ok := strings.Cut(foundTables[0], ".")
	if !ok {
		return sqlQuery
	}

	pattern := regexp.MustCompile(`(?i)(^|[^\w"])"?` + regexp.QuoteMeta(schema) + `"?\."?` + regexp.QuoteMeta(table) + `"?\.`)

	// Match on the masked text so literals and comments are never rewritten;
	// offsets line up with the original.
	masked := maskLiterals(sqlQuery)
	matches := pattern.FindAllStringSubmatchIndex(masked, -1)
	if len(matches) == 0 {
		return sqlQuery
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		// m[3] is the end of the leading boundary group; m[1] the end of the prefix.
		b.WriteString(sqlQuery[last:m[3]])
		last = m[1]
	}
	b.WriteString(sqlQuery[last:])
	return b.String()
}
