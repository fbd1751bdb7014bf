package sql

import (
	"sort"
	"strings"
)

// Qualify rewrites single-part FROM/JOIN targets into "schema"."table" form
// when the bare name maps to exactly one allowed table. Already qualified,
// ambiguous, unknown and CTE targets are left as written. Keywords inside
// string literals and comments are not considered.
func Qualify(sqlQuery string, allowed *AllowList) string {
	if allowed.Len() == 0 || sqlQuery == "" {
		return sqlQuery
	}

	candidates := make(map[string][]TableRef)
	for _, t := range allowed.Tables() {
		key := strings.ToLower(t.Name)
		candidates[key] = append(candidates[key], t)
	}

	a := analyze(sqlQuery)

	type rewrite struct {
		start, end int
		text       string
	}
	var rewrites []rewrite
	for _, t := range a.bareTargets() {
		matches := candidates[strings.ToLower(t.parts[0])]
		if len(matches) != 1 {
			continue
		}
		rewrites = append(rewrites, rewrite{start: t.start, end: t.end, text: matches[0].Quoted()})
	}
	if len(rewrites) == 0 {
		return sqlQuery
	}

	// Apply back to front so earlier offsets stay valid.
	sort.Slice(rewrites, func(i, j int) bool { return rewrites[i].start > rewrites[j].start })

	out := sqlQuery
	for _, r := range rewrites {
		out = out[:r.start] + r.text + out[r.end:]
	}
	return out
}
