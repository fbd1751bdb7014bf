package sql

import (
	"strings"
)

// ValidationResult describes which tables a query touches and whether all of
// them are allowed.
type ValidationResult struct {
	OK            bool     `json:"ok"`
	UnknownTables []string `json:"unknown_tables"`
	NoneFound     bool     `json:"none_found"`
	FoundTables   []string `json:"found_tables"`
	// QualifiedRefs counts dotted schema.table candidates found anywhere in the
	// text. Zero means the FROM/JOIN fallback decided the result.
	QualifiedRefs int `json:"qualified_refs"`
}

// tableTarget is an identifier chain that follows FROM, JOIN or a comma in a
// FROM list.
type tableTarget struct {
	parts []string
	start int
	end   int
}

// identChain is a dotted identifier chain of two or more parts.
type identChain struct {
	parts []string
	start int
}

// sqlAnalysis holds the lexical facts the validator and qualifier need.
type sqlAnalysis struct {
	targets  []tableTarget
	chains   []identChain
	aliases  map[string]bool
	cteNames map[string]bool
	// unparsed holds FROM items that could not be read as a name.
	unparsed []string
}

// functions whose argument syntax uses FROM without naming a table.
var fromArgumentFunctions = map[string]bool{
	"extract":   true,
	"substring": true,
	"trim":      true,
	"position":  true,
	"overlay":   true,
}

// words that end a FROM item and therefore can never be an alias.
var nonAliasKeywords = map[string]bool{
	"where": true, "join": true, "inner": true, "left": true, "right": true,
	"full": true, "outer": true, "cross": true, "natural": true, "on": true,
	"using": true, "group": true, "order": true, "limit": true, "offset": true,
	"fetch": true, "having": true, "window": true, "union": true, "intersect": true,
	"except": true, "for": true, "returning": true, "tablesample": true,
	"lateral": true, "select": true, "from": true, "as": true, "into": true,
	"values": true, "set": true, "with": true, "option": true,
}

// analyze masks literals, tokenizes, and collects FROM/JOIN targets, dotted
// chains, aliases, and CTE names.
func analyze(sqlQuery string) *sqlAnalysis {
	tokens := tokenize(maskLiterals(sqlQuery))
	a := &sqlAnalysis{
		aliases:  make(map[string]bool),
		cteNames: make(map[string]bool),
	}

	for _, t := range tokens {
		// A bracketed name holding parentheses may be a subscript expression.
		if t.kind == tokQuotedIdent && strings.HasPrefix(t.text, "[") && strings.ContainsAny(t.text, "()") {
			a.unparsed = append(a.unparsed, strings.ToLower(t.text))
		}
	}

	a.collectCTENames(tokens)
	a.collectTargets(tokens)
	a.collectChains(tokens)

	return a
}

// collectCTENames records names declared by WITH [RECURSIVE] name [(cols)] AS (...).
func (a *sqlAnalysis) collectCTENames(tokens []token) {
	for i := 0; i < len(tokens); i++ {
		if !tokens[i].isKeyword("with") {
			continue
		}
		j := i + 1
		if j < len(tokens) && tokens[j].isKeyword("recursive") {
			j++
		}
		for j < len(tokens) && tokens[j].isIdent() {
			name := tokens[j].name()
			j++
			if j < len(tokens) && tokens[j].kind == tokLParen {
				j = skipParens(tokens, j)
			}
			if j >= len(tokens) || !tokens[j].isKeyword("as") {
				break
			}
			j++
			if j < len(tokens) && tokens[j].isKeyword("not") {
				j++
			}
			if j < len(tokens) && tokens[j].isKeyword("materialized") {
				j++
			}
			if j >= len(tokens) || tokens[j].kind != tokLParen {
				break
			}
			a.cteNames[strings.ToLower(name)] = true
			j = skipParens(tokens, j)
			if j < len(tokens) && tokens[j].kind == tokComma {
				j++
				continue
			}
			break
		}
	}
}

// collectTargets finds the table references that follow FROM, JOIN, APPLY and
// TABLE.
func (a *sqlAnalysis) collectTargets(tokens []token) {
	// openers tracks the identifier preceding each open parenthesis, so a FROM
	// inside EXTRACT(... FROM ...) can be ignored.
	var openers []string

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case t.kind == tokLParen:
			opener := ""
			if i > 0 && tokens[i-1].kind == tokIdent {
				opener = strings.ToLower(tokens[i-1].text)
			}
			openers = append(openers, opener)
		case t.kind == tokRParen:
			if len(openers) > 0 {
				openers = openers[:len(openers)-1]
			}
		case t.isKeyword("from"):
			if i > 0 && tokens[i-1].isKeyword("distinct") {
				continue // IS [NOT] DISTINCT FROM
			}
			if len(openers) > 0 && fromArgumentFunctions[openers[len(openers)-1]] {
				continue
			}
			a.parseFromClause(tokens, i+1)
		case t.isKeyword("join"):
			a.parseFromClause(tokens, i+1)
		case t.isKeyword("apply") && i > 0 && (tokens[i-1].isKeyword("cross") || tokens[i-1].isKeyword("outer")):
			a.parseFromClause(tokens, i+1)
		case t.isKeyword("table") && (i == 0 || tokens[i-1].kind != tokDot):
			// TABLE name is shorthand for SELECT * FROM name.
			a.parseFromItem(tokens, i+1)
		}
	}
}

// joinModifiers may precede JOIN or APPLY.
var joinModifiers = map[string]bool{
	"inner": true, "left": true, "right": true, "full": true,
	"outer": true, "cross": true, "natural": true,
}

// clauseKeywords end a FROM clause.
var clauseKeywords = map[string]bool{
	"where": true, "group": true, "order": true, "limit": true, "offset": true,
	"fetch": true, "having": true, "window": true, "union": true, "intersect": true,
	"except": true, "for": true, "returning": true, "option": true, "into": true,
}

// parseFromClause reads a FROM list starting at tokens[j]: items separated by
// commas or joins, up to a clause keyword or a closing parenthesis at the same
// depth. It returns the index where the clause ended.
func (a *sqlAnalysis) parseFromClause(tokens []token, j int) int {
	j = a.parseFromItem(tokens, j)
	for j < len(tokens) {
		t := tokens[j]
		switch {
		case t.kind == tokComma:
			j = a.parseFromItem(tokens, j+1)
		case t.kind == tokIdent && (joinModifiers[strings.ToLower(t.text)] || t.isKeyword("join")):
			for j < len(tokens) && tokens[j].kind == tokIdent && joinModifiers[strings.ToLower(tokens[j].text)] {
				j++
			}
			if j >= len(tokens) || !(tokens[j].isKeyword("join") || tokens[j].isKeyword("apply")) {
				return j
			}
			j = a.parseFromItem(tokens, j+1)
		case t.isKeyword("on"):
			j = skipJoinCondition(tokens, j+1)
		case t.isKeyword("using"):
			j++
			if j < len(tokens) && tokens[j].kind == tokLParen {
				j = skipParens(tokens, j)
			}
		case t.isKeyword("tablesample"):
			// TABLESAMPLE method (args) [REPEATABLE (seed)]
			j += 2
			if j < len(tokens) && tokens[j].kind == tokLParen {
				j = skipParens(tokens, j)
			}
			if j < len(tokens) && tokens[j].isKeyword("repeatable") {
				j++
				if j < len(tokens) && tokens[j].kind == tokLParen {
					j = skipParens(tokens, j)
				}
			}
		case t.isKeyword("with") && j+1 < len(tokens) && tokens[j+1].kind == tokLParen:
			j = skipParens(tokens, j+1) // table hint such as WITH (NOLOCK)
		default:
			return j
		}
	}
	return j
}

// skipJoinCondition skips an ON expression and returns the index of the token
// that ends it: a comma, a join, a clause keyword or a closing parenthesis.
func skipJoinCondition(tokens []token, j int) int {
	for j < len(tokens) {
		t := tokens[j]
		switch {
		case t.kind == tokLParen:
			j = skipParens(tokens, j)
			continue
		case t.kind == tokOther && t.text == "[":
			j = skipBrackets(tokens, j)
			continue
		case t.kind == tokComma, t.kind == tokRParen, t.kind == tokSemicolon:
			return j
		case t.kind == tokIdent:
			kw := strings.ToLower(t.text)
			if kw == "join" || kw == "apply" || joinModifiers[kw] || clauseKeywords[kw] {
				return j
			}
		}
		j++
	}
	return j
}

// parseFromItem reads one FROM item and its alias at tokens[j] and returns the
// index after them. An item that is not a name, a function call or a
// parenthesized group is recorded as unparsed so validation fails closed.
func (a *sqlAnalysis) parseFromItem(tokens []token, j int) int {
	for j < len(tokens) && (tokens[j].isKeyword("only") || tokens[j].isKeyword("lateral")) {
		j++
	}
	if j >= len(tokens) {
		return j
	}

	if tokens[j].kind == tokLParen {
		end := skipParens(tokens, j)
		if !startsSubquery(tokens, j+1) {
			// Parenthesized join: (a JOIN b ON ...) AS x
			a.parseFromClause(tokens, j+1)
		}
		// A subquery's own FROM clauses are scanned separately.
		return a.parseAlias(tokens, end)
	}

	if !tokens[j].isIdent() || (tokens[j].kind == tokIdent && nonAliasKeywords[strings.ToLower(tokens[j].text)]) {
		a.unparsed = append(a.unparsed, adjacentText(tokens, j))
		return j
	}

	first := tokens[j]
	target := tableTarget{
		parts: []string{first.name()},
		start: first.start,
		end:   first.end,
	}
	j++
	for j+1 < len(tokens) && tokens[j].kind == tokDot && tokens[j+1].isIdent() {
		target.parts = append(target.parts, tokens[j+1].name())
		target.end = tokens[j+1].end
		j += 2
	}

	if j < len(tokens) && tokens[j].kind == tokLParen {
		// Set-returning function such as unnest(...) or generate_series(...).
		j = skipParens(tokens, j)
	} else {
		a.addTarget(target)
	}

	return a.parseAlias(tokens, j)
}

// adjacentText joins tokens[j] with the tokens written directly after it,
// turning "@", "t" back into "@t".
func adjacentText(tokens []token, j int) string {
	var b strings.Builder
	b.WriteString(tokens[j].text)
	for k := j + 1; k < len(tokens) && tokens[k].start == tokens[k-1].end; k++ {
		if tokens[k].kind == tokComma || tokens[k].kind == tokLParen || tokens[k].kind == tokRParen || tokens[k].kind == tokSemicolon {
			break
		}
		b.WriteString(tokens[k].text)
	}
	return strings.ToLower(b.String())
}

// addTarget records t once; JOIN items are reached both from their FROM
// clause and from the JOIN keyword itself.
func (a *sqlAnalysis) addTarget(t tableTarget) {
	for _, existing := range a.targets {
		if existing.start == t.start {
			return
		}
	}
	a.targets = append(a.targets, t)
}

// startsSubquery reports whether tokens[j] begins a query rather than a
// FROM list.
func startsSubquery(tokens []token, j int) bool {
	if j >= len(tokens) {
		return true
	}
	t := tokens[j]
	return t.isKeyword("select") || t.isKeyword("with") || t.isKeyword("values") || t.isKeyword("table")
}

// parseAlias records an optional [AS] alias [(column, ...)] at tokens[j] and
// returns the index after it.
func (a *sqlAnalysis) parseAlias(tokens []token, j int) int {
	if j < len(tokens) && tokens[j].isKeyword("as") {
		j++
	}
	if j >= len(tokens) || !tokens[j].isIdent() {
		return j
	}
	if tokens[j].kind == tokIdent && nonAliasKeywords[strings.ToLower(tokens[j].text)] {
		return j
	}
	a.aliases[strings.ToLower(tokens[j].name())] = true
	j++
	if j < len(tokens) && tokens[j].kind == tokLParen {
		j = skipParens(tokens, j) // column alias list
	}
	return j
}

// collectChains records every dotted identifier chain with two or more parts
// that is not a function call.
func (a *sqlAnalysis) collectChains(tokens []token) {
	for i := 0; i < len(tokens); i++ {
		if !tokens[i].isIdent() {
			continue
		}
		if i > 0 && tokens[i-1].kind == tokDot {
			continue
		}
		chain := identChain{parts: []string{tokens[i].name()}, start: tokens[i].start}
		j := i + 1
		for j+1 < len(tokens) && tokens[j].kind == tokDot && tokens[j+1].isIdent() {
			chain.parts = append(chain.parts, tokens[j+1].name())
			j += 2
		}
		if len(chain.parts) < 2 {
			continue
		}
		if j < len(tokens) && tokens[j].kind == tokLParen {
			i = j - 1
			continue
		}
		a.chains = append(a.chains, chain)
		i = j - 1
	}
}

// qualifiedCandidates returns the lower-cased "schema.table" candidates from
// dotted chains. FROM/JOIN targets always count; other chains whose first part
// names an alias, a CTE, or a FROM item are column references and are skipped.
func (a *sqlAnalysis) qualifiedCandidates() []string {
	targetStarts := make(map[int]bool, len(a.targets))
	fromItems := make(map[string]bool, len(a.targets))
	for _, t := range a.targets {
		targetStarts[t.start] = true
		fromItems[strings.ToLower(t.parts[len(t.parts)-1])] = true
	}

	var out []string
	for _, c := range a.chains {
		first := strings.ToLower(c.parts[0])
		if !targetStarts[c.start] && (a.aliases[first] || a.cteNames[first] || fromItems[first]) {
			continue
		}
		out = append(out, first+"."+strings.ToLower(c.parts[1]))
	}
	return out
}

// bareTargets returns single-part FROM/JOIN targets that are not CTE names.
func (a *sqlAnalysis) bareTargets() []tableTarget {
	var out []tableTarget
	for _, t := range a.targets {
		if len(t.parts) != 1 {
			continue
		}
		if a.cteNames[strings.ToLower(t.parts[0])] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// skipBrackets returns the index just past the [subscript] opening at tokens[j].
func skipBrackets(tokens []token, j int) int {
	depth := 0
	for ; j < len(tokens); j++ {
		if tokens[j].kind != tokOther {
			continue
		}
		switch tokens[j].text {
		case "[":
			depth++
		case "]":
			depth--
			if depth == 0 {
				return j + 1
			}
		}
	}
	return j
}

// skipParens returns the index just past the parenthesis group opening at tokens[j].
func skipParens(tokens []token, j int) int {
	depth := 0
	for ; j < len(tokens); j++ {
		switch tokens[j].kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
			if depth == 0 {
				return j + 1
			}
		}
	}
	return j
}

// ExtractQualifiedRefs returns the distinct lower-cased "schema.table"
// candidates found anywhere in the SQL text (phase one of validation).
func ExtractQualifiedRefs(sqlQuery string) []string {
	return newOrderedSet(analyze(sqlQuery).qualifiedCandidates()...).values()
}

// ValidateTables extracts the tables referenced by sqlQuery and checks them
// against the allow-list.
//
// Extraction is lexical and best effort:
//  1. Every dotted identifier chain anywhere in the text (SELECT, WHERE, ORDER BY
//     included) yields a schema.table candidate.
//  2. Single-part FROM/JOIN targets resolve by suffix match to exactly one
//     allowed table. When step 1 found nothing this is the only evidence; it is
//     also applied otherwise so a bare comma-joined table cannot go unchecked.
//  3. A FROM item that cannot be read as a name is reported as unknown.
//
// String literals and comments are masked first, so table-like text inside them
// is ignored.
func ValidateTables(sqlQuery string, allowed *AllowList) ValidationResult {
	a := analyze(sqlQuery)

	found := newOrderedSet()
	unknown := newOrderedSet()

	candidates := a.qualifiedCandidates()
	for _, c := range candidates {
		if allowed.Contains(c) {
			found.add(c)
		} else {
			unknown.add(c)
		}
	}

	for _, t := range a.bareTargets() {
		matches := allowed.ResolveBare(t.parts[0])
		if len(matches) == 1 {
			found.add(matches[0].Key())
			continue
		}
		unknown.add(strings.ToLower(t.parts[0]))
	}
	for _, item := range a.unparsed {
		unknown.add(item)
	}

	result := ValidationResult{
		UnknownTables: unknown.values(),
		FoundTables:   found.values(),
		QualifiedRefs: len(candidates),
	}
	result.NoneFound = len(result.FoundTables) == 0
	result.OK = len(result.UnknownTables) == 0 && !result.NoneFound
	return result
}

// orderedSet keeps insertion order and ignores duplicates.
type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newOrderedSet(items ...string) *orderedSet {
	s := &orderedSet{seen: make(map[string]bool)}
	for _, it := range items {
		s.add(it)
	}
	return s
}

func (s *orderedSet) add(item string) {
	if s.seen[item] {
		return
	}
	s.seen[item] = true
	s.items = append(s.items, item)
}

func (s *orderedSet) values() []string {
	if len(s.items) == 0 {
		return []string{}
	}
	return s.items
}
