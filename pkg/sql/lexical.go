package sql

import (
	"regexp"
	"strings"
)

// JoinInfo describes one join clause found in a query.
type JoinInfo struct {
	LeftTable   string
	RightTable  string
	LeftColumn  string
	RightColumn string
	JoinType    string
	Condition   string
}

// Extraction is the set of references found in a SQL string. Tables and
// Columns preserve first-seen casing and are deduplicated case-insensitively;
// Joins preserve clause order.
type Extraction struct {
	Tables  []string
	Columns []string
	Joins   []JoinInfo
}

// HasTable reports whether the extraction contains the table, ignoring case.
func (e Extraction) HasTable(name string) bool {
	for _, t := range e.Tables {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}

var (
	// joinClausePattern captures join type, joined table and optional alias.
	// The identifier alternation accepts backticks, brackets, and dotted
	// names of up to three parts (project.dataset.table stays one token).
	joinClausePattern = regexp.MustCompile(`(?i)\b((?:inner\s+|left\s+(?:outer\s+)?|right\s+(?:outer\s+)?|full\s+(?:outer\s+)?|cross\s+)?join)\s+` +
		"(`[^`]+`" + `|\[[^\]]+\]|[a-zA-Z_][\w$]*(?:\.[a-zA-Z_][\w$]*){0,2})(?:\s+(?:as\s+)?([a-zA-Z_]\w*))?`)

	// fromClausePattern captures the table and optional alias after FROM.
	fromClausePattern = regexp.MustCompile(`(?i)\bfrom\s+` +
		"(`[^`]+`" + `|\[[^\]]+\]|[a-zA-Z_][\w$]*(?:\.[a-zA-Z_][\w$]*){0,2})(?:\s+(?:as\s+)?([a-zA-Z_]\w*))?`)

	// qualifiedPairPattern is the fallback scan for table.column = table.column
	// predicates inside join conditions.
	qualifiedPairPattern = regexp.MustCompile(`([a-zA-Z_][\w$]*(?:\.[a-zA-Z_][\w$]*)+)\s*=\s*([a-zA-Z_][\w$]*(?:\.[a-zA-Z_][\w$]*)+)`)

	// usingPattern captures the column list of a USING clause.
	usingPattern = regexp.MustCompile(`(?i)^\s*using\s*\(([^)]*)\)`)

	// onPattern matches the start of an ON condition.
	onPattern = regexp.MustCompile(`(?i)^\s*on\b`)

	// clauseBoundaryPattern marks where a join condition ends.
	clauseBoundaryPattern = regexp.MustCompile(`(?i)\b(join|inner|left|right|full|cross|where|group|order|limit|having|union|intersect|except|window|qualify)\b|\)`)

	// qualifiedIdentPattern finds dotted identifiers anywhere in a clause.
	qualifiedIdentPattern = regexp.MustCompile(`[a-zA-Z_][\w$]*(?:\.[a-zA-Z_][\w$]*)+`)

	// reservedAlias lists words the alias captures must never swallow.
	reservedAlias = map[string]struct{}{
		"on": {}, "using": {}, "where": {}, "join": {}, "inner": {}, "left": {},
		"right": {}, "full": {}, "cross": {}, "outer": {}, "group": {}, "order": {},
		"limit": {}, "having": {}, "union": {}, "intersect": {}, "except": {},
		"as": {}, "select": {}, "set": {}, "and": {}, "or": {}, "not": {},
	}
)

// stringSet deduplicates identifiers case-insensitively while preserving
// first-seen casing and insertion order.
type stringSet struct {
	order []string
	seen  map[string]struct{}
}

func newStringSet() *stringSet {
	return &stringSet{seen: make(map[string]struct{})}
}

func (s *stringSet) add(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	key := strings.ToLower(v)
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.order = append(s.order, v)
}

func (s *stringSet) contains(v string) bool {
	_, ok := s.seen[strings.ToLower(v)]
	return ok
}

// tableRef is one FROM/JOIN table occurrence with its optional alias.
type tableRef struct {
	name  string
	alias string
	pos   int
}

// ExtractReferences scans raw SQL text and extracts the referenced tables,
// columns, and join predicates. It is purely lexical: it never errors, and on
// text it cannot make sense of it degrades to empty results rather than
// guessing. Identifiers classified as columns or functions are excluded from
// the table set.
func ExtractReferences(sqlText string) Extraction {
	clean, _ := stripComments(sqlText)

	refs, aliases := collectTableRefs(clean)

	tables := newStringSet()
	for _, ref := range refs {
		switch ClassifyIdentifier(ref.name, clean) {
		case KindColumn, KindFunction:
			continue
		}
		tables.add(ref.name)
	}

	columns := newStringSet()
	joins := collectJoins(clean, refs, aliases, tables, columns)
	collectSelectColumns(clean, aliases, tables, columns)
	collectQualifiedColumns(clean, aliases, tables, columns)

	return Extraction{
		Tables:  tables.order,
		Columns: columns.order,
		Joins:   joins,
	}
}

// collectTableRefs gathers every FROM/JOIN table occurrence in clause order
// plus an alias lookup (lowercased alias -> table name).
func collectTableRefs(clean string) ([]tableRef, map[string]string) {
	var refs []tableRef
	aliases := make(map[string]string)

	record := func(m []int, clean string, nameIdx, aliasIdx int) {
		name := stripQuoting(clean[m[nameIdx]:m[nameIdx+1]])
		if name == "" {
			return
		}
		ref := tableRef{name: name, pos: m[0]}
		if m[aliasIdx] >= 0 {
			alias := clean[m[aliasIdx]:m[aliasIdx+1]]
			if _, reserved := reservedAlias[strings.ToLower(alias)]; !reserved {
				ref.alias = alias
				aliases[strings.ToLower(alias)] = name
			}
		}
		refs = append(refs, ref)
	}

	for _, m := range fromClausePattern.FindAllStringSubmatchIndex(clean, -1) {
		record(m, clean, 2, 4)
	}
	for _, m := range joinClausePattern.FindAllStringSubmatchIndex(clean, -1) {
		record(m, clean, 4, 6)
	}

	// Restore clause order: FROM and JOIN matches were gathered separately.
	for i := 1; i < len(refs); i++ {
		for j := i; j > 0 && refs[j].pos < refs[j-1].pos; j-- {
			refs[j], refs[j-1] = refs[j-1], refs[j]
		}
	}

	return refs, aliases
}

// collectJoins parses each JOIN clause into a JoinInfo, deriving left/right
// tables structurally where possible and falling back to the qualified-pair
// regex scan of the condition text.
func collectJoins(clean string, refs []tableRef, aliases map[string]string, tables, columns *stringSet) []JoinInfo {
	var joins []JoinInfo

	matches := joinClausePattern.FindAllStringSubmatchIndex(clean, -1)
	for _, m := range matches {
		joinType := strings.ToUpper(strings.Join(strings.Fields(clean[m[2]:m[3]]), " "))
		rightTable := stripQuoting(clean[m[4]:m[5]])
		leftTable := precedingTable(refs, m[0])

		info := JoinInfo{
			LeftTable:  leftTable,
			RightTable: rightTable,
			JoinType:   joinType,
		}

		// The optional alias capture can swallow a reserved word (ON, USING);
		// the condition scan must then restart before it.
		restStart := m[1]
		if m[6] >= 0 {
			if _, reserved := reservedAlias[strings.ToLower(clean[m[6]:m[7]])]; reserved {
				restStart = m[6]
			}
		}
		rest := clean[restStart:]
		if um := usingPattern.FindStringSubmatch(rest); um != nil {
			info.Condition = strings.TrimSpace(usingPattern.FindString(rest))
			for _, col := range strings.Split(um[1], ",") {
				col = stripQuoting(col)
				if col != "" {
					if info.LeftColumn == "" {
						info.LeftColumn = col
						info.RightColumn = col
					}
					columns.add(col)
				}
			}
			joins = append(joins, info)
			continue
		}

		if loc := onPattern.FindStringIndex(rest); loc != nil {
			cond := rest[loc[1]:]
			if b := clauseBoundaryPattern.FindStringIndex(cond); b != nil {
				cond = cond[:b[0]]
			}
			info.Condition = strings.TrimSpace(cond)
			applyConditionPair(&info, aliases, tables, columns)
		}

		joins = append(joins, info)
	}

	return joins
}

// precedingTable returns the name of the last table reference that appears
// before the byte offset pos, which is the structural left side of a join.
func precedingTable(refs []tableRef, pos int) string {
	name := ""
	for _, ref := range refs {
		if ref.pos >= pos {
			break
		}
		name = ref.name
	}
	return name
}

// applyConditionPair parses the first table.column = table.column predicate in
// the join condition and fills the column fields, reassigning left/right when
// the predicate order is swapped relative to the join clause.
func applyConditionPair(info *JoinInfo, aliases map[string]string, tables, columns *stringSet) {
	pair := qualifiedPairPattern.FindStringSubmatch(info.Condition)
	if pair == nil {
		return
	}

	leftTable, leftCol := splitQualified(pair[1], aliases, tables)
	rightTable, rightCol := splitQualified(pair[2], aliases, tables)

	// The predicate may name the sides in either order.
	if leftTable != "" && strings.EqualFold(leftTable, info.RightTable) &&
		rightTable != "" && !strings.EqualFold(rightTable, info.RightTable) {
		leftTable, rightTable = rightTable, leftTable
		leftCol, rightCol = rightCol, leftCol
	}

	if leftTable != "" {
		info.LeftTable = leftTable
	}
	if rightTable != "" {
		info.RightTable = rightTable
	}
	info.LeftColumn = leftCol
	info.RightColumn = rightCol

	columns.add(leftCol)
	columns.add(rightCol)
}

// splitQualified splits a dotted identifier into (table, column). The longest
// dotted prefix matching a known table or alias wins, so a.b.c.id resolves to
// table a.b.c, column id. Without a match the last segment is the column and
// the rest is taken as the table.
func splitQualified(ident string, aliases map[string]string, tables *stringSet) (string, string) {
	ident = stripQuoting(ident)
	parts := strings.Split(ident, ".")
	if len(parts) < 2 {
		return "", ident
	}

	for cut := len(parts) - 1; cut >= 1; cut-- {
		prefix := strings.Join(parts[:cut], ".")
		if tables.contains(prefix) {
			return prefix, strings.Join(parts[cut:], ".")
		}
		if table, ok := aliases[strings.ToLower(prefix)]; ok {
			return table, strings.Join(parts[cut:], ".")
		}
	}

	// Unresolved: assume the final segment is the column.
	return strings.Join(parts[:len(parts)-1], "."), parts[len(parts)-1]
}

// selectListPattern isolates the text between SELECT and its FROM.
var selectListPattern = regexp.MustCompile(`(?is)\bselect\s+(?:distinct\s+)?(.*?)\s+from\b`)

// collectSelectColumns extracts column names from the SELECT list, skipping
// "*" and function calls, following the teacher parser's comma split that
// respects parenthesis depth.
func collectSelectColumns(clean string, aliases map[string]string, tables, columns *stringSet) {
	m := selectListPattern.FindStringSubmatch(clean)
	if m == nil {
		return
	}

	for _, expr := range splitRespectingParens(m[1]) {
		expr = strings.TrimSpace(expr)
		if expr == "" || strings.HasPrefix(expr, "*") {
			continue
		}

		// Drop an AS alias so we record the underlying column, not the label.
		if as := regexp.MustCompile(`(?i)\s+as\s+\w+\s*$`).FindStringIndex(expr); as != nil {
			expr = strings.TrimSpace(expr[:as[0]])
		}

		if strings.ContainsAny(expr, "(") {
			// Function or expression: pull out any qualified identifiers it uses.
			for _, q := range qualifiedIdentPattern.FindAllString(expr, -1) {
				if _, col := splitQualified(q, aliases, tables); col != "" {
					columns.add(col)
				}
			}
			continue
		}

		if strings.Contains(expr, ".") {
			if _, col := splitQualified(expr, aliases, tables); col != "" && col != "*" {
				columns.add(col)
			}
			continue
		}

		if isBareIdentifier(expr) {
			if ClassifyIdentifier(expr, clean) != KindFunction {
				columns.add(expr)
			}
		}
	}
}

// collectQualifiedColumns records every dotted identifier whose prefix
// resolves to a known table or alias, wherever it appears in the query.
func collectQualifiedColumns(clean string, aliases map[string]string, tables, columns *stringSet) {
	for _, q := range qualifiedIdentPattern.FindAllString(clean, -1) {
		if tables.contains(q) {
			continue
		}
		table, col := splitQualified(q, aliases, tables)
		if table == "" || col == "" || col == "*" {
			continue
		}
		if tables.contains(table) {
			columns.add(col)
		}
	}
}

// splitRespectingParens splits a SELECT column list on commas at parenthesis
// depth zero.
func splitRespectingParens(list string) []string {
	var parts []string
	var current strings.Builder
	depth := 0

	for _, ch := range list {
		switch ch {
		case '(':
			depth++
			current.WriteRune(ch)
		case ')':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				parts = append(parts, current.String())
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

var bareIdentifierPattern = regexp.MustCompile(`^[a-zA-Z_][\w$]*$`)

func isBareIdentifier(s string) bool {
	return bareIdentifierPattern.MatchString(stripQuoting(s))
}
