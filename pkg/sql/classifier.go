package sql

import (
	"regexp"
	"strings"
)

// IdentifierKind is the lexical role of an identifier within a query.
type IdentifierKind int

const (
	KindUnknown IdentifierKind = iota
	KindTable
	KindColumn
	KindFunction
)

// String returns the kind name for logging and test output.
func (k IdentifierKind) String() string {
	switch k {
	case KindTable:
		return "TABLE"
	case KindColumn:
		return "COLUMN"
	case KindFunction:
		return "FUNCTION"
	default:
		return "UNKNOWN"
	}
}

// knownFunctions lists SQL function names that commonly appear bare (without
// parentheses in the text we see, e.g. inside backtick-stripped fragments) and
// must never be mistaken for tables. Lowercase.
var knownFunctions = map[string]struct{}{
	"count": {}, "sum": {}, "avg": {}, "min": {}, "max": {},
	"coalesce": {}, "nullif": {}, "ifnull": {}, "if": {}, "cast": {}, "safe_cast": {},
	"concat": {}, "substr": {}, "substring": {}, "lower": {}, "upper": {}, "trim": {},
	"length": {}, "round": {}, "abs": {}, "format": {},
	"current_date": {}, "current_timestamp": {}, "current_time": {}, "now": {},
	"date": {}, "timestamp": {}, "datetime": {}, "date_trunc": {}, "date_add": {},
	"date_sub": {}, "date_diff": {}, "parse_date": {}, "format_date": {}, "extract": {},
	"array_agg": {}, "string_agg": {}, "array_length": {}, "unnest": {},
	"row_number": {}, "rank": {}, "dense_rank": {}, "lag": {}, "lead": {}, "ntile": {},
	"regexp_extract": {}, "regexp_contains": {}, "regexp_replace": {},
	"json_extract": {}, "json_value": {}, "struct": {}, "generate_uuid": {},
}

// ClassifyIdentifier decides whether a bare dotted/bracketed token found in
// SQL text is a table reference, a column reference, or a function call.
//
// Heuristics, in priority order:
//  1. immediately followed by "(" anywhere it occurs: FUNCTION
//  2. appears directly after FROM/JOIN: TABLE
//  3. dotted, and the prefix matches a table identified elsewhere in the same
//     query: COLUMN
//  4. matches a known SQL function list: FUNCTION
//  5. otherwise: UNKNOWN
//
// Callers doing table whitelist checks must treat UNKNOWN conservatively as
// COLUMN: misreading a column as a table can make scope checks pass or fail
// against a table the query never touches.
func ClassifyIdentifier(identifier, query string) IdentifierKind {
	identifier = strings.Trim(identifier, "`\"[] \t\n\r")
	if identifier == "" {
		return KindUnknown
	}

	quoted := regexp.QuoteMeta(identifier)

	// 1. Function call: identifier directly followed by an open paren.
	if matched, _ := regexp.MatchString(`(?i)(^|[^\w.])`+quoted+`\s*\(`, query); matched {
		return KindFunction
	}

	// 2. Table position: identifier directly after FROM or any JOIN variant,
	// allowing intervening whitespace and backticks.
	tablePos := regexp.MustCompile(`(?i)\b(from|join)\s+` + "`?" + quoted + "`?" + `([^\w.]|$)`)
	if tablePos.MatchString(query) {
		return KindTable
	}

	// 3. Dotted name whose prefix is a table mentioned elsewhere: table.column.
	if dot := strings.LastIndex(identifier, "."); dot > 0 {
		prefix := identifier[:dot]
		for _, table := range tablesInQuery(query) {
			if strings.EqualFold(table, prefix) {
				return KindColumn
			}
		}
	}

	// 4. Known function names.
	if _, ok := knownFunctions[strings.ToLower(identifier)]; ok {
		return KindFunction
	}

	return KindUnknown
}

// tablePattern captures the identifier following FROM or any JOIN variant.
// Accepts backtick-quoted names and dotted names of up to three parts so a
// fully qualified project.dataset.table stays a single token.
var tablePattern = regexp.MustCompile(`(?i)\b(?:from|join)\s+` +
	"(`[^`]+`" + `|\[[^\]]+\]|[a-zA-Z_][\w$]*(?:\.[a-zA-Z_][\w$]*){0,2})`)

// tablesInQuery returns the raw (quoting-stripped) identifiers that follow
// FROM/JOIN keywords. Purely positional; used by the classifier and as the
// seed set for the lexical extractor.
func tablesInQuery(query string) []string {
	var tables []string
	for _, m := range tablePattern.FindAllStringSubmatch(query, -1) {
		name := stripQuoting(m[1])
		if name != "" {
			tables = append(tables, name)
		}
	}
	return tables
}

// stripQuoting removes backtick and bracket quoting from an identifier.
func stripQuoting(identifier string) string {
	return strings.Trim(strings.TrimSpace(identifier), "`[]")
}
