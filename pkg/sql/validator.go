package sql

import (
	"fmt"
	"strings"
)

// RuleID identifies a safety rule that a query can violate.
type RuleID string

const (
	// RuleStatementType fires when a statement (or set-operation branch) does
	// not start with SELECT or WITH.
	RuleStatementType RuleID = "statement_type"
	// RuleMultiStatement fires when more than one statement is present.
	RuleMultiStatement RuleID = "multi_statement"
	// RuleForbiddenKeyword fires when a DDL/DML keyword appears outside
	// string literals and comments.
	RuleForbiddenKeyword RuleID = "forbidden_keyword"
	// RuleDatasetScope fires when a referenced table resolves outside the
	// allowed dataset scope.
	RuleDatasetScope RuleID = "dataset_scope"
	// RuleUnparseable fires when the input cannot be scanned at all
	// (unterminated literal or comment, or no statement). Unparseable input
	// is always a DENY, never a silent ALLOW.
	RuleUnparseable RuleID = "unparseable"
)

// Violation is one triggered rule with a human-readable detail.
type Violation struct {
	Rule   RuleID `json:"rule"`
	Detail string `json:"detail"`
}

// Verdict is the outcome of safety validation. It is immutable once produced.
type Verdict struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
	Message    string      `json:"message"`
}

// Rules returns the ordered list of violated rule IDs.
func (v Verdict) Rules() []RuleID {
	rules := make([]RuleID, len(v.Violations))
	for i, viol := range v.Violations {
		rules[i] = viol.Rule
	}
	return rules
}

// forbiddenKeywords are DDL/DML keywords that must not appear as SQL keywords
// anywhere outside string literals and comments. Statement-leading checks
// catch the common case; this token scan additionally catches data-modifying
// CTEs and keywords smuggled mid-statement.
var forbiddenKeywords = map[string]struct{}{
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "DROP": {}, "ALTER": {},
	"CREATE": {}, "TRUNCATE": {}, "MERGE": {}, "GRANT": {}, "REVOKE": {},
	"CALL": {}, "EXEC": {}, "EXECUTE": {},
}

// allowedLeadingKeywords are the only statement-leading keywords permitted.
var allowedLeadingKeywords = map[string]struct{}{
	"SELECT": {}, "WITH": {},
}

// Validate decides ALLOW/DENY for a full query string. All rules are evaluated
// and every violation is collected, so the caller sees every problem at once
// rather than fixing them one by one.
//
// allowedScope optionally restricts table references to the named datasets
// (e.g. "analytics" or "project.dataset"); nil or empty disables the scope
// rule. Validate performs no I/O and never panics on malformed input:
// anything it cannot scan is a DENY with RuleUnparseable.
func Validate(sqlText string, allowedScope []string) Verdict {
	var violations []Violation

	clean, ok := stripComments(sqlText)
	if !ok {
		return deny([]Violation{{
			Rule:   RuleUnparseable,
			Detail: "unterminated string literal or comment",
		}})
	}

	statements := splitStatements(clean)
	if len(statements) == 0 {
		return deny([]Violation{{
			Rule:   RuleUnparseable,
			Detail: "no SQL statement found",
		}})
	}

	if len(statements) > 1 {
		violations = append(violations, Violation{
			Rule:   RuleMultiStatement,
			Detail: fmt.Sprintf("%d statements found; only a single statement is permitted", len(statements)),
		})
	}

	// Statement-type rule, applied to every statement and to every
	// set-operation branch within it. UNION/INTERSECT/EXCEPT themselves are
	// permitted provided each branch independently leads with SELECT or WITH.
	for _, statement := range statements {
		for _, branch := range splitSetOperations(statement) {
			branch = trimWrappingParens(branch)
			keyword := leadingKeyword(branch)
			if keyword == "" {
				violations = append(violations, Violation{
					Rule:   RuleUnparseable,
					Detail: "statement has no leading keyword",
				})
				continue
			}
			if _, ok := allowedLeadingKeywords[keyword]; !ok {
				violations = append(violations, Violation{
					Rule:   RuleStatementType,
					Detail: fmt.Sprintf("statement type %s is not allowed; only SELECT and WITH are permitted", keyword),
				})
			}
		}
	}

	// Forbidden-keyword rule: token scan outside literals. A keyword inside a
	// quoted string ('DROP TABLE' as a value) must not trigger this.
	seen := map[string]struct{}{}
	scanWords(clean, func(word string, _ int) {
		upper := strings.ToUpper(word)
		if _, forbidden := forbiddenKeywords[upper]; !forbidden {
			return
		}
		if _, dup := seen[upper]; dup {
			return
		}
		seen[upper] = struct{}{}
		violations = append(violations, Violation{
			Rule:   RuleForbiddenKeyword,
			Detail: fmt.Sprintf("forbidden keyword %s", upper),
		})
	})

	// Dataset-scope rule, only when a scope was supplied.
	if len(allowedScope) > 0 {
		extraction := ExtractReferences(clean)
		for _, table := range extraction.Tables {
			if !tableInScope(table, allowedScope) {
				violations = append(violations, Violation{
					Rule:   RuleDatasetScope,
					Detail: fmt.Sprintf("table %s is outside the allowed dataset scope", table),
				})
			}
		}
	}

	if len(violations) > 0 {
		return deny(violations)
	}

	return Verdict{
		Valid:   true,
		Message: "SQL validation passed",
	}
}

// leadingKeyword returns the first word of a statement, uppercased.
func leadingKeyword(statement string) string {
	fields := strings.Fields(statement)
	if len(fields) == 0 {
		return ""
	}
	word := fields[0]
	// A branch like "(SELECT..." can survive paren trimming when the
	// parentheses are unbalanced; peel leading parens off the keyword.
	word = strings.TrimLeft(word, "(")
	end := 0
	for end < len(word) && isWordByte(word[end]) {
		end++
	}
	return strings.ToUpper(word[:end])
}

// tableInScope reports whether table falls within any allowed dataset.
// A scope entry matches its own tables ("analytics" covers "analytics.users")
// and fully-qualified forms ("project.analytics" covers
// "project.analytics.users"). An unqualified table never matches a scope, so
// unresolvable references fail closed.
func tableInScope(table string, allowedScope []string) bool {
	lower := strings.ToLower(table)
	for _, scope := range allowedScope {
		s := strings.ToLower(strings.TrimSpace(scope))
		if s == "" {
			continue
		}
		if lower == s || strings.HasPrefix(lower, s+".") {
			return true
		}
	}
	return false
}

func deny(violations []Violation) Verdict {
	details := make([]string, len(violations))
	for i, v := range violations {
		details[i] = v.Detail
	}
	return Verdict{
		Valid:      false,
		Violations: violations,
		Message:    "SQL validation failed: " + strings.Join(details, "; "),
	}
}
