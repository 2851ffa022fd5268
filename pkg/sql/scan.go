// Package sql provides lexical analysis and safety validation for SQL text
// produced by untrusted sources (primarily LLM output).
package sql

import "strings"

// scanState tracks position within string literals, quoted identifiers and
// comments while walking raw SQL text.
type scanState int

const (
	stateNormal scanState = iota
	stateSingleQuote
	stateDoubleQuote
	stateBacktick
	stateLineComment
	stateBlockComment
)

// stepQuoted advances the scanner one byte while inside a quoted region.
// It returns the next state and the number of extra bytes consumed (for
// doubled-quote and backslash escapes). quote is the closing delimiter.
func stepQuoted(s string, i int, quote byte) (next scanState, skip int) {
	ch := s[i]
	switch {
	case ch == '\\' && quote == '\'' && i+1 < len(s):
		// Backslash escape inside a single-quoted literal (MySQL style).
		return stateForQuote(quote), 1
	case ch == quote:
		if i+1 < len(s) && s[i+1] == quote {
			// SQL standard doubled-quote escape: stay inside.
			return stateForQuote(quote), 1
		}
		return stateNormal, 0
	default:
		return stateForQuote(quote), 0
	}
}

func stateForQuote(quote byte) scanState {
	switch quote {
	case '\'':
		return stateSingleQuote
	case '"':
		return stateDoubleQuote
	default:
		return stateBacktick
	}
}

func quoteForState(state scanState) byte {
	switch state {
	case stateSingleQuote:
		return '\''
	case stateDoubleQuote:
		return '"'
	default:
		return '`'
	}
}

// stripComments removes line (--) and block (/* */) comments, replacing them
// with a single space so token boundaries are preserved. String literals and
// quoted identifiers are left untouched. The second return value is false when
// the text ends inside an unterminated string literal or block comment, which
// callers treat as unparseable.
func stripComments(sqlText string) (string, bool) {
	var out strings.Builder
	out.Grow(len(sqlText))

	state := stateNormal

	for i := 0; i < len(sqlText); i++ {
		ch := sqlText[i]
		var next byte
		if i+1 < len(sqlText) {
			next = sqlText[i+1]
		}

		switch state {
		case stateNormal:
			switch {
			case ch == '-' && next == '-':
				state = stateLineComment
				out.WriteByte(' ')
				i++
			case ch == '/' && next == '*':
				state = stateBlockComment
				out.WriteByte(' ')
				i++
			case ch == '\'' || ch == '"' || ch == '`':
				state = stateForQuote(ch)
				out.WriteByte(ch)
			default:
				out.WriteByte(ch)
			}
		case stateSingleQuote, stateDoubleQuote, stateBacktick:
			var skip int
			state, skip = stepQuoted(sqlText, i, quoteForState(state))
			out.WriteByte(ch)
			for s := 1; s <= skip; s++ {
				out.WriteByte(sqlText[i+s])
			}
			i += skip
		case stateLineComment:
			if ch == '\n' {
				state = stateNormal
				out.WriteByte('\n')
			}
		case stateBlockComment:
			if ch == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	switch state {
	case stateSingleQuote, stateDoubleQuote, stateBacktick, stateBlockComment:
		return out.String(), false
	default:
		return out.String(), true
	}
}

// splitStatements splits SQL text on semicolons that sit outside string
// literals and quoted identifiers. Comments must already be stripped. Empty
// fragments (from a trailing semicolon) are dropped.
func splitStatements(sqlText string) []string {
	var statements []string
	var current strings.Builder

	state := stateNormal
	for i := 0; i < len(sqlText); i++ {
		ch := sqlText[i]
		switch state {
		case stateNormal:
			switch ch {
			case ';':
				statements = appendNonEmpty(statements, current.String())
				current.Reset()
				continue
			case '\'', '"', '`':
				state = stateForQuote(ch)
			}
			current.WriteByte(ch)
		case stateSingleQuote, stateDoubleQuote, stateBacktick:
			var skip int
			state, skip = stepQuoted(sqlText, i, quoteForState(state))
			current.WriteByte(ch)
			for s := 1; s <= skip; s++ {
				current.WriteByte(sqlText[i+s])
			}
			i += skip
		}
	}

	return appendNonEmpty(statements, current.String())
}

// appendNonEmpty appends s to dst unless it is blank.
func appendNonEmpty(dst []string, s string) []string {
	if strings.TrimSpace(s) == "" {
		return dst
	}
	return append(dst, s)
}

// scanWords calls fn for every bare word (letters, digits, underscore) found
// outside string literals and quoted identifiers. Comments must already be
// stripped. pos is the byte offset of the word's first character.
func scanWords(sqlText string, fn func(word string, pos int)) {
	state := stateNormal
	wordStart := -1

	flush := func(end int) {
		if wordStart >= 0 {
			fn(sqlText[wordStart:end], wordStart)
			wordStart = -1
		}
	}

	for i := 0; i < len(sqlText); i++ {
		ch := sqlText[i]
		switch state {
		case stateNormal:
			switch {
			case ch == '\'' || ch == '"' || ch == '`':
				flush(i)
				state = stateForQuote(ch)
			case isWordByte(ch):
				if wordStart < 0 {
					wordStart = i
				}
			default:
				flush(i)
			}
		case stateSingleQuote, stateDoubleQuote, stateBacktick:
			var skip int
			state, skip = stepQuoted(sqlText, i, quoteForState(state))
			i += skip
		}
	}
	if state == stateNormal {
		flush(len(sqlText))
	}
}

func isWordByte(ch byte) bool {
	return ch == '_' || ch >= '0' && ch <= '9' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}

// splitSetOperations splits a single statement into its set-operation branches
// (UNION / UNION ALL / INTERSECT / EXCEPT) at parenthesis depth zero, outside
// string literals. Returns the statement unchanged (one branch) when no set
// operator is present.
func splitSetOperations(statement string) []string {
	type cut struct{ start, end int }
	var cuts []cut

	state := stateNormal
	depth := 0
	// Length-preserving uppercase: the byte offsets below index both
	// strings interchangeably, and Unicode case mapping can change byte
	// length (ſ -> S). The keywords being matched are ASCII anyway.
	upper := upperASCII(statement)

	for i := 0; i < len(statement); i++ {
		ch := statement[i]
		switch state {
		case stateNormal:
			switch ch {
			case '\'', '"', '`':
				state = stateForQuote(ch)
			case '(':
				depth++
			case ')':
				depth--
			default:
				if depth != 0 || !isWordByte(ch) || (i > 0 && isWordByte(statement[i-1])) {
					break
				}
				for _, op := range []string{"UNION", "INTERSECT", "EXCEPT"} {
					if !strings.HasPrefix(upper[i:], op) || isWordAt(upper, i+len(op)) {
						continue
					}
					end := i + len(op)
					// Swallow a following ALL or DISTINCT modifier.
					rest := upper[end:]
					trimmed := strings.TrimLeft(rest, " \t\n\r")
					for _, mod := range []string{"ALL", "DISTINCT"} {
						if strings.HasPrefix(trimmed, mod) && !isWordAt(trimmed, len(mod)) {
							end += len(rest) - len(trimmed) + len(mod)
							break
						}
					}
					cuts = append(cuts, cut{i, end})
					i = end - 1
					break
				}
			}
		case stateSingleQuote, stateDoubleQuote, stateBacktick:
			var skip int
			state, skip = stepQuoted(statement, i, quoteForState(state))
			i += skip
		}
	}

	if len(cuts) == 0 {
		return []string{statement}
	}

	var branches []string
	prev := 0
	for _, c := range cuts {
		branches = appendNonEmpty(branches, statement[prev:c.start])
		prev = c.end
	}
	return appendNonEmpty(branches, statement[prev:])
}

// upperASCII uppercases ASCII letters only, leaving every other byte
// (including multibyte UTF-8 sequences) untouched, so the result is
// always the same length as the input.
func upperASCII(s string) string {
	b := []byte(s)
	for i, ch := range b {
		if ch >= 'a' && ch <= 'z' {
			b[i] = ch - 'a' + 'A'
		}
	}
	return string(b)
}

// isWordAt reports whether the byte at offset i continues a word.
func isWordAt(s string, i int) bool {
	return i < len(s) && isWordByte(s[i])
}

// trimWrappingParens removes balanced outer parentheses from a set-operation
// branch, e.g. "(SELECT 1)" becomes "SELECT 1".
func trimWrappingParens(s string) string {
	for {
		t := strings.TrimSpace(s)
		if len(t) < 2 || t[0] != '(' || t[len(t)-1] != ')' {
			return t
		}
		depth := 0
		matched := true
		for i := 0; i < len(t); i++ {
			switch t[i] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 && i != len(t)-1 {
					matched = false
				}
			}
		}
		if !matched || depth != 0 {
			return t
		}
		s = t[1 : len(t)-1]
	}
}
