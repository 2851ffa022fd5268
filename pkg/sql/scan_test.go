package sql

import (
	"reflect"
	"testing"
)

func TestStripComments(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{
			name:     "no comments",
			input:    "SELECT 1",
			expected: "SELECT 1",
			ok:       true,
		},
		{
			name:     "line comment",
			input:    "SELECT 1 -- trailing note",
			expected: "SELECT 1  ",
			ok:       true,
		},
		{
			name:     "block comment",
			input:    "SELECT /* hidden */ 1",
			expected: "SELECT   1",
			ok:       true,
		},
		{
			name:     "comment marker inside string survives",
			input:    "SELECT '--not a comment' FROM t",
			expected: "SELECT '--not a comment' FROM t",
			ok:       true,
		},
		{
			name:     "block marker inside string survives",
			input:    "SELECT '/*keep*/' FROM t",
			expected: "SELECT '/*keep*/' FROM t",
			ok:       true,
		},
		{
			name:     "unterminated block comment",
			input:    "SELECT 1 /* oops",
			expected: "SELECT 1  ",
			ok:       false,
		},
		{
			name:     "unterminated string",
			input:    "SELECT 'oops",
			expected: "SELECT 'oops",
			ok:       false,
		},
		{
			name:     "doubled quote escape",
			input:    "SELECT 'O''Brien' -- note",
			expected: "SELECT 'O''Brien'  ",
			ok:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := stripComments(tt.input)
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
			if ok != tt.ok {
				t.Errorf("ok: got %v, want %v", ok, tt.ok)
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{name: "single", input: "SELECT 1", expected: 1},
		{name: "trailing semicolon", input: "SELECT 1;", expected: 1},
		{name: "two statements", input: "SELECT 1; SELECT 2", expected: 2},
		{name: "semicolon in string", input: "SELECT 'a;b'", expected: 1},
		{name: "semicolon in quoted identifier", input: `SELECT "a;b"`, expected: 1},
		{name: "doubled quote then semicolon in string", input: "SELECT 'it''s;here'", expected: 1},
		{name: "empty", input: "", expected: 0},
		{name: "only semicolons", input: ";;;", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitStatements(tt.input)
			if len(got) != tt.expected {
				t.Errorf("got %d statements %v, want %d", len(got), got, tt.expected)
			}
		})
	}
}

func TestScanWords_SkipsLiterals(t *testing.T) {
	var words []string
	scanWords("SELECT 'DROP TABLE' AS note FROM t", func(word string, _ int) {
		words = append(words, word)
	})

	want := []string{"SELECT", "AS", "note", "FROM", "t"}
	if !reflect.DeepEqual(words, want) {
		t.Errorf("got %v, want %v", words, want)
	}
}

func TestSplitSetOperations(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		branches int
	}{
		{name: "no set op", input: "SELECT 1", branches: 1},
		{name: "union", input: "SELECT a FROM t UNION SELECT b FROM u", branches: 2},
		{name: "union all", input: "SELECT a FROM t UNION ALL SELECT b FROM u", branches: 2},
		{name: "three branches", input: "SELECT 1 UNION SELECT 2 EXCEPT SELECT 3", branches: 3},
		{name: "union inside string", input: "SELECT 'a UNION b'", branches: 1},
		{name: "union inside subquery not split", input: "SELECT * FROM (SELECT 1 UNION SELECT 2) q", branches: 1},
		{name: "union as identifier substring", input: "SELECT reunion FROM parties", branches: 1},
		{name: "multibyte identifier", input: "SELECT ſſ x", branches: 1},
		{name: "multibyte before union", input: "SELECT ſ FROM t UNION SELECT s FROM u", branches: 2},
		{name: "ligature in select list", input: "SELECT ﬀ, b FROM t INTERSECT SELECT c, d FROM u", branches: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSetOperations(tt.input)
			if len(got) != tt.branches {
				t.Errorf("got %d branches %v, want %d", len(got), got, tt.branches)
			}
		})
	}
}

func TestTrimWrappingParens(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "(SELECT 1)", expected: "SELECT 1"},
		{input: "((SELECT 1))", expected: "SELECT 1"},
		{input: "SELECT 1", expected: "SELECT 1"},
		{input: "(SELECT 1) x (SELECT 2)", expected: "(SELECT 1) x (SELECT 2)"},
		{input: "", expected: ""},
	}

	for _, tt := range tests {
		got := trimWrappingParens(tt.input)
		if got != tt.expected {
			t.Errorf("trimWrappingParens(%q): got %q, want %q", tt.input, got, tt.expected)
		}
	}
}
