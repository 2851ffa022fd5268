package sql

import (
	"reflect"
	"testing"
)

func TestExtractReferences_Tables(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		tables []string
	}{
		{
			name:   "single table",
			input:  "SELECT * FROM users",
			tables: []string{"users"},
		},
		{
			name:   "three part name kept whole",
			input:  "SELECT * FROM myproject.analytics.users",
			tables: []string{"myproject.analytics.users"},
		},
		{
			name:   "backtick quoted three part name",
			input:  "SELECT * FROM `myproject.analytics.users`",
			tables: []string{"myproject.analytics.users"},
		},
		{
			name:   "join variants",
			input:  "SELECT * FROM a LEFT JOIN b ON a.id = b.a_id INNER JOIN c ON b.id = c.b_id",
			tables: []string{"a", "b", "c"},
		},
		{
			name:   "duplicate table listed once",
			input:  "SELECT * FROM t JOIN t ON t.a = t.b",
			tables: []string{"t"},
		},
		{
			name:   "case insensitive dedup preserves first casing",
			input:  "SELECT * FROM Users JOIN users ON Users.id = users.id",
			tables: []string{"Users"},
		},
		{
			name:   "table function excluded",
			input:  "SELECT * FROM unnest(x) WHERE true",
			tables: nil,
		},
		{
			name:   "subquery source yields inner table",
			input:  "SELECT * FROM (SELECT id FROM orders) q",
			tables: []string{"orders"},
		},
		{
			name:   "no tables in garbage",
			input:  "this is not sql at all",
			tables: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractReferences(tt.input)
			if !reflect.DeepEqual(got.Tables, tt.tables) {
				t.Errorf("tables: got %v, want %v", got.Tables, tt.tables)
			}
		})
	}
}

func TestExtractReferences_ThreePartJoinRoundTrip(t *testing.T) {
	got := ExtractReferences("SELECT x FROM a.b.c JOIN d.e.f ON a.b.c.id = d.e.f.ref_id")

	wantTables := []string{"a.b.c", "d.e.f"}
	if !reflect.DeepEqual(got.Tables, wantTables) {
		t.Fatalf("tables: got %v, want %v", got.Tables, wantTables)
	}

	if len(got.Joins) != 1 {
		t.Fatalf("joins: got %d, want 1", len(got.Joins))
	}
	join := got.Joins[0]
	if join.LeftTable != "a.b.c" || join.RightTable != "d.e.f" {
		t.Errorf("join tables: got %q/%q, want a.b.c/d.e.f", join.LeftTable, join.RightTable)
	}
	if join.LeftColumn != "id" || join.RightColumn != "ref_id" {
		t.Errorf("join columns: got %q/%q, want id/ref_id", join.LeftColumn, join.RightColumn)
	}
	if join.JoinType != "JOIN" {
		t.Errorf("join type: got %q, want JOIN", join.JoinType)
	}
}

func TestExtractReferences_Joins(t *testing.T) {
	got := ExtractReferences(
		"SELECT u.name, o.total FROM users u " +
			"LEFT OUTER JOIN orders o ON u.id = o.user_id " +
			"WHERE o.total > 10")

	if len(got.Joins) != 1 {
		t.Fatalf("joins: got %d, want 1", len(got.Joins))
	}
	join := got.Joins[0]
	if join.JoinType != "LEFT OUTER JOIN" {
		t.Errorf("join type: got %q", join.JoinType)
	}
	if join.LeftTable != "users" || join.RightTable != "orders" {
		t.Errorf("aliases should resolve to tables: got %q/%q", join.LeftTable, join.RightTable)
	}
	if join.LeftColumn != "id" || join.RightColumn != "user_id" {
		t.Errorf("join columns: got %q/%q", join.LeftColumn, join.RightColumn)
	}
	if join.Condition == "" {
		t.Error("condition text should be preserved")
	}
}

func TestExtractReferences_SwappedPredicateSides(t *testing.T) {
	// The predicate names the joined table first; left/right must still map
	// to the structural join order.
	got := ExtractReferences("SELECT * FROM users u JOIN orders o ON o.user_id = u.id")

	if len(got.Joins) != 1 {
		t.Fatalf("joins: got %d, want 1", len(got.Joins))
	}
	join := got.Joins[0]
	if join.LeftTable != "users" || join.RightTable != "orders" {
		t.Errorf("got %q/%q, want users/orders", join.LeftTable, join.RightTable)
	}
	if join.LeftColumn != "id" || join.RightColumn != "user_id" {
		t.Errorf("got columns %q/%q, want id/user_id", join.LeftColumn, join.RightColumn)
	}
}

func TestExtractReferences_UsingClause(t *testing.T) {
	got := ExtractReferences("SELECT * FROM a JOIN b USING (id)")

	if len(got.Joins) != 1 {
		t.Fatalf("joins: got %d, want 1", len(got.Joins))
	}
	join := got.Joins[0]
	if join.LeftColumn != "id" || join.RightColumn != "id" {
		t.Errorf("USING columns: got %q/%q, want id/id", join.LeftColumn, join.RightColumn)
	}
	if join.LeftTable != "a" || join.RightTable != "b" {
		t.Errorf("tables: got %q/%q, want a/b", join.LeftTable, join.RightTable)
	}
}

func TestExtractReferences_CrossJoinHasNoCondition(t *testing.T) {
	got := ExtractReferences("SELECT * FROM a CROSS JOIN b")
	if len(got.Joins) != 1 {
		t.Fatalf("joins: got %d, want 1", len(got.Joins))
	}
	if got.Joins[0].Condition != "" {
		t.Errorf("cross join should have empty condition, got %q", got.Joins[0].Condition)
	}
	if got.Joins[0].JoinType != "CROSS JOIN" {
		t.Errorf("join type: got %q", got.Joins[0].JoinType)
	}
}

func TestExtractReferences_Columns(t *testing.T) {
	got := ExtractReferences("SELECT u.name, total, COUNT(o.id) AS n FROM users u JOIN orders o ON u.id = o.user_id")

	want := map[string]bool{"name": true, "total": true, "id": true, "user_id": true}
	for _, col := range got.Columns {
		if !want[col] {
			t.Errorf("unexpected column %q", col)
		}
		delete(want, col)
	}
	for col := range want {
		t.Errorf("missing column %q", col)
	}
}

func TestExtractReferences_SelectStarYieldsNoColumns(t *testing.T) {
	got := ExtractReferences("SELECT * FROM users")
	if len(got.Columns) != 0 {
		t.Errorf("got columns %v, want none", got.Columns)
	}
}

func TestExtractReferences_NeverPanicsOnNoise(t *testing.T) {
	inputs := []string{
		"",
		"'unterminated",
		"SELECT FROM WHERE",
		"((((",
		"FROM FROM FROM",
		"JOIN ON USING",
	}
	for _, input := range inputs {
		got := ExtractReferences(input) // must not panic
		_ = got
	}
}
