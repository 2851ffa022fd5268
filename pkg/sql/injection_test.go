package sql

import "testing"

func TestCheckParam(t *testing.T) {
	tests := []struct {
		name    string
		param   string
		value   any
		wantHit bool
	}{
		{
			name:    "clean numeric string",
			param:   "customer_id",
			value:   "12345",
			wantHit: false,
		},
		{
			name:    "classic injection",
			param:   "search",
			value:   "'; DROP TABLE users--",
			wantHit: true,
		},
		{
			name:    "tautology injection",
			param:   "name",
			value:   "' OR '1'='1",
			wantHit: true,
		},
		{
			name:    "non-string value skipped",
			param:   "limit",
			value:   100,
			wantHit: false,
		},
		{
			name:    "nil value skipped",
			param:   "filter",
			value:   nil,
			wantHit: false,
		},
		{
			name:    "plain text",
			param:   "city",
			value:   "San Francisco",
			wantHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckParam(tt.param, tt.value)
			if tt.wantHit {
				if got == nil {
					t.Fatal("expected injection detection, got nil")
				}
				if got.ParamName != tt.param {
					t.Errorf("param name: got %q, want %q", got.ParamName, tt.param)
				}
				if got.Fingerprint == "" {
					t.Error("expected non-empty fingerprint")
				}
			} else if got != nil {
				t.Errorf("expected clean, got violation %+v", got)
			}
		})
	}
}

func TestCheckParams(t *testing.T) {
	params := map[string]any{
		"customer_id": "12345",
		"search":      "'; DROP TABLE users--",
		"limit":       100,
	}

	violations := CheckParams(params)
	if len(violations) != 1 {
		t.Fatalf("got %d violations, want 1", len(violations))
	}
	if violations[0].ParamName != "search" {
		t.Errorf("got %q, want search", violations[0].ParamName)
	}
}
