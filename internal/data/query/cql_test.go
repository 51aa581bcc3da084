package query

import (
	"strings"
	"testing"
)

func TestParseCQL(t *testing.T) {
	parsed, err := ParseCQL(`SELECT modules WHERE import_count >= 2 AND name CONTAINS "ui"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Target != "modules" {
		t.Fatalf("unexpected target %q", parsed.Target)
	}
	if len(parsed.Conditions) != 2 {
		t.Fatalf("expected 2 conditions, got %+v", parsed.Conditions)
	}

	first := parsed.Conditions[0]
	if !first.IsInt || first.Field != "import_count" || first.Op != ">=" || first.IntVal != 2 {
		t.Fatalf("unexpected first condition: %+v", first)
	}
	second := parsed.Conditions[1]
	if !second.IsStr || second.Field != "name" || second.Op != "contains" || second.StrVal != "ui" {
		t.Fatalf("unexpected second condition: %+v", second)
	}
}

func TestParseCQL_LowercaseNoWhere(t *testing.T) {
	parsed, err := ParseCQL("select modules")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed.Conditions) != 0 {
		t.Fatalf("expected no conditions, got %+v", parsed.Conditions)
	}
}

func TestParseCQL_StringEquality(t *testing.T) {
	parsed, err := ParseCQL(`SELECT modules WHERE name = 'App'`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cond := parsed.Conditions[0]
	if !cond.IsStr || cond.Op != "=" || cond.StrVal != "App" {
		t.Fatalf("unexpected condition: %+v", cond)
	}
}

func TestParseCQL_Invalid(t *testing.T) {
	if _, err := ParseCQL("DELETE FROM modules"); err == nil {
		t.Fatal("expected error for non-SELECT query")
	}

	_, err := ParseCQL("SELECT modules WHERE name ~ 3")
	if err == nil {
		t.Fatal("expected error for unsupported operator")
	}
	if !strings.Contains(err.Error(), "invalid query condition") {
		t.Fatalf("unexpected error: %v", err)
	}
}
