package ir

import "testing"

func TestNameFromString(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"size", []string{"size"}},
		{"httpServer", []string{"http", "server"}},
		{"HTTPServer", []string{"http", "server"}},
		{"value_in_list", []string{"value", "in", "list"}},
		{"foo2Bar", []string{"foo", "2", "bar"}},
		{"+", []string{"+"}},
		{"::", []string{"::"}},
		{"", nil},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := NameFromString(tc.in)
			if len(got) != len(tc.want) {
				t.Fatalf("NameFromString(%q) = %v, want %v", tc.in, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("NameFromString(%q) = %v, want %v", tc.in, got, tc.want)
				}
			}
		})
	}
}

func TestNameRenderings(t *testing.T) {
	n := NameFromString("httpServer")
	if got := n.String(); got != "httpServer" {
		t.Errorf("String() = %q, want %q", got, "httpServer")
	}
	if got := n.Title(); got != "HttpServer" {
		t.Errorf("Title() = %q, want %q", got, "HttpServer")
	}
	if got := n.Snake(); got != "http_server" {
		t.Errorf("Snake() = %q, want %q", got, "http_server")
	}

	op := NameFromString("::")
	if !op.IsOperator() {
		t.Fatalf("expected %v to be an operator", op)
	}
	if got := op.String(); got != "::" {
		t.Errorf("operator String() = %q, want %q", got, "::")
	}
	if got := op.Snake(); got != "::" {
		t.Errorf("operator Snake() = %q, want %q", got, "::")
	}
}

func TestParseModuleName(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
	}{
		{"Basics", false},
		{"Domain.Model", false},
		{"Domain.Model2", false},
		{"", true},
		{"domain.Model", true},
		{"Domain..Model", true},
		{"Domain.Mo-del", true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			m, err := ParseModuleName(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseModuleName(%q) succeeded, want error", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseModuleName(%q): %v", tc.in, err)
			}
			if m.String() != tc.in {
				t.Errorf("round trip = %q, want %q", m.String(), tc.in)
			}
		})
	}
}

func TestModuleNameFromPath(t *testing.T) {
	m, err := ModuleNameFromPath("Domain/Model.loom")
	if err != nil {
		t.Fatalf("ModuleNameFromPath: %v", err)
	}
	if m.String() != "Domain.Model" {
		t.Errorf("got %q, want %q", m.String(), "Domain.Model")
	}

	if _, err := ModuleNameFromPath("domain/model.loom"); err == nil {
		t.Error("lower-case path segment accepted")
	}
	if _, err := ModuleNameFromPath(""); err == nil {
		t.Error("empty path accepted")
	}
}

func TestFQName(t *testing.T) {
	mod, err := ParseModuleName("Domain.Model")
	if err != nil {
		t.Fatalf("ParseModuleName: %v", err)
	}
	fq := NewFQName("my.app", mod, NameFromString("treeSize"))
	want := FQName{Package: "my.app", Module: "Domain.Model", Name: "treeSize"}
	if fq != want {
		t.Fatalf("NewFQName = %+v, want %+v", fq, want)
	}
	if fq.String() != "my.app:Domain.Model.treeSize" {
		t.Errorf("String() = %q", fq.String())
	}
	if fq.IsZero() {
		t.Error("IsZero() on populated name")
	}

	seen := map[FQName]int{fq: 1}
	if seen[want] != 1 {
		t.Error("FQName not usable as map key")
	}
}

func TestVisibleNamesLookup(t *testing.T) {
	v := NewVisibleNames()
	fqType := FQName{Package: "p", Module: "M", Name: "Tree"}
	fqCtor := FQName{Package: "p", Module: "M", Name: "Tree"}
	fqVal := FQName{Package: "p", Module: "M", Name: "size"}
	v.Add(KindType, "Tree", fqType)
	v.Add(KindCtor, "Node", fqCtor)
	v.Add(KindValue, "size", fqVal)

	if got, ok := v.Lookup(KindType, "Tree"); !ok || got != fqType {
		t.Errorf("type lookup = %v %v", got, ok)
	}
	if _, ok := v.Lookup(KindValue, "Tree"); ok {
		t.Error("type name leaked into value namespace")
	}
	if _, ok := v.Lookup(KindCtor, "size"); ok {
		t.Error("value name leaked into constructor namespace")
	}
	if v.Len() != 3 {
		t.Errorf("Len() = %d, want 3", v.Len())
	}
}
