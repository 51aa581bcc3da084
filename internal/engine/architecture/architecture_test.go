package architecture

import (
	"testing"

	"loom/internal/engine/ir"
	"loom/internal/engine/repo"
)

func addModule(t *testing.T, r *repo.Repository, path string, imports ...string) {
	t.Helper()
	mn, err := ir.ParseModuleName(path)
	if err != nil {
		t.Fatalf("ParseModuleName(%q): %v", path, err)
	}
	r.ReplaceModule(repo.ModuleInfo{Name: mn, Imports: imports, Exposed: ir.NewVisibleNames()})
}

func TestLayerRuleEngineValidate(t *testing.T) {
	r := repo.New("app")
	addModule(t, r, "Data.Store")
	addModule(t, r, "Ui.Widget.Button")
	addModule(t, r, "Ui.Page", "Data.Store", "Ui.Widget.Button")
	addModule(t, r, "Glue", "Data.Store")

	engine := NewLayerRuleEngine(Model{
		Enabled: true,
		Layers: []Layer{
			{Name: "data", Modules: []string{"Data.**"}},
			{Name: "ui", Modules: []string{"Ui.**"}},
			{Name: "glue", Modules: []string{"Glue"}},
		},
		Rules: []Rule{
			{Name: "ui-stays-pure", From: "ui", Allow: []string{"ui"}},
			{Name: "glue-binds-all", From: "glue", Allow: []string{"data", "ui"}},
		},
	})

	violations := engine.Validate(r)
	if len(violations) != 1 {
		t.Fatalf("expected one violation, got %+v", violations)
	}
	v := violations[0]
	if v.RuleName != "ui-stays-pure" || v.FromModule != "Ui.Page" || v.ToModule != "Data.Store" {
		t.Fatalf("unexpected violation: %+v", v)
	}
	if v.FromLayer != "ui" || v.ToLayer != "data" {
		t.Fatalf("unexpected layers: %+v", v)
	}
}

func TestLayerRuleEngineDisabled(t *testing.T) {
	r := repo.New("app")
	addModule(t, r, "Data.Store")
	addModule(t, r, "Ui.Page", "Data.Store")

	model := Model{
		Layers: []Layer{
			{Name: "data", Modules: []string{"Data.**"}},
			{Name: "ui", Modules: []string{"Ui.**"}},
		},
		Rules: []Rule{{Name: "ui-stays-pure", From: "ui", Allow: []string{"ui"}}},
	}

	if got := NewLayerRuleEngine(model).Validate(r); len(got) != 0 {
		t.Fatalf("disabled engine must not report: %+v", got)
	}

	var nilEngine *LayerRuleEngine
	if got := nilEngine.Validate(r); got != nil {
		t.Fatalf("nil engine must not report: %+v", got)
	}
}

func TestLayerForPrefersMostSpecificPattern(t *testing.T) {
	engine := NewLayerRuleEngine(Model{
		Enabled: true,
		Layers: []Layer{
			{Name: "ui", Modules: []string{"Ui.**"}},
			{Name: "ui-internal", Modules: []string{"Ui.Internal.**"}},
		},
	})

	if got := engine.layerFor("Ui.Internal.Cache"); got != "ui-internal" {
		t.Fatalf("expected most specific layer, got %q", got)
	}
	if got := engine.layerFor("Ui.Page"); got != "ui" {
		t.Fatalf("expected ui layer, got %q", got)
	}
	if got := engine.layerFor("Data.Store"); got != "" {
		t.Fatalf("expected no layer, got %q", got)
	}
}

func TestViolationString(t *testing.T) {
	v := Violation{
		RuleName:   "ui-stays-pure",
		FromModule: "Ui.Page",
		FromLayer:  "ui",
		ToModule:   "Data.Store",
		ToLayer:    "data",
	}
	want := "ui-stays-pure (ui -> data): Ui.Page imports Data.Store"
	if got := v.String(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
