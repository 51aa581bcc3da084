package repo

import (
	"bytes"
	"errors"
	"testing"

	"loom/internal/engine/ir"
)

func fq(pkg, mod, name string) ir.FQName {
	return ir.FQName{Package: pkg, Module: mod, Name: name}
}

func addModule(t *testing.T, r *Repository, path string, imports ...string) {
	t.Helper()
	mn, err := ir.ParseModuleName(path)
	if err != nil {
		t.Fatalf("ParseModuleName(%q): %v", path, err)
	}
	r.ReplaceModule(ModuleInfo{Name: mn, Imports: imports, Exposed: ir.NewVisibleNames()})
}

func wantRejection(t *testing.T, err error, cause Cause) *Rejection {
	t.Helper()
	if err == nil {
		t.Fatalf("accepted, want %s rejection", cause)
	}
	var rej *Rejection
	if !errors.As(err, &rej) {
		t.Fatalf("error type = %T (%v)", err, err)
	}
	if rej.Cause != cause {
		t.Fatalf("cause = %s, want %s (%v)", rej.Cause, cause, rej)
	}
	return rej
}

func intRef() ir.Type {
	return ir.TypeReference{Ref: fq("loom.sdk", "Basics", "int")}
}

func TestInsertTypeIntoUnknownModule(t *testing.T) {
	r := New("app")
	err := r.InsertType("A", ir.NameFromString("Id"), ir.AliasDefinition{Target: intRef()})
	rej := wantRejection(t, err, CauseUnknownModule)
	if rej.Module != "A" {
		t.Errorf("module = %q", rej.Module)
	}
}

func TestInsertTypeDuplicate(t *testing.T) {
	r := New("app")
	addModule(t, r, "A")
	def := ir.AliasDefinition{Target: intRef()}
	if err := r.InsertType("A", ir.NameFromString("Id"), def); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := r.InsertType("A", ir.NameFromString("Id"), def)
	wantRejection(t, err, CauseDuplicate)
}

func TestInsertTypeRejectsForwardReference(t *testing.T) {
	r := New("app")
	addModule(t, r, "A")
	missing := fq("app", "A", "other")
	def := ir.AliasDefinition{Target: ir.TypeReference{Ref: missing}}
	err := r.InsertType("A", ir.NameFromString("Id"), def)
	rej := wantRejection(t, err, CauseUnresolvedRef)
	if rej.Ref != missing {
		t.Errorf("ref = %v, want %v", rej.Ref, missing)
	}
	if _, ok := r.Module("A"); !ok {
		t.Fatal("module shell gone")
	}
	if r.TypeCount() != 0 {
		t.Errorf("type count = %d after rejection", r.TypeCount())
	}
}

func TestInsertTypeAllowsSelfRecursion(t *testing.T) {
	r := New("app")
	addModule(t, r, "A")
	tree := ir.CustomDefinition{
		Params: []string{"a"},
		Constructors: []ir.Constructor{
			{Name: "Leaf"},
			{Name: "Node", Args: []ir.Type{
				ir.TypeVariable{Name: "a"},
				ir.TypeReference{Ref: fq("app", "A", "tree"), Args: []ir.Type{ir.TypeVariable{Name: "a"}}},
			}},
		},
	}
	if err := r.InsertType("A", ir.NameFromString("Tree"), tree); err != nil {
		t.Fatalf("InsertType: %v", err)
	}
	if !r.ResolvableType(fq("app", "A", "tree")) {
		t.Error("tree not resolvable after insert")
	}
	for _, ctor := range []string{"leaf", "node"} {
		if !r.ResolvableCtor(fq("app", "A", ctor)) {
			t.Errorf("ctor %s not resolvable", ctor)
		}
	}
	m, _ := r.Module("A")
	if owner, ok := m.CtorOwner("node"); !ok || owner != "tree" {
		t.Errorf("CtorOwner(node) = %q, %v", owner, ok)
	}
}

func TestInsertValueChecksBodyAnnotationAndCtors(t *testing.T) {
	r := New("app")
	addModule(t, r, "A")
	id := ir.CustomDefinition{Constructors: []ir.Constructor{
		{Name: "Id", Args: []ir.Type{intRef()}},
	}}
	if err := r.InsertType("A", ir.NameFromString("Id"), id); err != nil {
		t.Fatalf("InsertType: %v", err)
	}

	mk := ir.ValueDefinition{
		Annotation: ir.TypeReference{Ref: fq("app", "A", "id")},
		Body: ir.Apply{
			Fn:  ir.CtorRef{Ref: fq("app", "A", "id")},
			Arg: ir.BasicLit{Kind: ir.LitInt, Value: "1"},
		},
	}
	if err := r.InsertValue("A", ir.NameFromString("make"), mk); err != nil {
		t.Fatalf("InsertValue: %v", err)
	}
	if !r.ResolvableValue(fq("app", "A", "make")) {
		t.Error("make not resolvable")
	}

	missingValue := ir.ValueDefinition{Body: ir.ValueRef{Ref: fq("app", "A", "phantom")}}
	rej := wantRejection(t, r.InsertValue("A", ir.NameFromString("bad"), missingValue), CauseUnresolvedRef)
	if rej.Ref != fq("app", "A", "phantom") {
		t.Errorf("ref = %v", rej.Ref)
	}

	missingAnn := ir.ValueDefinition{
		Annotation: ir.TypeReference{Ref: fq("app", "A", "ghostType")},
		Body:       ir.BasicLit{Kind: ir.LitInt, Value: "0"},
	}
	wantRejection(t, r.InsertValue("A", ir.NameFromString("worse"), missingAnn), CauseUnresolvedRef)

	missingCtor := ir.ValueDefinition{Body: ir.CtorRef{Ref: fq("app", "A", "ghost")}}
	wantRejection(t, r.InsertValue("A", ir.NameFromString("alsoBad"), missingCtor), CauseUnresolvedRef)
}

func TestInsertValueAllowsSelfRecursion(t *testing.T) {
	r := New("app")
	addModule(t, r, "A")
	loop := ir.ValueDefinition{
		Params: []string{"n"},
		Body:   ir.Apply{Fn: ir.ValueRef{Ref: fq("app", "A", "loop")}, Arg: ir.VarRef{Name: "n"}},
	}
	if err := r.InsertValue("A", ir.NameFromString("loop"), loop); err != nil {
		t.Fatalf("InsertValue: %v", err)
	}
}

func TestSDKAlwaysResolvable(t *testing.T) {
	r := New("app")
	cases := []struct {
		name string
		ok   bool
	}{
		{"type", r.ResolvableType(fq("loom.sdk", "Basics", "int"))},
		{"list type", r.ResolvableType(fq("loom.sdk", "List", "list"))},
		{"operator", r.ResolvableValue(fq("loom.sdk", "Basics", "+"))},
		{"cons", r.ResolvableCtor(fq("loom.sdk", "List", "::"))},
		{"bool ctor", r.ResolvableCtor(fq("loom.sdk", "Basics", "true"))},
	}
	for _, c := range cases {
		if !c.ok {
			t.Errorf("%s not resolvable through SDK spec", c.name)
		}
	}
	if r.ResolvableValue(fq("loom.sdk", "Basics", "ghost")) {
		t.Error("unknown SDK value reported resolvable")
	}
}

func TestCrossModuleReferences(t *testing.T) {
	r := New("app")
	addModule(t, r, "A")
	if err := r.InsertType("A", ir.NameFromString("Id"), ir.CustomDefinition{
		Constructors: []ir.Constructor{{Name: "Id", Args: []ir.Type{intRef()}}},
	}); err != nil {
		t.Fatalf("insert A.Id: %v", err)
	}

	addModule(t, r, "B", "A")
	wrapper := ir.CustomDefinition{Constructors: []ir.Constructor{
		{Name: "Wrapper", Args: []ir.Type{ir.TypeReference{Ref: fq("app", "A", "id")}}},
	}}
	if err := r.InsertType("B", ir.NameFromString("Wrapper"), wrapper); err != nil {
		t.Fatalf("insert B.Wrapper: %v", err)
	}

	// The same definition into a module whose dependency is absent.
	addModule(t, r, "C")
	bad := ir.CustomDefinition{Constructors: []ir.Constructor{
		{Name: "Broken", Args: []ir.Type{ir.TypeReference{Ref: fq("app", "Z", "id")}}},
	}}
	wantRejection(t, r.InsertType("C", ir.NameFromString("Broken"), bad), CauseUnresolvedRef)
}

func TestReplaceModuleResetsContents(t *testing.T) {
	r := New("app")
	addModule(t, r, "A")
	if err := r.InsertType("A", ir.NameFromString("Id"), ir.AliasDefinition{Target: intRef()}); err != nil {
		t.Fatalf("InsertType: %v", err)
	}
	addModule(t, r, "A")
	if r.TypeCount() != 0 {
		t.Errorf("type count = %d after replace", r.TypeCount())
	}
	// Re-inserting after a replace is the update path and must succeed.
	if err := r.InsertType("A", ir.NameFromString("Id"), ir.AliasDefinition{Target: intRef()}); err != nil {
		t.Fatalf("re-insert: %v", err)
	}
	mods := r.Modules()
	if len(mods) != 1 || mods[0] != "A" {
		t.Errorf("modules = %v", mods)
	}
}

func TestDeleteModule(t *testing.T) {
	r := New("app")
	wantRejection(t, r.DeleteModule("A"), CauseUnknownModule)

	addModule(t, r, "A")
	addModule(t, r, "B", "A")
	rej := wantRejection(t, r.DeleteModule("A"), CauseHasDependents)
	if len(rej.Dependents) != 1 || rej.Dependents[0] != "B" {
		t.Errorf("dependents = %v", rej.Dependents)
	}

	if err := r.DeleteModule("B"); err != nil {
		t.Fatalf("delete B: %v", err)
	}
	if err := r.DeleteModule("A"); err != nil {
		t.Fatalf("delete A: %v", err)
	}
	if len(r.Modules()) != 0 {
		t.Errorf("modules = %v", r.Modules())
	}
}

func TestDependentsFollowRegistrationOrder(t *testing.T) {
	r := New("app")
	addModule(t, r, "Base")
	addModule(t, r, "Mid", "Base")
	addModule(t, r, "Top", "Base", "Mid")
	got := r.Dependents("Base")
	want := []string{"Mid", "Top"}
	if len(got) != len(want) {
		t.Fatalf("dependents = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dependents[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestModuleVisibleCoversStoreAndSpecs(t *testing.T) {
	r := New("app")
	mn, _ := ir.ParseModuleName("A")
	exposed := ir.NewVisibleNames()
	exposed.Add(ir.KindValue, "size", fq("app", "A", "size"))
	r.ReplaceModule(ModuleInfo{Name: mn, Exposed: exposed})

	names, _, ok := r.ModuleVisible("A")
	if !ok {
		t.Fatal("module A not visible")
	}
	if got, ok := names.Lookup(ir.KindValue, "size"); !ok || got != fq("app", "A", "size") {
		t.Errorf("size = %v, %v", got, ok)
	}

	sdk, owners, ok := r.ModuleVisible("Basics")
	if !ok {
		t.Fatal("SDK Basics not visible")
	}
	if got, ok := sdk.Lookup(ir.KindCtor, "True"); !ok || got != fq("loom.sdk", "Basics", "true") {
		t.Errorf("True = %v, %v", got, ok)
	}
	if owners["True"] != "Bool" {
		t.Errorf("owner of True = %q", owners["True"])
	}

	if _, _, ok := r.ModuleVisible("Nowhere"); ok {
		t.Error("unknown path visible")
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	r := New("app")
	addModule(t, r, "A")
	tree := ir.CustomDefinition{
		Params: []string{"a"},
		Constructors: []ir.Constructor{
			{Name: "Leaf"},
			{Name: "Node", Args: []ir.Type{ir.TypeVariable{Name: "a"}}},
		},
	}
	if err := r.InsertType("A", ir.NameFromString("Tree"), tree); err != nil {
		t.Fatalf("InsertType: %v", err)
	}
	depth := ir.ValueDefinition{
		Params: []string{"t"},
		Body:   ir.Apply{Fn: ir.ValueRef{Ref: fq("app", "A", "depth")}, Arg: ir.VarRef{Name: "t"}},
	}
	if err := r.InsertValue("A", ir.NameFromString("depth"), depth); err != nil {
		t.Fatalf("InsertValue: %v", err)
	}

	blob, err := r.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	restored, err := Restore(blob)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Package() != "app" {
		t.Errorf("package = %q", restored.Package())
	}
	if !restored.ResolvableType(fq("app", "A", "tree")) ||
		!restored.ResolvableCtor(fq("app", "A", "node")) ||
		!restored.ResolvableValue(fq("app", "A", "depth")) {
		t.Error("restored repository missing definitions")
	}
	if !restored.ResolvableValue(fq("loom.sdk", "Basics", "not")) {
		t.Error("restored repository lost SDK dependency")
	}

	again, err := restored.Snapshot()
	if err != nil {
		t.Fatalf("second Snapshot: %v", err)
	}
	if !bytes.Equal(blob, again) {
		t.Error("snapshot changed across a restore round trip")
	}
}
