package ir

import "testing"

func fq(mod, name string) FQName {
	return FQName{Package: "p", Module: mod, Name: name}
}

func TestDefinitionTypeRefs(t *testing.T) {
	alias := AliasDefinition{
		Params: []string{"a"},
		Target: TypeRecord{Fields: []RecordField{
			{Name: "left", Type: TypeReference{Ref: fq("M", "Tree"), Args: []Type{TypeVariable{Name: "a"}}}},
			{Name: "size", Type: TypeReference{Ref: fq("Basics", "Int")}},
		}},
	}
	refs := DefinitionTypeRefs(alias)
	want := []FQName{fq("M", "Tree"), fq("Basics", "Int")}
	if len(refs) != len(want) {
		t.Fatalf("refs = %v, want %v", refs, want)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Fatalf("refs[%d] = %v, want %v", i, refs[i], want[i])
		}
	}

	custom := CustomDefinition{Constructors: []Constructor{
		{Name: "Leaf"},
		{Name: "Node", Args: []Type{
			TypeReference{Ref: fq("M", "Item")},
			TypeReference{Ref: fq("List", "List"), Args: []Type{TypeReference{Ref: fq("M", "Item")}}},
		}},
	}}
	refs = DefinitionTypeRefs(custom)
	if len(refs) != 2 {
		t.Fatalf("duplicate reference not collapsed: %v", refs)
	}
	if refs[0] != fq("M", "Item") || refs[1] != fq("List", "List") {
		t.Fatalf("unexpected order: %v", refs)
	}
}

func TestValueAndCtorRefs(t *testing.T) {
	// case xs of [] -> zero ; x :: rest -> add x (go rest)
	body := CaseExpr{
		Subject: VarRef{Name: "xs"},
		Branches: []CaseBranch{
			{Pattern: CtorPat{Ref: fq("List", "Empty")}, Body: ValueRef{Ref: fq("M", "zero")}},
			{
				Pattern: ConsPat{Head: VarPat{Name: "x"}, Tail: VarPat{Name: "rest"}},
				Body: Apply{
					Fn: Apply{Fn: ValueRef{Ref: fq("Basics", "add")}, Arg: VarRef{Name: "x"}},
					Arg: Apply{
						Fn:  ValueRef{Ref: fq("M", "go")},
						Arg: CtorRef{Ref: fq("M", "Wrapped")},
					},
				},
			},
		},
	}

	values := ValueRefs(body)
	wantValues := []FQName{fq("M", "zero"), fq("Basics", "add"), fq("M", "go")}
	if len(values) != len(wantValues) {
		t.Fatalf("ValueRefs = %v, want %v", values, wantValues)
	}
	for i := range wantValues {
		if values[i] != wantValues[i] {
			t.Fatalf("ValueRefs[%d] = %v, want %v", i, values[i], wantValues[i])
		}
	}

	ctors := CtorRefs(body)
	wantCtors := []FQName{fq("List", "Empty"), fq("M", "Wrapped")}
	if len(ctors) != len(wantCtors) {
		t.Fatalf("CtorRefs = %v, want %v", ctors, wantCtors)
	}
	for i := range wantCtors {
		if ctors[i] != wantCtors[i] {
			t.Fatalf("CtorRefs[%d] = %v, want %v", i, ctors[i], wantCtors[i])
		}
	}
}

func TestAnnotationTypeRefs(t *testing.T) {
	def := ValueDefinition{
		Params: []string{"tree"},
		Annotation: TypeFunction{
			Param:  TypeReference{Ref: fq("M", "Tree")},
			Result: TypeReference{Ref: fq("Basics", "Int")},
		},
		Body: BasicLit{Kind: LitInt, Value: "0"},
	}
	refs := AnnotationTypeRefs(def)
	if len(refs) != 2 {
		t.Fatalf("refs = %v", refs)
	}

	if got := AnnotationTypeRefs(ValueDefinition{Body: UnitLit{}}); got != nil {
		t.Errorf("nil annotation produced refs: %v", got)
	}
}

func TestLetBindingRefs(t *testing.T) {
	body := LetIn{
		Bindings: []LetBinding{
			{Name: "a", Body: ValueRef{Ref: fq("M", "base")}},
			{Name: "b", Params: []string{"x"}, Body: VarRef{Name: "x"}},
		},
		Body: Apply{Fn: VarRef{Name: "b"}, Arg: VarRef{Name: "a"}},
	}
	refs := ValueRefs(body)
	if len(refs) != 1 || refs[0] != fq("M", "base") {
		t.Fatalf("ValueRefs = %v", refs)
	}
}
