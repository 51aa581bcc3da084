package parser

import (
	"errors"
	"strings"
	"testing"
)

func mustParse(t *testing.T, src string) *Module {
	t.Helper()
	m, err := Parse("Test.loom", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return m
}

func parseDiags(t *testing.T, src string) Diagnostics {
	t.Helper()
	m, err := Parse("Test.loom", src)
	if err == nil {
		t.Fatalf("Parse succeeded with %d decls, want syntax errors", len(m.Decls))
	}
	var ds Diagnostics
	if !errors.As(err, &ds) {
		t.Fatalf("error type = %T, want Diagnostics", err)
	}
	return ds
}

func TestParseModuleHeaderAndImports(t *testing.T) {
	m := mustParse(t, `module Domain.Model exposing (Tree(..), size)

import List.Extra as LX exposing (find)
import Domain.Base

size = 0
`)
	if got := strings.Join(m.Name, "."); got != "Domain.Model" {
		t.Errorf("module name = %q", got)
	}
	if m.Exposing.All {
		t.Error("Exposing.All set for explicit list")
	}
	if len(m.Exposing.Items) != 2 {
		t.Fatalf("expose items = %+v", m.Exposing.Items)
	}
	if m.Exposing.Items[0].Name != "Tree" || !m.Exposing.Items[0].OpenCtors {
		t.Errorf("item[0] = %+v, want Tree(..)", m.Exposing.Items[0])
	}
	if m.Exposing.Items[1].Name != "size" || m.Exposing.Items[1].OpenCtors {
		t.Errorf("item[1] = %+v, want size", m.Exposing.Items[1])
	}

	if len(m.Imports) != 2 {
		t.Fatalf("imports = %+v", m.Imports)
	}
	first := m.Imports[0]
	if strings.Join(first.Module, ".") != "List.Extra" || first.Alias != "LX" {
		t.Errorf("import[0] = %+v", first)
	}
	if first.Exposing == nil || len(first.Exposing.Items) != 1 || first.Exposing.Items[0].Name != "find" {
		t.Errorf("import[0].Exposing = %+v", first.Exposing)
	}
	second := m.Imports[1]
	if strings.Join(second.Module, ".") != "Domain.Base" || second.Alias != "" || second.Exposing != nil {
		t.Errorf("import[1] = %+v", second)
	}
}

func TestParseTypeDeclarations(t *testing.T) {
	m := mustParse(t, `module Domain.Model exposing (..)

type Tree a
    = Leaf
    | Node a (List (Tree a))

type alias Pair = ( Int, Int )

type alias Box = { width : Int, label : String }
`)
	if len(m.Decls) != 3 {
		t.Fatalf("decls = %d, want 3", len(m.Decls))
	}

	union, ok := m.Decls[0].(UnionDecl)
	if !ok {
		t.Fatalf("decl[0] = %T", m.Decls[0])
	}
	if union.Name != "Tree" || len(union.Params) != 1 || union.Params[0] != "a" {
		t.Errorf("union = %+v", union)
	}
	if len(union.Ctors) != 2 {
		t.Fatalf("ctors = %+v", union.Ctors)
	}
	if union.Ctors[0].Name != "Leaf" || len(union.Ctors[0].Args) != 0 {
		t.Errorf("ctor[0] = %+v", union.Ctors[0])
	}
	node := union.Ctors[1]
	if node.Name != "Node" || len(node.Args) != 2 {
		t.Fatalf("ctor[1] = %+v", node)
	}
	if _, ok := node.Args[0].(TVar); !ok {
		t.Errorf("Node arg[0] = %T, want TVar", node.Args[0])
	}
	list, ok := node.Args[1].(TName)
	if !ok || list.Name != "List" || len(list.Args) != 1 {
		t.Fatalf("Node arg[1] = %#v", node.Args[1])
	}
	inner, ok := list.Args[0].(TName)
	if !ok || inner.Name != "Tree" {
		t.Errorf("List arg = %#v", list.Args[0])
	}

	pair, ok := m.Decls[1].(AliasDecl)
	if !ok {
		t.Fatalf("decl[1] = %T", m.Decls[1])
	}
	if tup, ok := pair.Target.(TTuple); !ok || len(tup.Elems) != 2 {
		t.Errorf("Pair target = %#v", pair.Target)
	}

	box, ok := m.Decls[2].(AliasDecl)
	if !ok {
		t.Fatalf("decl[2] = %T", m.Decls[2])
	}
	rec, ok := box.Target.(TRecord)
	if !ok || len(rec.Fields) != 2 {
		t.Fatalf("Box target = %#v", box.Target)
	}
	if rec.Fields[0].Name != "width" || rec.Fields[1].Name != "label" {
		t.Errorf("record fields = %+v", rec.Fields)
	}
}

func TestParseValueWithAnnotationAndCase(t *testing.T) {
	m := mustParse(t, `module Domain.Model exposing (..)

size : Tree a -> Int
size tree =
    case tree of
        Leaf ->
            0

        Node _ kids ->
            1 + LX.sum (List.map size kids)
`)
	if len(m.Decls) != 1 {
		t.Fatalf("decls = %d", len(m.Decls))
	}
	v, ok := m.Decls[0].(ValueDecl)
	if !ok {
		t.Fatalf("decl = %T", m.Decls[0])
	}
	if v.Name != "size" || len(v.Params) != 1 || v.Params[0] != "tree" {
		t.Errorf("decl = %+v", v)
	}
	fn, ok := v.Annotation.(TFunc)
	if !ok {
		t.Fatalf("annotation = %#v", v.Annotation)
	}
	if arg, ok := fn.Param.(TName); !ok || arg.Name != "Tree" {
		t.Errorf("annotation param = %#v", fn.Param)
	}

	ce, ok := v.Body.(CaseExpr)
	if !ok {
		t.Fatalf("body = %T", v.Body)
	}
	if len(ce.Branches) != 2 {
		t.Fatalf("branches = %d", len(ce.Branches))
	}
	leaf, ok := ce.Branches[0].Pat.(CtorPat)
	if !ok || leaf.Name != "Leaf" || len(leaf.Args) != 0 {
		t.Errorf("branch[0] pattern = %#v", ce.Branches[0].Pat)
	}
	nodePat, ok := ce.Branches[1].Pat.(CtorPat)
	if !ok || nodePat.Name != "Node" || len(nodePat.Args) != 2 {
		t.Fatalf("branch[1] pattern = %#v", ce.Branches[1].Pat)
	}
	if _, ok := nodePat.Args[0].(WildPat); !ok {
		t.Errorf("pattern arg[0] = %T", nodePat.Args[0])
	}

	add, ok := ce.Branches[1].Body.(BinExpr)
	if !ok || add.Op != "+" {
		t.Fatalf("branch[1] body = %#v", ce.Branches[1].Body)
	}
	call, ok := add.R.(AppExpr)
	if !ok {
		t.Fatalf("right of + = %#v", add.R)
	}
	sum, ok := call.Fn.(NameExpr)
	if !ok || sum.Qual != "LX" || sum.Name != "sum" {
		t.Errorf("call fn = %#v", call.Fn)
	}
	innerApp, ok := call.Args[0].(AppExpr)
	if !ok {
		t.Fatalf("call arg = %#v", call.Args[0])
	}
	mapFn, ok := innerApp.Fn.(NameExpr)
	if !ok || mapFn.Qual != "List" || mapFn.Name != "map" {
		t.Errorf("inner fn = %#v", innerApp.Fn)
	}
	if len(innerApp.Args) != 2 {
		t.Errorf("inner args = %d", len(innerApp.Args))
	}
}

func TestOperatorPrecedence(t *testing.T) {
	m := mustParse(t, `module M exposing (..)

a = 1 + 2 * 3

b = 1 :: 2 :: []

c = xs |> first |> second
`)
	add := m.Decls[0].(ValueDecl).Body.(BinExpr)
	if add.Op != "+" {
		t.Fatalf("a: top op = %q", add.Op)
	}
	mul, ok := add.R.(BinExpr)
	if !ok || mul.Op != "*" {
		t.Errorf("a: right = %#v, want 2 * 3", add.R)
	}

	cons := m.Decls[1].(ValueDecl).Body.(BinExpr)
	if cons.Op != "::" {
		t.Fatalf("b: top op = %q", cons.Op)
	}
	if inner, ok := cons.R.(BinExpr); !ok || inner.Op != "::" {
		t.Errorf("b: cons is not right-associative: %#v", cons.R)
	}

	pipe := m.Decls[2].(ValueDecl).Body.(BinExpr)
	if pipe.Op != "|>" {
		t.Fatalf("c: top op = %q", pipe.Op)
	}
	if inner, ok := pipe.L.(BinExpr); !ok || inner.Op != "|>" {
		t.Errorf("c: pipeline is not left-associative: %#v", pipe.L)
	}
}

func TestLiteralsAndComments(t *testing.T) {
	m := mustParse(t, `module M exposing (..)

greeting = "hi\n"

pi = 3.14

c = 'x'

{- block {- nested -} comment -}
answer = 42 -- trailing
`)
	checks := []struct {
		idx  int
		kind LitKind
		text string
	}{
		{0, LitString, "hi\n"},
		{1, LitFloat, "3.14"},
		{2, LitChar, "x"},
		{3, LitInt, "42"},
	}
	for _, c := range checks {
		lit, ok := m.Decls[c.idx].(ValueDecl).Body.(LitExpr)
		if !ok {
			t.Fatalf("decl[%d] body = %T", c.idx, m.Decls[c.idx].(ValueDecl).Body)
		}
		if lit.Kind != c.kind || lit.Text != c.text {
			t.Errorf("decl[%d] = %+v, want kind %v text %q", c.idx, lit, c.kind, c.text)
		}
	}
}

func TestLetLambdaIfAndRecords(t *testing.T) {
	m := mustParse(t, `module M exposing (..)

apply =
    let
        inc x = x + 1
        base = { width = 3, label = "b" }
    in
    if cond then inc base.width else 0

double = map (\x -> x * 2)
`)
	let, ok := m.Decls[0].(ValueDecl).Body.(LetExpr)
	if !ok {
		t.Fatalf("apply body = %T", m.Decls[0].(ValueDecl).Body)
	}
	if len(let.Binds) != 2 {
		t.Fatalf("bindings = %d", len(let.Binds))
	}
	if let.Binds[0].Name != "inc" || len(let.Binds[0].Params) != 1 {
		t.Errorf("bind[0] = %+v", let.Binds[0])
	}
	rec, ok := let.Binds[1].Body.(RecordExpr)
	if !ok || len(rec.Fields) != 2 {
		t.Fatalf("bind[1] body = %#v", let.Binds[1].Body)
	}

	ifE, ok := let.Body.(IfExpr)
	if !ok {
		t.Fatalf("let body = %T", let.Body)
	}
	call, ok := ifE.Then.(AppExpr)
	if !ok {
		t.Fatalf("then = %#v", ifE.Then)
	}
	access, ok := call.Args[0].(AccessExpr)
	if !ok || access.Field != "width" {
		t.Errorf("call arg = %#v, want base.width", call.Args[0])
	}

	outer, ok := m.Decls[1].(ValueDecl).Body.(AppExpr)
	if !ok {
		t.Fatalf("double body = %T", m.Decls[1].(ValueDecl).Body)
	}
	lam, ok := outer.Args[0].(LambdaExpr)
	if !ok || len(lam.Params) != 1 || lam.Params[0] != "x" {
		t.Fatalf("lambda = %#v", outer.Args[0])
	}
	if _, ok := lam.Body.(BinExpr); !ok {
		t.Errorf("lambda body = %T", lam.Body)
	}
}

func TestListAndConsPatterns(t *testing.T) {
	m := mustParse(t, `module M exposing (..)

total xs =
    case xs of
        [] ->
            0

        [ x ] ->
            x

        x :: rest ->
            x + total rest
`)
	ce := m.Decls[0].(ValueDecl).Body.(CaseExpr)
	if len(ce.Branches) != 3 {
		t.Fatalf("branches = %d", len(ce.Branches))
	}
	if lp, ok := ce.Branches[0].Pat.(ListPat); !ok || len(lp.Elems) != 0 {
		t.Errorf("branch[0] = %#v", ce.Branches[0].Pat)
	}
	if lp, ok := ce.Branches[1].Pat.(ListPat); !ok || len(lp.Elems) != 1 {
		t.Errorf("branch[1] = %#v", ce.Branches[1].Pat)
	}
	cons, ok := ce.Branches[2].Pat.(ConsPat)
	if !ok {
		t.Fatalf("branch[2] = %#v", ce.Branches[2].Pat)
	}
	if _, ok := cons.Head.(VarPat); !ok {
		t.Errorf("cons head = %T", cons.Head)
	}
	if _, ok := cons.Tail.(VarPat); !ok {
		t.Errorf("cons tail = %T", cons.Tail)
	}
}

func TestNestedFieldAccess(t *testing.T) {
	m := mustParse(t, `module M exposing (..)

v = r.x.y
`)
	outer, ok := m.Decls[0].(ValueDecl).Body.(AccessExpr)
	if !ok || outer.Field != "y" {
		t.Fatalf("body = %#v", m.Decls[0].(ValueDecl).Body)
	}
	inner, ok := outer.X.(AccessExpr)
	if !ok || inner.Field != "x" {
		t.Fatalf("inner = %#v", outer.X)
	}
	if base, ok := inner.X.(NameExpr); !ok || base.Name != "r" {
		t.Errorf("base = %#v", inner.X)
	}
}

func TestDiagnosticsAreBatchedPerFile(t *testing.T) {
	ds := parseDiags(t, `module Broken exposing (..)

size = = 1

count =
`)
	if len(ds) != 2 {
		t.Fatalf("diagnostics = %d (%v), want 2", len(ds), ds)
	}
	if ds[0].Line != 3 || ds[0].Col != 8 {
		t.Errorf("first diagnostic at %d:%d, want 3:8", ds[0].Line, ds[0].Col)
	}
	if !strings.Contains(ds[0].Message, "expected an expression") {
		t.Errorf("first message = %q", ds[0].Message)
	}
	if !strings.Contains(ds.Error(), "and 1 more") {
		t.Errorf("Error() = %q", ds.Error())
	}
}

func TestAnnotationWithoutDefinition(t *testing.T) {
	ds := parseDiags(t, `module A exposing (..)

size : Int

other = 1
`)
	if len(ds) != 1 {
		t.Fatalf("diagnostics = %v", ds)
	}
	if !strings.Contains(ds[0].Message, `"size"`) {
		t.Errorf("message = %q", ds[0].Message)
	}
}

func TestTopLevelIndentationRejected(t *testing.T) {
	ds := parseDiags(t, `module A exposing (..)

  stray = 1
`)
	if len(ds) != 1 {
		t.Fatalf("diagnostics = %v", ds)
	}
	if !strings.Contains(ds[0].Message, "indentation") {
		t.Errorf("message = %q", ds[0].Message)
	}
}

func TestMissingHeader(t *testing.T) {
	ds := parseDiags(t, `size = 1
`)
	if len(ds) == 0 {
		t.Fatal("no diagnostics for missing header")
	}
	if !strings.Contains(ds[0].Message, "module header") {
		t.Errorf("message = %q", ds[0].Message)
	}
}
