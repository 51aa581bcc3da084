package resolver

import (
	"reflect"
	"testing"

	"loom/internal/engine/ir"
	"loom/internal/engine/parser"
)

func contextAndModule(t *testing.T, src string) (*Context, *parser.Module) {
	t.Helper()
	m := parseModule(t, src)
	ctx, err := NewContext(Config{
		Package:  "app",
		Module:   m,
		Exports:  fixtureExports(),
		Implicit: sdkImplicit(),
	})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return ctx, m
}

func TestMapValueCurriesOperatorsAndApps(t *testing.T) {
	ctx, m := contextAndModule(t, `module Main exposing (..)

import Lib exposing (size)

double x = size x + x
`)
	def, err := ctx.MapValueDecl(m.Decls[0].(parser.ValueDecl))
	if err != nil {
		t.Fatalf("MapValueDecl: %v", err)
	}
	if len(def.Params) != 1 || def.Params[0] != "x" {
		t.Errorf("params = %v", def.Params)
	}
	plus := ir.ValueRef{Ref: fq("loom.sdk", "Basics", "+")}
	size := ir.ValueRef{Ref: fq("app", "Lib", "size")}
	want := ir.Apply{
		Fn:  ir.Apply{Fn: plus, Arg: ir.Apply{Fn: size, Arg: ir.VarRef{Name: "x"}}},
		Arg: ir.VarRef{Name: "x"},
	}
	if !reflect.DeepEqual(def.Body, want) {
		t.Errorf("body = %#v\nwant   %#v", def.Body, want)
	}
}

func TestMapLambdaParamShadowsTopLevel(t *testing.T) {
	ctx, m := contextAndModule(t, `module Main exposing (..)

size = 1

make = \size -> size
`)
	def, err := ctx.MapValueDecl(m.Decls[1].(parser.ValueDecl))
	if err != nil {
		t.Fatalf("MapValueDecl: %v", err)
	}
	want := ir.Lambda{Params: []string{"size"}, Body: ir.VarRef{Name: "size"}}
	if !reflect.DeepEqual(def.Body, want) {
		t.Errorf("body = %#v, want %#v", def.Body, want)
	}
}

func TestMapLetBindingsSeeEachOther(t *testing.T) {
	ctx, m := contextAndModule(t, `module Main exposing (..)

loop n =
    let
        go k = next (go k)
        next k = k
    in
    go n
`)
	def, err := ctx.MapValueDecl(m.Decls[0].(parser.ValueDecl))
	if err != nil {
		t.Fatalf("MapValueDecl: %v", err)
	}
	want := ir.LetIn{
		Bindings: []ir.LetBinding{
			{Name: "go", Params: []string{"k"}, Body: ir.Apply{
				Fn:  ir.VarRef{Name: "next"},
				Arg: ir.Apply{Fn: ir.VarRef{Name: "go"}, Arg: ir.VarRef{Name: "k"}},
			}},
			{Name: "next", Params: []string{"k"}, Body: ir.VarRef{Name: "k"}},
		},
		Body: ir.Apply{Fn: ir.VarRef{Name: "go"}, Arg: ir.VarRef{Name: "n"}},
	}
	if !reflect.DeepEqual(def.Body, want) {
		t.Errorf("body = %#v\nwant   %#v", def.Body, want)
	}
}

func TestMapCasePatternsAndRecursion(t *testing.T) {
	ctx, m := contextAndModule(t, `module Main exposing (..)

total xs =
    case xs of
        [] ->
            0

        x :: rest ->
            x + total rest
`)
	def, err := ctx.MapValueDecl(m.Decls[0].(parser.ValueDecl))
	if err != nil {
		t.Fatalf("MapValueDecl: %v", err)
	}
	plus := ir.ValueRef{Ref: fq("loom.sdk", "Basics", "+")}
	want := ir.CaseExpr{
		Subject: ir.VarRef{Name: "xs"},
		Branches: []ir.CaseBranch{
			{Pattern: ir.ListPat{}, Body: ir.BasicLit{Kind: ir.LitInt, Value: "0"}},
			{
				Pattern: ir.ConsPat{Head: ir.VarPat{Name: "x"}, Tail: ir.VarPat{Name: "rest"}},
				Body: ir.Apply{
					Fn:  ir.Apply{Fn: plus, Arg: ir.VarRef{Name: "x"}},
					Arg: ir.Apply{Fn: ir.ValueRef{Ref: fq("app", "Main", "total")}, Arg: ir.VarRef{Name: "rest"}},
				},
			},
		},
	}
	if !reflect.DeepEqual(def.Body, want) {
		t.Errorf("body = %#v\nwant   %#v", def.Body, want)
	}
}

func TestMapCtorPatternsResolveThroughImport(t *testing.T) {
	ctx, m := contextAndModule(t, `module Main exposing (..)

import Lib exposing (Shape(..))

flip s =
    case s of
        Circle ->
            Square

        Square ->
            Circle
`)
	def, err := ctx.MapValueDecl(m.Decls[0].(parser.ValueDecl))
	if err != nil {
		t.Fatalf("MapValueDecl: %v", err)
	}
	circle := fq("app", "Lib", "circle")
	square := fq("app", "Lib", "square")
	want := ir.CaseExpr{
		Subject: ir.VarRef{Name: "s"},
		Branches: []ir.CaseBranch{
			{Pattern: ir.CtorPat{Ref: circle}, Body: ir.CtorRef{Ref: square}},
			{Pattern: ir.CtorPat{Ref: square}, Body: ir.CtorRef{Ref: circle}},
		},
	}
	if !reflect.DeepEqual(def.Body, want) {
		t.Errorf("body = %#v\nwant   %#v", def.Body, want)
	}
}

func TestMapQualifiedCtorExpression(t *testing.T) {
	ctx, m := contextAndModule(t, `module Main exposing (..)

import Lib

make = Lib.Circle
`)
	def, err := ctx.MapValueDecl(m.Decls[0].(parser.ValueDecl))
	if err != nil {
		t.Fatalf("MapValueDecl: %v", err)
	}
	want := ir.CtorRef{Ref: fq("app", "Lib", "circle")}
	if !reflect.DeepEqual(def.Body, want) {
		t.Errorf("body = %#v, want %#v", def.Body, want)
	}
}

func TestMapConsOperatorIsConstructor(t *testing.T) {
	ctx, m := contextAndModule(t, `module Main exposing (..)

push x xs = x :: xs
`)
	def, err := ctx.MapValueDecl(m.Decls[0].(parser.ValueDecl))
	if err != nil {
		t.Fatalf("MapValueDecl: %v", err)
	}
	want := ir.Apply{
		Fn:  ir.Apply{Fn: ir.CtorRef{Ref: fq("loom.sdk", "List", "::")}, Arg: ir.VarRef{Name: "x"}},
		Arg: ir.VarRef{Name: "xs"},
	}
	if !reflect.DeepEqual(def.Body, want) {
		t.Errorf("body = %#v, want %#v", def.Body, want)
	}
}

func TestMapAnnotationAndAlias(t *testing.T) {
	ctx, m := contextAndModule(t, `module Main exposing (..)

import Lib exposing (Shape)

area : Shape -> Int
area s = 0

type alias Pair = ( Int, Int )
`)
	def, err := ctx.MapValueDecl(m.Decls[0].(parser.ValueDecl))
	if err != nil {
		t.Fatalf("MapValueDecl: %v", err)
	}
	intRef := ir.TypeReference{Ref: fq("loom.sdk", "Basics", "int")}
	wantAnn := ir.TypeFunction{
		Param:  ir.TypeReference{Ref: fq("app", "Lib", "shape")},
		Result: intRef,
	}
	if !reflect.DeepEqual(def.Annotation, wantAnn) {
		t.Errorf("annotation = %#v, want %#v", def.Annotation, wantAnn)
	}

	alias, err := ctx.MapAliasDecl(m.Decls[1].(parser.AliasDecl))
	if err != nil {
		t.Fatalf("MapAliasDecl: %v", err)
	}
	wantAlias := ir.AliasDefinition{Target: ir.TypeTuple{Elems: []ir.Type{intRef, intRef}}}
	if !reflect.DeepEqual(alias, wantAlias) {
		t.Errorf("alias = %#v, want %#v", alias, wantAlias)
	}
}

func TestMapUnionWithSelfReference(t *testing.T) {
	ctx, m := contextAndModule(t, `module Main exposing (..)

type Tree a
    = Leaf
    | Node a (List (Tree a))
`)
	def, err := ctx.MapUnionDecl(m.Decls[0].(parser.UnionDecl))
	if err != nil {
		t.Fatalf("MapUnionDecl: %v", err)
	}
	want := ir.CustomDefinition{
		Params: []string{"a"},
		Constructors: []ir.Constructor{
			{Name: "Leaf"},
			{Name: "Node", Args: []ir.Type{
				ir.TypeVariable{Name: "a"},
				ir.TypeReference{Ref: fq("loom.sdk", "List", "list"), Args: []ir.Type{
					ir.TypeReference{Ref: fq("app", "Main", "tree"), Args: []ir.Type{ir.TypeVariable{Name: "a"}}},
				}},
			}},
		},
	}
	if !reflect.DeepEqual(def, want) {
		t.Errorf("definition = %#v\nwant        %#v", def, want)
	}
}

func TestMapReportsUnresolvedValue(t *testing.T) {
	ctx, m := contextAndModule(t, `module Main exposing (..)

use = phantom
`)
	_, err := ctx.MapValueDecl(m.Decls[0].(parser.ValueDecl))
	rerr := wantReason(t, err, ReasonUnresolved)
	if rerr.Kind != ir.KindValue || rerr.Name != "phantom" {
		t.Errorf("error = %+v", rerr)
	}
}

func TestMapReportsUnresolvedAnnotationType(t *testing.T) {
	ctx, m := contextAndModule(t, `module Main exposing (..)

wrong : Phantom
wrong = 0
`)
	_, err := ctx.MapValueDecl(m.Decls[0].(parser.ValueDecl))
	rerr := wantReason(t, err, ReasonUnresolved)
	if rerr.Kind != ir.KindType || rerr.Name != "Phantom" {
		t.Errorf("error = %+v", rerr)
	}
}
