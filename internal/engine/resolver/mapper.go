package resolver

import (
	"fmt"

	"loom/internal/engine/ir"
	"loom/internal/engine/parser"
)

// scope tracks locally bound variable names with a count per name, so
// shadowing pushes and pops restore the outer binding.
type scope map[string]int

func (s scope) push(names ...string) {
	for _, n := range names {
		s[n]++
	}
}

func (s scope) pop(names ...string) {
	for _, n := range names {
		if s[n] <= 1 {
			delete(s, n)
			continue
		}
		s[n]--
	}
}

func (s scope) has(n string) bool { return s[n] > 0 }

// MapAliasDecl resolves an alias declaration's target type.
func (c *Context) MapAliasDecl(d parser.AliasDecl) (ir.AliasDefinition, error) {
	target, err := c.MapTypeExpr(d.Target)
	if err != nil {
		return ir.AliasDefinition{}, err
	}
	return ir.AliasDefinition{Params: d.Params, Target: target}, nil
}

// MapUnionDecl resolves the argument types of every constructor.
func (c *Context) MapUnionDecl(d parser.UnionDecl) (ir.CustomDefinition, error) {
	def := ir.CustomDefinition{Params: d.Params}
	for _, ctor := range d.Ctors {
		out := ir.Constructor{Name: ctor.Name}
		for _, arg := range ctor.Args {
			t, err := c.MapTypeExpr(arg)
			if err != nil {
				return ir.CustomDefinition{}, err
			}
			out.Args = append(out.Args, t)
		}
		def.Constructors = append(def.Constructors, out)
	}
	return def, nil
}

// MapValueDecl resolves a top-level value: the optional annotation and the
// body with the declaration's parameters in scope. The declaration's own
// name resolves through the local table, so recursion needs no special
// case.
func (c *Context) MapValueDecl(d parser.ValueDecl) (ir.ValueDefinition, error) {
	def := ir.ValueDefinition{Params: d.Params}
	if d.Annotation != nil {
		ann, err := c.MapTypeExpr(d.Annotation)
		if err != nil {
			return ir.ValueDefinition{}, err
		}
		def.Annotation = ann
	}
	sc := scope{}
	sc.push(d.Params...)
	body, err := c.mapExpr(d.Body, sc)
	if err != nil {
		return ir.ValueDefinition{}, err
	}
	def.Body = body
	return def, nil
}

// MapTypeExpr resolves every named type in the expression. Type variables
// pass through without scope checking; annotations quantify them
// implicitly.
func (c *Context) MapTypeExpr(t parser.TypeExpr) (ir.Type, error) {
	switch x := t.(type) {
	case parser.TName:
		fq, err := c.Resolve(ir.KindType, x.Qual, x.Name, x.Pos)
		if err != nil {
			return nil, err
		}
		ref := ir.TypeReference{Ref: fq}
		for _, arg := range x.Args {
			at, err := c.MapTypeExpr(arg)
			if err != nil {
				return nil, err
			}
			ref.Args = append(ref.Args, at)
		}
		return ref, nil
	case parser.TVar:
		return ir.TypeVariable{Name: x.Name}, nil
	case parser.TTuple:
		tuple := ir.TypeTuple{}
		for _, el := range x.Elems {
			et, err := c.MapTypeExpr(el)
			if err != nil {
				return nil, err
			}
			tuple.Elems = append(tuple.Elems, et)
		}
		return tuple, nil
	case parser.TRecord:
		rec := ir.TypeRecord{}
		for _, f := range x.Fields {
			ft, err := c.MapTypeExpr(f.Type)
			if err != nil {
				return nil, err
			}
			rec.Fields = append(rec.Fields, ir.RecordField{Name: f.Name, Type: ft})
		}
		return rec, nil
	case parser.TFunc:
		param, err := c.MapTypeExpr(x.Param)
		if err != nil {
			return nil, err
		}
		result, err := c.MapTypeExpr(x.Result)
		if err != nil {
			return nil, err
		}
		return ir.TypeFunction{Param: param, Result: result}, nil
	case parser.TUnit:
		return ir.TypeUnit{}, nil
	}
	return nil, fmt.Errorf("resolver: unhandled type expression %T", t)
}

func (c *Context) mapExpr(e parser.Expr, sc scope) (ir.Value, error) {
	switch x := e.(type) {
	case parser.LitExpr:
		return ir.BasicLit{Kind: litKind(x.Kind), Value: x.Text}, nil
	case parser.NameExpr:
		return c.mapName(x, sc)
	case parser.BinExpr:
		op, err := c.mapOperator(x.Op, x.OpPos)
		if err != nil {
			return nil, err
		}
		l, err := c.mapExpr(x.L, sc)
		if err != nil {
			return nil, err
		}
		r, err := c.mapExpr(x.R, sc)
		if err != nil {
			return nil, err
		}
		return ir.Apply{Fn: ir.Apply{Fn: op, Arg: l}, Arg: r}, nil
	case parser.AppExpr:
		fn, err := c.mapExpr(x.Fn, sc)
		if err != nil {
			return nil, err
		}
		for _, arg := range x.Args {
			av, err := c.mapExpr(arg, sc)
			if err != nil {
				return nil, err
			}
			fn = ir.Apply{Fn: fn, Arg: av}
		}
		return fn, nil
	case parser.ListExpr:
		list := ir.ListLit{}
		for _, el := range x.Elems {
			ev, err := c.mapExpr(el, sc)
			if err != nil {
				return nil, err
			}
			list.Elems = append(list.Elems, ev)
		}
		return list, nil
	case parser.TupleExpr:
		tuple := ir.TupleLit{}
		for _, el := range x.Elems {
			ev, err := c.mapExpr(el, sc)
			if err != nil {
				return nil, err
			}
			tuple.Elems = append(tuple.Elems, ev)
		}
		return tuple, nil
	case parser.RecordExpr:
		rec := ir.RecordLit{}
		for _, f := range x.Fields {
			fv, err := c.mapExpr(f.Value, sc)
			if err != nil {
				return nil, err
			}
			rec.Fields = append(rec.Fields, ir.ValueField{Name: f.Name, Value: fv})
		}
		return rec, nil
	case parser.AccessExpr:
		recv, err := c.mapExpr(x.X, sc)
		if err != nil {
			return nil, err
		}
		return ir.FieldAccess{Record: recv, Field: x.Field}, nil
	case parser.LambdaExpr:
		sc.push(x.Params...)
		body, err := c.mapExpr(x.Body, sc)
		if err != nil {
			return nil, err
		}
		sc.pop(x.Params...)
		return ir.Lambda{Params: x.Params, Body: body}, nil
	case parser.LetExpr:
		return c.mapLet(x, sc)
	case parser.IfExpr:
		cond, err := c.mapExpr(x.Cond, sc)
		if err != nil {
			return nil, err
		}
		then, err := c.mapExpr(x.Then, sc)
		if err != nil {
			return nil, err
		}
		els, err := c.mapExpr(x.Else, sc)
		if err != nil {
			return nil, err
		}
		return ir.IfExpr{Cond: cond, Then: then, Else: els}, nil
	case parser.CaseExpr:
		return c.mapCase(x, sc)
	case parser.UnitExpr:
		return ir.UnitLit{}, nil
	}
	return nil, fmt.Errorf("resolver: unhandled expression %T", e)
}

func (c *Context) mapName(x parser.NameExpr, sc scope) (ir.Value, error) {
	if isUpperName(x.Name) {
		fq, err := c.Resolve(ir.KindCtor, x.Qual, x.Name, x.Pos)
		if err != nil {
			return nil, err
		}
		return ir.CtorRef{Ref: fq}, nil
	}
	// Local bindings shadow everything, but only unqualified.
	if x.Qual == "" && sc.has(x.Name) {
		return ir.VarRef{Name: x.Name}, nil
	}
	fq, err := c.Resolve(ir.KindValue, x.Qual, x.Name, x.Pos)
	if err != nil {
		return nil, err
	}
	return ir.ValueRef{Ref: fq}, nil
}

// mapOperator resolves a binary operator to the function (or constructor,
// for cons) it names, unqualified like any other reference.
func (c *Context) mapOperator(op string, pos parser.Pos) (ir.Value, error) {
	if op == "::" {
		fq, err := c.Resolve(ir.KindCtor, "", op, pos)
		if err != nil {
			return nil, err
		}
		return ir.CtorRef{Ref: fq}, nil
	}
	fq, err := c.Resolve(ir.KindValue, "", op, pos)
	if err != nil {
		return nil, err
	}
	return ir.ValueRef{Ref: fq}, nil
}

// mapLet brings every binding name into scope before mapping any body, so
// bindings may refer to each other and to themselves regardless of order.
func (c *Context) mapLet(x parser.LetExpr, sc scope) (ir.Value, error) {
	names := make([]string, len(x.Binds))
	for i, b := range x.Binds {
		names[i] = b.Name
	}
	sc.push(names...)
	out := ir.LetIn{Bindings: make([]ir.LetBinding, 0, len(x.Binds))}
	for _, b := range x.Binds {
		sc.push(b.Params...)
		body, err := c.mapExpr(b.Body, sc)
		if err != nil {
			return nil, err
		}
		sc.pop(b.Params...)
		out.Bindings = append(out.Bindings, ir.LetBinding{Name: b.Name, Params: b.Params, Body: body})
	}
	body, err := c.mapExpr(x.Body, sc)
	if err != nil {
		return nil, err
	}
	sc.pop(names...)
	out.Body = body
	return out, nil
}

func (c *Context) mapCase(x parser.CaseExpr, sc scope) (ir.Value, error) {
	subject, err := c.mapExpr(x.Subject, sc)
	if err != nil {
		return nil, err
	}
	out := ir.CaseExpr{Subject: subject}
	for _, br := range x.Branches {
		pat, bound, err := c.mapPattern(br.Pat)
		if err != nil {
			return nil, err
		}
		sc.push(bound...)
		body, err := c.mapExpr(br.Body, sc)
		if err != nil {
			return nil, err
		}
		sc.pop(bound...)
		out.Branches = append(out.Branches, ir.CaseBranch{Pattern: pat, Body: body})
	}
	return out, nil
}

// mapPattern resolves constructor patterns and reports the variable names
// the pattern binds, in left-to-right order.
func (c *Context) mapPattern(p parser.Pattern) (ir.Pattern, []string, error) {
	switch x := p.(type) {
	case parser.WildPat:
		return ir.WildcardPat{}, nil, nil
	case parser.VarPat:
		return ir.VarPat{Name: x.Name}, []string{x.Name}, nil
	case parser.LitPat:
		return ir.LitPat{Lit: ir.BasicLit{Kind: litKind(x.Kind), Value: x.Text}}, nil, nil
	case parser.CtorPat:
		fq, err := c.Resolve(ir.KindCtor, x.Qual, x.Name, x.Pos)
		if err != nil {
			return nil, nil, err
		}
		out := ir.CtorPat{Ref: fq}
		var names []string
		for _, arg := range x.Args {
			ap, an, err := c.mapPattern(arg)
			if err != nil {
				return nil, nil, err
			}
			out.Args = append(out.Args, ap)
			names = append(names, an...)
		}
		return out, names, nil
	case parser.TuplePat:
		out := ir.TuplePat{}
		var names []string
		for _, el := range x.Elems {
			ep, en, err := c.mapPattern(el)
			if err != nil {
				return nil, nil, err
			}
			out.Elems = append(out.Elems, ep)
			names = append(names, en...)
		}
		return out, names, nil
	case parser.ConsPat:
		head, hn, err := c.mapPattern(x.Head)
		if err != nil {
			return nil, nil, err
		}
		tail, tn, err := c.mapPattern(x.Tail)
		if err != nil {
			return nil, nil, err
		}
		return ir.ConsPat{Head: head, Tail: tail}, append(hn, tn...), nil
	case parser.ListPat:
		out := ir.ListPat{}
		var names []string
		for _, el := range x.Elems {
			ep, en, err := c.mapPattern(el)
			if err != nil {
				return nil, nil, err
			}
			out.Elems = append(out.Elems, ep)
			names = append(names, en...)
		}
		return out, names, nil
	}
	return nil, nil, fmt.Errorf("resolver: unhandled pattern %T", p)
}

func litKind(k parser.LitKind) ir.LitKind {
	switch k {
	case parser.LitFloat:
		return ir.LitFloat
	case parser.LitString:
		return ir.LitString
	case parser.LitChar:
		return ir.LitChar
	}
	return ir.LitInt
}
