package ir

import (
	"encoding/json"
	"fmt"
)

// The wire form is a kind-tagged tree so snapshots stay readable and stable
// across schema versions. Containers convert through the helpers below
// instead of marshalling interface values directly.

func MarshalType(t Type) ([]byte, error) {
	return json.Marshal(encodeType(t))
}

func UnmarshalType(data []byte) (Type, error) {
	var n typeNode
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return decodeType(&n)
}

func MarshalTypeDefinition(d TypeDefinition) ([]byte, error) {
	n, err := encodeTypeDef(d)
	if err != nil {
		return nil, err
	}
	return json.Marshal(n)
}

func UnmarshalTypeDefinition(data []byte) (TypeDefinition, error) {
	var n typeDefNode
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return decodeTypeDef(&n)
}

func MarshalValue(v Value) ([]byte, error) {
	return json.Marshal(encodeValue(v))
}

func UnmarshalValue(data []byte) (Value, error) {
	var n valueNode
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return decodeValue(&n)
}

func MarshalValueDefinition(d ValueDefinition) ([]byte, error) {
	n := valueDefNode{Params: d.Params, Body: encodeValue(d.Body)}
	if d.Annotation != nil {
		n.Annotation = encodeType(d.Annotation)
	}
	return json.Marshal(&n)
}

func UnmarshalValueDefinition(data []byte) (ValueDefinition, error) {
	var n valueDefNode
	if err := json.Unmarshal(data, &n); err != nil {
		return ValueDefinition{}, err
	}
	d := ValueDefinition{Params: n.Params}
	if n.Annotation != nil {
		t, err := decodeType(n.Annotation)
		if err != nil {
			return ValueDefinition{}, err
		}
		d.Annotation = t
	}
	if n.Body == nil {
		return ValueDefinition{}, fmt.Errorf("value definition without body")
	}
	v, err := decodeValue(n.Body)
	if err != nil {
		return ValueDefinition{}, err
	}
	d.Body = v
	return d, nil
}

type typeNode struct {
	Kind   string      `json:"kind"`
	Name   string      `json:"name,omitempty"`
	Ref    *FQName     `json:"ref,omitempty"`
	Args   []*typeNode `json:"args,omitempty"`
	Fields []fieldNode `json:"fields,omitempty"`
	Param  *typeNode   `json:"param,omitempty"`
	Result *typeNode   `json:"result,omitempty"`
}

type fieldNode struct {
	Name string    `json:"name"`
	Type *typeNode `json:"type"`
}

func encodeType(t Type) *typeNode {
	switch tt := t.(type) {
	case TypeVariable:
		return &typeNode{Kind: "var", Name: tt.Name}
	case TypeReference:
		n := &typeNode{Kind: "ref", Ref: &tt.Ref}
		for _, a := range tt.Args {
			n.Args = append(n.Args, encodeType(a))
		}
		return n
	case TypeTuple:
		n := &typeNode{Kind: "tuple"}
		for _, e := range tt.Elems {
			n.Args = append(n.Args, encodeType(e))
		}
		return n
	case TypeRecord:
		n := &typeNode{Kind: "record"}
		for _, f := range tt.Fields {
			n.Fields = append(n.Fields, fieldNode{Name: f.Name, Type: encodeType(f.Type)})
		}
		return n
	case TypeFunction:
		return &typeNode{Kind: "func", Param: encodeType(tt.Param), Result: encodeType(tt.Result)}
	case TypeUnit:
		return &typeNode{Kind: "unit"}
	}
	return nil
}

func decodeType(n *typeNode) (Type, error) {
	if n == nil {
		return nil, fmt.Errorf("missing type node")
	}
	switch n.Kind {
	case "var":
		return TypeVariable{Name: n.Name}, nil
	case "ref":
		if n.Ref == nil {
			return nil, fmt.Errorf("type ref without target")
		}
		t := TypeReference{Ref: *n.Ref}
		for _, a := range n.Args {
			at, err := decodeType(a)
			if err != nil {
				return nil, err
			}
			t.Args = append(t.Args, at)
		}
		return t, nil
	case "tuple":
		t := TypeTuple{}
		for _, e := range n.Args {
			et, err := decodeType(e)
			if err != nil {
				return nil, err
			}
			t.Elems = append(t.Elems, et)
		}
		return t, nil
	case "record":
		t := TypeRecord{}
		for _, f := range n.Fields {
			ft, err := decodeType(f.Type)
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, RecordField{Name: f.Name, Type: ft})
		}
		return t, nil
	case "func":
		p, err := decodeType(n.Param)
		if err != nil {
			return nil, err
		}
		r, err := decodeType(n.Result)
		if err != nil {
			return nil, err
		}
		return TypeFunction{Param: p, Result: r}, nil
	case "unit":
		return TypeUnit{}, nil
	}
	return nil, fmt.Errorf("unknown type kind %q", n.Kind)
}

type typeDefNode struct {
	Kind   string     `json:"kind"`
	Params []string   `json:"params,omitempty"`
	Target *typeNode  `json:"target,omitempty"`
	Ctors  []ctorNode `json:"ctors,omitempty"`
}

type ctorNode struct {
	Name string      `json:"name"`
	Args []*typeNode `json:"args,omitempty"`
}

func encodeTypeDef(d TypeDefinition) (*typeDefNode, error) {
	switch def := d.(type) {
	case AliasDefinition:
		return &typeDefNode{Kind: "alias", Params: def.Params, Target: encodeType(def.Target)}, nil
	case CustomDefinition:
		n := &typeDefNode{Kind: "custom", Params: def.Params}
		for _, c := range def.Constructors {
			cn := ctorNode{Name: c.Name}
			for _, a := range c.Args {
				cn.Args = append(cn.Args, encodeType(a))
			}
			n.Ctors = append(n.Ctors, cn)
		}
		return n, nil
	}
	return nil, fmt.Errorf("unknown type definition %T", d)
}

func decodeTypeDef(n *typeDefNode) (TypeDefinition, error) {
	switch n.Kind {
	case "alias":
		t, err := decodeType(n.Target)
		if err != nil {
			return nil, err
		}
		return AliasDefinition{Params: n.Params, Target: t}, nil
	case "custom":
		d := CustomDefinition{Params: n.Params}
		for _, cn := range n.Ctors {
			c := Constructor{Name: cn.Name}
			for _, a := range cn.Args {
				at, err := decodeType(a)
				if err != nil {
					return nil, err
				}
				c.Args = append(c.Args, at)
			}
			d.Constructors = append(d.Constructors, c)
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown type definition kind %q", n.Kind)
}

type valueDefNode struct {
	Params     []string   `json:"params,omitempty"`
	Annotation *typeNode  `json:"annotation,omitempty"`
	Body       *valueNode `json:"body"`
}

type valueNode struct {
	Kind     string        `json:"kind"`
	Lit      *litNode      `json:"lit,omitempty"`
	Name     string        `json:"name,omitempty"`
	Ref      *FQName       `json:"ref,omitempty"`
	Elems    []*valueNode  `json:"elems,omitempty"`
	Fields   []valueField  `json:"fields,omitempty"`
	Record   *valueNode    `json:"record,omitempty"`
	Field    string        `json:"field,omitempty"`
	Fn       *valueNode    `json:"fn,omitempty"`
	Arg      *valueNode    `json:"arg,omitempty"`
	Params   []string      `json:"params,omitempty"`
	Body     *valueNode    `json:"body,omitempty"`
	Bindings []bindingNode `json:"bindings,omitempty"`
	Cond     *valueNode    `json:"cond,omitempty"`
	Then     *valueNode    `json:"then,omitempty"`
	Else     *valueNode    `json:"else,omitempty"`
	Subject  *valueNode    `json:"subject,omitempty"`
	Branches []branchNode  `json:"branches,omitempty"`
}

type litNode struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type valueField struct {
	Name  string     `json:"name"`
	Value *valueNode `json:"value"`
}

type bindingNode struct {
	Name   string     `json:"name"`
	Params []string   `json:"params,omitempty"`
	Body   *valueNode `json:"body"`
}

type branchNode struct {
	Pattern *patternNode `json:"pattern"`
	Body    *valueNode   `json:"body"`
}

type patternNode struct {
	Kind  string         `json:"kind"`
	Name  string         `json:"name,omitempty"`
	Lit   *litNode       `json:"lit,omitempty"`
	Ref   *FQName        `json:"ref,omitempty"`
	Args  []*patternNode `json:"args,omitempty"`
	Head  *patternNode   `json:"head,omitempty"`
	Tail  *patternNode   `json:"tail,omitempty"`
	Elems []*patternNode `json:"elems,omitempty"`
}

func encodeLit(l BasicLit) *litNode {
	return &litNode{Kind: l.Kind.String(), Value: l.Value}
}

func decodeLit(n *litNode) (BasicLit, error) {
	if n == nil {
		return BasicLit{}, fmt.Errorf("missing literal")
	}
	switch n.Kind {
	case "int":
		return BasicLit{Kind: LitInt, Value: n.Value}, nil
	case "float":
		return BasicLit{Kind: LitFloat, Value: n.Value}, nil
	case "string":
		return BasicLit{Kind: LitString, Value: n.Value}, nil
	case "char":
		return BasicLit{Kind: LitChar, Value: n.Value}, nil
	}
	return BasicLit{}, fmt.Errorf("unknown literal kind %q", n.Kind)
}

func encodeValue(v Value) *valueNode {
	switch vv := v.(type) {
	case BasicLit:
		return &valueNode{Kind: "lit", Lit: encodeLit(vv)}
	case VarRef:
		return &valueNode{Kind: "local", Name: vv.Name}
	case ValueRef:
		return &valueNode{Kind: "value", Ref: &vv.Ref}
	case CtorRef:
		return &valueNode{Kind: "ctor", Ref: &vv.Ref}
	case TupleLit:
		n := &valueNode{Kind: "tuple"}
		for _, e := range vv.Elems {
			n.Elems = append(n.Elems, encodeValue(e))
		}
		return n
	case ListLit:
		n := &valueNode{Kind: "list"}
		for _, e := range vv.Elems {
			n.Elems = append(n.Elems, encodeValue(e))
		}
		return n
	case RecordLit:
		n := &valueNode{Kind: "record"}
		for _, f := range vv.Fields {
			n.Fields = append(n.Fields, valueField{Name: f.Name, Value: encodeValue(f.Value)})
		}
		return n
	case FieldAccess:
		return &valueNode{Kind: "access", Record: encodeValue(vv.Record), Field: vv.Field}
	case Apply:
		return &valueNode{Kind: "apply", Fn: encodeValue(vv.Fn), Arg: encodeValue(vv.Arg)}
	case Lambda:
		return &valueNode{Kind: "lambda", Params: vv.Params, Body: encodeValue(vv.Body)}
	case LetIn:
		n := &valueNode{Kind: "let", Body: encodeValue(vv.Body)}
		for _, b := range vv.Bindings {
			n.Bindings = append(n.Bindings, bindingNode{Name: b.Name, Params: b.Params, Body: encodeValue(b.Body)})
		}
		return n
	case IfExpr:
		return &valueNode{Kind: "if", Cond: encodeValue(vv.Cond), Then: encodeValue(vv.Then), Else: encodeValue(vv.Else)}
	case CaseExpr:
		n := &valueNode{Kind: "case", Subject: encodeValue(vv.Subject)}
		for _, b := range vv.Branches {
			n.Branches = append(n.Branches, branchNode{Pattern: encodePattern(b.Pattern), Body: encodeValue(b.Body)})
		}
		return n
	case UnitLit:
		return &valueNode{Kind: "unit"}
	}
	return nil
}

func decodeValue(n *valueNode) (Value, error) {
	if n == nil {
		return nil, fmt.Errorf("missing value node")
	}
	switch n.Kind {
	case "lit":
		l, err := decodeLit(n.Lit)
		if err != nil {
			return nil, err
		}
		return l, nil
	case "local":
		return VarRef{Name: n.Name}, nil
	case "value":
		if n.Ref == nil {
			return nil, fmt.Errorf("value ref without target")
		}
		return ValueRef{Ref: *n.Ref}, nil
	case "ctor":
		if n.Ref == nil {
			return nil, fmt.Errorf("ctor ref without target")
		}
		return CtorRef{Ref: *n.Ref}, nil
	case "tuple":
		v := TupleLit{}
		for _, e := range n.Elems {
			ev, err := decodeValue(e)
			if err != nil {
				return nil, err
			}
			v.Elems = append(v.Elems, ev)
		}
		return v, nil
	case "list":
		v := ListLit{}
		for _, e := range n.Elems {
			ev, err := decodeValue(e)
			if err != nil {
				return nil, err
			}
			v.Elems = append(v.Elems, ev)
		}
		return v, nil
	case "record":
		v := RecordLit{}
		for _, f := range n.Fields {
			fv, err := decodeValue(f.Value)
			if err != nil {
				return nil, err
			}
			v.Fields = append(v.Fields, ValueField{Name: f.Name, Value: fv})
		}
		return v, nil
	case "access":
		r, err := decodeValue(n.Record)
		if err != nil {
			return nil, err
		}
		return FieldAccess{Record: r, Field: n.Field}, nil
	case "apply":
		fn, err := decodeValue(n.Fn)
		if err != nil {
			return nil, err
		}
		arg, err := decodeValue(n.Arg)
		if err != nil {
			return nil, err
		}
		return Apply{Fn: fn, Arg: arg}, nil
	case "lambda":
		b, err := decodeValue(n.Body)
		if err != nil {
			return nil, err
		}
		return Lambda{Params: n.Params, Body: b}, nil
	case "let":
		v := LetIn{}
		for _, bn := range n.Bindings {
			bb, err := decodeValue(bn.Body)
			if err != nil {
				return nil, err
			}
			v.Bindings = append(v.Bindings, LetBinding{Name: bn.Name, Params: bn.Params, Body: bb})
		}
		b, err := decodeValue(n.Body)
		if err != nil {
			return nil, err
		}
		v.Body = b
		return v, nil
	case "if":
		c, err := decodeValue(n.Cond)
		if err != nil {
			return nil, err
		}
		t, err := decodeValue(n.Then)
		if err != nil {
			return nil, err
		}
		e, err := decodeValue(n.Else)
		if err != nil {
			return nil, err
		}
		return IfExpr{Cond: c, Then: t, Else: e}, nil
	case "case":
		v := CaseExpr{}
		s, err := decodeValue(n.Subject)
		if err != nil {
			return nil, err
		}
		v.Subject = s
		for _, bn := range n.Branches {
			p, err := decodePattern(bn.Pattern)
			if err != nil {
				return nil, err
			}
			b, err := decodeValue(bn.Body)
			if err != nil {
				return nil, err
			}
			v.Branches = append(v.Branches, CaseBranch{Pattern: p, Body: b})
		}
		return v, nil
	case "unit":
		return UnitLit{}, nil
	}
	return nil, fmt.Errorf("unknown value kind %q", n.Kind)
}

func encodePattern(p Pattern) *patternNode {
	switch pp := p.(type) {
	case WildcardPat:
		return &patternNode{Kind: "wildcard"}
	case VarPat:
		return &patternNode{Kind: "var", Name: pp.Name}
	case LitPat:
		return &patternNode{Kind: "lit", Lit: encodeLit(pp.Lit)}
	case CtorPat:
		n := &patternNode{Kind: "ctor", Ref: &pp.Ref}
		for _, a := range pp.Args {
			n.Args = append(n.Args, encodePattern(a))
		}
		return n
	case TuplePat:
		n := &patternNode{Kind: "tuple"}
		for _, e := range pp.Elems {
			n.Elems = append(n.Elems, encodePattern(e))
		}
		return n
	case ConsPat:
		return &patternNode{Kind: "cons", Head: encodePattern(pp.Head), Tail: encodePattern(pp.Tail)}
	case ListPat:
		n := &patternNode{Kind: "listpat"}
		for _, e := range pp.Elems {
			n.Elems = append(n.Elems, encodePattern(e))
		}
		return n
	}
	return nil
}

func decodePattern(n *patternNode) (Pattern, error) {
	if n == nil {
		return nil, fmt.Errorf("missing pattern node")
	}
	switch n.Kind {
	case "wildcard":
		return WildcardPat{}, nil
	case "var":
		return VarPat{Name: n.Name}, nil
	case "lit":
		l, err := decodeLit(n.Lit)
		if err != nil {
			return nil, err
		}
		return LitPat{Lit: l}, nil
	case "ctor":
		if n.Ref == nil {
			return nil, fmt.Errorf("ctor pattern without target")
		}
		p := CtorPat{Ref: *n.Ref}
		for _, a := range n.Args {
			ap, err := decodePattern(a)
			if err != nil {
				return nil, err
			}
			p.Args = append(p.Args, ap)
		}
		return p, nil
	case "tuple":
		p := TuplePat{}
		for _, e := range n.Elems {
			ep, err := decodePattern(e)
			if err != nil {
				return nil, err
			}
			p.Elems = append(p.Elems, ep)
		}
		return p, nil
	case "cons":
		h, err := decodePattern(n.Head)
		if err != nil {
			return nil, err
		}
		t, err := decodePattern(n.Tail)
		if err != nil {
			return nil, err
		}
		return ConsPat{Head: h, Tail: t}, nil
	case "listpat":
		p := ListPat{}
		for _, e := range n.Elems {
			ep, err := decodePattern(e)
			if err != nil {
				return nil, err
			}
			p.Elems = append(p.Elems, ep)
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown pattern kind %q", n.Kind)
}
