package ir

// refSet collects FQNames in first-occurrence order.
type refSet struct {
	seen map[FQName]struct{}
	list []FQName
}

func newRefSet() *refSet {
	return &refSet{seen: map[FQName]struct{}{}}
}

func (s *refSet) add(fq FQName) {
	if _, ok := s.seen[fq]; ok {
		return
	}
	s.seen[fq] = struct{}{}
	s.list = append(s.list, fq)
}

// TypeRefs returns every type reference inside t, deduplicated, in
// first-occurrence order.
func TypeRefs(t Type) []FQName {
	s := newRefSet()
	collectTypeRefs(t, s)
	return s.list
}

// DefinitionTypeRefs returns every type reference a type definition makes:
// the alias target or all constructor argument types.
func DefinitionTypeRefs(d TypeDefinition) []FQName {
	s := newRefSet()
	switch def := d.(type) {
	case AliasDefinition:
		collectTypeRefs(def.Target, s)
	case CustomDefinition:
		for _, c := range def.Constructors {
			for _, a := range c.Args {
				collectTypeRefs(a, s)
			}
		}
	}
	return s.list
}

func collectTypeRefs(t Type, s *refSet) {
	switch tt := t.(type) {
	case TypeReference:
		s.add(tt.Ref)
		for _, a := range tt.Args {
			collectTypeRefs(a, s)
		}
	case TypeTuple:
		for _, e := range tt.Elems {
			collectTypeRefs(e, s)
		}
	case TypeRecord:
		for _, f := range tt.Fields {
			collectTypeRefs(f.Type, s)
		}
	case TypeFunction:
		collectTypeRefs(tt.Param, s)
		collectTypeRefs(tt.Result, s)
	}
}

// ValueRefs returns every top-level value reference inside v, deduplicated,
// in first-occurrence order. Constructor references are not included; see
// CtorRefs.
func ValueRefs(v Value) []FQName {
	s := newRefSet()
	collectValueRefs(v, s, false)
	return s.list
}

// CtorRefs returns every constructor reference inside v, including those in
// case patterns.
func CtorRefs(v Value) []FQName {
	s := newRefSet()
	collectValueRefs(v, s, true)
	return s.list
}

func collectValueRefs(v Value, s *refSet, ctors bool) {
	switch vv := v.(type) {
	case ValueRef:
		if !ctors {
			s.add(vv.Ref)
		}
	case CtorRef:
		if ctors {
			s.add(vv.Ref)
		}
	case TupleLit:
		for _, e := range vv.Elems {
			collectValueRefs(e, s, ctors)
		}
	case ListLit:
		for _, e := range vv.Elems {
			collectValueRefs(e, s, ctors)
		}
	case RecordLit:
		for _, f := range vv.Fields {
			collectValueRefs(f.Value, s, ctors)
		}
	case FieldAccess:
		collectValueRefs(vv.Record, s, ctors)
	case Apply:
		collectValueRefs(vv.Fn, s, ctors)
		collectValueRefs(vv.Arg, s, ctors)
	case Lambda:
		collectValueRefs(vv.Body, s, ctors)
	case LetIn:
		for _, b := range vv.Bindings {
			collectValueRefs(b.Body, s, ctors)
		}
		collectValueRefs(vv.Body, s, ctors)
	case IfExpr:
		collectValueRefs(vv.Cond, s, ctors)
		collectValueRefs(vv.Then, s, ctors)
		collectValueRefs(vv.Else, s, ctors)
	case CaseExpr:
		collectValueRefs(vv.Subject, s, ctors)
		for _, b := range vv.Branches {
			if ctors {
				collectPatternRefs(b.Pattern, s)
			}
			collectValueRefs(b.Body, s, ctors)
		}
	}
}

func collectPatternRefs(p Pattern, s *refSet) {
	switch pp := p.(type) {
	case CtorPat:
		s.add(pp.Ref)
		for _, a := range pp.Args {
			collectPatternRefs(a, s)
		}
	case TuplePat:
		for _, e := range pp.Elems {
			collectPatternRefs(e, s)
		}
	case ConsPat:
		collectPatternRefs(pp.Head, s)
		collectPatternRefs(pp.Tail, s)
	case ListPat:
		for _, e := range pp.Elems {
			collectPatternRefs(e, s)
		}
	}
}

// AnnotationTypeRefs returns the type references of a value definition's
// annotation, or nil when it has none.
func AnnotationTypeRefs(d ValueDefinition) []FQName {
	if d.Annotation == nil {
		return nil
	}
	return TypeRefs(d.Annotation)
}
