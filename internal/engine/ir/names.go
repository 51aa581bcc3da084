// Package ir holds the language-independent intermediate representation that
// the frontend produces: canonical names, type definitions and value
// definitions with every reference fully qualified.
package ir

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Name is one identifier as an ordered sequence of lowercase words, so the
// same name can be rendered in any casing convention downstream. Operator
// identifiers ("+", "::") are kept verbatim as a single segment.
type Name []string

// NameFromString splits an identifier into words on underscores, camel-case
// humps and digit runs. A token that does not start with a letter or
// underscore is treated as an operator and kept as-is.
func NameFromString(s string) Name {
	if s == "" {
		return nil
	}
	r0, _ := utf8.DecodeRuneInString(s)
	if !unicode.IsLetter(r0) && r0 != '_' {
		return Name{s}
	}
	runes := []rune(s)
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = nil
		}
	}
	for i, r := range runes {
		switch {
		case r == '_':
			flush()
		case unicode.IsUpper(r):
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				flush()
			} else if i > 0 && unicode.IsUpper(runes[i-1]) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				flush()
			}
			cur = append(cur, r)
		case unicode.IsDigit(r):
			if i > 0 && !unicode.IsDigit(runes[i-1]) {
				flush()
			}
			cur = append(cur, r)
		default:
			if i > 0 && unicode.IsDigit(runes[i-1]) {
				flush()
			}
			cur = append(cur, r)
		}
	}
	flush()
	return Name(words)
}

// IsOperator reports whether the name is a verbatim operator segment.
func (n Name) IsOperator() bool {
	if len(n) != 1 || n[0] == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(n[0])
	return !unicode.IsLetter(r) && r != '_'
}

// String renders the name in lowerCamelCase, the canonical form used inside
// FQName. Operators render verbatim.
func (n Name) String() string {
	if n.IsOperator() {
		return n[0]
	}
	var b strings.Builder
	for i, w := range n {
		if i == 0 {
			b.WriteString(w)
			continue
		}
		b.WriteString(titleWord(w))
	}
	return b.String()
}

// Title renders the name in UpperCamelCase.
func (n Name) Title() string {
	if n.IsOperator() {
		return n[0]
	}
	var b strings.Builder
	for _, w := range n {
		b.WriteString(titleWord(w))
	}
	return b.String()
}

// Snake renders the name in snake_case.
func (n Name) Snake() string {
	if n.IsOperator() {
		return n[0]
	}
	return strings.Join(n, "_")
}

func (n Name) Equal(o Name) bool {
	if len(n) != len(o) {
		return false
	}
	for i := range n {
		if n[i] != o[i] {
			return false
		}
	}
	return true
}

func titleWord(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	if r == utf8.RuneError {
		return w
	}
	return string(unicode.ToUpper(r)) + w[size:]
}

// ModuleName is the dotted path of a module, one segment per element.
// Segments keep their source capitalization ("Domain.Model").
type ModuleName []string

// ParseModuleName splits a dotted module path and validates every segment:
// an upper-case letter followed by letters and digits.
func ParseModuleName(s string) (ModuleName, error) {
	if s == "" {
		return nil, fmt.Errorf("empty module name")
	}
	segs := strings.Split(s, ".")
	for _, seg := range segs {
		if err := validateModuleSegment(seg); err != nil {
			return nil, fmt.Errorf("module name %q: %w", s, err)
		}
	}
	return ModuleName(segs), nil
}

// ModuleNameFromPath derives a module name from a source-root relative file
// path: "Domain/Model.loom" becomes Domain.Model. The extension, if any, is
// stripped from the last segment.
func ModuleNameFromPath(rel string) (ModuleName, error) {
	rel = strings.TrimPrefix(rel, "./")
	if rel == "" {
		return nil, fmt.Errorf("empty source path")
	}
	parts := strings.Split(strings.ReplaceAll(rel, "\\", "/"), "/")
	last := parts[len(parts)-1]
	if dot := strings.LastIndexByte(last, '.'); dot > 0 {
		parts[len(parts)-1] = last[:dot]
	}
	for _, seg := range parts {
		if err := validateModuleSegment(seg); err != nil {
			return nil, fmt.Errorf("source path %q: %w", rel, err)
		}
	}
	return ModuleName(parts), nil
}

func validateModuleSegment(seg string) error {
	if seg == "" {
		return fmt.Errorf("empty segment")
	}
	for i, r := range seg {
		if i == 0 {
			if !unicode.IsUpper(r) {
				return fmt.Errorf("segment %q must start with an upper-case letter", seg)
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return fmt.Errorf("segment %q contains %q", seg, r)
		}
	}
	return nil
}

func (m ModuleName) String() string { return strings.Join(m, ".") }

func (m ModuleName) Equal(o ModuleName) bool {
	if len(m) != len(o) {
		return false
	}
	for i := range m {
		if m[i] != o[i] {
			return false
		}
	}
	return true
}

// FQName identifies one definition across the whole build: the owning
// package, the dotted module path and the canonical local name. It is the
// only reference currency after resolution and is comparable, so it can key
// maps directly.
type FQName struct {
	Package string `json:"package"`
	Module  string `json:"module"`
	Name    string `json:"name"`
}

func NewFQName(pkg string, module ModuleName, name Name) FQName {
	return FQName{Package: pkg, Module: module.String(), Name: name.String()}
}

func (f FQName) IsZero() bool { return f == FQName{} }

func (f FQName) String() string {
	return fmt.Sprintf("%s:%s.%s", f.Package, f.Module, f.Name)
}

// NameKind selects one of the three independent namespaces a module owns.
type NameKind uint8

const (
	KindType NameKind = iota
	KindCtor
	KindValue
)

func (k NameKind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindCtor:
		return "constructor"
	case KindValue:
		return "value"
	}
	return "unknown"
}

// VisibleNames is the name table a module makes visible to others, one map
// per namespace, each entry pointing at the canonical owner.
type VisibleNames struct {
	Types  map[string]FQName `json:"types,omitempty"`
	Ctors  map[string]FQName `json:"ctors,omitempty"`
	Values map[string]FQName `json:"values,omitempty"`
}

func NewVisibleNames() VisibleNames {
	return VisibleNames{
		Types:  map[string]FQName{},
		Ctors:  map[string]FQName{},
		Values: map[string]FQName{},
	}
}

// Lookup returns the canonical owner of name inside the given namespace.
func (v VisibleNames) Lookup(kind NameKind, name string) (FQName, bool) {
	var fq FQName
	var ok bool
	switch kind {
	case KindType:
		fq, ok = v.Types[name]
	case KindCtor:
		fq, ok = v.Ctors[name]
	case KindValue:
		fq, ok = v.Values[name]
	}
	return fq, ok
}

// Add registers name under the given namespace, overwriting a previous entry.
func (v VisibleNames) Add(kind NameKind, name string, fq FQName) {
	switch kind {
	case KindType:
		v.Types[name] = fq
	case KindCtor:
		v.Ctors[name] = fq
	case KindValue:
		v.Values[name] = fq
	}
}

// Len reports the number of entries across all three namespaces.
func (v VisibleNames) Len() int {
	return len(v.Types) + len(v.Ctors) + len(v.Values)
}
