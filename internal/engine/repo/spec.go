package repo

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"loom/internal/engine/ir"
)

//go:embed package-spec-schema.json
var packageSpecSchema []byte

// PackageSpec declares what an external dependency package exports, module
// by module. Names are in source spelling; the repository canonicalizes
// them when it indexes the spec.
type PackageSpec struct {
	Package string                `json:"package"`
	Modules map[string]ModuleSpec `json:"modules"`
}

// ModuleSpec lists one dependency module's exports. Ctors maps each
// constructor to the type that owns it.
type ModuleSpec struct {
	Types  []string          `json:"types,omitempty"`
	Ctors  map[string]string `json:"ctors,omitempty"`
	Values []string          `json:"values,omitempty"`
}

// LoadPackageSpec parses a JSON package spec, validating it against the
// embedded schema first so structural problems surface with field paths
// instead of decode errors.
func LoadPackageSpec(data []byte) (PackageSpec, error) {
	schemaLoader := gojsonschema.NewBytesLoader(packageSpecSchema)
	docLoader := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return PackageSpec{}, fmt.Errorf("validate package spec: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
		}
		return PackageSpec{}, fmt.Errorf("package spec does not match schema: %s", strings.Join(msgs, "; "))
	}
	var spec PackageSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return PackageSpec{}, fmt.Errorf("decode package spec: %w", err)
	}
	if err := spec.check(); err != nil {
		return PackageSpec{}, err
	}
	return spec, nil
}

// check enforces what the schema cannot: valid module paths and
// constructor owners that exist in the same module.
func (s PackageSpec) check() error {
	for path, mod := range s.Modules {
		if _, err := ir.ParseModuleName(path); err != nil {
			return fmt.Errorf("package %s: module %q: %w", s.Package, path, err)
		}
		types := make(map[string]bool, len(mod.Types))
		for _, t := range mod.Types {
			types[t] = true
		}
		for ctor, owner := range mod.Ctors {
			if !types[owner] {
				return fmt.Errorf("package %s: module %s: constructor %s claims unknown type %s", s.Package, path, ctor, owner)
			}
		}
	}
	return nil
}

// SDKSpec is the standard package every repository depends on. Basics and
// List back the implicit imports; the remaining modules are available
// through explicit imports.
func SDKSpec() PackageSpec {
	return PackageSpec{
		Package: "loom.sdk",
		Modules: map[string]ModuleSpec{
			"Basics": {
				Types: []string{"Int", "Float", "String", "Char", "Bool", "Order"},
				Ctors: map[string]string{
					"True": "Bool", "False": "Bool",
					"LT": "Order", "EQ": "Order", "GT": "Order",
				},
				Values: []string{
					"+", "-", "*", "/", "//", "^",
					"==", "/=", "<", ">", "<=", ">=",
					"&&", "||", "++", "|>", "<|",
					"not", "negate", "compare", "min", "max",
					"modBy", "abs", "clamp", "identity", "always",
					"toFloat", "round", "floor", "ceiling", "truncate",
				},
			},
			"List": {
				Types: []string{"List"},
				Ctors: map[string]string{"::": "List"},
				Values: []string{
					"map", "foldl", "foldr", "filter", "length",
					"reverse", "member", "append", "concat",
					"isEmpty", "range", "singleton", "head", "tail",
					"sort", "take", "drop", "indexedMap",
				},
			},
			"Maybe": {
				Types:  []string{"Maybe"},
				Ctors:  map[string]string{"Just": "Maybe", "Nothing": "Maybe"},
				Values: []string{"withDefault", "map", "andThen"},
			},
			"String": {
				Values: []string{
					"length", "isEmpty", "concat", "join", "split",
					"toUpper", "toLower", "trim", "fromInt", "toInt",
					"startsWith", "endsWith", "contains",
				},
			},
		},
	}
}

// depIndex is a PackageSpec prepared for resolution: per module the
// visible-name tables keyed by source spelling, and canonical-name sets
// for the resolvable checks.
type depIndex struct {
	spec    PackageSpec
	visible map[string]ir.VisibleNames
	owners  map[string]map[string]string
	types   map[string]map[string]bool
	ctors   map[string]map[string]bool
	values  map[string]map[string]bool
}

func newDepIndex(spec PackageSpec) (*depIndex, error) {
	if err := spec.check(); err != nil {
		return nil, err
	}
	idx := &depIndex{
		spec:    spec,
		visible: map[string]ir.VisibleNames{},
		owners:  map[string]map[string]string{},
		types:   map[string]map[string]bool{},
		ctors:   map[string]map[string]bool{},
		values:  map[string]map[string]bool{},
	}
	for path, mod := range spec.Modules {
		mn, err := ir.ParseModuleName(path)
		if err != nil {
			return nil, fmt.Errorf("package %s: module %q: %w", spec.Package, path, err)
		}
		names := ir.NewVisibleNames()
		idx.types[path] = map[string]bool{}
		idx.ctors[path] = map[string]bool{}
		idx.values[path] = map[string]bool{}
		for _, t := range mod.Types {
			fq := ir.NewFQName(spec.Package, mn, ir.NameFromString(t))
			names.Add(ir.KindType, t, fq)
			idx.types[path][fq.Name] = true
		}
		for c := range mod.Ctors {
			fq := ir.NewFQName(spec.Package, mn, ir.NameFromString(c))
			names.Add(ir.KindCtor, c, fq)
			idx.ctors[path][fq.Name] = true
		}
		for _, v := range mod.Values {
			fq := ir.NewFQName(spec.Package, mn, ir.NameFromString(v))
			names.Add(ir.KindValue, v, fq)
			idx.values[path][fq.Name] = true
		}
		idx.visible[path] = names
		owners := make(map[string]string, len(mod.Ctors))
		for c, o := range mod.Ctors {
			owners[c] = o
		}
		idx.owners[path] = owners
	}
	return idx, nil
}
