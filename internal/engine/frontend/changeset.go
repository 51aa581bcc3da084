package frontend

import (
	"fmt"
	"sort"

	"loom/internal/core/errors"
	"loom/internal/engine/ir"
	"loom/internal/engine/parser"
)

// ChangeKind says what happened to one source file.
type ChangeKind uint8

const (
	ChangeInsert ChangeKind = iota
	ChangeUpdate
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInsert:
		return "insert"
	case ChangeUpdate:
		return "update"
	case ChangeDelete:
		return "delete"
	}
	return "unknown"
}

// FileChange carries the new text of one changed file. Text is ignored for
// deletions.
type FileChange struct {
	Kind ChangeKind
	Text string
}

// Changeset maps file paths, relative to the package root, to their changes.
type Changeset map[string]FileChange

// change is one classified entry of a changeset. ast stays nil for
// deletions and until the parse phase fills it in.
type change struct {
	path   string
	kind   ChangeKind
	text   string
	module string
	name   ir.ModuleName
	ast    *parser.Module
}

// classify sorts the changeset by path and derives each file's module name.
// Every file is judged on its own, so one bad path never hides another.
func classify(set Changeset) ([]change, []error) {
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var (
		out  []change
		errs []error
		seen = map[string]string{}
	)
	for _, p := range paths {
		fc := set[p]
		name, err := ir.ModuleNameFromPath(p)
		if err != nil {
			errs = append(errs, errors.AddContext(
				errors.Wrap(err, errors.CodeInvalidModuleName, "file path does not name a module"),
				errors.CtxPath, p))
			continue
		}
		mod := name.String()
		if prev, dup := seen[mod]; dup {
			errs = append(errs, errors.AddContext(errors.New(errors.CodeConflict,
				fmt.Sprintf("module %s is changed by both %s and %s", mod, prev, p)),
				errors.CtxPath, p))
			continue
		}
		seen[mod] = p
		out = append(out, change{path: p, kind: fc.Kind, text: fc.Text, module: mod, name: name})
	}
	return out, errs
}
