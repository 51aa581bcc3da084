package resolver

import (
	"fmt"
	"strings"

	"loom/internal/engine/ir"
	"loom/internal/engine/parser"
)

// Reason classifies why a name failed to resolve. The build pipeline maps
// each reason onto its error taxonomy; keeping them apart here makes the
// difference between "no such qualifier" and "qualifier fine, name not
// exposed" testable.
type Reason uint8

const (
	// ReasonUnknownModule: an import names a module no package provides.
	ReasonUnknownModule Reason = iota
	// ReasonUnknownQualifier: a qualified reference whose qualifier matches
	// no import alias or path.
	ReasonUnknownQualifier
	// ReasonAmbiguous: more than one import can answer the reference.
	ReasonAmbiguous
	// ReasonNotExposed: the qualifier resolves to a module which does not
	// expose the name in the required namespace.
	ReasonNotExposed
	// ReasonUnresolved: nothing local, imported or implicit provides the
	// name.
	ReasonUnresolved
	// ReasonExposesUnknown: a module's own expose list names a declaration
	// it does not contain.
	ReasonExposesUnknown
)

func (r Reason) String() string {
	switch r {
	case ReasonUnknownModule:
		return "unknown module"
	case ReasonUnknownQualifier:
		return "unknown qualifier"
	case ReasonAmbiguous:
		return "ambiguous reference"
	case ReasonNotExposed:
		return "not exposed"
	case ReasonUnresolved:
		return "unresolved reference"
	case ReasonExposesUnknown:
		return "exposes unknown name"
	}
	return "unknown reason"
}

// Error is one failed resolution with everything an error report needs.
type Error struct {
	Module     string
	Kind       ir.NameKind
	Qualifier  string
	Name       string
	Reason     Reason
	Pos        parser.Pos
	Candidates []string
}

func (e *Error) Error() string {
	ref := e.Name
	if e.Qualifier != "" {
		ref = e.Qualifier + "." + e.Name
	}
	switch e.Reason {
	case ReasonUnknownModule:
		return fmt.Sprintf("%s: import of unknown module %s", e.Module, e.Name)
	case ReasonUnknownQualifier:
		return fmt.Sprintf("%s: %s %s uses qualifier %q which matches no import", e.Module, e.Kind, ref, e.Qualifier)
	case ReasonAmbiguous:
		return fmt.Sprintf("%s: %s %s is ambiguous between %s", e.Module, e.Kind, ref, strings.Join(e.Candidates, " and "))
	case ReasonNotExposed:
		return fmt.Sprintf("%s: module %s does not expose %s %s", e.Module, e.Qualifier, e.Kind, e.Name)
	case ReasonExposesUnknown:
		return fmt.Sprintf("%s: expose list names unknown %s %s", e.Module, e.Kind, e.Name)
	}
	return fmt.Sprintf("%s: cannot resolve %s %s", e.Module, e.Kind, ref)
}
