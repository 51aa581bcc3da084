// Package architecture checks module imports against declared layer
// rules. Layers group modules by dotted-path patterns; a rule names the
// layers a source layer may import from. Builds report violations, they
// never block on them.
package architecture

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"loom/internal/engine/repo"
)

type Model struct {
	Enabled bool
	Layers  []Layer
	Rules   []Rule
}

// Layer names a group of modules. Patterns are dotted module paths and
// may use glob syntax with '.' as the separator, so "Ui.*" matches
// Ui.Page but not Ui.Page.Home while "Ui.**" matches both.
type Layer struct {
	Name    string
	Modules []string
}

// Rule restricts one layer to importing only from the allowed layers.
// Imports into modules that belong to no layer are not checked.
type Rule struct {
	Name  string
	From  string
	Allow []string
}

type Violation struct {
	RuleName   string
	FromModule string
	FromLayer  string
	ToModule   string
	ToLayer    string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s (%s -> %s): %s imports %s", v.RuleName, v.FromLayer, v.ToLayer, v.FromModule, v.ToModule)
}

type LayerRuleEngine struct {
	enabled bool
	layers  []layerMatcher
	rules   map[string]ruleSet
}

type layerMatcher struct {
	name     string
	patterns []compiledPattern
}

type compiledPattern struct {
	raw        string
	isWildcard bool
	glob       glob.Glob
}

type ruleSet struct {
	name  string
	allow map[string]bool
}

// NewLayerRuleEngine compiles the model. Patterns that fail to compile
// are dropped; config validation rejects them before this point.
func NewLayerRuleEngine(model Model) *LayerRuleEngine {
	engine := &LayerRuleEngine{
		enabled: model.Enabled,
		rules:   make(map[string]ruleSet),
	}

	for _, layer := range model.Layers {
		matcher := layerMatcher{name: layer.Name}
		for _, raw := range layer.Modules {
			pattern := strings.TrimSpace(raw)
			if pattern == "" {
				continue
			}
			cp := compiledPattern{
				raw:        pattern,
				isWildcard: strings.ContainsAny(pattern, "*?[]{}"),
			}
			if cp.isWildcard {
				g, err := glob.Compile(pattern, '.')
				if err != nil {
					continue
				}
				cp.glob = g
			}
			matcher.patterns = append(matcher.patterns, cp)
		}
		engine.layers = append(engine.layers, matcher)
	}

	for _, rule := range model.Rules {
		allow := make(map[string]bool, len(rule.Allow))
		for _, target := range rule.Allow {
			allow[target] = true
		}
		engine.rules[rule.From] = ruleSet{name: rule.Name, allow: allow}
	}

	return engine
}

// Validate checks every import edge in the repository. Modules outside
// all layers and layers without a rule are skipped.
func (e *LayerRuleEngine) Validate(r *repo.Repository) []Violation {
	if e == nil || !e.enabled || r == nil {
		return nil
	}

	paths := r.Modules()
	sort.Strings(paths)

	moduleLayer := make(map[string]string, len(paths))
	for _, path := range paths {
		moduleLayer[path] = e.layerFor(path)
	}

	violations := make([]Violation, 0)
	for _, from := range paths {
		fromLayer := moduleLayer[from]
		rule, hasRule := e.rules[fromLayer]
		if !hasRule {
			continue
		}
		module, ok := r.Module(from)
		if !ok {
			continue
		}
		imports := append([]string(nil), module.Imports()...)
		sort.Strings(imports)
		for _, to := range imports {
			toLayer, known := moduleLayer[to]
			if !known || toLayer == "" {
				continue
			}
			if rule.allow[toLayer] {
				continue
			}
			violations = append(violations, Violation{
				RuleName:   rule.name,
				FromModule: from,
				FromLayer:  fromLayer,
				ToModule:   to,
				ToLayer:    toLayer,
			})
		}
	}
	return violations
}

// layerFor assigns a module to the most specific matching layer. Longer
// patterns win; ties go to the lexicographically first layer name.
func (e *LayerRuleEngine) layerFor(moduleName string) string {
	bestLayer := ""
	bestScore := 0
	for _, layer := range e.layers {
		score := 0
		for _, p := range layer.patterns {
			if !matchPattern(p, moduleName) {
				continue
			}
			if l := len(p.raw); l > score {
				score = l
			}
		}
		if score == 0 {
			continue
		}
		if score > bestScore || (score == bestScore && layer.name < bestLayer) {
			bestLayer = layer.name
			bestScore = score
		}
	}
	return bestLayer
}

func matchPattern(p compiledPattern, moduleName string) bool {
	if p.isWildcard {
		return p.glob != nil && p.glob.Match(moduleName)
	}
	if moduleName == p.raw {
		return true
	}
	return strings.HasPrefix(moduleName, p.raw+".")
}
