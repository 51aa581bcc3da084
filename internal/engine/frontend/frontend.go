// Package frontend turns file changesets into repository updates. It owns
// the build pipeline: classification, parsing, module ordering, name
// resolution and the final insertion fold. Everything up to the fold is
// read-only, so any error raised there leaves the repository exactly as it
// was; once the fold starts, the first rejection stops the remaining work
// while earlier insertions stay committed.
package frontend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"loom/internal/core/errors"
	"loom/internal/engine/ir"
	"loom/internal/engine/parser"
	"loom/internal/engine/repo"
	"loom/internal/engine/resolver"
	"loom/internal/shared/observability"
)

// SourceParser produces the parse tree of one source file. The default is
// the package parser; callers substitute caching or instrumented variants.
type SourceParser interface {
	Parse(path, text string) (*parser.Module, error)
}

type parseFunc func(path, text string) (*parser.Module, error)

func (f parseFunc) Parse(path, text string) (*parser.Module, error) { return f(path, text) }

// Inference is an optional collaborator consulted right before each
// insertion. A failure counts like a repository rejection: the remaining
// fold stops, earlier insertions stay.
type Inference interface {
	CheckType(ctx context.Context, fq ir.FQName, def ir.TypeDefinition) error
	CheckValue(ctx context.Context, fq ir.FQName, def ir.ValueDefinition) error
}

// Options tunes one ApplyChangeset run. The zero value parses with the
// package parser and skips inference.
type Options struct {
	Parser    SourceParser
	Inference Inference
}

// Stats counts what one build actually did.
type Stats struct {
	ModulesOrdered int
	ModulesDeleted int
	TypesInserted  int
	ValuesInserted int
	Elapsed        time.Duration
}

// Result is the outcome of one build. Order lists every changed module in
// the dependency order the fold used, even when the fold stopped early.
type Result struct {
	Repository *repo.Repository
	Order      []ir.ModuleName
	Stats      Stats
	Errors     []error
}

// Failed reports whether the build raised any error.
func (r Result) Failed() bool { return len(r.Errors) > 0 }

// ApplyChangeset applies one changeset to the repository.
//
// Classification and parsing judge every file independently and report all
// their failures together. Deletion conflicts and dependency cycles abort
// with the repository untouched. Resolution and declaration ordering run for
// every module before the first mutation. The fold then replaces and inserts
// in dependency order and applies deletions last; its first rejection is
// final for the rest of the changeset but never rolls back what was already
// committed.
func ApplyChangeset(ctx context.Context, repository *repo.Repository, set Changeset, opts Options) Result {
	started := time.Now()
	res := Result{Repository: repository}
	if len(set) == 0 {
		return finish(res, started)
	}
	if err := ctx.Err(); err != nil {
		return finish(fail(res, errors.Wrap(err, errors.CodeInternal, "build canceled")), started)
	}

	src := opts.Parser
	if src == nil {
		src = parseFunc(parser.Parse)
	}

	changes, errs := classify(set)
	for i := range changes {
		c := &changes[i]
		if c.kind == ChangeDelete {
			continue
		}
		parseStart := time.Now()
		mod, err := src.Parse(c.path, c.text)
		observability.ParseDuration.Observe(time.Since(parseStart).Seconds())
		if err != nil {
			errs = append(errs, errors.AddContext(
				errors.Wrap(err, errors.CodeParseFailure, "cannot parse "+c.path),
				errors.CtxPath, c.path))
			continue
		}
		if declared := ir.ModuleName(mod.Name).String(); declared != c.module {
			errs = append(errs, errors.AddContext(errors.New(errors.CodeInvalidModuleName,
				fmt.Sprintf("%s declares module %s, want %s", c.path, declared, c.module)),
				errors.CtxPath, c.path))
			continue
		}
		c.ast = mod
	}
	if len(errs) > 0 {
		return finish(fail(res, errs...), started)
	}

	deleted := map[string]bool{}
	for _, c := range changes {
		if c.kind == ChangeDelete {
			deleted[c.module] = true
		}
	}
	if len(deleted) > 0 {
		for _, c := range changes {
			if c.kind != ChangeDelete {
				continue
			}
			if _, ok := repository.Module(c.module); !ok {
				errs = append(errs, errors.AddContext(errors.New(errors.CodeNotFound,
					"cannot delete unknown module "+c.module), errors.CtxModule, c.module))
				continue
			}
			if holdouts := survivingDependents(repository, changes, c.module, deleted); len(holdouts) > 0 {
				errs = append(errs, errors.AddContext(errors.New(errors.CodeConflict,
					fmt.Sprintf("cannot delete module %s: still imported by %s",
						c.module, strings.Join(holdouts, ", "))), errors.CtxModule, c.module))
			}
		}
		if len(errs) > 0 {
			return finish(fail(res, errs...), started)
		}
	}

	order, err := orderModules(changes)
	if err != nil {
		observability.CyclesDetectedTotal.WithLabelValues("module").Inc()
		return finish(fail(res, errors.Wrap(err, errors.CodeModuleCycle,
			"changeset modules form an import cycle")), started)
	}

	byModule := map[string]*change{}
	for i := range changes {
		if changes[i].kind != ChangeDelete {
			byModule[changes[i].module] = &changes[i]
		}
	}
	exports := &exportSource{repo: repository, overlay: map[string]resolver.Exports{}}
	plans := make([]*modulePlan, 0, len(order))
	for _, m := range order {
		plan, err := planModule(repository.Package(), byModule[m], exports)
		if err != nil {
			return finish(fail(res, err), started)
		}
		exports.overlay[m] = plan.exports
		plans = append(plans, plan)
	}

	if err := ctx.Err(); err != nil {
		return finish(fail(res, errors.Wrap(err, errors.CodeInternal, "build canceled")), started)
	}

	delOrder, err := deletionOrder(repository, deleted)
	if err != nil {
		return finish(fail(res, err), started)
	}

	res.Order = make([]ir.ModuleName, 0, len(plans))
	for _, plan := range plans {
		res.Order = append(res.Order, plan.info.Name)
	}
	res.Stats.ModulesOrdered = len(plans)
	observability.ModulesOrderedTotal.Add(float64(len(plans)))

	pkg := repository.Package()
	for _, plan := range plans {
		repository.ReplaceModule(plan.info)
		for _, t := range plan.types {
			fq := ir.NewFQName(pkg, plan.info.Name, t.name)
			if opts.Inference != nil {
				if err := opts.Inference.CheckType(ctx, fq, t.def); err != nil {
					return finish(fail(res, foldErr(err, errors.CodeTypeInference, plan.path, t.name)), started)
				}
			}
			if err := repository.InsertType(plan.path, t.name, t.def); err != nil {
				return finish(fail(res, foldErr(err, errors.CodeRepoRejected, plan.path, t.name)), started)
			}
			res.Stats.TypesInserted++
		}
		for _, v := range plan.values {
			fq := ir.NewFQName(pkg, plan.info.Name, v.name)
			if opts.Inference != nil {
				if err := opts.Inference.CheckValue(ctx, fq, v.def); err != nil {
					return finish(fail(res, foldErr(err, errors.CodeValueTypeInference, plan.path, v.name)), started)
				}
			}
			if err := repository.InsertValue(plan.path, v.name, v.def); err != nil {
				return finish(fail(res, foldErr(err, errors.CodeRepoRejected, plan.path, v.name)), started)
			}
			res.Stats.ValuesInserted++
		}
	}

	// Deletions run after the replacements so a module rewritten to drop an
	// import no longer counts as a dependent of what it stopped importing.
	for _, path := range delOrder {
		if err := repository.DeleteModule(path); err != nil {
			return finish(fail(res, errors.AddContext(
				errors.Wrap(err, errors.CodeRepoRejected, "deletion rejected"),
				errors.CtxModule, path)), started)
		}
		res.Stats.ModulesDeleted++
	}
	return finish(res, started)
}

// survivingDependents lists the modules that would still import target after
// the changeset lands: repository dependents that are neither deleted nor
// rewritten here, plus changeset modules whose new imports name the target.
func survivingDependents(r *repo.Repository, changes []change, target string, deleted map[string]bool) []string {
	rewritten := map[string]bool{}
	for _, c := range changes {
		if c.kind != ChangeDelete {
			rewritten[c.module] = true
		}
	}

	var out []string
	for _, d := range r.Dependents(target) {
		if deleted[d] || rewritten[d] {
			continue
		}
		out = append(out, d)
	}
	for _, c := range changes {
		if c.kind == ChangeDelete {
			continue
		}
		for _, imp := range c.ast.Imports {
			if ir.ModuleName(imp.Module).String() == target {
				out = append(out, c.module)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

func foldErr(err error, code errors.ErrorCode, module string, name ir.Name) error {
	e := errors.Wrap(err, code, "insertion rejected")
	e = errors.AddContext(e, errors.CtxModule, module)
	return errors.AddContext(e, errors.CtxName, name.String())
}

func fail(res Result, errs ...error) Result {
	res.Errors = append(res.Errors, errs...)
	return res
}

func finish(res Result, started time.Time) Result {
	res.Stats.Elapsed = time.Since(started)
	observability.BuildDuration.Observe(res.Stats.Elapsed.Seconds())
	observability.RepoModules.Set(float64(res.Repository.ModuleCount()))
	observability.RepoTypes.Set(float64(res.Repository.TypeCount()))
	observability.RepoValues.Set(float64(res.Repository.ValueCount()))
	return res
}
