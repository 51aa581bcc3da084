package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"loom/internal/engine/repo"
	"loom/internal/shared/util"
)

// Service answers read-only questions about a repository. It keeps no
// state of its own, so a fresh one per request is fine; callers must not
// run it concurrently with a build that mutates the repository.
type Service struct {
	repository *repo.Repository
}

func NewService(r *repo.Repository) *Service {
	return &Service{repository: r}
}

func (s *Service) ListModules(ctx context.Context, filter string, limit int) ([]ModuleSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.repository == nil {
		return nil, fmt.Errorf("repository unavailable")
	}

	paths := s.repository.Modules()
	reverseCounts := make(map[string]int, len(paths))
	for _, path := range paths {
		module, ok := s.repository.Module(path)
		if !ok {
			continue
		}
		for _, imp := range module.Imports() {
			reverseCounts[imp]++
		}
	}

	filter = strings.ToLower(strings.TrimSpace(filter))
	rows := make([]ModuleSummary, 0, len(paths))
	for _, path := range paths {
		if filter != "" && !strings.Contains(strings.ToLower(path), filter) {
			continue
		}
		module, ok := s.repository.Module(path)
		if !ok {
			continue
		}
		rows = append(rows, ModuleSummary{
			Name:           path,
			TypeCount:      len(module.Types()),
			ValueCount:     len(module.Values()),
			ImportCount:    len(module.Imports()),
			DependentCount: reverseCounts[path],
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Name < rows[j].Name
	})

	if limit > 0 && len(rows) > limit {
		return rows[:limit], nil
	}
	return rows, nil
}

func (s *Service) ModuleDetails(ctx context.Context, moduleName string) (ModuleDetails, error) {
	if err := ctx.Err(); err != nil {
		return ModuleDetails{}, err
	}
	if s.repository == nil {
		return ModuleDetails{}, fmt.Errorf("repository unavailable")
	}

	module, ok := s.repository.Module(moduleName)
	if !ok {
		return ModuleDetails{}, fmt.Errorf("module not found: %s", moduleName)
	}

	types := make([]string, 0, len(module.Types()))
	for _, def := range module.Types() {
		types = append(types, def.Name.String())
	}
	values := make([]string, 0, len(module.Values()))
	for _, def := range module.Values() {
		values = append(values, def.Name.String())
	}

	exposed, _ := module.Exposed()
	imports := append([]string(nil), module.Imports()...)
	sort.Strings(imports)

	return ModuleDetails{
		Name:          moduleName,
		Types:         types,
		Values:        values,
		ExposedTypes:  util.SortedStringKeys(exposed.Types),
		ExposedValues: util.SortedStringKeys(exposed.Values),
		Imports:       imports,
		Dependents:    s.repository.Dependents(moduleName),
	}, nil
}

// DependencyTrace returns a shortest import chain between two modules.
// Neighbors are visited in sorted order so equally short chains resolve
// the same way every run.
func (s *Service) DependencyTrace(ctx context.Context, from, to string, maxDepth int) (TraceResult, error) {
	if err := ctx.Err(); err != nil {
		return TraceResult{}, err
	}
	if s.repository == nil {
		return TraceResult{}, fmt.Errorf("repository unavailable")
	}
	if _, ok := s.repository.Module(from); !ok {
		return TraceResult{}, fmt.Errorf("module not found: %s", from)
	}
	if _, ok := s.repository.Module(to); !ok {
		return TraceResult{}, fmt.Errorf("module not found: %s", to)
	}

	path, ok := s.findImportChain(from, to)
	if !ok {
		return TraceResult{}, fmt.Errorf("no import chain from %s to %s", from, to)
	}
	depth := len(path) - 1
	if maxDepth > 0 && depth > maxDepth {
		return TraceResult{}, fmt.Errorf("import chain depth %d exceeds limit %d", depth, maxDepth)
	}

	return TraceResult{
		From:  from,
		To:    to,
		Path:  path,
		Depth: depth,
	}, nil
}

func (s *Service) findImportChain(from, to string) ([]string, bool) {
	if from == to {
		return []string{from}, true
	}

	queue := []string{from}
	visited := map[string]bool{from: true}
	prev := make(map[string]string)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		module, ok := s.repository.Module(curr)
		if !ok {
			continue
		}
		neighbors := append([]string(nil), module.Imports()...)
		sort.Strings(neighbors)

		for _, next := range neighbors {
			if visited[next] {
				continue
			}
			if _, ok := s.repository.Module(next); !ok {
				continue
			}
			visited[next] = true
			prev[next] = curr
			if next == to {
				return reconstructChain(prev, from, to), true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}

func reconstructChain(prev map[string]string, from, to string) []string {
	path := []string{to}
	for curr := to; curr != from; {
		curr = prev[curr]
		path = append(path, curr)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// ExecuteCQL runs a parsed query against the module summaries. String
// fields are name, imports and imported_by; counter fields are
// type_count, value_count, import_count and dependent_count.
func (s *Service) ExecuteCQL(ctx context.Context, raw string, limit int) ([]ModuleSummary, error) {
	parsed, err := ParseCQL(raw)
	if err != nil {
		return nil, err
	}

	rows, err := s.ListModules(ctx, "", 0)
	if err != nil {
		return nil, err
	}

	matched := make([]ModuleSummary, 0, len(rows))
	for _, row := range rows {
		keep := true
		for _, cond := range parsed.Conditions {
			ok, err := s.matchCondition(row, cond)
			if err != nil {
				return nil, err
			}
			if !ok {
				keep = false
				break
			}
		}
		if keep {
			matched = append(matched, row)
		}
	}

	if limit > 0 && len(matched) > limit {
		return matched[:limit], nil
	}
	return matched, nil
}

func (s *Service) matchCondition(row ModuleSummary, cond CQLCondition) (bool, error) {
	switch cond.Field {
	case "name":
		return matchString(row.Name, cond)
	case "imports":
		module, ok := s.repository.Module(row.Name)
		if !ok {
			return false, nil
		}
		return matchStringList(module.Imports(), cond)
	case "imported_by":
		return matchStringList(s.repository.Dependents(row.Name), cond)
	case "type_count":
		return matchInt(row.TypeCount, cond)
	case "value_count":
		return matchInt(row.ValueCount, cond)
	case "import_count":
		return matchInt(row.ImportCount, cond)
	case "dependent_count":
		return matchInt(row.DependentCount, cond)
	default:
		return false, fmt.Errorf("unknown query field %q", cond.Field)
	}
}

func matchInt(got int, cond CQLCondition) (bool, error) {
	if !cond.IsInt {
		return false, fmt.Errorf("field %q requires a numeric comparison", cond.Field)
	}
	switch cond.Op {
	case "=":
		return got == cond.IntVal, nil
	case "!=":
		return got != cond.IntVal, nil
	case ">":
		return got > cond.IntVal, nil
	case "<":
		return got < cond.IntVal, nil
	case ">=":
		return got >= cond.IntVal, nil
	case "<=":
		return got <= cond.IntVal, nil
	default:
		return false, fmt.Errorf("unsupported numeric operator %q", cond.Op)
	}
}

func matchString(got string, cond CQLCondition) (bool, error) {
	if !cond.IsStr {
		return false, fmt.Errorf("field %q requires a string comparison", cond.Field)
	}
	switch cond.Op {
	case "=":
		return got == cond.StrVal, nil
	case "!=":
		return got != cond.StrVal, nil
	case "contains":
		return strings.Contains(strings.ToLower(got), strings.ToLower(cond.StrVal)), nil
	default:
		return false, fmt.Errorf("unsupported string operator %q", cond.Op)
	}
}

func matchStringList(values []string, cond CQLCondition) (bool, error) {
	if !cond.IsStr {
		return false, fmt.Errorf("field %q requires a string comparison", cond.Field)
	}
	switch cond.Op {
	case "=", "contains":
		for _, value := range values {
			ok, err := matchString(value, cond)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case "!=":
		for _, value := range values {
			if value == cond.StrVal {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("unsupported string operator %q", cond.Op)
	}
}
