package app

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"loom/internal/engine/frontend"
	"loom/internal/engine/ir"
	"loom/internal/shared/util"
)

// ScanSourceRoots walks every configured source root and returns the
// source files that survive the exclude patterns. Missing roots are
// skipped: a fresh project may not have created them yet.
func (a *App) ScanSourceRoots() ([]string, error) {
	roots := make([]string, 0, len(a.Paths.SourceRoots))
	for _, root := range a.Paths.SourceRoots {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			slog.Warn("source root does not exist, skipping", "path", root)
			continue
		}
		roots = append(roots, root)
	}
	return a.ScanDirectories(roots)
}

func (a *App) ScanDirectories(paths []string) ([]string, error) {
	var files []string

	dirGlobs, err := compileGlobs(a.Config.Exclude.Dirs, "exclude dir")
	if err != nil {
		return nil, err
	}
	fileGlobs, err := compileGlobs(a.Config.Exclude.Files, "exclude file")
	if err != nil {
		return nil, err
	}

	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			base := filepath.Base(path)
			if d.IsDir() {
				for _, g := range dirGlobs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
				return nil
			}

			if !a.sources.IsSupportedPath(path) {
				return nil
			}

			for _, g := range fileGlobs {
				if g.Match(base) {
					return nil
				}
			}

			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

func compileGlobs(patterns []string, label string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", label, p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// expandBuildPaths turns a mixed file/directory request into plain file
// paths. Missing entries are kept: a vanished file is how a deletion
// reaches the classifier.
func (a *App) expandBuildPaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))

	add := func(p string) {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		p = filepath.Clean(p)
		if seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}

	for _, p := range paths {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		info, err := os.Stat(trimmed)
		if err != nil || !info.IsDir() {
			add(trimmed)
			continue
		}
		files, err := a.ScanDirectories([]string{trimmed})
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			add(f)
		}
	}
	return out, nil
}

// sourceKey maps an absolute file path to its changeset key: the slash
// path relative to the source root that contains it.
func (a *App) sourceKey(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve source path %q: %w", path, err)
	}
	for _, root := range a.Paths.SourceRoots {
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			continue
		}
		if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			continue
		}
		return filepath.ToSlash(rel), nil
	}
	return "", fmt.Errorf("path %q is outside every configured source root", path)
}

// moduleKey is the inverse of sourceKey for known modules: it rebuilds
// the changeset key a module's file would have.
func (a *App) moduleKey(module string) string {
	return strings.ReplaceAll(module, ".", "/") + a.Config.Package.Extension
}

func (a *App) knownModuleKeys() []string {
	a.repoMu.RLock()
	defer a.repoMu.RUnlock()
	if a.repository == nil {
		return nil
	}
	keys := make([]string, 0, a.repository.ModuleCount())
	for _, module := range a.repository.Modules() {
		keys = append(keys, a.moduleKey(module))
	}
	sort.Strings(keys)
	return keys
}

func (a *App) knownModuleForKey(key string) bool {
	name, err := ir.ModuleNameFromPath(key)
	if err != nil {
		return false
	}
	a.repoMu.RLock()
	defer a.repoMu.RUnlock()
	if a.repository == nil {
		return false
	}
	_, ok := a.repository.Module(name.String())
	return ok
}

// fullChangeset classifies a complete scan against the current
// repository: found files become inserts or updates, known modules whose
// files disappeared become deletions.
func (a *App) fullChangeset(files []string) (frontend.Changeset, error) {
	set := frontend.Changeset{}
	found := make(map[string]bool, len(files))

	for i, path := range files {
		key, err := a.sourceKey(path)
		if err != nil {
			return nil, err
		}
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read source %q: %w", path, err)
		}
		found[key] = true
		kind := frontend.ChangeInsert
		if a.knownModuleForKey(key) {
			kind = frontend.ChangeUpdate
		}
		set[key] = frontend.FileChange{Kind: kind, Text: string(text)}

		if i%100 == 99 && a.Config.Caches.MaxHeapMB > 0 {
			if util.GetHeapAllocMB() > uint64(a.Config.Caches.MaxHeapMB) {
				pruned := a.sources.Prune(20)
				slog.Debug("pruned parse cache under heap pressure", "entries", pruned)
			}
		}
	}

	for _, key := range a.knownModuleKeys() {
		if !found[key] {
			set[key] = frontend.FileChange{Kind: frontend.ChangeDelete}
		}
	}
	return set, nil
}

// changesetForPaths classifies individual changed files. Paths outside
// the source roots or with a foreign extension are ignored so editor
// noise never aborts a watch build.
func (a *App) changesetForPaths(paths []string) (frontend.Changeset, error) {
	set := frontend.Changeset{}
	for _, p := range paths {
		if !a.sources.IsSupportedPath(p) {
			continue
		}
		key, err := a.sourceKey(p)
		if err != nil {
			slog.Debug("ignoring change outside source roots", "path", p)
			continue
		}
		known := a.knownModuleForKey(key)

		text, err := os.ReadFile(p)
		switch {
		case os.IsNotExist(err):
			if known {
				set[key] = frontend.FileChange{Kind: frontend.ChangeDelete}
			}
		case err != nil:
			return nil, fmt.Errorf("read source %q: %w", p, err)
		default:
			kind := frontend.ChangeInsert
			if known {
				kind = frontend.ChangeUpdate
			}
			set[key] = frontend.FileChange{Kind: kind, Text: string(text)}
		}
	}
	return set, nil
}
