package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"loom/internal/core/config"
	"loom/internal/core/ports"
	"loom/internal/core/watcher"
	"loom/internal/data/history"
	"loom/internal/engine/architecture"
	"loom/internal/engine/frontend"
	"loom/internal/engine/repo"
	"loom/internal/shared/util"
)

// App owns the live repository and everything around it: the parse cache,
// build history, the write-behind queue and the file watcher. All builds
// funnel through runChangeset so watch mode and one-shot builds persist
// and publish the same way.
type App struct {
	Config *config.Config
	Paths  config.ResolvedPaths

	repoMu     sync.RWMutex
	repository *repo.Repository

	sources *parseCache

	history      ports.HistoryStore
	historyStore *history.Store

	writeQueue   ports.WriteQueuePort
	writeSpool   ports.WriteSpoolPort
	workerCancel context.CancelFunc
	workerDone   chan struct{}

	activeWatcher *watcher.Watcher
	limiter       *util.Limiter
	rules         *architecture.LayerRuleEngine

	updateMu      sync.RWMutex
	lastUpdate    ports.WatchUpdate
	updateHandler func(ports.WatchUpdate)

	projectKey string
}

func New(cfg *config.Config) (*App, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		return nil, fmt.Errorf("resolve project paths: %w", err)
	}

	sources, err := newParseCache(cfg.Package.Extension, cfg.Caches.ParseEntries)
	if err != nil {
		return nil, err
	}

	projectKey := strings.TrimSpace(cfg.Package.Name)
	if projectKey == "" {
		projectKey = "default"
	}

	var rules *architecture.LayerRuleEngine
	if cfg.Architecture.Enabled {
		rules = architecture.NewLayerRuleEngine(architectureModel(cfg.Architecture))
	}

	return &App{
		Config:     cfg,
		Paths:      paths,
		sources:    sources,
		limiter:    util.NewLimiter(cfg.Watch.MaxBuildsPerSec, cfg.Watch.Burst),
		rules:      rules,
		projectKey: projectKey,
	}, nil
}

func architectureModel(arch config.Architecture) architecture.Model {
	model := architecture.Model{Enabled: arch.Enabled}
	for _, layer := range arch.Layers {
		model.Layers = append(model.Layers, architecture.Layer{
			Name:    layer.Name,
			Modules: append([]string(nil), layer.Modules...),
		})
	}
	for _, rule := range arch.Rules {
		model.Rules = append(model.Rules, architecture.Rule{
			Name:  rule.Name,
			From:  rule.From,
			Allow: append([]string(nil), rule.Allow...),
		})
	}
	return model
}

// Bootstrap prepares the repository for builds: dependency specs are
// loaded, the history store is opened when enabled, the write worker is
// started, and the latest persisted snapshot is restored so watch mode
// resumes where the previous run left off.
func (a *App) Bootstrap(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	repository := repo.New(a.Config.Package.Name)
	for _, specPath := range a.Paths.SpecPaths {
		data, err := os.ReadFile(specPath)
		if err != nil {
			return fmt.Errorf("read dependency spec %q: %w", specPath, err)
		}
		spec, err := repo.LoadPackageSpec(data)
		if err != nil {
			return fmt.Errorf("load dependency spec %q: %w", specPath, err)
		}
		if err := repository.AddDependency(spec); err != nil {
			return fmt.Errorf("register dependency %q: %w", spec.Package, err)
		}
	}

	a.repoMu.Lock()
	a.repository = repository
	a.repoMu.Unlock()

	if a.Config.DB.IsEnabled() {
		store, err := history.Open(a.Paths.DBPath)
		if err != nil {
			if history.IsCorruptError(err) {
				return fmt.Errorf("history database %q is corrupt, delete it and rebuild: %w", a.Paths.DBPath, err)
			}
			return fmt.Errorf("open history store: %w", err)
		}
		a.historyStore = store
		a.history = history.NewAdapter(store)
	}

	if err := a.initWriteQueue(); err != nil {
		return fmt.Errorf("init write queue: %w", err)
	}

	a.restoreLatestSnapshot()
	return nil
}

// restoreLatestSnapshot swaps in the most recent persisted repository.
// Any problem falls back to the fresh repository: the next full build
// recreates the state the snapshot would have provided.
func (a *App) restoreLatestSnapshot() {
	if a.history == nil {
		return
	}
	snap, ok, err := a.history.LoadLatestSnapshot(a.projectKey)
	if err != nil {
		slog.Warn("failed to load latest snapshot, starting fresh", "error", err)
		return
	}
	if !ok {
		return
	}
	restored, err := repo.Restore(snap.Repository)
	if err != nil {
		slog.Warn("failed to restore snapshot, starting fresh", "build_id", snap.BuildID, "error", err)
		return
	}
	if restored.Package() != a.Config.Package.Name {
		slog.Warn("snapshot belongs to a different package, starting fresh",
			"snapshot_package", restored.Package(), "package", a.Config.Package.Name)
		return
	}
	a.repoMu.Lock()
	a.repository = restored
	a.repoMu.Unlock()
	slog.Info("restored repository from snapshot",
		"build_id", snap.BuildID,
		"modules", restored.ModuleCount(),
		"types", restored.TypeCount(),
		"values", restored.ValueCount())
}

// InitialBuild scans every source root and applies the result as one
// changeset. Against a fresh repository that is all inserts; after a
// snapshot restore it turns into updates, inserts and deletions for
// whatever changed while the process was down.
func (a *App) InitialBuild(ctx context.Context) (ports.BuildResult, error) {
	files, err := a.ScanSourceRoots()
	if err != nil {
		return ports.BuildResult{}, err
	}
	set, err := a.fullChangeset(files)
	if err != nil {
		return ports.BuildResult{}, err
	}
	return a.runChangeset(ctx, set), nil
}

// RunBuild rebuilds the given files or directories. An empty request is a
// full build.
func (a *App) RunBuild(ctx context.Context, paths []string) (ports.BuildResult, error) {
	if len(paths) == 0 {
		return a.InitialBuild(ctx)
	}
	expanded, err := a.expandBuildPaths(paths)
	if err != nil {
		return ports.BuildResult{}, err
	}
	set, err := a.changesetForPaths(expanded)
	if err != nil {
		return ports.BuildResult{}, err
	}
	return a.runChangeset(ctx, set), nil
}

func (a *App) runChangeset(ctx context.Context, set frontend.Changeset) ports.BuildResult {
	buildID := uuid.NewString()
	started := time.Now().UTC()

	a.repoMu.Lock()
	res := frontend.ApplyChangeset(ctx, a.repository, set, frontend.Options{Parser: a.sources})
	a.repoMu.Unlock()

	result := ports.BuildResult{
		BuildID:        buildID,
		FilesChanged:   len(set),
		ModulesOrdered: res.Stats.ModulesOrdered,
		ModulesDeleted: res.Stats.ModulesDeleted,
		TypesInserted:  res.Stats.TypesInserted,
		ValuesInserted: res.Stats.ValuesInserted,
		Duration:       res.Stats.Elapsed,
	}
	for _, err := range res.Errors {
		result.Errors = append(result.Errors, err.Error())
	}

	if a.rules != nil {
		a.repoMu.RLock()
		violations := a.rules.Validate(a.repository)
		a.repoMu.RUnlock()
		for _, v := range violations {
			result.RuleViolations = append(result.RuleViolations, v.String())
		}
		if len(violations) > 0 {
			slog.Warn("architecture rules violated", "build_id", buildID, "count", len(violations))
		}
	}

	a.persistBuild(started, result)
	a.publishUpdate(result)
	newPresentationService(a).PrintBuild(result)
	return result
}

// persistBuild hands the build record and, for clean builds, a repository
// snapshot to the write queue. Failed builds still get a record, but no
// snapshot: resume always lands on a state with no pending rejections.
func (a *App) persistBuild(started time.Time, result ports.BuildResult) {
	if a.history == nil {
		return
	}

	record := history.BuildRecord{
		ID:             result.BuildID,
		StartedAt:      started,
		FinishedAt:     started.Add(result.Duration),
		Status:         history.BuildOK,
		FilesChanged:   result.FilesChanged,
		ModulesOrdered: result.ModulesOrdered,
		ModulesDeleted: result.ModulesDeleted,
		TypesInserted:  result.TypesInserted,
		ValuesInserted: result.ValuesInserted,
		Errors:         append([]string(nil), result.Errors...),
	}
	if result.Failed() {
		record.Status = history.BuildFailed
	}
	if err := a.enqueueHistoryWrite(ports.WriteRequest{
		Operation: ports.WriteOpSaveBuild,
		Build:     &record,
	}); err != nil {
		slog.Warn("failed to persist build record", "build_id", result.BuildID, "error", err)
	}

	if result.Failed() {
		return
	}
	blob, err := a.snapshotRepository()
	if err != nil {
		slog.Warn("failed to snapshot repository", "build_id", result.BuildID, "error", err)
		return
	}
	modules, types, values := a.repositoryCounts()
	snap := history.Snapshot{
		BuildID:       result.BuildID,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: history.SchemaVersion,
		ModuleCount:   modules,
		TypeCount:     types,
		ValueCount:    values,
		Repository:    blob,
	}
	if err := a.enqueueHistoryWrite(ports.WriteRequest{
		Operation: ports.WriteOpSaveSnapshot,
		Snapshot:  &snap,
	}); err != nil {
		slog.Warn("failed to persist repository snapshot", "build_id", result.BuildID, "error", err)
	}
}

func (a *App) publishUpdate(result ports.BuildResult) {
	modules, types, values := a.repositoryCounts()
	update := ports.WatchUpdate{
		BuildID:     result.BuildID,
		ModuleCount: modules,
		TypeCount:   types,
		ValueCount:  values,
		Errors:      append([]string(nil), result.Errors...),
	}

	a.updateMu.Lock()
	a.lastUpdate = update
	handler := a.updateHandler
	a.updateMu.Unlock()

	if handler != nil {
		handler(update)
	}
}

func (a *App) SetUpdateHandler(handler func(ports.WatchUpdate)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.updateHandler = handler
}

func (a *App) CurrentUpdate() ports.WatchUpdate {
	a.updateMu.RLock()
	last := a.lastUpdate
	a.updateMu.RUnlock()
	if last.BuildID != "" {
		return last
	}
	modules, types, values := a.repositoryCounts()
	return ports.WatchUpdate{ModuleCount: modules, TypeCount: types, ValueCount: values}
}

// HandleChanges is the watcher callback. The limiter spreads rebuild
// bursts out so editors that save in rapid succession cannot starve the
// process.
func (a *App) HandleChanges(paths []string) {
	if len(paths) == 0 {
		return
	}
	if a.limiter != nil {
		if err := a.limiter.Wait(context.Background(), 1); err != nil {
			slog.Warn("build rate limiter rejected rebuild", "error", err)
			return
		}
	}
	slog.Info("detected changes", "count", len(paths))

	set, err := a.changesetForPaths(paths)
	if err != nil {
		slog.Warn("failed to classify changed paths", "error", err)
		return
	}
	if len(set) == 0 {
		return
	}

	result := a.runChangeset(context.Background(), set)
	if result.Failed() && a.Config.Alerts.Beep {
		fmt.Print("\a")
	}
}

func (a *App) StartWatcher() error {
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		a.HandleChanges,
	)
	if err != nil {
		return err
	}
	w.SetSourceFilter(a.sources)
	a.activeWatcher = w
	return w.Watch(a.Paths.SourceRoots)
}

// Repository returns the live repository. Callers must treat it as
// read-only; all mutation goes through runChangeset.
func (a *App) Repository() *repo.Repository {
	a.repoMu.RLock()
	defer a.repoMu.RUnlock()
	return a.repository
}

// History returns the build history store, or nil when persistence is
// disabled.
func (a *App) History() ports.HistoryStore {
	return a.history
}

func (a *App) ProjectKey() string {
	return a.projectKey
}

func (a *App) repositoryCounts() (modules, types, values int) {
	a.repoMu.RLock()
	defer a.repoMu.RUnlock()
	if a.repository == nil {
		return 0, 0, 0
	}
	return a.repository.ModuleCount(), a.repository.TypeCount(), a.repository.ValueCount()
}

func (a *App) snapshotRepository() ([]byte, error) {
	a.repoMu.RLock()
	defer a.repoMu.RUnlock()
	return a.repository.Snapshot()
}
