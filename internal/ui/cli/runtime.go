package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	coreapp "loom/internal/core/app"
	"loom/internal/core/config"
	"loom/internal/data/history"
	"loom/internal/data/query"
	"loom/internal/shared/observability"
	"loom/internal/shared/util"
	"loom/internal/ui/report"
)

func Run(args []string) int {
	opts, err := parseOptions(args)
	if err != nil {
		return 2
	}

	if opts.version {
		fmt.Printf("loom v%s\n", versionString)
		return 0
	}

	cleanupLogs := configureLogging(opts.ui, opts.verbose)
	defer cleanupLogs()

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to detect working directory", "error", err)
		return 1
	}

	cfg, cfgPath, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	config.ApplyEnvOverrides(cfg)
	slog.Debug("configuration loaded", "path", cfgPath)

	if err := applyModeOptions(&opts, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.Enabled && cfg.Observability.EnableTracing {
		shutdownTracing, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, versionString)
		if err != nil {
			slog.Error("failed to initialize tracing", "error", err)
			return 1
		}
		defer func() { _ = shutdownTracing(context.Background()) }()
	}

	build, err := initializeBuild(cfg, coreBuildFactory{})
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	app := unwrapApp(build)
	if app == nil {
		slog.Error("build service does not expose the core app")
		return 1
	}
	defer func() { _ = app.Close(context.Background()) }()

	if err := app.Bootstrap(ctx); err != nil {
		slog.Error("failed to bootstrap repository", "error", err)
		return 1
	}

	if cfg.Observability.Enabled && cfg.Observability.EnableMetrics {
		obs := NewObservabilityServer(cfg.Observability.MetricsAddr, coreapp.NewHealthService(app))
		if err := obs.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
			return 1
		}
		defer func() { _ = obs.Stop(context.Background()) }()
	}

	result, err := build.InitialBuild(ctx)
	if err != nil {
		slog.Error("initial build failed", "error", err)
		return 1
	}

	if opts.check {
		if result.Failed() {
			for _, msg := range result.Errors {
				fmt.Fprintln(os.Stderr, msg)
			}
			return 1
		}
		return 0
	}

	if opts.history {
		if err := runHistoryMode(ctx, opts, app); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return 1
		}
		return 0
	}
	if handled, code := runQueryCommand(app, opts); handled {
		return code
	}

	if opts.once {
		return 0
	}

	watch := build.WatchService()
	if watch == nil {
		slog.Error("watch service unavailable")
		return 1
	}
	if err := watch.Start(ctx); err != nil {
		slog.Error("failed to start watcher", "error", err)
		return 1
	}

	cfgWatcher := config.NewWatcher(cfgPath, func(*config.Config) {
		slog.Info("config file changed; restart to apply", "path", cfgPath)
	})
	if err := cfgWatcher.Start(ctx); err != nil {
		slog.Warn("config watcher unavailable", "error", err)
	} else {
		defer cfgWatcher.Stop()
	}

	if opts.ui {
		if err := runUI(app); err != nil {
			slog.Error("failed to run UI", "error", err)
			return 1
		}
		return 0
	}

	<-ctx.Done()
	return 0
}

// runHistoryMode renders the persisted build trend report. Queued history
// writes are flushed first so the build that just ran is part of it.
func runHistoryMode(ctx context.Context, opts cliOptions, app *coreapp.App) error {
	store := app.History()
	if store == nil {
		return fmt.Errorf("history reporting requires db.enabled = true")
	}

	since, err := parseSince(opts.since)
	if err != nil {
		return err
	}
	window, err := parseHistoryWindow(opts.historyWindow)
	if err != nil {
		return err
	}

	if err := app.FlushHistory(ctx); err != nil {
		return fmt.Errorf("flush history writes: %w", err)
	}

	stats, err := store.LoadBuildStats(app.ProjectKey(), since, 0)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Println("History: no builds matched the requested time window.")
		return nil
	}

	trend, err := history.BuildTrendReport(app.ProjectKey(), stats, window)
	if err != nil {
		return err
	}

	fmt.Printf(
		"History: %d builds (%d failed) from %s to %s\n",
		trend.BuildCount,
		trend.FailureCount,
		trend.Since.Format("2006-01-02 15:04:05"),
		trend.Until.Format("2006-01-02 15:04:05"),
	)
	if len(trend.Points) > 0 {
		latest := trend.Points[len(trend.Points)-1]
		fmt.Printf(
			"Trend latest: modules=%d (%+d), types=%d (%+d), values=%d (%+d), errors=%d (%+d)\n",
			latest.ModuleCount,
			latest.DeltaModules,
			latest.TypeCount,
			latest.DeltaTypes,
			latest.ValueCount,
			latest.DeltaValues,
			latest.ErrorCount,
			latest.DeltaErrors,
		)
	}

	if opts.historyTSV != "" {
		tsv, err := report.RenderTrendTSV(trend)
		if err != nil {
			return fmt.Errorf("render trend TSV: %w", err)
		}
		if err := writeBytes(opts.historyTSV, tsv); err != nil {
			return fmt.Errorf("write trend TSV %q: %w", opts.historyTSV, err)
		}
	}
	if opts.historyJSON != "" {
		raw, err := report.RenderTrendJSON(trend)
		if err != nil {
			return fmt.Errorf("render trend JSON: %w", err)
		}
		if err := writeBytes(opts.historyJSON, raw); err != nil {
			return fmt.Errorf("write trend JSON %q: %w", opts.historyJSON, err)
		}
	}
	return nil
}

// runQueryCommand handles the one-shot query flags against the repository
// the initial build produced. The bool reports whether any query flag was
// present at all.
func runQueryCommand(app *coreapp.App, opts cliOptions) (bool, int) {
	if !opts.queryModules && opts.queryModule == "" && opts.queryTrace == "" && opts.queryCQL == "" {
		return false, 0
	}

	svc := query.NewService(app.Repository())
	ctx := context.Background()

	switch {
	case opts.queryModule != "":
		details, err := svc.ModuleDetails(ctx, strings.TrimSpace(opts.queryModule))
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return true, 1
		}
		fmt.Printf("Module: %s\n", details.Name)
		fmt.Printf("Types: %d, Values: %d, Imports: %d, Dependents: %d\n",
			len(details.Types), len(details.Values), len(details.Imports), len(details.Dependents))
		if len(details.ExposedTypes) > 0 {
			fmt.Printf("Exposed types: %s\n", strings.Join(details.ExposedTypes, ", "))
		}
		if len(details.ExposedValues) > 0 {
			fmt.Printf("Exposed values: %s\n", strings.Join(details.ExposedValues, ", "))
		}
		if len(details.Imports) > 0 {
			fmt.Println("Imports:")
			for _, imp := range details.Imports {
				fmt.Printf("  - %s\n", imp)
			}
		}
		return true, 0
	case opts.queryTrace != "":
		from, to, err := parseQueryTrace(opts.queryTrace)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return true, 1
		}
		trace, err := svc.DependencyTrace(ctx, from, to, opts.queryLimit)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return true, 1
		}
		fmt.Printf("Trace depth=%d: %s\n", trace.Depth, strings.Join(trace.Path, " -> "))
		return true, 0
	case opts.queryCQL != "":
		rows, err := svc.ExecuteCQL(ctx, opts.queryCQL, opts.queryLimit)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return true, 1
		}
		printModuleRows(rows)
		return true, 0
	default:
		rows, err := svc.ListModules(ctx, strings.TrimSpace(opts.queryFilter), opts.queryLimit)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return true, 1
		}
		printModuleRows(rows)
		return true, 0
	}
}

func printModuleRows(rows []query.ModuleSummary) {
	fmt.Printf("Modules (%d):\n", len(rows))
	for _, row := range rows {
		fmt.Printf("  %s types=%d values=%d imports=%d imported_by=%d\n",
			row.Name, row.TypeCount, row.ValueCount, row.ImportCount, row.DependentCount)
	}
}

func loadConfig(path, cwd string) (*config.Config, string, error) {
	if path != defaultConfigPath {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}

	candidates, err := discoverDefaultConfig(cwd)
	if err != nil {
		return nil, "", err
	}

	var lastErr error
	for _, candidate := range candidates {
		cfg, loadErr := config.Load(candidate)
		if loadErr == nil {
			return cfg, candidate, nil
		}
		if os.IsNotExist(loadErr) {
			lastErr = loadErr
			continue
		}
		return nil, "", loadErr
	}

	if lastErr != nil {
		return nil, "", lastErr
	}
	return nil, "", fmt.Errorf("no default config file found")
}

// discoverDefaultConfig lists candidate config paths in priority order.
// loom.toml in the project root doubles as the root marker, so it stays a
// supported location next to the data/config layout.
func discoverDefaultConfig(cwd string) ([]string, error) {
	if cwd == "" {
		return nil, fmt.Errorf("cwd must not be empty")
	}
	return []string{
		filepath.Clean(filepath.Join(cwd, "data/config/loom.toml")),
		filepath.Clean(filepath.Join(cwd, "loom.toml")),
		filepath.Clean(filepath.Join(cwd, "data/config/loom.example.toml")),
		filepath.Clean(filepath.Join(cwd, "loom.example.toml")),
	}, nil
}

func applyModeOptions(opts *cliOptions, cfg *config.Config) error {
	queryMode := opts.queryModules || opts.queryModule != "" || opts.queryTrace != "" || opts.queryCQL != ""

	modeCount := 0
	if opts.check {
		modeCount++
	}
	if opts.ui {
		modeCount++
	}
	if opts.history {
		modeCount++
	}
	if queryMode {
		modeCount++
	}
	if modeCount > 1 {
		return fmt.Errorf("--check, --ui, --history, and --query-* modes cannot be combined")
	}

	if (opts.historyTSV != "" || opts.historyJSON != "") && !opts.history {
		return fmt.Errorf("--history-tsv/--history-json require --history")
	}
	if opts.history {
		if _, err := parseSince(opts.since); err != nil {
			return err
		}
		if _, err := parseHistoryWindow(opts.historyWindow); err != nil {
			return err
		}
	}
	if opts.queryTrace != "" {
		if _, _, err := parseQueryTrace(opts.queryTrace); err != nil {
			return err
		}
	}

	if len(opts.args) > 0 {
		cfg.Package.SourceRoots = append([]string(nil), opts.args...)
	}

	// The TUI and the report modes own stdout; per-build terminal
	// summaries would corrupt their output.
	if opts.ui || opts.history || queryMode {
		cfg.Alerts.Terminal = false
	}
	return nil
}

func parseSince(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, nil
	}

	rfc3339, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return rfc3339.UTC(), nil
	}

	dateOnly, err := time.Parse("2006-01-02", raw)
	if err == nil {
		return dateOnly.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("--since must be RFC3339 or YYYY-MM-DD, got %q", value)
}

func parseHistoryWindow(value string) (time.Duration, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("--history-window must be a Go duration (example: 24h), got %q", value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("--history-window must be > 0, got %q", value)
	}
	return d, nil
}

func parseQueryTrace(raw string) (string, string, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return "", "", fmt.Errorf("--query-trace must be formatted as <from>:<to>")
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

func writeBytes(path string, data []byte) error {
	return util.WriteFileWithDirs(path, data, 0o644)
}

func configureLogging(uiMode, verbose bool) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stdout
	var closeFn func() = func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
				if err == nil {
					output = f
					closeFn = func() { _ = f.Close() }
				} else {
					fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "loom", "loom.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "loom", "loom.log")
	}

	return "loom.log"
}
