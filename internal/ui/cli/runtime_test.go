package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"loom/internal/core/config"
)

func TestParseOptions_Defaults(t *testing.T) {
	opts, err := parseOptions(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.configPath != defaultConfigPath {
		t.Fatalf("unexpected config path: %q", opts.configPath)
	}
	if opts.once || opts.check || opts.ui || opts.history || opts.queryModules || opts.verbose || opts.version {
		t.Fatalf("expected all modes off by default: %+v", opts)
	}
	if opts.historyWindow != "24h" {
		t.Fatalf("unexpected history window default: %q", opts.historyWindow)
	}
}

func TestParseOptions_FlagsAndPositionalArgs(t *testing.T) {
	opts, err := parseOptions([]string{"--check", "--verbose", "./src", "./generated"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !opts.check || !opts.verbose {
		t.Fatalf("expected check and verbose set: %+v", opts)
	}
	if len(opts.args) != 2 || opts.args[0] != "./src" {
		t.Fatalf("unexpected positional args: %v", opts.args)
	}
}

func TestApplyModeOptions_RejectsCheckWithUI(t *testing.T) {
	opts := &cliOptions{check: true, ui: true}

	err := applyModeOptions(opts, &config.Config{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "cannot be combined") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyModeOptions_RejectsCombinedReportModes(t *testing.T) {
	cases := []struct {
		name string
		opts cliOptions
	}{
		{name: "HistoryWithUI", opts: cliOptions{history: true, ui: true}},
		{name: "HistoryWithCheck", opts: cliOptions{history: true, check: true}},
		{name: "QueryWithUI", opts: cliOptions{queryModules: true, ui: true}},
		{name: "QueryWithHistory", opts: cliOptions{queryModule: "App", history: true}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			opts := tc.opts
			err := applyModeOptions(&opts, &config.Config{})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "cannot be combined") {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestApplyModeOptions_HistoryFlagRules(t *testing.T) {
	opts := &cliOptions{historyTSV: "trend.tsv"}
	if err := applyModeOptions(opts, &config.Config{}); err == nil {
		t.Fatal("expected --history-tsv to require --history")
	}

	opts = &cliOptions{history: true, historyWindow: "not-a-duration"}
	if err := applyModeOptions(opts, &config.Config{}); err == nil {
		t.Fatal("expected invalid window to be rejected")
	}

	opts = &cliOptions{history: true, since: "yesterday"}
	if err := applyModeOptions(opts, &config.Config{}); err == nil {
		t.Fatal("expected invalid since to be rejected")
	}

	opts = &cliOptions{history: true, since: "2026-01-02", historyWindow: "48h"}
	if err := applyModeOptions(opts, &config.Config{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyModeOptions_QueryDisablesTerminalAlerts(t *testing.T) {
	opts := &cliOptions{queryModules: true}
	cfg := &config.Config{}
	cfg.Alerts.Terminal = true

	if err := applyModeOptions(opts, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Alerts.Terminal {
		t.Fatal("expected terminal alerts off in query mode")
	}
}

func TestApplyModeOptions_OverridesSourceRootsWithPositionalArgs(t *testing.T) {
	opts := &cliOptions{args: []string{"./lib", "./app"}}
	cfg := &config.Config{}
	cfg.Package.SourceRoots = []string{"src"}

	if err := applyModeOptions(opts, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Package.SourceRoots) != 2 || cfg.Package.SourceRoots[0] != "./lib" {
		t.Fatalf("unexpected source roots: %v", cfg.Package.SourceRoots)
	}
}

func TestApplyModeOptions_UIDisablesTerminalAlerts(t *testing.T) {
	opts := &cliOptions{ui: true}
	cfg := &config.Config{}
	cfg.Alerts.Terminal = true

	if err := applyModeOptions(opts, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Alerts.Terminal {
		t.Fatal("expected terminal alerts off in UI mode")
	}
}

func TestLoadConfig_DefaultDiscoveryOrder(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "data", "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(tmpDir, "data", "config", "loom.toml")
	if err := os.WriteFile(cfgPath, []byte("[package]\nname = \"discovery\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, loadedFrom, err := loadConfig(defaultConfigPath, tmpDir)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Package.Name != "discovery" {
		t.Fatalf("unexpected config payload: %+v", cfg)
	}
	if loadedFrom != cfgPath {
		t.Fatalf("unexpected config path: %q", loadedFrom)
	}
}

func TestLoadConfig_FallsBackToRootToml(t *testing.T) {
	tmpDir := t.TempDir()
	rootPath := filepath.Join(tmpDir, "loom.toml")
	if err := os.WriteFile(rootPath, []byte("[package]\nname = \"rooted\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, loadedFrom, err := loadConfig(defaultConfigPath, tmpDir)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Package.Name != "rooted" {
		t.Fatalf("unexpected config payload: %+v", cfg)
	}
	if loadedFrom != rootPath {
		t.Fatalf("unexpected config path: %q", loadedFrom)
	}
}

func TestLoadConfig_CustomPathNoFallback(t *testing.T) {
	tmpDir := t.TempDir()
	custom := filepath.Join(tmpDir, "custom.toml")

	_, _, err := loadConfig(custom, tmpDir)
	if err == nil {
		t.Fatal("expected missing custom config error")
	}
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestDiscoverDefaultConfig_RejectsEmptyCwd(t *testing.T) {
	if _, err := discoverDefaultConfig(""); err == nil {
		t.Fatal("expected error")
	}
}

func TestInitializeBuild_RequiresFactory(t *testing.T) {
	if _, err := initializeBuild(&config.Config{}, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestCoreBuildFactory_ProducesUnwrappableService(t *testing.T) {
	cfg := &config.Config{}
	cfg.Package.Name = "cli"
	cfg.Package.Extension = ".loom"
	cfg.Package.SourceRoots = []string{"src"}
	cfg.Paths.ProjectRoot = t.TempDir()
	cfg.Paths.StateDir = "data/state"
	cfg.Paths.DatabaseDir = "data/database"
	cfg.Watch.MaxBuildsPerSec = 4
	cfg.Watch.Burst = 1
	cfg.Caches.ParseEntries = 16

	svc, err := initializeBuild(cfg, coreBuildFactory{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unwrapApp(svc) == nil {
		t.Fatal("expected unwrappable core app")
	}
}

func TestResolveLogPath_PrefersXDGStateHome(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg-state")

	got := resolveLogPath()
	if got != filepath.Join("/tmp/xdg-state", "loom", "loom.log") {
		t.Fatalf("unexpected log path: %q", got)
	}
}

func TestParseSince(t *testing.T) {
	if got, err := parseSince(""); err != nil || !got.IsZero() {
		t.Fatalf("empty since should be zero time: %v %v", got, err)
	}

	got, err := parseSince("2026-08-01T10:30:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected time: %v", got)
	}

	got, err = parseSince("2026-08-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected time: %v", got)
	}

	if _, err := parseSince("last tuesday"); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseHistoryWindow(t *testing.T) {
	if d, err := parseHistoryWindow(""); err != nil || d != 24*time.Hour {
		t.Fatalf("empty window should default to 24h: %v %v", d, err)
	}
	if d, err := parseHistoryWindow("30m"); err != nil || d != 30*time.Minute {
		t.Fatalf("unexpected window: %v %v", d, err)
	}
	if _, err := parseHistoryWindow("-1h"); err == nil {
		t.Fatal("expected negative window rejection")
	}
	if _, err := parseHistoryWindow("soon"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseQueryTrace(t *testing.T) {
	from, to, err := parseQueryTrace(" App.Page : Core.Util ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if from != "App.Page" || to != "Core.Util" {
		t.Fatalf("unexpected endpoints: %q %q", from, to)
	}

	if _, _, err := parseQueryTrace("OnlyFrom"); err == nil {
		t.Fatal("expected error")
	}
	if _, _, err := parseQueryTrace(":To"); err == nil {
		t.Fatal("expected error")
	}
}
