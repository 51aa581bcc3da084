package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "config*.toml")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoad(t *testing.T) {
	content := `
version = 1

[package]
name = "aurora"
source_roots = ["src", "vendor-specs"]
extension = ".loom"

[paths]
state_dir = "state"
database_dir = "db"

[db]
path = "history.db"
busy_timeout = "3s"

[watch]
debounce = "1s"
max_builds_per_sec = 2.5
burst = 3

[exclude]
dirs = [".git", "node_modules"]
files = ["*.tmp"]

[alerts]
beep = true
terminal = true
`
	cfg, err := Load(writeConfigFile(t, content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Package.Name != "aurora" {
		t.Errorf("Expected package name aurora, got %s", cfg.Package.Name)
	}
	if len(cfg.Package.SourceRoots) != 2 || cfg.Package.SourceRoots[0] != "src" {
		t.Errorf("Unexpected source roots: %v", cfg.Package.SourceRoots)
	}
	if cfg.Package.Extension != ".loom" {
		t.Errorf("Expected extension .loom, got %s", cfg.Package.Extension)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("Expected debounce 1s, got %v", cfg.Watch.Debounce)
	}
	if cfg.Watch.MaxBuildsPerSec != 2.5 {
		t.Errorf("Expected max_builds_per_sec 2.5, got %v", cfg.Watch.MaxBuildsPerSec)
	}
	if cfg.Watch.Burst != 3 {
		t.Errorf("Expected burst 3, got %d", cfg.Watch.Burst)
	}
	if cfg.DB.Path != "history.db" {
		t.Errorf("Expected db path history.db, got %s", cfg.DB.Path)
	}
	if cfg.DB.BusyTimeout != 3*time.Second {
		t.Errorf("Expected busy timeout 3s, got %v", cfg.DB.BusyTimeout)
	}
	if len(cfg.Exclude.Dirs) != 2 || cfg.Exclude.Dirs[1] != "node_modules" {
		t.Errorf("Unexpected exclude dirs: %v", cfg.Exclude.Dirs)
	}
	if !cfg.Alerts.Beep || !cfg.Alerts.Terminal {
		t.Error("Expected alerts to be enabled")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Version != 1 {
		t.Errorf("Expected default version 1, got %d", cfg.Version)
	}
	if cfg.Package.Name != "app" {
		t.Errorf("Expected default package name app, got %q", cfg.Package.Name)
	}
	if len(cfg.Package.SourceRoots) != 1 || cfg.Package.SourceRoots[0] != "src" {
		t.Errorf("Unexpected default source roots: %v", cfg.Package.SourceRoots)
	}
	if cfg.Package.Extension != ".loom" {
		t.Errorf("Expected default extension .loom, got %q", cfg.Package.Extension)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("Expected default debounce 500ms, got %v", cfg.Watch.Debounce)
	}
	if cfg.DB.Path != "loom.db" {
		t.Errorf("Expected default db path loom.db, got %q", cfg.DB.Path)
	}
	if !cfg.DB.IsEnabled() {
		t.Error("Expected db enabled by default")
	}
	if cfg.Paths.StateDir != "data/state" {
		t.Errorf("Expected default state dir data/state, got %q", cfg.Paths.StateDir)
	}
	if cfg.Caches.ParseEntries != 512 {
		t.Errorf("Expected default parse_entries 512, got %d", cfg.Caches.ParseEntries)
	}
	if cfg.Observability.MetricsAddr != "127.0.0.1:9464" {
		t.Errorf("Expected default metrics addr, got %q", cfg.Observability.MetricsAddr)
	}
}

func TestLoadWriteQueueDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	q := cfg.WriteQueue
	if !q.QueueEnabled() {
		t.Error("expected write queue enabled by default")
	}
	if q.PersistentQueueEnabled() {
		t.Error("expected persistent queue disabled by default")
	}
	if !q.SyncFallbackEnabled() {
		t.Error("expected sync fallback enabled by default")
	}
	if q.MemoryCapacity != 256 {
		t.Errorf("expected memory_capacity 256, got %d", q.MemoryCapacity)
	}
	if q.BatchSize != 16 {
		t.Errorf("expected batch_size 16, got %d", q.BatchSize)
	}
	if q.FlushInterval != 100*time.Millisecond {
		t.Errorf("expected flush_interval 100ms, got %v", q.FlushInterval)
	}
	if q.ShutdownDrainTimeout != 10*time.Second {
		t.Errorf("expected shutdown_drain_timeout 10s, got %v", q.ShutdownDrainTimeout)
	}
	if q.SpoolPath != "spool.db" {
		t.Errorf("expected spool_path spool.db, got %q", q.SpoolPath)
	}
}

func TestLoadWriteQueueOverrides(t *testing.T) {
	content := `
[write_queue]
enabled = false
persistent_enabled = true
sync_fallback = false
memory_capacity = 32
batch_size = 8
spool_path = "queue.db"
`
	cfg, err := Load(writeConfigFile(t, content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	q := cfg.WriteQueue
	if q.QueueEnabled() {
		t.Error("expected write queue disabled")
	}
	if !q.PersistentQueueEnabled() {
		t.Error("expected persistent queue enabled")
	}
	if q.SyncFallbackEnabled() {
		t.Error("expected sync fallback disabled")
	}
	if q.MemoryCapacity != 32 || q.BatchSize != 8 {
		t.Errorf("unexpected queue sizing: capacity=%d batch=%d", q.MemoryCapacity, q.BatchSize)
	}
	if q.SpoolPath != "queue.db" {
		t.Errorf("expected spool_path queue.db, got %q", q.SpoolPath)
	}
}

func TestLoadDatabaseDisabled(t *testing.T) {
	content := `
[db]
enabled = false
`
	cfg, err := Load(writeConfigFile(t, content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DB.IsEnabled() {
		t.Error("expected db disabled")
	}
}

func TestLoadArchitecture(t *testing.T) {
	content := `
[architecture]
enabled = true

[[architecture.layers]]
name = "ui"
modules = ["Ui.**", "Page.**"]

[[architecture.layers]]
name = "data"
modules = ["Data.**"]

[[architecture.rules]]
name = "ui-stays-pure"
from = "ui"
allow = ["ui"]
`
	cfg, err := Load(writeConfigFile(t, content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	arch := cfg.Architecture
	if !arch.Enabled {
		t.Error("expected architecture enabled")
	}
	if len(arch.Layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(arch.Layers))
	}
	if arch.Layers[0].Name != "ui" || len(arch.Layers[0].Modules) != 2 {
		t.Errorf("unexpected ui layer: %+v", arch.Layers[0])
	}
	if len(arch.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(arch.Rules))
	}
	r := arch.Rules[0]
	if r.Name != "ui-stays-pure" || r.From != "ui" || len(r.Allow) != 1 || r.Allow[0] != "ui" {
		t.Errorf("unexpected rule: %+v", r)
	}
}

func TestLoadError(t *testing.T) {
	_, err := Load("nonexistent.toml")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}

	_, err = Load(writeConfigFile(t, "bad = toml = format"))
	if err == nil {
		t.Error("Expected error for malformed TOML")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errSub  string
	}{
		{
			name:    "unsupported version",
			content: `version = 3`,
			errSub:  "unsupported config version",
		},
		{
			name: "wildcard source root",
			content: `
[package]
source_roots = ["src/*"]
`,
			errSub: "must not contain wildcards",
		},
		{
			name: "overlapping source roots",
			content: `
[package]
source_roots = ["src", "src/lib"]
`,
			errSub: "overlap",
		},
		{
			name: "extension missing dot",
			content: `
[package]
extension = "loom"
`,
			errSub: "package.extension must be a dot-prefixed suffix",
		},
		{
			name: "package name with whitespace",
			content: `
[package]
name = "my app"
`,
			errSub: "package.name must not contain whitespace",
		},
		{
			name: "duplicate spec paths",
			content: `
[deps]
spec_paths = ["sdk.json", "sdk.json"]
`,
			errSub: "duplicate deps.spec_paths entry",
		},
		{
			name: "debounce too small",
			content: `
[watch]
debounce = "1ms"
`,
			errSub: "watch.debounce must be >= 10ms",
		},
		{
			name: "invalid exclude pattern",
			content: `
[exclude]
files = ["[invalid"]
`,
			errSub: "is invalid",
		},
		{
			name: "persistent queue without spool path",
			content: `
[write_queue]
persistent_enabled = true
spool_path = "  "
`,
			errSub: "write_queue.spool_path must not be empty",
		},
		{
			name: "parse cache too large",
			content: `
[caches]
parse_entries = 100000
`,
			errSub: "caches.parse_entries must be between 1 and 65536",
		},
		{
			name: "negative heap ceiling",
			content: `
[caches]
max_heap_mb = -1
`,
			errSub: "caches.max_heap_mb must not be negative",
		},
		{
			name: "tracing without endpoint",
			content: `
[observability]
enabled = true
enable_tracing = true
`,
			errSub: "observability.otlp_endpoint must not be empty",
		},
		{
			name: "architecture without layers",
			content: `
[architecture]
enabled = true
`,
			errSub: "architecture.enabled=true requires at least one layer",
		},
		{
			name: "duplicate architecture layer",
			content: `
[architecture]
enabled = true

[[architecture.layers]]
name = "ui"
modules = ["Ui.**"]

[[architecture.layers]]
name = "ui"
modules = ["Page.**"]
`,
			errSub: "duplicate architecture layer name",
		},
		{
			name: "architecture rule with unknown from layer",
			content: `
[architecture]
enabled = true

[[architecture.layers]]
name = "ui"
modules = ["Ui.**"]

[[architecture.rules]]
name = "ui-stays-pure"
from = "frontend"
allow = ["ui"]
`,
			errSub: "references unknown from layer",
		},
		{
			name: "architecture rule without allowed layers",
			content: `
[architecture]
enabled = true

[[architecture.layers]]
name = "ui"
modules = ["Ui.**"]

[[architecture.rules]]
name = "ui-stays-pure"
from = "ui"
`,
			errSub: "must include at least one allowed layer",
		},
		{
			name: "architecture layer with invalid pattern",
			content: `
[architecture]
enabled = true

[[architecture.layers]]
name = "ui"
modules = ["["]
`,
			errSub: "is invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errSub) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("LOOM_PACKAGE_NAME", "orion")
	t.Setenv("LOOM_DB_ENABLED", "false")
	t.Setenv("LOOM_WATCH_DEBOUNCE", "250ms")
	t.Setenv("LOOM_CACHES_PARSE_ENTRIES", "64")

	cfg, err := Load(writeConfigFile(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	ApplyEnvOverrides(cfg)

	if cfg.Package.Name != "orion" {
		t.Errorf("expected env override for package name, got %q", cfg.Package.Name)
	}
	if cfg.DB.IsEnabled() {
		t.Error("expected env override to disable db")
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("expected debounce 250ms, got %v", cfg.Watch.Debounce)
	}
	if cfg.Caches.ParseEntries != 64 {
		t.Errorf("expected parse_entries 64, got %d", cfg.Caches.ParseEntries)
	}
}
