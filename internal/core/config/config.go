package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Version       int              `toml:"version"`
	Package       Package          `toml:"package"`
	Deps          Deps             `toml:"deps"`
	Paths         Paths            `toml:"paths"`
	DB            Database         `toml:"db"`
	Watch         Watch            `toml:"watch"`
	Exclude       Exclude          `toml:"exclude"`
	WriteQueue    WriteQueueConfig `toml:"write_queue"`
	Caches        Caches           `toml:"caches"`
	Architecture  Architecture     `toml:"architecture"`
	Observability Observability    `toml:"observability"`
	Alerts        Alerts           `toml:"alerts"`
}

// Package describes the source package the frontend builds.
type Package struct {
	Name        string   `toml:"name"`
	SourceRoots []string `toml:"source_roots"`
	Extension   string   `toml:"extension"`
}

// Deps lists JSON package-spec documents loaded as external dependencies.
type Deps struct {
	SpecPaths []string `toml:"spec_paths"`
}

type Paths struct {
	ProjectRoot string `toml:"project_root"`
	StateDir    string `toml:"state_dir"`
	DatabaseDir string `toml:"database_dir"`
}

type Database struct {
	Enabled     *bool         `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

func (d Database) IsEnabled() bool {
	if d.Enabled == nil {
		return true
	}
	return *d.Enabled
}

type Watch struct {
	Debounce        time.Duration `toml:"debounce"`
	MaxBuildsPerSec float64       `toml:"max_builds_per_sec"`
	Burst           int           `toml:"burst"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type WriteQueueConfig struct {
	Enabled              *bool         `toml:"enabled"`
	MemoryCapacity       int           `toml:"memory_capacity"`
	BatchSize            int           `toml:"batch_size"`
	FlushInterval        time.Duration `toml:"flush_interval"`
	ShutdownDrainTimeout time.Duration `toml:"shutdown_drain_timeout"`
	RetryBaseDelay       time.Duration `toml:"retry_base_delay"`
	RetryMaxDelay        time.Duration `toml:"retry_max_delay"`
	PersistentEnabled    *bool         `toml:"persistent_enabled"`
	SpoolPath            string        `toml:"spool_path"`
	SyncFallback         *bool         `toml:"sync_fallback"`
}

func (q WriteQueueConfig) QueueEnabled() bool {
	if q.Enabled == nil {
		return true
	}
	return *q.Enabled
}

func (q WriteQueueConfig) PersistentQueueEnabled() bool {
	if q.PersistentEnabled == nil {
		return false
	}
	return *q.PersistentEnabled
}

func (q WriteQueueConfig) SyncFallbackEnabled() bool {
	if q.SyncFallback == nil {
		return true
	}
	return *q.SyncFallback
}

type Caches struct {
	ParseEntries int `toml:"parse_entries"`
	MaxHeapMB    int `toml:"max_heap_mb"`
}

// Architecture declares layer rules checked after every build. Layers
// group modules by dotted-path patterns; each rule limits one layer to
// importing only from the layers it allows.
type Architecture struct {
	Enabled bool                `toml:"enabled"`
	Layers  []ArchitectureLayer `toml:"layers"`
	Rules   []ArchitectureRule  `toml:"rules"`
}

type ArchitectureLayer struct {
	Name    string   `toml:"name"`
	Modules []string `toml:"modules"`
}

type ArchitectureRule struct {
	Name  string   `toml:"name"`
	From  string   `toml:"from"`
	Allow []string `toml:"allow"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	MetricsAddr   string `toml:"metrics_addr"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
	EnableMetrics bool   `toml:"enable_metrics"`
}

type Alerts struct {
	Beep     bool `toml:"beep"`
	Terminal bool `toml:"terminal"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validatePackage(&cfg); err != nil {
		return nil, err
	}
	if err := validateDeps(&cfg); err != nil {
		return nil, err
	}
	if err := validateDatabase(&cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(&cfg); err != nil {
		return nil, err
	}
	if err := validateExclude(&cfg); err != nil {
		return nil, err
	}
	if err := validateWriteQueue(&cfg); err != nil {
		return nil, err
	}
	if err := validateCaches(&cfg); err != nil {
		return nil, err
	}
	if err := validateArchitecture(&cfg); err != nil {
		return nil, err
	}
	if err := validateObservability(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Package.Name) == "" {
		cfg.Package.Name = "app"
	}
	if len(cfg.Package.SourceRoots) == 0 {
		cfg.Package.SourceRoots = []string{"src"}
	}
	if strings.TrimSpace(cfg.Package.Extension) == "" {
		cfg.Package.Extension = ".loom"
	}

	if strings.TrimSpace(cfg.Paths.StateDir) == "" {
		cfg.Paths.StateDir = "data/state"
	}
	if strings.TrimSpace(cfg.Paths.DatabaseDir) == "" {
		cfg.Paths.DatabaseDir = "data/database"
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "loom.db"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 5 * time.Second
	}

	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.MaxBuildsPerSec <= 0 {
		cfg.Watch.MaxBuildsPerSec = 4
	}
	if cfg.Watch.Burst <= 0 {
		cfg.Watch.Burst = 1
	}

	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{".git"}
	}

	if cfg.WriteQueue.MemoryCapacity <= 0 {
		cfg.WriteQueue.MemoryCapacity = 256
	}
	if cfg.WriteQueue.BatchSize <= 0 {
		cfg.WriteQueue.BatchSize = 16
	}
	if cfg.WriteQueue.FlushInterval <= 0 {
		cfg.WriteQueue.FlushInterval = 100 * time.Millisecond
	}
	if cfg.WriteQueue.ShutdownDrainTimeout <= 0 {
		cfg.WriteQueue.ShutdownDrainTimeout = 10 * time.Second
	}
	if cfg.WriteQueue.RetryBaseDelay <= 0 {
		cfg.WriteQueue.RetryBaseDelay = 500 * time.Millisecond
	}
	if cfg.WriteQueue.RetryMaxDelay <= 0 {
		cfg.WriteQueue.RetryMaxDelay = 30 * time.Second
	}
	if strings.TrimSpace(cfg.WriteQueue.SpoolPath) == "" {
		cfg.WriteQueue.SpoolPath = "spool.db"
	}

	if cfg.Caches.ParseEntries <= 0 {
		cfg.Caches.ParseEntries = 512
	}

	if strings.TrimSpace(cfg.Observability.MetricsAddr) == "" {
		cfg.Observability.MetricsAddr = "127.0.0.1:9464"
	}
}
