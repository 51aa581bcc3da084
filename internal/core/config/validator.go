package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"loom/internal/core/config/helpers"
)

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validatePackage(cfg *Config) error {
	name := strings.TrimSpace(cfg.Package.Name)
	if name == "" {
		return fmt.Errorf("package.name must not be empty")
	}
	if strings.ContainsAny(name, " \t\n") {
		return fmt.Errorf("package.name must not contain whitespace, got %q", cfg.Package.Name)
	}

	ext := strings.TrimSpace(cfg.Package.Extension)
	if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
		return fmt.Errorf("package.extension must be a dot-prefixed suffix, got %q", cfg.Package.Extension)
	}

	roots := cfg.Package.SourceRoots
	if len(roots) == 0 {
		return fmt.Errorf("package.source_roots must not be empty")
	}
	for i, root := range roots {
		ref := fmt.Sprintf("package.source_roots[%d]", i)
		if strings.TrimSpace(root) == "" {
			return fmt.Errorf("%s must not be empty", ref)
		}
		if helpers.HasWildcard(root) {
			return fmt.Errorf("%s must not contain wildcards, got %q", ref, root)
		}
	}
	for i := 0; i < len(roots); i++ {
		for j := i + 1; j < len(roots); j++ {
			if helpers.IsPathOverlap(roots[i], roots[j]) {
				return fmt.Errorf("package.source_roots %q and %q overlap", roots[i], roots[j])
			}
		}
	}

	return nil
}

func validateDeps(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Deps.SpecPaths))
	for i, path := range cfg.Deps.SpecPaths {
		ref := fmt.Sprintf("deps.spec_paths[%d]", i)
		path = strings.TrimSpace(path)
		if path == "" {
			return fmt.Errorf("%s must not be empty", ref)
		}
		if seen[path] {
			return fmt.Errorf("duplicate deps.spec_paths entry %q", path)
		}
		seen[path] = true
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if !cfg.DB.IsEnabled() {
		return nil
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	if cfg.DB.BusyTimeout < 100*time.Millisecond {
		return fmt.Errorf("db.busy_timeout must be >= 100ms")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 10*time.Millisecond {
		return fmt.Errorf("watch.debounce must be >= 10ms")
	}
	if cfg.Watch.MaxBuildsPerSec <= 0 {
		return fmt.Errorf("watch.max_builds_per_sec must be > 0")
	}
	if cfg.Watch.Burst < 1 {
		return fmt.Errorf("watch.burst must be >= 1")
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for i, pattern := range cfg.Exclude.Dirs {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("exclude.dirs[%d] must not be empty", i)
		}
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.dirs[%d] pattern %q is invalid: %w", i, pattern, err)
		}
	}
	for i, pattern := range cfg.Exclude.Files {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("exclude.files[%d] must not be empty", i)
		}
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.files[%d] pattern %q is invalid: %w", i, pattern, err)
		}
	}
	return nil
}

func validateWriteQueue(cfg *Config) error {
	q := cfg.WriteQueue
	if q.MemoryCapacity < 1 {
		return fmt.Errorf("write_queue.memory_capacity must be >= 1")
	}
	if q.BatchSize < 1 {
		return fmt.Errorf("write_queue.batch_size must be >= 1")
	}
	if q.FlushInterval < 10*time.Millisecond {
		return fmt.Errorf("write_queue.flush_interval must be >= 10ms")
	}
	if q.ShutdownDrainTimeout < time.Second {
		return fmt.Errorf("write_queue.shutdown_drain_timeout must be >= 1s")
	}
	if q.RetryBaseDelay < 10*time.Millisecond {
		return fmt.Errorf("write_queue.retry_base_delay must be >= 10ms")
	}
	if q.RetryMaxDelay < q.RetryBaseDelay {
		return fmt.Errorf("write_queue.retry_max_delay must be >= write_queue.retry_base_delay")
	}
	if q.PersistentQueueEnabled() && strings.TrimSpace(q.SpoolPath) == "" {
		return fmt.Errorf("write_queue.spool_path must not be empty when write_queue.persistent_enabled=true")
	}
	return nil
}

func validateCaches(cfg *Config) error {
	if cfg.Caches.ParseEntries < 1 || cfg.Caches.ParseEntries > 65536 {
		return fmt.Errorf("caches.parse_entries must be between 1 and 65536")
	}
	if cfg.Caches.MaxHeapMB < 0 {
		return fmt.Errorf("caches.max_heap_mb must not be negative")
	}
	return nil
}

func validateArchitecture(cfg *Config) error {
	arch := cfg.Architecture
	if !arch.Enabled {
		return nil
	}
	if len(arch.Layers) == 0 {
		return fmt.Errorf("architecture.enabled=true requires at least one layer")
	}

	layerNames := make(map[string]bool, len(arch.Layers))
	for i, layer := range arch.Layers {
		ref := fmt.Sprintf("architecture.layers[%d]", i)
		name := strings.TrimSpace(layer.Name)
		if name == "" {
			return fmt.Errorf("%s requires a name", ref)
		}
		if layerNames[name] {
			return fmt.Errorf("duplicate architecture layer name: %q", name)
		}
		layerNames[name] = true
		if len(layer.Modules) == 0 {
			return fmt.Errorf("%s requires at least one module pattern", ref)
		}
		for j, pattern := range layer.Modules {
			if strings.TrimSpace(pattern) == "" {
				return fmt.Errorf("%s.modules[%d] must not be empty", ref, j)
			}
			if _, err := glob.Compile(pattern, '.'); err != nil {
				return fmt.Errorf("%s.modules[%d] pattern %q is invalid: %w", ref, j, pattern, err)
			}
		}
	}

	ruleNames := make(map[string]bool, len(arch.Rules))
	ruleForLayer := make(map[string]string, len(arch.Rules))
	for i, rule := range arch.Rules {
		ref := fmt.Sprintf("architecture.rules[%d]", i)
		name := strings.TrimSpace(rule.Name)
		if name == "" {
			return fmt.Errorf("%s requires a name", ref)
		}
		if ruleNames[name] {
			return fmt.Errorf("duplicate architecture rule name: %q", name)
		}
		ruleNames[name] = true
		if !layerNames[rule.From] {
			return fmt.Errorf("architecture rule %q references unknown from layer %q", name, rule.From)
		}
		if previous, exists := ruleForLayer[rule.From]; exists {
			return fmt.Errorf("architecture layer %q has multiple rules (%q, %q); define exactly one", rule.From, previous, name)
		}
		ruleForLayer[rule.From] = name
		if len(rule.Allow) == 0 {
			return fmt.Errorf("architecture rule %q must include at least one allowed layer", name)
		}
		for _, allowed := range rule.Allow {
			if !layerNames[allowed] {
				return fmt.Errorf("architecture rule %q references unknown allowed layer %q", name, allowed)
			}
		}
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if !cfg.Observability.Enabled {
		return nil
	}
	if cfg.Observability.EnableMetrics && strings.TrimSpace(cfg.Observability.MetricsAddr) == "" {
		return fmt.Errorf("observability.metrics_addr must not be empty when observability.enable_metrics=true")
	}
	if cfg.Observability.EnableTracing && strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		return fmt.Errorf("observability.otlp_endpoint must not be empty when observability.enable_tracing=true")
	}
	return nil
}

func Validate(cfg *Config) []error {
	var errs []error

	if err := validateVersion(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validatePackage(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateDeps(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateDatabase(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateWatch(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateExclude(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateWriteQueue(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateCaches(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateArchitecture(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateObservability(cfg); err != nil {
		errs = append(errs, err)
	}

	// Path verification
	errs = append(errs, validateSpecPaths(cfg)...)

	return errs
}

func validateSpecPaths(cfg *Config) []error {
	var errs []error

	for i, path := range cfg.Deps.SpecPaths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		stat, err := os.Stat(path)
		if os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("deps.spec_paths[%d] %q does not exist", i, path))
		} else if err == nil && stat.IsDir() {
			errs = append(errs, fmt.Errorf("deps.spec_paths[%d] %q is a directory, expected file", i, path))
		}
	}

	return errs
}
