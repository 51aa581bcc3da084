package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: LOOM_[SECTION]_[KEY] (e.g., LOOM_DB_PATH).
func ApplyEnvOverrides(cfg *Config) {
	// Package
	setEnvString(&cfg.Package.Name, "LOOM_PACKAGE_NAME")
	setEnvString(&cfg.Package.Extension, "LOOM_PACKAGE_EXTENSION")

	// Paths
	setEnvString(&cfg.Paths.ProjectRoot, "LOOM_PATHS_PROJECT_ROOT")
	setEnvString(&cfg.Paths.StateDir, "LOOM_PATHS_STATE_DIR")
	setEnvString(&cfg.Paths.DatabaseDir, "LOOM_PATHS_DATABASE_DIR")

	// Database
	setEnvBoolPtr(&cfg.DB.Enabled, "LOOM_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "LOOM_DB_PATH")
	setEnvDuration(&cfg.DB.BusyTimeout, "LOOM_DB_BUSY_TIMEOUT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "LOOM_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.MaxBuildsPerSec, "LOOM_WATCH_MAX_BUILDS_PER_SEC")
	setEnvInt(&cfg.Watch.Burst, "LOOM_WATCH_BURST")

	// Write queue
	setEnvBoolPtr(&cfg.WriteQueue.Enabled, "LOOM_WRITE_QUEUE_ENABLED")
	setEnvBoolPtr(&cfg.WriteQueue.PersistentEnabled, "LOOM_WRITE_QUEUE_PERSISTENT_ENABLED")
	setEnvString(&cfg.WriteQueue.SpoolPath, "LOOM_WRITE_QUEUE_SPOOL_PATH")

	// Caches
	setEnvInt(&cfg.Caches.ParseEntries, "LOOM_CACHES_PARSE_ENTRIES")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "LOOM_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.MetricsAddr, "LOOM_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "LOOM_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "LOOM_OBSERVABILITY_ENABLE_TRACING")
	setEnvBool(&cfg.Observability.EnableMetrics, "LOOM_OBSERVABILITY_ENABLE_METRICS")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		log.Printf("Applying env override: %s=%s", key, val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = &b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = d
		}
	}
}
