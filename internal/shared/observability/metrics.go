package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "loom_parse_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	})

	BuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "loom_build_seconds",
		Help:    "Time spent applying a changeset to the repository.",
		Buckets: prometheus.DefBuckets,
	})

	ModulesOrderedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_modules_ordered_total",
		Help: "Total number of modules that entered the insertion fold.",
	})

	CyclesDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loom_cycles_detected_total",
		Help: "Total number of dependency cycles rejected, by graph kind.",
	}, []string{"kind"})

	RepoModules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loom_repo_modules_total",
		Help: "Current number of modules held by the repository.",
	})

	RepoTypes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loom_repo_types_total",
		Help: "Current number of type definitions held by the repository.",
	})

	RepoValues = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loom_repo_values_total",
		Help: "Current number of value definitions held by the repository.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WriteQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loom_write_queue_depth",
		Help: "Current number of in-memory write requests waiting to be persisted.",
	})

	WriteSpoolDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loom_write_spool_depth",
		Help: "Current number of persistent spool rows waiting to be applied.",
	})

	WriteQueueEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_write_queue_enqueued_total",
		Help: "Total number of write requests accepted into the in-memory queue.",
	})

	WriteQueueDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_write_queue_dropped_total",
		Help: "Total number of write requests dropped from in-memory enqueue due to backpressure.",
	})

	WriteQueueSpilledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_write_queue_spilled_total",
		Help: "Total number of write requests spooled to persistent storage.",
	})

	WriteQueueRetryTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_write_queue_retry_total",
		Help: "Total number of persistent spool retries.",
	})

	WriteQueueApplyErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_write_queue_apply_errors_total",
		Help: "Total number of write batch apply errors.",
	})

	WriteQueueProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loom_write_queue_processed_total",
		Help: "Total number of write requests successfully applied.",
	})

	WriteQueueFlushLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "loom_write_queue_flush_seconds",
		Help:    "Latency for applying a write batch.",
		Buckets: prometheus.DefBuckets,
	})
)
