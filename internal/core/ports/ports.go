package ports

import (
	"context"
	"time"

	"loom/internal/data/history"
	"loom/internal/engine/parser"
)

// ModuleParser abstracts source parsing and path support checks.
type ModuleParser interface {
	ParseModule(path string, content []byte) (*parser.Module, error)
	IsSupportedPath(path string) bool
}

// HistoryStore abstracts build and snapshot persistence.
type HistoryStore interface {
	SaveBuild(projectKey string, build history.BuildRecord) error
	SaveSnapshot(projectKey string, snapshot history.Snapshot) error
	LoadBuilds(projectKey string, limit int) ([]history.BuildRecord, error)
	LoadBuildStats(projectKey string, since time.Time, limit int) ([]history.BuildStat, error)
	LoadLatestSnapshot(projectKey string) (history.Snapshot, bool, error)
}

// WriteOperation identifies a persistence operation carried through the write queue.
type WriteOperation string

const (
	WriteOpSaveBuild    WriteOperation = "save_build"
	WriteOpSaveSnapshot WriteOperation = "save_snapshot"
)

// WriteRequest is a deferred persistence request. Requests are JSON-encoded
// when spilled to the on-disk spool, so every field carries a json tag.
type WriteRequest struct {
	Operation  WriteOperation       `json:"operation"`
	ProjectKey string               `json:"project_key"`
	Build      *history.BuildRecord `json:"build,omitempty"`
	Snapshot   *history.Snapshot    `json:"snapshot,omitempty"`
}

// BuildID returns the build the request belongs to, for spool indexing and logs.
func (r WriteRequest) BuildID() string {
	switch {
	case r.Build != nil:
		return r.Build.ID
	case r.Snapshot != nil:
		return r.Snapshot.BuildID
	}
	return ""
}

// EnqueueResult reports the outcome of a non-blocking enqueue.
type EnqueueResult string

const (
	EnqueueAccepted EnqueueResult = "accepted"
	EnqueueDropped  EnqueueResult = "dropped"
)

// WriteQueuePort is the in-memory write-behind queue consumed by the write worker.
type WriteQueuePort interface {
	Enqueue(req WriteRequest) EnqueueResult
	DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([]WriteRequest, error)
	Len() int
	Close() error
}

// SpoolRow is one persisted queue entry with its retry bookkeeping.
type SpoolRow struct {
	ID       int64
	Request  WriteRequest
	Attempts int
}

// WriteSpoolPort is the durable overflow spool behind the memory queue.
type WriteSpoolPort interface {
	Enqueue(req WriteRequest) error
	DequeueBatch(ctx context.Context, maxItems int) ([]SpoolRow, error)
	Ack(ids []int64) error
	Nack(rows []SpoolRow, nextAttemptAt time.Time, lastErr string) error
	PendingCount(ctx context.Context) (int, error)
	Close() error
}

// BuildRequest defines a build operation request for driving adapters.
// Paths may name files or directories; directories are scanned recursively.
type BuildRequest struct {
	Paths []string
}

// BuildResult summarizes a completed build pass. RuleViolations are
// advisory; they never fail a build.
type BuildResult struct {
	BuildID        string
	FilesChanged   int
	ModulesOrdered int
	ModulesDeleted int
	TypesInserted  int
	ValuesInserted int
	Errors         []string
	RuleViolations []string
	Duration       time.Duration
}

// Failed reports whether the build raised any error.
func (r BuildResult) Failed() bool { return len(r.Errors) > 0 }

// WatchUpdate contains state emitted to driving adapters after watch-mode rebuilds.
type WatchUpdate struct {
	BuildID     string
	ModuleCount int
	TypeCount   int
	ValueCount  int
	Errors      []string
}

// WatchService exposes watch lifecycle and updates for driving adapters.
type WatchService interface {
	Start(ctx context.Context) error
	CurrentUpdate(ctx context.Context) (WatchUpdate, error)
	Subscribe(ctx context.Context, handler func(WatchUpdate)) error
}

// BuildService defines the driving-port surface over build use cases.
type BuildService interface {
	RunBuild(ctx context.Context, req BuildRequest) (BuildResult, error)
	InitialBuild(ctx context.Context) (BuildResult, error)
	WatchService() WatchService
}
