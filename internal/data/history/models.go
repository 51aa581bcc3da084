package history

import "time"

const SchemaVersion = 1

// Build status values persisted to the builds table.
const (
	BuildOK     = "ok"
	BuildFailed = "failed"
)

// BuildRecord summarizes one completed build pass.
type BuildRecord struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Status         string    `json:"status"`
	FilesChanged   int       `json:"files_changed"`
	ModulesOrdered int       `json:"modules_ordered"`
	ModulesDeleted int       `json:"modules_deleted"`
	TypesInserted  int       `json:"types_inserted"`
	ValuesInserted int       `json:"values_inserted"`
	Errors         []string  `json:"errors,omitempty"`
}

// Duration is the wall time of the build.
func (b BuildRecord) Duration() time.Duration {
	if b.StartedAt.IsZero() || b.FinishedAt.IsZero() {
		return 0
	}
	return b.FinishedAt.Sub(b.StartedAt)
}

// Snapshot captures the repository state after a successful build. Repository
// holds the serialized repository and is compressed before it reaches disk.
type Snapshot struct {
	BuildID       string    `json:"build_id"`
	Timestamp     time.Time `json:"timestamp"`
	SchemaVersion int       `json:"schema_version"`
	ModuleCount   int       `json:"module_count"`
	TypeCount     int       `json:"type_count"`
	ValueCount    int       `json:"value_count"`
	Repository    []byte    `json:"repository,omitempty"`
}
