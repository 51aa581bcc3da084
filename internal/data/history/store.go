package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) SaveBuild(projectKey string, build BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	projectKey = normalizeProjectKey(projectKey)
	if strings.TrimSpace(build.ID) == "" {
		return fmt.Errorf("build id must not be empty")
	}

	if build.StartedAt.IsZero() {
		build.StartedAt = time.Now().UTC()
	}
	if build.FinishedAt.IsZero() {
		build.FinishedAt = build.StartedAt
	}
	if build.Status == "" {
		build.Status = BuildOK
		if len(build.Errors) > 0 {
			build.Status = BuildFailed
		}
	}

	errorsJSON := []byte("[]")
	if len(build.Errors) > 0 {
		raw, err := json.Marshal(build.Errors)
		if err != nil {
			return fmt.Errorf("marshal build errors: %w", err)
		}
		errorsJSON = raw
	}

	query := `
INSERT INTO builds (
  project_key, build_id, started_at_utc, finished_at_utc, status,
  files_changed, modules_ordered, modules_deleted, types_inserted, values_inserted,
  error_count, errors_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(project_key, build_id) DO UPDATE SET
  started_at_utc=excluded.started_at_utc,
  finished_at_utc=excluded.finished_at_utc,
  status=excluded.status,
  files_changed=excluded.files_changed,
  modules_ordered=excluded.modules_ordered,
  modules_deleted=excluded.modules_deleted,
  types_inserted=excluded.types_inserted,
  values_inserted=excluded.values_inserted,
  error_count=excluded.error_count,
  errors_json=excluded.errors_json
`
	return s.withRetry("save build", func() error {
		_, err := s.db.Exec(
			query,
			projectKey,
			build.ID,
			build.StartedAt.UTC().Format(time.RFC3339Nano),
			build.FinishedAt.UTC().Format(time.RFC3339Nano),
			build.Status,
			build.FilesChanged,
			build.ModulesOrdered,
			build.ModulesDeleted,
			build.TypesInserted,
			build.ValuesInserted,
			len(build.Errors),
			string(errorsJSON),
		)
		return err
	})
}

func (s *Store) LoadBuilds(projectKey string, limit int) ([]BuildRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projectKey = normalizeProjectKey(projectKey)
	if limit <= 0 {
		limit = 50
	}

	query := `
SELECT
  build_id, started_at_utc, finished_at_utc, status,
  files_changed, modules_ordered, modules_deleted, types_inserted, values_inserted,
  errors_json
FROM builds
WHERE project_key = ?
ORDER BY started_at_utc DESC, build_id DESC
LIMIT ?
`
	var rows *sql.Rows
	err := s.withRetry("load builds", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, projectKey, limit)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	builds := make([]BuildRecord, 0, limit)
	for rows.Next() {
		var (
			startedRaw  string
			finishedRaw string
			errorsRaw   string
			build       BuildRecord
		)
		if err := rows.Scan(
			&build.ID,
			&startedRaw,
			&finishedRaw,
			&build.Status,
			&build.FilesChanged,
			&build.ModulesOrdered,
			&build.ModulesDeleted,
			&build.TypesInserted,
			&build.ValuesInserted,
			&errorsRaw,
		); err != nil {
			return nil, fmt.Errorf("scan build row: %w", err)
		}

		started, err := time.Parse(time.RFC3339Nano, startedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse build start %q: %w", startedRaw, err)
		}
		build.StartedAt = started.UTC()

		finished, err := time.Parse(time.RFC3339Nano, finishedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse build finish %q: %w", finishedRaw, err)
		}
		build.FinishedAt = finished.UTC()

		if errorsRaw != "" && errorsRaw != "null" {
			if err := json.Unmarshal([]byte(errorsRaw), &build.Errors); err != nil {
				return nil, fmt.Errorf("decode build errors %q: %w", build.ID, err)
			}
		}

		builds = append(builds, build)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate build rows: %w", err)
	}

	return builds, nil
}

// LoadBuildStats returns builds joined with their snapshot counts in
// ascending start order. The limit keeps the newest builds, so a capped
// series still ends at the present.
func (s *Store) LoadBuildStats(projectKey string, since time.Time, limit int) ([]BuildStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projectKey = normalizeProjectKey(projectKey)
	if limit <= 0 {
		limit = 200
	}
	sinceRaw := ""
	if !since.IsZero() {
		sinceRaw = since.UTC().Format(time.RFC3339Nano)
	}

	query := `
SELECT
  b.build_id, b.started_at_utc, b.finished_at_utc, b.status,
  b.files_changed, b.modules_ordered, b.modules_deleted, b.types_inserted, b.values_inserted,
  b.error_count, s.module_count, s.type_count, s.value_count
FROM builds b
LEFT JOIN snapshots s ON s.project_key = b.project_key AND s.build_id = b.build_id
WHERE b.project_key = ? AND b.started_at_utc >= ?
ORDER BY b.started_at_utc DESC, b.build_id DESC
LIMIT ?
`
	var rows *sql.Rows
	err := s.withRetry("load build stats", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, projectKey, sinceRaw, limit)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]BuildStat, 0, limit)
	for rows.Next() {
		var (
			startedRaw  string
			finishedRaw string
			modules     sql.NullInt64
			types       sql.NullInt64
			values      sql.NullInt64
			stat        BuildStat
		)
		if err := rows.Scan(
			&stat.BuildID,
			&startedRaw,
			&finishedRaw,
			&stat.Status,
			&stat.FilesChanged,
			&stat.ModulesOrdered,
			&stat.ModulesDeleted,
			&stat.TypesInserted,
			&stat.ValuesInserted,
			&stat.ErrorCount,
			&modules,
			&types,
			&values,
		); err != nil {
			return nil, fmt.Errorf("scan build stat row: %w", err)
		}

		started, err := time.Parse(time.RFC3339Nano, startedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse build start %q: %w", startedRaw, err)
		}
		stat.StartedAt = started.UTC()

		finished, err := time.Parse(time.RFC3339Nano, finishedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse build finish %q: %w", finishedRaw, err)
		}
		stat.FinishedAt = finished.UTC()

		if modules.Valid {
			stat.HasSnapshot = true
			stat.ModuleCount = int(modules.Int64)
			stat.TypeCount = int(types.Int64)
			stat.ValueCount = int(values.Int64)
		}

		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate build stat rows: %w", err)
	}

	for i, j := 0, len(stats)-1; i < j; i, j = i+1, j-1 {
		stats[i], stats[j] = stats[j], stats[i]
	}
	return stats, nil
}

func (s *Store) SaveSnapshot(projectKey string, snapshot Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	projectKey = normalizeProjectKey(projectKey)
	if strings.TrimSpace(snapshot.BuildID) == "" {
		return fmt.Errorf("snapshot build id must not be empty")
	}

	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}
	if snapshot.SchemaVersion == 0 {
		snapshot.SchemaVersion = SchemaVersion
	}
	if snapshot.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported snapshot schema version %d", snapshot.SchemaVersion)
	}

	blob, codec, err := compressBlob(snapshot.Repository)
	if err != nil {
		return err
	}

	query := `
INSERT INTO snapshots (
  project_key, build_id, schema_version, ts_utc,
  module_count, type_count, value_count, raw_size, codec, repository
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(project_key, build_id) DO UPDATE SET
  schema_version=excluded.schema_version,
  ts_utc=excluded.ts_utc,
  module_count=excluded.module_count,
  type_count=excluded.type_count,
  value_count=excluded.value_count,
  raw_size=excluded.raw_size,
  codec=excluded.codec,
  repository=excluded.repository
`
	return s.withRetry("save snapshot", func() error {
		_, err := s.db.Exec(
			query,
			projectKey,
			snapshot.BuildID,
			snapshot.SchemaVersion,
			snapshot.Timestamp.UTC().Format(time.RFC3339Nano),
			snapshot.ModuleCount,
			snapshot.TypeCount,
			snapshot.ValueCount,
			len(snapshot.Repository),
			codec,
			blob,
		)
		return err
	})
}

func (s *Store) LoadLatestSnapshot(projectKey string) (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projectKey = normalizeProjectKey(projectKey)

	query := `
SELECT build_id, schema_version, ts_utc, module_count, type_count, value_count, raw_size, codec, repository
FROM snapshots
WHERE project_key = ?
ORDER BY ts_utc DESC, build_id DESC
LIMIT 1
`
	var (
		tsRaw    string
		rawSize  int
		codec    string
		blob     []byte
		snapshot Snapshot
	)
	err := s.withRetry("load latest snapshot", func() error {
		return s.db.QueryRow(query, projectKey).Scan(
			&snapshot.BuildID,
			&snapshot.SchemaVersion,
			&tsRaw,
			&snapshot.ModuleCount,
			&snapshot.TypeCount,
			&snapshot.ValueCount,
			&rawSize,
			&codec,
			&blob,
		)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}

	ts, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("parse snapshot timestamp %q: %w", tsRaw, err)
	}
	snapshot.Timestamp = ts.UTC()

	repository, err := decompressBlob(blob, codec, rawSize)
	if err != nil {
		return Snapshot{}, false, err
	}
	snapshot.Repository = repository

	return snapshot, true, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func normalizeProjectKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "default"
	}
	return key
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
