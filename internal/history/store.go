package history

import (
	"database/sql"
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

// Store persists run records to a local sqlite file. Watch mode writes
// a record per re-analysis, so the store keeps its own lock retries.
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

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) Ping() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("history store is not open")
	}
	return s.db.Ping()
}

func (s *Store) SaveRun(projectKey string, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	projectKey = strings.TrimSpace(projectKey)
	if projectKey == "" {
		projectKey = "default"
	}

	if run.RunID == "" {
		return fmt.Errorf("run id must not be empty")
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}
	if run.SchemaVersion == 0 {
		run.SchemaVersion = SchemaVersion
	}
	if run.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported run schema version %d", run.SchemaVersion)
	}

	commitTS := ""
	if !run.CommitTimestamp.IsZero() {
		commitTS = run.CommitTimestamp.UTC().Format(time.RFC3339Nano)
	}

	query := `
INSERT INTO runs (
  project_key, schema_version, run_id, ts_utc, commit_hash, commit_ts_utc, rev_range,
  changed_count, impacted_modules, impacted_tests, suggested_jobs,
  module_count, file_count, edge_count, cycle_count, diagnostic_count, duration_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(project_key, run_id) DO UPDATE SET
  schema_version=excluded.schema_version,
  ts_utc=excluded.ts_utc,
  commit_hash=excluded.commit_hash,
  commit_ts_utc=excluded.commit_ts_utc,
  rev_range=excluded.rev_range,
  changed_count=excluded.changed_count,
  impacted_modules=excluded.impacted_modules,
  impacted_tests=excluded.impacted_tests,
  suggested_jobs=excluded.suggested_jobs,
  module_count=excluded.module_count,
  file_count=excluded.file_count,
  edge_count=excluded.edge_count,
  cycle_count=excluded.cycle_count,
  diagnostic_count=excluded.diagnostic_count,
  duration_ms=excluded.duration_ms
`
	return s.withRetry("save run", func() error {
		_, err := s.db.Exec(
			query,
			projectKey,
			run.SchemaVersion,
			run.RunID,
			run.Timestamp.UTC().Format(time.RFC3339Nano),
			run.CommitHash,
			commitTS,
			run.Range,
			run.ChangedCount,
			run.ImpactedModules,
			run.ImpactedTests,
			run.SuggestedJobs,
			run.ModuleCount,
			run.FileCount,
			run.EdgeCount,
			run.CycleCount,
			run.DiagnosticCount,
			run.DurationMS,
		)
		return err
	})
}

func (s *Store) LoadRuns(projectKey string, since time.Time) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projectKey = strings.TrimSpace(projectKey)
	if projectKey == "" {
		projectKey = "default"
	}

	query := `
SELECT
  schema_version, run_id, ts_utc, commit_hash, commit_ts_utc, rev_range,
  changed_count, impacted_modules, impacted_tests, suggested_jobs,
  module_count, file_count, edge_count, cycle_count, diagnostic_count, duration_ms
FROM runs
WHERE project_key = ?`
	args := []any{projectKey}
	if !since.IsZero() {
		query += " AND ts_utc >= ?"
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	query += " ORDER BY ts_utc ASC, run_id ASC"

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			tsRaw       string
			commitTSRaw string
			run         Run
		)
		if err := rows.Scan(
			&run.SchemaVersion,
			&run.RunID,
			&tsRaw,
			&run.CommitHash,
			&commitTSRaw,
			&run.Range,
			&run.ChangedCount,
			&run.ImpactedModules,
			&run.ImpactedTests,
			&run.SuggestedJobs,
			&run.ModuleCount,
			&run.FileCount,
			&run.EdgeCount,
			&run.CycleCount,
			&run.DiagnosticCount,
			&run.DurationMS,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}

		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
		}
		run.Timestamp = ts.UTC()

		if commitTSRaw != "" {
			commitTS, err := time.Parse(time.RFC3339Nano, commitTSRaw)
			if err != nil {
				return nil, fmt.Errorf("parse commit timestamp %q: %w", commitTSRaw, err)
			}
			run.CommitTimestamp = commitTS.UTC()
		}

		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}

	return runs, nil
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
