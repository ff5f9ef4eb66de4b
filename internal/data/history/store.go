// Package history journals recomputation passes in SQLite. Only pass metadata
// is stored; symbol tables never leave memory.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"symbolicator/internal/core/ports"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5

	// DefaultRetention is the number of passes kept per project.
	DefaultRetention = 500
)

var _ ports.PassJournal = (*Store)(nil)

type Store struct {
	path      string
	db        *sql.DB
	mu        sync.Mutex
	retention int
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

	// busy_timeout + WAL: several server processes may share one journal.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
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

	return &Store{path: cleanPath, db: db, retention: DefaultRetention}, nil
}

// SetRetention bounds the number of passes kept per project; n <= 0 keeps all.
func (s *Store) SetRetention(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retention = n
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Record(ctx context.Context, rec ports.PassRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(rec.PassID) == "" {
		return fmt.Errorf("pass id must not be empty")
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	err := s.withRetry("record pass", func() error {
		_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO passes (
  pass_id, project_root, started_at_utc, duration_ms, committed, symbol_count, diagnostic_count, error
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
			rec.PassID,
			rec.ProjectRoot,
			rec.StartedAt.UTC().Format(time.RFC3339Nano),
			rec.Duration.Milliseconds(),
			rec.Committed,
			rec.SymbolCount,
			rec.DiagnosticCount,
			rec.Error,
		)
		return err
	})
	if err != nil || s.retention <= 0 {
		return err
	}

	return s.withRetry("prune passes", func() error {
		_, err := s.db.ExecContext(ctx, `
DELETE FROM passes
WHERE project_root = ?
  AND pass_id NOT IN (
    SELECT pass_id FROM passes WHERE project_root = ?
    ORDER BY started_at_utc DESC LIMIT ?
  )
`, rec.ProjectRoot, rec.ProjectRoot, s.retention)
		return err
	})
}

// Recent returns up to limit passes for projectRoot, newest first. An empty
// projectRoot lists passes of every project.
func (s *Store) Recent(ctx context.Context, projectRoot string, limit int) ([]ports.PassRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	query := `
SELECT pass_id, project_root, started_at_utc, duration_ms, committed, symbol_count, diagnostic_count, error
FROM passes
`
	args := make([]any, 0, 2)
	if strings.TrimSpace(projectRoot) != "" {
		query += " WHERE project_root = ?"
		args = append(args, projectRoot)
	}
	query += " ORDER BY started_at_utc DESC, pass_id ASC LIMIT ?"
	args = append(args, limit)

	var rows *sql.Rows
	err := s.withRetry("load passes", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]ports.PassRecord, 0)
	for rows.Next() {
		var (
			rec        ports.PassRecord
			startedRaw string
			durationMS int64
		)
		if err := rows.Scan(
			&rec.PassID,
			&rec.ProjectRoot,
			&startedRaw,
			&durationMS,
			&rec.Committed,
			&rec.SymbolCount,
			&rec.DiagnosticCount,
			&rec.Error,
		); err != nil {
			return nil, fmt.Errorf("scan pass row: %w", err)
		}
		started, err := time.Parse(time.RFC3339Nano, startedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse pass timestamp %q: %w", startedRaw, err)
		}
		rec.StartedAt = started.UTC()
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pass rows: %w", err)
	}
	return records, nil
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

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}
