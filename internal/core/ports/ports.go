package ports

import (
	"context"
	"time"

	"symbolicator/internal/engine/diagnostics"
	"symbolicator/internal/engine/table"
)

// Analyzer computes a project's symbols. A nil table with a nil error means
// the pass produced diagnostics but no table worth committing.
type Analyzer interface {
	ComputeSymbols(ctx context.Context, root string) (*table.Table, *diagnostics.Report, error)
}

// BufferStore exposes the content of documents open in the editor.
type BufferStore interface {
	Get(path string) ([]byte, bool)
}

// Outcome is what a worker publishes on the diagnostics channel after a pass.
// Exactly one of Report or Err is meaningful.
type Outcome struct {
	Project   string
	PassID    string
	Report    *diagnostics.Report
	Err       error
	Committed bool
	Symbols   int
	StartedAt time.Time
	Duration  time.Duration
	// Closed marks the project as closed: its diagnostics are to be cleared.
	// A marker carries no report.
	Closed bool
}

// Failed reports whether the pass ended in an analyzer error.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// DiagnosticsSink receives outcomes from workers. Deliver must not block.
type DiagnosticsSink interface {
	Deliver(Outcome) error
}

// PassRecord is the journal row written for every pass.
type PassRecord struct {
	PassID          string
	ProjectRoot     string
	StartedAt       time.Time
	Duration        time.Duration
	Committed       bool
	SymbolCount     int
	DiagnosticCount int
	Error           string
}

// PassJournal records pass metadata. The symbol table itself is never stored.
type PassJournal interface {
	Record(ctx context.Context, rec PassRecord) error
	Recent(ctx context.Context, projectRoot string, limit int) ([]PassRecord, error)
}

// Workspace maps files to projects and schedules recomputation.
type Workspace interface {
	ProjectFor(path string) (string, bool)
	Trigger(root string)
}
