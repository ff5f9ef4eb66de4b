package app

import (
	"context"

	"symbolicator/internal/core/errors"
	"symbolicator/internal/core/ports"
	"symbolicator/internal/engine/diagnostics"
	"symbolicator/internal/engine/table"
)

// Analyze runs one pass for root on the caller's goroutine, bypassing the
// workers and the store.
func (a *App) Analyze(ctx context.Context, root string) (*table.Table, *diagnostics.Report, error) {
	clean, err := normalizeRoot(root)
	if err != nil {
		return nil, nil, err
	}
	return a.analyzer.ComputeSymbols(ctx, clean)
}

// History lists recent passes from the journal, newest first. An empty root
// lists every project.
func (a *App) History(ctx context.Context, root string, limit int) ([]ports.PassRecord, error) {
	if a.journal == nil {
		return nil, errors.New(errors.CodeNotSupported, "pass journal is disabled; set [history] enabled = true")
	}
	if root != "" {
		clean, err := normalizeRoot(root)
		if err != nil {
			return nil, err
		}
		root = clean
	}
	return a.journal.Recent(ctx, root, limit)
}
