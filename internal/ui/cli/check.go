package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"symbolicator/internal/core/app"
	"symbolicator/internal/core/config"
	"symbolicator/internal/ui/report"
)

func runCheck(ctx context.Context, opts *options, root string, stdout, stderr io.Writer) error {
	cfg, err := offlineConfig(opts)
	if err != nil {
		return err
	}
	cfg.History.Enabled = false

	logger, cleanupLogs, err := configureLogging(cfg.Server, opts.verbose, stderr)
	if err != nil {
		return err
	}
	defer cleanupLogs()

	a, err := app.New(cfg, app.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer a.Close(context.WithoutCancel(ctx))

	tbl, rep, err := a.Analyze(ctx, root)
	if err != nil {
		return err
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	summary, err := report.WriteCheck(stdout, root, tbl, rep)
	if err != nil {
		return err
	}
	if summary.Errors > 0 {
		return &exitError{code: 1}
	}
	return nil
}

func runHistory(ctx context.Context, opts *options, root string, limit int, stdout, stderr io.Writer) error {
	cfg, err := offlineConfig(opts)
	if err != nil {
		return err
	}
	cfg.History.Enabled = true

	logger, cleanupLogs, err := configureLogging(cfg.Server, opts.verbose, stderr)
	if err != nil {
		return err
	}
	defer cleanupLogs()

	a, err := app.New(cfg, app.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer a.Close(context.WithoutCancel(ctx))

	records, err := a.History(ctx, root, limit)
	if err != nil {
		return err
	}
	return report.WriteHistory(stdout, records)
}

// offlineConfig loads the config for commands that never watch files.
func offlineConfig(opts *options) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	off := false
	cfg.Watch.Enabled = &off
	return cfg, nil
}
