// Package analyzer builds a project's symbol table from its source files.
//
// Each pass walks the project root, parses every supported file with
// tree-sitter, interns one symbol per file and per declaration, and resolves
// identifier uses to declarations by name. A pass that meets a syntax error
// reports it and returns no table, so the last good table stays visible.
package analyzer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"symbolicator/internal/core/errors"
	"symbolicator/internal/core/ports"
	"symbolicator/internal/engine/diagnostics"
	"symbolicator/internal/engine/parser"
	"symbolicator/internal/engine/symbol"
	"symbolicator/internal/engine/table"
	"symbolicator/internal/shared/util"

	"golang.org/x/sync/errgroup"
)

var _ ports.Analyzer = (*Analyzer)(nil)

const DefaultMaxFileBytes int64 = 2 << 20

type Option func(*Analyzer)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithBuffers makes open editor buffers take precedence over disk content.
func WithBuffers(buffers ports.BufferStore) Option {
	return func(a *Analyzer) { a.buffers = buffers }
}

func WithExcludes(matcher *util.ExcludeMatcher) Option {
	return func(a *Analyzer) { a.excludes = matcher }
}

func WithMaxFileBytes(n int64) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxFileBytes = n
		}
	}
}

func WithConcurrency(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

type Analyzer struct {
	parser       *parser.Parser
	interner     *symbol.Interner
	buffers      ports.BufferStore
	excludes     *util.ExcludeMatcher
	maxFileBytes int64
	concurrency  int
	logger       *slog.Logger
}

func New(p *parser.Parser, opts ...Option) *Analyzer {
	a := &Analyzer{
		parser:       p,
		interner:     symbol.NewInterner(),
		maxFileBytes: DefaultMaxFileBytes,
		concurrency:  runtime.GOMAXPROCS(0),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analyzer) ComputeSymbols(ctx context.Context, root string) (*table.Table, *diagnostics.Report, error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "project root unavailable"), errors.CtxPath, root)
	}
	if !info.IsDir() {
		return nil, nil, errors.AddContext(errors.New(errors.CodeValidationError, "project root is not a directory"), errors.CtxPath, root)
	}

	paths, err := a.collect(ctx, root)
	if err != nil {
		return nil, nil, err
	}

	files, err := a.parseAll(ctx, paths)
	if err != nil {
		return nil, nil, err
	}

	tbl, report := a.link(root, files)
	a.logger.Debug("analysis complete",
		"project", root,
		"files", len(files),
		"diagnostics", report.Count(),
		"committed", tbl != nil,
	)
	return tbl, report, nil
}

// collect returns the supported, non-excluded files under root in sorted order.
func (a *Analyzer) collect(ctx context.Context, root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && a.excludes.ExcludeDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !a.parser.IsSupportedPath(path) || a.excludes.ExcludeFile(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeAnalyzer, "walk project"), errors.CtxPath, root)
	}
	sort.Strings(paths)
	return paths, nil
}

func (a *Analyzer) parseAll(ctx context.Context, paths []string) ([]*parser.File, error) {
	files := make([]*parser.File, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, ok, err := a.read(path)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			file, err := a.parser.ParseFile(path, content)
			if err != nil {
				a.logger.Warn("skipping unparsable file", "path", path, "error", err)
				return nil
			}
			files[i] = file
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.CodeAnalyzer, "parse project")
	}

	out := files[:0]
	for _, f := range files {
		if f != nil {
			out = append(out, f)
		}
	}
	return out, nil
}

// read prefers the open buffer over disk. Files that vanished or exceed the
// size limit are skipped.
func (a *Analyzer) read(path string) ([]byte, bool, error) {
	if a.buffers != nil {
		if content, ok := a.buffers.Get(path); ok {
			return content, int64(len(content)) <= a.maxFileBytes, nil
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > a.maxFileBytes {
		a.logger.Debug("skipping large file", "path", path, "bytes", info.Size())
		return nil, false, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	return content, true, nil
}
