// Package app wires the symbol table store, the per-project workers, the
// diagnostics queue, the pass journal and the file watcher together.
package app

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"

	"symbolicator/internal/core/buffers"
	"symbolicator/internal/core/config"
	"symbolicator/internal/core/ports"
	"symbolicator/internal/core/store"
	"symbolicator/internal/core/watcher"
	"symbolicator/internal/core/worker"
	"symbolicator/internal/data/history"
	"symbolicator/internal/data/queue"
	"symbolicator/internal/engine/analyzer"
	"symbolicator/internal/engine/parser"
	"symbolicator/internal/shared/util"
)

type App struct {
	Config  *config.Config
	Store   *store.Store
	Buffers *buffers.Store
	Queue   *queue.OutcomeQueue

	parser   *parser.Parser
	analyzer ports.Analyzer
	journal  ports.PassJournal
	history  *history.Store
	excludes *util.ExcludeMatcher
	watcher  *watcher.Watcher
	logger   *slog.Logger
	onPass   func(ports.Outcome)

	mu      sync.Mutex
	workers map[string]*worker.Worker
	// closing holds workers that left workers but have not exited yet; their
	// roots cannot be reopened until they do.
	closing map[string]*worker.Worker
	closed  bool
}

type Option func(*App)

func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithAnalyzer replaces the tree-sitter analyzer.
func WithAnalyzer(an ports.Analyzer) Option {
	return func(a *App) {
		a.analyzer = an
	}
}

// WithJournal replaces the SQLite pass journal configured by [history].
func WithJournal(journal ports.PassJournal) Option {
	return func(a *App) {
		a.journal = journal
	}
}

func WithPassHook(fn func(ports.Outcome)) Option {
	return func(a *App) {
		a.onPass = fn
	}
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	registry, err := buildParserRegistry(cfg)
	if err != nil {
		return nil, err
	}
	loader, err := parser.NewGrammarLoader(registry)
	if err != nil {
		return nil, err
	}
	excludes, err := util.NewExcludeMatcher(cfg.Exclude.Dirs, cfg.Exclude.Files)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Store:    store.New(),
		Buffers:  buffers.New(),
		Queue:    queue.NewOutcomeQueue(),
		parser:   parser.NewParser(loader),
		excludes: excludes,
		logger:   slog.Default(),
		workers:  make(map[string]*worker.Worker),
		closing:  make(map[string]*worker.Worker),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.analyzer == nil {
		a.analyzer = analyzer.New(a.parser,
			analyzer.WithLogger(a.logger),
			analyzer.WithBuffers(a.Buffers),
			analyzer.WithExcludes(excludes),
			analyzer.WithMaxFileBytes(cfg.Symbolication.MaxFileBytes),
			analyzer.WithConcurrency(cfg.Symbolication.Concurrency),
		)
	}

	if a.journal == nil && cfg.History.Enabled {
		hs, err := history.Open(cfg.History.Path)
		if err != nil {
			a.logger.Warn("pass journal unavailable", "path", cfg.History.Path, "error", err)
		} else {
			a.history = hs
			a.journal = hs
		}
	}

	if cfg.Symbolication.IsEnabled() && cfg.Watch.IsEnabled() {
		w, err := watcher.NewWatcher(cfg.Watch.Debounce, excludes, a.parser.SupportedExtensions(), a.HandleChanges)
		if err != nil {
			a.logger.Warn("file watcher unavailable", "error", err)
		} else {
			w.SetLogger(a.logger)
			a.watcher = w
		}
	}

	return a, nil
}

func buildParserRegistry(cfg *config.Config) (map[string]parser.LanguageSpec, error) {
	overrides := make(map[string]parser.LanguageOverride, len(cfg.Languages))
	for lang, languageCfg := range cfg.Languages {
		overrides[lang] = parser.LanguageOverride{
			Enabled:    languageCfg.Enabled,
			Extensions: append([]string(nil), languageCfg.Extensions...),
		}
	}
	return parser.BuildLanguageRegistry(overrides)
}

// Parser exposes the shared parser, mainly for the check command.
func (a *App) Parser() *parser.Parser {
	return a.parser
}

// Journal is nil when no pass journal is configured.
func (a *App) Journal() ports.PassJournal {
	return a.journal
}

// Close quits every worker, then releases the watcher, the queue and the
// journal. The queue is closed last among the producers so the publisher can
// drain the final outcomes.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	errs := []error{a.Shutdown(ctx)}
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
	}
	errs = append(errs, a.Queue.Close())
	if a.history != nil {
		errs = append(errs, a.history.Close())
	}
	return stderrors.Join(errs...)
}
