// Package worker runs one recomputation goroutine per project.
//
// A worker coalesces triggers: any number of Trigger calls while a pass is
// pending or running result in at most one further pass. Passes run outside
// every lock, so Trigger and Quit never wait on the analyzer.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"symbolicator/internal/core/errors"
	"symbolicator/internal/core/ports"
	"symbolicator/internal/engine/diagnostics"
	"symbolicator/internal/engine/table"
	"symbolicator/internal/shared/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type State int

const (
	StateIdle State = iota
	StateWaiting
	StatePending
	StateQuit
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StatePending:
		return "pending"
	case StateQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// TableStore is the part of the shared store a worker writes to.
type TableStore interface {
	Replace(root string, tbl *table.Table)
}

const journalTimeout = 5 * time.Second

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithJournal(journal ports.PassJournal) Option {
	return func(w *Worker) {
		w.journal = journal
	}
}

// WithPassHook registers fn to run after every pass, once the outcome has
// been delivered.
func WithPassHook(fn func(ports.Outcome)) Option {
	return func(w *Worker) {
		w.onPass = fn
	}
}

type Worker struct {
	root     string
	store    TableStore
	sink     ports.DiagnosticsSink
	analyzer ports.Analyzer
	journal  ports.PassJournal
	logger   *slog.Logger
	onPass   func(ports.Outcome)

	mu    sync.Mutex
	state State
	wake  chan struct{}
	done  chan struct{}

	running   atomic.Bool
	passes    atomic.Uint64
	coalesced atomic.Uint64
}

// Idle returns a worker that never runs. Trigger and Quit are no-ops.
func Idle() *Worker {
	done := make(chan struct{})
	close(done)
	return &Worker{state: StateIdle, done: done, logger: slog.Default()}
}

// Spawn starts the worker goroutine for root. The returned worker waits for
// its first Trigger.
func Spawn(root string, store TableStore, sink ports.DiagnosticsSink, analyzer ports.Analyzer, opts ...Option) *Worker {
	w := newWorker(root, store, sink, analyzer, opts...)
	w.start()
	return w
}

func newWorker(root string, store TableStore, sink ports.DiagnosticsSink, analyzer ports.Analyzer, opts ...Option) *Worker {
	w := &Worker{
		root:     root,
		store:    store,
		sink:     sink,
		analyzer: analyzer,
		logger:   slog.Default(),
		state:    StateWaiting,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("project", root)
	return w
}

func (w *Worker) start() {
	go w.run()
}

func (w *Worker) Root() string {
	return w.root
}

func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Running reports whether a pass is executing right now.
func (w *Worker) Running() bool {
	return w.running.Load()
}

// Passes returns the number of completed passes.
func (w *Worker) Passes() uint64 {
	return w.passes.Load()
}

// Coalesced returns the number of triggers absorbed by an already pending pass.
func (w *Worker) Coalesced() uint64 {
	return w.coalesced.Load()
}

// Trigger schedules a pass. It never blocks.
func (w *Worker) Trigger() {
	if w == nil {
		return
	}
	w.mu.Lock()
	switch w.state {
	case StateIdle, StateQuit:
		w.mu.Unlock()
		return
	case StatePending:
		w.coalesced.Add(1)
		observability.TriggersCoalescedTotal.Inc()
	}
	w.state = StatePending
	w.mu.Unlock()

	observability.TriggersTotal.Inc()
	w.signal()
}

// Quit stops the worker and waits for its goroutine to exit. A pass already
// running is allowed to finish; a pending one is dropped. Quit on a stopped
// worker returns immediately.
func (w *Worker) Quit(ctx context.Context) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	if w.state == StateIdle {
		w.mu.Unlock()
		return nil
	}
	w.state = StateQuit
	w.mu.Unlock()

	w.signal()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) run() {
	defer close(w.done)
	for range w.wake {
		w.mu.Lock()
		switch w.state {
		case StateQuit:
			w.mu.Unlock()
			return
		case StatePending:
			w.state = StateWaiting
		default:
			// The pending request was already picked up by an earlier wake.
			w.mu.Unlock()
			continue
		}
		w.mu.Unlock()

		w.pass()
	}
}

func (w *Worker) pass() {
	w.running.Store(true)
	defer w.running.Store(false)

	passID := uuid.NewString()
	started := time.Now()
	ctx, span := observability.Tracer.Start(context.Background(), "worker.pass",
		trace.WithAttributes(
			attribute.String("project", w.root),
			attribute.String("pass_id", passID),
		))
	defer span.End()

	outcome := ports.Outcome{
		Project:   w.root,
		PassID:    passID,
		StartedAt: started,
	}

	tbl, report, err := w.compute(ctx)
	result := observability.ResultRejected
	switch {
	case err != nil:
		outcome.Err = err
		result = observability.ResultFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.logger.Warn("recomputation failed", "pass_id", passID, "error", err)
	default:
		outcome.Report = report
		if tbl != nil {
			w.store.Replace(w.root, tbl)
			outcome.Committed = true
			outcome.Symbols = tbl.Len()
			result = observability.ResultCommitted
			observability.CommittedSymbols.WithLabelValues(w.root).Set(float64(tbl.Len()))
		}
		w.logger.Debug("recomputation finished",
			"pass_id", passID,
			"committed", outcome.Committed,
			"symbols", outcome.Symbols,
			"diagnostics", report.Count(),
		)
	}
	outcome.Duration = time.Since(started)

	span.SetAttributes(
		attribute.Bool("committed", outcome.Committed),
		attribute.Int("symbols", outcome.Symbols),
	)
	observability.PassesTotal.WithLabelValues(result).Inc()
	observability.PassDuration.Observe(outcome.Duration.Seconds())

	w.deliver(outcome)
	w.record(ctx, outcome)
	w.passes.Add(1)

	if w.onPass != nil {
		w.onPass(outcome)
	}
}

func (w *Worker) compute(ctx context.Context) (tbl *table.Table, report *diagnostics.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			tbl, report = nil, nil
			err = errors.New(errors.CodeAnalyzer, fmt.Sprintf("analyzer panic: %v", r))
		}
	}()

	tbl, report, err = w.analyzer.ComputeSymbols(ctx, w.root)
	if err != nil {
		if !errors.IsCode(err, errors.CodeAnalyzer) {
			err = errors.Wrap(err, errors.CodeAnalyzer, "compute symbols")
		}
		return nil, nil, err
	}
	return tbl, report, nil
}

func (w *Worker) deliver(outcome ports.Outcome) {
	if w.sink == nil {
		return
	}
	if err := w.sink.Deliver(outcome); err != nil {
		observability.SinkDroppedTotal.Inc()
		w.logger.Warn("diagnostics outcome dropped", "pass_id", outcome.PassID, "error", err)
	}
}

func (w *Worker) record(ctx context.Context, outcome ports.Outcome) {
	if w.journal == nil {
		return
	}
	rec := ports.PassRecord{
		PassID:          outcome.PassID,
		ProjectRoot:     outcome.Project,
		StartedAt:       outcome.StartedAt,
		Duration:        outcome.Duration,
		Committed:       outcome.Committed,
		SymbolCount:     outcome.Symbols,
		DiagnosticCount: outcome.Report.Count(),
	}
	if outcome.Err != nil {
		rec.Error = outcome.Err.Error()
	}

	ctx, cancel := context.WithTimeout(ctx, journalTimeout)
	defer cancel()
	if err := w.journal.Record(ctx, rec); err != nil {
		w.logger.Warn("pass journal write failed", "pass_id", outcome.PassID, "error", err)
	}
}
