// Package publish turns recomputation outcomes into LSP diagnostics
// notifications.
package publish

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"symbolicator/internal/core/ports"
	"symbolicator/internal/engine/symbol"
	"symbolicator/internal/shared/observability"
	"symbolicator/internal/shared/util"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

const (
	DefaultBatchSize     = 16
	DefaultFlushInterval = 50 * time.Millisecond
)

// Notifier sends a server to client notification.
type Notifier interface {
	Notify(method string, params any) error
}

// Source is the diagnostics channel the workers deliver into.
type Source interface {
	DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([]ports.Outcome, error)
	Len() int
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

// Publisher keeps, per project, the set of files it last published non-empty
// diagnostics for, so a new report fully replaces the previous one.
type Publisher struct {
	source        Source
	notifier      Notifier
	logger        *slog.Logger
	batchSize     int
	flushInterval time.Duration

	mu        sync.Mutex
	published map[string]map[string]bool
}

func New(source Source, notifier Notifier, opts ...Option) *Publisher {
	p := &Publisher{
		source:        source,
		notifier:      notifier,
		logger:        slog.Default(),
		batchSize:     DefaultBatchSize,
		flushInterval: DefaultFlushInterval,
		published:     make(map[string]map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run drains the source until it is closed or ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		batch, err := p.source.DequeueBatch(ctx, p.batchSize, p.flushInterval)
		for _, outcome := range latestPerProject(batch) {
			p.Publish(outcome)
		}
		observability.DiagnosticsQueueDepth.Set(float64(p.source.Len()))

		if err != nil {
			if stderrors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// latestPerProject keeps the last outcome of each project, in delivery order.
// Earlier outcomes of the same project are superseded anyway.
func latestPerProject(batch []ports.Outcome) []ports.Outcome {
	if len(batch) < 2 {
		return batch
	}
	last := make(map[string]int, len(batch))
	for i, outcome := range batch {
		last[outcome.Project] = i
	}
	out := make([]ports.Outcome, 0, len(last))
	for i, outcome := range batch {
		if last[outcome.Project] == i {
			out = append(out, outcome)
		}
	}
	return out
}

// Publish sends the notifications for one outcome. A close marker clears
// what the project last published.
func (p *Publisher) Publish(outcome ports.Outcome) {
	if outcome.Closed {
		p.clearProject(outcome.Project)
		return
	}
	if outcome.Failed() {
		p.clearProject(outcome.Project)
		p.notify(protocol.ServerWindowShowMessage, protocol.ShowMessageParams{
			Type:    protocol.MessageTypeError,
			Message: fmt.Sprintf("symbolication of %s failed: %v", outcome.Project, outcome.Err),
		})
		return
	}

	current := make(map[string][]protocol.Diagnostic)
	outcome.Report.Each(func(_ symbol.Symbol, path string, diags []protocol.Diagnostic) {
		if path == "" || len(diags) == 0 {
			return
		}
		current[path] = append(current[path], diags...)
	})

	p.mu.Lock()
	previous := p.published[outcome.Project]
	next := make(map[string]bool, len(current))
	for path := range current {
		next[path] = true
	}
	p.published[outcome.Project] = next
	p.mu.Unlock()

	for _, path := range util.SortedStringKeys(current) {
		p.publishFile(path, current[path])
	}
	for _, path := range util.SortedStringKeys(previous) {
		if !next[path] {
			p.publishFile(path, nil)
		}
	}
}

// clearProject publishes empty diagnostics for every file the project last
// reported.
func (p *Publisher) clearProject(project string) {
	p.mu.Lock()
	previous := p.published[project]
	delete(p.published, project)
	p.mu.Unlock()

	for _, path := range util.SortedStringKeys(previous) {
		p.publishFile(path, nil)
	}
}

func (p *Publisher) publishFile(path string, diags []protocol.Diagnostic) {
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i].Range.Start, diags[j].Range.Start
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Character < b.Character
	})
	if p.notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         util.PathToURI(path),
		Diagnostics: diags,
	}) {
		observability.DiagnosticsPublishedTotal.Inc()
	}
}

func (p *Publisher) notify(method string, params any) bool {
	if err := p.notifier.Notify(method, params); err != nil {
		p.logger.Warn("notify client failed", "method", method, "error", err)
		return false
	}
	return true
}
