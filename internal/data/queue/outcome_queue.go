package queue

import (
	"context"
	"io"
	"sync"
	"time"

	"symbolicator/internal/core/errors"
	"symbolicator/internal/core/ports"
)

var _ ports.DiagnosticsSink = (*OutcomeQueue)(nil)

// OutcomeQueue is the diagnostics channel between workers and the publisher.
// It holds at most one pending outcome per project: a newer outcome replaces
// the pending one in place, keeping the project's position in delivery order.
// Deliver never blocks and only a closed queue rejects.
type OutcomeQueue struct {
	mu         sync.Mutex
	pending    map[string]ports.Outcome
	order      []string
	superseded uint64
	closed     bool

	ready chan struct{}
	done  chan struct{}
}

func NewOutcomeQueue() *OutcomeQueue {
	return &OutcomeQueue{
		pending: make(map[string]ports.Outcome),
		ready:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (q *OutcomeQueue) Deliver(outcome ports.Outcome) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errors.New(errors.CodeSinkDelivery, "diagnostics queue closed")
	}
	if _, ok := q.pending[outcome.Project]; ok {
		q.superseded++
	} else {
		q.order = append(q.order, outcome.Project)
	}
	q.pending[outcome.Project] = outcome
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// DequeueBatch waits up to wait for the first outcome, then takes whatever
// else is pending up to maxItems. A closed queue hands out what is left
// together with io.EOF, then io.EOF alone.
func (q *OutcomeQueue) DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([]ports.Outcome, error) {
	if maxItems <= 0 {
		maxItems = 1
	}

	var timer <-chan time.Time
	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		timer = t.C
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, closed := q.take(maxItems)
		if closed {
			return batch, io.EOF
		}
		if len(batch) > 0 {
			return batch, nil
		}
		if wait <= 0 {
			return nil, nil
		}

		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer:
			return nil, nil
		}
	}
}

// take pops up to n outcomes in delivery order. closed is true once the
// queue is closed and nothing is left after this batch.
func (q *OutcomeQueue) take(n int) (batch []ports.Outcome, closed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n > len(q.order) {
		n = len(q.order)
	}
	if n > 0 {
		batch = make([]ports.Outcome, 0, n)
		for _, project := range q.order[:n] {
			batch = append(batch, q.pending[project])
			delete(q.pending, project)
		}
		q.order = append(q.order[:0], q.order[n:]...)
	}
	return batch, q.closed && len(q.order) == 0
}

func (q *OutcomeQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)
	return nil
}

// Len is the number of projects with a pending outcome.
func (q *OutcomeQueue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// Superseded counts outcomes replaced before the publisher took them.
func (q *OutcomeQueue) Superseded() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.superseded
}
