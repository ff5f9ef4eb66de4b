package queue

import (
	"context"
	"io"
	"testing"
	"time"

	"symbolicator/internal/core/errors"
	"symbolicator/internal/core/ports"
)

func TestOutcomeQueue_DeliverDequeue(t *testing.T) {
	q := NewOutcomeQueue()
	t.Cleanup(func() { _ = q.Close() })

	if err := q.Deliver(ports.Outcome{Project: "/a"}); err != nil {
		t.Fatalf("expected delivery accepted, got %v", err)
	}
	if err := q.Deliver(ports.Outcome{Project: "/b"}); err != nil {
		t.Fatalf("expected delivery accepted, got %v", err)
	}

	batch, err := q.DequeueBatch(context.Background(), 2, time.Millisecond)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("expected 2 items, got %d", len(batch))
	}
	if batch[0].Project != "/a" || batch[1].Project != "/b" {
		t.Fatalf("unexpected order: %#v", batch)
	}
	if q.Len() != 0 {
		t.Fatalf("expected drained queue, got %d pending", q.Len())
	}
}

func TestOutcomeQueue_NewerOutcomeReplacesPending(t *testing.T) {
	q := NewOutcomeQueue()
	t.Cleanup(func() { _ = q.Close() })

	for _, o := range []ports.Outcome{
		{Project: "/a", PassID: "a1"},
		{Project: "/b", PassID: "b1"},
		{Project: "/a", PassID: "a2"},
		{Project: "/a", PassID: "a3"},
	} {
		if err := q.Deliver(o); err != nil {
			t.Fatalf("deliver %s: %v", o.PassID, err)
		}
	}

	if q.Len() != 2 {
		t.Fatalf("expected one pending outcome per project, got %d", q.Len())
	}
	if q.Superseded() != 2 {
		t.Fatalf("expected 2 superseded outcomes, got %d", q.Superseded())
	}

	batch, err := q.DequeueBatch(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if len(batch) != 2 || batch[0].PassID != "a3" || batch[1].PassID != "b1" {
		t.Fatalf("expected [a3 b1], got %#v", batch)
	}
}

func TestOutcomeQueue_DeliverNeverBlocks(t *testing.T) {
	q := NewOutcomeQueue()
	t.Cleanup(func() { _ = q.Close() })

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			_ = q.Deliver(ports.Outcome{Project: "/a"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Deliver blocked without a consumer")
	}
	if q.Len() != 1 {
		t.Fatalf("expected a single pending outcome, got %d", q.Len())
	}
}

func TestOutcomeQueue_ClosedQueueRejects(t *testing.T) {
	q := NewOutcomeQueue()
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := q.Deliver(ports.Outcome{Project: "/a"}); !errors.IsCode(err, errors.CodeSinkDelivery) {
		t.Fatalf("expected sink delivery error after close, got %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
}

func TestOutcomeQueue_CloseReturnsEOFWhenDrained(t *testing.T) {
	q := NewOutcomeQueue()
	if err := q.Deliver(ports.Outcome{Project: "/a"}); err != nil {
		t.Fatalf("expected delivery accepted, got %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	batch, err := q.DequeueBatch(context.Background(), 2, 0)
	if len(batch) != 1 {
		t.Fatalf("expected 1 item after close, got %d", len(batch))
	}
	if err != io.EOF {
		t.Fatalf("expected io.EOF with final drained batch, got %v", err)
	}

	batch, err = q.DequeueBatch(context.Background(), 2, 0)
	if len(batch) != 0 || err != io.EOF {
		t.Fatalf("expected empty batch and io.EOF, got %d items and %v", len(batch), err)
	}
}

func TestOutcomeQueue_DequeueTimesOutEmpty(t *testing.T) {
	q := NewOutcomeQueue()
	t.Cleanup(func() { _ = q.Close() })

	batch, err := q.DequeueBatch(context.Background(), 1, 10*time.Millisecond)
	if err != nil || batch != nil {
		t.Fatalf("expected nil batch and nil error on timeout, got %v, %v", batch, err)
	}
}

func TestOutcomeQueue_DequeueWakesOnDeliver(t *testing.T) {
	q := NewOutcomeQueue()
	t.Cleanup(func() { _ = q.Close() })

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = q.Deliver(ports.Outcome{Project: "/a", PassID: "late"})
	}()

	batch, err := q.DequeueBatch(context.Background(), 1, 5*time.Second)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if len(batch) != 1 || batch[0].PassID != "late" {
		t.Fatalf("expected the late outcome, got %#v", batch)
	}
}

func TestOutcomeQueue_DequeueWakesOnClose(t *testing.T) {
	q := NewOutcomeQueue()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = q.Close()
	}()

	_, err := q.DequeueBatch(context.Background(), 1, 5*time.Second)
	if err != io.EOF {
		t.Fatalf("expected io.EOF once closed, got %v", err)
	}
}

func TestOutcomeQueue_DequeueHonoursContext(t *testing.T) {
	q := NewOutcomeQueue()
	t.Cleanup(func() { _ = q.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.DequeueBatch(ctx, 1, time.Second); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
