package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/events"
	"budgetbuddy/internal/sheets"
	"budgetbuddy/internal/sheets/memory"

	"github.com/shopspring/decimal"
)

// chanSubscriber feeds queued events to the handler, then blocks on ctx.
type chanSubscriber struct {
	events []events.LedgerEvent
	errs   []error
}

func (s *chanSubscriber) Subscribe(ctx context.Context, handler events.Handler) error {
	for _, ev := range s.events {
		s.errs = append(s.errs, handler(ctx, ev))
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *chanSubscriber) Close() error { return nil }

func TestHandleEventSkipsRedelivery(t *testing.T) {
	ctx := context.Background()
	j := memory.New()
	w := NewJournalWorker(j, nil)

	snap := events.Snapshot(core.Transaction{ID: "t1", Type: core.Income, Amount: decimal.RequireFromString("10"), AccountID: "a"})
	ev := events.LedgerEvent{ID: "e1", Kind: events.KindRecorded, Transaction: &snap}

	for i := 0; i < 3; i++ {
		if err := w.HandleEvent(ctx, ev); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
	}
	rows, _ := j.ListJournal(ctx)
	if len(rows) != 1 || rows[0].TransactionID != "t1" || rows[0].Amount != "10.00" {
		t.Fatalf("unexpected journal: %+v", rows)
	}
}

func TestHandleEventFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	j := memory.New()
	j.Err = errors.New("quota exceeded")
	w := NewJournalWorker(j, nil)
	ev := events.EntityChanged("account", "a")

	if err := w.HandleEvent(ctx, ev); err == nil {
		t.Fatal("expected error so the broker redelivers")
	}

	j.Err = nil
	if err := w.HandleEvent(ctx, ev); err != nil {
		t.Fatalf("redelivery should succeed: %v", err)
	}
	rows, _ := j.ListJournal(ctx)
	if len(rows) != 1 {
		t.Fatalf("expected one row after retry, got %d", len(rows))
	}
}

func TestStartupCheckPrimesSeen(t *testing.T) {
	ctx := context.Background()
	j := memory.New()
	j.AppendJournal(ctx, sheets.JournalRow{EventID: "old"})

	w := NewJournalWorker(j, nil)
	if err := w.StartupCheck(ctx); err != nil {
		t.Fatalf("StartupCheck: %v", err)
	}
	if err := w.HandleEvent(ctx, events.LedgerEvent{ID: "old", Kind: events.KindDeleted}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	rows, _ := j.ListJournal(ctx)
	if len(rows) != 1 {
		t.Fatalf("event journaled before restart was appended again: %d rows", len(rows))
	}
}

func TestRun(t *testing.T) {
	j := memory.New()
	w := NewJournalWorker(j, nil)
	sub := &chanSubscriber{events: []events.LedgerEvent{
		events.EntityChanged("budget", "b1"),
		events.EntityChanged("budget", "b2"),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, sub) }()

	// Subscribe handles the queued events before blocking on ctx.
	for {
		rows, _ := j.ListJournal(context.Background())
		if len(rows) == 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v", err)
	}
}
