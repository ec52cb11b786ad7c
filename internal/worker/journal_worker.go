// Package worker consumes ledger events and mirrors them to the journal.
package worker

import (
	"context"
	"fmt"
	"time"

	"budgetbuddy/internal/cache"
	"budgetbuddy/internal/events"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/sheets"
)

const (
	seenSize = 10000
	seenTTL  = 24 * time.Hour
)

// JournalWorker appends one journal row per ledger event. Brokers deliver
// at least once, so recently journaled event ids are remembered and
// redeliveries are skipped.
type JournalWorker struct {
	journal sheets.JournalWriter
	seen    *cache.LRUCache[struct{}]
	logger  *log.Logger
}

func NewJournalWorker(journal sheets.JournalWriter, logger *log.Logger) *JournalWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &JournalWorker{
		journal: journal,
		seen:    cache.NewLRUCache[struct{}](seenSize, seenTTL),
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// Seen exposes the redelivery cache so a cache.Manager can expire it.
func (w *JournalWorker) Seen() cache.Cleaner { return w.seen }

// StartupCheck primes the redelivery cache from rows already in the
// journal, when the journal can be read back.
func (w *JournalWorker) StartupCheck(ctx context.Context) error {
	reader, ok := w.journal.(sheets.JournalReader)
	if !ok {
		return nil
	}
	rows, err := reader.ListJournal(ctx)
	if err != nil {
		return fmt.Errorf("list journal: %w", err)
	}
	for _, row := range rows {
		if row.EventID != "" {
			w.seen.Set(row.EventID, struct{}{})
		}
	}
	w.logger.InfoContext(ctx, "Journal startup check complete",
		log.FieldOperation, log.OpStartup,
		"rows", len(rows))
	return nil
}

// HandleEvent journals ev. A returned error asks the broker to redeliver.
func (w *JournalWorker) HandleEvent(ctx context.Context, ev events.LedgerEvent) error {
	if _, dup := w.seen.Get(ev.ID); dup {
		w.logger.DebugContext(ctx, "Skipping already journaled event",
			log.FieldEventKind, ev.Kind,
			"event_id", ev.ID)
		return nil
	}

	ref, err := w.journal.AppendJournal(ctx, sheets.RowFromEvent(ev))
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to append journal row",
			log.FieldOperation, log.OpAppend,
			log.FieldEventKind, ev.Kind,
			log.FieldError, err)
		return fmt.Errorf("append journal row: %w", err)
	}
	w.seen.Set(ev.ID, struct{}{})

	w.logger.InfoContext(ctx, "Journaled ledger event",
		log.FieldOperation, log.OpAppend,
		log.FieldEventKind, ev.Kind,
		log.FieldSheetsRef, ref,
		"event_id", ev.ID)
	return nil
}

// Run consumes sub until ctx is done.
func (w *JournalWorker) Run(ctx context.Context, sub events.Subscriber) error {
	return sub.Subscribe(ctx, w.HandleEvent)
}
