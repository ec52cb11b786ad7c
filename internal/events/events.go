// Package events carries ledger change notifications to other processes.
//
// Events are a refresh signal, not a source of truth: consumers that need
// state read it back from the store.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindRecorded      Kind = "transaction.recorded"
	KindEdited        Kind = "transaction.edited"
	KindDeleted       Kind = "transaction.deleted"
	KindDeposited     Kind = "savings.deposited"
	KindEntityChanged Kind = "entity.changed"
)

// TransactionSnapshot is the wire form of a transaction.
type TransactionSnapshot struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
	Category      string          `json:"category"`
	Date          time.Time       `json:"date"`
	Notes         string          `json:"notes,omitempty"`
	AccountID     string          `json:"account_id,omitempty"`
	BudgetID      string          `json:"budget_id,omitempty"`
	ToAccountID   string          `json:"to_account_id,omitempty"`
	ToBudgetID    string          `json:"to_budget_id,omitempty"`
	Fee           decimal.Decimal `json:"fee"`
	SavingsGoalID string          `json:"savings_goal_id,omitempty"`
}

// LedgerEvent describes one committed change.
type LedgerEvent struct {
	ID          string               `json:"id"`
	Kind        Kind                 `json:"kind"`
	Transaction *TransactionSnapshot `json:"transaction,omitempty"`
	Entity      string               `json:"entity,omitempty"`
	EntityID    string               `json:"entity_id,omitempty"`
	Touched     []string             `json:"touched,omitempty"`
	Warnings    []string             `json:"warnings,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
}

// FromResult builds the event for a committed ledger or deposit operation.
func FromResult(kind Kind, res ledger.Result) LedgerEvent {
	snap := Snapshot(res.Transaction)
	ev := LedgerEvent{
		ID:          uuid.NewString(),
		Kind:        kind,
		Transaction: &snap,
		Touched:     res.Touched(),
		Timestamp:   time.Now().UTC(),
	}
	if res.Transaction.IsDeposit() {
		ev.Touched = append(ev.Touched, ledger.GoalKey(res.Transaction.SavingsGoalID))
	}
	for _, w := range res.Warnings {
		ev.Warnings = append(ev.Warnings, w.String())
	}
	return ev
}

// EntityChanged builds the event for a create, update or delete of an
// account, budget or savings goal.
func EntityChanged(entity, id string) LedgerEvent {
	return LedgerEvent{
		ID:        uuid.NewString(),
		Kind:      KindEntityChanged,
		Entity:    entity,
		EntityID:  id,
		Timestamp: time.Now().UTC(),
	}
}

func Snapshot(tx core.Transaction) TransactionSnapshot {
	return TransactionSnapshot{
		ID:            tx.ID,
		Title:         tx.Title,
		Amount:        tx.Amount,
		Type:          string(tx.Type),
		Category:      tx.Category,
		Date:          tx.Date.UTC(),
		Notes:         tx.Notes,
		AccountID:     tx.AccountID,
		BudgetID:      tx.BudgetID,
		ToAccountID:   tx.ToAccountID,
		ToBudgetID:    tx.ToBudgetID,
		Fee:           tx.Fee,
		SavingsGoalID: tx.SavingsGoalID,
	}
}

// ToJSON converts the event to JSON bytes
func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes an event and rejects payloads without a kind.
func FromJSON(data []byte) (LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return LedgerEvent{}, err
	}
	if ev.Kind == "" {
		return LedgerEvent{}, fmt.Errorf("event without kind")
	}
	return ev, nil
}

// Publisher sends events to a broker.
type Publisher interface {
	Publish(ctx context.Context, ev LedgerEvent) error
	Close() error
}

// Handler processes one event. A returned error asks for redelivery.
type Handler func(ctx context.Context, ev LedgerEvent) error

// Subscriber delivers events to a handler until ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}

// Nop discards every event. Used when EVENTS_BACKEND is none.
type Nop struct{}

func (Nop) Publish(context.Context, LedgerEvent) error { return nil }
func (Nop) Close() error                               { return nil }

// Recorder keeps published events in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []LedgerEvent
	Err    error
}

func (r *Recorder) Publish(_ context.Context, ev LedgerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []LedgerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LedgerEvent(nil), r.events...)
}

func (r *Recorder) Close() error { return nil }
