// Package sheets mirrors ledger events into a spreadsheet journal.
package sheets

import (
	"context"
	"strings"
	"time"

	"budgetbuddy/internal/events"
)

// Ports for outbound adapters.
type (
	JournalWriter interface {
		// AppendJournal adds one row and returns a reference to where it landed.
		AppendJournal(ctx context.Context, row JournalRow) (rowRef string, err error)
	}

	JournalReader interface {
		ListJournal(ctx context.Context) ([]JournalRow, error)
	}
)

// JournalHeader names the journal columns in order.
var JournalHeader = []string{
	"Timestamp", "Event", "Kind", "Transaction", "Type", "Title", "Category",
	"Amount", "Fee", "Source", "Destination", "Goal", "Entity", "Warnings",
}

// JournalRow is one audit line. Amounts stay decimal strings so the sheet
// never sees a float.
type JournalRow struct {
	Timestamp     time.Time
	EventID       string
	Kind          string
	TransactionID string
	Type          string
	Title         string
	Category      string
	Amount        string
	Fee           string
	Source        string
	Destination   string
	GoalID        string
	Entity        string
	Warnings      string
}

// RowFromEvent flattens an event into a journal row.
func RowFromEvent(ev events.LedgerEvent) JournalRow {
	row := JournalRow{
		Timestamp: ev.Timestamp.UTC(),
		EventID:   ev.ID,
		Kind:      string(ev.Kind),
		Warnings:  strings.Join(ev.Warnings, "; "),
	}
	if ev.Entity != "" {
		row.Entity = ev.Entity + ":" + ev.EntityID
	}
	if tx := ev.Transaction; tx != nil {
		row.TransactionID = tx.ID
		row.Type = tx.Type
		row.Title = tx.Title
		row.Category = tx.Category
		row.Amount = tx.Amount.StringFixed(2)
		if tx.Fee.IsPositive() {
			row.Fee = tx.Fee.StringFixed(2)
		}
		row.Source = ref(tx.AccountID, tx.BudgetID)
		row.Destination = ref(tx.ToAccountID, tx.ToBudgetID)
		row.GoalID = tx.SavingsGoalID
	}
	return row
}

func ref(accountID, budgetID string) string {
	switch {
	case accountID != "":
		return "account:" + accountID
	case budgetID != "":
		return "budget:" + budgetID
	default:
		return ""
	}
}

// Values returns the row in JournalHeader order.
func (r JournalRow) Values() []any {
	return []any{
		r.Timestamp.Format(time.RFC3339), r.EventID, r.Kind, r.TransactionID, r.Type,
		r.Title, r.Category, r.Amount, r.Fee, r.Source, r.Destination, r.GoalID,
		r.Entity, r.Warnings,
	}
}

// ParseRow is the inverse of Values. Short rows leave trailing fields empty;
// rows whose timestamp does not parse (the header) report false.
func ParseRow(cols []string) (JournalRow, bool) {
	get := func(i int) string {
		if i < len(cols) {
			return strings.TrimSpace(cols[i])
		}
		return ""
	}
	ts, err := time.Parse(time.RFC3339, get(0))
	if err != nil {
		return JournalRow{}, false
	}
	return JournalRow{
		Timestamp: ts, EventID: get(1), Kind: get(2), TransactionID: get(3),
		Type: get(4), Title: get(5), Category: get(6), Amount: get(7), Fee: get(8),
		Source: get(9), Destination: get(10), GoalID: get(11), Entity: get(12),
		Warnings: get(13),
	}, true
}
