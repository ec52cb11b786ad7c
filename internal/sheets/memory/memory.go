// Package memory is an in-process journal for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"budgetbuddy/internal/sheets"
)

type Journal struct {
	mu   sync.Mutex
	rows []sheets.JournalRow
	// Err, when set, makes AppendJournal fail.
	Err error
}

var (
	_ sheets.JournalWriter = (*Journal)(nil)
	_ sheets.JournalReader = (*Journal)(nil)
)

func New() *Journal { return &Journal{} }

// AppendJournal stores the row and returns a synthetic row reference.
func (j *Journal) AppendJournal(_ context.Context, row sheets.JournalRow) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Err != nil {
		return "", j.Err
	}
	j.rows = append(j.rows, row)
	return fmt.Sprintf("mem:%d", len(j.rows)), nil
}

func (j *Journal) ListJournal(_ context.Context) ([]sheets.JournalRow, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]sheets.JournalRow(nil), j.rows...), nil
}
