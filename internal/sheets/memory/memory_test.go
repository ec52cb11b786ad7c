package memory

import (
	"context"
	"errors"
	"testing"

	"budgetbuddy/internal/sheets"
)

func TestJournalAppendAndList(t *testing.T) {
	j := New()
	ctx := context.Background()

	ref, err := j.AppendJournal(ctx, sheets.JournalRow{EventID: "e1"})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	ref, _ = j.AppendJournal(ctx, sheets.JournalRow{EventID: "e2"})
	if ref != "mem:2" {
		t.Fatalf("unexpected ref %q", ref)
	}

	rows, err := j.ListJournal(ctx)
	if err != nil || len(rows) != 2 || rows[1].EventID != "e2" {
		t.Fatalf("unexpected rows: %+v err=%v", rows, err)
	}
	rows[0].EventID = "mutated"
	again, _ := j.ListJournal(ctx)
	if again[0].EventID != "e1" {
		t.Fatal("ListJournal must return a copy")
	}
}

func TestJournalError(t *testing.T) {
	j := New()
	j.Err = errors.New("quota")
	if _, err := j.AppendJournal(context.Background(), sheets.JournalRow{}); err == nil {
		t.Fatal("expected error")
	}
}
