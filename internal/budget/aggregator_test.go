package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/storage/memory"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeBalance(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	for _, id := range []string{"food", "fun"} {
		if err := s.CreateBudget(ctx, core.Budget{ID: id, Title: id, Category: id, Period: core.Monthly}); err != nil {
			t.Fatalf("create budget: %v", err)
		}
	}
	now := time.Now()
	txs := []core.Transaction{
		{ID: "1", Type: core.Income, Amount: dec("200"), BudgetID: "food", Date: now},
		{ID: "2", Type: core.Expense, Amount: dec("45.10"), BudgetID: "food", Date: now},
		{ID: "3", Type: core.Transfer, Amount: dec("50"), Fee: dec("0.5"), BudgetID: "food", ToBudgetID: "fun", Date: now},
		{ID: "4", Type: core.Transfer, Amount: dec("10"), AccountID: "acc", ToBudgetID: "fun", Date: now},
		{ID: "5", Type: core.Expense, Amount: dec("99"), AccountID: "acc", Date: now},
		// destination columns on a non-transfer never count
		{ID: "6", Type: core.Expense, Amount: dec("7"), AccountID: "acc", ToBudgetID: "fun", Date: now},
	}
	for _, tx := range txs {
		if err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create tx: %v", err)
		}
	}

	agg := NewAggregator(s, nil)
	food, err := agg.ComputeBalance(ctx, "food")
	if err != nil {
		t.Fatalf("compute food: %v", err)
	}
	if !food.Equal(dec("104.9")) {
		t.Fatalf("food = %s, want 104.9", food)
	}
	fun, _ := agg.ComputeBalance(ctx, "fun")
	if !fun.Equal(dec("60")) {
		t.Fatalf("fun = %s, want 60", fun)
	}

	if _, err := agg.ComputeBalance(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	all, err := agg.ComputeAll(ctx)
	if err != nil {
		t.Fatalf("compute all: %v", err)
	}
	if len(all) != 2 || !all["food"].Equal(food) || !all["fun"].Equal(fun) {
		t.Fatalf("unexpected sums: %v", all)
	}

	// deleting a transaction is reflected immediately
	if err := s.DeleteTransaction(ctx, "2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	food, _ = agg.ComputeBalance(ctx, "food")
	if !food.Equal(dec("150")) {
		t.Fatalf("food after delete = %s, want 150", food)
	}
}

func TestListWithBalances(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	_ = s.CreateBudget(ctx, core.Budget{ID: "b", Title: "B", Category: "c", Period: core.Weekly})
	_ = s.CreateBudget(ctx, core.Budget{ID: "empty", Title: "Empty", Category: "c", Period: core.Weekly})
	_ = s.CreateTransaction(ctx, core.Transaction{ID: "1", Type: core.Income, Amount: dec("12"), BudgetID: "b"})
	_ = s.CreateTransaction(ctx, core.Transaction{ID: "2", Type: core.Expense, Amount: dec("3"), BudgetID: "gone"})

	out, err := NewAggregator(s, nil).ListWithBalances(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 budgets, got %d", len(out))
	}
	for _, b := range out {
		switch b.ID {
		case "b":
			if !b.Balance.Equal(dec("12")) {
				t.Fatalf("b = %s", b.Balance)
			}
		case "empty":
			if !b.Balance.IsZero() {
				t.Fatalf("empty = %s", b.Balance)
			}
		}
	}
}
