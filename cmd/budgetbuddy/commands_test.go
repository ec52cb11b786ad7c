package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/services"
	"budgetbuddy/internal/storage/memory"

	"github.com/shopspring/decimal"
)

func newTestService(t *testing.T) *services.FinanceService {
	t.Helper()
	svc := services.NewFinanceService(memory.New(), nil, log.Discard(), services.Options{})
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestIntentFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"expense", []string{"-amount", "12,50", "-account", "a1"}, nil},
		{"transfer with fee", []string{"-type", "Transfer", "-amount", "100", "-fee", "1.5", "-account", "a1", "-to-account", "a2"}, nil},
		{"negative amount", []string{"-amount", "-3"}, core.ErrInvalidAmount},
		{"bad fee", []string{"-amount", "3", "-fee", "x"}, core.ErrInvalidFee},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFlagSet("record", &bytes.Buffer{})
			f := bindIntentFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			in, err := f.intent()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("intent() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("intent() error = %v", err)
			}
			if in.Type != core.Expense && in.Type != core.Transfer {
				t.Errorf("unexpected type %q", in.Type)
			}
		})
	}

	fs := newFlagSet("record", &bytes.Buffer{})
	f := bindIntentFlags(fs)
	_ = fs.Parse([]string{"-amount", "1", "-date", "2024-02-30"})
	if _, err := f.intent(); err == nil {
		t.Error("intent() should reject an invalid date")
	}
}

func TestRunRecordAndList(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	var out bytes.Buffer

	if err := run(ctx, svc, &out, []string{"add-account", "-name", "Wallet", "-balance", "50"}); err != nil {
		t.Fatalf("add-account error = %v", err)
	}
	accounts, err := svc.RefreshAccounts(ctx)
	if err != nil || len(accounts) != 1 {
		t.Fatalf("expected one account, got %v (%v)", accounts, err)
	}
	id := accounts[0].ID

	out.Reset()
	if err := run(ctx, svc, &out, []string{"record", "-amount", "20", "-account", id, "-title", "Lunch", "-category", "Food"}); err != nil {
		t.Fatalf("record error = %v", err)
	}
	if !strings.Contains(out.String(), "account:"+id+" -20.00") {
		t.Errorf("record output should show the delta, got:\n%s", out.String())
	}

	out.Reset()
	if err := run(ctx, svc, &out, []string{"accounts"}); err != nil {
		t.Fatalf("accounts error = %v", err)
	}
	if !strings.Contains(out.String(), "30.00") {
		t.Errorf("accounts output should show the new balance, got:\n%s", out.String())
	}

	out.Reset()
	err = run(ctx, svc, &out, []string{"record", "-amount", "100", "-account", id, "-title", "TV", "-category", "Home"})
	if !errors.Is(err, core.ErrInsufficientFunds) {
		t.Errorf("overdraw should fail with ErrInsufficientFunds, got %v", err)
	}
}

func TestRunDepositAndGoals(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	var out bytes.Buffer

	acct, err := svc.CreateAccount(ctx, core.Account{Name: "Bank", Type: "bank", Balance: mustAmount(t, "500")})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	if err := run(ctx, svc, &out, []string{"add-goal", "-name", "Bike", "-target", "200", "-account", acct.ID}); err != nil {
		t.Fatalf("add-goal error = %v", err)
	}
	goals, _ := svc.RefreshSavingsGoals(ctx)
	if len(goals) != 1 {
		t.Fatalf("expected one goal, got %d", len(goals))
	}

	if err := run(ctx, svc, &out, []string{"deposit", "-goal", goals[0].ID, "-amount", "50"}); err != nil {
		t.Fatalf("deposit error = %v", err)
	}

	out.Reset()
	if err := run(ctx, svc, &out, []string{"goals"}); err != nil {
		t.Fatalf("goals error = %v", err)
	}
	if !strings.Contains(out.String(), "25%") {
		t.Errorf("goals output should show 25%% progress, got:\n%s", out.String())
	}
}

func TestRunBudgetBalance(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	var out bytes.Buffer

	if err := run(ctx, svc, &out, []string{"add-budget", "-title", "Food", "-category", "Groceries"}); err != nil {
		t.Fatalf("add-budget error = %v", err)
	}
	budgets, _ := svc.RefreshBudgets(ctx)
	if len(budgets) != 1 {
		t.Fatalf("expected one budget, got %d", len(budgets))
	}
	bid := budgets[0].ID

	if err := run(ctx, svc, &out, []string{"record", "-type", "income", "-amount", "80", "-budget", bid, "-title", "Refill", "-category", "Groceries"}); err != nil {
		t.Fatalf("record income error = %v", err)
	}
	if err := run(ctx, svc, &out, []string{"record", "-amount", "30", "-budget", bid, "-title", "Market", "-category", "Groceries"}); err != nil {
		t.Fatalf("record expense error = %v", err)
	}

	out.Reset()
	if err := run(ctx, svc, &out, []string{"balance", "-budget", bid}); err != nil {
		t.Fatalf("balance error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "50.00" {
		t.Errorf("balance = %q, want 50.00", got)
	}
}

func TestRunUsage(t *testing.T) {
	svc := newTestService(t)
	var out bytes.Buffer

	if err := run(context.Background(), svc, &out, []string{"help"}); err != nil {
		t.Errorf("help error = %v", err)
	}
	if !strings.Contains(out.String(), "add-account") {
		t.Errorf("usage should list commands, got:\n%s", out.String())
	}
	if err := run(context.Background(), svc, &out, []string{"frobnicate"}); !errors.Is(err, errUsage) {
		t.Errorf("unknown command error = %v, want errUsage", err)
	}
	if err := run(context.Background(), svc, &out, []string{"delete"}); !errors.Is(err, errUsage) {
		t.Errorf("delete without -id error = %v, want errUsage", err)
	}
}

func mustAmount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := core.ParseAmount(s)
	if err != nil {
		t.Fatal(err)
	}
	return v
}
