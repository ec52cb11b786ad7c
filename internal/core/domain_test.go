package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestIntentValidate(t *testing.T) {
	cases := []struct {
		name string
		in   Intent
		want error
	}{
		{"income ok", Intent{Type: Income, Amount: d("10"), AccountID: "a", Title: "Salary", Category: "Work"}, nil},
		{"expense from budget ok", Intent{Type: Expense, Amount: d("5"), BudgetID: "b", Title: "Food", Category: "Food"}, nil},
		{"transfer without title ok", Intent{Type: Transfer, Amount: d("5"), AccountID: "a", ToBudgetID: "b"}, nil},
		{"unknown type", Intent{Type: "refund", Amount: d("1"), AccountID: "a", Title: "x", Category: "y"}, ErrInvalidType},
		{"zero amount", Intent{Type: Income, Amount: decimal.Zero, AccountID: "a", Title: "x", Category: "y"}, ErrInvalidAmount},
		{"negative amount", Intent{Type: Income, Amount: d("-1"), AccountID: "a", Title: "x", Category: "y"}, ErrInvalidAmount},
		{"no source", Intent{Type: Expense, Amount: d("1"), Title: "x", Category: "y"}, ErrMissingReference},
		{"both sources", Intent{Type: Expense, Amount: d("1"), AccountID: "a", BudgetID: "b", Title: "x", Category: "y"}, ErrAmbiguousReference},
		{"destination on expense", Intent{Type: Expense, Amount: d("1"), AccountID: "a", ToAccountID: "c", Title: "x", Category: "y"}, ErrUnexpectedTarget},
		{"fee on income", Intent{Type: Income, Amount: d("1"), AccountID: "a", Fee: d("1"), Title: "x", Category: "y"}, ErrUnexpectedTarget},
		{"empty title", Intent{Type: Expense, Amount: d("1"), AccountID: "a", Category: "y"}, ErrEmptyTitle},
		{"empty category", Intent{Type: Expense, Amount: d("1"), AccountID: "a", Title: "x"}, ErrEmptyCategory},
		{"transfer no destination", Intent{Type: Transfer, Amount: d("1"), AccountID: "a"}, ErrMissingReference},
		{"transfer both destinations", Intent{Type: Transfer, Amount: d("1"), AccountID: "a", ToAccountID: "c", ToBudgetID: "b"}, ErrAmbiguousReference},
		{"negative fee", Intent{Type: Transfer, Amount: d("1"), AccountID: "a", ToAccountID: "c", Fee: d("-1")}, ErrInvalidFee},
		{"self transfer", Intent{Type: Transfer, Amount: d("10"), AccountID: "a", ToAccountID: "a"}, ErrInvalidTransfer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			if tc.want == nil {
				if err != nil {
					t.Fatalf("expected ok, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected a validation error, got %v", err)
			}
		})
	}
}

func TestEffect(t *testing.T) {
	acc := Endpoint{Kind: AccountEndpoint, ID: "a"}
	dst := Endpoint{Kind: AccountEndpoint, ID: "b"}

	income := Transaction{Type: Income, Amount: d("10"), AccountID: "a"}
	if got := DeltaFor(income, acc); !got.Equal(d("10")) {
		t.Fatalf("income delta = %s", got)
	}

	expense := Transaction{Type: Expense, Amount: d("10"), AccountID: "a"}
	if got := DeltaFor(expense, acc); !got.Equal(d("-10")) {
		t.Fatalf("expense delta = %s", got)
	}

	transfer := Transaction{Type: Transfer, Amount: d("300"), Fee: d("10"), AccountID: "a", ToAccountID: "b"}
	if got := DeltaFor(transfer, acc); !got.Equal(d("-310")) {
		t.Fatalf("transfer source delta = %s", got)
	}
	if got := DeltaFor(transfer, dst); !got.Equal(d("300")) {
		t.Fatalf("transfer destination delta = %s", got)
	}

	// destination fields on a non-transfer are ignored
	stray := Transaction{Type: Expense, Amount: d("1"), AccountID: "a", ToAccountID: "b"}
	if len(Effect(stray)) != 1 {
		t.Fatalf("expected a single delta, got %v", Effect(stray))
	}
}

func TestInverseAndNet(t *testing.T) {
	old := Transaction{Type: Expense, Amount: d("50"), AccountID: "a"}
	updated := Transaction{Type: Expense, Amount: d("80"), AccountID: "a"}

	net := Net(Inverse(Effect(old)), Effect(updated))
	if len(net) != 1 || !net[0].Amount.Equal(d("-30")) {
		t.Fatalf("unexpected net: %+v", net)
	}

	moved := Transaction{Type: Transfer, Amount: d("5"), AccountID: "a", ToBudgetID: "b"}
	net = Net(Inverse(Effect(old)), Effect(moved))
	if len(net) != 2 {
		t.Fatalf("expected two endpoints, got %+v", net)
	}
	if net[0].Endpoint.Kind != AccountEndpoint || !net[0].Amount.Equal(d("45")) {
		t.Fatalf("unexpected account net: %+v", net[0])
	}
	if net[1].Endpoint.Kind != BudgetEndpoint || !net[1].Amount.Equal(d("5")) {
		t.Fatalf("unexpected budget net: %+v", net[1])
	}
}

func TestIntentApplyPreservesDate(t *testing.T) {
	orig := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	tx := Transaction{ID: "t1", Date: orig, Type: Transfer, ToAccountID: "b", Fee: d("1"), SavingsGoalID: ""}

	got := Intent{Type: Expense, Amount: d("3"), AccountID: "a", Title: "x", Category: "y"}.Apply(tx)
	if !got.Date.Equal(orig) || got.ID != "t1" {
		t.Fatalf("expected date and id kept, got %+v", got)
	}
	if got.ToAccountID != "" || !got.Fee.IsZero() {
		t.Fatalf("expected transfer fields cleared, got %+v", got)
	}

	later := orig.Add(48 * time.Hour)
	got = Intent{Type: Expense, Amount: d("3"), AccountID: "a", Title: "x", Category: "y", Date: later}.Apply(tx)
	if !got.Date.Equal(later) {
		t.Fatalf("expected explicit date, got %v", got.Date)
	}
}

func TestTransferTitle(t *testing.T) {
	if got := TransferTitle("Cash", "Bank", decimal.Zero); got != "From Cash to Bank" {
		t.Fatalf("unexpected title %q", got)
	}
	if got := TransferTitle("Cash", "Bank", d("1.5")); got != "From Cash to Bank (fee 1.50)" {
		t.Fatalf("unexpected title %q", got)
	}
}

func TestSavingsGoalProgress(t *testing.T) {
	g := SavingsGoal{Name: "Bike", TargetAmount: d("200"), CurrentAmount: d("50")}
	if g.Progress() != 0.25 {
		t.Fatalf("progress = %v", g.Progress())
	}
	if !g.Remaining().Equal(d("150")) || g.IsCompleted() {
		t.Fatalf("unexpected remaining/completed: %s %v", g.Remaining(), g.IsCompleted())
	}
	g.CurrentAmount = d("250")
	if g.Progress() != 1 || !g.Remaining().IsZero() || !g.IsCompleted() {
		t.Fatalf("expected clamped completed goal, got %v %s", g.Progress(), g.Remaining())
	}
}

func TestEntityValidate(t *testing.T) {
	if err := (Account{Name: "Cash", Type: "cash"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Account{Name: "Cash", Type: "cash", Balance: d("-1")}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bad := Budget{Title: "Food", Category: "Food", Period: Monthly, StartDate: start, EndDate: start.AddDate(0, 0, -1)}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
	if err := (Budget{Title: "Food", Category: "Food", Period: "hourly"}).Validate(); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
	if err := (SavingsGoal{Name: "Trip", TargetAmount: decimal.Zero}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{ErrInvalidTransfer, KindValidation},
		{ErrInsufficientFunds, KindInsufficientFunds},
		{NotFound("account", "x"), KindNotFound},
		{errors.New("disk I/O error"), KindStorage},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
