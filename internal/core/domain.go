package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

// SavingsCategory is the category stamped on deposit transactions.
const SavingsCategory = "Savings"

// UnknownName is shown for references that no longer resolve.
const UnknownName = "Unknown"

type (
	TransactionType string

	Period string

	Account struct {
		ID       string
		Name     string
		Type     string // cash, bank, e-wallet, ...
		IconName string
		Balance  decimal.Decimal
	}

	Budget struct {
		ID         string
		Title      string
		Category   string
		Amount     decimal.Decimal // legacy limit column
		Period     Period
		StartDate  time.Time
		EndDate    time.Time
		Spent      decimal.Decimal // legacy, superseded by Balance
		AccountIDs []string
		IsActive   bool

		// Balance is derived from the transaction log on read, never stored.
		Balance decimal.Decimal
	}

	SavingsGoal struct {
		ID            string
		Name          string
		Reason        string
		TargetAmount  decimal.Decimal
		CurrentAmount decimal.Decimal
		StartDate     time.Time
		TargetDate    time.Time
		AccountID     string // optional linked account
		IsActive      bool
	}

	// Transaction is the event record every balance change hangs off.
	// Optional references are empty strings when unset.
	Transaction struct {
		ID          string
		Title       string
		Amount      decimal.Decimal
		Type        TransactionType
		Category    string
		Date        time.Time
		Notes       string
		AccountID   string
		BudgetID    string
		ToAccountID string
		ToBudgetID  string
		Fee         decimal.Decimal

		// SavingsGoalID links a deposit transaction to the goal it funded.
		SavingsGoalID string
	}
)

func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	default:
		return false
	}
}

func (p Period) Valid() bool {
	switch p {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

// Source returns the endpoint the transaction draws from (or credits, for income).
func (t Transaction) Source() (Endpoint, bool) {
	return endpointOf(t.AccountID, t.BudgetID)
}

// Destination returns the receiving endpoint of a transfer.
func (t Transaction) Destination() (Endpoint, bool) {
	if t.Type != Transfer {
		return Endpoint{}, false
	}
	return endpointOf(t.ToAccountID, t.ToBudgetID)
}

// Endpoints lists the source and, for transfers, the destination.
func (t Transaction) Endpoints() []Endpoint {
	var out []Endpoint
	if src, ok := t.Source(); ok {
		out = append(out, src)
	}
	if dst, ok := t.Destination(); ok {
		out = append(out, dst)
	}
	return out
}

// IsDeposit reports whether the transaction was produced by a savings deposit.
func (t Transaction) IsDeposit() bool {
	return t.SavingsGoalID != ""
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(a.Type) == "" {
		return ErrEmptyAccountType
	}
	if a.Balance.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if !b.Period.Valid() {
		return ErrInvalidPeriod
	}
	if b.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !b.StartDate.IsZero() && !b.EndDate.IsZero() && b.EndDate.Before(b.StartDate) {
		return ErrInvalidDateRange
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if g.CurrentAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if !g.StartDate.IsZero() && !g.TargetDate.IsZero() && g.TargetDate.Before(g.StartDate) {
		return ErrInvalidDateRange
	}
	return nil
}

// Remaining is how much is still missing to reach the target; never negative.
func (g SavingsGoal) Remaining() decimal.Decimal {
	rem := g.TargetAmount.Sub(g.CurrentAmount)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// Progress returns the completed fraction clamped to [0, 1].
func (g SavingsGoal) Progress() float64 {
	if !g.TargetAmount.IsPositive() {
		return 0
	}
	p, _ := g.CurrentAmount.Div(g.TargetAmount).Float64()
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

func (g SavingsGoal) IsCompleted() bool {
	return g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}
