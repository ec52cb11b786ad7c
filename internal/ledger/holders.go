package ledger

import (
	"context"
	"fmt"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/storage"

	"github.com/shopspring/decimal"
)

// Holder is anything a transaction can move money in or out of.
type Holder interface {
	Key() string
	Name() string
}

// MutableBalanceHolder keeps its balance as stored state (accounts, goals).
type MutableBalanceHolder interface {
	Holder
	Balance() decimal.Decimal
	// Adjust adds delta to the stored balance and returns the new value.
	// It performs no sufficiency check.
	Adjust(ctx context.Context, e storage.Entities, delta decimal.Decimal) (decimal.Decimal, error)
}

// DerivedBalanceHolder computes its balance from the transaction log (budgets).
type DerivedBalanceHolder interface {
	Holder
	ComputeBalance(ctx context.Context, e storage.Entities) (decimal.Decimal, error)
}

type accountHolder struct{ a core.Account }

func (h *accountHolder) Key() string              { return EndpointKey(core.Endpoint{Kind: core.AccountEndpoint, ID: h.a.ID}) }
func (h *accountHolder) Name() string             { return h.a.Name }
func (h *accountHolder) Balance() decimal.Decimal { return h.a.Balance }

func (h *accountHolder) Adjust(ctx context.Context, e storage.Entities, delta decimal.Decimal) (decimal.Decimal, error) {
	next := h.a.Balance.Add(delta)
	if err := e.SetAccountBalance(ctx, h.a.ID, next); err != nil {
		return decimal.Zero, err
	}
	h.a.Balance = next
	return next, nil
}

type goalHolder struct{ g core.SavingsGoal }

func (h *goalHolder) Key() string              { return GoalKey(h.g.ID) }
func (h *goalHolder) Name() string             { return h.g.Name }
func (h *goalHolder) Balance() decimal.Decimal { return h.g.CurrentAmount }

func (h *goalHolder) Adjust(ctx context.Context, e storage.Entities, delta decimal.Decimal) (decimal.Decimal, error) {
	next := h.g.CurrentAmount.Add(delta)
	if err := e.SetSavingsGoalAmount(ctx, h.g.ID, next); err != nil {
		return decimal.Zero, err
	}
	h.g.CurrentAmount = next
	return next, nil
}

type budgetHolder struct{ b core.Budget }

func (h *budgetHolder) Key() string  { return EndpointKey(core.Endpoint{Kind: core.BudgetEndpoint, ID: h.b.ID}) }
func (h *budgetHolder) Name() string { return h.b.Title }

func (h *budgetHolder) ComputeBalance(ctx context.Context, e storage.Entities) (decimal.Decimal, error) {
	return storage.SumSignedTransactionsForBudget(ctx, e, h.b.ID)
}

// Resolve loads the holder behind an endpoint. A missing entity yields an
// error wrapping core.ErrNotFound.
func Resolve(ctx context.Context, e storage.Entities, ep core.Endpoint) (Holder, error) {
	switch ep.Kind {
	case core.AccountEndpoint:
		a, err := e.GetAccount(ctx, ep.ID)
		if err != nil {
			return nil, err
		}
		return &accountHolder{a: a}, nil
	case core.BudgetEndpoint:
		b, err := e.GetBudget(ctx, ep.ID)
		if err != nil {
			return nil, err
		}
		return &budgetHolder{b: b}, nil
	default:
		return nil, fmt.Errorf("unknown endpoint kind %q", ep.Kind)
	}
}

// ResolveGoal loads a savings goal as a stored-balance holder.
func ResolveGoal(ctx context.Context, e storage.Entities, id string) (MutableBalanceHolder, error) {
	g, err := e.GetSavingsGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	return &goalHolder{g: g}, nil
}

// BalanceOf returns the current balance of any holder, stored or derived.
func BalanceOf(ctx context.Context, e storage.Entities, h Holder) (decimal.Decimal, error) {
	switch v := h.(type) {
	case MutableBalanceHolder:
		return v.Balance(), nil
	case DerivedBalanceHolder:
		return v.ComputeBalance(ctx, e)
	default:
		return decimal.Zero, fmt.Errorf("holder %s has no balance", h.Key())
	}
}

// EndpointKey is the lock key of an account or budget.
func EndpointKey(ep core.Endpoint) string { return ep.String() }

// GoalKey is the lock key of a savings goal.
func GoalKey(id string) string { return "goal:" + id }

func transactionKey(id string) string { return "tx:" + id }
