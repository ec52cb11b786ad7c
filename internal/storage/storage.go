package storage

import (
	"context"

	"budgetbuddy/internal/core"

	"github.com/shopspring/decimal"
)

// Entities is typed CRUD over the four record kinds. Every write touches a
// single row; cross-entity rules live in the ledger.
//
// Get* return an error wrapping core.ErrNotFound when the id does not resolve.
// Update*/Delete* on a missing id also return core.ErrNotFound.
type Entities interface {
	CreateAccount(ctx context.Context, a core.Account) error
	GetAccount(ctx context.Context, id string) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	UpdateAccount(ctx context.Context, a core.Account) error
	DeleteAccount(ctx context.Context, id string) error
	SetAccountBalance(ctx context.Context, id string, balance decimal.Decimal) error

	CreateBudget(ctx context.Context, b core.Budget) error
	GetBudget(ctx context.Context, id string) (core.Budget, error)
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	UpdateBudget(ctx context.Context, b core.Budget) error
	DeleteBudget(ctx context.Context, id string) error

	CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) error
	GetSavingsGoal(ctx context.Context, id string) (core.SavingsGoal, error)
	ListSavingsGoals(ctx context.Context) ([]core.SavingsGoal, error)
	UpdateSavingsGoal(ctx context.Context, g core.SavingsGoal) error
	DeleteSavingsGoal(ctx context.Context, id string) error
	SetSavingsGoalAmount(ctx context.Context, id string, current decimal.Decimal) error

	CreateTransaction(ctx context.Context, tx core.Transaction) error
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error

	// ListBudgetTransactions returns the transactions whose source or
	// destination is the budget.
	ListBudgetTransactions(ctx context.Context, budgetID string) ([]core.Transaction, error)
}

// Store is an Entities backend that can run a group of writes as one unit.
type Store interface {
	Entities

	// Atomic runs fn against a transactional view. If fn returns an error
	// nothing it wrote is visible; otherwise every write is committed together.
	Atomic(ctx context.Context, fn func(Entities) error) error

	Close() error
}

// SumSignedTransactionsForBudget is the derived balance of one budget: the
// signed sum of every transaction that references it. Transfer fees are not
// part of it.
func SumSignedTransactionsForBudget(ctx context.Context, e Entities, budgetID string) (decimal.Decimal, error) {
	txs, err := e.ListBudgetTransactions(ctx, budgetID)
	if err != nil {
		return decimal.Zero, err
	}
	ep := core.Endpoint{Kind: core.BudgetEndpoint, ID: budgetID}
	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(core.DeltaFor(tx, ep))
	}
	return sum, nil
}

// SumSignedTransactionsByBudget derives every budget balance in one pass over
// the transaction log. Budgets without transactions are absent from the map.
func SumSignedTransactionsByBudget(ctx context.Context, e Entities) (map[string]decimal.Decimal, error) {
	txs, err := e.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return SumByBudget(txs), nil
}

// SumByBudget folds already loaded transactions into per-budget balances.
func SumByBudget(txs []core.Transaction) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		for _, d := range core.Booked(tx) {
			if d.Endpoint.Kind != core.BudgetEndpoint {
				continue
			}
			sums[d.Endpoint.ID] = sums[d.Endpoint.ID].Add(d.Amount)
		}
	}
	return sums
}
