// Package budget derives budget balances from the transaction log.
package budget

import (
	"context"
	"fmt"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/storage"

	"github.com/shopspring/decimal"
)

// Aggregator computes budget balances on demand. It keeps no state of its
// own, so its results can never go stale.
type Aggregator struct {
	store  storage.Entities
	logger *log.Logger
}

func NewAggregator(store storage.Entities, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = log.Discard()
	}
	return &Aggregator{store: store, logger: logger.WithComponent(log.ComponentBudget)}
}

// ComputeBalance returns the signed sum of every transaction whose source or
// transfer destination is the budget: income adds, expense and outgoing
// transfers (amount plus fee) subtract, incoming transfers add.
func (a *Aggregator) ComputeBalance(ctx context.Context, budgetID string) (decimal.Decimal, error) {
	if _, err := a.store.GetBudget(ctx, budgetID); err != nil {
		return decimal.Zero, fmt.Errorf("compute budget balance: %w", err)
	}
	sum, err := storage.SumSignedTransactionsForBudget(ctx, a.store, budgetID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("compute budget balance: %w", err)
	}
	a.logger.DebugContext(ctx, "Budget balance computed", log.FieldBudgetID, budgetID, log.FieldBalance, sum.String())
	return sum, nil
}

// ComputeAll derives the balance of every budget in one pass. Budgets without
// transactions are reported as zero; sums for budgets that no longer exist
// are dropped.
func (a *Aggregator) ComputeAll(ctx context.Context) (map[string]decimal.Decimal, error) {
	budgets, err := a.store.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	sums, err := storage.SumSignedTransactionsByBudget(ctx, a.store)
	if err != nil {
		return nil, fmt.Errorf("sum budget transactions: %w", err)
	}
	out := make(map[string]decimal.Decimal, len(budgets))
	for _, b := range budgets {
		out[b.ID] = sums[b.ID]
	}
	return out, nil
}

// ListWithBalances returns every budget with Balance filled in.
func (a *Aggregator) ListWithBalances(ctx context.Context) ([]core.Budget, error) {
	budgets, err := a.store.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	txs, err := a.store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return Annotate(budgets, txs), nil
}

// Annotate fills Balance on each budget from already loaded transactions.
func Annotate(budgets []core.Budget, txs []core.Transaction) []core.Budget {
	sums := storage.SumByBudget(txs)
	out := make([]core.Budget, len(budgets))
	for i, b := range budgets {
		b.Balance = sums[b.ID]
		out[i] = b
	}
	return out
}
