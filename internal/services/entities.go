package services

import (
	"context"
	"fmt"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/events"
	"budgetbuddy/internal/ledger"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/storage"

	"github.com/shopspring/decimal"
)

// Entity names used in change events.
const (
	EntityAccount     = "account"
	EntityBudget      = "budget"
	EntitySavingsGoal = "savings_goal"
)

// CreateAccount stores a new account. Balance is the opening balance; after
// creation it only moves through transactions.
func (s *FinanceService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.Name = trimmed(a.Name)
	a.Type = trimmed(a.Type)
	if err := a.Validate(); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	if a.ID == "" {
		a.ID = s.newID()
	}
	if err := s.mutate(func() error { return s.store.CreateAccount(ctx, a) }); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	s.entityChanged(ctx, log.OpCreate, EntityAccount, a.ID)
	return a, nil
}

// UpdateAccount changes name, type and icon. The stored balance is kept.
func (s *FinanceService) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.Name = trimmed(a.Name)
	a.Type = trimmed(a.Type)
	if err := a.Validate(); err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}

	var updated core.Account
	err := s.mutate(func() error {
		unlock := s.locks.Lock(accountKey(a.ID))
		defer unlock()
		return s.store.Atomic(ctx, func(e storage.Entities) error {
			if err := e.UpdateAccount(ctx, a); err != nil {
				return err
			}
			var err error
			updated, err = e.GetAccount(ctx, a.ID)
			return err
		})
	})
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	s.entityChanged(ctx, log.OpUpdate, EntityAccount, a.ID)
	return updated, nil
}

// DeleteAccount removes the account. Its transactions stay and their
// account reference dangles.
func (s *FinanceService) DeleteAccount(ctx context.Context, id string) error {
	err := s.mutate(func() error {
		unlock := s.locks.Lock(accountKey(id))
		defer unlock()
		return s.store.DeleteAccount(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.entityChanged(ctx, log.OpDelete, EntityAccount, id)
	return nil
}

func (s *FinanceService) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.Title = trimmed(b.Title)
	b.Category = trimmed(b.Category)
	if err := b.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	if b.ID == "" {
		b.ID = s.newID()
	}
	if err := s.mutate(func() error { return s.store.CreateBudget(ctx, b) }); err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	s.entityChanged(ctx, log.OpCreate, EntityBudget, b.ID)
	return b, nil
}

func (s *FinanceService) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.Title = trimmed(b.Title)
	b.Category = trimmed(b.Category)
	if err := b.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}

	err := s.mutate(func() error {
		unlock := s.locks.Lock(budgetKey(b.ID))
		defer unlock()
		return s.store.UpdateBudget(ctx, b)
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	s.entityChanged(ctx, log.OpUpdate, EntityBudget, b.ID)

	bal, err := s.budgets.ComputeBalance(ctx, b.ID)
	if err != nil {
		return core.Budget{}, err
	}
	b.Balance = bal
	return b, nil
}

// DeleteBudget removes the budget. Transactions that referenced it are kept.
func (s *FinanceService) DeleteBudget(ctx context.Context, id string) error {
	err := s.mutate(func() error {
		unlock := s.locks.Lock(budgetKey(id))
		defer unlock()
		return s.store.DeleteBudget(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	s.entityChanged(ctx, log.OpDelete, EntityBudget, id)
	return nil
}

// CreateSavingsGoal stores a new goal. CurrentAmount starts at zero.
func (s *FinanceService) CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	g.Name = trimmed(g.Name)
	g.Reason = trimmed(g.Reason)
	g.CurrentAmount = decimal.Zero
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("create savings goal: %w", err)
	}
	if g.ID == "" {
		g.ID = s.newID()
	}
	if err := s.mutate(func() error { return s.store.CreateSavingsGoal(ctx, g) }); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("create savings goal: %w", err)
	}
	s.entityChanged(ctx, log.OpCreate, EntitySavingsGoal, g.ID)
	return g, nil
}

// UpdateSavingsGoal changes the goal's description. CurrentAmount is kept.
func (s *FinanceService) UpdateSavingsGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	g.Name = trimmed(g.Name)
	g.Reason = trimmed(g.Reason)
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("update savings goal: %w", err)
	}

	var updated core.SavingsGoal
	err := s.mutate(func() error {
		unlock := s.locks.Lock(ledger.GoalKey(g.ID))
		defer unlock()
		return s.store.Atomic(ctx, func(e storage.Entities) error {
			if err := e.UpdateSavingsGoal(ctx, g); err != nil {
				return err
			}
			var err error
			updated, err = e.GetSavingsGoal(ctx, g.ID)
			return err
		})
	})
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("update savings goal: %w", err)
	}
	s.entityChanged(ctx, log.OpUpdate, EntitySavingsGoal, g.ID)
	return updated, nil
}

func (s *FinanceService) DeleteSavingsGoal(ctx context.Context, id string) error {
	err := s.mutate(func() error {
		unlock := s.locks.Lock(ledger.GoalKey(id))
		defer unlock()
		return s.store.DeleteSavingsGoal(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete savings goal: %w", err)
	}
	s.entityChanged(ctx, log.OpDelete, EntitySavingsGoal, id)
	return nil
}

func (s *FinanceService) entityChanged(ctx context.Context, op, entity, id string) {
	s.logger.InfoContext(ctx, "Entity changed",
		log.FieldOperation, op,
		"entity", entity,
		"entity_id", id)
	s.publish(ctx, events.EntityChanged(entity, id))
}

func accountKey(id string) string {
	return ledger.EndpointKey(core.Endpoint{Kind: core.AccountEndpoint, ID: id})
}

func budgetKey(id string) string {
	return ledger.EndpointKey(core.Endpoint{Kind: core.BudgetEndpoint, ID: id})
}
