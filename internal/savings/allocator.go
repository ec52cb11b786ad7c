// Package savings moves money from accounts into savings goals.
package savings

import (
	"context"
	"fmt"
	"time"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/ledger"
	"budgetbuddy/internal/locks"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Allocator struct {
	store  storage.Store
	locks  *locks.Keyed
	logger *log.Logger
	now    func() time.Time
	newID  func() string
}

// NewAllocator returns an Allocator. keyed must be the ledger's lock set so
// deposits serialize with transactions on the same account.
func NewAllocator(store storage.Store, keyed *locks.Keyed, logger *log.Logger) *Allocator {
	if logger == nil {
		logger = log.Discard()
	}
	return &Allocator{
		store:  store,
		locks:  keyed,
		logger: logger.WithComponent(log.ComponentSavings),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// DepositTitle is the title given to the transaction a deposit creates.
func DepositTitle(goalName string) string {
	return "Deposit to " + goalName
}

// Deposit debits amount from the account, credits the goal and records the
// linked expense, all in one unit of work. An empty accountID falls back to
// the goal's linked account.
func (a *Allocator) Deposit(ctx context.Context, goalID, accountID string, amount decimal.Decimal) (ledger.Result, error) {
	if !amount.IsPositive() {
		return ledger.Result{}, fmt.Errorf("deposit: %w", core.ErrInvalidAmount)
	}
	if accountID == "" {
		g, err := a.store.GetSavingsGoal(ctx, goalID)
		if err != nil {
			return ledger.Result{}, fmt.Errorf("deposit: %w", err)
		}
		if g.AccountID == "" {
			return ledger.Result{}, fmt.Errorf("deposit: %w", core.ErrMissingReference)
		}
		accountID = g.AccountID
	}

	accountEP := core.Endpoint{Kind: core.AccountEndpoint, ID: accountID}
	unlock := a.locks.Lock(ledger.EndpointKey(accountEP), ledger.GoalKey(goalID))
	defer unlock()

	var res ledger.Result
	err := a.store.Atomic(ctx, func(e storage.Entities) error {
		h, err := ledger.Resolve(ctx, e, accountEP)
		if err != nil {
			return err
		}
		account := h.(ledger.MutableBalanceHolder)
		goal, err := ledger.ResolveGoal(ctx, e, goalID)
		if err != nil {
			return err
		}

		if account.Balance().LessThan(amount) {
			return fmt.Errorf("%w: account %q has %s, needs %s",
				core.ErrInsufficientFunds, account.Name(), account.Balance().String(), amount.String())
		}

		tx := core.Transaction{
			ID:            a.newID(),
			Title:         DepositTitle(goal.Name()),
			Amount:        amount,
			Type:          core.Expense,
			Category:      core.SavingsCategory,
			Date:          a.now(),
			AccountID:     accountID,
			Fee:           decimal.Zero,
			SavingsGoalID: goalID,
		}
		if err := e.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		if _, err := account.Adjust(ctx, e, amount.Neg()); err != nil {
			return err
		}
		if _, err := goal.Adjust(ctx, e, amount); err != nil {
			return err
		}
		res = ledger.Result{Transaction: tx, Deltas: core.Booked(tx)}
		return nil
	})
	if err != nil {
		fields := log.NewFields().WithOperation(log.OpDeposit).WithAmount(amount).WithError(err)
		fields[log.FieldGoalID] = goalID
		fields[log.FieldAccountID] = accountID
		if core.Classify(err) == core.KindStorage {
			a.logger.ErrorContext(ctx, "Deposit failed", fields.ToSlice()...)
		} else {
			a.logger.InfoContext(ctx, "Deposit rejected", fields.ToSlice()...)
		}
		return ledger.Result{}, fmt.Errorf("deposit: %w", err)
	}

	a.logger.InfoContext(ctx, "Deposit recorded",
		log.NewFields().WithOperation(log.OpDeposit).WithTransaction(res.Transaction).ToSlice()...)
	return res, nil
}
