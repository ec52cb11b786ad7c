// Package memory is an in-process storage.Store for tests and the memory
// backend. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/storage"

	"github.com/shopspring/decimal"
)

type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

// Atomic hands fn a private copy of the data and swaps it in on success.
// Other callers wait until fn returns.
func (s *Store) Atomic(_ context.Context, fn func(storage.Entities) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) with(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *Store) CreateAccount(ctx context.Context, a core.Account) error {
	return s.with(func(st *state) error { return st.CreateAccount(ctx, a) })
}

func (s *Store) GetAccount(ctx context.Context, id string) (a core.Account, err error) {
	err = s.with(func(st *state) error { a, err = st.GetAccount(ctx, id); return err })
	return a, err
}

func (s *Store) ListAccounts(ctx context.Context) (out []core.Account, err error) {
	err = s.with(func(st *state) error { out, err = st.ListAccounts(ctx); return err })
	return out, err
}

func (s *Store) UpdateAccount(ctx context.Context, a core.Account) error {
	return s.with(func(st *state) error { return st.UpdateAccount(ctx, a) })
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	return s.with(func(st *state) error { return st.DeleteAccount(ctx, id) })
}

func (s *Store) SetAccountBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	return s.with(func(st *state) error { return st.SetAccountBalance(ctx, id, balance) })
}

func (s *Store) CreateBudget(ctx context.Context, b core.Budget) error {
	return s.with(func(st *state) error { return st.CreateBudget(ctx, b) })
}

func (s *Store) GetBudget(ctx context.Context, id string) (b core.Budget, err error) {
	err = s.with(func(st *state) error { b, err = st.GetBudget(ctx, id); return err })
	return b, err
}

func (s *Store) ListBudgets(ctx context.Context) (out []core.Budget, err error) {
	err = s.with(func(st *state) error { out, err = st.ListBudgets(ctx); return err })
	return out, err
}

func (s *Store) UpdateBudget(ctx context.Context, b core.Budget) error {
	return s.with(func(st *state) error { return st.UpdateBudget(ctx, b) })
}

func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	return s.with(func(st *state) error { return st.DeleteBudget(ctx, id) })
}

func (s *Store) CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) error {
	return s.with(func(st *state) error { return st.CreateSavingsGoal(ctx, g) })
}

func (s *Store) GetSavingsGoal(ctx context.Context, id string) (g core.SavingsGoal, err error) {
	err = s.with(func(st *state) error { g, err = st.GetSavingsGoal(ctx, id); return err })
	return g, err
}

func (s *Store) ListSavingsGoals(ctx context.Context) (out []core.SavingsGoal, err error) {
	err = s.with(func(st *state) error { out, err = st.ListSavingsGoals(ctx); return err })
	return out, err
}

func (s *Store) UpdateSavingsGoal(ctx context.Context, g core.SavingsGoal) error {
	return s.with(func(st *state) error { return st.UpdateSavingsGoal(ctx, g) })
}

func (s *Store) DeleteSavingsGoal(ctx context.Context, id string) error {
	return s.with(func(st *state) error { return st.DeleteSavingsGoal(ctx, id) })
}

func (s *Store) SetSavingsGoalAmount(ctx context.Context, id string, current decimal.Decimal) error {
	return s.with(func(st *state) error { return st.SetSavingsGoalAmount(ctx, id, current) })
}

func (s *Store) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	return s.with(func(st *state) error { return st.CreateTransaction(ctx, tx) })
}

func (s *Store) GetTransaction(ctx context.Context, id string) (tx core.Transaction, err error) {
	err = s.with(func(st *state) error { tx, err = st.GetTransaction(ctx, id); return err })
	return tx, err
}

func (s *Store) ListTransactions(ctx context.Context) (out []core.Transaction, err error) {
	err = s.with(func(st *state) error { out, err = st.ListTransactions(ctx); return err })
	return out, err
}

func (s *Store) ListBudgetTransactions(ctx context.Context, budgetID string) (out []core.Transaction, err error) {
	err = s.with(func(st *state) error { out, err = st.ListBudgetTransactions(ctx, budgetID); return err })
	return out, err
}

func (s *Store) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	return s.with(func(st *state) error { return st.UpdateTransaction(ctx, tx) })
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	return s.with(func(st *state) error { return st.DeleteTransaction(ctx, id) })
}

var _ storage.Store = (*Store)(nil)

// state is the unlocked data set. It implements storage.Entities directly so
// Atomic can hand out a copy.
type state struct {
	accounts map[string]core.Account
	budgets  map[string]core.Budget
	goals    map[string]core.SavingsGoal
	txs      map[string]core.Transaction
}

func newState() *state {
	return &state{
		accounts: map[string]core.Account{},
		budgets:  map[string]core.Budget{},
		goals:    map[string]core.SavingsGoal{},
		txs:      map[string]core.Transaction{},
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.budgets {
		v.AccountIDs = append([]string(nil), v.AccountIDs...)
		c.budgets[k] = v
	}
	for k, v := range st.goals {
		c.goals[k] = v
	}
	for k, v := range st.txs {
		c.txs[k] = v
	}
	return c
}

func (st *state) CreateAccount(_ context.Context, a core.Account) error {
	if _, ok := st.accounts[a.ID]; ok {
		return errDuplicate("account", a.ID)
	}
	st.accounts[a.ID] = a
	return nil
}

func (st *state) GetAccount(_ context.Context, id string) (core.Account, error) {
	a, ok := st.accounts[id]
	if !ok {
		return core.Account{}, core.NotFound("account", id)
	}
	return a, nil
}

func (st *state) ListAccounts(_ context.Context) ([]core.Account, error) {
	out := make([]core.Account, 0, len(st.accounts))
	for _, a := range st.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (st *state) UpdateAccount(_ context.Context, a core.Account) error {
	cur, ok := st.accounts[a.ID]
	if !ok {
		return core.NotFound("account", a.ID)
	}
	a.Balance = cur.Balance
	st.accounts[a.ID] = a
	return nil
}

func (st *state) DeleteAccount(_ context.Context, id string) error {
	if _, ok := st.accounts[id]; !ok {
		return core.NotFound("account", id)
	}
	delete(st.accounts, id)
	return nil
}

func (st *state) SetAccountBalance(_ context.Context, id string, balance decimal.Decimal) error {
	a, ok := st.accounts[id]
	if !ok {
		return core.NotFound("account", id)
	}
	a.Balance = balance
	st.accounts[id] = a
	return nil
}

func (st *state) CreateBudget(_ context.Context, b core.Budget) error {
	if _, ok := st.budgets[b.ID]; ok {
		return errDuplicate("budget", b.ID)
	}
	b.AccountIDs = append([]string(nil), b.AccountIDs...)
	b.Balance = decimal.Zero
	st.budgets[b.ID] = b
	return nil
}

func (st *state) GetBudget(_ context.Context, id string) (core.Budget, error) {
	b, ok := st.budgets[id]
	if !ok {
		return core.Budget{}, core.NotFound("budget", id)
	}
	b.AccountIDs = append([]string(nil), b.AccountIDs...)
	return b, nil
}

func (st *state) ListBudgets(_ context.Context) ([]core.Budget, error) {
	out := make([]core.Budget, 0, len(st.budgets))
	for _, b := range st.budgets {
		b.AccountIDs = append([]string(nil), b.AccountIDs...)
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (st *state) UpdateBudget(_ context.Context, b core.Budget) error {
	if _, ok := st.budgets[b.ID]; !ok {
		return core.NotFound("budget", b.ID)
	}
	b.AccountIDs = append([]string(nil), b.AccountIDs...)
	b.Balance = decimal.Zero
	st.budgets[b.ID] = b
	return nil
}

func (st *state) DeleteBudget(_ context.Context, id string) error {
	if _, ok := st.budgets[id]; !ok {
		return core.NotFound("budget", id)
	}
	delete(st.budgets, id)
	return nil
}

func (st *state) CreateSavingsGoal(_ context.Context, g core.SavingsGoal) error {
	if _, ok := st.goals[g.ID]; ok {
		return errDuplicate("savings goal", g.ID)
	}
	st.goals[g.ID] = g
	return nil
}

func (st *state) GetSavingsGoal(_ context.Context, id string) (core.SavingsGoal, error) {
	g, ok := st.goals[id]
	if !ok {
		return core.SavingsGoal{}, core.NotFound("savings goal", id)
	}
	return g, nil
}

func (st *state) ListSavingsGoals(_ context.Context) ([]core.SavingsGoal, error) {
	out := make([]core.SavingsGoal, 0, len(st.goals))
	for _, g := range st.goals {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (st *state) UpdateSavingsGoal(_ context.Context, g core.SavingsGoal) error {
	cur, ok := st.goals[g.ID]
	if !ok {
		return core.NotFound("savings goal", g.ID)
	}
	g.CurrentAmount = cur.CurrentAmount
	st.goals[g.ID] = g
	return nil
}

func (st *state) DeleteSavingsGoal(_ context.Context, id string) error {
	if _, ok := st.goals[id]; !ok {
		return core.NotFound("savings goal", id)
	}
	delete(st.goals, id)
	return nil
}

func (st *state) SetSavingsGoalAmount(_ context.Context, id string, current decimal.Decimal) error {
	g, ok := st.goals[id]
	if !ok {
		return core.NotFound("savings goal", id)
	}
	g.CurrentAmount = current
	st.goals[id] = g
	return nil
}

func (st *state) CreateTransaction(_ context.Context, tx core.Transaction) error {
	if _, ok := st.txs[tx.ID]; ok {
		return errDuplicate("transaction", tx.ID)
	}
	st.txs[tx.ID] = tx
	return nil
}

func (st *state) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	tx, ok := st.txs[id]
	if !ok {
		return core.Transaction{}, core.NotFound("transaction", id)
	}
	return tx, nil
}

func (st *state) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	return st.filter(func(core.Transaction) bool { return true }), nil
}

func (st *state) ListBudgetTransactions(_ context.Context, budgetID string) ([]core.Transaction, error) {
	return st.filter(func(tx core.Transaction) bool {
		return tx.BudgetID == budgetID || (tx.Type == core.Transfer && tx.ToBudgetID == budgetID)
	}), nil
}

func (st *state) filter(keep func(core.Transaction) bool) []core.Transaction {
	var out []core.Transaction
	for _, tx := range st.txs {
		if keep(tx) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (st *state) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	cur, ok := st.txs[tx.ID]
	if !ok {
		return core.NotFound("transaction", tx.ID)
	}
	tx.SavingsGoalID = cur.SavingsGoalID
	st.txs[tx.ID] = tx
	return nil
}

func (st *state) DeleteTransaction(_ context.Context, id string) error {
	if _, ok := st.txs[id]; !ok {
		return core.NotFound("transaction", id)
	}
	delete(st.txs, id)
	return nil
}

var _ storage.Entities = (*state)(nil)

func errDuplicate(entity, id string) error {
	return fmt.Errorf("%s %q already exists", entity, id)
}
