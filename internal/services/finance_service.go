// Package services is the entry point hosts call into. It wires the ledger,
// the savings allocator and the budget aggregator over one store, keeps a
// read-through cache of list views and publishes change events.
package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"budgetbuddy/internal/budget"
	"budgetbuddy/internal/cache"
	"budgetbuddy/internal/core"
	"budgetbuddy/internal/events"
	"budgetbuddy/internal/ledger"
	"budgetbuddy/internal/locks"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/savings"
	"budgetbuddy/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	keyAccounts     = "accounts"
	keyBudgets      = "budgets"
	keyGoals        = "goals"
	keyTransactions = "transactions"
)

// Default account created on an empty store.
const (
	DefaultAccountName = "Cash"
	DefaultAccountType = "cash"
	DefaultAccountIcon = "wallet"
)

// Options tunes the service. Zero values pick defaults.
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
}

// TransactionView is a transaction with its endpoint names resolved.
// Names of references that no longer exist read as core.UnknownName.
type TransactionView struct {
	core.Transaction
	SourceName      string
	DestinationName string
}

// Snapshot is the full state a host needs to redraw.
type Snapshot struct {
	Accounts     []core.Account
	Budgets      []core.Budget
	SavingsGoals []core.SavingsGoal
	Transactions []TransactionView
}

// FinanceService orchestrates ledger operations, entity management and
// change notification.
type FinanceService struct {
	store     storage.Store
	locks     *locks.Keyed
	ledger    *ledger.Ledger
	savings   *savings.Allocator
	budgets   *budget.Aggregator
	publisher events.Publisher
	logger    *log.Logger

	// Mutations hold inflight for reading; reads that combine several
	// queries hold it for writing so they never see half of a mutation.
	inflight sync.RWMutex

	views *cache.LRUCache[any]
	newID func() string
}

// NewFinanceService builds the service over store. publisher may be nil.
func NewFinanceService(store storage.Store, publisher events.Publisher, logger *log.Logger, opts Options) *FinanceService {
	if logger == nil {
		logger = log.Discard()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 16
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}

	keyed := locks.NewKeyed()
	return &FinanceService{
		store:     store,
		locks:     keyed,
		ledger:    ledger.New(store, keyed, logger),
		savings:   savings.NewAllocator(store, keyed, logger),
		budgets:   budget.NewAggregator(store, logger),
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentService),
		views:     cache.NewLRUCache[any](opts.CacheSize, opts.CacheTTL),
		newID:     uuid.NewString,
	}
}

// Cache exposes the view cache so a cache.Manager can expire it.
func (s *FinanceService) Cache() cache.Cleaner { return s.views }

// mutate runs fn as a mutation: gated against snapshot reads, followed by
// a cache purge when it succeeds.
func (s *FinanceService) mutate(fn func() error) error {
	s.inflight.RLock()
	err := fn()
	if err == nil {
		s.views.Purge()
	}
	s.inflight.RUnlock()
	return err
}

func (s *FinanceService) publish(ctx context.Context, ev events.LedgerEvent) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldEventKind, ev.Kind,
			log.FieldError, err)
	}
}

// RecordTransaction records a new income, expense or transfer.
func (s *FinanceService) RecordTransaction(ctx context.Context, intent core.Intent) (ledger.Result, error) {
	var res ledger.Result
	err := s.mutate(func() (err error) {
		res, err = s.ledger.Record(ctx, intent)
		return err
	})
	if err != nil {
		return ledger.Result{}, err
	}
	s.publish(ctx, events.FromResult(events.KindRecorded, res))
	return res, nil
}

// EditTransaction replaces the transaction stored under id.
func (s *FinanceService) EditTransaction(ctx context.Context, id string, intent core.Intent) (ledger.Result, error) {
	var res ledger.Result
	err := s.mutate(func() (err error) {
		res, err = s.ledger.Edit(ctx, id, intent)
		return err
	})
	if err != nil {
		return ledger.Result{}, err
	}
	s.publish(ctx, events.FromResult(events.KindEdited, res))
	return res, nil
}

// DeleteTransaction removes a transaction and reverts its effect. The
// result carries warnings for balances the revert drove negative.
func (s *FinanceService) DeleteTransaction(ctx context.Context, id string) (ledger.Result, error) {
	var res ledger.Result
	err := s.mutate(func() (err error) {
		res, err = s.ledger.Delete(ctx, id)
		return err
	})
	if err != nil {
		return ledger.Result{}, err
	}
	s.publish(ctx, events.FromResult(events.KindDeleted, res))
	return res, nil
}

// Deposit moves amount from an account into a savings goal. An empty
// accountID falls back to the goal's linked account.
func (s *FinanceService) Deposit(ctx context.Context, goalID, accountID string, amount decimal.Decimal) (ledger.Result, error) {
	var res ledger.Result
	err := s.mutate(func() (err error) {
		res, err = s.savings.Deposit(ctx, goalID, accountID, amount)
		return err
	})
	if err != nil {
		return ledger.Result{}, err
	}
	s.publish(ctx, events.FromResult(events.KindDeposited, res))
	return res, nil
}

// BudgetBalance is the derived balance of one budget.
func (s *FinanceService) BudgetBalance(ctx context.Context, budgetID string) (decimal.Decimal, error) {
	return s.budgets.ComputeBalance(ctx, budgetID)
}

func (s *FinanceService) Transaction(ctx context.Context, id string) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// SeedDefaultAccount creates the Cash account when no account exists yet.
func (s *FinanceService) SeedDefaultAccount(ctx context.Context) (bool, error) {
	var created core.Account
	err := s.mutate(func() error {
		return s.store.Atomic(ctx, func(e storage.Entities) error {
			accounts, err := e.ListAccounts(ctx)
			if err != nil {
				return err
			}
			if len(accounts) > 0 {
				return nil
			}
			created = core.Account{
				ID:       s.newID(),
				Name:     DefaultAccountName,
				Type:     DefaultAccountType,
				IconName: DefaultAccountIcon,
				Balance:  decimal.Zero,
			}
			return e.CreateAccount(ctx, created)
		})
	})
	if err != nil {
		return false, fmt.Errorf("seed default account: %w", err)
	}
	if created.ID == "" {
		return false, nil
	}
	s.logger.InfoContext(ctx, "Seeded default account",
		log.FieldOperation, log.OpSeed,
		log.FieldAccountID, created.ID)
	s.publish(ctx, events.EntityChanged(EntityAccount, created.ID))
	return true, nil
}

// Summary totals stored balances over a consistent snapshot.
func (s *FinanceService) Summary(ctx context.Context) (core.Summary, error) {
	s.inflight.Lock()
	defer s.inflight.Unlock()

	accounts, err := s.accounts(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	goals, err := s.goals(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(accounts, goals), nil
}

// RefreshAll reloads every list. The four reads run concurrently once
// in-flight mutations have drained.
func (s *FinanceService) RefreshAll(ctx context.Context) (Snapshot, error) {
	s.inflight.Lock()
	defer s.inflight.Unlock()

	start := time.Now()
	gen := s.views.Generation()

	var (
		accounts []core.Account
		budgets  []core.Budget
		goals    []core.SavingsGoal
		txs      []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		accounts, err = s.store.ListAccounts(gctx)
		return wrap("list accounts", err)
	})
	g.Go(func() (err error) {
		budgets, err = s.store.ListBudgets(gctx)
		return wrap("list budgets", err)
	})
	g.Go(func() (err error) {
		goals, err = s.store.ListSavingsGoals(gctx)
		return wrap("list savings goals", err)
	})
	g.Go(func() (err error) {
		txs, err = s.store.ListTransactions(gctx)
		return wrap("list transactions", err)
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Refresh failed",
			log.FieldOperation, log.OpRefresh,
			log.FieldError, err)
		return Snapshot{}, fmt.Errorf("refresh all: %w", err)
	}

	snap := Snapshot{
		Accounts:     accounts,
		Budgets:      budget.Annotate(budgets, txs),
		SavingsGoals: goals,
		Transactions: resolveNames(txs, accounts, budgets),
	}
	s.views.SetIfCurrent(keyAccounts, snap.Accounts, gen)
	s.views.SetIfCurrent(keyBudgets, snap.Budgets, gen)
	s.views.SetIfCurrent(keyGoals, snap.SavingsGoals, gen)
	s.views.SetIfCurrent(keyTransactions, snap.Transactions, gen)

	s.logger.DebugContext(ctx, "Refreshed all views",
		log.FieldOperation, log.OpRefresh,
		log.FieldDuration, time.Since(start).Milliseconds())
	return cloneSnapshot(snap), nil
}

// RefreshAccounts returns every account.
func (s *FinanceService) RefreshAccounts(ctx context.Context) ([]core.Account, error) {
	out, err := s.accounts(ctx)
	return slices.Clone(out), err
}

// RefreshSavingsGoals returns every savings goal.
func (s *FinanceService) RefreshSavingsGoals(ctx context.Context) ([]core.SavingsGoal, error) {
	out, err := s.goals(ctx)
	return slices.Clone(out), err
}

// RefreshBudgets returns every budget with its derived balance.
func (s *FinanceService) RefreshBudgets(ctx context.Context) ([]core.Budget, error) {
	s.inflight.Lock()
	defer s.inflight.Unlock()
	out, err := cached(s, keyBudgets, func() ([]core.Budget, error) {
		return s.budgets.ListWithBalances(ctx)
	})
	return cloneBudgets(out), err
}

// RefreshTransactions returns every transaction, newest first, with
// endpoint names resolved.
func (s *FinanceService) RefreshTransactions(ctx context.Context) ([]TransactionView, error) {
	s.inflight.Lock()
	defer s.inflight.Unlock()
	out, err := cached(s, keyTransactions, func() ([]TransactionView, error) {
		txs, err := s.store.ListTransactions(ctx)
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		accounts, err := s.store.ListAccounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		budgets, err := s.store.ListBudgets(ctx)
		if err != nil {
			return nil, fmt.Errorf("list budgets: %w", err)
		}
		return resolveNames(txs, accounts, budgets), nil
	})
	return slices.Clone(out), err
}

func (s *FinanceService) accounts(ctx context.Context) ([]core.Account, error) {
	return cached(s, keyAccounts, func() ([]core.Account, error) {
		out, err := s.store.ListAccounts(ctx)
		return out, wrap("list accounts", err)
	})
}

func (s *FinanceService) goals(ctx context.Context) ([]core.SavingsGoal, error) {
	return cached(s, keyGoals, func() ([]core.SavingsGoal, error) {
		out, err := s.store.ListSavingsGoals(ctx)
		return out, wrap("list savings goals", err)
	})
}

// cached returns the view stored under key or loads and stores it. A load
// that overlaps a purge is returned but not stored.
func cached[T any](s *FinanceService, key string, load func() (T, error)) (T, error) {
	if v, ok := s.views.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	gen := s.views.Generation()
	v, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	s.views.SetIfCurrent(key, v, gen)
	return v, nil
}

func resolveNames(txs []core.Transaction, accounts []core.Account, budgets []core.Budget) []TransactionView {
	names := make(map[core.Endpoint]string, len(accounts)+len(budgets))
	for _, a := range accounts {
		names[core.Endpoint{Kind: core.AccountEndpoint, ID: a.ID}] = a.Name
	}
	for _, b := range budgets {
		names[core.Endpoint{Kind: core.BudgetEndpoint, ID: b.ID}] = b.Title
	}
	name := func(ep core.Endpoint, ok bool) string {
		if !ok {
			return ""
		}
		if n, found := names[ep]; found {
			return n
		}
		return core.UnknownName
	}

	out := make([]TransactionView, len(txs))
	for i, tx := range txs {
		out[i] = TransactionView{
			Transaction:     tx,
			SourceName:      name(tx.Source()),
			DestinationName: name(tx.Destination()),
		}
	}
	return out
}

func cloneSnapshot(s Snapshot) Snapshot {
	return Snapshot{
		Accounts:     slices.Clone(s.Accounts),
		Budgets:      cloneBudgets(s.Budgets),
		SavingsGoals: slices.Clone(s.SavingsGoals),
		Transactions: slices.Clone(s.Transactions),
	}
}

// cloneBudgets copies AccountIDs too, so callers cannot reach cached state.
func cloneBudgets(in []core.Budget) []core.Budget {
	out := slices.Clone(in)
	for i := range out {
		out[i].AccountIDs = slices.Clone(out[i].AccountIDs)
	}
	return out
}

func wrap(msg string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Close closes the publisher and the store.
func (s *FinanceService) Close() error {
	var errs []error
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close finance service: %w", err)
	}
	return nil
}

func trimmed(s string) string { return strings.TrimSpace(s) }
