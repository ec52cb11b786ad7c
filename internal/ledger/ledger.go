// Package ledger keeps account balances consistent with the transaction log.
//
// Every mutating operation runs as one storage unit of work: the transaction
// row and every stored balance it touches commit together or not at all.
// Budgets carry no stored balance; their balance is the signed sum of the
// transactions that reference them and needs no write here.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/locks"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger records, edits and deletes transactions.
type Ledger struct {
	store  storage.Store
	locks  *locks.Keyed
	logger *log.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Ledger)

// WithClock overrides the time source used for undated transactions.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator overrides transaction id assignment.
func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) { l.newID = newID }
}

// New returns a Ledger over store. keyed must be shared with every other
// component that mutates balances (the savings allocator).
func New(store storage.Store, keyed *locks.Keyed, logger *log.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = log.Discard()
	}
	l := &Ledger{
		store:  store,
		locks:  keyed,
		logger: logger.WithComponent(log.ComponentLedger),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Warning reports a condition that did not block the operation.
type Warning struct {
	Key     string
	Message string
}

func (w Warning) String() string { return w.Key + ": " + w.Message }

// Result describes a committed operation.
type Result struct {
	Transaction core.Transaction
	// Deltas are the net signed changes per endpoint, including budgets.
	Deltas   []core.Delta
	Warnings []Warning
}

// Touched lists the lock keys of every endpoint the operation changed.
func (r Result) Touched() []string {
	out := make([]string, 0, len(r.Deltas))
	for _, d := range r.Deltas {
		out = append(out, EndpointKey(d.Endpoint))
	}
	return out
}

// Record validates intent, checks sufficiency and persists a new transaction
// together with the balance changes it implies.
func (l *Ledger) Record(ctx context.Context, intent core.Intent) (Result, error) {
	intent = intent.Normalized()
	if err := intent.Validate(); err != nil {
		return Result{}, fmt.Errorf("record transaction: %w", err)
	}

	date := intent.Date
	if date.IsZero() {
		date = l.now()
	}
	tx := intent.Apply(core.Transaction{ID: l.newID(), Date: date})

	unlock := l.locks.Lock(endpointKeys(tx)...)
	defer unlock()

	var res Result
	err := l.store.Atomic(ctx, func(e storage.Entities) error {
		holders, err := resolveAll(ctx, e, tx.Endpoints())
		if err != nil {
			return err
		}
		if tx.Type == core.Transfer && tx.Title == "" {
			src, _ := tx.Source()
			dst, _ := tx.Destination()
			tx.Title = core.TransferTitle(holders[src].Name(), holders[dst].Name(), tx.Fee)
		}

		if err := checkSufficiency(ctx, e, holders, core.Net(core.Effect(tx))); err != nil {
			return err
		}
		deltas := core.Net(core.Booked(tx))
		if err := e.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		if _, err := applyStored(ctx, e, holders, deltas); err != nil {
			return err
		}
		res = Result{Transaction: tx, Deltas: deltas}
		return nil
	})
	if err != nil {
		l.logFailure(ctx, log.OpRecord, tx, err)
		return Result{}, fmt.Errorf("record transaction: %w", err)
	}

	l.logger.InfoContext(ctx, "Transaction recorded",
		log.NewFields().WithOperation(log.OpRecord).WithTransaction(res.Transaction).ToSlice()...)
	return res, nil
}

// Edit replaces the transaction with id by intent. The old effect is reverted
// and the new one applied in the same unit of work, so a rejected edit leaves
// balances untouched. The original date is kept unless intent sets one.
func (l *Ledger) Edit(ctx context.Context, id string, intent core.Intent) (Result, error) {
	intent = intent.Normalized()
	if err := intent.Validate(); err != nil {
		return Result{}, fmt.Errorf("edit transaction: %w", err)
	}

	unlockTx := l.locks.Lock(transactionKey(id))
	defer unlockTx()

	old, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		return Result{}, fmt.Errorf("edit transaction: %w", err)
	}
	if old.IsDeposit() {
		return Result{}, fmt.Errorf("edit transaction: %w", core.ErrLinkedTransaction)
	}
	updated := intent.Apply(old)

	unlock := l.locks.Lock(append(endpointKeys(old), endpointKeys(updated)...)...)
	defer unlock()

	var res Result
	err = l.store.Atomic(ctx, func(e storage.Entities) error {
		// the new side must resolve in full
		holders, err := resolveAll(ctx, e, updated.Endpoints())
		if err != nil {
			return err
		}
		// the old side may point at entities deleted since
		warnings, err := resolveExisting(ctx, e, old.Endpoints(), holders)
		if err != nil {
			return err
		}
		if updated.Type == core.Transfer && updated.Title == "" {
			src, _ := updated.Source()
			dst, _ := updated.Destination()
			updated.Title = core.TransferTitle(holders[src].Name(), holders[dst].Name(), updated.Fee)
		}

		revert := core.Inverse(onlyResolved(core.Booked(old), holders))
		if err := checkSufficiency(ctx, e, holders, core.Net(revert, core.Effect(updated))); err != nil {
			return err
		}
		deltas := core.Net(revert, core.Booked(updated))
		if err := e.UpdateTransaction(ctx, updated); err != nil {
			return err
		}
		if _, err := applyStored(ctx, e, holders, deltas); err != nil {
			return err
		}
		res = Result{Transaction: updated, Deltas: deltas, Warnings: warnings}
		return nil
	})
	if err != nil {
		l.logFailure(ctx, log.OpEdit, updated, err)
		return Result{}, fmt.Errorf("edit transaction: %w", err)
	}

	l.logger.InfoContext(ctx, "Transaction edited",
		log.NewFields().WithOperation(log.OpEdit).WithTransaction(res.Transaction).ToSlice()...)
	l.logWarnings(ctx, log.OpEdit, res)
	return res, nil
}

// Delete removes the transaction with id and reverts its effect. The revert
// is applied even when it leaves a balance negative, stored or derived; that
// case, and endpoints that no longer exist, come back as warnings.
func (l *Ledger) Delete(ctx context.Context, id string) (Result, error) {
	unlockTx := l.locks.Lock(transactionKey(id))
	defer unlockTx()

	old, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		return Result{}, fmt.Errorf("delete transaction: %w", err)
	}

	keys := endpointKeys(old)
	if old.IsDeposit() {
		keys = append(keys, GoalKey(old.SavingsGoalID))
	}
	unlock := l.locks.Lock(keys...)
	defer unlock()

	var res Result
	err = l.store.Atomic(ctx, func(e storage.Entities) error {
		holders := map[core.Endpoint]Holder{}
		warnings, err := resolveExisting(ctx, e, old.Endpoints(), holders)
		if err != nil {
			return err
		}

		deltas := core.Net(core.Inverse(onlyResolved(core.Booked(old), holders)))
		if err := e.DeleteTransaction(ctx, old.ID); err != nil {
			return err
		}
		negative, err := applyStored(ctx, e, holders, deltas)
		if err != nil {
			return err
		}
		warnings = append(warnings, negative...)
		negative, err = checkDerived(ctx, e, holders, deltas)
		if err != nil {
			return err
		}
		warnings = append(warnings, negative...)

		if old.IsDeposit() {
			w, err := revertDeposit(ctx, e, old)
			if err != nil {
				return err
			}
			warnings = append(warnings, w...)
		}

		res = Result{Transaction: old, Deltas: deltas, Warnings: warnings}
		return nil
	})
	if err != nil {
		l.logFailure(ctx, log.OpDelete, old, err)
		return Result{}, fmt.Errorf("delete transaction: %w", err)
	}

	l.logger.InfoContext(ctx, "Transaction deleted",
		log.NewFields().WithOperation(log.OpDelete).WithTransaction(res.Transaction).ToSlice()...)
	l.logWarnings(ctx, log.OpDelete, res)
	return res, nil
}

// revertDeposit takes a deleted deposit back out of its savings goal.
func revertDeposit(ctx context.Context, e storage.Entities, tx core.Transaction) ([]Warning, error) {
	goal, err := ResolveGoal(ctx, e, tx.SavingsGoalID)
	if errors.Is(err, core.ErrNotFound) {
		return []Warning{{Key: GoalKey(tx.SavingsGoalID), Message: "savings goal no longer exists, nothing to revert"}}, nil
	}
	if err != nil {
		return nil, err
	}
	next, err := goal.Adjust(ctx, e, tx.Amount.Neg())
	if err != nil {
		return nil, err
	}
	if next.IsNegative() {
		return []Warning{negativeWarning(goal.Key(), next)}, nil
	}
	return nil, nil
}

func endpointKeys(tx core.Transaction) []string {
	eps := tx.Endpoints()
	keys := make([]string, 0, len(eps))
	for _, ep := range eps {
		keys = append(keys, EndpointKey(ep))
	}
	return keys
}

func resolveAll(ctx context.Context, e storage.Entities, eps []core.Endpoint) (map[core.Endpoint]Holder, error) {
	holders := make(map[core.Endpoint]Holder, len(eps))
	for _, ep := range eps {
		h, err := Resolve(ctx, e, ep)
		if err != nil {
			return nil, err
		}
		holders[ep] = h
	}
	return holders, nil
}

// resolveExisting adds the endpoints that still exist to holders and returns
// a warning for each one that does not.
func resolveExisting(ctx context.Context, e storage.Entities, eps []core.Endpoint, holders map[core.Endpoint]Holder) ([]Warning, error) {
	var warnings []Warning
	for _, ep := range eps {
		if _, ok := holders[ep]; ok {
			continue
		}
		h, err := Resolve(ctx, e, ep)
		if errors.Is(err, core.ErrNotFound) {
			warnings = append(warnings, Warning{Key: EndpointKey(ep), Message: "no longer exists, revert skipped"})
			continue
		}
		if err != nil {
			return nil, err
		}
		holders[ep] = h
	}
	return warnings, nil
}

func onlyResolved(deltas []core.Delta, holders map[core.Endpoint]Holder) []core.Delta {
	out := deltas[:0:0]
	for _, d := range deltas {
		if _, ok := holders[d.Endpoint]; ok {
			out = append(out, d)
		}
	}
	return out
}

// checkSufficiency rejects the change if any endpoint it lowers would end
// below zero. Endpoints whose balance rises are never blocked, even when
// already negative.
func checkSufficiency(ctx context.Context, e storage.Entities, holders map[core.Endpoint]Holder, deltas []core.Delta) error {
	for _, d := range deltas {
		if !d.Amount.IsNegative() {
			continue
		}
		h := holders[d.Endpoint]
		bal, err := BalanceOf(ctx, e, h)
		if err != nil {
			return err
		}
		if bal.Add(d.Amount).IsNegative() {
			return fmt.Errorf("%w: %s %q has %s, needs %s",
				core.ErrInsufficientFunds, d.Endpoint.Kind, h.Name(), bal.String(), d.Amount.Neg().String())
		}
	}
	return nil
}

// applyStored writes deltas to every stored-balance endpoint. Derived
// endpoints are skipped. It returns a warning per balance left negative.
func applyStored(ctx context.Context, e storage.Entities, holders map[core.Endpoint]Holder, deltas []core.Delta) ([]Warning, error) {
	var warnings []Warning
	for _, d := range deltas {
		m, ok := holders[d.Endpoint].(MutableBalanceHolder)
		if !ok || d.Amount.IsZero() {
			continue
		}
		next, err := m.Adjust(ctx, e, d.Amount)
		if err != nil {
			return nil, err
		}
		if next.IsNegative() {
			warnings = append(warnings, negativeWarning(m.Key(), next))
		}
	}
	return warnings, nil
}

// checkDerived recomputes every derived endpoint in deltas, after the
// transaction log has changed, and warns for each one left negative.
func checkDerived(ctx context.Context, e storage.Entities, holders map[core.Endpoint]Holder, deltas []core.Delta) ([]Warning, error) {
	var warnings []Warning
	for _, d := range deltas {
		h, ok := holders[d.Endpoint].(DerivedBalanceHolder)
		if !ok {
			continue
		}
		bal, err := h.ComputeBalance(ctx, e)
		if err != nil {
			return nil, err
		}
		if bal.IsNegative() {
			warnings = append(warnings, negativeWarning(h.Key(), bal))
		}
	}
	return warnings, nil
}

func negativeWarning(key string, balance decimal.Decimal) Warning {
	return Warning{Key: key, Message: "balance is negative after revert: " + balance.String()}
}

func (l *Ledger) logFailure(ctx context.Context, op string, tx core.Transaction, err error) {
	fields := log.NewFields().WithOperation(op).WithTransaction(tx).WithError(err)
	switch core.Classify(err) {
	case core.KindStorage:
		l.logger.ErrorContext(ctx, "Ledger operation failed", fields.ToSlice()...)
	default:
		l.logger.InfoContext(ctx, "Ledger operation rejected", fields.ToSlice()...)
	}
}

func (l *Ledger) logWarnings(ctx context.Context, op string, res Result) {
	for _, w := range res.Warnings {
		l.logger.WarnContext(ctx, "Ledger warning",
			log.FieldOperation, op,
			log.FieldTransactionID, res.Transaction.ID,
			"key", w.Key,
			"message", w.Message)
	}
}
