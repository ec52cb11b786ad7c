package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"budgetbuddy/internal/core"

	"github.com/shopspring/decimal"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Dialect selects placeholder syntax.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Queries holds the parameterized statements for every entity kind.
// Amounts are written as decimal strings, dates as unix milliseconds and
// unset references as NULL.
type Queries struct {
	db      DBTX
	dialect Dialect
}

func New(db DBTX, dialect Dialect) *Queries {
	return &Queries{db: db, dialect: dialect}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, dialect: q.dialect}
}

// rebind rewrites ? placeholders to $n for postgres.
func (q *Queries) rebind(query string) string {
	if q.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (q *Queries) exec(ctx context.Context, entity, id, query string, args ...interface{}) error {
	res, err := q.db.ExecContext(ctx, q.rebind(query), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.NotFound(entity, id)
	}
	return nil
}

// Accounts

const accountColumns = `id, name, type, icon_name, balance`

func scanAccount(row interface{ Scan(...interface{}) error }) (core.Account, error) {
	var a core.Account
	var icon sql.NullString
	if err := row.Scan(&a.ID, &a.Name, &a.Type, &icon, &a.Balance); err != nil {
		return core.Account{}, err
	}
	a.IconName = icon.String
	return a, nil
}

func (q *Queries) CreateAccount(ctx context.Context, a core.Account) error {
	const query = `INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?)`
	_, err := q.db.ExecContext(ctx, q.rebind(query), a.ID, a.Name, a.Type, nullString(a.IconName), a.Balance.String())
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (q *Queries) GetAccount(ctx context.Context, id string) (core.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`
	a, err := scanAccount(q.db.QueryRowContext(ctx, q.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.NotFound("account", id)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (q *Queries) ListAccounts(ctx context.Context) ([]core.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts ORDER BY name, id`
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out, nil
}

// UpdateAccount writes the descriptive fields only; the balance moves through
// SetAccountBalance.
func (q *Queries) UpdateAccount(ctx context.Context, a core.Account) error {
	const query = `UPDATE accounts SET name = ?, type = ?, icon_name = ? WHERE id = ?`
	if err := q.exec(ctx, "account", a.ID, query, a.Name, a.Type, nullString(a.IconName), a.ID); err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

func (q *Queries) SetAccountBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	const query = `UPDATE accounts SET balance = ? WHERE id = ?`
	if err := q.exec(ctx, "account", id, query, balance.String(), id); err != nil {
		return fmt.Errorf("set account balance: %w", err)
	}
	return nil
}

func (q *Queries) DeleteAccount(ctx context.Context, id string) error {
	if err := q.exec(ctx, "account", id, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// Budgets

const budgetColumns = `id, title, category, amount, period, start_date, end_date, spent, account_ids, is_active`

func scanBudget(row interface{ Scan(...interface{}) error }) (core.Budget, error) {
	var (
		b          core.Budget
		period     string
		start, end sql.NullInt64
		accountIDs sql.NullString
	)
	if err := row.Scan(&b.ID, &b.Title, &b.Category, &b.Amount, &period, &start, &end, &b.Spent, &accountIDs, &b.IsActive); err != nil {
		return core.Budget{}, err
	}
	b.Period = core.Period(period)
	b.StartDate = fromMillis(start)
	b.EndDate = fromMillis(end)
	b.AccountIDs = splitIDs(accountIDs.String)
	return b, nil
}

func (q *Queries) CreateBudget(ctx context.Context, b core.Budget) error {
	const query = `INSERT INTO budgets (` + budgetColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := q.db.ExecContext(ctx, q.rebind(query),
		b.ID, b.Title, b.Category, b.Amount.String(), string(b.Period),
		toMillis(b.StartDate), toMillis(b.EndDate), b.Spent.String(),
		nullString(joinIDs(b.AccountIDs)), b.IsActive)
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func (q *Queries) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	const query = `SELECT ` + budgetColumns + ` FROM budgets WHERE id = ?`
	b, err := scanBudget(q.db.QueryRowContext(ctx, q.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.NotFound("budget", id)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (q *Queries) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	const query = `SELECT ` + budgetColumns + ` FROM budgets ORDER BY title, id`
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return out, nil
}

func (q *Queries) UpdateBudget(ctx context.Context, b core.Budget) error {
	const query = `UPDATE budgets SET title = ?, category = ?, amount = ?, period = ?, start_date = ?,
		end_date = ?, spent = ?, account_ids = ?, is_active = ? WHERE id = ?`
	err := q.exec(ctx, "budget", b.ID, query,
		b.Title, b.Category, b.Amount.String(), string(b.Period),
		toMillis(b.StartDate), toMillis(b.EndDate), b.Spent.String(),
		nullString(joinIDs(b.AccountIDs)), b.IsActive, b.ID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return nil
}

func (q *Queries) DeleteBudget(ctx context.Context, id string) error {
	if err := q.exec(ctx, "budget", id, `DELETE FROM budgets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

// Savings goals

const goalColumns = `id, name, reason, target_amount, current_amount, start_date, target_date, account_id, is_active`

func scanGoal(row interface{ Scan(...interface{}) error }) (core.SavingsGoal, error) {
	var (
		g                 core.SavingsGoal
		reason, accountID sql.NullString
		start, target     sql.NullInt64
	)
	if err := row.Scan(&g.ID, &g.Name, &reason, &g.TargetAmount, &g.CurrentAmount, &start, &target, &accountID, &g.IsActive); err != nil {
		return core.SavingsGoal{}, err
	}
	g.Reason = reason.String
	g.AccountID = accountID.String
	g.StartDate = fromMillis(start)
	g.TargetDate = fromMillis(target)
	return g, nil
}

func (q *Queries) CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) error {
	const query = `INSERT INTO savings_goals (` + goalColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := q.db.ExecContext(ctx, q.rebind(query),
		g.ID, g.Name, nullString(g.Reason), g.TargetAmount.String(), g.CurrentAmount.String(),
		toMillis(g.StartDate), toMillis(g.TargetDate), nullString(g.AccountID), g.IsActive)
	if err != nil {
		return fmt.Errorf("insert savings goal: %w", err)
	}
	return nil
}

func (q *Queries) GetSavingsGoal(ctx context.Context, id string) (core.SavingsGoal, error) {
	const query = `SELECT ` + goalColumns + ` FROM savings_goals WHERE id = ?`
	g, err := scanGoal(q.db.QueryRowContext(ctx, q.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, core.NotFound("savings goal", id)
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("get savings goal: %w", err)
	}
	return g, nil
}

func (q *Queries) ListSavingsGoals(ctx context.Context) ([]core.SavingsGoal, error) {
	const query = `SELECT ` + goalColumns + ` FROM savings_goals ORDER BY name, id`
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	defer rows.Close()

	var out []core.SavingsGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan savings goal: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	return out, nil
}

// UpdateSavingsGoal leaves current_amount alone; deposits move it through
// SetSavingsGoalAmount.
func (q *Queries) UpdateSavingsGoal(ctx context.Context, g core.SavingsGoal) error {
	const query = `UPDATE savings_goals SET name = ?, reason = ?, target_amount = ?, start_date = ?,
		target_date = ?, account_id = ?, is_active = ? WHERE id = ?`
	err := q.exec(ctx, "savings goal", g.ID, query,
		g.Name, nullString(g.Reason), g.TargetAmount.String(), toMillis(g.StartDate),
		toMillis(g.TargetDate), nullString(g.AccountID), g.IsActive, g.ID)
	if err != nil {
		return fmt.Errorf("update savings goal: %w", err)
	}
	return nil
}

func (q *Queries) SetSavingsGoalAmount(ctx context.Context, id string, current decimal.Decimal) error {
	const query = `UPDATE savings_goals SET current_amount = ? WHERE id = ?`
	if err := q.exec(ctx, "savings goal", id, query, current.String(), id); err != nil {
		return fmt.Errorf("set savings goal amount: %w", err)
	}
	return nil
}

func (q *Queries) DeleteSavingsGoal(ctx context.Context, id string) error {
	if err := q.exec(ctx, "savings goal", id, `DELETE FROM savings_goals WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete savings goal: %w", err)
	}
	return nil
}

// Transactions

const transactionColumns = `id, title, amount, type, category, date, notes, account_id, budget_id,
	to_account_id, to_budget_id, fee, savings_goal_id`

func scanTransaction(row interface{ Scan(...interface{}) error }) (core.Transaction, error) {
	var (
		tx                                                  core.Transaction
		typ                                                 string
		date                                                int64
		notes, accountID, budgetID, toAccountID, toBudgetID sql.NullString
		goalID                                              sql.NullString
	)
	err := row.Scan(&tx.ID, &tx.Title, &tx.Amount, &typ, &tx.Category, &date, &notes,
		&accountID, &budgetID, &toAccountID, &toBudgetID, &tx.Fee, &goalID)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TransactionType(typ)
	tx.Date = time.UnixMilli(date).UTC()
	tx.Notes = notes.String
	tx.AccountID = accountID.String
	tx.BudgetID = budgetID.String
	tx.ToAccountID = toAccountID.String
	tx.ToBudgetID = toBudgetID.String
	tx.SavingsGoalID = goalID.String
	return tx, nil
}

func (q *Queries) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, q.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (q *Queries) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	const query = `INSERT INTO transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := q.db.ExecContext(ctx, q.rebind(query),
		tx.ID, tx.Title, tx.Amount.String(), string(tx.Type), tx.Category, tx.Date.UnixMilli(),
		nullString(tx.Notes), nullString(tx.AccountID), nullString(tx.BudgetID),
		nullString(tx.ToAccountID), nullString(tx.ToBudgetID), tx.Fee.String(), nullString(tx.SavingsGoalID))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (q *Queries) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`
	tx, err := scanTransaction(q.db.QueryRowContext(ctx, q.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NotFound("transaction", id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (q *Queries) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions ORDER BY date DESC, id`
	txs, err := q.queryTransactions(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (q *Queries) ListBudgetTransactions(ctx context.Context, budgetID string) ([]core.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions
		WHERE budget_id = ? OR (type = 'transfer' AND to_budget_id = ?) ORDER BY date DESC, id`
	txs, err := q.queryTransactions(ctx, query, budgetID, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list budget transactions: %w", err)
	}
	return txs, nil
}

// UpdateTransaction rewrites the row in place. The deposit link is immutable.
func (q *Queries) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	const query = `UPDATE transactions SET title = ?, amount = ?, type = ?, category = ?, date = ?, notes = ?,
		account_id = ?, budget_id = ?, to_account_id = ?, to_budget_id = ?, fee = ? WHERE id = ?`
	err := q.exec(ctx, "transaction", tx.ID, query,
		tx.Title, tx.Amount.String(), string(tx.Type), tx.Category, tx.Date.UnixMilli(), nullString(tx.Notes),
		nullString(tx.AccountID), nullString(tx.BudgetID), nullString(tx.ToAccountID),
		nullString(tx.ToBudgetID), tx.Fee.String(), tx.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return nil
}

func (q *Queries) DeleteTransaction(ctx context.Context, id string) error {
	if err := q.exec(ctx, "transaction", id, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

var _ Entities = (*Queries)(nil)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64).UTC()
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ",")
}

func splitIDs(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
