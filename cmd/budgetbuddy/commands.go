package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/ledger"
	"budgetbuddy/internal/services"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var errUsage = errors.New("usage")

type command struct {
	help string
	run  func(ctx context.Context, svc *services.FinanceService, out io.Writer, args []string) error
}

var commands = map[string]command{
	"accounts":     {"list accounts and balances", listAccounts},
	"budgets":      {"list budgets and derived balances", listBudgets},
	"goals":        {"list savings goals and progress", listGoals},
	"transactions": {"list transactions, newest first", listTransactions},
	"summary":      {"show total balance and savings", showSummary},
	"record":       {"record an income, expense or transfer", recordTransaction},
	"edit":         {"replace a transaction", editTransaction},
	"delete":       {"delete a transaction and revert its effect", deleteTransaction},
	"deposit":      {"move money from an account into a savings goal", deposit},
	"balance":      {"show the derived balance of a budget", budgetBalance},
	"add-account":  {"create an account", addAccount},
	"add-budget":   {"create a budget", addBudget},
	"add-goal":     {"create a savings goal", addGoal},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: budgetbuddy <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", name, commands[name].help)
	}
	tw.Flush()
}

func run(ctx context.Context, svc *services.FinanceService, out io.Writer, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" {
		usage(out)
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage(out)
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	err := cmd.run(ctx, svc, out, args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// intentFlags are shared by record and edit.
type intentFlags struct {
	typ, amount, fee                  string
	account, budget, toAcct, toBudget string
	category, title, notes, date      string
}

func bindIntentFlags(fs *flag.FlagSet) *intentFlags {
	f := &intentFlags{}
	fs.StringVar(&f.typ, "type", "expense", "income, expense or transfer")
	fs.StringVar(&f.amount, "amount", "", "amount, e.g. 12.50 or 12,50")
	fs.StringVar(&f.fee, "fee", "", "transfer fee")
	fs.StringVar(&f.account, "account", "", "source account id")
	fs.StringVar(&f.budget, "budget", "", "source budget id")
	fs.StringVar(&f.toAcct, "to-account", "", "destination account id (transfers)")
	fs.StringVar(&f.toBudget, "to-budget", "", "destination budget id (transfers)")
	fs.StringVar(&f.category, "category", "", "category")
	fs.StringVar(&f.title, "title", "", "title")
	fs.StringVar(&f.notes, "notes", "", "notes")
	fs.StringVar(&f.date, "date", "", "date as YYYY-MM-DD (default today)")
	return f
}

func (f *intentFlags) intent() (core.Intent, error) {
	amount, err := core.ParseAmount(f.amount)
	if err != nil {
		return core.Intent{}, fmt.Errorf("amount %q: %w", f.amount, err)
	}
	fee, err := core.ParseFee(f.fee)
	if err != nil {
		return core.Intent{}, fmt.Errorf("fee %q: %w", f.fee, err)
	}
	in := core.Intent{
		Type:        core.TransactionType(strings.ToLower(f.typ)),
		Amount:      amount,
		Fee:         fee,
		AccountID:   f.account,
		BudgetID:    f.budget,
		ToAccountID: f.toAcct,
		ToBudgetID:  f.toBudget,
		Category:    f.category,
		Title:       f.title,
		Notes:       f.notes,
	}
	if f.date != "" {
		d, err := time.ParseInLocation(dateLayout, f.date, time.Local)
		if err != nil {
			return core.Intent{}, fmt.Errorf("date %q: expected YYYY-MM-DD", f.date)
		}
		in.Date = d
	}
	return in, nil
}

func listAccounts(ctx context.Context, svc *services.FinanceService, out io.Writer, _ []string) error {
	accounts, err := svc.RefreshAccounts(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tBALANCE")
	for _, a := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Type, money(a.Balance))
	}
	return tw.Flush()
}

func listBudgets(ctx context.Context, svc *services.FinanceService, out io.Writer, _ []string) error {
	budgets, err := svc.RefreshBudgets(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tPERIOD\tBALANCE")
	for _, b := range budgets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.ID, b.Title, b.Category, b.Period, money(b.Balance))
	}
	return tw.Flush()
}

func listGoals(ctx context.Context, svc *services.FinanceService, out io.Writer, _ []string) error {
	goals, err := svc.RefreshSavingsGoals(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSAVED\tTARGET\tPROGRESS")
	for _, g := range goals {
		progress := fmt.Sprintf("%.0f%%", g.Progress()*100)
		if g.IsCompleted() {
			progress += " done"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", g.ID, g.Name, money(g.CurrentAmount), money(g.TargetAmount), progress)
	}
	return tw.Flush()
}

func listTransactions(ctx context.Context, svc *services.FinanceService, out io.Writer, _ []string) error {
	txs, err := svc.RefreshTransactions(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tTITLE\tAMOUNT\tFROM\tTO")
	for _, v := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			v.ID, v.Date.Format(dateLayout), v.Type, v.Title, money(v.Amount), v.SourceName, v.DestinationName)
	}
	return tw.Flush()
}

func showSummary(ctx context.Context, svc *services.FinanceService, out io.Writer, _ []string) error {
	s, err := svc.Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "accounts: %d  balance: %s\n", s.Accounts, money(s.TotalBalance))
	fmt.Fprintf(out, "active goals: %d  saved: %s\n", s.ActiveGoals, money(s.TotalSaved))
	return nil
}

func recordTransaction(ctx context.Context, svc *services.FinanceService, out io.Writer, args []string) error {
	fs := newFlagSet("record", out)
	f := bindIntentFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	in, err := f.intent()
	if err != nil {
		return err
	}
	res, err := svc.RecordTransaction(ctx, in)
	if err != nil {
		return err
	}
	printResult(out, "recorded", res)
	return nil
}

func editTransaction(ctx context.Context, svc *services.FinanceService, out io.Writer, args []string) error {
	fs := newFlagSet("edit", out)
	id := fs.String("id", "", "transaction id")
	f := bindIntentFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("%w: edit needs -id", errUsage)
	}
	in, err := f.intent()
	if err != nil {
		return err
	}
	res, err := svc.EditTransaction(ctx, *id, in)
	if err != nil {
		return err
	}
	printResult(out, "edited", res)
	return nil
}

func deleteTransaction(ctx context.Context, svc *services.FinanceService, out io.Writer, args []string) error {
	fs := newFlagSet("delete", out)
	id := fs.String("id", "", "transaction id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("%w: delete needs -id", errUsage)
	}
	res, err := svc.DeleteTransaction(ctx, *id)
	if err != nil {
		return err
	}
	printResult(out, "deleted", res)
	return nil
}

func deposit(ctx context.Context, svc *services.FinanceService, out io.Writer, args []string) error {
	fs := newFlagSet("deposit", out)
	goal := fs.String("goal", "", "savings goal id")
	account := fs.String("account", "", "account id (default: the goal's linked account)")
	amountStr := fs.String("amount", "", "amount to deposit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *goal == "" {
		return fmt.Errorf("%w: deposit needs -goal", errUsage)
	}
	amount, err := core.ParseAmount(*amountStr)
	if err != nil {
		return fmt.Errorf("amount %q: %w", *amountStr, err)
	}
	res, err := svc.Deposit(ctx, *goal, *account, amount)
	if err != nil {
		return err
	}
	printResult(out, "deposited", res)
	return nil
}

func budgetBalance(ctx context.Context, svc *services.FinanceService, out io.Writer, args []string) error {
	fs := newFlagSet("balance", out)
	id := fs.String("budget", "", "budget id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("%w: balance needs -budget", errUsage)
	}
	bal, err := svc.BudgetBalance(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, money(bal))
	return nil
}

func addAccount(ctx context.Context, svc *services.FinanceService, out io.Writer, args []string) error {
	fs := newFlagSet("add-account", out)
	name := fs.String("name", "", "account name")
	typ := fs.String("type", services.DefaultAccountType, "cash, bank, e-wallet, ...")
	icon := fs.String("icon", "", "icon name")
	opening := fs.String("balance", "", "opening balance")
	if err := fs.Parse(args); err != nil {
		return err
	}
	balance, err := core.ParseFee(*opening)
	if err != nil {
		return fmt.Errorf("balance %q: %w", *opening, core.ErrInvalidAmount)
	}
	a, err := svc.CreateAccount(ctx, core.Account{Name: *name, Type: *typ, IconName: *icon, Balance: balance})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created account %s (%s)\n", a.ID, a.Name)
	return nil
}

func addBudget(ctx context.Context, svc *services.FinanceService, out io.Writer, args []string) error {
	fs := newFlagSet("add-budget", out)
	title := fs.String("title", "", "budget title")
	category := fs.String("category", "", "category")
	period := fs.String("period", string(core.Monthly), "daily, weekly, monthly or yearly")
	limit := fs.String("amount", "", "planned amount")
	accounts := fs.String("accounts", "", "comma separated account ids")
	if err := fs.Parse(args); err != nil {
		return err
	}
	amount, err := core.ParseFee(*limit)
	if err != nil {
		return fmt.Errorf("amount %q: %w", *limit, core.ErrInvalidAmount)
	}
	b := core.Budget{
		Title:    *title,
		Category: *category,
		Period:   core.Period(strings.ToLower(*period)),
		Amount:   amount,
		IsActive: true,
	}
	for _, id := range strings.Split(*accounts, ",") {
		if id = strings.TrimSpace(id); id != "" {
			b.AccountIDs = append(b.AccountIDs, id)
		}
	}
	b, err = svc.CreateBudget(ctx, b)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created budget %s (%s)\n", b.ID, b.Title)
	return nil
}

func addGoal(ctx context.Context, svc *services.FinanceService, out io.Writer, args []string) error {
	fs := newFlagSet("add-goal", out)
	name := fs.String("name", "", "goal name")
	reason := fs.String("reason", "", "what the money is for")
	targetStr := fs.String("target", "", "target amount")
	account := fs.String("account", "", "linked account id")
	targetDate := fs.String("by", "", "target date as YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	target, err := core.ParseAmount(*targetStr)
	if err != nil {
		return fmt.Errorf("target %q: %w", *targetStr, err)
	}
	g := core.SavingsGoal{
		Name:         *name,
		Reason:       *reason,
		TargetAmount: target,
		AccountID:    *account,
		StartDate:    time.Now(),
		IsActive:     true,
	}
	if *targetDate != "" {
		d, err := time.ParseInLocation(dateLayout, *targetDate, time.Local)
		if err != nil {
			return fmt.Errorf("by %q: expected YYYY-MM-DD", *targetDate)
		}
		g.TargetDate = d
	}
	g, err = svc.CreateSavingsGoal(ctx, g)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created goal %s (%s)\n", g.ID, g.Name)
	return nil
}

func printResult(out io.Writer, verb string, res ledger.Result) {
	fmt.Fprintf(out, "%s %s %s %s\n", verb, res.Transaction.ID, res.Transaction.Type, money(res.Transaction.Amount))
	for _, d := range res.Deltas {
		fmt.Fprintf(out, "  %s %s\n", ledger.EndpointKey(d.Endpoint), signed(d.Amount))
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", w)
	}
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2)
	}
	return "+" + d.StringFixed(2)
}
