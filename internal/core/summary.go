package core

import "github.com/shopspring/decimal"

// Summary is a compact overview of stored balances.
type Summary struct {
	TotalBalance decimal.Decimal // sum over accounts
	TotalSaved   decimal.Decimal // sum over savings goals
	Accounts     int
	ActiveGoals  int
}

// Summarize totals account balances and goal savings.
func Summarize(accounts []Account, goals []SavingsGoal) Summary {
	s := Summary{TotalBalance: decimal.Zero, TotalSaved: decimal.Zero, Accounts: len(accounts)}
	for _, a := range accounts {
		s.TotalBalance = s.TotalBalance.Add(a.Balance)
	}
	for _, g := range goals {
		s.TotalSaved = s.TotalSaved.Add(g.CurrentAmount)
		if g.IsActive {
			s.ActiveGoals++
		}
	}
	return s
}
