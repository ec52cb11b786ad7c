package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// EndpointKind tells an account endpoint from a budget endpoint.
type EndpointKind string

const (
	AccountEndpoint EndpointKind = "account"
	BudgetEndpoint  EndpointKind = "budget"
)

// Endpoint is an Account or Budget referenced by a transaction.
type Endpoint struct {
	Kind EndpointKind
	ID   string
}

func (e Endpoint) String() string {
	return string(e.Kind) + ":" + e.ID
}

func endpointOf(accountID, budgetID string) (Endpoint, bool) {
	switch {
	case accountID != "":
		return Endpoint{Kind: AccountEndpoint, ID: accountID}, true
	case budgetID != "":
		return Endpoint{Kind: BudgetEndpoint, ID: budgetID}, true
	default:
		return Endpoint{}, false
	}
}

// Delta is the signed balance change one transaction applies to one endpoint.
type Delta struct {
	Endpoint Endpoint
	Amount   decimal.Decimal
}

// Effect computes the signed deltas of a transaction:
// income credits the source, expense debits it, a transfer debits the source
// by amount plus fee and credits the destination by amount. The fee is not
// credited anywhere.
func Effect(tx Transaction) []Delta {
	src, ok := tx.Source()
	if !ok {
		return nil
	}
	switch tx.Type {
	case Income:
		return []Delta{{Endpoint: src, Amount: tx.Amount}}
	case Expense:
		return []Delta{{Endpoint: src, Amount: tx.Amount.Neg()}}
	case Transfer:
		out := []Delta{{Endpoint: src, Amount: tx.Amount.Add(tx.Fee).Neg()}}
		if dst, ok := tx.Destination(); ok {
			out = append(out, Delta{Endpoint: dst, Amount: tx.Amount})
		}
		return out
	default:
		return nil
	}
}

// Booked is Effect as it stands once the transaction is stored. Stored
// balances carry the fee, but a budget's derived balance only counts the
// transferred amount, so a budget source is debited by amount alone.
// Effect remains the amount a source must be able to cover.
func Booked(tx Transaction) []Delta {
	out := Effect(tx)
	if tx.Type == Transfer && len(out) > 0 && out[0].Endpoint.Kind == BudgetEndpoint {
		out[0].Amount = tx.Amount.Neg()
	}
	return out
}

// Inverse negates every delta.
func Inverse(deltas []Delta) []Delta {
	out := make([]Delta, len(deltas))
	for i, d := range deltas {
		out[i] = Delta{Endpoint: d.Endpoint, Amount: d.Amount.Neg()}
	}
	return out
}

// Net folds deltas into one signed change per endpoint, ordered by endpoint
// so callers get a stable iteration order.
func Net(deltas ...[]Delta) []Delta {
	sums := map[Endpoint]decimal.Decimal{}
	for _, group := range deltas {
		for _, d := range group {
			sums[d.Endpoint] = sums[d.Endpoint].Add(d.Amount)
		}
	}
	out := make([]Delta, 0, len(sums))
	for ep, amt := range sums {
		out = append(out, Delta{Endpoint: ep, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Endpoint.String() < out[j].Endpoint.String()
	})
	return out
}

// DeltaFor sums the booked change a transaction applies to a single endpoint.
func DeltaFor(tx Transaction, ep Endpoint) decimal.Decimal {
	total := decimal.Zero
	for _, d := range Booked(tx) {
		if d.Endpoint == ep {
			total = total.Add(d.Amount)
		}
	}
	return total
}
