package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransferCategory is used for transfers recorded without a category.
const TransferCategory = "Transfer"

// Intent is a request to record (or re-record) a transaction.
type Intent struct {
	Type        TransactionType
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	AccountID   string
	BudgetID    string
	ToAccountID string
	ToBudgetID  string
	Category    string
	Title       string
	Notes       string
	Date        time.Time // zero means "now" on record, "unchanged" on edit
}

// Validate checks the shape of the intent. It needs no stored state.
func (in Intent) Validate() error {
	if !in.Type.Valid() {
		return fmt.Errorf("%w %q", ErrInvalidType, in.Type)
	}
	if !in.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := validateRef(in.AccountID, in.BudgetID); err != nil {
		return err
	}

	if in.Type != Transfer {
		if in.ToAccountID != "" || in.ToBudgetID != "" || !in.Fee.IsZero() {
			return ErrUnexpectedTarget
		}
		if strings.TrimSpace(in.Title) == "" {
			return ErrEmptyTitle
		}
		if strings.TrimSpace(in.Category) == "" {
			return ErrEmptyCategory
		}
		return nil
	}

	if err := validateRef(in.ToAccountID, in.ToBudgetID); err != nil {
		return err
	}
	if in.Fee.IsNegative() {
		return ErrInvalidFee
	}
	src, _ := endpointOf(in.AccountID, in.BudgetID)
	dst, _ := endpointOf(in.ToAccountID, in.ToBudgetID)
	if src == dst {
		return ErrInvalidTransfer
	}
	return nil
}

func validateRef(accountID, budgetID string) error {
	switch {
	case accountID != "" && budgetID != "":
		return ErrAmbiguousReference
	case accountID == "" && budgetID == "":
		return ErrMissingReference
	default:
		return nil
	}
}

// Normalized trims free-text fields and fills the transfer category default.
func (in Intent) Normalized() Intent {
	in.AccountID = strings.TrimSpace(in.AccountID)
	in.BudgetID = strings.TrimSpace(in.BudgetID)
	in.ToAccountID = strings.TrimSpace(in.ToAccountID)
	in.ToBudgetID = strings.TrimSpace(in.ToBudgetID)
	in.Category = strings.TrimSpace(in.Category)
	in.Title = strings.TrimSpace(in.Title)
	in.Notes = strings.TrimSpace(in.Notes)
	if in.Type == Transfer && in.Category == "" {
		in.Category = TransferCategory
	}
	return in
}

// Apply copies the intent onto a transaction, keeping id, link and, when the
// intent carries no date, the existing date.
func (in Intent) Apply(tx Transaction) Transaction {
	tx.Type = in.Type
	tx.Amount = in.Amount
	tx.Title = in.Title
	tx.Category = in.Category
	tx.Notes = in.Notes
	tx.AccountID = in.AccountID
	tx.BudgetID = in.BudgetID
	tx.ToAccountID = ""
	tx.ToBudgetID = ""
	tx.Fee = decimal.Zero
	if in.Type == Transfer {
		tx.ToAccountID = in.ToAccountID
		tx.ToBudgetID = in.ToBudgetID
		tx.Fee = in.Fee
	}
	if !in.Date.IsZero() {
		tx.Date = in.Date
	}
	return tx
}

// TransferTitle builds the default title for a transfer.
func TransferTitle(from, to string, fee decimal.Decimal) string {
	title := fmt.Sprintf("From %s to %s", from, to)
	if fee.IsPositive() {
		title += fmt.Sprintf(" (fee %s)", fee.StringFixed(2))
	}
	return title
}
