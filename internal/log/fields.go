package log

import (
	"budgetbuddy/internal/core"

	"github.com/shopspring/decimal"
)

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldOperation     = "operation"
	FieldDuration      = "duration_ms"
	FieldTransactionID = "transaction_id"
	FieldTxType        = "tx_type"
	FieldAccountID     = "account_id"
	FieldBudgetID      = "budget_id"
	FieldToAccountID   = "to_account_id"
	FieldToBudgetID    = "to_budget_id"
	FieldGoalID        = "goal_id"
	FieldAmount        = "amount"
	FieldFee           = "fee"
	FieldBalance       = "balance"
	FieldEventKind     = "event_kind"
	FieldWarnings      = "warnings"
	FieldSheetsRef     = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentLedger  = "ledger"
	ComponentSavings = "savings"
	ComponentBudget  = "budget"
	ComponentService = "service"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentKafka   = "kafka"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpRecord   = "record"
	OpEdit     = "edit"
	OpDelete   = "delete"
	OpDeposit  = "deposit"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpRefresh  = "refresh"
	OpSeed     = "seed"
	OpPublish  = "publish"
	OpAppend   = "append"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds the error text and its kind.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorType] = string(core.Classify(err))
	}
	return f
}

// WithTransaction adds the identifying fields of a transaction. Unset
// references are omitted.
func (f LogFields) WithTransaction(tx core.Transaction) LogFields {
	if tx.ID != "" {
		f[FieldTransactionID] = tx.ID
	}
	f[FieldTxType] = string(tx.Type)
	f[FieldAmount] = tx.Amount.String()
	setIfNotEmpty(f, FieldAccountID, tx.AccountID)
	setIfNotEmpty(f, FieldBudgetID, tx.BudgetID)
	setIfNotEmpty(f, FieldToAccountID, tx.ToAccountID)
	setIfNotEmpty(f, FieldToBudgetID, tx.ToBudgetID)
	setIfNotEmpty(f, FieldGoalID, tx.SavingsGoalID)
	if tx.Fee.IsPositive() {
		f[FieldFee] = tx.Fee.String()
	}
	return f
}

// WithAmount adds an amount field.
func (f LogFields) WithAmount(d decimal.Decimal) LogFields {
	f[FieldAmount] = d.String()
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}

func setIfNotEmpty(f LogFields, key, value string) {
	if value != "" {
		f[key] = value
	}
}
