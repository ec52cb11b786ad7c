package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every validation error wraps ErrValidation.
var (
	ErrValidation        = errors.New("validation error")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
)

var (
	ErrInvalidAmount      = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidFee         = fmt.Errorf("%w: invalid fee", ErrValidation)
	ErrInvalidType        = fmt.Errorf("%w: invalid transaction type", ErrValidation)
	ErrInvalidTransfer    = fmt.Errorf("%w: source and destination are the same", ErrValidation)
	ErrMissingReference   = fmt.Errorf("%w: missing account or budget reference", ErrValidation)
	ErrAmbiguousReference = fmt.Errorf("%w: both account and budget referenced", ErrValidation)
	ErrUnexpectedTarget   = fmt.Errorf("%w: destination or fee set on a non-transfer", ErrValidation)
	ErrEmptyTitle         = fmt.Errorf("%w: empty title", ErrValidation)
	ErrEmptyCategory      = fmt.Errorf("%w: empty category", ErrValidation)
	ErrEmptyName          = fmt.Errorf("%w: empty name", ErrValidation)
	ErrEmptyAccountType   = fmt.Errorf("%w: empty account type", ErrValidation)
	ErrInvalidPeriod      = fmt.Errorf("%w: invalid period", ErrValidation)
	ErrInvalidDateRange   = fmt.Errorf("%w: end date before start date", ErrValidation)
	ErrLinkedTransaction  = fmt.Errorf("%w: savings deposit transactions cannot be edited", ErrValidation)
)

// Kind is the coarse error category reported to callers.
type Kind string

const (
	KindNone              Kind = ""
	KindValidation        Kind = "validation_error"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindNotFound          Kind = "not_found_error"
	KindStorage           Kind = "database_error"
)

// Classify maps err to its Kind. Anything that is not a domain error is
// treated as a storage failure.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindStorage
	}
}

// NotFound builds a wrapped ErrNotFound for an entity kind and id.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, ErrNotFound)
}
