// Package core holds the ledger domain: entities, intents, balance effects
// and the error kinds shared by every layer.
//
// This file contains amount parsing. Amounts are currency-agnostic decimals;
// binary floats are never used for arithmetic.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered string into a positive decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// surrounding whitespace. Signs, exponents, zero and malformed input are
// rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseFee is ParseAmount for optional non-negative values: empty and zero
// are accepted and yield zero.
func ParseFee(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := ParseAmount(s)
	if err == nil {
		return d, nil
	}
	if z, zerr := decimal.NewFromString(strings.ReplaceAll(s, ",", ".")); zerr == nil && z.IsZero() {
		return decimal.Zero, nil
	}
	return decimal.Zero, ErrInvalidFee
}
