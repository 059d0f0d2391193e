// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings.
// Amounts are decimal values rounded half-up to two places; floating point
// is only used at the template boundary.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest accepted subscription amount in any currency.
var MaxAmount = decimal.NewFromInt(1_000_000)

// Money is a positive monetary amount with two-decimal precision.
// The currency it is denominated in lives on the Subscription.
type Money struct {
	Value decimal.Decimal
}

// NewMoney builds a Money rounded half-up to two decimal places.
func NewMoney(v decimal.Decimal) Money {
	return Money{Value: v.Round(2)}
}

// MoneyFromFloat converts a float amount, rounding half-up to two places.
// Used at JSON and spreadsheet import boundaries.
func MoneyFromFloat(f float64) Money {
	return NewMoney(decimal.NewFromFloat(f))
}

// ParseAmount converts a decimal string to Money with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators;
// thousands separators are not allowed. Returns an error for invalid
// formats, negative values, zero, or amounts above MaxAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil (rounds up)
//	ParseAmount("-5")     -> error
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	v, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m := NewMoney(v)
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

func (m Money) Validate() error {
	if !m.Value.IsPositive() {
		return ErrInvalidAmount
	}
	if m.Value.GreaterThan(MaxAmount) {
		return ErrAmountTooLarge
	}
	return nil
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Value.IsZero()
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{Value: m.Value.Add(other.Value)}
}

// DivInt divides the amount by a whole number, half-up to two places.
// Division by zero yields a zero amount (lifetime cycles).
func (m Money) DivInt(n int64) Money {
	if n == 0 {
		return Money{Value: decimal.Zero}
	}
	return NewMoney(m.Value.Div(decimal.NewFromInt(n)))
}

// MulInt multiplies the amount by a whole number.
func (m Money) MulInt(n int64) Money {
	return NewMoney(m.Value.Mul(decimal.NewFromInt(n)))
}

// Float64 returns the amount for display purposes.
// Use Value for calculations to avoid floating-point precision issues.
func (m Money) Float64() float64 {
	return m.Value.InexactFloat64()
}

// String renders the amount with exactly two decimal places.
func (m Money) String() string {
	return m.Value.StringFixed(2)
}

// Cmp compares two amounts: -1 if m < other, 0 if equal, +1 if m > other.
func (m Money) Cmp(other Money) int {
	return m.Value.Cmp(other.Value)
}
