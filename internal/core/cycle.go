// Package core provides the subscription domain model.
//
// This file implements the Strategy Pattern for billing cycles. Each cycle
// (monthly, yearly, quarterly, semiannual, lifetime) has its own strategy
// that encapsulates monthly-cost normalization and next-payment advancement.

package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	CycleMonthly    BillingCycle = "monthly"
	CycleYearly     BillingCycle = "yearly"
	CycleQuarterly  BillingCycle = "quarterly"
	CycleSemiannual BillingCycle = "semiannual"
	CycleLifetime   BillingCycle = "lifetime"
)

type BillingCycle string

// CycleStrategy is the strategy interface for billing-cycle arithmetic.
type CycleStrategy interface {
	// MonthlyDivisor returns the number the full-cycle amount is divided by
	// to obtain the monthly-normalized cost. Zero means no recurring cost
	// (one-time purchase).
	MonthlyDivisor() int64

	// Advance returns the next payment date after d for this cycle.
	Advance(d Date) Date
}

// MonthlyCycle bills every month.
type MonthlyCycle struct{}

func (MonthlyCycle) MonthlyDivisor() int64 { return 1 }
func (MonthlyCycle) Advance(d Date) Date { return addMonths(d, 1) }

// YearlyCycle bills once a year.
type YearlyCycle struct{}

func (YearlyCycle) MonthlyDivisor() int64 { return 12 }
func (YearlyCycle) Advance(d Date) Date { return addMonths(d, 12) }

// QuarterlyCycle bills every three months.
type QuarterlyCycle struct{}

func (QuarterlyCycle) MonthlyDivisor() int64 { return 3 }
func (QuarterlyCycle) Advance(d Date) Date { return addMonths(d, 3) }

// SemiannualCycle bills every six months.
type SemiannualCycle struct{}

func (SemiannualCycle) MonthlyDivisor() int64 { return 6 }
func (SemiannualCycle) Advance(d Date) Date { return addMonths(d, 6) }

// LifetimeCycle is a one-time purchase: no recurring cost, never advances.
type LifetimeCycle struct{}

func (LifetimeCycle) MonthlyDivisor() int64 { return 0 }
func (LifetimeCycle) Advance(d Date) Date { return d }

// cycleStrategies maps billing cycles to their corresponding strategies.
var cycleStrategies = map[BillingCycle]CycleStrategy{
	CycleMonthly:    MonthlyCycle{},
	CycleYearly:     YearlyCycle{},
	CycleQuarterly:  QuarterlyCycle{},
	CycleSemiannual: SemiannualCycle{},
	CycleLifetime:   LifetimeCycle{},
}

// GetCycleStrategy returns the strategy for a billing cycle.
// Returns an error if the cycle is not supported.
func GetCycleStrategy(cycle BillingCycle) (CycleStrategy, error) {
	strategy, ok := cycleStrategies[cycle]
	if !ok {
		return nil, fmt.Errorf("unknown billing cycle: %s", cycle)
	}
	return strategy, nil
}

// Cycles returns all supported billing cycles in display order.
func Cycles() []BillingCycle {
	return []BillingCycle{CycleMonthly, CycleYearly, CycleQuarterly, CycleSemiannual, CycleLifetime}
}

// Valid reports whether the cycle is one of the supported values.
func (c BillingCycle) Valid() bool {
	_, ok := cycleStrategies[c]
	return ok
}

func (c BillingCycle) String() string {
	return string(c)
}

// MonthlyDivisor returns the divisor used for monthly-cost normalization.
func (c BillingCycle) MonthlyDivisor() int64 {
	strategy, err := GetCycleStrategy(c)
	if err != nil {
		// Unknown cycles are treated as monthly when reading legacy data.
		return 1
	}
	return strategy.MonthlyDivisor()
}

// Advance returns the next payment date after d. Lifetime never advances.
func (c BillingCycle) Advance(d Date) Date {
	strategy, err := GetCycleStrategy(c)
	if err != nil {
		return addMonths(d, 1)
	}
	return strategy.Advance(d)
}

// ParseCycle parses user input strictly: unknown values are an error.
func ParseCycle(s string) (BillingCycle, error) {
	c := BillingCycle(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ErrInvalidCycle
	}
	return c, nil
}

// NormalizeCycle parses imported data permissively: unknown or empty
// values fall back to monthly.
func NormalizeCycle(s string) BillingCycle {
	c := BillingCycle(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return CycleMonthly
	}
	return c
}

// addMonths advances a date by n months, clamping the day to the last day
// of the target month (Jan 31 + 1 month = Feb 28, not Mar 3).
func addMonths(d Date, n int) Date {
	if d.IsZero() {
		return d
	}
	year := d.Time.Year()
	month := int(d.Time.Month()) + n
	year += (month - 1) / 12
	month = (month-1)%12 + 1

	day := d.Time.Day()
	lastDay := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	return NewDate(year, month, day)
}
