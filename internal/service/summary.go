package service

import (
	"context"
	"sort"

	"subtrack/internal/core"
)

// DefaultUpcomingHorizon caps the payment timeline at roughly a quarter.
const DefaultUpcomingHorizon = 90

// SummaryService computes the dashboard KPI block from the current
// subscription set. Amounts are converted to the base currency before
// monthly normalization so mixed-currency totals stay meaningful.
type SummaryService struct {
	conv     CurrencyConverter
	warnDays int
}

func NewSummaryService(conv CurrencyConverter, warnDays int) *SummaryService {
	return &SummaryService{conv: conv, warnDays: warnDays}
}

// Cost normalizes every subscription to its monthly cost, both in the
// base currency and in its own currency.
func (s *SummaryService) Cost(ctx context.Context, subs []core.Subscription, today core.Date) []core.CostedSubscription {
	costed := make([]core.CostedSubscription, 0, len(subs))
	for _, sub := range subs {
		base := sub.Amount.Value
		if s.conv != nil {
			base = s.conv.ToBase(ctx, sub.Amount.Value, sub.Currency)
		}
		divisor := sub.Cycle.MonthlyDivisor()
		costed = append(costed, core.CostedSubscription{
			Subscription: sub,
			DaysLeft:     sub.DaysLeft(today),
			MonthlyCost:  core.NewMoney(base).DivInt(divisor),
			MonthlyLocal: sub.Amount.DivInt(divisor),
		})
	}
	return costed
}

// Build aggregates costed subscriptions into the dashboard summary.
func (s *SummaryService) Build(costed []core.CostedSubscription) core.DashboardSummary {
	summary := core.DashboardSummary{Total: len(costed)}

	monthly := core.Money{}
	byCategory := map[string]core.Money{}
	byCycle := map[core.BillingCycle]int{}
	for _, c := range costed {
		monthly = monthly.Add(c.MonthlyCost)
		byCategory[c.Category] = byCategory[c.Category].Add(c.MonthlyCost)
		byCycle[c.Cycle]++

		if c.DaysLeft >= 0 {
			summary.Active++
			if c.AutoRenew && c.DaysLeft <= s.warnDays {
				summary.Warnings++
			}
		}
	}
	summary.MonthlyTotal = monthly
	summary.YearlyEstimate = monthly.MulInt(12)
	summary.ByCategory = categorySpend(byCategory, monthly)
	summary.ByCycle = cycleCounts(byCycle, len(costed))
	summary.Top = topByCost(costed, 3)
	return summary
}

// Upcoming returns the future payment timeline, soonest first.
// A non-positive horizon disables the cap.
func (s *SummaryService) Upcoming(costed []core.CostedSubscription, horizonDays int) []core.UpcomingPayment {
	var upcoming []core.UpcomingPayment
	for _, c := range costed {
		if c.DaysLeft < 0 {
			continue
		}
		if horizonDays > 0 && c.DaysLeft > horizonDays {
			continue
		}
		upcoming = append(upcoming, core.UpcomingPayment{
			Name:     c.Name,
			Due:      c.NextPayment,
			DaysLeft: c.DaysLeft,
			Amount:   c.Amount,
			Currency: c.Currency,
		})
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		if upcoming[i].DaysLeft != upcoming[j].DaysLeft {
			return upcoming[i].DaysLeft < upcoming[j].DaysLeft
		}
		return upcoming[i].Name < upcoming[j].Name
	})
	return upcoming
}

func categorySpend(byCategory map[string]core.Money, total core.Money) []core.CategorySpend {
	spend := make([]core.CategorySpend, 0, len(byCategory))
	for name, amount := range byCategory {
		spend = append(spend, core.CategorySpend{
			Name:    name,
			Monthly: amount,
			Share:   share(amount.Float64(), total.Float64()),
		})
	}
	sort.SliceStable(spend, func(i, j int) bool {
		if cmp := spend[i].Monthly.Cmp(spend[j].Monthly); cmp != 0 {
			return cmp > 0
		}
		return spend[i].Name < spend[j].Name
	})
	return spend
}

func cycleCounts(byCycle map[core.BillingCycle]int, total int) []core.CycleCount {
	var counts []core.CycleCount
	for _, cycle := range core.Cycles() {
		n := byCycle[cycle]
		if n == 0 {
			continue
		}
		counts = append(counts, core.CycleCount{
			Cycle: cycle,
			Count: n,
			Share: share(float64(n), float64(total)),
		})
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}

func topByCost(costed []core.CostedSubscription, n int) []core.CostedSubscription {
	top := make([]core.CostedSubscription, len(costed))
	copy(top, costed)
	sort.SliceStable(top, func(i, j int) bool {
		if cmp := top[i].MonthlyCost.Cmp(top[j].MonthlyCost); cmp != 0 {
			return cmp > 0
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > n {
		top = top[:n]
	}
	return top
}

func share(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}
