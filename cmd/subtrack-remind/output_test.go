package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"subtrack/internal/core"
	"subtrack/internal/service"
)

type fixedConverter struct {
	rates map[string]float64
}

func (f fixedConverter) ToBase(_ context.Context, amount decimal.Decimal, currency string) decimal.Decimal {
	r, ok := f.rates[currency]
	if !ok {
		return amount
	}
	return amount.Mul(decimal.NewFromFloat(r))
}

func TestPrintDue(t *testing.T) {
	due := []service.ReminderItem{
		{
			Subscription: core.Subscription{
				Name:        "Netflix",
				Category:    "Video",
				Cycle:       core.CycleMonthly,
				Amount:      core.MoneyFromFloat(419),
				Currency:    "THB",
				NextPayment: core.NewDate(2026, 9, 2),
				AutoRenew:   true,
			},
			DaysLeft: 2,
		},
		{
			Subscription: core.Subscription{
				Name:        "Adobe CC",
				Category:    "Software",
				Cycle:       core.CycleYearly,
				Amount:      core.MoneyFromFloat(599.88),
				Currency:    "USD",
				NextPayment: core.NewDate(2026, 8, 26),
				AutoRenew:   false,
			},
			DaysLeft: 0,
			Note:     "price hike at renewal",
		},
	}

	var buf bytes.Buffer
	printDue(context.Background(), &buf, fixedConverter{rates: map[string]float64{"USD": 35.5}}, due, "THB")

	out := buf.String()
	for _, want := range []string{
		"Netflix",
		"Adobe CC",
		"Monthly (THB)",
		"419.00",
		"1774.65",
		"2193.65",
		"Total",
		"price hike at renewal",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintDueWithoutConverter(t *testing.T) {
	due := []service.ReminderItem{
		{
			Subscription: core.Subscription{
				Name:        "Spotify",
				Category:    "Video",
				Cycle:       core.CycleMonthly,
				Amount:      core.MoneyFromFloat(149),
				Currency:    "THB",
				NextPayment: core.NewDate(2026, 8, 25),
				AutoRenew:   true,
			},
			DaysLeft: 2,
		},
	}

	var buf bytes.Buffer
	printDue(context.Background(), &buf, nil, due, "THB")

	if out := buf.String(); !strings.Contains(out, "149.00") {
		t.Errorf("output missing raw amount:\n%s", out)
	}
}

func TestDaysCell(t *testing.T) {
	cases := []struct {
		days int
		want string
	}{
		{0, "today"},
		{1, "tomorrow"},
		{3, "3 days"},
		{10, "10 days"},
	}
	for _, tc := range cases {
		if got := daysCell(tc.days); !strings.Contains(got, tc.want) {
			t.Errorf("daysCell(%d) = %q, want it to contain %q", tc.days, tc.want, got)
		}
	}
}
