package http

import (
	"sort"
	"strings"

	"subtrack/internal/core"
	"subtrack/internal/rates"
)

// sanitizeInput trims whitespace and strips control characters except
// tab, newline, and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// formatMoney renders an amount with its currency symbol for display.
func formatMoney(m core.Money, currency string) string {
	return rates.FormatAmount(m.Value, currency)
}

// barWidth converts a value into a CSS width percent scaled against
// the largest value in the chart. Small nonzero values keep a minimum
// width of 2 so their bar stays visible.
func barWidth(part, max float64) int {
	if max <= 0 || part <= 0 {
		return 0
	}
	width := int(part/max*100 + 0.5)
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}

// daysBadge maps a days-left count onto the badge modifier class used
// by the table and the upcoming timeline.
func daysBadge(days int) string {
	switch {
	case days < 0:
		return "overdue"
	case days <= 7:
		return "due-soon"
	default:
		return "ok"
	}
}

// Sortable table columns.
const (
	sortByName     = "name"
	sortByCategory = "category"
	sortByAmount   = "amount"
	sortByDays     = "days"
)

// sortCosted orders the table rows in place. Unknown keys fall back
// to next-payment order, the default view.
func sortCosted(costed []core.CostedSubscription, key string, desc bool) {
	less := func(i, j int) bool {
		switch key {
		case sortByName:
			return strings.ToLower(costed[i].Name) < strings.ToLower(costed[j].Name)
		case sortByCategory:
			return strings.ToLower(costed[i].Category) < strings.ToLower(costed[j].Category)
		case sortByAmount:
			return costed[i].MonthlyCost.Cmp(costed[j].MonthlyCost) < 0
		case sortByDays:
			return costed[i].DaysLeft < costed[j].DaysLeft
		default:
			return costed[i].DaysLeft < costed[j].DaysLeft
		}
	}
	if desc {
		sort.SliceStable(costed, func(i, j int) bool { return less(j, i) })
		return
	}
	sort.SliceStable(costed, less)
}
