package google

import (
	"subtrack/internal/core"
	"subtrack/internal/rates"
	"subtrack/internal/service"
)

// Row builders are pure so tests can check the exact cell layout
// without a live spreadsheet. Amounts go out as fixed-point strings and
// USER_ENTERED turns them into sheet numbers.

func subscriptionRows(costed []core.CostedSubscription) [][]any {
	rows := make([][]any, 0, len(costed)+1)
	rows = append(rows, []any{
		"Name", "Vendor", "Category", "Cycle", "Amount", "Currency",
		"Monthly (" + rates.BaseCurrency + ")", "Next payment", "Days left", "Auto-renew",
	})
	for _, c := range costed {
		rows = append(rows, []any{
			c.Name,
			c.Vendor,
			c.Category,
			c.Cycle.String(),
			c.Amount.String(),
			c.Currency,
			c.MonthlyCost.String(),
			c.NextPayment.String(),
			c.DaysLeft,
			boolCell(c.AutoRenew),
		})
	}
	return rows
}

func historyRows(entries []service.HistoryEntry) [][]any {
	header := []any{"Month", "Subscriptions", "Monthly (" + rates.BaseCurrency + ")", "Yearly estimate"}
	for _, cat := range core.DefaultCategories {
		header = append(header, cat)
	}

	rows := make([][]any, 0, len(entries)+1)
	rows = append(rows, header)
	for _, e := range entries {
		row := []any{
			e.Date.String(),
			e.Count,
			e.MonthlyTotal.String(),
			e.YearlyEstimate.String(),
		}
		for _, cat := range core.DefaultCategories {
			row = append(row, e.ByCategory[cat].String())
		}
		rows = append(rows, row)
	}
	return rows
}

func boolCell(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
