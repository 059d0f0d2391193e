package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"subtrack/internal/core"
	"subtrack/internal/service"
)

// printDue renders the due subscriptions as a table. Amounts are shown in
// the billed currency and normalized to a monthly cost in the base currency.
func printDue(ctx context.Context, w io.Writer, conv service.CurrencyConverter, due []service.ReminderItem, baseCurrency string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Name", "Category", "Due", "In", "Amount", "Monthly (" + baseCurrency + ")", "Renewal", "Note"})

	var total core.Money
	for _, item := range due {
		sub := item.Subscription
		base := sub.Amount.Value
		if conv != nil {
			base = conv.ToBase(ctx, sub.Amount.Value, sub.Currency)
		}
		monthly := core.NewMoney(base).DivInt(sub.Cycle.MonthlyDivisor())
		total = total.Add(monthly)

		t.AppendRow(table.Row{
			sub.Name,
			sub.Category,
			sub.NextPayment.String(),
			daysCell(item.DaysLeft),
			sub.Amount.String() + " " + sub.Currency,
			monthly.String(),
			renewalCell(sub.AutoRenew),
			item.Note,
		})
	}

	t.AppendSeparator()
	t.AppendFooter(table.Row{"", "", "", "", text.Bold.Sprint("Total"), text.Bold.Sprint(total.String()), "", ""})

	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	t.Render()
}

func daysCell(days int) string {
	switch {
	case days <= 0:
		return text.FgRed.Sprint("today")
	case days == 1:
		return text.FgYellow.Sprint("tomorrow")
	case days <= 3:
		return text.FgYellow.Sprintf("%d days", days)
	default:
		return fmt.Sprintf("%d days", days)
	}
}

func renewalCell(autoRenew bool) string {
	if autoRenew {
		return text.FgGreen.Sprint("auto")
	}
	return text.FgHiBlack.Sprint("manual")
}
