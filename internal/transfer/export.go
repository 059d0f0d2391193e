// Package transfer moves the subscription set in and out of the app as
// CSV, XLSX or JSON, for backups and migration between installs.
package transfer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"subtrack/internal/core"
)

const bom = "\xef\xbb\xbf"

// ExportHeader is the column order of CSV and XLSX exports. Unlike the
// storage file it carries the derived monthly cost and days left so the
// export is readable on its own.
var ExportHeader = []string{
	"name", "vendor", "category", "cycle", "amount", "currency",
	"monthly_cost", "next_payment", "days_left", "auto_renew",
}

// Filename returns the download name for an export taken now.
func Filename(format string, now time.Time) string {
	return fmt.Sprintf("subscriptions_%s.%s", now.Format("20060102"), format)
}

func exportRow(c core.CostedSubscription) []string {
	autoRenew := "FALSE"
	if c.AutoRenew {
		autoRenew = "TRUE"
	}
	return []string{
		c.Name,
		c.Vendor,
		c.Category,
		c.Cycle.String(),
		c.Amount.String(),
		c.Currency,
		c.MonthlyLocal.String(),
		c.NextPayment.String(),
		strconv.Itoa(c.DaysLeft),
		autoRenew,
	}
}

// WriteCSV renders the costed subscriptions as a BOM-prefixed CSV.
func WriteCSV(w io.Writer, costed []core.CostedSubscription) error {
	if _, err := io.WriteString(w, bom); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, c := range costed {
		if err := cw.Write(exportRow(c)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const (
	sheetSubscriptions = "Subscriptions"
	sheetSummary       = "Summary"
)

// WriteXLSX renders a two-sheet workbook: the subscription table and a
// summary sheet with the KPI block.
func WriteXLSX(w io.Writer, costed []core.CostedSubscription, summary core.DashboardSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSubscriptions); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2563EB"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	header := make([]any, len(ExportHeader))
	for i, name := range ExportHeader {
		header[i] = name
	}
	if err := f.SetSheetRow(sheetSubscriptions, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(ExportHeader))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetSubscriptions, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetSubscriptions, "A", lastCol, 16); err != nil {
		return err
	}

	for i, c := range costed {
		row := []any{
			c.Name, c.Vendor, c.Category, c.Cycle.String(),
			c.Amount.Float64(), c.Currency, c.MonthlyLocal.Float64(),
			c.NextPayment.String(), c.DaysLeft, c.AutoRenew,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetSubscriptions, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := writeSummarySheet(f, summary); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, summary core.DashboardSummary) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}

	rows := [][]any{
		{"Subscriptions", summary.Total},
		{"Active", summary.Active},
		{"Monthly total (THB)", summary.MonthlyTotal.Float64()},
		{"Yearly estimate (THB)", summary.YearlyEstimate.Float64()},
		{"Renewal warnings", summary.Warnings},
		{},
		{"Category", "Monthly (THB)", "Share %"},
	}
	for _, spend := range summary.ByCategory {
		rows = append(rows, []any{spend.Name, spend.Monthly.Float64(), spend.Share})
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := rows[i]
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheetSummary, "A", "C", 22); err != nil {
		return err
	}
	return nil
}

type jsonExport struct {
	ExportedAt time.Time    `json:"exported_at"`
	Count      int          `json:"count"`
	Records    []jsonRecord `json:"subscriptions"`
}

type jsonRecord struct {
	Name        string  `json:"name"`
	Vendor      string  `json:"vendor,omitempty"`
	Category    string  `json:"category"`
	Cycle       string  `json:"cycle"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	MonthlyCost float64 `json:"monthly_cost"`
	NextPayment string  `json:"next_payment"`
	DaysLeft    int     `json:"days_left"`
	AutoRenew   bool    `json:"auto_renew"`
}

// WriteJSON renders the costed subscriptions as an indented JSON
// document with an export timestamp.
func WriteJSON(w io.Writer, costed []core.CostedSubscription, now time.Time) error {
	doc := jsonExport{
		ExportedAt: now,
		Count:      len(costed),
		Records:    make([]jsonRecord, 0, len(costed)),
	}
	for _, c := range costed {
		doc.Records = append(doc.Records, jsonRecord{
			Name:        c.Name,
			Vendor:      c.Vendor,
			Category:    c.Category,
			Cycle:       c.Cycle.String(),
			Amount:      c.Amount.Float64(),
			Currency:    c.Currency,
			MonthlyCost: c.MonthlyLocal.Float64(),
			NextPayment: c.NextPayment.String(),
			DaysLeft:    c.DaysLeft,
			AutoRenew:   c.AutoRenew,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
