package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"subtrack/internal/core"
)

// ErrNothingToSnapshot is returned when a snapshot is requested with no
// subscriptions on file.
var ErrNothingToSnapshot = errors.New("no subscriptions to snapshot")

// HistoryEntry is one monthly spend snapshot.
type HistoryEntry struct {
	Date           core.Date
	Count          int
	MonthlyTotal   core.Money
	YearlyEstimate core.Money
	ByCategory     map[string]core.Money // keyed by the default categories
}

// HistoryService appends monthly snapshots of the subscription spend to
// a CSV file and computes trends over them. One row per calendar month;
// a snapshot taken in an already-recorded month replaces that row.
type HistoryService struct {
	path string
}

func NewHistoryService(path string) *HistoryService {
	return &HistoryService{path: path}
}

func historyHeader() []string {
	header := []string{"date", "count", "monthly_total", "yearly_estimate"}
	for _, cat := range core.DefaultCategories {
		header = append(header, strings.ToLower(cat))
	}
	return header
}

// Snapshot records the current spend. Categories outside the default
// set are folded into Other so the file keeps a fixed shape.
func (h *HistoryService) Snapshot(costed []core.CostedSubscription, today core.Date) error {
	if len(costed) == 0 {
		return ErrNothingToSnapshot
	}

	byCategory := map[string]core.Money{}
	monthly := core.Money{}
	for _, c := range costed {
		monthly = monthly.Add(c.MonthlyCost)
		cat := canonicalCategory(c.Category)
		byCategory[cat] = byCategory[cat].Add(c.MonthlyCost)
	}

	entry := HistoryEntry{
		Date:           today,
		Count:          len(costed),
		MonthlyTotal:   monthly,
		YearlyEstimate: monthly.MulInt(12),
		ByCategory:     byCategory,
	}

	entries, err := h.load()
	if err != nil {
		return err
	}

	kept := entries[:0]
	for _, e := range entries {
		if sameMonth(e.Date, today) {
			continue
		}
		kept = append(kept, e)
	}
	kept = append(kept, entry)

	return h.save(kept)
}

// Trend returns the most recent snapshots in chronological order.
func (h *HistoryService) Trend(months int) ([]HistoryEntry, error) {
	entries, err := h.load()
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date.Time)
	})
	if months > 0 && len(entries) > months {
		entries = entries[len(entries)-months:]
	}
	return entries, nil
}

// GrowthRate compares the two latest snapshots and returns the
// month-over-month change of the monthly total as a percentage.
// ok is false with fewer than two snapshots or a zero previous total.
func (h *HistoryService) GrowthRate() (decimal.Decimal, bool) {
	entries, err := h.Trend(2)
	if err != nil || len(entries) < 2 {
		return decimal.Zero, false
	}

	current := entries[1].MonthlyTotal.Value
	previous := entries[0].MonthlyTotal.Value
	if previous.IsZero() {
		return decimal.Zero, false
	}

	rate := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100))
	return rate.Round(2), true
}

func (h *HistoryService) load() ([]HistoryEntry, error) {
	f, err := os.Open(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}
	records[0][0] = strings.TrimPrefix(records[0][0], reminderLogBOM)

	col := map[string]int{}
	for i, name := range records[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}

	field := func(row []string, name string) string {
		if i, ok := col[name]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var entries []HistoryEntry
	for _, row := range records[1:] {
		date, err := core.ParseDate(field(row, "date"))
		if err != nil {
			continue
		}
		entry := HistoryEntry{
			Date:           date,
			ByCategory:     map[string]core.Money{},
			MonthlyTotal:   parseMoney(field(row, "monthly_total")),
			YearlyEstimate: parseMoney(field(row, "yearly_estimate")),
		}
		entry.Count, _ = strconv.Atoi(field(row, "count"))
		for _, cat := range core.DefaultCategories {
			entry.ByCategory[cat] = parseMoney(field(row, strings.ToLower(cat)))
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (h *HistoryService) save(entries []HistoryEntry) error {
	f, err := os.Create(h.path)
	if err != nil {
		return fmt.Errorf("create history: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(reminderLogBOM); err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(historyHeader()); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			e.Date.String(),
			strconv.Itoa(e.Count),
			e.MonthlyTotal.String(),
			e.YearlyEstimate.String(),
		}
		for _, cat := range core.DefaultCategories {
			row = append(row, e.ByCategory[cat].String())
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// canonicalCategory maps any category onto the fixed snapshot columns.
func canonicalCategory(cat string) string {
	for _, known := range core.DefaultCategories {
		if cat == known {
			return cat
		}
	}
	return core.CategoryOther
}

func sameMonth(a, b core.Date) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func parseMoney(s string) core.Money {
	if s == "" {
		return core.Money{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Money{}
	}
	return core.NewMoney(d)
}
