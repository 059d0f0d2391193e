package transfer

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"subtrack/internal/core"
	"subtrack/internal/rates"
)

// MergeMode selects how imported records combine with the existing set.
type MergeMode string

const (
	// MergeReplace discards the existing set.
	MergeReplace MergeMode = "replace"
	// MergeAppend keeps both, deduplicating by name with the newest
	// occurrence winning.
	MergeAppend MergeMode = "append"
	// MergeUpdate updates existing records by name and appends unknown
	// ones.
	MergeUpdate MergeMode = "merge"
)

func ParseMergeMode(s string) (MergeMode, error) {
	switch MergeMode(strings.ToLower(strings.TrimSpace(s))) {
	case MergeReplace:
		return MergeReplace, nil
	case MergeAppend:
		return MergeAppend, nil
	case MergeUpdate:
		return MergeUpdate, nil
	}
	return "", fmt.Errorf("unknown merge mode %q", s)
}

// RowError is a parse failure for one imported row. Rows with errors
// are skipped; the rest of the file still imports.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// ImportResult is the outcome of parsing one uploaded file.
type ImportResult struct {
	Subscriptions []core.Subscription
	Skipped       []RowError
}

// Read parses an uploaded file in the given format (csv, xlsx, xls or
// json).
func Read(r io.Reader, format string) (*ImportResult, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return ReadCSV(r)
	case "xlsx", "xls":
		return ReadXLSX(r)
	case "json":
		return ReadJSON(r)
	}
	return nil, fmt.Errorf("unsupported import format %q", format)
}

// DetectFormat maps an uploaded filename to an import format.
func DetectFormat(filename string) (string, error) {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 {
		return "", fmt.Errorf("cannot tell the format of %q", filename)
	}
	ext := strings.ToLower(filename[idx+1:])
	switch ext {
	case "csv", "xlsx", "xls", "json":
		return ext, nil
	}
	return "", fmt.Errorf("unsupported file type .%s", ext)
}

// headerAliases maps accepted column spellings onto canonical field
// names. Derived columns from our own exports map to the empty string
// and are ignored, they are recomputed on load.
var headerAliases = map[string]string{
	"name": "name", "subscription": "name", "subscription_name": "name", "名称": "name",
	"vendor": "vendor", "provider": "vendor", "supplier": "vendor", "供应商": "vendor",
	"category": "category", "service_type": "category", "服务性质": "category",
	"cycle": "cycle", "billing_cycle": "cycle", "billing cycle": "cycle", "订阅类型": "cycle",
	"amount": "amount", "price": "amount", "金额": "amount",
	"currency": "currency", "货币": "currency",
	"next_payment": "next_payment", "next payment": "next_payment",
	"next_payment_date": "next_payment", "due_date": "next_payment", "下次付费时间": "next_payment",
	"auto_renew": "auto_renew", "auto-renew": "auto_renew",
	"autorenew": "auto_renew", "自动续费": "auto_renew",
	"monthly_cost": "", "monthly cost": "", "月均成本": "",
	"days_left": "", "days left": "", "剩余天数": "",
}

var requiredColumns = []string{"name", "category", "cycle", "amount", "next_payment", "auto_renew"}

// mapHeader resolves a header row to canonical-field -> column-index.
func mapHeader(header []string) (map[string]int, error) {
	cols := map[string]int{}
	for i, cell := range header {
		cell = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, bom)))
		canonical, ok := headerAliases[cell]
		if !ok || canonical == "" {
			continue
		}
		if _, dup := cols[canonical]; !dup {
			cols[canonical] = i
		}
	}

	var missing []string
	for _, required := range requiredColumns {
		if _, ok := cols[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// normalizeCell trims a cell and maps null-ish spellings to empty.
func normalizeCell(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "none", "null":
		return ""
	}
	return s
}

var (
	trueWords  = []string{"TRUE", "T", "YES", "Y", "1", "是", "真"}
	falseWords = []string{"FALSE", "F", "NO", "N", "0", "否", "假"}
)

// ParseBool reads the renewal flag permissively. Unrecognized or empty
// values mean false: a wrongly manual subscription only under-reminds,
// a wrongly automatic one invents charges.
func ParseBool(s string) bool {
	s = strings.ToUpper(normalizeCell(s))
	for _, w := range trueWords {
		if s == w {
			return true
		}
	}
	return false
}

func parseRow(cells map[string]string) (core.Subscription, error) {
	name := core.Sanitize(cells["name"])
	if name == "" {
		return core.Subscription{}, errors.New("empty name")
	}

	amount, err := core.ParseAmount(cells["amount"])
	if err != nil {
		return core.Subscription{}, fmt.Errorf("amount %q: %w", cells["amount"], err)
	}

	next, err := core.ParseDate(cells["next_payment"])
	if err != nil {
		return core.Subscription{}, fmt.Errorf("next payment %q: %w", cells["next_payment"], err)
	}

	currency := strings.ToUpper(cells["currency"])
	if currency == "" {
		currency = rates.BaseCurrency
	}

	return core.Subscription{
		Name:        name,
		Vendor:      core.Sanitize(cells["vendor"]),
		Category:    core.Sanitize(cells["category"]),
		Cycle:       core.NormalizeCycle(cells["cycle"]),
		Amount:      amount,
		Currency:    currency,
		NextPayment: next,
		AutoRenew:   ParseBool(cells["auto_renew"]),
	}, nil
}

// parseRows turns header-mapped rows into subscriptions, collecting
// per-row failures. firstRow is the sheet row number of rows[0].
func parseRows(cols map[string]int, rows [][]string, firstRow int) *ImportResult {
	result := &ImportResult{}
	for i, row := range rows {
		rowNum := firstRow + i

		cells := map[string]string{}
		empty := true
		for field, idx := range cols {
			if idx < len(row) {
				cells[field] = normalizeCell(row[idx])
				if cells[field] != "" {
					empty = false
				}
			}
		}
		if empty {
			continue
		}

		sub, err := parseRow(cells)
		if err != nil {
			result.Skipped = append(result.Skipped, RowError{Row: rowNum, Err: err})
			continue
		}
		result.Subscriptions = append(result.Subscriptions, sub)
	}
	return result
}

// ReadCSV parses a CSV backup. The first row must be a header.
func ReadCSV(r io.Reader) (*ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("empty file")
	}

	cols, err := mapHeader(records[0])
	if err != nil {
		return nil, err
	}
	return parseRows(cols, records[1:], 2), nil
}

// ReadXLSX parses the first sheet of a workbook. The header row does
// not have to be the first row, leading blurb rows are skipped.
func ReadXLSX(r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}

	for i, row := range rows {
		cols, err := mapHeader(row)
		if err == nil {
			return parseRows(cols, rows[i+1:], i+2), nil
		}
	}
	return nil, errors.New("no header row found in the first sheet")
}

// ReadJSON parses a JSON backup: either our export envelope or a bare
// array of records.
func ReadJSON(r io.Reader) (*ImportResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}

	var records []map[string]any
	var envelope struct {
		Records []map[string]any `json:"subscriptions"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Records != nil {
		records = envelope.Records
	} else if err := json.Unmarshal(raw, &records); err != nil {
		return nil, errors.New("json is neither an export document nor an array of records")
	}

	result := &ImportResult{}
	for i, record := range records {
		rowNum := i + 1

		cells := map[string]string{}
		for key, value := range record {
			canonical, ok := headerAliases[strings.ToLower(strings.TrimSpace(key))]
			if !ok || canonical == "" {
				continue
			}
			cells[canonical] = normalizeCell(jsonCell(value))
		}
		if len(cells) == 0 {
			continue
		}

		sub, err := parseRow(cells)
		if err != nil {
			result.Skipped = append(result.Skipped, RowError{Row: rowNum, Err: err})
			continue
		}
		result.Subscriptions = append(result.Subscriptions, sub)
	}
	return result, nil
}

func jsonCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Merge combines the existing and imported sets according to mode.
func Merge(existing, imported []core.Subscription, mode MergeMode) []core.Subscription {
	switch mode {
	case MergeAppend:
		return dedupeByName(append(append([]core.Subscription(nil), existing...), imported...))
	case MergeUpdate:
		out := append([]core.Subscription(nil), existing...)
		index := map[string]int{}
		for i, sub := range out {
			index[sub.Name] = i
		}
		for _, sub := range imported {
			if i, ok := index[sub.Name]; ok {
				sub.ID = out[i].ID
				out[i] = sub
				continue
			}
			index[sub.Name] = len(out)
			out = append(out, sub)
		}
		return out
	default: // MergeReplace
		return append([]core.Subscription(nil), imported...)
	}
}

// dedupeByName keeps the last occurrence of every name, in its
// original position.
func dedupeByName(subs []core.Subscription) []core.Subscription {
	last := map[string]int{}
	for i, sub := range subs {
		last[sub.Name] = i
	}
	out := make([]core.Subscription, 0, len(last))
	for i, sub := range subs {
		if last[sub.Name] == i {
			out = append(out, sub)
		}
	}
	return out
}
