package rates

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	bom             = "\xef\xbb\xbf"
	cacheTimeLayout = "2006-01-02 15:04:05"
)

// FileCache persists the latest fixings as a small CSV file
// (currency,rate,updated_at) so restarts and sibling processes do not
// re-hit the API inside the TTL window.
type FileCache struct {
	path string
}

func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// Load returns the cached rates and when they were written.
// A missing or malformed file yields an empty map and zero time.
func (c *FileCache) Load() (map[string]decimal.Decimal, time.Time) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, time.Time{}
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil || len(records) < 2 {
		return nil, time.Time{}
	}
	records[0][0] = strings.TrimPrefix(records[0][0], bom)

	col := map[string]int{}
	for i, name := range records[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	ci, ok1 := col["currency"]
	ri, ok2 := col["rate"]
	if !ok1 || !ok2 {
		return nil, time.Time{}
	}

	var updatedAt time.Time
	if ui, ok := col["updated_at"]; ok && ui < len(records[1]) {
		updatedAt, _ = time.ParseInLocation(cacheTimeLayout, records[1][ui], time.Local)
	}

	result := map[string]decimal.Decimal{BaseCurrency: decimal.NewFromInt(1)}
	for _, row := range records[1:] {
		if ci >= len(row) || ri >= len(row) {
			continue
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(row[ri]))
		if err != nil {
			continue
		}
		result[strings.TrimSpace(row[ci])] = rate
	}
	return result, updatedAt
}

// Save writes the fixings. THB is implicit and never stored.
func (c *FileCache) Save(fixings map[string]decimal.Decimal, at time.Time) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".rates-*.csv")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := writeCache(tmp, fixings, at); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write rate cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close rate cache: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace rate cache: %w", err)
	}
	return nil
}

func writeCache(w io.Writer, fixings map[string]decimal.Decimal, at time.Time) error {
	if _, err := io.WriteString(w, bom); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"currency", "rate", "updated_at"}); err != nil {
		return err
	}
	stamp := at.Format(cacheTimeLayout)
	for _, code := range SupportedCurrencies {
		if code == BaseCurrency {
			continue
		}
		rate, ok := fixings[code]
		if !ok {
			continue
		}
		if err := cw.Write([]string{code, rate.String(), stamp}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
