// Package csvstore persists subscriptions in a single CSV file.
//
// The file is what the user sees and may hand-edit: UTF-8 with BOM so
// spreadsheet tools open it correctly, header row, dates as YYYY-MM-DD,
// booleans as TRUE/FALSE. Derived values (days left, monthly cost) are
// never written. Writes go through a temp file and rename so a crash
// cannot leave a half-written file behind.
package csvstore

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"subtrack/internal/core"
)

const bom = "\xef\xbb\xbf"

// Header is the canonical column order of the subscriptions file.
var Header = []string{"name", "vendor", "category", "cycle", "amount", "currency", "next_payment", "auto_renew"}

// DefaultFilename is the subscriptions file name inside the data directory.
const DefaultFilename = "subscriptions.csv"

type Store struct {
	mu     sync.Mutex
	path   string
	nextID int64
	items  []core.Subscription
}

// New opens the subscription file at path, creating an empty store when
// the file does not exist yet.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s := &Store{path: path, nextID: 1}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewInDir opens the default subscriptions file inside dataDir.
func NewInDir(dataDir string) (*Store, error) {
	return New(filepath.Join(dataDir, DefaultFilename))
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() error {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open subscriptions file: %w", err)
	}
	defer f.Close()

	subs, err := Read(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	s.items = s.items[:0]
	for i := range subs {
		sub := subs[i]
		sub.ID = s.nextID
		s.nextID++
		s.items = append(s.items, sub)
	}
	return nil
}

// Read parses subscriptions from CSV content. Rows with an empty name are
// skipped; a malformed amount or date fails with the row number.
func Read(r io.Reader) ([]core.Subscription, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	// First header cell may carry the BOM.
	records[0][0] = strings.TrimPrefix(records[0][0], bom)

	col := map[string]int{}
	for i, name := range records[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"name", "amount", "next_payment"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var subs []core.Subscription
	for n, row := range records[1:] {
		name := cell(row, "name")
		if name == "" {
			continue
		}

		amount, err := core.ParseAmount(cell(row, "amount"))
		if err != nil {
			return nil, fmt.Errorf("row %d (%s): %w", n+2, name, err)
		}
		due, err := core.ParseDate(cell(row, "next_payment"))
		if err != nil {
			return nil, fmt.Errorf("row %d (%s): %w", n+2, name, err)
		}

		currency := strings.ToUpper(cell(row, "currency"))
		if currency == "" {
			currency = "THB"
		}

		subs = append(subs, core.Subscription{
			Name:        name,
			Vendor:      cell(row, "vendor"),
			Category:    cell(row, "category"),
			Cycle:       core.NormalizeCycle(cell(row, "cycle")),
			Amount:      amount,
			Currency:    currency,
			NextPayment: due,
			AutoRenew:   parseBool(cell(row, "auto_renew")),
		})
	}
	return subs, nil
}

// Write renders subscriptions as CSV with BOM and canonical header.
func Write(w io.Writer, subs []core.Subscription) error {
	if _, err := io.WriteString(w, bom); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, sub := range subs {
		row := []string{
			sub.Name,
			sub.Vendor,
			sub.Category,
			sub.Cycle.String(),
			sub.Amount.String(),
			sub.Currency,
			sub.NextPayment.String(),
			formatBool(sub.AutoRenew),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// persist writes the current set atomically. Caller holds the mutex.
func (s *Store) persist() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".subscriptions-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := Write(tmp, s.items); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write subscriptions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace subscriptions file: %w", err)
	}
	return nil
}

func (s *Store) List(_ context.Context) ([]core.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Subscription(nil), s.items...), nil
}

func (s *Store) Get(_ context.Context, id int64) (core.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.items {
		if sub.ID == id {
			return sub, nil
		}
	}
	return core.Subscription{}, core.ErrNotFound
}

func (s *Store) Add(_ context.Context, sub core.Subscription) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.ID = s.nextID
	s.nextID++
	s.items = append(s.items, sub)
	if err := s.persist(); err != nil {
		s.items = s.items[:len(s.items)-1]
		s.nextID--
		return 0, err
	}
	return sub.ID, nil
}

func (s *Store) Update(_ context.Context, sub core.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == sub.ID {
			prev := s.items[i]
			s.items[i] = sub
			if err := s.persist(); err != nil {
				s.items[i] = prev
				return err
			}
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			prev := s.items[i]
			s.items = append(s.items[:i], s.items[i+1:]...)
			if err := s.persist(); err != nil {
				s.items = append(s.items[:i], append([]core.Subscription{prev}, s.items[i:]...)...)
				return err
			}
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) ReplaceAll(_ context.Context, subs []core.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, prevNext := s.items, s.nextID
	s.items = nil
	s.nextID = 1
	for i := range subs {
		sub := subs[i]
		sub.ID = s.nextID
		s.nextID++
		s.items = append(s.items, sub)
	}
	if err := s.persist(); err != nil {
		s.items, s.nextID = prev, prevNext
		return err
	}
	return nil
}

func parseBool(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRUE", "T", "YES", "Y", "1":
		return true
	default:
		return false
	}
}

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
