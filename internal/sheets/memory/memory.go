// Package memory is an in-process stand-in for the Google Sheets
// mirror. It records the last push so tests and broker-less installs
// can observe mirror traffic without a spreadsheet.
package memory

import (
	"context"
	"sync"

	"subtrack/internal/core"
	"subtrack/internal/service"
	ports "subtrack/internal/sheets"
)

type Mirror struct {
	mu            sync.Mutex
	subscriptions []core.CostedSubscription
	history       []service.HistoryEntry
	pushes        int
	err           error
}

var _ ports.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

// FailWith makes every subsequent push return err. Passing nil clears it.
func (m *Mirror) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Mirror) ReplaceSubscriptions(_ context.Context, costed []core.CostedSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.subscriptions = append([]core.CostedSubscription(nil), costed...)
	m.pushes++
	return nil
}

func (m *Mirror) ReplaceHistory(_ context.Context, entries []service.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.history = append([]service.HistoryEntry(nil), entries...)
	m.pushes++
	return nil
}

// Subscriptions returns a copy of the last pushed subscription snapshot.
func (m *Mirror) Subscriptions() []core.CostedSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.CostedSubscription(nil), m.subscriptions...)
}

// History returns a copy of the last pushed history trend.
func (m *Mirror) History() []service.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]service.HistoryEntry(nil), m.history...)
}

// Pushes counts successful sheet replacements across both tabs.
func (m *Mirror) Pushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pushes
}
