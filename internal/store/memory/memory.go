package memory

import (
	"context"
	"sync"

	"subtrack/internal/core"
)

// Store keeps subscriptions in memory. Used by tests and demo mode.
type Store struct {
	mu     sync.Mutex
	nextID int64
	items  []core.Subscription
}

func New() *Store {
	return &Store{nextID: 1}
}

// NewSeeded creates a store pre-filled with the given subscriptions.
func NewSeeded(subs []core.Subscription) *Store {
	s := New()
	for i := range subs {
		sub := subs[i]
		sub.ID = s.nextID
		s.nextID++
		s.items = append(s.items, sub)
	}
	return s
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
	return sub.ID, nil
}

func (s *Store) Update(_ context.Context, sub core.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == sub.ID {
			s.items[i] = sub
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
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) ReplaceAll(_ context.Context, subs []core.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = s.items[:0]
	s.nextID = 1
	for i := range subs {
		sub := subs[i]
		sub.ID = s.nextID
		s.nextID++
		s.items = append(s.items, sub)
	}
	return nil
}
