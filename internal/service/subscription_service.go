// Package service orchestrates the subscription domain: CRUD with
// validation, auto-renewal advancement, reminder dispatch, and monthly
// spend snapshots.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/rates"
	"subtrack/internal/store"
)

// SyncPublisher queues a mirror refresh after local writes. The local
// store is the source of truth; mirroring is best-effort.
type SyncPublisher interface {
	PublishMirrorSync(ctx context.Context, revision int64) error
}

// SubscriptionService is the write path for subscriptions. Every
// mutation is sanitized and validated before it reaches the store, and
// followed by a non-blocking mirror publish.
type SubscriptionService struct {
	store     store.SubscriptionStore
	catalog   *core.Catalog
	publisher SyncPublisher
}

func NewSubscriptionService(st store.SubscriptionStore, catalog *core.Catalog, publisher SyncPublisher) *SubscriptionService {
	return &SubscriptionService{
		store:     st,
		catalog:   catalog,
		publisher: publisher,
	}
}

func (s *SubscriptionService) List(ctx context.Context) ([]core.Subscription, error) {
	return s.store.List(ctx)
}

func (s *SubscriptionService) Get(ctx context.Context, id int64) (core.Subscription, error) {
	return s.store.Get(ctx, id)
}

// Create saves a new subscription locally and queues a mirror refresh.
func (s *SubscriptionService) Create(ctx context.Context, sub core.Subscription) (int64, error) {
	sub = s.clean(sub)
	if err := sub.Validate(s.catalog); err != nil {
		return 0, fmt.Errorf("validate subscription: %w", err)
	}

	id, err := s.store.Add(ctx, sub)
	if err != nil {
		return 0, fmt.Errorf("save subscription: %w", err)
	}

	s.publishSync(ctx)
	return id, nil
}

func (s *SubscriptionService) Update(ctx context.Context, sub core.Subscription) error {
	sub = s.clean(sub)
	if err := sub.Validate(s.catalog); err != nil {
		return fmt.Errorf("validate subscription: %w", err)
	}

	if err := s.store.Update(ctx, sub); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	s.publishSync(ctx)
	return nil
}

func (s *SubscriptionService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}

	s.publishSync(ctx)
	return nil
}

// ReplaceAll swaps the whole subscription set, used by imports. Every
// record must validate or nothing is written.
func (s *SubscriptionService) ReplaceAll(ctx context.Context, subs []core.Subscription) error {
	cleaned := make([]core.Subscription, len(subs))
	for i, sub := range subs {
		cleaned[i] = s.clean(sub)
		if err := cleaned[i].Validate(s.catalog); err != nil {
			return fmt.Errorf("record %d (%s): %w", i+1, cleaned[i].Name, err)
		}
	}

	if err := s.store.ReplaceAll(ctx, cleaned); err != nil {
		return fmt.Errorf("replace subscriptions: %w", err)
	}

	s.publishSync(ctx)
	return nil
}

func (s *SubscriptionService) clean(sub core.Subscription) core.Subscription {
	sub.Name = core.Sanitize(sub.Name)
	sub.Vendor = core.Sanitize(sub.Vendor)
	sub.Category = core.Sanitize(sub.Category)
	sub.Currency = NormalizeCurrency(sub.Currency)
	sub.NextPayment = sub.NextPayment.Normalize()
	return sub
}

func (s *SubscriptionService) publishSync(ctx context.Context) {
	if s.publisher == nil {
		return
	}
	revision := time.Now().UnixMilli()
	if err := s.publisher.PublishMirrorSync(ctx, revision); err != nil {
		slog.ErrorContext(ctx, "Failed to publish mirror sync message",
			"revision", revision, "error", err)
		// The write already succeeded locally, so the request is not failed.
	}
}

// NormalizeCurrency upper-cases a currency code, defaulting empty input
// to the base currency.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return rates.BaseCurrency
	}
	return code
}
