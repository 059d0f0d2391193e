package service

import (
	"context"
	"fmt"
	"log/slog"

	"subtrack/internal/core"
	"subtrack/internal/store"
)

// Renewal records one auto-renewal advancement.
type Renewal struct {
	ID   int64
	Name string
	From core.Date
	To   core.Date
}

// RenewalProcessor advances the next-payment date of expired
// auto-renewing subscriptions. Lifetime and manually renewed
// subscriptions are never touched.
type RenewalProcessor struct {
	store store.SubscriptionStore
}

func NewRenewalProcessor(st store.SubscriptionStore) *RenewalProcessor {
	return &RenewalProcessor{store: st}
}

// ProcessDue walks every subscription whose payment date has passed and
// advances it cycle by cycle until it lands on or after today. A
// subscription due exactly today is left alone, the charge happens
// today.
func (p *RenewalProcessor) ProcessDue(ctx context.Context, today core.Date) ([]Renewal, error) {
	subs, err := p.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	var renewals []Renewal
	for _, sub := range subs {
		if !sub.AutoRenew || sub.Cycle == core.CycleLifetime {
			continue
		}
		if sub.DaysLeft(today) >= 0 {
			continue
		}

		from := sub.NextPayment
		next := sub.NextPayment
		for today.DaysUntil(next) < 0 {
			next = sub.Cycle.Advance(next)
		}
		sub.NextPayment = next

		if err := p.store.Update(ctx, sub); err != nil {
			slog.ErrorContext(ctx, "Failed to persist auto-renewal",
				"subscription", sub.Name,
				"from", from.String(),
				"to", next.String(),
				"error", err)
			continue
		}

		renewals = append(renewals, Renewal{
			ID:   sub.ID,
			Name: sub.Name,
			From: from,
			To:   next,
		})
		slog.InfoContext(ctx, "Advanced auto-renewing subscription",
			"subscription", sub.Name,
			"cycle", sub.Cycle.String(),
			"from", from.String(),
			"to", next.String())
	}

	if len(renewals) > 0 {
		slog.InfoContext(ctx, "Auto-renewal processing complete",
			"renewed", len(renewals),
			"total_checked", len(subs))
	}

	return renewals, nil
}
