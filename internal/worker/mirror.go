// Package worker hosts the background workers: the notifier consumes
// mirror-sync and reminder-dispatch messages, the renewal daemon
// advances due subscriptions on a schedule.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"subtrack/internal/core"
	"subtrack/internal/service"
	"subtrack/internal/sheets"
	"subtrack/internal/store"
)

// MirrorPusher rebuilds the spreadsheet mirror from the local store.
// Every push replaces both tabs, so a push made for an old revision
// still lands the newest data.
type MirrorPusher struct {
	store     store.SubscriptionReader
	summaries *service.SummaryService
	history   *service.HistoryService
	mirror    sheets.Mirror
}

func NewMirrorPusher(st store.SubscriptionReader, summaries *service.SummaryService, history *service.HistoryService, mirror sheets.Mirror) *MirrorPusher {
	return &MirrorPusher{
		store:     st,
		summaries: summaries,
		history:   history,
		mirror:    mirror,
	}
}

// Push snapshots the store and replaces the subscription and history
// tabs. The two updates hit different sheet ranges and run in parallel.
func (p *MirrorPusher) Push(ctx context.Context) error {
	subs, err := p.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	costed := p.summaries.Cost(ctx, subs, core.Today())

	entries, err := p.history.Trend(0)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := p.mirror.ReplaceSubscriptions(gctx, costed); err != nil {
			return fmt.Errorf("mirror subscriptions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := p.mirror.ReplaceHistory(gctx, entries); err != nil {
			return fmt.Errorf("mirror history: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Mirror push complete",
		"subscriptions", len(costed),
		"history_rows", len(entries))
	return nil
}
