package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/service"
	"subtrack/internal/store"
)

// RenewWorker runs one renewal cycle: advance due auto-renew
// subscriptions, refresh the monthly spend snapshot, then dispatch a
// mirror refresh and a reminder pass. Dispatching every cycle also
// heals the mirror after lost messages; the reminder daily log keeps
// digests at one per day.
type RenewWorker struct {
	store        store.SubscriptionReader
	processor    *service.RenewalProcessor
	summaries    *service.SummaryService
	history      *service.HistoryService
	dispatcher   Dispatcher
	reminderDays int
}

func NewRenewWorker(st store.SubscriptionReader, processor *service.RenewalProcessor, summaries *service.SummaryService, history *service.HistoryService, dispatcher Dispatcher, reminderDays int) *RenewWorker {
	return &RenewWorker{
		store:        st,
		processor:    processor,
		summaries:    summaries,
		history:      history,
		dispatcher:   dispatcher,
		reminderDays: reminderDays,
	}
}

// RunOnce executes a single renewal cycle. Dispatch failures are logged
// but do not fail the cycle: the renewals are already persisted.
func (w *RenewWorker) RunOnce(ctx context.Context) error {
	today := core.Today()

	renewals, err := w.processor.ProcessDue(ctx, today)
	if err != nil {
		return fmt.Errorf("process due renewals: %w", err)
	}
	for _, r := range renewals {
		slog.InfoContext(ctx, "Advanced subscription",
			"id", r.ID,
			"name", r.Name,
			"from", r.From.String(),
			"to", r.To.String())
	}

	if err := w.snapshot(ctx, today); err != nil {
		return err
	}

	w.dispatch(ctx)

	slog.InfoContext(ctx, "Renewal cycle complete", "renewed", len(renewals))
	return nil
}

func (w *RenewWorker) snapshot(ctx context.Context, today core.Date) error {
	subs, err := w.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	costed := w.summaries.Cost(ctx, subs, today)

	if err := w.history.Snapshot(costed, today); err != nil {
		if errors.Is(err, service.ErrNothingToSnapshot) {
			slog.InfoContext(ctx, "Skipping snapshot, no subscriptions on file")
			return nil
		}
		return fmt.Errorf("snapshot history: %w", err)
	}
	return nil
}

func (w *RenewWorker) dispatch(ctx context.Context) {
	if w.dispatcher == nil {
		return
	}

	revision := time.Now().UnixMilli()
	if err := w.dispatcher.PublishMirrorSync(ctx, revision); err != nil {
		slog.ErrorContext(ctx, "Failed to dispatch mirror sync",
			"revision", revision, "error", err)
	}
	if err := w.dispatcher.PublishReminderDispatch(ctx, w.reminderDays, false); err != nil {
		slog.ErrorContext(ctx, "Failed to dispatch reminders",
			"days", w.reminderDays, "error", err)
	}
}
