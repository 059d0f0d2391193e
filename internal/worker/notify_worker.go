package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"subtrack/internal/amqp"
	"subtrack/internal/service"
)

// NotifyWorker handles the notifier's two message flows: spreadsheet
// mirror refreshes and reminder digests. Either side may be absent; a
// message for a missing side is acknowledged and dropped so it does not
// loop through the queue forever.
type NotifyWorker struct {
	reminders *service.ReminderService
	pusher    *MirrorPusher

	mu           sync.Mutex
	lastRevision int64
}

func NewNotifyWorker(reminders *service.ReminderService, pusher *MirrorPusher) *NotifyWorker {
	return &NotifyWorker{
		reminders: reminders,
		pusher:    pusher,
	}
}

// HandleMirrorSync refreshes the spreadsheet mirror. Revisions are
// write timestamps and every push is a full snapshot, so a revision at
// or below the last applied one is already covered and skipped.
func (w *NotifyWorker) HandleMirrorSync(ctx context.Context, msg *amqp.MirrorSyncMessage) error {
	if w.pusher == nil {
		slog.WarnContext(ctx, "No mirror configured, dropping sync message",
			"revision", msg.Revision)
		return nil
	}

	w.mu.Lock()
	last := w.lastRevision
	w.mu.Unlock()
	if msg.Revision <= last {
		slog.InfoContext(ctx, "Skipping stale mirror sync",
			"revision", msg.Revision,
			"last_applied", last)
		return nil
	}

	slog.InfoContext(ctx, "Processing mirror sync message", "revision", msg.Revision)

	if err := w.pusher.Push(ctx); err != nil {
		return fmt.Errorf("push mirror: %w", err)
	}

	w.mu.Lock()
	if msg.Revision > w.lastRevision {
		w.lastRevision = msg.Revision
	}
	w.mu.Unlock()
	return nil
}

// HandleReminderDispatch runs one reminder pass with the window the
// scheduler asked for.
func (w *NotifyWorker) HandleReminderDispatch(ctx context.Context, msg *amqp.ReminderDispatchMessage) error {
	if w.reminders == nil {
		slog.WarnContext(ctx, "No reminder service configured, dropping dispatch message",
			"days", msg.Days)
		return nil
	}

	slog.InfoContext(ctx, "Processing reminder dispatch message",
		"days", msg.Days,
		"force", msg.Force)

	result, err := w.reminders.CheckAndSend(ctx, service.ReminderOptions{
		Days:  msg.Days,
		Force: msg.Force,
	})
	if err != nil {
		return fmt.Errorf("reminder run: %w", err)
	}

	slog.InfoContext(ctx, "Reminder run complete",
		"due", len(result.Due),
		"sent", len(result.Sent),
		"skipped", len(result.Skipped),
		"muted", len(result.Muted))
	return nil
}
