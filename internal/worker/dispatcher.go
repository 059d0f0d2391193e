package worker

import (
	"context"

	"subtrack/internal/amqp"
	"subtrack/internal/service"
)

// Dispatcher hands follow-up work to the notify pipeline. With a broker
// configured *amqp.Client satisfies it directly; LocalDispatcher runs
// the same work in-process for broker-less installs.
type Dispatcher interface {
	PublishMirrorSync(ctx context.Context, revision int64) error
	PublishReminderDispatch(ctx context.Context, days int, force bool) error
}

var _ Dispatcher = (*amqp.Client)(nil)

// LocalDispatcher executes mirror pushes and reminder runs inline
// instead of queueing them. Either side may be nil and is then a no-op,
// matching how a dropped message disappears from a queue.
type LocalDispatcher struct {
	reminders *service.ReminderService
	pusher    *MirrorPusher
}

var _ Dispatcher = (*LocalDispatcher)(nil)

func NewLocalDispatcher(reminders *service.ReminderService, pusher *MirrorPusher) *LocalDispatcher {
	return &LocalDispatcher{
		reminders: reminders,
		pusher:    pusher,
	}
}

func (d *LocalDispatcher) PublishMirrorSync(ctx context.Context, _ int64) error {
	if d.pusher == nil {
		return nil
	}
	return d.pusher.Push(ctx)
}

func (d *LocalDispatcher) PublishReminderDispatch(ctx context.Context, days int, force bool) error {
	if d.reminders == nil {
		return nil
	}
	_, err := d.reminders.CheckAndSend(ctx, service.ReminderOptions{Days: days, Force: force})
	return err
}
