package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fitcore/fitness-gatekeeper/internal/events"
	"github.com/fitcore/fitness-gatekeeper/internal/service"
)

const defaultQueueSize = 256

// EventHandler processes one queued event.
type EventHandler func(context.Context, events.Event) error

// NotificationWorker moves notification delivery off the request path.
// Events are queued by a dispatcher subscription and drained by Run.
type NotificationWorker struct {
	queue   chan events.Event
	handle  EventHandler
	logger  *zap.Logger
	mu      sync.Mutex
	dropped int
}

// NewNotificationWorker builds a worker with a bounded queue.
func NewNotificationWorker(handle EventHandler, logger *zap.Logger, queueSize int) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &NotificationWorker{
		queue:  make(chan events.Event, queueSize),
		handle: handle,
		logger: logger,
	}
}

// Subscribe queues every event of the given types. A full queue drops the
// event instead of blocking the publisher.
func (w *NotificationWorker) Subscribe(dispatcher events.Dispatcher, types ...events.EventType) {
	for _, eventType := range types {
		dispatcher.Subscribe(eventType, w.enqueue)
	}
}

func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
	default:
		w.mu.Lock()
		w.dropped++
		w.mu.Unlock()
		w.logger.Warn("notification queue full; dropping event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
	}
	return nil
}

// Dropped reports how many events were discarded because the queue was full.
func (w *NotificationWorker) Dropped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// Run drains the queue until ctx is done. Handler errors are logged.
func (w *NotificationWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-w.queue:
			if err := w.handle(ctx, event); err != nil {
				w.logger.Error("notification handler failed",
					zap.String("event_id", event.ID),
					zap.String("event_type", string(event.Type)),
					zap.Error(err))
			}
		}
	}
}

// StartNotificationWorker wires the notification service behind a worker
// and starts draining in the background.
func StartNotificationWorker(ctx context.Context, dispatcher events.Dispatcher, notifications *service.NotificationService, logger *zap.Logger) *NotificationWorker {
	if dispatcher == nil || notifications == nil {
		return nil
	}
	w := NewNotificationWorker(notifications.Handle, logger, defaultQueueSize)
	w.Subscribe(dispatcher, service.NotifiedEvents()...)
	go w.Run(ctx)
	return w
}
