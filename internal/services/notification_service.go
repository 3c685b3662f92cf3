package services

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"triphub/internal/events"
)

// notificationDispatcher consumes progression events off the bus and pushes
// them through its own bounded queue to the sink. Delivery is fire-and-forget:
// a failed or dropped notification is logged and gone, the award that caused
// it already committed.
type notificationDispatcher struct {
	sink    NotificationSink
	queue   chan func(ctx context.Context)
	workers int
	logger  *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewNotificationDispatcher creates the notification worker pool.
func NewNotificationDispatcher(sink NotificationSink, queueSize, workers int, logger *zap.Logger) *notificationDispatcher {
	if queueSize <= 0 {
		queueSize = 100
	}
	if workers <= 0 {
		workers = 1
	}
	return &notificationDispatcher{
		sink:    sink,
		queue:   make(chan func(ctx context.Context), queueSize),
		workers: workers,
		logger:  logger,
	}
}

// RegisterHandlers subscribes the dispatcher to the progression events.
func (d *notificationDispatcher) RegisterHandlers(bus events.EventBus) error {
	err := bus.Subscribe(events.EventTypeBadgeEarned, events.EventHandlerFunc{
		ID:   "notification-badge-earned",
		Func: d.handleBadgeEarned,
	})
	if err != nil {
		return err
	}
	return bus.Subscribe(events.EventTypeLevelUp, events.EventHandlerFunc{
		ID:   "notification-level-up",
		Func: d.handleLevelUp,
	})
}

// Start launches the delivery workers.
func (d *notificationDispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return fmt.Errorf("notification dispatcher already started")
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(workerCtx)
	}

	d.logger.Info("Notification dispatcher started", zap.Int("workers", d.workers))
	return nil
}

// Stop drains pending deliveries, waiting up to the context deadline.
func (d *notificationDispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil
	}
	d.started = false
	cancel := d.cancel
	d.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notification dispatcher shutdown timed out: %w", ctx.Err())
	}
}

func (d *notificationDispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case deliver := <-d.queue:
			deliver(ctx)
		case <-ctx.Done():
			for {
				select {
				case deliver := <-d.queue:
					deliver(ctx)
				default:
					return
				}
			}
		}
	}
}

// enqueue hands a delivery to the workers without ever blocking the bus.
func (d *notificationDispatcher) enqueue(kind string, deliver func(ctx context.Context)) {
	select {
	case d.queue <- deliver:
	default:
		d.logger.Warn("Notification queue full, dropping notification", zap.String("kind", kind))
	}
}

func (d *notificationDispatcher) handleBadgeEarned(ctx context.Context, event events.Event) error {
	badgeEvent, ok := event.(*events.BadgeEarnedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.GetEventType())
	}

	notification := &BadgeNotification{UserEmail: badgeEvent.UserEmail}
	notification.Badge.Name = badgeEvent.BadgeName
	notification.Badge.Description = badgeEvent.BadgeDescription

	d.enqueue("badge", func(ctx context.Context) {
		if err := d.sink.DeliverBadge(ctx, notification); err != nil {
			d.logger.Warn("Badge notification delivery failed",
				zap.Error(err),
				zap.String("user_email", notification.UserEmail),
				zap.String("badge", notification.Badge.Name),
			)
		}
	})
	return nil
}

func (d *notificationDispatcher) handleLevelUp(ctx context.Context, event events.Event) error {
	levelEvent, ok := event.(*events.LevelUpEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.GetEventType())
	}

	notification := &LevelUpNotification{
		UserEmail: levelEvent.UserEmail,
		NewLevel:  levelEvent.NewLevel,
		LevelName: levelEvent.LevelName,
	}

	d.enqueue("level_up", func(ctx context.Context) {
		if err := d.sink.DeliverLevelUp(ctx, notification); err != nil {
			d.logger.Warn("Level-up notification delivery failed",
				zap.Error(err),
				zap.String("user_email", notification.UserEmail),
				zap.Int("new_level", notification.NewLevel),
			)
		}
	})
	return nil
}

// ===============================
// LOG SINK
// ===============================

// logSink is the default NotificationSink: it writes the payload to the log.
// Production wires a real delivery channel behind the same interface.
type logSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink that logs every notification.
func NewLogSink(logger *zap.Logger) NotificationSink {
	return &logSink{logger: logger}
}

func (s *logSink) DeliverBadge(ctx context.Context, n *BadgeNotification) error {
	s.logger.Info("Badge notification",
		zap.String("user_email", n.UserEmail),
		zap.String("badge", n.Badge.Name),
		zap.String("description", n.Badge.Description),
	)
	return nil
}

func (s *logSink) DeliverLevelUp(ctx context.Context, n *LevelUpNotification) error {
	s.logger.Info("Level-up notification",
		zap.String("user_email", n.UserEmail),
		zap.Int("new_level", n.NewLevel),
		zap.String("level_name", n.LevelName),
	)
	return nil
}
