package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ===============================
// EVENT INTERFACE
// ===============================

// Event represents a domain event
type Event interface {
	GetEventID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetUserID() *int64
}

// BaseEvent provides common event functionality
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	UserID    *int64    `json:"user_id,omitempty"`
}

// GetEventID returns the event ID
func (e *BaseEvent) GetEventID() string { return e.EventID }

// GetEventType returns the event type
func (e *BaseEvent) GetEventType() string { return e.EventType }

// GetTimestamp returns the event timestamp
func (e *BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

// GetUserID returns the user ID associated with the event
func (e *BaseEvent) GetUserID() *int64 { return e.UserID }

// ===============================
// EVENT BUS
// ===============================

// EventBus publishes domain events to subscribed handlers. Delivery is
// asynchronous and best-effort: handler errors are logged, never surfaced to
// the publisher.
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType string, handler EventHandler) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Stats() *EventBusStats
}

// EventHandler handles one event.
type EventHandler interface {
	Handle(ctx context.Context, event Event) error
	GetHandlerID() string
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc struct {
	ID   string
	Func func(ctx context.Context, event Event) error
}

// Handle implements EventHandler
func (f EventHandlerFunc) Handle(ctx context.Context, event Event) error {
	return f.Func(ctx, event)
}

// GetHandlerID implements EventHandler
func (f EventHandlerFunc) GetHandlerID() string { return f.ID }

// EventBusStats represents event bus counters.
type EventBusStats struct {
	EventsPublished int64 `json:"events_published"`
	EventsProcessed int64 `json:"events_processed"`
	EventsFailed    int64 `json:"events_failed"`
	EventsDropped   int64 `json:"events_dropped"`
	HandlersCount   int   `json:"handlers_count"`
	QueueDepth      int   `json:"queue_depth"`
}

// EventBusConfig holds configuration for the in-memory bus.
type EventBusConfig struct {
	BufferSize     int           `json:"buffer_size"`
	WorkerCount    int           `json:"worker_count"`
	HandlerTimeout time.Duration `json:"handler_timeout"`
}

// DefaultEventBusConfig returns default configuration
func DefaultEventBusConfig() *EventBusConfig {
	return &EventBusConfig{
		BufferSize:     1000,
		WorkerCount:    4,
		HandlerTimeout: 30 * time.Second,
	}
}

// ===============================
// IN-MEMORY EVENT BUS
// ===============================

type inMemoryEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
	queue    chan Event
	logger   *zap.Logger
	config   *EventBusConfig
	stats    EventBusStats
	statsMu  sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  bool
}

// NewInMemoryEventBus creates an in-memory event bus.
func NewInMemoryEventBus(config *EventBusConfig, logger *zap.Logger) EventBus {
	if config == nil {
		config = DefaultEventBusConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &inMemoryEventBus{
		handlers: make(map[string][]EventHandler),
		queue:    make(chan Event, config.BufferSize),
		logger:   logger,
		config:   config,
	}
}

// Publish enqueues an event for asynchronous delivery. A full queue drops the
// event rather than blocking the publisher.
func (b *inMemoryEventBus) Publish(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	select {
	case b.queue <- event:
		b.count(func(s *EventBusStats) { s.EventsPublished++ })
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		b.count(func(s *EventBusStats) { s.EventsDropped++ })
		b.logger.Warn("Event queue full, dropping event",
			zap.String("event_type", event.GetEventType()),
			zap.String("event_id", event.GetEventID()),
		)
		return nil
	}
}

// Subscribe registers a handler for an event type.
func (b *inMemoryEventBus) Subscribe(eventType string, handler EventHandler) error {
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// Start launches the delivery workers.
func (b *inMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return fmt.Errorf("event bus already started")
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.started = true

	for i := 0; i < b.config.WorkerCount; i++ {
		b.wg.Add(1)
		go b.worker(workerCtx)
	}

	b.logger.Info("Event bus started",
		zap.Int("workers", b.config.WorkerCount),
		zap.Int("buffer_size", b.config.BufferSize),
	)
	return nil
}

// Stop drains the workers, waiting up to the context deadline.
func (b *inMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = false
	cancel := b.cancel
	b.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus shutdown timed out: %w", ctx.Err())
	}
}

// Stats returns a copy of the bus counters.
func (b *inMemoryEventBus) Stats() *EventBusStats {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	s := b.stats
	b.mu.RLock()
	for _, hs := range b.handlers {
		s.HandlersCount += len(hs)
	}
	b.mu.RUnlock()
	s.QueueDepth = len(b.queue)
	return &s
}

func (b *inMemoryEventBus) worker(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case event := <-b.queue:
			b.dispatch(event)
		case <-ctx.Done():
			// Drain whatever is already queued before exiting.
			for {
				select {
				case event := <-b.queue:
					b.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (b *inMemoryEventBus) dispatch(event Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.handlers[event.GetEventType()]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		ctx, cancel := context.WithTimeout(context.Background(), b.config.HandlerTimeout)
		err := handler.Handle(ctx, event)
		cancel()

		if err != nil {
			b.count(func(s *EventBusStats) { s.EventsFailed++ })
			b.logger.Error("Event handler failed",
				zap.String("event_type", event.GetEventType()),
				zap.String("event_id", event.GetEventID()),
				zap.String("handler_id", handler.GetHandlerID()),
				zap.Error(err),
			)
			continue
		}
		b.count(func(s *EventBusStats) { s.EventsProcessed++ })
	}
}

func (b *inMemoryEventBus) count(fn func(*EventBusStats)) {
	b.statsMu.Lock()
	fn(&b.stats)
	b.statsMu.Unlock()
}
