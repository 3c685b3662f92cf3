package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"triphub/internal/cache"
	"triphub/internal/config"
	"triphub/internal/database"
	"triphub/internal/events"
	"triphub/internal/repositories"
)

// ServiceCollection wires the repositories, services and background workers
// into one explicitly constructed graph. Nothing here is a global; callers own
// the collection's lifecycle.
type ServiceCollection struct {
	Progression    ProgressionService
	Reconciliation ReconciliationService
	Users          repositories.UserRepository

	bus        events.EventBus
	dispatcher *notificationDispatcher
	cache      cache.Cache
	logger     *zap.Logger
}

// NewServiceCollection builds the full service graph on top of an open
// database manager and cache.
func NewServiceCollection(
	ctx context.Context,
	cfg *config.Config,
	db *database.Manager,
	cacheInstance cache.Cache,
	sink NotificationSink,
	logger *zap.Logger,
) (*ServiceCollection, error) {
	actionRepo := repositories.NewActionRepository(db, logger)
	catalogRepo := repositories.NewCatalogRepository(db, logger)
	progressionRepo := repositories.NewProgressionRepository(db, logger)
	userRepo := repositories.NewUserRepository(db, logger)
	uow := repositories.NewUnitOfWork(db, logger)

	bus := events.NewInMemoryEventBus(&events.EventBusConfig{
		BufferSize:     cfg.Progression.NotifyQueueSize,
		WorkerCount:    cfg.Progression.NotifyWorkerCount,
		HandlerTimeout: events.DefaultEventBusConfig().HandlerTimeout,
	}, logger)

	if sink == nil {
		sink = NewLogSink(logger)
	}
	dispatcher := NewNotificationDispatcher(
		sink,
		cfg.Progression.NotifyQueueSize,
		cfg.Progression.NotifyWorkerCount,
		logger,
	)
	if err := dispatcher.RegisterHandlers(bus); err != nil {
		return nil, fmt.Errorf("failed to register notification handlers: %w", err)
	}

	progression, err := NewProgressionService(
		ctx, uow, actionRepo, progressionRepo, userRepo, catalogRepo,
		cacheInstance, bus, &cfg.Progression, logger,
	)
	if err != nil {
		return nil, err
	}

	reconciliation := NewReconciliationService(userRepo, progression, cfg.Progression.RecalcRetries, logger)

	return &ServiceCollection{
		Progression:    progression,
		Reconciliation: reconciliation,
		Users:          userRepo,
		bus:            bus,
		dispatcher:     dispatcher,
		cache:          cacheInstance,
		logger:         logger,
	}, nil
}

// Start launches the event bus and notification workers.
func (c *ServiceCollection) Start(ctx context.Context) error {
	if err := c.bus.Start(ctx); err != nil {
		return err
	}
	return c.dispatcher.Start(ctx)
}

// Shutdown stops the background workers, draining queued notifications.
func (c *ServiceCollection) Shutdown(ctx context.Context) error {
	var firstErr error
	if err := c.bus.Stop(ctx); err != nil {
		firstErr = err
	}
	if err := c.dispatcher.Stop(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// EventBusStats exposes bus counters for the health endpoint.
func (c *ServiceCollection) EventBusStats() *events.EventBusStats {
	return c.bus.Stats()
}
