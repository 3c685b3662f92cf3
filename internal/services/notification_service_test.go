package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"triphub/internal/events"
)

type recordingSink struct {
	mu       sync.Mutex
	badges   []*BadgeNotification
	levelUps []*LevelUpNotification
	fail     bool
}

func (s *recordingSink) DeliverBadge(ctx context.Context, n *BadgeNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("smtp unavailable")
	}
	s.badges = append(s.badges, n)
	return nil
}

func (s *recordingSink) DeliverLevelUp(ctx context.Context, n *LevelUpNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("smtp unavailable")
	}
	s.levelUps = append(s.levelUps, n)
	return nil
}

func (s *recordingSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.badges), len(s.levelUps)
}

func startDispatcher(t *testing.T, sink NotificationSink) events.EventBus {
	t.Helper()

	bus := events.NewInMemoryEventBus(&events.EventBusConfig{
		BufferSize:     16,
		WorkerCount:    2,
		HandlerTimeout: time.Second,
	}, zap.NewNop())

	dispatcher := NewNotificationDispatcher(sink, 16, 2, zap.NewNop())
	require.NoError(t, dispatcher.RegisterHandlers(bus))
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, dispatcher.Start(context.Background()))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = bus.Stop(ctx)
		_ = dispatcher.Stop(ctx)
	})

	return bus
}

func TestDispatcherDeliversBadgeAndLevelUp(t *testing.T) {
	sink := &recordingSink{}
	bus := startDispatcher(t, sink)

	require.NoError(t, bus.Publish(context.Background(),
		events.NewBadgeEarnedEvent(1, "ana@example.com", "🌍 Primera Reseña", "First review.")))
	require.NoError(t, bus.Publish(context.Background(),
		events.NewLevelUpEvent(1, "ana@example.com", 1, 2, "Explorador")))

	require.Eventually(t, func() bool {
		badges, levelUps := sink.counts()
		return badges == 1 && levelUps == 1
	}, 2*time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, "ana@example.com", sink.badges[0].UserEmail)
	assert.Equal(t, "🌍 Primera Reseña", sink.badges[0].Badge.Name)
	assert.Equal(t, 2, sink.levelUps[0].NewLevel)
	assert.Equal(t, "Explorador", sink.levelUps[0].LevelName)
}

func TestDispatcherSwallowsSinkFailures(t *testing.T) {
	sink := &recordingSink{fail: true}
	bus := startDispatcher(t, sink)

	require.NoError(t, bus.Publish(context.Background(),
		events.NewBadgeEarnedEvent(1, "ana@example.com", "📷 Primera Foto", "")))

	// Failed delivery is logged and dropped; nothing recorded, nothing panics.
	time.Sleep(100 * time.Millisecond)
	badges, levelUps := sink.counts()
	assert.Equal(t, 0, badges)
	assert.Equal(t, 0, levelUps)
}
