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

	"triphub/internal/cache"
	"triphub/internal/config"
	"triphub/internal/events"
	"triphub/internal/models"
	"triphub/internal/repositories"
)

// ===============================
// FAKES
// ===============================

type fakeActionRepo struct {
	mu         sync.Mutex
	records    []models.ActionRecord
	nextID     int64
	failAppend bool
	failSumFor map[int64]bool
}

func (f *fakeActionRepo) Append(ctx context.Context, record *models.ActionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAppend {
		return fmt.Errorf("ledger storage unavailable")
	}
	f.nextID++
	record.ID = f.nextID
	record.OccurredAt = time.Now()
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeActionRepo) CountByType(ctx context.Context, userID int64, actionType models.ActionType) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, r := range f.records {
		if r.UserID == userID && r.ActionType == actionType {
			count++
		}
	}
	return count, nil
}

func (f *fakeActionRepo) CountsByUser(ctx context.Context, userID int64) (models.ActionCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(models.ActionCounts)
	for _, r := range f.records {
		if r.UserID == userID {
			counts[r.ActionType]++
		}
	}
	return counts, nil
}

func (f *fakeActionRepo) SumPoints(ctx context.Context, userID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSumFor[userID] {
		return 0, fmt.Errorf("storage failure")
	}
	total := 0
	for _, r := range f.records {
		if r.UserID == userID {
			total += r.PointsAwarded
		}
	}
	return total, nil
}

func (f *fakeActionRepo) CountEntityVotes(ctx context.Context, userID int64, entityKey, entityID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, r := range f.records {
		if r.UserID != userID || r.ActionType != models.ActionVoteReceived {
			continue
		}
		if raw, ok := r.Metadata[entityKey]; ok && fmt.Sprint(raw) == entityID {
			count++
		}
	}
	return count, nil
}

func (f *fakeActionRepo) MaxEntityVotes(ctx context.Context, userID int64, entityKey string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	perEntity := make(map[string]int)
	for _, r := range f.records {
		if r.UserID != userID || r.ActionType != models.ActionVoteReceived {
			continue
		}
		if raw, ok := r.Metadata[entityKey]; ok {
			perEntity[fmt.Sprint(raw)]++
		}
	}
	max := 0
	for _, votes := range perEntity {
		if votes > max {
			max = votes
		}
	}
	return max, nil
}

// seed inserts a ledger record directly, bypassing Append failure simulation.
func (f *fakeActionRepo) seed(userID int64, actionType models.ActionType, points int, metadata map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.records = append(f.records, models.ActionRecord{
		ID: f.nextID, UserID: userID, ActionType: actionType,
		PointsAwarded: points, Metadata: metadata, OccurredAt: time.Now(),
	})
}

type fakeProgressionRepo struct {
	mu     sync.Mutex
	states map[int64]models.ProgressionState
	badges map[int64][]models.EarnedBadge
}

func newFakeProgressionRepo() *fakeProgressionRepo {
	return &fakeProgressionRepo{
		states: make(map[int64]models.ProgressionState),
		badges: make(map[int64][]models.EarnedBadge),
	}
}

func (f *fakeProgressionRepo) GetState(ctx context.Context, userID int64) (*models.ProgressionState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[userID]
	if !ok {
		return nil, nil
	}
	state.Badges = append([]models.EarnedBadge(nil), f.badges[userID]...)
	return &state, nil
}

// GetStateForUpdate materializes a zero-value row when absent, matching the
// store's insert-if-absent-then-lock behavior.
func (f *fakeProgressionRepo) GetStateForUpdate(ctx context.Context, userID int64) (*models.ProgressionState, error) {
	f.mu.Lock()
	if _, ok := f.states[userID]; !ok {
		f.states[userID] = models.ProgressionState{UserID: userID, Level: 1, LastActivityAt: time.Now()}
	}
	f.mu.Unlock()
	return f.GetState(ctx, userID)
}

func (f *fakeProgressionRepo) UpsertState(ctx context.Context, state *models.ProgressionState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	state.UpdatedAt = time.Now()
	stored := *state
	stored.Badges = nil
	f.states[state.UserID] = stored
	return nil
}

func (f *fakeProgressionRepo) AddBadge(ctx context.Context, userID int64, badge models.EarnedBadge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, held := range f.badges[userID] {
		if held.Name == badge.Name {
			return nil
		}
	}
	f.badges[userID] = append(f.badges[userID], badge)
	return nil
}

func (f *fakeProgressionRepo) ListBadges(ctx context.Context, userID int64) ([]models.EarnedBadge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.EarnedBadge(nil), f.badges[userID]...), nil
}

func (f *fakeProgressionRepo) TopByPoints(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	return nil, nil
}

type fakeCatalogRepo struct {
	catalog *models.Catalog
}

func (f *fakeCatalogRepo) GetAllLevels(ctx context.Context) ([]*models.Level, error) {
	return f.catalog.Levels, nil
}

func (f *fakeCatalogRepo) GetAllBadges(ctx context.Context) ([]*models.Badge, error) {
	return f.catalog.Badges, nil
}

type fakeUserRepo struct {
	users map[int64]*models.User
	ids   []int64
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return f.users[id], nil
}

func (f *fakeUserRepo) ListActiveIDs(ctx context.Context) ([]int64, error) {
	return f.ids, nil
}

// fakeUnitOfWork serializes Do calls on one mutex, standing in for the state
// row lock.
type fakeUnitOfWork struct {
	mu          sync.Mutex
	actions     repositories.ActionRepository
	progression repositories.ProgressionRepository
}

type fakeTx struct {
	actions     repositories.ActionRepository
	progression repositories.ProgressionRepository
}

func (t *fakeTx) Actions() repositories.ActionRepository         { return t.actions }
func (t *fakeTx) Progression() repositories.ProgressionRepository { return t.progression }

func (u *fakeUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx repositories.Tx) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return fn(ctx, &fakeTx{actions: u.actions, progression: u.progression})
}

type fakeBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *fakeBus) Publish(ctx context.Context, event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
	return nil
}

func (b *fakeBus) Subscribe(eventType string, handler events.EventHandler) error { return nil }
func (b *fakeBus) Start(ctx context.Context) error                               { return nil }
func (b *fakeBus) Stop(ctx context.Context) error                                { return nil }
func (b *fakeBus) Stats() *events.EventBusStats                                  { return &events.EventBusStats{} }

func (b *fakeBus) eventsOfType(eventType string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var matched []events.Event
	for _, e := range b.published {
		if e.GetEventType() == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}

// ===============================
// FIXTURES
// ===============================

func testCatalog() *models.Catalog {
	return &models.Catalog{
		Levels: []*models.Level{
			{Number: 1, Name: "Novato", MinPoints: 5, Requirements: []models.LevelRequirement{
				{ActionType: models.ActionProfileCompleted, MinCount: 1},
			}},
			{Number: 2, Name: "Explorador", MinPoints: 35, GateLevel: 1, Requirements: []models.LevelRequirement{
				{ActionType: models.ActionReviewCreated, MinCount: 3},
			}},
			{Number: 3, Name: "Aventurero", MinPoints: 45, GateLevel: 2, Requirements: []models.LevelRequirement{
				{ActionType: models.ActionVoteReceived, MinCount: 10},
			}},
			{Number: 4, Name: "Trotamundos", MinPoints: 155, GateLevel: 2, Requirements: []models.LevelRequirement{
				{ActionType: models.ActionReviewCreated, MinCount: 10},
				{ActionType: models.ActionVoteReceived, MinCount: 50},
			}},
		},
		Badges: []*models.Badge{
			{ID: 1, Name: "🌍 Primera Reseña", Description: "You wrote your very first review.", Criteria: []models.BadgeCriterion{
				{Kind: models.CriterionNamed, SpecialID: models.SpecialFirstReview},
			}},
			{ID: 2, Name: "📷 Primera Foto", Criteria: []models.BadgeCriterion{
				{Kind: models.CriterionNamed, SpecialID: models.SpecialAnyMediaUpload},
			}},
			{ID: 3, Name: "👍 Bien Valorado", Criteria: []models.BadgeCriterion{
				{Kind: models.CriterionNamed, SpecialID: models.SpecialFiveVotes},
			}},
			{ID: 4, Name: "⭐ Reseña Popular", Criteria: []models.BadgeCriterion{
				{Kind: models.CriterionEntityVotes, EntityKey: "review_id", MinCount: 10},
			}},
			{ID: 5, Name: "🏆 Experto Local", Criteria: []models.BadgeCriterion{
				{Kind: models.CriterionLevelThreshold, MinLevel: 3},
			}},
			{ID: 6, Name: "✍️ Crítico Activo", Criteria: []models.BadgeCriterion{
				{Kind: models.CriterionActionCount, ActionType: models.ActionReviewCreated, MinCount: 10},
			}},
		},
	}
}

type testEnv struct {
	service     ProgressionService
	actions     *fakeActionRepo
	progression *fakeProgressionRepo
	users       *fakeUserRepo
	bus         *fakeBus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	actions := &fakeActionRepo{failSumFor: make(map[int64]bool)}
	progression := newFakeProgressionRepo()
	users := &fakeUserRepo{
		users: map[int64]*models.User{
			1: {ID: 1, Email: "ana@example.com", Username: "ana", IsActive: true},
			2: {ID: 2, Email: "ben@example.com", Username: "ben", IsActive: true},
		},
		ids: []int64{1, 2},
	}
	uow := &fakeUnitOfWork{actions: actions, progression: progression}
	bus := &fakeBus{}

	cacheInstance, err := cache.New(&config.CacheConfig{
		Provider:   "memory",
		DefaultTTL: time.Minute,
		StatsTTL:   time.Minute,
		MaxKeys:    100,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cacheInstance.Close() })

	cfg := &config.ProgressionConfig{ActionPoints: config.DefaultActionPoints()}

	service, err := NewProgressionService(
		context.Background(), uow, actions, progression, users,
		&fakeCatalogRepo{catalog: testCatalog()},
		cacheInstance, bus, cfg, zap.NewNop(),
	)
	require.NoError(t, err)

	return &testEnv{service: service, actions: actions, progression: progression, users: users, bus: bus}
}

// ===============================
// AWARD
// ===============================

func TestAwardFreshUser(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.service.Award(context.Background(), &AwardActionRequest{
		UserID:     1,
		ActionType: string(models.ActionProfileCompleted),
	})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Stats.Points)
	assert.Equal(t, 1, result.Stats.Level)
	assert.Equal(t, "Novato", result.Stats.LevelName)
	assert.Empty(t, result.Stats.Badges)
	assert.Nil(t, result.Notification)

	// Reaching the baseline level on a first award is not a level-up.
	assert.Empty(t, env.bus.eventsOfType(events.EventTypeLevelUp))
}

func TestAwardInvalidAction(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Award(context.Background(), &AwardActionRequest{
		UserID:     1,
		ActionType: "teleported",
	})
	require.Error(t, err)
	assert.True(t, IsInvalidActionError(err))
	assert.Empty(t, env.actions.records)
}

func TestAwardUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Award(context.Background(), &AwardActionRequest{
		UserID:     999,
		ActionType: string(models.ActionReviewCreated),
	})
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
	assert.Empty(t, env.actions.records)
}

func TestAwardLevelUp(t *testing.T) {
	env := newTestEnv(t)
	env.actions.seed(1, models.ActionProfileCompleted, 5, nil)
	env.actions.seed(1, models.ActionReviewCreated, 10, nil)
	env.actions.seed(1, models.ActionReviewCreated, 10, nil)
	require.NoError(t, env.service.RecalculateUserStats(context.Background(), 1))

	result, err := env.service.Award(context.Background(), &AwardActionRequest{
		UserID:     1,
		ActionType: string(models.ActionReviewCreated),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.Level)
	assert.Equal(t, "Explorador", result.Stats.LevelName)
	require.NotNil(t, result.Notification)
	require.NotNil(t, result.Notification.NewLevel)
	assert.Equal(t, 2, *result.Notification.NewLevel)
	assert.Contains(t, result.Notification.Message, "Explorador")

	published := env.bus.eventsOfType(events.EventTypeLevelUp)
	require.Len(t, published, 1)
	levelUp := published[0].(*events.LevelUpEvent)
	assert.Equal(t, 1, levelUp.OldLevel)
	assert.Equal(t, 2, levelUp.NewLevel)
	assert.Equal(t, "ana@example.com", levelUp.UserEmail)
}

func TestAwardLevelUpWithMissingSnapshot(t *testing.T) {
	env := newTestEnv(t)
	// A qualifying ledger with no snapshot row, as left behind by a failed
	// state transaction. The first award must still announce the level-up.
	env.actions.seed(1, models.ActionProfileCompleted, 5, nil)
	for i := 0; i < 3; i++ {
		env.actions.seed(1, models.ActionReviewCreated, 10, nil)
	}

	result, err := env.service.Award(context.Background(), &AwardActionRequest{
		UserID:     1,
		ActionType: string(models.ActionCommentPosted),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.Level)
	require.NotNil(t, result.Notification)
	require.NotNil(t, result.Notification.NewLevel)
	assert.Equal(t, 2, *result.Notification.NewLevel)
	assert.Equal(t, "Explorador", result.Notification.LevelName)

	published := env.bus.eventsOfType(events.EventTypeLevelUp)
	require.Len(t, published, 1)
	levelUp := published[0].(*events.LevelUpEvent)
	assert.Equal(t, 1, levelUp.OldLevel)
	assert.Equal(t, 2, levelUp.NewLevel)
}

func TestAwardFirstReviewBadgeOnce(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.service.Award(context.Background(), &AwardActionRequest{
		UserID:     1,
		ActionType: string(models.ActionReviewCreated),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Notification)
	assert.Contains(t, result.Notification.NewBadges, "🌍 Primera Reseña")

	second, err := env.service.Award(context.Background(), &AwardActionRequest{
		UserID:     1,
		ActionType: string(models.ActionReviewCreated),
	})
	require.NoError(t, err)
	if second.Notification != nil {
		assert.NotContains(t, second.Notification.NewBadges, "🌍 Primera Reseña")
	}

	badges, err := env.progression.ListBadges(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, badges, 1)

	assert.Len(t, env.bus.eventsOfType(events.EventTypeBadgeEarned), 1)
}

func TestAwardEntityVotesBadge(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 9; i++ {
		env.actions.seed(1, models.ActionVoteReceived, 1, map[string]interface{}{"review_id": "42"})
	}

	result, err := env.service.Award(context.Background(), &AwardActionRequest{
		UserID:     1,
		ActionType: string(models.ActionVoteReceived),
		Metadata:   map[string]interface{}{"review_id": "42"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Notification)
	assert.Contains(t, result.Notification.NewBadges, "⭐ Reseña Popular")
	assert.Contains(t, result.Notification.NewBadges, "👍 Bien Valorado")
}

func TestAwardSurvivesLedgerFailure(t *testing.T) {
	env := newTestEnv(t)
	env.actions.failAppend = true

	result, err := env.service.Award(context.Background(), &AwardActionRequest{
		UserID:     1,
		ActionType: string(models.ActionProfileCompleted),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Stats.Points)
	assert.Empty(t, env.actions.records)
}

func TestAwardZeroPointActionIsLedgered(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.service.Award(context.Background(), &AwardActionRequest{
		UserID:     1,
		ActionType: string(models.ActionExpenseCreated),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Stats.Points)
	require.Len(t, env.actions.records, 1)
	assert.Equal(t, 0, env.actions.records[0].PointsAwarded)
}

func TestConcurrentAwardsSameUser(t *testing.T) {
	env := newTestEnv(t)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.service.Award(context.Background(), &AwardActionRequest{
				UserID:     1,
				ActionType: string(models.ActionVoteReceived),
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats, err := env.service.GetUserStats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Points)
}

func TestAwardNoLevelUpNotificationOnDecrease(t *testing.T) {
	env := newTestEnv(t)
	// Snapshot claims level 3 but the ledger supports only level 1.
	env.actions.seed(1, models.ActionProfileCompleted, 5, nil)
	require.NoError(t, env.progression.UpsertState(context.Background(), &models.ProgressionState{
		UserID: 1, Points: 5, Level: 3, LevelName: "Aventurero", LastActivityAt: time.Now(),
	}))

	result, err := env.service.Award(context.Background(), &AwardActionRequest{
		UserID:     1,
		ActionType: string(models.ActionCommentPosted),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.Level)
	assert.Nil(t, result.Notification)
	assert.Empty(t, env.bus.eventsOfType(events.EventTypeLevelUp))
}

// ===============================
// STATS
// ===============================

func TestGetUserStatsFreshUser(t *testing.T) {
	env := newTestEnv(t)

	stats, err := env.service.GetUserStats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Points)
	assert.Equal(t, 1, stats.Level)
	assert.Equal(t, "Novato", stats.LevelName)
	assert.Empty(t, stats.Badges)
	assert.Nil(t, stats.LastActivityAt)
}

func TestGetUserStatsUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.GetUserStats(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestGetUserStatsProgressToNext(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.progression.UpsertState(context.Background(), &models.ProgressionState{
		UserID: 1, Points: 20, Level: 1, LevelName: "Novato", LastActivityAt: time.Now(),
	}))

	stats, err := env.service.GetUserStats(context.Background(), 1)
	require.NoError(t, err)
	// Between level 1 (5 points) and level 2 (35 points): (20-5)/(35-5) = 50%.
	assert.Equal(t, 50, stats.ProgressToNext)
}

func TestGetUserStatsTopLevelProgress(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.progression.UpsertState(context.Background(), &models.ProgressionState{
		UserID: 1, Points: 500, Level: 4, LevelName: "Trotamundos", LastActivityAt: time.Now(),
	}))

	stats, err := env.service.GetUserStats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 100, stats.ProgressToNext)
}

// ===============================
// MILESTONES
// ===============================

func TestGetUserMilestonesPartialProgress(t *testing.T) {
	env := newTestEnv(t)
	env.actions.seed(1, models.ActionProfileCompleted, 5, nil)
	for i := 0; i < 3; i++ {
		env.actions.seed(1, models.ActionReviewCreated, 10, nil)
	}
	for i := 0; i < 6; i++ {
		env.actions.seed(1, models.ActionVoteReceived, 1, map[string]interface{}{"review_id": "7"})
	}

	milestones, err := env.service.GetUserMilestones(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, milestones, 10)

	byID := make(map[string]models.Milestone, len(milestones))
	for _, m := range milestones {
		byID[m.ID] = m
	}

	assert.True(t, byID["level-1"].IsCompleted)
	assert.True(t, byID["level-2"].IsCompleted)

	level3 := byID["level-3"]
	assert.False(t, level3.IsCompleted)
	assert.Equal(t, 6, level3.Progress)
	assert.Equal(t, 10, level3.Target)

	critic := byID["badge-6"]
	assert.False(t, critic.IsCompleted)
	assert.Equal(t, 3, critic.Progress)
	assert.Equal(t, 10, critic.Target)

	popular := byID["badge-4"]
	assert.Equal(t, 6, popular.Progress)
	assert.Equal(t, 10, popular.Target)
}

func TestGetUserMilestonesDeterministic(t *testing.T) {
	env := newTestEnv(t)
	env.actions.seed(1, models.ActionReviewCreated, 10, nil)

	first, err := env.service.GetUserMilestones(context.Background(), 1)
	require.NoError(t, err)
	second, err := env.service.GetUserMilestones(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// ===============================
// RECALCULATION
// ===============================

func TestRecalculateHealsDrift(t *testing.T) {
	env := newTestEnv(t)
	env.actions.seed(1, models.ActionProfileCompleted, 5, nil)
	for i := 0; i < 3; i++ {
		env.actions.seed(1, models.ActionReviewCreated, 10, nil)
	}
	require.NoError(t, env.progression.UpsertState(context.Background(), &models.ProgressionState{
		UserID: 1, Points: 999, Level: 4, LevelName: "Trotamundos", LastActivityAt: time.Now(),
	}))

	require.NoError(t, env.service.RecalculateUserStats(context.Background(), 1))

	state, err := env.progression.GetState(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 35, state.Points)
	assert.Equal(t, 2, state.Level)
	assert.Equal(t, "Explorador", state.LevelName)
}

func TestRecalculatePreservesBadges(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.progression.AddBadge(context.Background(), 1, models.EarnedBadge{
		Name: "🌍 Primera Reseña", EarnedAt: time.Now(),
	}))

	require.NoError(t, env.service.RecalculateUserStats(context.Background(), 1))

	badges, err := env.progression.ListBadges(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, badges, 1)
	assert.Equal(t, "🌍 Primera Reseña", badges[0].Name)
}

func TestRecalculateUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	err := env.service.RecalculateUserStats(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}
