package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"triphub/internal/cache"
	"triphub/internal/config"
	"triphub/internal/events"
	"triphub/internal/models"
	"triphub/internal/repositories"
)

// progressionService implements the progression engine. It holds no mutable
// per-user state; everything mutable lives in the transactional store, so
// concurrent calls for different users need no coordination and concurrent
// calls for the same user serialize on the state row lock.
type progressionService struct {
	uow         repositories.UnitOfWork
	actions     repositories.ActionRepository
	progression repositories.ProgressionRepository
	users       repositories.UserRepository
	catalogRepo repositories.CatalogRepository
	cache       cache.Cache
	bus         events.EventBus
	cfg         *config.ProgressionConfig
	logger      *zap.Logger

	catalogMu sync.RWMutex
	catalog   *models.Catalog
}

// NewProgressionService constructs the engine and loads the level/badge
// catalog, which is immutable for the life of the process.
func NewProgressionService(
	ctx context.Context,
	uow repositories.UnitOfWork,
	actions repositories.ActionRepository,
	progression repositories.ProgressionRepository,
	users repositories.UserRepository,
	catalogRepo repositories.CatalogRepository,
	cacheInstance cache.Cache,
	bus events.EventBus,
	cfg *config.ProgressionConfig,
	logger *zap.Logger,
) (ProgressionService, error) {
	s := &progressionService{
		uow:         uow,
		actions:     actions,
		progression: progression,
		users:       users,
		catalogRepo: catalogRepo,
		cache:       cacheInstance,
		bus:         bus,
		cfg:         cfg,
		logger:      logger,
	}

	if err := s.loadCatalog(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *progressionService) loadCatalog(ctx context.Context) error {
	levels, err := s.catalogRepo.GetAllLevels(ctx)
	if err != nil {
		return fmt.Errorf("failed to load level catalog: %w", err)
	}
	if len(levels) == 0 {
		return fmt.Errorf("level catalog is empty; seed migrations not applied")
	}
	badges, err := s.catalogRepo.GetAllBadges(ctx)
	if err != nil {
		return fmt.Errorf("failed to load badge catalog: %w", err)
	}

	s.catalogMu.Lock()
	s.catalog = &models.Catalog{Levels: levels, Badges: badges}
	s.catalogMu.Unlock()

	s.logger.Info("Progression catalog loaded",
		zap.Int("levels", len(levels)),
		zap.Int("badges", len(badges)),
	)
	return nil
}

func (s *progressionService) getCatalog() *models.Catalog {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	return s.catalog
}

// ===============================
// AWARD
// ===============================

// Award runs the single logical award transaction: ledger append, point
// increment, level re-evaluation, badge re-evaluation. The ledger append is
// best-effort; a failure there is logged and the state update proceeds, with
// the nightly reconciliation correcting any drift.
func (s *progressionService) Award(ctx context.Context, req *AwardActionRequest) (*AwardResult, error) {
	actionType := models.ActionType(req.ActionType)
	if !actionType.Valid() {
		return nil, NewInvalidActionError(req.ActionType)
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		s.logger.Error("Failed to look up user for award", zap.Error(err), zap.Int64("user_id", req.UserID))
		return nil, NewInternalError("failed to look up user")
	}
	if user == nil {
		return nil, NewNotFoundError("user not found")
	}

	points := s.cfg.PointsFor(actionType)

	record := &models.ActionRecord{
		UserID:        req.UserID,
		ActionType:    actionType,
		PointsAwarded: points,
		Metadata:      req.Metadata,
	}
	if err := s.actions.Append(ctx, record); err != nil {
		// Availability over strict consistency: the award continues from the
		// computed values and reconciliation converges the totals later.
		s.logger.Error("Ledger append failed, proceeding with state update",
			zap.Error(err),
			zap.Int64("user_id", req.UserID),
			zap.String("action_type", req.ActionType),
		)
	}

	catalog := s.getCatalog()

	var (
		snapshot  *models.ProgressionState
		newBadges []models.EarnedBadge
		oldLevel  int
	)

	err = s.uow.Do(ctx, func(ctx context.Context, tx repositories.Tx) error {
		state, err := tx.Progression().GetStateForUpdate(ctx, req.UserID)
		if err != nil {
			return err
		}
		if state == nil {
			state = &models.ProgressionState{UserID: req.UserID}
		}
		// An absent or unset snapshot carries level 1 semantics, so a user
		// whose ledger already qualifies higher still gets a level-up.
		oldLevel = state.Level
		if oldLevel < 1 {
			oldLevel = 1
		}

		now := time.Now()
		state.Points += points
		state.LastActivityAt = now

		counts, err := tx.Actions().CountsByUser(ctx, req.UserID)
		if err != nil {
			return err
		}

		level := s.resolveLevel(catalog, counts)
		state.Level = level.Number
		state.LevelName = level.Name

		for _, badge := range catalog.Badges {
			if state.HasBadge(badge.Name) {
				continue
			}
			earned, err := s.badgeSatisfied(ctx, tx.Actions(), badge, req.UserID, state.Level, counts, req.Metadata)
			if err != nil {
				return err
			}
			if !earned {
				continue
			}
			earnedBadge := models.EarnedBadge{
				Name:        badge.Name,
				Description: badge.Description,
				EarnedAt:    now,
			}
			if err := tx.Progression().AddBadge(ctx, req.UserID, earnedBadge); err != nil {
				return err
			}
			state.Badges = append(state.Badges, earnedBadge)
			newBadges = append(newBadges, earnedBadge)
		}

		if err := tx.Progression().UpsertState(ctx, state); err != nil {
			return err
		}
		snapshot = state
		return nil
	})
	if err != nil {
		return nil, NewTransactionError("failed to apply award", err)
	}

	s.invalidateUserCache(ctx, req.UserID)

	// A level increase triggers a notification; reaching the baseline on a
	// first award and silent decreases do not.
	leveledUp := snapshot.Level > oldLevel

	if leveledUp {
		s.publish(ctx, events.NewLevelUpEvent(user.ID, user.Email, oldLevel, snapshot.Level, snapshot.LevelName))
	}
	for _, badge := range newBadges {
		s.publish(ctx, events.NewBadgeEarnedEvent(user.ID, user.Email, badge.Name, badge.Description))
	}

	result := &AwardResult{Stats: s.buildStats(catalog, snapshot)}
	if leveledUp || len(newBadges) > 0 {
		notification := &AwardNotification{}
		if leveledUp {
			newLevel := snapshot.Level
			notification.NewLevel = &newLevel
			notification.LevelName = snapshot.LevelName
			notification.Message = fmt.Sprintf("Congratulations! You reached level %d: %s", newLevel, snapshot.LevelName)
		}
		for _, badge := range newBadges {
			notification.NewBadges = append(notification.NewBadges, badge.Name)
		}
		result.Notification = notification
	}

	return result, nil
}

func (s *progressionService) publish(ctx context.Context, event events.Event) {
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish progression event",
			zap.Error(err),
			zap.String("event_type", event.GetEventType()),
		)
	}
}

// ===============================
// QUALIFICATION
// ===============================

// resolveLevel returns the highest-numbered level whose predicate holds, or
// level 1 when none does. A user can drop levels if a re-derivation comes out
// lower; that silent self-correction is intentional.
func (s *progressionService) resolveLevel(catalog *models.Catalog, counts models.ActionCounts) *models.Level {
	best := catalog.LevelByNumber(1)
	for _, level := range catalog.Levels {
		if levelSatisfied(catalog, level, counts) && (best == nil || level.Number > best.Number) {
			best = level
		}
	}
	return best
}

// levelSatisfied evaluates one level's gated predicate: the gate level must
// hold and every requirement the level adds must hold.
func levelSatisfied(catalog *models.Catalog, level *models.Level, counts models.ActionCounts) bool {
	if level.GateLevel > 0 {
		gate := catalog.LevelByNumber(level.GateLevel)
		if gate == nil || !levelSatisfied(catalog, gate, counts) {
			return false
		}
	}
	for _, req := range level.Requirements {
		if counts.Get(req.ActionType) < req.MinCount {
			return false
		}
	}
	return true
}

// badgeSatisfied evaluates a badge's criteria in order; the first satisfied
// criterion awards the badge.
func (s *progressionService) badgeSatisfied(
	ctx context.Context,
	actions repositories.ActionRepository,
	badge *models.Badge,
	userID int64,
	level int,
	counts models.ActionCounts,
	metadata map[string]interface{},
) (bool, error) {
	for _, criterion := range badge.Criteria {
		ok, err := s.criterionSatisfied(ctx, actions, criterion, userID, level, counts, metadata)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *progressionService) criterionSatisfied(
	ctx context.Context,
	actions repositories.ActionRepository,
	criterion models.BadgeCriterion,
	userID int64,
	level int,
	counts models.ActionCounts,
	metadata map[string]interface{},
) (bool, error) {
	switch criterion.Kind {
	case models.CriterionLevelThreshold:
		return level >= criterion.MinLevel, nil

	case models.CriterionActionCount:
		return counts.Get(criterion.ActionType) >= criterion.MinCount, nil

	case models.CriterionEntityVotes:
		raw, ok := metadata[criterion.EntityKey]
		if !ok {
			return false, nil
		}
		votes, err := actions.CountEntityVotes(ctx, userID, criterion.EntityKey, fmt.Sprint(raw))
		if err != nil {
			return false, err
		}
		return votes >= criterion.MinCount, nil

	case models.CriterionNamed:
		switch criterion.SpecialID {
		case models.SpecialFirstReview:
			return counts.Get(models.ActionReviewCreated) == 1, nil
		case models.SpecialAnyMediaUpload:
			return counts.Get(models.ActionMediaUpload) >= 1, nil
		case models.SpecialFiveVotes:
			return counts.Get(models.ActionVoteReceived) >= 5, nil
		default:
			s.logger.Warn("Unknown special badge criterion", zap.String("special_id", criterion.SpecialID))
			return false, nil
		}

	default:
		return false, fmt.Errorf("unknown badge criterion kind: %s", criterion.Kind)
	}
}

// ===============================
// QUERY SURFACE
// ===============================

// GetUserStats returns the snapshot with the display-only progress
// percentage, served from cache when fresh.
func (s *progressionService) GetUserStats(ctx context.Context, userID int64) (*UserStatsResponse, error) {
	if userID <= 0 {
		return nil, NewValidationError("invalid user ID", nil)
	}

	cacheKey := statsCacheKey(userID)
	var cached UserStatsResponse
	if found, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		return &cached, nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to look up user")
	}
	if user == nil {
		return nil, NewNotFoundError("user not found")
	}

	state, err := s.progression.GetState(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to get progression state", zap.Error(err), zap.Int64("user_id", userID))
		return nil, NewInternalError("failed to retrieve user stats")
	}

	catalog := s.getCatalog()
	if state == nil {
		state = s.freshState(catalog, userID)
	}

	response := s.buildStats(catalog, state)

	if err := s.cache.Set(ctx, cacheKey, response, s.statsTTL()); err != nil {
		s.logger.Warn("Failed to cache user stats", zap.Error(err), zap.Int64("user_id", userID))
	}

	return response, nil
}

// GetAllLevels returns the level catalog.
func (s *progressionService) GetAllLevels(ctx context.Context) ([]*models.Level, error) {
	return s.getCatalog().Levels, nil
}

// GetAllBadges returns the badge catalog.
func (s *progressionService) GetAllBadges(ctx context.Context) ([]*models.Badge, error) {
	return s.getCatalog().Badges, nil
}

// GetLeaderboard returns the top users by points, display-only.
func (s *progressionService) GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	cacheKey := fmt.Sprintf("progression:leaderboard:%d", limit)
	var cached []*models.LeaderboardEntry
	if found, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		return cached, nil
	}

	entries, err := s.progression.TopByPoints(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to load leaderboard", zap.Error(err))
		return nil, NewInternalError("failed to retrieve leaderboard")
	}

	if err := s.cache.Set(ctx, cacheKey, entries, s.statsTTL()); err != nil {
		s.logger.Warn("Failed to cache leaderboard", zap.Error(err))
	}

	return entries, nil
}

// GetUserMilestones projects every level and badge with the user's partial
// progress, recomputed from the ledger. Read-only; re-running it with no new
// ledger entries yields identical output.
func (s *progressionService) GetUserMilestones(ctx context.Context, userID int64) ([]models.Milestone, error) {
	if userID <= 0 {
		return nil, NewValidationError("invalid user ID", nil)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to look up user")
	}
	if user == nil {
		return nil, NewNotFoundError("user not found")
	}

	counts, err := s.actions.CountsByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to count ledger actions", zap.Error(err), zap.Int64("user_id", userID))
		return nil, NewInternalError("failed to compute milestones")
	}

	badgesHeld, err := s.progression.ListBadges(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list badges", zap.Error(err), zap.Int64("user_id", userID))
		return nil, NewInternalError("failed to compute milestones")
	}
	held := make(map[string]bool, len(badgesHeld))
	for _, badge := range badgesHeld {
		held[badge.Name] = true
	}

	catalog := s.getCatalog()
	currentLevel := s.resolveLevel(catalog, counts).Number

	milestones := make([]models.Milestone, 0, len(catalog.Levels)+len(catalog.Badges))

	for _, level := range catalog.Levels {
		milestone := models.Milestone{
			ID:           fmt.Sprintf("level-%d", level.Number),
			Title:        level.Name,
			Description:  level.Description,
			Category:     models.MilestoneCategoryLevel,
			Instructions: level.Instructions,
		}
		milestone.Progress, milestone.Target, milestone.IsCompleted = s.levelProgress(catalog, level, counts)
		milestones = append(milestones, milestone)
	}

	for _, badge := range catalog.Badges {
		milestone := models.Milestone{
			ID:           fmt.Sprintf("badge-%d", badge.ID),
			Title:        badge.Name,
			Description:  badge.Description,
			Category:     models.MilestoneCategoryBadge,
			Instructions: badge.Instructions,
		}
		if held[badge.Name] {
			milestone.IsCompleted = true
			milestone.Progress, milestone.Target = 1, 1
			if len(badge.Criteria) > 0 {
				if target := criterionTarget(badge.Criteria[0]); target > 0 {
					milestone.Progress, milestone.Target = target, target
				}
			}
		} else if len(badge.Criteria) > 0 {
			progress, target, err := s.badgeProgress(ctx, badge.Criteria[0], userID, currentLevel, counts)
			if err != nil {
				return nil, NewInternalError("failed to compute milestones")
			}
			milestone.Progress, milestone.Target = progress, target
		}
		milestones = append(milestones, milestone)
	}

	return milestones, nil
}

// levelProgress reports the count toward the level's first unmet threshold,
// walking the gate chain so "6 of 10 votes" style partials surface the right
// requirement.
func (s *progressionService) levelProgress(catalog *models.Catalog, level *models.Level, counts models.ActionCounts) (progress, target int, completed bool) {
	if levelSatisfied(catalog, level, counts) {
		target = 1
		if n := len(level.Requirements); n > 0 {
			target = level.Requirements[n-1].MinCount
		}
		return target, target, true
	}

	for _, req := range requirementChain(catalog, level) {
		if counts.Get(req.ActionType) < req.MinCount {
			return clampProgress(counts.Get(req.ActionType), req.MinCount), req.MinCount, false
		}
	}
	return 0, 1, false
}

// requirementChain flattens the gate chain's requirements, outermost gate
// first.
func requirementChain(catalog *models.Catalog, level *models.Level) []models.LevelRequirement {
	var chain []models.LevelRequirement
	if level.GateLevel > 0 {
		if gate := catalog.LevelByNumber(level.GateLevel); gate != nil {
			chain = append(chain, requirementChain(catalog, gate)...)
		}
	}
	return append(chain, level.Requirements...)
}

func (s *progressionService) badgeProgress(
	ctx context.Context,
	criterion models.BadgeCriterion,
	userID int64,
	currentLevel int,
	counts models.ActionCounts,
) (progress, target int, err error) {
	switch criterion.Kind {
	case models.CriterionLevelThreshold:
		return clampProgress(currentLevel, criterion.MinLevel), criterion.MinLevel, nil

	case models.CriterionActionCount:
		return clampProgress(counts.Get(criterion.ActionType), criterion.MinCount), criterion.MinCount, nil

	case models.CriterionEntityVotes:
		votes, err := s.actions.MaxEntityVotes(ctx, userID, criterion.EntityKey)
		if err != nil {
			return 0, 0, err
		}
		return clampProgress(votes, criterion.MinCount), criterion.MinCount, nil

	case models.CriterionNamed:
		switch criterion.SpecialID {
		case models.SpecialFirstReview:
			return clampProgress(counts.Get(models.ActionReviewCreated), 1), 1, nil
		case models.SpecialAnyMediaUpload:
			return clampProgress(counts.Get(models.ActionMediaUpload), 1), 1, nil
		case models.SpecialFiveVotes:
			return clampProgress(counts.Get(models.ActionVoteReceived), 5), 5, nil
		default:
			return 0, 1, nil
		}

	default:
		return 0, 0, fmt.Errorf("unknown badge criterion kind: %s", criterion.Kind)
	}
}

// criterionTarget is the display target for an already-completed badge.
func criterionTarget(criterion models.BadgeCriterion) int {
	switch criterion.Kind {
	case models.CriterionLevelThreshold:
		return criterion.MinLevel
	case models.CriterionActionCount, models.CriterionEntityVotes:
		return criterion.MinCount
	case models.CriterionNamed:
		if criterion.SpecialID == models.SpecialFiveVotes {
			return 5
		}
		return 1
	default:
		return 1
	}
}

func clampProgress(value, target int) int {
	if value < 0 {
		return 0
	}
	if value > target {
		return target
	}
	return value
}

// ===============================
// RECONCILIATION
// ===============================

// RecalculateUserStats overwrites the snapshot with ledger truth: the exact
// point sum and the predicate-derived level. Earned badges are permanent and
// left untouched.
func (s *progressionService) RecalculateUserStats(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return NewInternalError("failed to look up user")
	}
	if user == nil {
		return NewNotFoundError("user not found")
	}

	catalog := s.getCatalog()

	err = s.uow.Do(ctx, func(ctx context.Context, tx repositories.Tx) error {
		state, err := tx.Progression().GetStateForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if state == nil {
			state = &models.ProgressionState{UserID: userID, LastActivityAt: time.Now()}
		}

		points, err := tx.Actions().SumPoints(ctx, userID)
		if err != nil {
			return err
		}
		counts, err := tx.Actions().CountsByUser(ctx, userID)
		if err != nil {
			return err
		}

		level := s.resolveLevel(catalog, counts)
		state.Points = points
		state.Level = level.Number
		state.LevelName = level.Name

		return tx.Progression().UpsertState(ctx, state)
	})
	if err != nil {
		return NewTransactionError("failed to recalculate user stats", err)
	}

	s.invalidateUserCache(ctx, userID)
	return nil
}

// ===============================
// HELPERS
// ===============================

func (s *progressionService) freshState(catalog *models.Catalog, userID int64) *models.ProgressionState {
	state := &models.ProgressionState{UserID: userID, Level: 1, Badges: []models.EarnedBadge{}}
	if level := catalog.LevelByNumber(1); level != nil {
		state.LevelName = level.Name
	}
	return state
}

func (s *progressionService) buildStats(catalog *models.Catalog, state *models.ProgressionState) *UserStatsResponse {
	badges := state.Badges
	if badges == nil {
		badges = []models.EarnedBadge{}
	}

	response := &UserStatsResponse{
		UserID:         state.UserID,
		Points:         state.Points,
		Level:          state.Level,
		LevelName:      state.LevelName,
		ProgressToNext: progressToNext(catalog, state.Level, state.Points),
		Badges:         badges,
	}
	if !state.LastActivityAt.IsZero() {
		lastActivity := state.LastActivityAt
		response.LastActivityAt = &lastActivity
	}
	return response
}

// progressToNext linearly interpolates the point range between the current
// and next level's MinPoints, clamped to [0,100]. Display aid only; it never
// feeds qualification.
func progressToNext(catalog *models.Catalog, level, points int) int {
	current := catalog.LevelByNumber(level)
	next := catalog.NextLevel(level)
	if current == nil || next == nil {
		return 100
	}

	span := next.MinPoints - current.MinPoints
	if span <= 0 {
		return 100
	}

	percent := (points - current.MinPoints) * 100 / span
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

func (s *progressionService) invalidateUserCache(ctx context.Context, userID int64) {
	if err := s.cache.Delete(ctx, statsCacheKey(userID)); err != nil {
		s.logger.Warn("Failed to invalidate stats cache", zap.Error(err), zap.Int64("user_id", userID))
	}
}

func statsCacheKey(userID int64) string {
	return fmt.Sprintf("progression:stats:%d", userID)
}

func (s *progressionService) statsTTL() time.Duration {
	return 5 * time.Minute
}
