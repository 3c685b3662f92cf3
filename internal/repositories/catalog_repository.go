package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"triphub/internal/database"
	"triphub/internal/models"
)

// catalogRepository reads the seeded level and badge definitions.
type catalogRepository struct {
	*BaseRepository
}

// NewCatalogRepository creates a pool-bound catalog repository.
func NewCatalogRepository(db *database.Manager, logger *zap.Logger) CatalogRepository {
	return &catalogRepository{BaseRepository: NewBaseRepository(db, logger)}
}

// GetAllLevels returns every level with its requirements, ordered by number.
func (r *catalogRepository) GetAllLevels(ctx context.Context) ([]*models.Level, error) {
	query := `
		SELECT level_number, name, min_points, description, rewards, instructions, gate_level
		FROM levels
		ORDER BY level_number`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load levels: %w", err)
	}
	defer rows.Close()

	var levels []*models.Level
	byNumber := make(map[int]*models.Level)
	for rows.Next() {
		var level models.Level
		if err := rows.Scan(
			&level.Number, &level.Name, &level.MinPoints,
			&level.Description, &level.Rewards, &level.Instructions,
			&level.GateLevel,
		); err != nil {
			return nil, fmt.Errorf("failed to scan level: %w", err)
		}
		levels = append(levels, &level)
		byNumber[level.Number] = &level
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate levels: %w", err)
	}

	reqQuery := `
		SELECT level_number, action_type, min_count
		FROM level_requirements
		ORDER BY level_number, action_type`

	reqRows, err := r.q.QueryContext(ctx, reqQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to load level requirements: %w", err)
	}
	defer reqRows.Close()

	for reqRows.Next() {
		var number int
		var req models.LevelRequirement
		var actionType string
		if err := reqRows.Scan(&number, &actionType, &req.MinCount); err != nil {
			return nil, fmt.Errorf("failed to scan level requirement: %w", err)
		}
		req.ActionType = models.ActionType(actionType)
		if level, ok := byNumber[number]; ok {
			level.Requirements = append(level.Requirements, req)
		}
	}
	if err := reqRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate level requirements: %w", err)
	}

	return levels, nil
}

// GetAllBadges returns every badge with its criteria.
func (r *catalogRepository) GetAllBadges(ctx context.Context) ([]*models.Badge, error) {
	query := `
		SELECT id, name, description, icon_url, instructions
		FROM badges
		ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load badges: %w", err)
	}
	defer rows.Close()

	var badges []*models.Badge
	byID := make(map[int64]*models.Badge)
	for rows.Next() {
		var badge models.Badge
		if err := rows.Scan(
			&badge.ID, &badge.Name, &badge.Description,
			&badge.IconURL, &badge.Instructions,
		); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, &badge)
		byID[badge.ID] = &badge
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate badges: %w", err)
	}

	critQuery := `
		SELECT badge_id, kind, min_level, action_type, min_count, entity_key, special_id
		FROM badge_criteria
		ORDER BY badge_id, id`

	critRows, err := r.q.QueryContext(ctx, critQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to load badge criteria: %w", err)
	}
	defer critRows.Close()

	for critRows.Next() {
		var badgeID int64
		var criterion models.BadgeCriterion
		var kind, actionType string
		if err := critRows.Scan(
			&badgeID, &kind, &criterion.MinLevel,
			&actionType, &criterion.MinCount,
			&criterion.EntityKey, &criterion.SpecialID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan badge criterion: %w", err)
		}
		criterion.Kind = models.BadgeCriterionKind(kind)
		criterion.ActionType = models.ActionType(actionType)
		if badge, ok := byID[badgeID]; ok {
			badge.Criteria = append(badge.Criteria, criterion)
		}
	}
	if err := critRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate badge criteria: %w", err)
	}

	return badges, nil
}
