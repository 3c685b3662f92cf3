package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"triphub/internal/database"
	"triphub/internal/models"
)

// progressionRepository stores the per-user snapshot in progression_state and
// the earned badge list in user_badges.
type progressionRepository struct {
	*BaseRepository
}

// NewProgressionRepository creates a pool-bound progression state repository.
func NewProgressionRepository(db *database.Manager, logger *zap.Logger) ProgressionRepository {
	return &progressionRepository{BaseRepository: NewBaseRepository(db, logger)}
}

// GetState fetches the snapshot with badges, nil when the user has none yet.
func (r *progressionRepository) GetState(ctx context.Context, userID int64) (*models.ProgressionState, error) {
	return r.getState(ctx, userID, false)
}

// GetStateForUpdate fetches the snapshot with a row lock so concurrent awards
// for the same user serialize on the points read-modify-write. Must run on a
// tx-bound repository. The row is materialized first: without it a user's two
// concurrent first awards would both read nil and the later upsert would
// overwrite the earlier increment.
func (r *progressionRepository) GetStateForUpdate(ctx context.Context, userID int64) (*models.ProgressionState, error) {
	insert := `
		INSERT INTO progression_state (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.q.ExecContext(ctx, insert, userID); err != nil {
		return nil, fmt.Errorf("failed to materialize progression state row: %w", err)
	}
	return r.getState(ctx, userID, true)
}

func (r *progressionRepository) getState(ctx context.Context, userID int64, forUpdate bool) (*models.ProgressionState, error) {
	query := `
		SELECT user_id, points, level, level_name, last_activity_at, updated_at
		FROM progression_state
		WHERE user_id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var state models.ProgressionState
	err := r.q.QueryRowContext(ctx, query, userID).Scan(
		&state.UserID, &state.Points, &state.Level, &state.LevelName,
		&state.LastActivityAt, &state.UpdatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get progression state: %w", err)
	}

	badges, err := r.ListBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	state.Badges = badges

	return &state, nil
}

// UpsertState writes the snapshot, creating the row on a user's first award.
func (r *progressionRepository) UpsertState(ctx context.Context, state *models.ProgressionState) error {
	query := `
		INSERT INTO progression_state (user_id, points, level, level_name, last_activity_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			points = EXCLUDED.points,
			level = EXCLUDED.level,
			level_name = EXCLUDED.level_name,
			last_activity_at = EXCLUDED.last_activity_at,
			updated_at = NOW()
		RETURNING updated_at`

	err := r.q.QueryRowContext(
		ctx, query,
		state.UserID, state.Points, state.Level, state.LevelName, state.LastActivityAt,
	).Scan(&state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert progression state: %w", err)
	}
	return nil
}

// AddBadge appends one earned badge. The primary key on (user_id, name) makes
// a duplicate award a conflict; ON CONFLICT DO NOTHING keeps re-qualification
// a no-op.
func (r *progressionRepository) AddBadge(ctx context.Context, userID int64, badge models.EarnedBadge) error {
	query := `
		INSERT INTO user_badges (user_id, name, description, earned_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, name) DO NOTHING`

	if _, err := r.q.ExecContext(ctx, query, userID, badge.Name, badge.Description, badge.EarnedAt); err != nil {
		return fmt.Errorf("failed to add badge: %w", err)
	}
	return nil
}

// ListBadges returns the user's earned badges in award order.
func (r *progressionRepository) ListBadges(ctx context.Context, userID int64) ([]models.EarnedBadge, error) {
	query := `
		SELECT name, description, earned_at
		FROM user_badges
		WHERE user_id = $1
		ORDER BY earned_at, name`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	badges := []models.EarnedBadge{}
	for rows.Next() {
		var badge models.EarnedBadge
		if err := rows.Scan(&badge.Name, &badge.Description, &badge.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, badge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate badges: %w", err)
	}
	return badges, nil
}

// TopByPoints returns the leaderboard joined against the identity store.
func (r *progressionRepository) TopByPoints(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	query := `
		SELECT ps.user_id, u.username, u.display_name, ps.points, ps.level, ps.level_name
		FROM progression_state ps
		JOIN users u ON u.id = ps.user_id AND u.is_active = true
		ORDER BY ps.points DESC, ps.user_id
		LIMIT $1`

	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*models.LeaderboardEntry
	for rows.Next() {
		var entry models.LeaderboardEntry
		if err := rows.Scan(
			&entry.UserID, &entry.Username, &entry.DisplayName,
			&entry.Points, &entry.Level, &entry.LevelName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leaderboard: %w", err)
	}
	return entries, nil
}
