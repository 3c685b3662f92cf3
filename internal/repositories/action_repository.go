package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"triphub/internal/database"
	"triphub/internal/models"
)

// actionRepository implements the append-only ledger over action_records.
type actionRepository struct {
	*BaseRepository
}

// NewActionRepository creates a pool-bound action ledger repository.
func NewActionRepository(db *database.Manager, logger *zap.Logger) ActionRepository {
	return &actionRepository{BaseRepository: NewBaseRepository(db, logger)}
}

// Append inserts one ledger record. The ledger is insert-only; no update or
// delete statements exist in this repository.
func (r *actionRepository) Append(ctx context.Context, record *models.ActionRecord) error {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode action metadata: %w", err)
	}

	query := `
		INSERT INTO action_records (user_id, action_type, points_awarded, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING id, occurred_at`

	err = r.q.QueryRowContext(
		ctx, query,
		record.UserID, string(record.ActionType), record.PointsAwarded, metadata,
	).Scan(&record.ID, &record.OccurredAt)

	if err != nil {
		return fmt.Errorf("failed to append action record: %w", err)
	}

	return nil
}

// CountByType counts a user's ledger records of one action type.
func (r *actionRepository) CountByType(ctx context.Context, userID int64, actionType models.ActionType) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM action_records
		WHERE user_id = $1 AND action_type = $2`

	var count int
	if err := r.q.QueryRowContext(ctx, query, userID, string(actionType)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count actions by type: %w", err)
	}
	return count, nil
}

// CountsByUser tallies all of a user's ledger records grouped by type.
func (r *actionRepository) CountsByUser(ctx context.Context, userID int64) (models.ActionCounts, error) {
	query := `
		SELECT action_type, COUNT(*)
		FROM action_records
		WHERE user_id = $1
		GROUP BY action_type`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count actions: %w", err)
	}
	defer rows.Close()

	counts := make(models.ActionCounts)
	for rows.Next() {
		var actionType string
		var count int
		if err := rows.Scan(&actionType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan action count: %w", err)
		}
		counts[models.ActionType(actionType)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate action counts: %w", err)
	}
	return counts, nil
}

// SumPoints returns the authoritative point total: the sum of points_awarded
// over the user's ledger.
func (r *actionRepository) SumPoints(ctx context.Context, userID int64) (int, error) {
	query := `
		SELECT COALESCE(SUM(points_awarded), 0)
		FROM action_records
		WHERE user_id = $1`

	var total int
	if err := r.q.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum ledger points: %w", err)
	}
	return total, nil
}

// CountEntityVotes counts the user's vote_received records that reference one
// entity via their metadata, e.g. every vote on a single review.
func (r *actionRepository) CountEntityVotes(ctx context.Context, userID int64, entityKey, entityID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM action_records
		WHERE user_id = $1 AND action_type = $2 AND metadata ->> $3 = $4`

	var count int
	err := r.q.QueryRowContext(ctx, query, userID, string(models.ActionVoteReceived), entityKey, entityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count entity votes: %w", err)
	}
	return count, nil
}

// MaxEntityVotes returns the highest per-entity vote count across all of the
// user's voted entities.
func (r *actionRepository) MaxEntityVotes(ctx context.Context, userID int64, entityKey string) (int, error) {
	query := `
		SELECT COALESCE(MAX(votes), 0)
		FROM (
			SELECT COUNT(*) AS votes
			FROM action_records
			WHERE user_id = $1 AND action_type = $2 AND metadata ? $3
			GROUP BY metadata ->> $3
		) per_entity`

	var max int
	err := r.q.QueryRowContext(ctx, query, userID, string(models.ActionVoteReceived), entityKey).Scan(&max)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to compute max entity votes: %w", err)
	}
	return max, nil
}
