package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"triphub/internal/database"
	"triphub/internal/models"
)

// userRepository is the engine's read-only window into the identity store.
type userRepository struct {
	*BaseRepository
}

// NewUserRepository creates a pool-bound user repository.
func NewUserRepository(db *database.Manager, logger *zap.Logger) UserRepository {
	return &userRepository{BaseRepository: NewBaseRepository(db, logger)}
}

// GetByID fetches an active user, nil when absent.
func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, email, username, display_name, is_active, created_at
		FROM users
		WHERE id = $1 AND is_active = true`

	var user models.User
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Username,
		&user.DisplayName, &user.IsActive, &user.CreatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return &user, nil
}

// ListActiveIDs enumerates every active user id for the reconciliation batch.
func (r *userRepository) ListActiveIDs(ctx context.Context) ([]int64, error) {
	query := `
		SELECT id
		FROM users
		WHERE is_active = true
		ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list user IDs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user IDs: %w", err)
	}
	return ids, nil
}
