package repositories

import (
	"context"

	"triphub/internal/models"
)

// ===============================
// REPOSITORY INTERFACES
// ===============================

// ActionRepository is the append-only action ledger. Append is the only write;
// updates and deletes are not exposed.
type ActionRepository interface {
	Append(ctx context.Context, record *models.ActionRecord) error
	CountByType(ctx context.Context, userID int64, actionType models.ActionType) (int, error)
	CountsByUser(ctx context.Context, userID int64) (models.ActionCounts, error)
	SumPoints(ctx context.Context, userID int64) (int, error)
	// CountEntityVotes counts the user's vote_received records whose metadata
	// references the given entity, e.g. entityKey "review_id".
	CountEntityVotes(ctx context.Context, userID int64, entityKey, entityID string) (int, error)
	// MaxEntityVotes returns the highest vote count any single entity of the
	// user has reached, used for milestone progress display.
	MaxEntityVotes(ctx context.Context, userID int64, entityKey string) (int, error)
}

// CatalogRepository reads the static level and badge definitions. The engine
// never writes the catalog; it is seeded by migrations.
type CatalogRepository interface {
	GetAllLevels(ctx context.Context) ([]*models.Level, error)
	GetAllBadges(ctx context.Context) ([]*models.Badge, error)
}

// ProgressionRepository stores the denormalized per-user snapshot.
type ProgressionRepository interface {
	GetState(ctx context.Context, userID int64) (*models.ProgressionState, error)
	// GetStateForUpdate locks the state row for the rest of the transaction.
	// Only meaningful on a tx-bound repository.
	GetStateForUpdate(ctx context.Context, userID int64) (*models.ProgressionState, error)
	UpsertState(ctx context.Context, state *models.ProgressionState) error
	AddBadge(ctx context.Context, userID int64, badge models.EarnedBadge) error
	ListBadges(ctx context.Context, userID int64) ([]models.EarnedBadge, error)
	TopByPoints(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
}

// UserRepository is the engine's read-only view of the identity store.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	ListActiveIDs(ctx context.Context) ([]int64, error)
}

// ===============================
// UNIT OF WORK
// ===============================

// Tx bundles the transaction-bound repositories handed to a unit-of-work
// function. Every method on these repositories runs on the same transaction.
type Tx interface {
	Actions() ActionRepository
	Progression() ProgressionRepository
}

// UnitOfWork always wraps its function in a store transaction: commit on nil,
// rollback on error or panic. Callers that need to compose operations pass
// them through one function instead of toggling transaction flags.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
