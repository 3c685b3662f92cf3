package services

import (
	"context"
	"time"

	"triphub/internal/models"
)

// ===============================
// SERVICE INTERFACES
// ===============================

// ProgressionService converts user actions into points, levels and badges,
// and exposes the read-only query surface over that state.
type ProgressionService interface {
	// Award records one action and re-derives the user's progression state in
	// a single store transaction. Not idempotent: callers are responsible for
	// de-duplicating one domain event into one Award call.
	Award(ctx context.Context, req *AwardActionRequest) (*AwardResult, error)

	// Query surface, read-only and side-effect-free.
	GetUserStats(ctx context.Context, userID int64) (*UserStatsResponse, error)
	GetUserMilestones(ctx context.Context, userID int64) ([]models.Milestone, error)
	GetAllLevels(ctx context.Context) ([]*models.Level, error)
	GetAllBadges(ctx context.Context) ([]*models.Badge, error)
	GetLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)

	// RecalculateUserStats recomputes points and level from the ledger and
	// overwrites the snapshot unconditionally. Badges are never removed.
	RecalculateUserStats(ctx context.Context, userID int64) error
}

// ReconciliationService drives the nightly ledger-truth sweep.
type ReconciliationService interface {
	ReconcileAll(ctx context.Context) (*ReconcileReport, error)
}

// NotificationSink receives badge and level-up payloads for out-of-band
// delivery. Implementations must not be relied on: failures are logged and
// never retried.
type NotificationSink interface {
	DeliverBadge(ctx context.Context, n *BadgeNotification) error
	DeliverLevelUp(ctx context.Context, n *LevelUpNotification) error
}

// ===============================
// REQUESTS
// ===============================

// AwardActionRequest carries one point-earning action into the engine.
type AwardActionRequest struct {
	UserID     int64                  `json:"user_id" validate:"required,gt=0"`
	ActionType string                 `json:"action_type" validate:"required"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// ===============================
// RESPONSES
// ===============================

// UserStatsResponse is the fast-read snapshot returned to callers.
type UserStatsResponse struct {
	UserID         int64                `json:"user_id"`
	Points         int                  `json:"points"`
	Level          int                  `json:"level"`
	LevelName      string               `json:"level_name"`
	ProgressToNext int                  `json:"progress_to_next"`
	Badges         []models.EarnedBadge `json:"badges"`
	LastActivityAt *time.Time           `json:"last_activity_at,omitempty"`
}

// AwardNotification is the optional block attached to a successful award when
// the action raised the level or earned badges.
type AwardNotification struct {
	NewLevel  *int     `json:"new_level,omitempty"`
	LevelName string   `json:"level_name,omitempty"`
	Message   string   `json:"message,omitempty"`
	NewBadges []string `json:"new_badges,omitempty"`
}

// AwardResult is the refreshed snapshot plus the notification block.
type AwardResult struct {
	Stats        *UserStatsResponse `json:"stats"`
	Notification *AwardNotification `json:"notification,omitempty"`
}

// ReconcileReport aggregates a reconciliation batch. One user's failure never
// aborts the batch; it is collected here instead.
type ReconcileReport struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
	Errors    error         `json:"-"`
}

// ===============================
// NOTIFICATION PAYLOADS
// ===============================

// BadgeNotification is the payload handed to the sink when a badge is earned.
type BadgeNotification struct {
	UserEmail string `json:"user_email"`
	Badge     struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"badge"`
}

// LevelUpNotification is the payload handed to the sink on a level increase.
type LevelUpNotification struct {
	UserEmail string `json:"user_email"`
	NewLevel  int    `json:"new_level"`
	LevelName string `json:"level_name"`
}
