package models

import "time"

// ===============================
// ACTIONS
// ===============================

// ActionType identifies a point-earning user action.
type ActionType string

const (
	ActionReviewCreated    ActionType = "review_created"
	ActionVoteReceived     ActionType = "vote_received"
	ActionProfileCompleted ActionType = "profile_completed"
	ActionCommentPosted    ActionType = "comment_posted"
	ActionMediaUpload      ActionType = "media_upload"
	ActionPlaceAdded       ActionType = "place_added"
	ActionExpenseCreated   ActionType = "expense_created"
)

// AllActionTypes lists every recognized action type.
var AllActionTypes = []ActionType{
	ActionReviewCreated,
	ActionVoteReceived,
	ActionProfileCompleted,
	ActionCommentPosted,
	ActionMediaUpload,
	ActionPlaceAdded,
	ActionExpenseCreated,
}

// Valid reports whether the action type belongs to the recognized set.
func (t ActionType) Valid() bool {
	for _, known := range AllActionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ActionRecord is an immutable ledger entry for a single point-earning event.
// Records are insert-only; the engine never updates or deletes them.
type ActionRecord struct {
	ID            int64                  `json:"id" db:"id"`
	UserID        int64                  `json:"user_id" db:"user_id"`
	ActionType    ActionType             `json:"action_type" db:"action_type"`
	PointsAwarded int                    `json:"points_awarded" db:"points_awarded"`
	Metadata      map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	OccurredAt    time.Time              `json:"occurred_at" db:"occurred_at"`
}

// ActionCounts holds per-type action tallies for one user.
type ActionCounts map[ActionType]int

// Get returns the count for an action type, zero when absent.
func (c ActionCounts) Get(t ActionType) int {
	return c[t]
}

// ===============================
// LEVEL CATALOG
// ===============================

// LevelRequirement is a single action-count threshold a level adds on top of
// its gate level.
type LevelRequirement struct {
	ActionType ActionType `json:"action_type" db:"action_type"`
	MinCount   int        `json:"min_count" db:"min_count"`
}

// Level is a catalog tier. Qualification is gated: a level holds when its gate
// level holds and every one of its own requirements holds. MinPoints is kept
// only for progress-percentage display and never decides qualification.
type Level struct {
	Number       int                `json:"level_number" db:"level_number"`
	Name         string             `json:"name" db:"name"`
	MinPoints    int                `json:"min_points" db:"min_points"`
	Description  string             `json:"description" db:"description"`
	Rewards      string             `json:"rewards" db:"rewards"`
	Instructions string             `json:"instructions" db:"instructions"`
	GateLevel    int                `json:"gate_level" db:"gate_level"`
	Requirements []LevelRequirement `json:"requirements"`
}

// ===============================
// BADGE CATALOG
// ===============================

// BadgeCriterionKind discriminates the badge criterion variants.
type BadgeCriterionKind string

const (
	CriterionLevelThreshold BadgeCriterionKind = "level_threshold"
	CriterionActionCount    BadgeCriterionKind = "action_count"
	CriterionEntityVotes    BadgeCriterionKind = "entity_votes"
	CriterionNamed          BadgeCriterionKind = "named"
)

// Named special criterion identifiers.
const (
	SpecialFirstReview    = "first_review"
	SpecialAnyMediaUpload = "any_media_upload"
	SpecialFiveVotes      = "five_votes"
)

// BadgeCriterion is one tagged-variant qualification rule. Only the fields for
// the active Kind are meaningful:
//
//	level_threshold: MinLevel
//	action_count:    ActionType, MinCount
//	entity_votes:    EntityKey, MinCount (votes on the single entity referenced
//	                 by metadata[EntityKey])
//	named:           SpecialID
type BadgeCriterion struct {
	Kind       BadgeCriterionKind `json:"kind" db:"kind"`
	MinLevel   int                `json:"min_level,omitempty" db:"min_level"`
	ActionType ActionType         `json:"action_type,omitempty" db:"action_type"`
	MinCount   int                `json:"min_count,omitempty" db:"min_count"`
	EntityKey  string             `json:"entity_key,omitempty" db:"entity_key"`
	SpecialID  string             `json:"special_id,omitempty" db:"special_id"`
}

// Badge is a catalog achievement. Any one satisfied criterion awards it; a
// badge is earned at most once and never revoked.
type Badge struct {
	ID           int64            `json:"id" db:"id"`
	Name         string           `json:"name" db:"name"`
	Description  string           `json:"description" db:"description"`
	IconURL      string           `json:"icon_url" db:"icon_url"`
	Instructions string           `json:"instructions" db:"instructions"`
	Criteria     []BadgeCriterion `json:"criteria"`
}

// EarnedBadge is one entry in a user's badge list.
type EarnedBadge struct {
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	EarnedAt    time.Time `json:"earned_at" db:"earned_at"`
}

// Catalog bundles the static level and badge definitions loaded at startup.
type Catalog struct {
	Levels []*Level
	Badges []*Badge
}

// LevelByNumber returns the level with the given number, nil when absent.
func (c *Catalog) LevelByNumber(n int) *Level {
	for _, l := range c.Levels {
		if l.Number == n {
			return l
		}
	}
	return nil
}

// NextLevel returns the level following n, nil when n is the top tier.
func (c *Catalog) NextLevel(n int) *Level {
	return c.LevelByNumber(n + 1)
}

// ===============================
// PROGRESSION STATE
// ===============================

// ProgressionState is the denormalized per-user snapshot. Points drift
// transiently when a ledger append fails; the reconciliation job converges it
// back to the ledger sum.
type ProgressionState struct {
	UserID         int64         `json:"user_id" db:"user_id"`
	Points         int           `json:"points" db:"points"`
	Level          int           `json:"level" db:"level"`
	LevelName      string        `json:"level_name" db:"level_name"`
	Badges         []EarnedBadge `json:"badges"`
	LastActivityAt time.Time     `json:"last_activity_at" db:"last_activity_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// HasBadge reports whether the user already holds a badge by name.
func (s *ProgressionState) HasBadge(name string) bool {
	for _, b := range s.Badges {
		if b.Name == name {
			return true
		}
	}
	return false
}

// ===============================
// MILESTONES
// ===============================

// MilestoneCategory tags a milestone projection with its catalog source.
type MilestoneCategory string

const (
	MilestoneCategoryLevel MilestoneCategory = "level"
	MilestoneCategoryBadge MilestoneCategory = "badge"
)

// Milestone is a read-only projection of one level or badge with the user's
// partial progress toward it.
type Milestone struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Progress     int               `json:"progress"`
	Target       int               `json:"target"`
	IsCompleted  bool              `json:"is_completed"`
	Category     MilestoneCategory `json:"category"`
	Instructions string            `json:"instructions,omitempty"`
}
