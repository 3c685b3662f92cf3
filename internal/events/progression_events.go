package events

import (
	"time"

	"github.com/gofrs/uuid"
)

// Progression event types.
const (
	EventTypeLevelUp     = "progression.level_up"
	EventTypeBadgeEarned = "progression.badge_earned"
)

// LevelUpEvent is published after a committed award raises a user's level.
// Never published on a level decrease.
type LevelUpEvent struct {
	BaseEvent
	UserEmail string `json:"user_email"`
	OldLevel  int    `json:"old_level"`
	NewLevel  int    `json:"new_level"`
	LevelName string `json:"level_name"`
}

// NewLevelUpEvent creates a level-up event.
func NewLevelUpEvent(userID int64, userEmail string, oldLevel, newLevel int, levelName string) *LevelUpEvent {
	return &LevelUpEvent{
		BaseEvent: BaseEvent{
			EventID:   newEventID(),
			EventType: EventTypeLevelUp,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		UserEmail: userEmail,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		LevelName: levelName,
	}
}

// BadgeEarnedEvent is published after a committed award grants a new badge.
type BadgeEarnedEvent struct {
	BaseEvent
	UserEmail        string `json:"user_email"`
	BadgeName        string `json:"badge_name"`
	BadgeDescription string `json:"badge_description"`
}

// NewBadgeEarnedEvent creates a badge-earned event.
func NewBadgeEarnedEvent(userID int64, userEmail, badgeName, badgeDescription string) *BadgeEarnedEvent {
	return &BadgeEarnedEvent{
		BaseEvent: BaseEvent{
			EventID:   newEventID(),
			EventType: EventTypeBadgeEarned,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		UserEmail:        userEmail,
		BadgeName:        badgeName,
		BadgeDescription: badgeDescription,
	}
}

func newEventID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return ""
	}
	return id.String()
}
