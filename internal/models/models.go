package models

import "time"

// User is the identity-store view the progression engine needs. Account
// management itself (auth, sessions, profile editing) lives with the identity
// service; the engine only resolves ids and notification addresses.
type User struct {
	ID          int64     `json:"id" db:"id"`
	Email       string    `json:"email" db:"email"`
	Username    string    `json:"username" db:"username"`
	DisplayName string    `json:"display_name" db:"display_name"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// LeaderboardEntry is one row of the points leaderboard, a display-only
// projection over progression state.
type LeaderboardEntry struct {
	UserID      int64  `json:"user_id" db:"user_id"`
	Username    string `json:"username" db:"username"`
	DisplayName string `json:"display_name" db:"display_name"`
	Points      int    `json:"points" db:"points"`
	Level       int    `json:"level" db:"level"`
	LevelName   string `json:"level_name" db:"level_name"`
}
