package models

import "time"

// BadgeTier is a named rank unlocked once a user's balance reaches PointsThreshold.
type BadgeTier struct {
	ID              int64     `json:"id" db:"id"`
	Name            string    `json:"name" db:"name" validate:"required,max=100"`
	Description     string    `json:"description" db:"description" validate:"max=500"`
	PointsThreshold int       `json:"points_threshold" db:"points_threshold" validate:"gte=0"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// BadgeAchievement records the first time a user reached a tier.
// There is at most one row per (UserID, BadgeID) and rows are never removed.
type BadgeAchievement struct {
	ID       int64     `json:"id" db:"id"`
	UserID   int64     `json:"user_id" db:"user_id"`
	BadgeID  int64     `json:"badge_id" db:"badge_id"`
	EarnedAt time.Time `json:"earned_at" db:"earned_at"`

	// Joined field (not in DB)
	Badge *BadgeTier `json:"badge,omitempty" db:"-"`
}

// MyBadges is the badge overview shown on a member's profile.
type MyBadges struct {
	AllBadges     []*BadgeTier        `json:"all_badges"`
	EarnedBadges  []*BadgeAchievement `json:"earned_badges"`
	CurrentPoints int                 `json:"current_points"`
	CurrentBadge  *BadgeTier          `json:"current_badge"`
}

// BadgeName returns the tier name, or the fallback label for members below every tier.
func BadgeName(tier *BadgeTier) string {
	if tier == nil {
		return DefaultBadgeLabel
	}
	return tier.Name
}

// DefaultBadgeLabel names the state of having no badge at all.
const DefaultBadgeLabel = "Newcomer"
