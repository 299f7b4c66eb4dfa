package models

import "time"

// NotificationType classifies gamification notifications.
type NotificationType string

const (
	NotificationBadgeEarned  NotificationType = "BADGE_EARNED"
	NotificationPointsUpdate NotificationType = "POINTS_UPDATE"
)

// Notification is a message produced by the engine for a single user.
type Notification struct {
	ID        int64            `json:"id" db:"id"`
	UserID    int64            `json:"user_id" db:"user_id"`
	Message   string           `json:"message" db:"message"`
	Type      NotificationType `json:"type" db:"type"`
	Link      string           `json:"link" db:"link"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
