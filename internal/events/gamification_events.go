package events

import (
	"unihub/internal/models"
)

// Gamification event types
const (
	EventTypePointsChanged            = "gamification.points_changed"
	EventTypeBadgePromoted            = "gamification.badge_promoted"
	EventTypeBadgeDemoted             = "gamification.badge_demoted"
	EventTypeNotificationRequested    = "gamification.notification_requested"
	EventTypeDashboardUpdateRequested = "gamification.dashboard_update_requested"
)

// PointsChangedEvent is published after a committed award or deduction
type PointsChangedEvent struct {
	BaseEvent
	Delta          int               `json:"delta"`
	PreviousPoints int               `json:"previous_points"`
	Points         int               `json:"points"`
	SourceType     models.SourceType `json:"source_type"`
	SourceID       *int64            `json:"source_id,omitempty"`
	LedgerEntryID  int64             `json:"ledger_entry_id"`
}

// NewPointsChangedEvent creates a points changed event
func NewPointsChangedEvent(userID int64, delta, previous, points int, source models.SourceType, sourceID *int64, entryID int64) *PointsChangedEvent {
	return &PointsChangedEvent{
		BaseEvent:      NewBaseEvent(EventTypePointsChanged, &userID),
		Delta:          delta,
		PreviousPoints: previous,
		Points:         points,
		SourceType:     source,
		SourceID:       sourceID,
		LedgerEntryID:  entryID,
	}
}

// BadgePromotedEvent is published when a user's current badge moved up the ladder
type BadgePromotedEvent struct {
	BaseEvent
	Badge         models.BadgeTier  `json:"badge"`
	PreviousBadge *models.BadgeTier `json:"previous_badge,omitempty"`
	FirstEarned   bool              `json:"first_earned"`
}

// NewBadgePromotedEvent creates a badge promoted event
func NewBadgePromotedEvent(userID int64, badge models.BadgeTier, previous *models.BadgeTier, firstEarned bool) *BadgePromotedEvent {
	return &BadgePromotedEvent{
		BaseEvent:     NewBaseEvent(EventTypeBadgePromoted, &userID),
		Badge:         badge,
		PreviousBadge: previous,
		FirstEarned:   firstEarned,
	}
}

// BadgeDemotedEvent is published when a deduction lowered a user's current badge.
// Badge is nil when the user no longer qualifies for any tier.
type BadgeDemotedEvent struct {
	BaseEvent
	Badge         *models.BadgeTier `json:"badge,omitempty"`
	PreviousBadge models.BadgeTier  `json:"previous_badge"`
}

// NewBadgeDemotedEvent creates a badge demoted event
func NewBadgeDemotedEvent(userID int64, badge *models.BadgeTier, previous models.BadgeTier) *BadgeDemotedEvent {
	return &BadgeDemotedEvent{
		BaseEvent:     NewBaseEvent(EventTypeBadgeDemoted, &userID),
		Badge:         badge,
		PreviousBadge: previous,
	}
}

// NotificationRequestedEvent carries a notification for persistence and delivery
type NotificationRequestedEvent struct {
	BaseEvent
	Notification models.Notification `json:"notification"`
}

// NewNotificationRequestedEvent creates a notification requested event
func NewNotificationRequestedEvent(n models.Notification) *NotificationRequestedEvent {
	userID := n.UserID
	return &NotificationRequestedEvent{
		BaseEvent:    NewBaseEvent(EventTypeNotificationRequested, &userID),
		Notification: n,
	}
}

// DashboardUpdateRequestedEvent asks live dashboards of a user to refresh
type DashboardUpdateRequestedEvent struct {
	BaseEvent
}

// NewDashboardUpdateRequestedEvent creates a dashboard update requested event
func NewDashboardUpdateRequestedEvent(userID int64) *DashboardUpdateRequestedEvent {
	return &DashboardUpdateRequestedEvent{
		BaseEvent: NewBaseEvent(EventTypeDashboardUpdateRequested, &userID),
	}
}
