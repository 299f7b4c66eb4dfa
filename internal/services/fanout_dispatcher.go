package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"unihub/internal/events"
	"unihub/internal/realtime"
)

// Update payload types
const (
	UpdateTypeLeaderboard = "LEADERBOARD_UPDATE"
	UpdateTypeDashboard   = "DASHBOARD_UPDATE"
)

// UpdatePayload tells subscribers to re-query
type UpdatePayload struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// BadgePromotionPayload drives the client-side promotion pop-up
type BadgePromotionPayload struct {
	UserID           int64     `json:"userId"`
	BadgeID          int64     `json:"badgeId"`
	BadgeName        string    `json:"badgeName"`
	BadgeDescription string    `json:"badgeDescription"`
	PointsThreshold  int       `json:"pointsThreshold"`
	Timestamp        time.Time `json:"timestamp"`
}

// FanoutDispatcher turns committed gamification events into realtime messages
// and notification deliveries. It is the only consumer of those events.
type FanoutDispatcher struct {
	publisher     realtime.Publisher
	leaderboard   LeaderboardService
	notifications NotificationService
	timeout       time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// NewFanoutDispatcher creates a dispatcher. timeout bounds each publish.
func NewFanoutDispatcher(publisher realtime.Publisher, leaderboard LeaderboardService, notifications NotificationService, timeout time.Duration, logger *zap.Logger) *FanoutDispatcher {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &FanoutDispatcher{
		publisher:     publisher,
		leaderboard:   leaderboard,
		notifications: notifications,
		timeout:       timeout,
		logger:        logger.With(zap.String("component", "fanout_dispatcher")),
		now:           time.Now,
	}
}

// Register subscribes the dispatcher to bus
func (d *FanoutDispatcher) Register(bus events.EventBus) error {
	subscriptions := map[string]events.EventHandler{
		events.EventTypePointsChanged:            events.NewTypedEventHandler("fanout.leaderboard", d.onPointsChanged),
		events.EventTypeBadgePromoted:            events.NewTypedEventHandler("fanout.badge_promotion", d.onBadgePromoted),
		events.EventTypeNotificationRequested:    events.NewTypedEventHandler("fanout.notification", d.onNotificationRequested),
		events.EventTypeDashboardUpdateRequested: events.NewTypedEventHandler("fanout.dashboard", d.onDashboardUpdateRequested),
	}
	for eventType, handler := range subscriptions {
		if err := bus.Subscribe(eventType, handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", eventType, err)
		}
	}
	return nil
}

func (d *FanoutDispatcher) onPointsChanged(ctx context.Context, e *events.PointsChangedEvent) error {
	if d.leaderboard != nil {
		if err := d.leaderboard.Invalidate(ctx); err != nil {
			d.logger.Warn("Failed to invalidate leaderboard cache", zap.Error(err))
		}
	}
	return d.SendLeaderboardUpdate(ctx)
}

func (d *FanoutDispatcher) onBadgePromoted(ctx context.Context, e *events.BadgePromotedEvent) error {
	userID := *e.GetUserID()
	return d.publish(ctx, realtime.BadgePromotionTopic(userID), BadgePromotionPayload{
		UserID:           userID,
		BadgeID:          e.Badge.ID,
		BadgeName:        e.Badge.Name,
		BadgeDescription: e.Badge.Description,
		PointsThreshold:  e.Badge.PointsThreshold,
		Timestamp:        d.now(),
	})
}

func (d *FanoutDispatcher) onNotificationRequested(ctx context.Context, e *events.NotificationRequestedEvent) error {
	if d.notifications == nil {
		return nil
	}
	n := e.Notification
	return d.notifications.Deliver(ctx, &n)
}

func (d *FanoutDispatcher) onDashboardUpdateRequested(ctx context.Context, e *events.DashboardUpdateRequestedEvent) error {
	return d.SendDashboardUpdate(ctx, *e.GetUserID())
}

// SendLeaderboardUpdate broadcasts leaderboard-update
func (d *FanoutDispatcher) SendLeaderboardUpdate(ctx context.Context) error {
	return d.publish(ctx, realtime.TopicLeaderboardUpdate, UpdatePayload{Type: UpdateTypeLeaderboard, Timestamp: d.now()})
}

// SendDashboardUpdate publishes on dashboard-update:{userID}
func (d *FanoutDispatcher) SendDashboardUpdate(ctx context.Context, userID int64) error {
	return d.publish(ctx, realtime.DashboardTopic(userID), UpdatePayload{Type: UpdateTypeDashboard, Timestamp: d.now()})
}

func (d *FanoutDispatcher) publish(ctx context.Context, topic string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, topic, payload); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	d.logger.Debug("Published", zap.String("topic", topic))
	return nil
}
