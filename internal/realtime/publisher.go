// Package realtime delivers gamification fan-out to live subscribers.
// Delivery is at-most-once: topics are not durable and a missing subscriber
// is never an error.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Topic names
const (
	TopicLeaderboardUpdate = "leaderboard-update"

	dashboardTopicPrefix      = "dashboard-update:"
	badgePromotionTopicPrefix = "badge-promotion:"
	notificationsTopicPrefix  = "notifications:"
)

// Publisher is a publish-subscribe primitive addressed by topic
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// DashboardTopic is the per-user dashboard refresh channel
func DashboardTopic(userID int64) string {
	return dashboardTopicPrefix + strconv.FormatInt(userID, 10)
}

// BadgePromotionTopic is the per-user badge promotion channel
func BadgePromotionTopic(userID int64) string {
	return badgePromotionTopicPrefix + strconv.FormatInt(userID, 10)
}

// NotificationsTopic is the per-user notification channel
func NotificationsTopic(userID int64) string {
	return notificationsTopicPrefix + strconv.FormatInt(userID, 10)
}

// TopicOwner returns the user a per-user topic belongs to.
// ok is false for shared topics such as leaderboard-update.
func TopicOwner(topic string) (userID int64, ok bool, err error) {
	for _, prefix := range []string{dashboardTopicPrefix, badgePromotionTopicPrefix, notificationsTopicPrefix} {
		if !strings.HasPrefix(topic, prefix) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(topic, prefix), 10, 64)
		if err != nil || id <= 0 {
			return 0, false, fmt.Errorf("invalid user id in topic %q", topic)
		}
		return id, true, nil
	}
	if topic == TopicLeaderboardUpdate {
		return 0, false, nil
	}
	return 0, false, fmt.Errorf("unknown topic %q", topic)
}

// MultiPublisher publishes to every wrapped publisher and joins their errors
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, topic string, payload any) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, topic, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopPublisher discards everything
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
