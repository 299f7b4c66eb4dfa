package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"unihub/internal/models"
	"unihub/internal/realtime"
	"unihub/internal/repositories"
)

type notificationService struct {
	repo      repositories.NotificationRepository
	publisher realtime.Publisher
	logger    *zap.Logger
}

// NewNotificationService creates a notification service
func NewNotificationService(repo repositories.NotificationRepository, publisher realtime.Publisher, logger *zap.Logger) NotificationService {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &notificationService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.With(zap.String("component", "notification_service")),
	}
}

// Deliver stores the notification, then pushes it on the user's notifications topic
func (s *notificationService) Deliver(ctx context.Context, n *models.Notification) error {
	if n == nil || n.UserID <= 0 {
		return InvalidInputError("user_id", "notification needs a recipient")
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("persist notification for user %d: %w", n.UserID, err)
	}

	if err := s.publisher.Publish(ctx, realtime.NotificationsTopic(n.UserID), n); err != nil {
		return fmt.Errorf("publish notification %d: %w", n.ID, err)
	}

	s.logger.Debug("Notification delivered",
		zap.Int64("notification_id", n.ID),
		zap.Int64("user_id", n.UserID),
		zap.String("type", string(n.Type)),
	)
	return nil
}

// ListForUser returns the newest notifications for a user
func (s *notificationService) ListForUser(ctx context.Context, userID int64, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, NewInternalError("failed to list notifications").WithCause(err)
	}
	if list == nil {
		list = []*models.Notification{}
	}
	return list, nil
}
