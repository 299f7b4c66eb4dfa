package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"unihub/internal/models"
)

type notificationRepository struct {
	*BaseRepository
}

// NewNotificationRepository creates a PostgreSQL notification repository
func NewNotificationRepository(db DBTX, logger *zap.Logger) NotificationRepository {
	return &notificationRepository{BaseRepository: NewBaseRepository(db, logger)}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	err := r.QueryRowScan(ctx, `
		INSERT INTO notifications (user_id, message, type, link, is_read)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id, created_at`,
		[]interface{}{n.UserID, n.Message, n.Type, n.Link}, &n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*models.Notification, error) {
	rows, err := r.QueryContext(ctx, `
		SELECT id, user_id, message, type, link, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Type, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
