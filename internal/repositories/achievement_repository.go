package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"unihub/internal/models"
)

type achievementRepository struct {
	*BaseRepository
}

// NewAchievementRepository creates a PostgreSQL badge history repository
func NewAchievementRepository(db DBTX, logger *zap.Logger) AchievementRepository {
	return &achievementRepository{BaseRepository: NewBaseRepository(db, logger)}
}

func (r *achievementRepository) Exists(ctx context.Context, userID, badgeID int64) (bool, error) {
	var exists bool
	err := r.QueryRowScan(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_badges WHERE user_id = $1 AND badge_id = $2)`,
		[]interface{}{userID, badgeID}, &exists)
	if err != nil {
		return false, fmt.Errorf("failed to check achievement: %w", err)
	}
	return exists, nil
}

func (r *achievementRepository) Insert(ctx context.Context, a *models.BadgeAchievement) (bool, error) {
	err := r.QueryRowScan(ctx, `
		INSERT INTO user_badges (user_id, badge_id, earned_at)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT uq_user_badges_user_badge DO NOTHING
		RETURNING id`,
		[]interface{}{a.UserID, a.BadgeID, a.EarnedAt}, &a.ID)
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert achievement: %w", err)
	}
	return true, nil
}

func (r *achievementRepository) ListByUser(ctx context.Context, userID int64) ([]*models.BadgeAchievement, error) {
	rows, err := r.QueryContext(ctx, `
		SELECT ub.id, ub.user_id, ub.badge_id, ub.earned_at,
		       bt.id, bt.name, bt.description, bt.points_threshold, bt.created_at
		FROM user_badges ub
		JOIN badge_tiers bt ON bt.id = ub.badge_id
		WHERE ub.user_id = $1
		ORDER BY ub.earned_at ASC, ub.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	var out []*models.BadgeAchievement
	for rows.Next() {
		a := &models.BadgeAchievement{Badge: &models.BadgeTier{}}
		if err := rows.Scan(&a.ID, &a.UserID, &a.BadgeID, &a.EarnedAt,
			&a.Badge.ID, &a.Badge.Name, &a.Badge.Description, &a.Badge.PointsThreshold, &a.Badge.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
