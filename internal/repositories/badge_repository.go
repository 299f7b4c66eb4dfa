package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"unihub/internal/models"
)

type badgeRepository struct {
	*BaseRepository
}

// NewBadgeRepository creates a PostgreSQL badge tier repository
func NewBadgeRepository(db DBTX, logger *zap.Logger) BadgeRepository {
	return &badgeRepository{BaseRepository: NewBaseRepository(db, logger)}
}

const badgeColumns = `id, name, description, points_threshold, created_at`

func (r *badgeRepository) List(ctx context.Context) ([]*models.BadgeTier, error) {
	rows, err := r.QueryContext(ctx, `
		SELECT `+badgeColumns+`
		FROM badge_tiers
		ORDER BY points_threshold ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list badge tiers: %w", err)
	}
	defer rows.Close()

	var tiers []*models.BadgeTier
	for rows.Next() {
		tier := &models.BadgeTier{}
		if err := rows.Scan(&tier.ID, &tier.Name, &tier.Description, &tier.PointsThreshold, &tier.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan badge tier: %w", err)
		}
		tiers = append(tiers, tier)
	}
	return tiers, rows.Err()
}

func (r *badgeRepository) GetByID(ctx context.Context, id int64) (*models.BadgeTier, error) {
	tier := &models.BadgeTier{}
	err := r.QueryRowScan(ctx, `SELECT `+badgeColumns+` FROM badge_tiers WHERE id = $1`,
		[]interface{}{id},
		&tier.ID, &tier.Name, &tier.Description, &tier.PointsThreshold, &tier.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get badge tier %d: %w", id, err)
	}
	return tier, nil
}

func (r *badgeRepository) Create(ctx context.Context, tier *models.BadgeTier) error {
	err := r.QueryRowScan(ctx, `
		INSERT INTO badge_tiers (name, description, points_threshold)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		[]interface{}{tier.Name, tier.Description, tier.PointsThreshold},
		&tier.ID, &tier.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create badge tier: %w", err)
	}
	return nil
}

func (r *badgeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.QueryRowScan(ctx, `SELECT COUNT(*) FROM badge_tiers`, nil, &count); err != nil {
		return 0, fmt.Errorf("failed to count badge tiers: %w", err)
	}
	return count, nil
}
