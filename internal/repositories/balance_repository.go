package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"unihub/internal/models"
)

type balanceRepository struct {
	*BaseRepository
}

// NewBalanceRepository creates a balance store over the users table
func NewBalanceRepository(db DBTX, logger *zap.Logger) BalanceRepository {
	return &balanceRepository{BaseRepository: NewBaseRepository(db, logger)}
}

const balanceSelect = `SELECT id, display_name, organization_id, points, current_badge_id FROM users WHERE id = $1`

func (r *balanceRepository) Get(ctx context.Context, userID int64) (*models.UserBalance, error) {
	return r.scan(ctx, balanceSelect, userID)
}

func (r *balanceRepository) GetForUpdate(ctx context.Context, userID int64) (*models.UserBalance, error) {
	return r.scan(ctx, balanceSelect+` FOR UPDATE`, userID)
}

func (r *balanceRepository) scan(ctx context.Context, query string, userID int64) (*models.UserBalance, error) {
	b := &models.UserBalance{}
	err := r.QueryRowScan(ctx, query, []interface{}{userID},
		&b.UserID, &b.DisplayName, &b.OrganizationID, &b.Points, &b.CurrentBadgeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load balance for user %d: %w", userID, err)
	}
	return b, nil
}

func (r *balanceRepository) ApplyDelta(ctx context.Context, userID int64, delta int) (int, error) {
	var points int
	err := r.QueryRowScan(ctx, `
		UPDATE users
		SET points = GREATEST(points + $2, 0)
		WHERE id = $1
		RETURNING points`,
		[]interface{}{userID, delta}, &points)
	if err != nil {
		return 0, fmt.Errorf("failed to apply delta for user %d: %w", userID, err)
	}
	return points, nil
}

func (r *balanceRepository) SetCurrentBadge(ctx context.Context, userID int64, badgeID *int64) error {
	result, err := r.ExecContext(ctx, `UPDATE users SET current_badge_id = $2 WHERE id = $1`, userID, badgeID)
	if err != nil {
		return fmt.Errorf("failed to set current badge for user %d: %w", userID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to set current badge for user %d: %w", userID, ErrNotFound)
	}
	return nil
}
