package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"unihub/internal/models"
)

type leaderboardRepository struct {
	*BaseRepository
}

// NewLeaderboardRepository creates a read-only ranking over the users table
func NewLeaderboardRepository(db DBTX, logger *zap.Logger) LeaderboardRepository {
	return &leaderboardRepository{BaseRepository: NewBaseRepository(db, logger)}
}

func (r *leaderboardRepository) RankMembers(ctx context.Context, organizationID *int64) ([]*models.UserBalance, error) {
	query := `
		SELECT id, display_name, organization_id, points, current_badge_id
		FROM users`
	var args []interface{}
	if organizationID != nil {
		query += ` WHERE organization_id = $1`
		args = append(args, *organizationID)
	}
	query += ` ORDER BY points DESC, id ASC`

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to rank members: %w", err)
	}
	defer rows.Close()

	var out []*models.UserBalance
	for rows.Next() {
		b := &models.UserBalance{}
		if err := rows.Scan(&b.UserID, &b.DisplayName, &b.OrganizationID, &b.Points, &b.CurrentBadgeID); err != nil {
			return nil, fmt.Errorf("failed to scan ranked member: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
