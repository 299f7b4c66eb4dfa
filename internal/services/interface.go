package services

import (
	"context"

	"unihub/internal/models"
	"unihub/internal/repositories"
)

// ===============================
// GAMIFICATION
// ===============================

// GamificationService is the single entry point for points mutations
type GamificationService interface {
	AwardPoints(ctx context.Context, req *AwardPointsRequest) (*PointsResult, error)
	DeductPoints(ctx context.Context, req *DeductPointsRequest) (*PointsResult, error)

	GetBalance(ctx context.Context, userID int64) (*models.UserBalance, error)
	GetAchievements(ctx context.Context, userID int64) ([]*models.BadgeAchievement, error)
	GetAllTiers(ctx context.Context) ([]*models.BadgeTier, error)
	GetMyBadges(ctx context.Context, userID int64) (*models.MyBadges, error)
	GetPointsHistory(ctx context.Context, req *PointsHistoryRequest) (*models.PaginatedResponse[*models.PointsLedgerEntry], error)

	CreateTier(ctx context.Context, req *CreateTierRequest) (*models.BadgeTier, error)
	SeedDefaultTiers(ctx context.Context) (int, error)

	SendDashboardUpdate(ctx context.Context, userID int64) error
}

// LeaderboardService ranks members by points
type LeaderboardService interface {
	RankMembers(ctx context.Context, req *LeaderboardRequest) (*models.Leaderboard, error)
	// TopMembers returns the first n ranked members; n <= 0 yields an empty ranking
	TopMembers(ctx context.Context, req *LeaderboardRequest, n int) (*models.Leaderboard, error)
	Invalidate(ctx context.Context) error
}

// NotificationService persists gamification notifications and pushes them to live clients
type NotificationService interface {
	Deliver(ctx context.Context, notification *models.Notification) error
	ListForUser(ctx context.Context, userID int64, limit int) ([]*models.Notification, error)
}

// TransactionService runs a unit of work with bounded retries on write conflicts
type TransactionService interface {
	ExecuteWithRetry(ctx context.Context, operation string, fn func(uow repositories.UnitOfWork) error) error
}
