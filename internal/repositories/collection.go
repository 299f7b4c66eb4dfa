// file: internal/repositories/collection.go
package repositories

import (
	"fmt"

	"go.uber.org/zap"

	"unihub/internal/database"
)

// Collection holds all repository instances for dependency injection
type Collection struct {
	Badges        BadgeRepository
	Ledger        LedgerRepository
	Balances      BalanceRepository
	Achievements  AchievementRepository
	Notifications NotificationRepository
	Leaderboard   LeaderboardRepository
	Tx            TxManager
}

// NewCollection wires the PostgreSQL repositories over db
func NewCollection(db *database.Manager, logger *zap.Logger) (*Collection, error) {
	if db == nil {
		return nil, fmt.Errorf("database manager is required")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	collection := &Collection{
		Badges:        NewBadgeRepository(db, logger),
		Ledger:        NewLedgerRepository(db, logger),
		Balances:      NewBalanceRepository(db, logger),
		Achievements:  NewAchievementRepository(db, logger),
		Notifications: NewNotificationRepository(db, logger),
		Leaderboard:   NewLeaderboardRepository(db, logger),
		Tx:            NewTxManager(db, logger),
	}

	logger.Info("Repository collection initialized", zap.String("driver", "postgres"))

	return collection, nil
}
