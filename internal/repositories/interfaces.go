package repositories

import (
	"context"
	"errors"

	"unihub/internal/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict marks transient write conflicts (serialization failure, deadlock, lock timeout)
	ErrConflict = errors.New("write conflict")
	// ErrOutOfRange is returned when a value would overflow its column
	ErrOutOfRange = errors.New("value out of range")
)

// ===============================
// BADGE REPOSITORY
// ===============================

// BadgeRepository stores the badge ladder
type BadgeRepository interface {
	// List returns every tier ordered by threshold then id
	List(ctx context.Context) ([]*models.BadgeTier, error)
	GetByID(ctx context.Context, id int64) (*models.BadgeTier, error)
	Create(ctx context.Context, tier *models.BadgeTier) error
	Count(ctx context.Context) (int64, error)
}

// ===============================
// POINTS REPOSITORIES
// ===============================

// LedgerRepository is the append-only points audit trail
type LedgerRepository interface {
	Append(ctx context.Context, entry *models.PointsLedgerEntry) (int64, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.PointsLedgerEntry, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
}

// BalanceRepository reads and mutates the materialized per-user balance
type BalanceRepository interface {
	Get(ctx context.Context, userID int64) (*models.UserBalance, error)
	// GetForUpdate locks the user's row until the surrounding transaction ends
	GetForUpdate(ctx context.Context, userID int64) (*models.UserBalance, error)
	// ApplyDelta adds delta to the balance, flooring at zero, and returns the new total
	ApplyDelta(ctx context.Context, userID int64, delta int) (int, error)
	SetCurrentBadge(ctx context.Context, userID int64, badgeID *int64) error
}

// AchievementRepository stores the permanent badge history
type AchievementRepository interface {
	Exists(ctx context.Context, userID, badgeID int64) (bool, error)
	// Insert records the achievement unless (user, badge) already exists and reports whether a row was written
	Insert(ctx context.Context, achievement *models.BadgeAchievement) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.BadgeAchievement, error)
}

// NotificationRepository persists gamification notifications
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*models.Notification, error)
}

// LeaderboardRepository ranks balances
type LeaderboardRepository interface {
	// RankMembers returns balances ordered by points descending then user id ascending.
	// A nil organizationID ranks every user.
	RankMembers(ctx context.Context, organizationID *int64) ([]*models.UserBalance, error)
}

// ===============================
// UNIT OF WORK
// ===============================

// UnitOfWork exposes the repositories bound to a single transaction
type UnitOfWork interface {
	Ledger() LedgerRepository
	Balances() BalanceRepository
	Achievements() AchievementRepository
}

// TxManager runs fn inside one transaction; fn's error rolls everything back
type TxManager interface {
	RunInTx(ctx context.Context, fn func(uow UnitOfWork) error) error
}
