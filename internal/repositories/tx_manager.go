package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"unihub/internal/database"
)

type pgTxManager struct {
	db     *database.Manager
	logger *zap.Logger
}

// NewTxManager creates a transaction runner over the PostgreSQL pool. Each unit of
// work runs at READ COMMITTED; per-user serialization comes from the row lock
// taken by BalanceRepository.GetForUpdate.
func NewTxManager(db *database.Manager, logger *zap.Logger) TxManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &pgTxManager{db: db, logger: logger}
}

type pgUnitOfWork struct {
	ledger       LedgerRepository
	balances     BalanceRepository
	achievements AchievementRepository
}

func (u *pgUnitOfWork) Ledger() LedgerRepository { return u.ledger }
func (u *pgUnitOfWork) Balances() BalanceRepository { return u.balances }
func (u *pgUnitOfWork) Achievements() AchievementRepository { return u.achievements }

func (m *pgTxManager) RunInTx(ctx context.Context, fn func(uow UnitOfWork) error) (err error) {
	start := time.Now()

	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", translateError(err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	uow := &pgUnitOfWork{
		ledger:       NewLedgerRepository(tx, m.logger),
		balances:     NewBalanceRepository(tx, m.logger),
		achievements: NewAchievementRepository(tx, m.logger),
	}

	if err := fn(uow); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Error("Failed to rollback transaction",
				zap.NamedError("rollback_error", rbErr),
				zap.Error(err),
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", translateError(err))
	}

	m.logger.Debug("Transaction committed", zap.Duration("duration", time.Since(start)))
	return nil
}
