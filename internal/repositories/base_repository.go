package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// DBTX is satisfied by *database.Manager and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// BaseRepository provides common database operations
type BaseRepository struct {
	db            DBTX
	logger        *zap.Logger
	slowThreshold time.Duration
}

// NewBaseRepository creates a base repository over db
func NewBaseRepository(db DBTX, logger *zap.Logger) *BaseRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaseRepository{
		db:            db,
		logger:        logger,
		slowThreshold: 100 * time.Millisecond,
	}
}

// ===============================
// CORE DATABASE OPERATIONS
// ===============================

// ExecContext executes a statement with slow query logging
func (r *BaseRepository) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := r.db.ExecContext(ctx, query, args...)
	r.logSlow(query, time.Since(start), args)
	return result, translateError(err)
}

// QueryContext executes a query that returns rows
func (r *BaseRepository) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, args...)
	r.logSlow(query, time.Since(start), args)
	return rows, translateError(err)
}

// QueryRowScan executes a single-row query and scans it into dest
func (r *BaseRepository) QueryRowScan(ctx context.Context, query string, args []interface{}, dest ...interface{}) error {
	start := time.Now()
	err := r.db.QueryRowContext(ctx, query, args...).Scan(dest...)
	r.logSlow(query, time.Since(start), args)
	return translateError(err)
}

func (r *BaseRepository) logSlow(query string, duration time.Duration, args []interface{}) {
	if duration > r.slowThreshold {
		r.logger.Warn("Slow query detected",
			zap.String("query", truncateQuery(query)),
			zap.Duration("duration", duration),
			zap.Any("args", args),
		)
	}
}

// ===============================
// ERROR TRANSLATION
// ===============================

// PostgreSQL error codes that map onto repository errors
const (
	pqNumericOutOfRange    = "22003"
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
)

// translateError maps driver errors onto the repository sentinel errors
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
		case pqNumericOutOfRange:
			return fmt.Errorf("%w: %s", ErrOutOfRange, pqErr.Message)
		case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	return err
}

// IsNotFound checks if an error means no rows were found
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func truncateQuery(query string) string {
	const maxLength = 200
	if len(query) <= maxLength {
		return query
	}
	return query[:maxLength] + "..."
}
