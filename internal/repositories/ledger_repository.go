package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"unihub/internal/models"
)

type ledgerRepository struct {
	*BaseRepository
}

// NewLedgerRepository creates a PostgreSQL points ledger. The table rejects
// UPDATE and DELETE, so the repository only appends and reads.
func NewLedgerRepository(db DBTX, logger *zap.Logger) LedgerRepository {
	return &ledgerRepository{BaseRepository: NewBaseRepository(db, logger)}
}

func (r *ledgerRepository) Append(ctx context.Context, entry *models.PointsLedgerEntry) (int64, error) {
	if err := ValidateLedgerEntry(entry); err != nil {
		return 0, err
	}

	err := r.QueryRowScan(ctx, `
		INSERT INTO points_ledger (user_id, source_type, source_id, delta, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		[]interface{}{entry.UserID, entry.SourceType, entry.SourceID, entry.Delta, entry.Description},
		&entry.ID, &entry.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return entry.ID, nil
}

func (r *ledgerRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.PointsLedgerEntry, error) {
	rows, err := r.QueryContext(ctx, `
		SELECT id, user_id, source_type, source_id, delta, description, created_at
		FROM points_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.PointsLedgerEntry
	for rows.Next() {
		e := &models.PointsLedgerEntry{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.SourceType, &e.SourceID, &e.Delta, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *ledgerRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if err := r.QueryRowScan(ctx, `SELECT COUNT(*) FROM points_ledger WHERE user_id = $1`,
		[]interface{}{userID}, &count); err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

// ValidateLedgerEntry enforces the only rules the ledger itself owns: a non-zero
// delta, a user and a known source type.
func ValidateLedgerEntry(entry *models.PointsLedgerEntry) error {
	if entry == nil {
		return fmt.Errorf("ledger entry is required")
	}
	if entry.Delta == 0 {
		return fmt.Errorf("ledger entry delta must be non-zero")
	}
	if entry.UserID <= 0 {
		return fmt.Errorf("ledger entry user id must be positive")
	}
	if !entry.SourceType.IsValid() {
		return fmt.Errorf("ledger entry source type %q is invalid", entry.SourceType)
	}
	return nil
}
