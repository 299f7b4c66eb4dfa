package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// ===============================
// SOURCE TYPES
// ===============================

// SourceType identifies what kind of platform activity produced a points delta.
type SourceType string

const (
	SourceEvent           SourceType = "EVENT"
	SourceBlog            SourceType = "BLOG"
	SourceEventLeave      SourceType = "EVENT_LEAVE"
	SourceReportResolved  SourceType = "REPORT_RESOLVED"
	SourceReportDismissed SourceType = "REPORT_DISMISSED"
	SourceOther           SourceType = "OTHER"
)

// SourceTypes lists every known source type.
func SourceTypes() []SourceType {
	return []SourceType{
		SourceEvent,
		SourceBlog,
		SourceEventLeave,
		SourceReportResolved,
		SourceReportDismissed,
		SourceOther,
	}
}

// IsValid reports whether s is one of the known source types.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceEvent, SourceBlog, SourceEventLeave, SourceReportResolved, SourceReportDismissed, SourceOther:
		return true
	default:
		return false
	}
}

// ParseSourceType accepts any casing of a known source type.
func ParseSourceType(raw string) (SourceType, error) {
	s := SourceType(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown source type %q", raw)
	}
	return s, nil
}

// Value implements driver.Valuer
func (s SourceType) Value() (driver.Value, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid source type %q", string(s))
	}
	return string(s), nil
}

// Scan implements sql.Scanner
func (s *SourceType) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into SourceType", value)
	}
	parsed, err := ParseSourceType(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ===============================
// LEDGER & BALANCE
// ===============================

// PointsLedgerEntry is one immutable line of the points audit trail.
// Delta is signed and keeps the requested magnitude even when the balance was floored.
type PointsLedgerEntry struct {
	ID          int64      `json:"id" db:"id"`
	UserID      int64      `json:"user_id" db:"user_id"`
	SourceType  SourceType `json:"source_type" db:"source_type"`
	SourceID    *int64     `json:"source_id,omitempty" db:"source_id"`
	Delta       int        `json:"delta" db:"delta"`
	Description string     `json:"description" db:"description"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// UserBalance is the materialized points total and current badge of a user.
type UserBalance struct {
	UserID         int64  `json:"user_id" db:"id"`
	DisplayName    string `json:"display_name" db:"display_name"`
	OrganizationID *int64 `json:"organization_id,omitempty" db:"organization_id"`
	Points         int    `json:"points" db:"points"`
	CurrentBadgeID *int64 `json:"current_badge_id,omitempty" db:"current_badge_id"`
}

// Clone returns a copy that shares no pointers with b.
func (b *UserBalance) Clone() *UserBalance {
	if b == nil {
		return nil
	}
	c := *b
	if b.OrganizationID != nil {
		org := *b.OrganizationID
		c.OrganizationID = &org
	}
	if b.CurrentBadgeID != nil {
		badge := *b.CurrentBadgeID
		c.CurrentBadgeID = &badge
	}
	return &c
}
