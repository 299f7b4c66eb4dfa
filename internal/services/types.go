package services

import (
	"unihub/internal/models"
)

// ===============================
// POINTS REQUESTS
// ===============================

// AwardPointsRequest adds Amount points to a user. Amounts are capped at one
// million per request; the store rejects balances past the INTEGER range.
type AwardPointsRequest struct {
	UserID      int64             `json:"user_id" validate:"required,gt=0"`
	Amount      int               `json:"amount" validate:"gt=0,lte=1000000"`
	SourceType  models.SourceType `json:"source_type" validate:"required,source_type"`
	SourceID    *int64            `json:"source_id,omitempty"`
	Description string            `json:"description" validate:"max=500"`
	// NotifyDashboard also refreshes the user's live dashboard
	NotifyDashboard bool `json:"notify_dashboard"`
}

// DeductPointsRequest removes Amount points from a user, flooring the balance at zero
type DeductPointsRequest struct {
	UserID      int64             `json:"user_id" validate:"required,gt=0"`
	Amount      int               `json:"amount" validate:"gt=0,lte=1000000"`
	SourceType  models.SourceType `json:"source_type" validate:"required,source_type"`
	SourceID    *int64            `json:"source_id,omitempty"`
	Description string            `json:"description" validate:"max=500"`
}

// PointsResult reports the committed state after a mutation
type PointsResult struct {
	UserID         int64             `json:"user_id"`
	LedgerEntryID  int64             `json:"ledger_entry_id"`
	Delta          int               `json:"delta"`
	PreviousPoints int               `json:"previous_points"`
	Points         int               `json:"points"`
	CurrentBadge   *models.BadgeTier `json:"current_badge"`
	Transition     *TransitionResult `json:"transition,omitempty"`
}

// TransitionResult summarizes a badge change for API callers
type TransitionResult struct {
	Kind        TransitionKind    `json:"kind"`
	Previous    *models.BadgeTier `json:"previous,omitempty"`
	Current     *models.BadgeTier `json:"current,omitempty"`
	FirstEarned bool              `json:"first_earned"`
}

// PointsHistoryRequest pages through a user's ledger, newest first
type PointsHistoryRequest struct {
	UserID   int64 `json:"user_id" validate:"required,gt=0"`
	Page     int   `json:"page" validate:"gte=1"`
	PageSize int   `json:"page_size" validate:"gte=1,lte=100"`
}

// ===============================
// BADGE REQUESTS
// ===============================

// CreateTierRequest adds a tier to the ladder
type CreateTierRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	Description     string `json:"description" validate:"max=500"`
	PointsThreshold int    `json:"points_threshold" validate:"gte=0,lte=2147483647"`
}

// ===============================
// LEADERBOARD REQUESTS
// ===============================

// LeaderboardRequest selects a ranking scope
type LeaderboardRequest struct {
	Scope          models.LeaderboardScope `json:"scope"`
	OrganizationID *int64                  `json:"organization_id,omitempty"`
}
