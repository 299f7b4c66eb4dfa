package models

import (
	"fmt"
	"strings"
)

// LeaderboardScope restricts a ranking to the whole platform or one organization.
type LeaderboardScope string

const (
	ScopeGlobal       LeaderboardScope = "GLOBAL"
	ScopeOrganization LeaderboardScope = "ORGANIZATION"
)

// ParseLeaderboardScope parses a scope value. An empty value means GLOBAL and
// UNIVERSITY is accepted as an alias of ORGANIZATION.
func ParseLeaderboardScope(raw string) (LeaderboardScope, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", string(ScopeGlobal):
		return ScopeGlobal, nil
	case string(ScopeOrganization), "UNIVERSITY":
		return ScopeOrganization, nil
	default:
		return "", fmt.Errorf("unknown leaderboard scope %q", raw)
	}
}

// LeaderboardEntry is one ranked member.
type LeaderboardEntry struct {
	Rank           int        `json:"rank"`
	UserID         int64      `json:"user_id"`
	DisplayName    string     `json:"display_name"`
	OrganizationID *int64     `json:"organization_id,omitempty"`
	Points         int        `json:"points"`
	CurrentBadge   *BadgeTier `json:"current_badge,omitempty"`
}

// Leaderboard is the response shape of a ranking query.
type Leaderboard struct {
	Scope          LeaderboardScope    `json:"scope"`
	OrganizationID *int64              `json:"organization_id,omitempty"`
	Rankings       []*LeaderboardEntry `json:"rankings"`
}
