package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"unihub/internal/cache"
	"unihub/internal/models"
	"unihub/internal/repositories"
)

// BadgeLadder is an immutable, threshold-ordered view of the badge tiers.
// It is safe for concurrent use.
type BadgeLadder struct {
	tiers []*models.BadgeTier
}

// NewBadgeLadder copies tiers and orders them by threshold, then id
func NewBadgeLadder(tiers []*models.BadgeTier) *BadgeLadder {
	sorted := make([]*models.BadgeTier, 0, len(tiers))
	for _, t := range tiers {
		if t == nil {
			continue
		}
		c := *t
		sorted = append(sorted, &c)
	}
	slices.SortFunc(sorted, func(a, b *models.BadgeTier) int {
		if a.PointsThreshold != b.PointsThreshold {
			return a.PointsThreshold - b.PointsThreshold
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return &BadgeLadder{tiers: sorted}
}

// HighestQualifying returns the tier with the greatest threshold <= points,
// or nil when points are below every tier. Among tiers sharing that
// threshold the lowest id wins.
func (l *BadgeLadder) HighestQualifying(points int) *models.BadgeTier {
	// first index whose threshold exceeds points
	i, _ := slices.BinarySearchFunc(l.tiers, points, func(t *models.BadgeTier, target int) int {
		if t.PointsThreshold <= target {
			return -1
		}
		return 1
	})
	if i == 0 {
		return nil
	}

	j := i - 1
	for j > 0 && l.tiers[j-1].PointsThreshold == l.tiers[j].PointsThreshold {
		j--
	}
	return l.tiers[j]
}

// ByID finds a tier by id
func (l *BadgeLadder) ByID(id int64) *models.BadgeTier {
	for _, t := range l.tiers {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Tiers returns copies of every tier in ladder order
func (l *BadgeLadder) Tiers() []*models.BadgeTier {
	out := make([]*models.BadgeTier, 0, len(l.tiers))
	for _, t := range l.tiers {
		c := *t
		out = append(out, &c)
	}
	return out
}

// Len returns the number of tiers
func (l *BadgeLadder) Len() int {
	return len(l.tiers)
}

// ===============================
// LADDER LOADING
// ===============================

const tierCacheKey = "gamification:badge_tiers"

// LadderLoader reads the ladder from storage through an optional cache
type LadderLoader struct {
	badges repositories.BadgeRepository
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewLadderLoader creates a loader. A nil cache reads storage every time.
func NewLadderLoader(badges repositories.BadgeRepository, c cache.Cache, ttl time.Duration, logger *zap.Logger) *LadderLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LadderLoader{badges: badges, cache: c, ttl: ttl, logger: logger}
}

// Load returns the current ladder
func (l *LadderLoader) Load(ctx context.Context) (*BadgeLadder, error) {
	tiers, err := cache.Remember(ctx, l.cache, l.logger, tierCacheKey, l.ttl, func() ([]*models.BadgeTier, error) {
		return l.badges.List(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("load badge tiers: %w", err)
	}
	return NewBadgeLadder(tiers), nil
}

// Invalidate drops the cached ladder after tiers change
func (l *LadderLoader) Invalidate(ctx context.Context) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Delete(ctx, tierCacheKey); err != nil {
		l.logger.Warn("Failed to invalidate tier cache", zap.Error(err))
	}
}
