package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"unihub/internal/cache"
	"unihub/internal/models"
	"unihub/internal/repositories"
)

const leaderboardCachePattern = "leaderboard:*"

// leaderboardService ranks members straight from the balance store.
// Rankings may be cached per scope and are dropped on every points change.
// Cache keys carry a generation that Invalidate bumps, so a ranking computed
// before an invalidation is stored under a key no later reader uses.
type leaderboardService struct {
	repo       repositories.LeaderboardRepository
	ladders    *LadderLoader
	cache      cache.Cache
	ttl        time.Duration
	generation atomic.Uint64
	logger     *zap.Logger
}

// NewLeaderboardService creates a leaderboard service. A nil cache disables caching.
func NewLeaderboardService(repo repositories.LeaderboardRepository, ladders *LadderLoader, c cache.Cache, ttl time.Duration, logger *zap.Logger) LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		c = nil
	}
	return &leaderboardService{
		repo:    repo,
		ladders: ladders,
		cache:   c,
		ttl:     ttl,
		logger:  logger.With(zap.String("component", "leaderboard_service")),
	}
}

// RankMembers returns every member in scope ordered by points desc, user id asc
func (s *leaderboardService) RankMembers(ctx context.Context, req *LeaderboardRequest) (*models.Leaderboard, error) {
	scope, orgID, err := normalizeScope(req)
	if err != nil {
		return nil, err
	}

	key := leaderboardKey(s.generation.Load(), scope, orgID)
	rankings, err := cache.Remember(ctx, s.cache, s.logger, key, s.ttl, func() ([]*models.LeaderboardEntry, error) {
		return s.rank(ctx, orgID)
	})
	if err != nil {
		s.logger.Error("Failed to rank members", zap.String("scope", string(scope)), zap.Error(err))
		return nil, NewInternalError("failed to load leaderboard").WithCause(err)
	}

	return &models.Leaderboard{Scope: scope, OrganizationID: orgID, Rankings: rankings}, nil
}

// TopMembers returns the first n entries of RankMembers
func (s *leaderboardService) TopMembers(ctx context.Context, req *LeaderboardRequest, n int) (*models.Leaderboard, error) {
	if n <= 0 {
		scope, orgID, err := normalizeScope(req)
		if err != nil {
			return nil, err
		}
		return &models.Leaderboard{Scope: scope, OrganizationID: orgID, Rankings: []*models.LeaderboardEntry{}}, nil
	}

	board, err := s.RankMembers(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(board.Rankings) > n {
		board.Rankings = board.Rankings[:n]
	}
	return board, nil
}

// Invalidate drops every cached ranking
func (s *leaderboardService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	s.generation.Add(1)
	return s.cache.DeletePattern(ctx, leaderboardCachePattern)
}

func (s *leaderboardService) rank(ctx context.Context, orgID *int64) ([]*models.LeaderboardEntry, error) {
	balances, err := s.repo.RankMembers(ctx, orgID)
	if err != nil {
		return nil, err
	}
	ladder, err := s.ladders.Load(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]*models.LeaderboardEntry, 0, len(balances))
	for i, b := range balances {
		entries = append(entries, &models.LeaderboardEntry{
			Rank:           i + 1,
			UserID:         b.UserID,
			DisplayName:    b.DisplayName,
			OrganizationID: b.OrganizationID,
			Points:         b.Points,
			CurrentBadge:   currentBadge(ladder, b.CurrentBadgeID),
		})
	}
	return entries, nil
}

// normalizeScope validates the scope. GLOBAL ignores any organization id.
func normalizeScope(req *LeaderboardRequest) (models.LeaderboardScope, *int64, error) {
	if req == nil {
		req = &LeaderboardRequest{}
	}
	scope, err := models.ParseLeaderboardScope(string(req.Scope))
	if err != nil {
		return "", nil, NewValidationError("invalid leaderboard scope", err).WithDetail("scope", req.Scope)
	}
	if scope == models.ScopeGlobal {
		return scope, nil, nil
	}
	if req.OrganizationID == nil || *req.OrganizationID <= 0 {
		return "", nil, InvalidInputError("organization_id", "required for ORGANIZATION scope")
	}
	id := *req.OrganizationID
	return scope, &id, nil
}

func leaderboardKey(generation uint64, scope models.LeaderboardScope, orgID *int64) string {
	if orgID == nil {
		return fmt.Sprintf("leaderboard:%d:%s", generation, scope)
	}
	return fmt.Sprintf("leaderboard:%d:%s:%d", generation, scope, *orgID)
}
