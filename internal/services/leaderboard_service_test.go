package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"unihub/internal/cache"
	"unihub/internal/models"
	"unihub/internal/repositories"
)

func rankedIDs(board *models.Leaderboard) []int64 {
	ids := make([]int64, 0, len(board.Rankings))
	for _, e := range board.Rankings {
		ids = append(ids, e.UserID)
	}
	return ids
}

func TestRankMembers_OrdersByPointsThenUserID(t *testing.T) {
	env := newTestEnv(t, defaultThresholds)
	env.addUser(4, 120, 100, nil)
	env.addUser(2, 50, 0, nil)
	env.addUser(1, 50, 0, nil)
	env.addUser(3, 300, 300, nil)

	board, err := env.services.Leaderboard.RankMembers(context.Background(), &LeaderboardRequest{Scope: models.ScopeGlobal})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4, 1, 2}, rankedIDs(board))

	for i, e := range board.Rankings {
		assert.Equal(t, i+1, e.Rank)
	}
	assert.Equal(t, "Specialist", board.Rankings[0].CurrentBadge.Name)

	again, err := env.services.Leaderboard.RankMembers(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, rankedIDs(board), rankedIDs(again))
	assert.Equal(t, models.ScopeGlobal, again.Scope)
}

func TestRankMembers_OrganizationScope(t *testing.T) {
	env := newTestEnv(t, defaultThresholds)
	env.addUser(1, 10, 0, int64Ptr(5))
	env.addUser(2, 90, 0, int64Ptr(6))
	env.addUser(3, 40, 0, int64Ptr(5))
	env.addUser(4, 70, 0, nil)
	ctx := context.Background()

	board, err := env.services.Leaderboard.RankMembers(ctx, &LeaderboardRequest{Scope: models.ScopeOrganization, OrganizationID: int64Ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, rankedIDs(board))
	assert.Equal(t, int64(5), *board.OrganizationID)

	alias, err := env.services.Leaderboard.RankMembers(ctx, &LeaderboardRequest{Scope: "university", OrganizationID: int64Ptr(6)})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, rankedIDs(alias))

	global, err := env.services.Leaderboard.RankMembers(ctx, &LeaderboardRequest{Scope: models.ScopeGlobal, OrganizationID: int64Ptr(5)})
	require.NoError(t, err)
	assert.Len(t, global.Rankings, 4)
	assert.Nil(t, global.OrganizationID)
}

func TestRankMembers_ScopeErrors(t *testing.T) {
	env := newTestEnv(t, defaultThresholds)
	ctx := context.Background()

	_, err := env.services.Leaderboard.RankMembers(ctx, &LeaderboardRequest{Scope: "CAMPUS"})
	assert.True(t, IsValidationError(err))

	_, err = env.services.Leaderboard.RankMembers(ctx, &LeaderboardRequest{Scope: models.ScopeOrganization})
	assert.True(t, IsValidationError(err))

	_, err = env.services.Leaderboard.RankMembers(ctx, &LeaderboardRequest{Scope: models.ScopeOrganization, OrganizationID: int64Ptr(0)})
	assert.True(t, IsValidationError(err))

	_, err = env.services.Leaderboard.TopMembers(ctx, &LeaderboardRequest{Scope: "CAMPUS"}, 0)
	assert.True(t, IsValidationError(err))
}

func TestTopMembers(t *testing.T) {
	env := newTestEnv(t, defaultThresholds)
	for id := int64(1); id <= 5; id++ {
		env.addUser(id, int(id)*10, 0, nil)
	}
	ctx := context.Background()
	req := &LeaderboardRequest{Scope: models.ScopeGlobal}

	top, err := env.services.Leaderboard.TopMembers(ctx, req, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 4}, rankedIDs(top))

	all, err := env.services.Leaderboard.TopMembers(ctx, req, 50)
	require.NoError(t, err)
	assert.Len(t, all.Rankings, 5)

	none, err := env.services.Leaderboard.TopMembers(ctx, req, 0)
	require.NoError(t, err)
	assert.NotNil(t, none.Rankings)
	assert.Empty(t, none.Rankings)
}

func TestRankMembers_CacheServesUntilInvalidated(t *testing.T) {
	c := cache.NewMemoryCache(cache.DefaultConfig(), zap.NewNop())
	env := newTestEnv(t, defaultThresholds, withCache(c))
	env.addUser(1, 10, 0, nil)
	ctx := context.Background()

	first, err := env.services.Leaderboard.RankMembers(ctx, nil)
	require.NoError(t, err)
	require.Len(t, first.Rankings, 1)

	// rows written behind the service's back stay invisible until invalidation
	env.addUser(2, 99, 0, nil)
	cached, err := env.services.Leaderboard.RankMembers(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, cached.Rankings, 1)

	require.NoError(t, env.services.Leaderboard.Invalidate(ctx))
	fresh, err := env.services.Leaderboard.RankMembers(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, rankedIDs(fresh))
}

func TestRankMembers_PointsChangeInvalidatesCache(t *testing.T) {
	c := cache.NewMemoryCache(cache.DefaultConfig(), zap.NewNop())
	env := newTestEnv(t, defaultThresholds, withCache(c))
	env.addUser(1, 10, 0, nil)
	env.addUser(2, 20, 0, nil)
	ctx := context.Background()

	before, err := env.services.Leaderboard.RankMembers(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, rankedIDs(before))

	env.award(t, 1, 50)
	env.drain(t)

	after, err := env.services.Leaderboard.RankMembers(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, rankedIDs(after))
	assert.Equal(t, 60, after.Rankings[0].Points)
}

// gatedLeaderboardRepo holds the first ranking query open after it has read the balances
type gatedLeaderboardRepo struct {
	inner   repositories.LeaderboardRepository
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (r *gatedLeaderboardRepo) RankMembers(ctx context.Context, organizationID *int64) ([]*models.UserBalance, error) {
	balances, err := r.inner.RankMembers(ctx, organizationID)
	r.once.Do(func() {
		close(r.entered)
		<-r.release
	})
	return balances, err
}

func TestRankMembers_RankingReadBeforeInvalidationIsNotServed(t *testing.T) {
	env := newTestEnv(t, defaultThresholds)
	env.addUser(1, 10, 0, nil)
	ctx := context.Background()

	repo := &gatedLeaderboardRepo{
		inner:   env.repos.Leaderboard,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := cache.NewMemoryCache(cache.DefaultConfig(), zap.NewNop())
	svc := NewLeaderboardService(repo, env.services.Ladders, c, time.Minute, zap.NewNop())

	done := make(chan *models.Leaderboard, 1)
	go func() {
		board, err := svc.RankMembers(ctx, nil)
		assert.NoError(t, err)
		done <- board
	}()
	<-repo.entered

	// a commit lands and invalidates while the slow read is still in flight
	env.addUser(2, 99, 0, nil)
	require.NoError(t, svc.Invalidate(ctx))
	close(repo.release)

	stale := <-done
	require.NotNil(t, stale)
	assert.Equal(t, []int64{1}, rankedIDs(stale))

	fresh, err := svc.RankMembers(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, rankedIDs(fresh))
}

func TestRankMembers_MutationIsVisibleOnReturn(t *testing.T) {
	c := cache.NewMemoryCache(cache.DefaultConfig(), zap.NewNop())
	env := newTestEnv(t, defaultThresholds, withCache(c))
	env.addUser(1, 10, 0, nil)
	env.addUser(2, 20, 0, nil)
	ctx := context.Background()

	before, err := env.services.Leaderboard.RankMembers(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, rankedIDs(before))

	// no drain: the caller must read its own write without waiting on fan-out
	env.award(t, 1, 50)
	after, err := env.services.Leaderboard.RankMembers(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, rankedIDs(after))
}

func TestLeaderboardKey(t *testing.T) {
	assert.Equal(t, "leaderboard:0:GLOBAL", leaderboardKey(0, models.ScopeGlobal, nil))
	assert.Equal(t, "leaderboard:3:ORGANIZATION:9", leaderboardKey(3, models.ScopeOrganization, int64Ptr(9)))
}
