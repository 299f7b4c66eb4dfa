package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unihub/internal/models"
	"unihub/internal/realtime"
	"unihub/internal/repositories"
)

var defaultThresholds = []int{0, 100, 300}

func TestAwardPoints_ConcurrentAwardsLoseNothing(t *testing.T) {
	env := newTestEnv(t, defaultThresholds)
	env.addUser(1, 0, 0, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.services.Gamification.AwardPoints(context.Background(), &AwardPointsRequest{
				UserID: 1, Amount: 1, SourceType: models.SourceEvent, SourceID: int64Ptr(int64(i)),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	balance, err := env.services.Gamification.GetBalance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 100, balance.Points)
	assert.Equal(t, env.tiers[100].ID, *balance.CurrentBadgeID)

	count, err := env.repos.Ledger.CountByUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), count)

	achievements, err := env.services.Gamification.GetAchievements(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, achievements, 1)
}

func TestPromotionThenDemotionScenario(t *testing.T) {
	env := newTestEnv(t, defaultThresholds)
	env.addUser(1, 90, 0, nil)

	res := env.award(t, 1, 20)
	assert.Equal(t, 110, res.Points)
	assert.Equal(t, 90, res.PreviousPoints)
	require.NotNil(t, res.Transition)
	assert.Equal(t, TransitionPromotion, res.Transition.Kind)
	assert.Equal(t, "Pupil", res.CurrentBadge.Name)

	achievements, err := env.services.Gamification.GetAchievements(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, achievements, 1)
	assert.Equal(t, env.tiers[100].ID, achievements[0].BadgeID)

	res = env.deduct(t, 1, 70)
	assert.Equal(t, 40, res.Points)
	require.NotNil(t, res.Transition)
	assert.Equal(t, TransitionDemotion, res.Transition.Kind)
	assert.Equal(t, "Newbie", res.CurrentBadge.Name)

	achievements, err = env.services.Gamification.GetAchievements(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, achievements, 1, "demotion never removes history")

	env.drain(t)

	notifications, err := env.repos.Notifications.ListByUser(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, notifications, 2)
	types := []models.NotificationType{notifications[0].Type, notifications[1].Type}
	assert.ElementsMatch(t, []models.NotificationType{models.NotificationBadgeEarned, models.NotificationPointsUpdate}, types)

	assert.Len(t, env.publisher.byTopic(realtime.BadgePromotionTopic(1)), 1)
	assert.Len(t, env.publisher.byTopic(realtime.NotificationsTopic(1)), 2)
	assert.Len(t, env.publisher.byTopic(realtime.TopicLeaderboardUpdate), 2)
}

func TestDeductPoints_FloorsAtZeroAndLedgerKeepsRequestedDelta(t *testing.T) {
	env := newTestEnv(t, defaultThresholds)
	env.addUser(1, 10, 0, nil)

	res := env.deduct(t, 1, 50)
	assert.Equal(t, 0, res.Points)
	assert.Equal(t, -50, res.Delta)
	assert.Nil(t, res.Transition)

	entries, err := env.repos.Ledger.ListByUser(context.Background(), 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, -50, entries[0].Delta)
	assert.Equal(t, models.SourceReportDismissed, entries[0].SourceType)
}

func TestFloorAppliesAtEachStep(t *testing.T) {
	env := newTestEnv(t, defaultThresholds)
	env.addUser(1, 0, 0, nil)

	env.award(t, 1, 30)
	env.deduct(t, 1, 100) // 30 -> 0, not -70
	res := env.award(t, 1, 50)
	assert.Equal(t, 50, res.Points)

	env.deduct(t, 1, 20)
	res = env.award(t, 1, 5)
	assert.Equal(t, 35, res.Points)
}

func TestAchievementPermanenceAcrossRepromotion(t *testing.T) {
	env := newTestEnv(t, defaultThresholds)
	env.addUser(1, 0, 0, nil)

	first := env.award(t, 1, 120)
	require.NotNil(t, first.Transition)
	assert.True(t, first.Transition.FirstEarned)

	env.deduct(t, 1, 100)

	again := env.award(t, 1, 100)
	require.NotNil(t, again.Transition)
	assert.Equal(t, TransitionPromotion, again.Transition.Kind)
	assert.False(t, again.Transition.FirstEarned)

	badges, err := env.services.Gamification.GetMyBadges(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, badges.EarnedBadges, 1)
	assert.Equal(t, 120, badges.CurrentPoints)
	assert.Equal(t, "Pupil", badges.CurrentBadge.Name)
	assert.Len(t, badges.AllBadges, 3)
}

func TestAwardWithinSameTierProducesNoTransition(t *testing.T) {
	env := newTestEnv(t, defaultThresholds)
	env.addUser(1, 100, 100, nil)

	assert.Nil(t, env.award(t, 1, 10).Transition)
	assert.Nil(t, env.award(t, 1, 10).Transition)
	env.drain(t)

	notifications, err := env.repos.Notifications.ListByUser(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Empty(t, notifications)
	assert.Empty(t, env.publisher.byTopic(realtime.BadgePromotionTopic(1)))
}

func TestPointsMutation_Validation(t *testing.T) {
	env := newTestEnv(t, defaultThresholds)
	env.addUser(1, 10, 0, nil)
	ctx := context.Background()

	_, err := env.services.Gamification.AwardPoints(ctx, &AwardPointsRequest{UserID: 1, Amount: 0, SourceType: models.SourceEvent})
	assert.True(t, IsValidationError(err))

	_, err = env.services.Gamification.DeductPoints(ctx, &DeductPointsRequest{UserID: 1, Amount: -5, SourceType: models.SourceEvent})
	assert.True(t, IsValidationError(err))

	_, err = env.services.Gamification.AwardPoints(ctx, &AwardPointsRequest{UserID: 1, Amount: 5, SourceType: "BADGE"})
	assert.True(t, IsValidationError(err))

	_, err = env.services.Gamification.AwardPoints(ctx, nil)
	assert.True(t, IsValidationError(err))

	count, err := env.repos.Ledger.CountByUser(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPointsMutation_UnknownUserWritesNothing(t *testing.T) {
	env := newTestEnv(t, defaultThresholds)

	_, err := env.services.Gamification.AwardPoints(context.Background(), &AwardPointsRequest{UserID: 404, Amount: 5, SourceType: models.SourceBlog})
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))

	count, err := env.repos.Ledger.CountByUser(context.Background(), 404)
	require.NoError(t, err)
	assert.Zero(t, count)
}

// conflictingTx runs the unit of work, then reports a write conflict for the
// first failures attempts so the store rolls the work back
type conflictingTx struct {
	inner    repositories.TxManager
	failures int32
	calls    int32
}

func (c *conflictingTx) RunInTx(ctx context.Context, fn func(uow repositories.UnitOfWork) error) error {
	n := atomic.AddInt32(&c.calls, 1)
	return c.inner.RunInTx(ctx, func(uow repositories.UnitOfWork) error {
		if err := fn(uow); err != nil {
			return err
		}
		if n <= c.failures {
			return fmt.Errorf("commit: %w", repositories.ErrConflict)
		}
		return nil
	})
}

func TestAwardPoints_RetriesWriteConflicts(t *testing.T) {
	tx := &conflictingTx{failures: 2}
	env := newTestEnv(t, defaultThresholds, withTx(func(inner repositories.TxManager) repositories.TxManager {
		tx.inner = inner
		return tx
	}))
	env.addUser(1, 0, 0, nil)

	res := env.award(t, 1, 15)
	assert.Equal(t, 15, res.Points)
	assert.Equal(t, int32(3), atomic.LoadInt32(&tx.calls))

	count, err := env.repos.Ledger.CountByUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "rolled back attempts leave no ledger rows")
}

func TestAwardPoints_RetriesExhausted(t *testing.T) {
	tx := &conflictingTx{failures: 100}
	env := newTestEnv(t, defaultThresholds, withTx(func(inner repositories.TxManager) repositories.TxManager {
		tx.inner = inner
		return tx
	}))
	env.addUser(1, 0, 0, nil)

	_, err := env.services.Gamification.AwardPoints(context.Background(), &AwardPointsRequest{UserID: 1, Amount: 5, SourceType: models.SourceEvent})
	require.Error(t, err)

	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, CodeConflictRetryable, serviceErr.Code)
	assert.Equal(t, int32(4), atomic.LoadInt32(&tx.calls))

	balance, err := env.services.Gamification.GetBalance(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, balance.Points)
}

func TestFanoutFailureDoesNotFailMutation(t *testing.T) {
	env := newTestEnv(t, defaultThresholds, withPublisher(&recordingPublisher{err: errors.New("socket closed")}))
	env.addUser(1, 95, 0, nil)

	res := env.award(t, 1, 10)
	assert.Equal(t, 105, res.Points)
	env.drain(t)

	balance, err := env.services.Gamification.GetBalance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 105, balance.Points)
	assert.Positive(t, env.services.EventBus.Stats().EventsFailed)
}

func TestAwardPoints_NotifyDashboard(t *testing.T) {
	env := newTestEnv(t, defaultThresholds)
	env.addUser(7, 0, 0, nil)

	_, err := env.services.Gamification.AwardPoints(context.Background(), &AwardPointsRequest{
		UserID: 7, Amount: 20, SourceType: models.SourceEvent, NotifyDashboard: true,
	})
	require.NoError(t, err)
	_, err = env.services.Gamification.DeductPoints(context.Background(), &DeductPointsRequest{
		UserID: 7, Amount: 5, SourceType: models.SourceEventLeave,
	})
	require.NoError(t, err)
	env.drain(t)

	dashboards := env.publisher.byTopic(realtime.DashboardTopic(7))
	require.Len(t, dashboards, 1)
	assert.Equal(t, UpdateTypeDashboard, dashboards[0].(UpdatePayload).Type)
	assert.Len(t, env.publisher.byTopic(realtime.TopicLeaderboardUpdate), 2)
}

func TestSendDashboardUpdate(t *testing.T) {
	env := newTestEnv(t, defaultThresholds)
	env.addUser(3, 0, 0, nil)

	require.NoError(t, env.services.Gamification.SendDashboardUpdate(context.Background(), 3))
	assert.True(t, IsNotFoundError(env.services.Gamification.SendDashboardUpdate(context.Background(), 4)))
	env.drain(t)

	assert.Equal(t, []string{realtime.DashboardTopic(3)}, env.publisher.topics())
}

func TestCreateTier_RejectsDuplicates(t *testing.T) {
	env := newTestEnv(t, defaultThresholds)
	ctx := context.Background()

	_, err := env.services.Gamification.CreateTier(ctx, &CreateTierRequest{Name: "Other", PointsThreshold: 100})
	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, CodeDuplicateThreshold, serviceErr.Code)

	_, err = env.services.Gamification.CreateTier(ctx, &CreateTierRequest{Name: "Pupil", PointsThreshold: 150})
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, CodeDuplicateName, serviceErr.Code)

	_, err = env.services.Gamification.CreateTier(ctx, &CreateTierRequest{Name: "Negative", PointsThreshold: -1})
	assert.True(t, IsValidationError(err))

	tier, err := env.services.Gamification.CreateTier(ctx, &CreateTierRequest{Name: "Expert", PointsThreshold: 600})
	require.NoError(t, err)
	assert.NotZero(t, tier.ID)

	tiers, err := env.services.Gamification.GetAllTiers(ctx)
	require.NoError(t, err)
	require.Len(t, tiers, 4)
	assert.Equal(t, "Expert", tiers[3].Name)
}

func TestSeedDefaultTiers(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	created, err := env.services.Gamification.SeedDefaultTiers(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultTiers()), created)

	created, err = env.services.Gamification.SeedDefaultTiers(ctx)
	require.NoError(t, err)
	assert.Zero(t, created)

	tiers, err := env.services.Gamification.GetAllTiers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Newbie", tiers[0].Name)
	assert.Equal(t, 0, tiers[0].PointsThreshold)
	assert.Equal(t, "Legendary", tiers[len(tiers)-1].Name)
}

func TestGetPointsHistory_Paginates(t *testing.T) {
	env := newTestEnv(t, defaultThresholds)
	env.addUser(1, 0, 0, nil)
	for i := 1; i <= 5; i++ {
		env.award(t, 1, i)
	}

	page, err := env.services.Gamification.GetPointsHistory(context.Background(), &PointsHistoryRequest{UserID: 1, Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, 3, page.Data[0].Delta)
	assert.Equal(t, 2, page.Data[1].Delta)
	assert.Equal(t, int64(5), page.Pagination.TotalItems)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNext)

	_, err = env.services.Gamification.GetPointsHistory(context.Background(), &PointsHistoryRequest{UserID: 1, Page: 0, PageSize: 2})
	assert.True(t, IsValidationError(err))
}

func TestPointsMutation_RejectsAmountsAboveCap(t *testing.T) {
	env := newTestEnv(t, defaultThresholds)
	env.addUser(1, 500, 300, nil)
	ctx := context.Background()

	for _, amount := range []int{1000001, math.MaxInt} {
		_, err := env.services.Gamification.AwardPoints(ctx, &AwardPointsRequest{UserID: 1, Amount: amount, SourceType: models.SourceEvent})
		assert.True(t, IsValidationError(err), "award %d", amount)

		_, err = env.services.Gamification.DeductPoints(ctx, &DeductPointsRequest{UserID: 1, Amount: amount, SourceType: models.SourceOther})
		assert.True(t, IsValidationError(err), "deduct %d", amount)
	}

	balance, err := env.services.Gamification.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 500, balance.Points)
	assert.Equal(t, env.tiers[300].ID, *balance.CurrentBadgeID)

	count, err := env.repos.Ledger.CountByUser(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)

	res := env.award(t, 1, 1000000)
	assert.Equal(t, 1000500, res.Points)
	assert.Nil(t, res.Transition)
}

func TestAwardPoints_BalanceCeilingIsInvalidArgument(t *testing.T) {
	env := newTestEnv(t, defaultThresholds)
	env.addUser(1, math.MaxInt32-10, 300, nil)
	ctx := context.Background()

	_, err := env.services.Gamification.AwardPoints(ctx, &AwardPointsRequest{UserID: 1, Amount: 11, SourceType: models.SourceEvent})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	balance, err := env.services.Gamification.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt32-10, balance.Points)

	count, err := env.repos.Ledger.CountByUser(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count, "the rejected award leaves no ledger row")

	res := env.award(t, 1, 10)
	assert.Equal(t, math.MaxInt32, res.Points)
	assert.Equal(t, "Specialist", res.CurrentBadge.Name)
}
