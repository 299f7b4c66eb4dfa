package memory

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unihub/internal/models"
	"unihub/internal/repositories"
)

func int64Ptr(v int64) *int64 { return &v }

func TestStore_RunInTxRollsBackOnError(t *testing.T) {
	store := NewStore()
	store.AddUser(&models.UserBalance{UserID: 1, Points: 10})
	repos := store.Collection()
	ctx := context.Background()

	boom := errors.New("boom")
	err := repos.Tx.RunInTx(ctx, func(uow repositories.UnitOfWork) error {
		_, err := uow.Ledger().Append(ctx, &models.PointsLedgerEntry{UserID: 1, SourceType: models.SourceBlog, Delta: 30})
		require.NoError(t, err)
		_, err = uow.Balances().ApplyDelta(ctx, 1, 30)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	balance, err := repos.Balances.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, balance.Points)

	count, err := repos.Ledger.CountByUser(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestBalanceRepo_ApplyDeltaFloorsAtZero(t *testing.T) {
	store := NewStore()
	store.AddUser(&models.UserBalance{UserID: 7, Points: 10})
	repos := store.Collection()

	points, err := repos.Balances.ApplyDelta(context.Background(), 7, -50)
	require.NoError(t, err)
	assert.Equal(t, 0, points)

	_, err = repos.Balances.ApplyDelta(context.Background(), 99, 5)
	assert.True(t, repositories.IsNotFound(err))
}

func TestBalanceRepo_ApplyDeltaRejectsOverflow(t *testing.T) {
	store := NewStore()
	store.AddUser(&models.UserBalance{UserID: 7, Points: math.MaxInt32 - 5})
	repos := store.Collection()
	ctx := context.Background()

	_, err := repos.Balances.ApplyDelta(ctx, 7, 6)
	assert.ErrorIs(t, err, repositories.ErrOutOfRange)
	_, err = repos.Balances.ApplyDelta(ctx, 7, math.MaxInt)
	assert.ErrorIs(t, err, repositories.ErrOutOfRange)

	balance, err := repos.Balances.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt32-5, balance.Points)

	points, err := repos.Balances.ApplyDelta(ctx, 7, 5)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt32, points)
}

func TestStore_RollbackRestoresOnlyTouchedState(t *testing.T) {
	store := NewStore()
	store.AddUser(&models.UserBalance{UserID: 1, Points: 10})
	store.AddUser(&models.UserBalance{UserID: 2, Points: 20})
	repos := store.Collection()
	ctx := context.Background()

	tier := &models.BadgeTier{Name: "Newbie", PointsThreshold: 0}
	require.NoError(t, repos.Badges.Create(ctx, tier))
	committed, err := repos.Ledger.Append(ctx, &models.PointsLedgerEntry{UserID: 2, SourceType: models.SourceBlog, Delta: 20})
	require.NoError(t, err)

	err = repos.Tx.RunInTx(ctx, func(uow repositories.UnitOfWork) error {
		_, err := uow.Ledger().Append(ctx, &models.PointsLedgerEntry{UserID: 1, SourceType: models.SourceEvent, Delta: 5})
		require.NoError(t, err)
		_, err = uow.Balances().ApplyDelta(ctx, 1, 5)
		require.NoError(t, err)
		_, err = uow.Balances().ApplyDelta(ctx, 1, 7)
		require.NoError(t, err)
		require.NoError(t, uow.Balances().SetCurrentBadge(ctx, 1, &tier.ID))
		_, err = uow.Achievements().Insert(ctx, &models.BadgeAchievement{UserID: 1, BadgeID: tier.ID})
		require.NoError(t, err)
		return errors.New("abort")
	})
	require.Error(t, err)

	balance, err := repos.Balances.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, balance.Points)
	assert.Nil(t, balance.CurrentBadgeID)

	achievements, err := repos.Achievements.ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, achievements)

	history, err := repos.Ledger.ListByUser(ctx, 2, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, committed, history[0].ID)

	// ids handed out by the aborted unit of work are reused
	next, err := repos.Ledger.Append(ctx, &models.PointsLedgerEntry{UserID: 1, SourceType: models.SourceEvent, Delta: 1})
	require.NoError(t, err)
	assert.Equal(t, committed+1, next)
}

func TestStore_RunInTxRollsBackOnPanic(t *testing.T) {
	store := NewStore()
	store.AddUser(&models.UserBalance{UserID: 1, Points: 10})
	repos := store.Collection()
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = repos.Tx.RunInTx(ctx, func(uow repositories.UnitOfWork) error {
			_, _ = uow.Balances().ApplyDelta(ctx, 1, 90)
			panic("boom")
		})
	})

	balance, err := repos.Balances.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, balance.Points)

	// the store lock was released
	_, err = repos.Balances.ApplyDelta(ctx, 1, 1)
	require.NoError(t, err)
}

func TestLedgerRepo_AppendValidation(t *testing.T) {
	store := NewStore()
	store.AddUser(&models.UserBalance{UserID: 1})
	repos := store.Collection()
	ctx := context.Background()

	_, err := repos.Ledger.Append(ctx, &models.PointsLedgerEntry{UserID: 1, SourceType: models.SourceEvent, Delta: 0})
	assert.Error(t, err)

	_, err = repos.Ledger.Append(ctx, &models.PointsLedgerEntry{UserID: 1, SourceType: "BOGUS", Delta: 5})
	assert.Error(t, err)

	_, err = repos.Ledger.Append(ctx, &models.PointsLedgerEntry{UserID: 2, SourceType: models.SourceEvent, Delta: 5})
	assert.True(t, repositories.IsNotFound(err))

	id, err := repos.Ledger.Append(ctx, &models.PointsLedgerEntry{UserID: 1, SourceType: models.SourceEvent, SourceID: int64Ptr(3), Delta: -5})
	require.NoError(t, err)
	assert.NotZero(t, id)
}

func TestLedgerRepo_ListByUserNewestFirst(t *testing.T) {
	store := NewStore()
	store.AddUser(&models.UserBalance{UserID: 1})
	store.AddUser(&models.UserBalance{UserID: 2})
	repos := store.Collection()
	ctx := context.Background()

	for _, delta := range []int{1, 2, 3, 4} {
		_, err := repos.Ledger.Append(ctx, &models.PointsLedgerEntry{UserID: 1, SourceType: models.SourceOther, Delta: delta})
		require.NoError(t, err)
	}
	_, err := repos.Ledger.Append(ctx, &models.PointsLedgerEntry{UserID: 2, SourceType: models.SourceOther, Delta: 9})
	require.NoError(t, err)

	page, err := repos.Ledger.ListByUser(ctx, 1, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 3, page[0].Delta)
	assert.Equal(t, 2, page[1].Delta)
}

func TestBadgeRepo_RejectsDuplicateThreshold(t *testing.T) {
	repos := NewStore().Collection()
	ctx := context.Background()

	require.NoError(t, repos.Badges.Create(ctx, &models.BadgeTier{Name: "Pupil", PointsThreshold: 100}))
	require.NoError(t, repos.Badges.Create(ctx, &models.BadgeTier{Name: "Newbie", PointsThreshold: 0}))

	err := repos.Badges.Create(ctx, &models.BadgeTier{Name: "Other", PointsThreshold: 100})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	tiers, err := repos.Badges.List(ctx)
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	assert.Equal(t, "Newbie", tiers[0].Name)
	assert.Equal(t, "Pupil", tiers[1].Name)
}

func TestAchievementRepo_InsertIsIdempotent(t *testing.T) {
	store := NewStore()
	store.AddUser(&models.UserBalance{UserID: 1})
	repos := store.Collection()
	ctx := context.Background()

	tier := &models.BadgeTier{Name: "Pupil", PointsThreshold: 100}
	require.NoError(t, repos.Badges.Create(ctx, tier))

	inserted, err := repos.Achievements.Insert(ctx, &models.BadgeAchievement{UserID: 1, BadgeID: tier.ID})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repos.Achievements.Insert(ctx, &models.BadgeAchievement{UserID: 1, BadgeID: tier.ID})
	require.NoError(t, err)
	assert.False(t, inserted)

	list, err := repos.Achievements.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Badge)
	assert.Equal(t, "Pupil", list[0].Badge.Name)
}

func TestLeaderboardRepo_OrdersByPointsThenUserID(t *testing.T) {
	store := NewStore()
	store.AddUser(&models.UserBalance{UserID: 3, Points: 50, OrganizationID: int64Ptr(1)})
	store.AddUser(&models.UserBalance{UserID: 1, Points: 50, OrganizationID: int64Ptr(2)})
	store.AddUser(&models.UserBalance{UserID: 2, Points: 80, OrganizationID: int64Ptr(1)})
	repos := store.Collection()

	all, err := repos.Leaderboard.RankMembers(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{2, 1, 3}, []int64{all[0].UserID, all[1].UserID, all[2].UserID})

	org, err := repos.Leaderboard.RankMembers(context.Background(), int64Ptr(1))
	require.NoError(t, err)
	require.Len(t, org, 2)
	assert.Equal(t, int64(2), org[0].UserID)
	assert.Equal(t, int64(3), org[1].UserID)
}
