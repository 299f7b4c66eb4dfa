package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"unihub/internal/cache"
	"unihub/internal/config"
	"unihub/internal/models"
	"unihub/internal/repositories"
	"unihub/internal/repositories/memory"
)

type published struct {
	topic   string
	payload any
}

// recordingPublisher captures realtime fan-out
type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic: topic, payload: payload})
	return p.err
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.topic)
	}
	return out
}

func (p *recordingPublisher) byTopic(topic string) []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []any
	for _, m := range p.msgs {
		if m.topic == topic {
			out = append(out, m.payload)
		}
	}
	return out
}

type testEnv struct {
	store     *memory.Store
	repos     *repositories.Collection
	services  *ServiceCollection
	publisher *recordingPublisher
	tiers     map[int]*models.BadgeTier
}

type envOption func(*envConfig)

type envConfig struct {
	tx        func(inner repositories.TxManager) repositories.TxManager
	cache     cache.Cache
	publisher *recordingPublisher
}

func withTx(wrap func(inner repositories.TxManager) repositories.TxManager) envOption {
	return func(c *envConfig) { c.tx = wrap }
}

func withCache(c cache.Cache) envOption {
	return func(cfg *envConfig) { cfg.cache = c }
}

func withPublisher(p *recordingPublisher) envOption {
	return func(cfg *envConfig) { cfg.publisher = p }
}

func testConfig() *config.Config {
	return &config.Config{
		Gamification: config.GamificationConfig{
			StorageDriver:        "memory",
			MaxRetries:           3,
			RetryDelay:           time.Millisecond,
			LeaderboardCacheTTL:  time.Minute,
			TierCacheTTL:         time.Minute,
			EventBusWorkers:      4,
			EventBusBufferSize:   4096,
			FanoutPublishTimeout: time.Second,
		},
	}
}

// newTestEnv builds the service collection over the memory store with one tier per threshold
func newTestEnv(t *testing.T, thresholds []int, opts ...envOption) *testEnv {
	t.Helper()

	cfg := envConfig{publisher: &recordingPublisher{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	store := memory.NewStore()
	repos := store.Collection()
	if cfg.tx != nil {
		repos.Tx = cfg.tx(repos.Tx)
	}

	sc, err := NewServiceCollection(Dependencies{
		Repositories: repos,
		Cache:        cfg.cache,
		Publisher:    cfg.publisher,
		Config:       testConfig(),
		Logger:       zap.NewNop(),
	})
	require.NoError(t, err)
	require.NoError(t, sc.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sc.Shutdown(ctx)
	})

	names := []string{"Newbie", "Pupil", "Specialist", "Expert", "Master"}
	require.LessOrEqual(t, len(thresholds), len(names))
	tiers := make(map[int]*models.BadgeTier)
	for i, th := range thresholds {
		tier, err := sc.Gamification.CreateTier(context.Background(), &CreateTierRequest{
			Name:            names[i],
			PointsThreshold: th,
		})
		require.NoError(t, err)
		tiers[th] = tier
	}

	return &testEnv{
		store:     store,
		repos:     repos,
		services:  sc,
		publisher: cfg.publisher,
		tiers:     tiers,
	}
}

// addUser registers a user holding points and the tier at badgeThreshold (-1 for none)
func (e *testEnv) addUser(id int64, points int, badgeThreshold int, orgID *int64) {
	b := &models.UserBalance{UserID: id, DisplayName: "user", Points: points, OrganizationID: orgID}
	if tier, ok := e.tiers[badgeThreshold]; ok {
		tierID := tier.ID
		b.CurrentBadgeID = &tierID
	}
	e.store.AddUser(b)
}

// drain waits until every queued fan-out event has been handled
func (e *testEnv) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.services.EventBus.Stop(ctx))
}

func (e *testEnv) award(t *testing.T, userID int64, amount int) *PointsResult {
	t.Helper()
	res, err := e.services.Gamification.AwardPoints(context.Background(), &AwardPointsRequest{
		UserID: userID, Amount: amount, SourceType: models.SourceEvent,
	})
	require.NoError(t, err)
	return res
}

func (e *testEnv) deduct(t *testing.T, userID int64, amount int) *PointsResult {
	t.Helper()
	res, err := e.services.Gamification.DeductPoints(context.Background(), &DeductPointsRequest{
		UserID: userID, Amount: amount, SourceType: models.SourceReportDismissed,
	})
	require.NoError(t, err)
	return res
}

func int64Ptr(v int64) *int64 { return &v }
