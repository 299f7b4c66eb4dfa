package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"unihub/internal/cache"
	"unihub/internal/config"
	"unihub/internal/events"
	"unihub/internal/realtime"
	"unihub/internal/repositories"
)

// ServiceCollection holds the gamification services and their infrastructure
type ServiceCollection struct {
	Gamification  GamificationService
	Leaderboard   LeaderboardService
	Notifications NotificationService
	Transactions  TransactionService
	Fanout        *FanoutDispatcher
	Ladders       *LadderLoader

	Repositories *repositories.Collection
	Cache        cache.Cache
	EventBus     events.EventBus
	Publisher    realtime.Publisher
	Logger       *zap.Logger
	Config       *config.Config

	healthCheckers map[string]HealthChecker
	startTime      time.Time
	mu             sync.RWMutex
}

// Dependencies are the pieces built by the caller (storage, cache, transports)
type Dependencies struct {
	Repositories *repositories.Collection
	// Cache is optional; nil disables leaderboard and tier caching
	Cache cache.Cache
	// Publisher is optional; nil discards realtime fan-out
	Publisher realtime.Publisher
	Config    *config.Config
	Logger    *zap.Logger
}

// ServiceHealth represents the health status of the service collection
type ServiceHealth struct {
	Status       string                   `json:"status"`
	Timestamp    time.Time                `json:"timestamp"`
	Dependencies map[string]ServiceStatus `json:"dependencies"`
	Uptime       time.Duration            `json:"uptime"`
	Issues       []string                 `json:"issues,omitempty"`
}

// ServiceStatus represents the status of an individual dependency
type ServiceStatus struct {
	Name         string        `json:"name"`
	Status       string        `json:"status"` // healthy, unhealthy
	LastCheck    time.Time     `json:"last_check"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
}

// HealthChecker interface for dependency health checks
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
	ServiceName() string
}

// HealthCheckFunc adapts a function to HealthChecker
type HealthCheckFunc struct {
	Name  string
	Check func(ctx context.Context) error
}

func (f HealthCheckFunc) HealthCheck(ctx context.Context) error { return f.Check(ctx) }
func (f HealthCheckFunc) ServiceName() string                   { return f.Name }

// NewServiceCollection wires the services in dependency order
func NewServiceCollection(deps Dependencies) (*ServiceCollection, error) {
	if deps.Repositories == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Publisher == nil {
		deps.Publisher = realtime.NopPublisher{}
	}

	cfg := deps.Config.Gamification
	logger := deps.Logger

	sc := &ServiceCollection{
		Repositories:   deps.Repositories,
		Cache:          deps.Cache,
		Publisher:      deps.Publisher,
		Logger:         logger,
		Config:         deps.Config,
		healthCheckers: make(map[string]HealthChecker),
		startTime:      time.Now(),
	}

	busConfig := events.DefaultEventBusConfig()
	if cfg.EventBusBufferSize > 0 {
		busConfig.BufferSize = cfg.EventBusBufferSize
	}
	if cfg.EventBusWorkers > 0 {
		busConfig.WorkerCount = cfg.EventBusWorkers
	}
	sc.EventBus = events.NewEventBus(busConfig, logger)

	sc.Ladders = NewLadderLoader(deps.Repositories.Badges, deps.Cache, cfg.TierCacheTTL, logger)
	sc.Transactions = NewTransactionService(deps.Repositories.Tx, logger, &TransactionConfig{
		MaxRetries:    cfg.MaxRetries,
		RetryDelay:    cfg.RetryDelay,
		MaxRetryDelay: 10 * cfg.RetryDelay,
	})
	sc.Leaderboard = NewLeaderboardService(deps.Repositories.Leaderboard, sc.Ladders, deps.Cache, cfg.LeaderboardCacheTTL, logger)
	sc.Notifications = NewNotificationService(deps.Repositories.Notifications, deps.Publisher, logger)
	sc.Gamification = NewGamificationService(deps.Repositories, sc.Transactions, sc.Ladders, sc.Leaderboard, sc.EventBus, logger)

	sc.Fanout = NewFanoutDispatcher(deps.Publisher, sc.Leaderboard, sc.Notifications, cfg.FanoutPublishTimeout, logger)
	if err := sc.Fanout.Register(sc.EventBus); err != nil {
		return nil, fmt.Errorf("failed to register fan-out: %w", err)
	}

	sc.RegisterHealthChecker(HealthCheckFunc{Name: "event_bus", Check: func(context.Context) error {
		return sc.EventBus.Health()
	}})
	if deps.Cache != nil {
		sc.RegisterHealthChecker(HealthCheckFunc{Name: "cache", Check: deps.Cache.Health})
	}

	logger.Info("Service collection initialized")
	return sc, nil
}

// Start starts the event workers and seeds the default ladder when configured
func (sc *ServiceCollection) Start(ctx context.Context) error {
	if err := sc.EventBus.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}

	if sc.Config.Gamification.SeedDefaultTiers {
		if _, err := sc.Gamification.SeedDefaultTiers(ctx); err != nil {
			return fmt.Errorf("failed to seed badge tiers: %w", err)
		}
	}

	sc.Logger.Info("Service collection started")
	return nil
}

// Shutdown drains queued fan-out and releases the cache
func (sc *ServiceCollection) Shutdown(ctx context.Context) error {
	sc.Logger.Info("Shutting down service collection")

	var errs []error
	if err := sc.EventBus.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("event bus stop: %w", err))
	}
	if sc.Cache != nil {
		if err := sc.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache close: %w", err))
		}
	}

	if len(errs) > 0 {
		sc.Logger.Error("Errors occurred during shutdown", zap.Int("error_count", len(errs)))
		return errors.Join(errs...)
	}
	return nil
}

// RegisterHealthChecker adds a dependency to HealthCheck
func (sc *ServiceCollection) RegisterHealthChecker(hc HealthChecker) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.healthCheckers[hc.ServiceName()] = hc
}

// HealthCheck checks every registered dependency
func (sc *ServiceCollection) HealthCheck(ctx context.Context) *ServiceHealth {
	sc.mu.RLock()
	checkers := make([]HealthChecker, 0, len(sc.healthCheckers))
	for _, hc := range sc.healthCheckers {
		checkers = append(checkers, hc)
	}
	sc.mu.RUnlock()

	health := &ServiceHealth{
		Status:       "healthy",
		Timestamp:    time.Now(),
		Dependencies: make(map[string]ServiceStatus, len(checkers)),
		Uptime:       time.Since(sc.startTime),
	}

	for _, hc := range checkers {
		status := checkHealth(ctx, hc)
		health.Dependencies[hc.ServiceName()] = status
		if status.Status != "healthy" {
			health.Status = "unhealthy"
			health.Issues = append(health.Issues, fmt.Sprintf("%s: %s", hc.ServiceName(), status.Error))
		}
	}
	return health
}

func checkHealth(ctx context.Context, hc HealthChecker) ServiceStatus {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	err := hc.HealthCheck(ctx)
	status := ServiceStatus{
		Name:         hc.ServiceName(),
		Status:       "healthy",
		LastCheck:    time.Now(),
		ResponseTime: time.Since(start),
	}
	if err != nil {
		status.Status = "unhealthy"
		status.Error = err.Error()
	}
	return status
}
