// @title           UniHub Gamification API
// @version         1.0
// @description     Points, badge tiers, leaderboards and realtime notifications for the UniHub platform.

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"unihub/internal/appinfo"
	"unihub/internal/cache"
	"unihub/internal/config"
	"unihub/internal/database"
	"unihub/internal/middleware"
	"unihub/internal/monitoring"
	"unihub/internal/realtime"
	"unihub/internal/repositories"
	"unihub/internal/repositories/memory"
	"unihub/internal/response"
	"unihub/internal/router"
	"unihub/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	info := appinfo.Get()
	logger.Info("Starting UniHub gamification service",
		zap.String("version", info.Version),
		zap.String("revision", info.Revision),
		zap.String("go_version", info.GoVersion),
	)
	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("storage_driver", cfg.Gamification.StorageDriver),
		zap.String("cache_provider", cfg.Cache.Provider),
	)

	ctx := context.Background()

	// Storage
	var (
		repos     *repositories.Collection
		dbManager *database.Manager
	)
	switch cfg.Gamification.StorageDriver {
	case "memory":
		logger.Warn("Using in-memory storage; data is lost on restart")
		repos = memory.NewStore().Collection()
	default:
		dbManager, err = database.InitDB(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize database", zap.Error(err))
		}
		defer dbManager.Close()

		repos, err = repositories.NewCollection(dbManager, logger)
		if err != nil {
			logger.Fatal("Failed to create repositories", zap.Error(err))
		}
	}

	// Redis is shared by the cache and realtime fan-out when both use it
	var redisClient *redis.Client
	cacheConfig := toCacheConfig(cfg.Cache)
	if cfg.Cache.Provider == "redis" || cfg.Realtime.RedisEnabled {
		redisClient, err = cache.NewRedisClient(cacheConfig, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
	}

	var cacheInstance cache.Cache
	if cfg.Cache.Provider == "redis" {
		cacheInstance = cache.NewRedisCacheFromClient(redisClient, cacheConfig.TTL, logger)
	} else {
		cacheInstance, err = cache.NewCache(cacheConfig, logger)
		if err != nil {
			logger.Fatal("Failed to create cache", zap.Error(err))
		}
	}

	// Response builder
	responseConfig := response.DefaultConfig()
	responseConfig.PrettyJSON = cfg.IsDevelopment()
	responseConfig.MaskInternalErrors = cfg.IsProduction()
	responseBuilder := response.NewBuilder(responseConfig, logger)

	// Auth
	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		if cfg.IsProduction() {
			logger.Fatal("JWT_SECRET is required in production")
		}
		jwtSecret = uuid.Must(uuid.NewV4()).String()
		logger.Warn("JWT_SECRET not set, using a random secret; issued tokens will not survive a restart")
	}
	authMiddleware, err := middleware.NewAuthMiddleware(&middleware.AuthConfig{
		JWTSecret:       jwtSecret,
		JWTIssuer:       cfg.Auth.JWTIssuer,
		AllowQueryToken: true,
	}, responseBuilder, logger)
	if err != nil {
		logger.Fatal("Failed to create auth middleware", zap.Error(err))
	}

	// Realtime fan-out
	hub := realtime.NewHub(realtime.HubConfig{
		ReadBufferSize:  cfg.Realtime.ReadBufferSize,
		WriteBufferSize: cfg.Realtime.WriteBufferSize,
		WriteTimeout:    cfg.Realtime.WriteTimeout,
		PingInterval:    cfg.Realtime.PingInterval,
		ClientBuffer:    cfg.Realtime.ClientBuffer,
		AllowedOrigins:  cfg.Realtime.AllowedOrigins,
		UserID:          authMiddleware.UserID,
	}, logger)
	defer hub.Close()

	var publisher realtime.Publisher = hub
	if cfg.Realtime.RedisEnabled {
		publisher = realtime.MultiPublisher{hub, realtime.NewRedisPublisher(redisClient, cfg.Realtime.ChannelPrefix, logger)}
		logger.Info("Realtime fan-out mirrored to Redis", zap.String("channel_prefix", cfg.Realtime.ChannelPrefix))
	}

	// Services
	serviceCollection, err := services.NewServiceCollection(services.Dependencies{
		Repositories: repos,
		Cache:        cacheInstance,
		Publisher:    publisher,
		Config:       cfg,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	if dbManager != nil {
		serviceCollection.RegisterHealthChecker(services.HealthCheckFunc{Name: "database", Check: dbManager.Health})
	}
	if err := serviceCollection.Start(ctx); err != nil {
		logger.Fatal("Failed to start services", zap.Error(err))
	}

	// Monitoring
	var dbMetrics monitoring.DatabaseMetrics
	if dbManager != nil {
		dbMetrics = dbManager
	}
	dashboard := monitoring.NewDashboard(serviceCollection, dbMetrics, logger, info.Version, cfg.Server.Environment)

	rateLimiter := middleware.NewRateLimiter(cacheInstance, &middleware.RateLimiterConfig{
		Enabled: cfg.Server.RateLimitPerMinute > 0,
		Limit:   cfg.Server.RateLimitPerMinute,
		Window:  time.Minute,
	}, responseBuilder, logger)

	handler := router.SetupRouter(router.Dependencies{
		Services:        serviceCollection,
		Auth:            authMiddleware,
		RateLimiter:     rateLimiter,
		ResponseBuilder: responseBuilder,
		Realtime:        hub,
		Dashboard:       dashboard,
		Config:          cfg,
		Logger:          logger,
	})

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	monitorCtx, stopMonitoring := context.WithCancel(ctx)
	startBackgroundMonitoring(monitorCtx, dashboard, logger)

	go func() {
		logger.Info("Starting HTTP server",
			zap.String("address", server.Addr),
			zap.Bool("swagger", cfg.Server.EnableSwagger),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Shutting down application...")
	stopMonitoring()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	} else {
		logger.Info("Server shutdown completed")
	}

	// drains queued fan-out and closes the cache
	if err := serviceCollection.Shutdown(shutdownCtx); err != nil {
		logger.Error("Service shutdown failed", zap.Error(err))
	}
	if redisClient != nil && cfg.Cache.Provider != "redis" {
		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close Redis client", zap.Error(err))
		}
	}

	if dbManager != nil {
		m := dbManager.Metrics()
		logger.Info("Final database metrics",
			zap.Int64("total_queries", m.QueryCount),
			zap.Int64("total_errors", m.ErrorCount),
			zap.Int64("slow_queries", m.SlowQueryCount),
			zap.Duration("avg_query_duration", m.AvgQueryDuration),
		)
	}
	logger.Info("Application shutdown completed")
}

// startBackgroundMonitoring logs dashboard problems every 30 seconds until ctx ends
func startBackgroundMonitoring(ctx context.Context, dashboard *monitoring.Dashboard, logger *zap.Logger) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				health := dashboard.GetSystemHealth(checkCtx)
				cancel()

				if health.Status != monitoring.StatusHealthy {
					logger.Warn("System health check detected issues",
						zap.String("status", health.Status),
						zap.Int("alerts", len(health.Alerts)),
					)
				}
			}
		}
	}()
}

func toCacheConfig(c config.CacheConfig) *cache.Config {
	cc := cache.DefaultConfig()
	cc.Provider = c.Provider
	cc.RedisURL = c.RedisURL
	cc.RedisPassword = c.RedisPassword
	cc.RedisDB = c.RedisDB
	if c.PoolSize > 0 {
		cc.PoolSize = c.PoolSize
	}
	if c.DefaultTTL > 0 {
		cc.TTL = c.DefaultTTL
	}
	if c.MaxKeys > 0 {
		cc.MaxKeys = c.MaxKeys
	}
	return cc
}

// initLogger builds the logger for the environment, then applies LOG_LEVEL
// and LOG_FORMAT on top of the environment defaults.
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config

	switch cfg.Server.Environment {
	case "production":
		zc = zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "staging":
		zc = zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	default:
		zc = zap.NewDevelopmentConfig()
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	if cfg.Logging.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		zc.Level = level
	}
	switch cfg.Logging.Format {
	case "json", "console":
		zc.Encoding = cfg.Logging.Format
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
