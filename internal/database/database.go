package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"unihub/internal/config"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// InitDB connects to PostgreSQL, retrying with exponential backoff while the
// database comes up, then applies migrations when enabled.
func InitDB(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dbCfg := cfg.Database
	if err := applyEnvironmentDefaults(&dbCfg, cfg.Server.Environment); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	logger.Info("Starting database initialization", zap.String("environment", cfg.Server.Environment))

	var manager *Manager
	connect := func() error {
		m, err := NewManager(&dbCfg, logger)
		if err != nil {
			return err
		}
		manager = m
		return nil
	}

	if err := backoff.RetryNotify(connect, retryPolicy(ctx, &dbCfg), func(err error, d time.Duration) {
		logger.Warn("Database not ready, retrying",
			zap.Error(err),
			zap.Duration("backoff", d),
		)
	}); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dbCfg.RunMigrations {
		if err := backoff.RetryNotify(manager.Migrate, retryPolicy(ctx, &dbCfg), func(err error, d time.Duration) {
			logger.Warn("Migration attempt failed, retrying",
				zap.Error(err),
				zap.Duration("backoff", d),
			)
		}); err != nil {
			manager.Close()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	logger.Info("Database initialized",
		zap.Bool("migrations", dbCfg.RunMigrations),
		zap.Int("open_connections", manager.DB().Stats().OpenConnections),
	)

	return manager, nil
}

func retryPolicy(ctx context.Context, cfg *config.DatabaseConfig) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if cfg.RetryBackoff > 0 {
		b.InitialInterval = cfg.RetryBackoff
	}
	b.MaxInterval = 30 * time.Second

	attempts := cfg.MaxRetryAttempts
	if attempts < 0 {
		attempts = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts)), ctx)
}

func applyEnvironmentDefaults(cfg *config.DatabaseConfig, environment string) error {
	if cfg.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch environment {
	case "production":
		if cfg.SlowQueryThreshold == 0 {
			cfg.SlowQueryThreshold = 200 * time.Millisecond
		}
		if !strings.Contains(cfg.URL, "sslmode=") {
			if strings.Contains(cfg.URL, "?") {
				cfg.URL += "&sslmode=require"
			} else {
				cfg.URL += "?sslmode=require"
			}
		}
	case "staging":
		if cfg.SlowQueryThreshold == 0 {
			cfg.SlowQueryThreshold = 100 * time.Millisecond
		}
	default:
		if cfg.SlowQueryThreshold == 0 {
			cfg.SlowQueryThreshold = 50 * time.Millisecond
		}
	}

	if cfg.MaxIdleConns > cfg.MaxOpenConns {
		cfg.MaxIdleConns = cfg.MaxOpenConns
	}

	return nil
}
