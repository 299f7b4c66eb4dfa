package database

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"unihub/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEnvironmentDefaults(t *testing.T) {
	t.Run("production enforces ssl", func(t *testing.T) {
		cfg := &config.DatabaseConfig{URL: "postgres://u:p@db:5432/unihub", MaxOpenConns: 10, MaxIdleConns: 20}
		require.NoError(t, applyEnvironmentDefaults(cfg, "production"))

		assert.Equal(t, "postgres://u:p@db:5432/unihub?sslmode=require", cfg.URL)
		assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
		assert.Equal(t, 10, cfg.MaxIdleConns)
	})

	t.Run("existing query string", func(t *testing.T) {
		cfg := &config.DatabaseConfig{URL: "postgres://db/unihub?connect_timeout=5"}
		require.NoError(t, applyEnvironmentDefaults(cfg, "production"))
		assert.Equal(t, "postgres://db/unihub?connect_timeout=5&sslmode=require", cfg.URL)
	})

	t.Run("explicit sslmode kept", func(t *testing.T) {
		cfg := &config.DatabaseConfig{URL: "postgres://db/unihub?sslmode=disable"}
		require.NoError(t, applyEnvironmentDefaults(cfg, "production"))
		assert.Equal(t, "postgres://db/unihub?sslmode=disable", cfg.URL)
	})

	t.Run("missing url", func(t *testing.T) {
		assert.Error(t, applyEnvironmentDefaults(&config.DatabaseConfig{}, "development"))
	})
}

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics(10 * time.Millisecond)

	m.RecordQuery("query", 2*time.Millisecond, nil)
	m.RecordQuery("exec", 20*time.Millisecond, errors.New("boom"))
	m.RecordQuery("begin_tx", time.Millisecond, nil)

	snap := m.Snapshot(sqlStats(3, 1))
	assert.Equal(t, int64(2), snap.QueryCount)
	assert.Equal(t, int64(1), snap.ErrorCount)
	assert.Equal(t, int64(1), snap.SlowQueryCount)
	assert.Equal(t, int64(1), snap.TransactionCount)
	assert.Equal(t, 11*time.Millisecond, snap.AvgQueryDuration)
	assert.Equal(t, 3, snap.OpenConnections)
	assert.Equal(t, 1, snap.InUse)
}

func sqlStats(open, inUse int) sql.DBStats {
	return sql.DBStats{OpenConnections: open, InUse: inUse}
}
