package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	original, had := os.LookupEnv(key)
	require.NoError(t, os.Setenv(key, value))
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, original)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sellsync-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "sellsync", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 10, cfg.Reconcile.MaxPages)
	assert.Equal(t, 50, cfg.Reconcile.PageSize)
	assert.Equal(t, 24*time.Hour, cfg.Reconcile.Lookback)
	assert.Equal(t, 5*time.Minute, cfg.StockSync.RuleCacheTTL)
	assert.Equal(t, 10*time.Minute, cfg.StockSync.SweepLookback)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.ReconcileInterval)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.StockSweepInterval)
	assert.Equal(t, 3, cfg.Scheduler.MaxConcurrentJobs)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	setEnv(t, "SELLSYNC_APP_NAME", "test-app")
	setEnv(t, "SELLSYNC_APP_PORT", "9000")
	setEnv(t, "SELLSYNC_DATABASE_HOST", "testdb.local")
	setEnv(t, "SELLSYNC_DATABASE_PORT", "5433")
	setEnv(t, "SELLSYNC_RECONCILE_MAX_PAGES", "20")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-app", cfg.App.Name)
	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "testdb.local", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, 20, cfg.Reconcile.MaxPages)
}

func TestLoad_ProductionValidation(t *testing.T) {
	t.Run("requires database password", func(t *testing.T) {
		setEnv(t, "SELLSYNC_APP_ENV", "production")
		setEnv(t, "SELLSYNC_DATABASE_SSLMODE", "require")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "password")
	})

	t.Run("rejects disabled ssl", func(t *testing.T) {
		setEnv(t, "SELLSYNC_APP_ENV", "production")
		setEnv(t, "SELLSYNC_DATABASE_PASSWORD", "secret")
		setEnv(t, "SELLSYNC_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sslmode")
	})
}

func TestLoad_RejectsIdleAboveOpen(t *testing.T) {
	setEnv(t, "SELLSYNC_DATABASE_MAX_OPEN_CONNS", "5")
	setEnv(t, "SELLSYNC_DATABASE_MAX_IDLE_CONNS", "10")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_idle_conns")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "sync",
		Password: "p@ss/word",
		DBName:   "sellsync",
		SSLMode:  "require",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	// Special characters in the password must be escaped
	assert.NotContains(t, dsn, "p@ss/word")
}
