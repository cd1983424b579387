package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "PORT", "DB_DRIVER", "LATE_CANCEL_WINDOW", "STORE_TIMEOUT",
		"PARENT_LATE_CANCEL_BLOCKED", "BREAKER_FAILURE_THRESHOLD", "BREAKER_OPEN_TIMEOUT")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.ParentLateCancelBlocked)
	assert.Equal(t, uint32(5), cfg.BreakerFailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.BreakerOpenTimeout)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 24*time.Hour, cfg.LateCancelWindow)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("LATE_CANCEL_WINDOW", "12h")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "file:test.db", cfg.DatabaseURL)
	assert.Equal(t, 12*time.Hour, cfg.LateCancelWindow)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	unsetEnv(t, "DB_DRIVER")
	t.Setenv("LATE_CANCEL_WINDOW", "soon")

	_, err := Load()
	assert.Error(t, err)
}
