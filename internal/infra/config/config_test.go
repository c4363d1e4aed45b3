package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "leads.csv", cfg.LeadsCSVPath)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 24*time.Hour, cfg.FollowUpDelay)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 5*time.Minute, cfg.SweepBackoff)
	assert.Equal(t, 48*time.Hour, cfg.DeclineResetTimeout)
	assert.Equal(t, 30*time.Second, cfg.DispatchInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FOLLOW_UP_DELAY", "2h")
	t.Setenv("SWEEP_INTERVAL", "15s")
	t.Setenv("ADMIN_TELEGRAM_ID", "12345")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.FollowUpDelay)
	assert.Equal(t, 15*time.Second, cfg.SweepInterval)
	assert.Equal(t, int64(12345), cfg.AdminTelegramID)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("FOLLOW_UP_DELAY", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_NonPositiveDuration(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL", "-1m")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidAdminID(t *testing.T) {
	t.Setenv("ADMIN_TELEGRAM_ID", "not-a-number")
	_, err := Load()
	assert.Error(t, err)
}
