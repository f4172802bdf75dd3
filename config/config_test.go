package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PLANNER_TIMEZONE", "")
	t.Setenv("PLANNER_HTTP_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, 30, cfg.HorizonDays)
	assert.Zero(t, cfg.ReplanInterval)
	assert.False(t, cfg.CalendarEnabled)
}

func TestLoadReadsEnv(t *testing.T) {
	t.Setenv("PLANNER_ENV", "production")
	t.Setenv("PLANNER_HTTP_PORT", "9090")
	t.Setenv("PLANNER_DB_PATH", ":memory:")
	t.Setenv("PLANNER_TIMEZONE", "UTC")
	t.Setenv("PLANNER_HORIZON_DAYS", "14")
	t.Setenv("PLANNER_REPLAN_INTERVAL", "15m")
	t.Setenv("PLANNER_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("PLANNER_CALENDAR_ENABLED", "yes")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, 14, cfg.HorizonDays)
	assert.Equal(t, 15*time.Minute, cfg.ReplanInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.CalendarEnabled)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("PLANNER_TIMEZONE", "Mars/Olympus")
	_, err := Load()
	assert.ErrorContains(t, err, "PLANNER_TIMEZONE")

	t.Setenv("PLANNER_TIMEZONE", "UTC")
	t.Setenv("PLANNER_HORIZON_DAYS", "-1")
	_, err = Load()
	assert.ErrorContains(t, err, "PLANNER_HORIZON_DAYS")
}
