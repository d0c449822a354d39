package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 2, cfg.Season.StreakGraceDays)
	assert.Equal(t, 3, cfg.Streak.MaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.Streak.SyncInterval)
	assert.Equal(t, 10*time.Minute, cfg.Leaderboard.CacheTTL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("STREAK_PROVIDER_TIMEOUT", "not-a-duration")
	t.Setenv("SEASON_STREAK_GRACE_DAYS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.Streak.Timeout)
	assert.Equal(t, 0, cfg.Season.StreakGraceDays)
}
