package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
bot:
  like_enabled: true
  follow_enabled: true
  source_hashtags: true
  source_competitors: true
  continuous_session: true

delays:
  nav_min: 12
  nav_max: 25
  batch_limit: 10
  batch_pause: 600

targets:
  hashtags: ["#art", "#design"]
  competitors: ["natgeo"]

stealth:
  schedule_only: true
  start_hour: 8
  end_hour: 22

server:
  enabled: true
  addr: "127.0.0.1:9999"

refresh:
  enabled: true
  interval_hours: 12
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.True(t, cfg.Bot.LikeEnabled)
	assert.True(t, cfg.Bot.FollowEnabled)
	assert.True(t, cfg.Bot.ContinuousSession)

	assert.Equal(t, 12, cfg.Delays.NavMin)
	assert.Equal(t, 25, cfg.Delays.NavMax)
	assert.Equal(t, 10, cfg.Delays.BatchLimit)
	// Fields absent from the file get normalized defaults
	assert.Greater(t, cfg.Delays.ViewMin, 0)
	assert.Greater(t, cfg.Delays.UnfollowDays, 0)

	assert.Equal(t, []string{"#art", "#design"}, cfg.Targets.Hashtags)
	assert.Equal(t, []string{"natgeo"}, cfg.Targets.Competitors)

	assert.True(t, cfg.Stealth.ScheduleOnly)
	assert.Equal(t, 8, cfg.Stealth.StartHour)

	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	assert.Equal(t, 12, cfg.Refresh.IntervalHours)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.True(t, cfg.Bot.LikeEnabled)
	assert.True(t, cfg.Bot.SourceHashtags)
	assert.NotEmpty(t, cfg.Storage.DatabasePath)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DATABASE_PATH", "/tmp/custom.db")
	t.Setenv("BATCH_LIMIT", "7")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/custom.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 7, cfg.Delays.BatchLimit)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	cfg.Stealth.StartHour = 25
	assert.Error(t, cfg.Validate())
}

func TestValidateForRun(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.ValidateForRun())

	// No enabled source means the planner can never produce a target
	cfg.Bot.SourceHashtags = false
	cfg.Bot.SourceCompetitors = false
	cfg.Bot.UnfollowEnabled = false
	assert.Error(t, cfg.ValidateForRun())
}
