package coordinator

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instagram-automation/internal/config"
	"instagram-automation/internal/models"
	"instagram-automation/internal/store"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Targets.Hashtags = []string{"#art", "@typo"}
	cfg.Targets.Competitors = []string{"@natgeo"}

	return New(st, nil, cfg, zerolog.Nop()), st
}

func TestEnsureDefaultsSeedsMissingKeys(t *testing.T) {
	c, st := newTestCoordinator(t)

	require.NoError(t, c.EnsureDefaults())

	running, err := st.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)

	hashtags, competitors, err := st.TargetLists()
	require.NoError(t, err)
	// Prefixes are stripped when lists are seeded
	assert.Equal(t, []string{"art", "typo"}, hashtags)
	assert.Equal(t, []string{"natgeo"}, competitors)

	var logs []models.LogEntry
	found, err := st.Get(store.KeyLogs, &logs)
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, logs, 1)

	delays, err := st.Delays()
	require.NoError(t, err)
	assert.Greater(t, delays.BatchLimit, 0)
}

func TestEnsureDefaultsNeverOverwrites(t *testing.T) {
	c, st := newTestCoordinator(t)

	require.NoError(t, st.SetRunning(true))
	require.NoError(t, st.Set(store.KeyTargetHashtags, []string{"existing"}))

	require.NoError(t, c.EnsureDefaults())

	running, err := st.IsRunning()
	require.NoError(t, err)
	assert.True(t, running)

	hashtags, _, err := st.TargetLists()
	require.NoError(t, err)
	assert.Equal(t, []string{"existing"}, hashtags)
}

func TestEnsureDefaultsIdempotent(t *testing.T) {
	c, st := newTestCoordinator(t)

	require.NoError(t, c.EnsureDefaults())
	require.NoError(t, c.EnsureDefaults())

	var logs []models.LogEntry
	_, err := st.Get(store.KeyLogs, &logs)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
