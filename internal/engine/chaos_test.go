package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instagram-automation/internal/models"
	"instagram-automation/internal/store"
)

func newChaosTestEngine(t *testing.T) *Engine {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return &Engine{
		store:  st,
		logger: zerolog.Nop(),
	}
}

func TestChaosDue(t *testing.T) {
	e := newChaosTestEngine(t)
	delays := models.DelayConfig{ChaosFreq: 30, ChaosGrace: 10}

	now := time.Now()
	e.startedAt = now.Add(-time.Minute)

	// Fresh store: the first check seeds the stamp and does not fire
	assert.False(t, e.chaosDue(delays, now))

	// Stamp just seeded, still not overdue
	assert.False(t, e.chaosDue(delays, now.Add(time.Minute)))

	// Past the frequency window it fires
	assert.True(t, e.chaosDue(delays, now.Add(31*time.Minute)))
}

func TestChaosDueGraceWindow(t *testing.T) {
	e := newChaosTestEngine(t)
	delays := models.DelayConfig{ChaosFreq: 30, ChaosGrace: 60}

	// A stale stamp from a previous run would make chaos overdue
	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, e.store.Set(store.KeyLastChaosTime, stale.UnixMilli()))

	// Inside the grace window after engine start nothing fires
	e.startedAt = time.Now()
	assert.False(t, e.chaosDue(delays, time.Now()))

	// Once the grace window passes, the overdue stamp fires
	assert.True(t, e.chaosDue(delays, e.startedAt.Add(2*time.Minute)))
}

func TestChaosDueDisabled(t *testing.T) {
	e := newChaosTestEngine(t)
	e.startedAt = time.Now().Add(-time.Hour)

	assert.False(t, e.chaosDue(models.DelayConfig{ChaosFreq: 0}, time.Now()))
}
