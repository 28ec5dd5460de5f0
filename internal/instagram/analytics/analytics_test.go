package analytics

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instagram-automation/internal/intercept"
	"instagram-automation/internal/models"
	"instagram-automation/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return NewManager(nil, st, nil, intercept.New(zerolog.Nop()), zerolog.Nop()), st
}

func TestAwaitCaptureNudgesQuietPage(t *testing.T) {
	m, _ := newTestManager(t)
	m.captureWindow = 200 * time.Millisecond
	m.quietPeriod = 40 * time.Millisecond

	var nudges int
	m.scroll = func(*rod.Page) { nudges++ }

	m.awaitCapture(nil)

	// No packets ever arrive, so every quiet tick should try a scroll
	// until the window closes.
	assert.GreaterOrEqual(t, nudges, 2)
}

func TestSaveOwnMergesAndRemembersHandle(t *testing.T) {
	m, st := newTestManager(t)

	require.NoError(t, st.Set(store.KeyCurrentUserStats, models.ProfileAnalytics{
		Username: "botuser",
		FullName: "Bot User",
		Stats:    models.ProfileStats{Followers: 90, Posts: 12},
	}))

	err := m.SaveOwn("botuser", models.UserRecord{Username: "botuser", Followers: 120})
	require.NoError(t, err)

	var rec models.ProfileAnalytics
	ok, err := st.Get(store.KeyCurrentUserStats, &rec)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 120, rec.Stats.Followers)
	assert.Equal(t, 12, rec.Stats.Posts)
	assert.Equal(t, "Bot User", rec.FullName)
	assert.NotZero(t, rec.Timestamp)

	var handle string
	ok, err = st.Get(store.KeyLastKnownUsername, &handle)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "botuser", handle)
}

func TestSaveOwnFreshStore(t *testing.T) {
	m, st := newTestManager(t)

	err := m.SaveOwn("newbie", models.UserRecord{Username: "newbie", Followers: 3, Following: 10})
	require.NoError(t, err)

	var rec models.ProfileAnalytics
	ok, err := st.Get(store.KeyCurrentUserStats, &rec)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "newbie", rec.Username)
	assert.Equal(t, 3, rec.Stats.Followers)
	assert.Equal(t, 10, rec.Stats.Following)
}
