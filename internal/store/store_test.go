package store

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instagram-automation/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestGetSetRoundTrip(t *testing.T) {
	s := newTestStore(t)

	in := models.BotConfig{LikeEnabled: true, SourceHashtags: true}
	require.NoError(t, s.Set(KeyBotConfig, in))

	var out models.BotConfig
	found, err := s.Get(KeyBotConfig, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
}

func TestGetMissingKey(t *testing.T) {
	s := newTestStore(t)

	var out string
	found, err := s.Get("no-such-key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetOverwrites(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set(KeyIsRunning, true))
	require.NoError(t, s.Set(KeyIsRunning, false))

	running, err := s.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set(KeyBotStartTime, int64(12345)))
	require.NoError(t, s.Remove(KeyBotStartTime))

	found, err := s.Get(KeyBotStartTime, nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWatchDelivery(t *testing.T) {
	s := newTestStore(t)

	received := make(chan json.RawMessage, 4)
	unsubscribe := s.Watch(KeyIsRunning, func(raw json.RawMessage) {
		received <- raw
	})

	require.NoError(t, s.Set(KeyIsRunning, true))

	// Notifications arrive on their own goroutine
	select {
	case raw := <-received:
		var v bool
		require.NoError(t, json.Unmarshal(raw, &v))
		assert.True(t, v)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not fire on Set")
	}

	// Removal notifies with nil raw
	require.NoError(t, s.Remove(KeyIsRunning))
	select {
	case raw := <-received:
		assert.Nil(t, raw)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not fire on Remove")
	}

	// After unsubscribe nothing more arrives
	unsubscribe()
	require.NoError(t, s.Set(KeyIsRunning, true))
	select {
	case <-received:
		t.Fatal("watcher fired after unsubscribe")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatchScopedToKey(t *testing.T) {
	s := newTestStore(t)

	fired := make(chan struct{}, 1)
	s.Watch(KeyDelays, func(raw json.RawMessage) { fired <- struct{}{} })

	require.NoError(t, s.Set(KeyStats, models.BotStats{Likes: 1}))

	select {
	case <-fired:
		t.Fatal("watcher fired for an unrelated key")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestClosedStoreErrors(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Get(KeyIsRunning, nil)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Set(KeyIsRunning, true), ErrClosed)
}

func TestAppendLogBounded(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < models.MaxLogEntries+5; i++ {
		require.NoError(t, s.AppendLog("message", models.LogInfo))
	}

	var logs []models.LogEntry
	_, err := s.Get(KeyLogs, &logs)
	require.NoError(t, err)
	assert.Len(t, logs, models.MaxLogEntries)
}

func TestHistoryHelpers(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AddHistory("https://www.instagram.com/p/abc"))
	require.NoError(t, s.AddHistory("https://www.instagram.com/p/abc")) // dedupe

	in, err := s.InHistory("https://www.instagram.com/p/abc")
	require.NoError(t, err)
	assert.True(t, in)

	history, err := s.History()
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestFollowedHelpers(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveFollowed(models.FollowedUser{Username: "alice"}))
	require.NoError(t, s.SaveFollowed(models.FollowedUser{Username: "bob"}))

	users, err := s.FollowedUsers()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[0].Username) // newest first

	require.NoError(t, s.RemoveFollowed("ALICE"))
	users, err = s.FollowedUsers()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)
}

func TestBumpStat(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.BumpStat(func(st *models.BotStats) { st.Likes++ }))
	require.NoError(t, s.BumpStat(func(st *models.BotStats) { st.Likes++ }))

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Likes)
}

func TestDelaysDefaultWhenMissing(t *testing.T) {
	s := newTestStore(t)

	d, err := s.Delays()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultDelays(), d)
}

func TestFollowerHistory(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertFollowerPoint(models.FollowerPoint{Date: "2026-08-29", Followers: 100}))
	require.NoError(t, s.UpsertFollowerPoint(models.FollowerPoint{Date: "2026-08-30", Followers: 120}))

	// Same-date upsert replaces the row
	require.NoError(t, s.UpsertFollowerPoint(models.FollowerPoint{Date: "2026-08-30", Followers: 125}))

	points, err := s.FollowerHistory()
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2026-08-30", points[0].Date) // newest first
	assert.Equal(t, 125, points[0].Followers)

	growth, err := s.GrowthStat()
	require.NoError(t, err)
	assert.Equal(t, 25, growth)
}

func TestGrowthStatNeedsTwoPoints(t *testing.T) {
	s := newTestStore(t)

	growth, err := s.GrowthStat()
	require.NoError(t, err)
	assert.Zero(t, growth)

	require.NoError(t, s.UpsertFollowerPoint(models.FollowerPoint{Date: "2026-08-30", Followers: 100}))
	growth, err = s.GrowthStat()
	require.NoError(t, err)
	assert.Zero(t, growth)
}
