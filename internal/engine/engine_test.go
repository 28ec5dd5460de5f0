package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instagram-automation/internal/config"
	"instagram-automation/internal/models"
	"instagram-automation/internal/planner"
	"instagram-automation/internal/stealth"
	"instagram-automation/internal/store"
)

func newSessionTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctrl := stealth.NewController(
		&config.StealthConfig{},
		func() models.DelayConfig { return models.DefaultDelays() },
		zerolog.Nop(),
	)

	return &Engine{
		store:   st,
		stealth: ctrl,
		planner: planner.New(nil, st, ctrl, zerolog.Nop()),
		logger:  zerolog.Nop(),
		delays:  models.DefaultDelays(),
		engaged: make(map[string]struct{}),
	}, st
}

func TestActivateResetsSession(t *testing.T) {
	e, st := newSessionTestEngine(t)

	// Leftovers from a previous session.
	e.batchCount = 7
	e.target = &planner.Target{Kind: planner.TargetHashtag, Value: "art"}
	e.markEngaged("leftover_user")
	e.stealth.RateLimit().RecordAction(stealth.ActionLike)

	e.activate()

	assert.NotEmpty(t, e.runID)
	assert.Zero(t, e.batchCount)
	assert.Nil(t, e.target)
	assert.False(t, e.wasEngaged("leftover_user"))
	assert.Zero(t, e.stealth.RateLimit().SessionCount(stealth.ActionLike))

	var start int64
	ok, err := st.Get(store.KeyBotStartTime, &start)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotZero(t, start)

	var nav int64
	ok, err = st.Get(store.KeyLastNavTime, &nav)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, nav)
}

func TestEngagedSetTracksProfiles(t *testing.T) {
	e, _ := newSessionTestEngine(t)

	assert.False(t, e.wasEngaged("artlover"))
	e.markEngaged("artlover")
	assert.True(t, e.wasEngaged("artlover"))
	assert.True(t, e.wasEngaged("ArtLover"), "engaged lookup should be case-insensitive")
	assert.False(t, e.wasEngaged("someone_else"))
}

func TestPlanContinuousSessionStartsNewCycle(t *testing.T) {
	e, st := newSessionTestEngine(t)

	require.NoError(t, st.SetRunning(true))
	require.NoError(t, st.Set(store.KeyProcessedHistory, []string{"https://www.instagram.com/p/abc/"}))
	e.batchCount = 3
	e.markEngaged("done_already")

	cfg := models.BotConfig{SourceHashtags: true, ContinuousSession: true}
	require.NoError(t, e.plan(nil, cfg))

	// The run flag never drops; the loop just replans with a clean slate.
	running, err := st.IsRunning()
	require.NoError(t, err)
	assert.True(t, running)

	var history []string
	_, err = st.Get(store.KeyProcessedHistory, &history)
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.Zero(t, e.batchCount)
	assert.False(t, e.wasEngaged("done_already"))
}

func TestPlanExhaustedStopsWithoutContinuousMode(t *testing.T) {
	e, st := newSessionTestEngine(t)

	require.NoError(t, st.SetRunning(true))
	require.NoError(t, st.Set(store.KeyBotStartTime, time.Now().UnixMilli()))

	cfg := models.BotConfig{SourceHashtags: true}
	require.NoError(t, e.plan(nil, cfg))

	running, err := st.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)

	var start int64
	ok, err := st.Get(store.KeyBotStartTime, &start)
	require.NoError(t, err)
	assert.False(t, ok, "start stamp should be removed on finish")
}

func TestFatalLogoutStopsSession(t *testing.T) {
	e, st := newSessionTestEngine(t)

	require.NoError(t, st.SetRunning(true))
	require.NoError(t, st.Set(store.KeyBotStartTime, time.Now().UnixMilli()))

	require.NoError(t, e.fatalLogout())

	running, err := st.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)

	var start int64
	ok, err := st.Get(store.KeyBotStartTime, &start)
	require.NoError(t, err)
	assert.False(t, ok)

	var logs []models.LogEntry
	_, err = st.Get(store.KeyLogs, &logs)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[0].Message, "Session expired")
}

func TestBatchRestResetsCounter(t *testing.T) {
	e, st := newSessionTestEngine(t)
	e.batchCount = 5

	require.NoError(t, e.batchRest(models.DelayConfig{BatchPause: 0}))
	assert.Zero(t, e.batchCount)

	var logs []models.LogEntry
	_, err := st.Get(store.KeyLogs, &logs)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, models.LogWait, logs[0].Severity)
}

func TestBatchRestInterruptedByDeactivation(t *testing.T) {
	e, _ := newSessionTestEngine(t)
	e.batchCount = 5
	e.isRunning = false

	start := time.Now()
	require.NoError(t, e.batchRest(models.DelayConfig{BatchPause: 60}))

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 5, e.batchCount, "an interrupted rest keeps the batch pending")
}

func TestNavDue(t *testing.T) {
	e, st := newSessionTestEngine(t)
	e.delays = models.DelayConfig{NavMin: 30}

	now := time.Now()

	// No stamp yet: navigation is due immediately.
	assert.True(t, e.navDue(now))

	require.NoError(t, st.Set(store.KeyLastNavTime, now.UnixMilli()))
	assert.False(t, e.navDue(now.Add(5*time.Second)))
	assert.True(t, e.navDue(now.Add(31*time.Second)))
}
