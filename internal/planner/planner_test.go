package planner

import (
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instagram-automation/internal/models"
	"instagram-automation/internal/store"
)

func testRng() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

func TestNextTargetNoSources(t *testing.T) {
	now := time.Now()

	// Nothing enabled
	_, ok := NextTarget(models.BotConfig{}, []string{"art"}, []string{"natgeo"}, nil, 3, now, testRng())
	assert.False(t, ok)

	// Enabled but empty lists
	cfg := models.BotConfig{SourceHashtags: true, SourceCompetitors: true}
	_, ok = NextTarget(cfg, nil, nil, nil, 3, now, testRng())
	assert.False(t, ok)

	// Unfollow enabled but no eligible candidates
	cfg = models.BotConfig{UnfollowEnabled: true}
	fresh := []models.FollowedUser{{Username: "new", Timestamp: now.UnixMilli()}}
	_, ok = NextTarget(cfg, nil, nil, fresh, 3, now, testRng())
	assert.False(t, ok)
}

func TestNextTargetSingleSource(t *testing.T) {
	now := time.Now()

	cfg := models.BotConfig{SourceHashtags: true}
	target, ok := NextTarget(cfg, []string{"#art"}, nil, nil, 3, now, testRng())
	assert.True(t, ok)
	assert.Equal(t, TargetHashtag, target.Kind)
	// Prefixes are stripped before the value is used in a URL
	assert.Equal(t, "art", target.Value)

	cfg = models.BotConfig{SourceCompetitors: true}
	target, ok = NextTarget(cfg, nil, []string{"@natgeo"}, nil, 3, now, testRng())
	assert.True(t, ok)
	assert.Equal(t, TargetCompetitor, target.Kind)
	assert.Equal(t, "natgeo", target.Value)
}

func TestNextTargetUnfollowPicksOldest(t *testing.T) {
	now := time.Now()
	cfg := models.BotConfig{UnfollowEnabled: true}

	// Ledger is newest-first; the oldest eligible record sits at the tail
	followed := []models.FollowedUser{
		{Username: "newest", Timestamp: now.UnixMilli()},
		{Username: "middle", Timestamp: now.Add(-5 * 24 * time.Hour).UnixMilli()},
		{Username: "oldest", Timestamp: now.Add(-10 * 24 * time.Hour).UnixMilli()},
	}

	target, ok := NextTarget(cfg, nil, nil, followed, 3, now, testRng())
	assert.True(t, ok)
	assert.Equal(t, TargetUnfollow, target.Kind)
	assert.Equal(t, "oldest", target.Value)
}

func TestNextTargetUnfollowSkipsProtected(t *testing.T) {
	now := time.Now()
	cfg := models.BotConfig{UnfollowEnabled: true}

	followed := []models.FollowedUser{
		{Username: "eligible", Timestamp: now.Add(-5 * 24 * time.Hour).UnixMilli()},
		{Username: "keeper", Timestamp: now.Add(-20 * 24 * time.Hour).UnixMilli(), Protected: true},
	}

	target, ok := NextTarget(cfg, nil, nil, followed, 3, now, testRng())
	assert.True(t, ok)
	assert.Equal(t, "eligible", target.Value)
}

func TestNextTargetRespectsMaturity(t *testing.T) {
	now := time.Now()
	cfg := models.BotConfig{UnfollowEnabled: true, SourceHashtags: true}

	// Only two days old with a three-day maturity window: the hashtag
	// source is the only one in play.
	followed := []models.FollowedUser{
		{Username: "recent", Timestamp: now.Add(-2 * 24 * time.Hour).UnixMilli()},
	}

	for i := 0; i < 20; i++ {
		rng := rand.New(rand.NewSource(int64(i)))
		target, ok := NextTarget(cfg, []string{"art"}, nil, followed, 3, now, rng)
		assert.True(t, ok)
		assert.Equal(t, TargetHashtag, target.Kind)
	}
}

func TestNextTargetCoversAllSources(t *testing.T) {
	now := time.Now()
	cfg := models.BotConfig{
		SourceHashtags:    true,
		SourceCompetitors: true,
		UnfollowEnabled:   true,
	}
	followed := []models.FollowedUser{
		{Username: "old", Timestamp: now.Add(-10 * 24 * time.Hour).UnixMilli()},
	}

	// Over enough seeds the shuffle reaches every enabled source
	seen := map[TargetKind]bool{}
	for i := 0; i < 50; i++ {
		rng := rand.New(rand.NewSource(int64(i)))
		target, ok := NextTarget(cfg, []string{"art"}, []string{"natgeo"}, followed, 3, now, rng)
		assert.True(t, ok)
		seen[target.Kind] = true
	}

	assert.True(t, seen[TargetHashtag])
	assert.True(t, seen[TargetCompetitor])
	assert.True(t, seen[TargetUnfollow])
}

func TestTargetKindString(t *testing.T) {
	assert.Equal(t, "hashtag", TargetHashtag.String())
	assert.Equal(t, "competitor", TargetCompetitor.String())
	assert.Equal(t, "unfollow", TargetUnfollow.String())
}

func newTestPlanner(t *testing.T) (*Planner, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return New(nil, st, nil, zerolog.Nop()), st
}

func TestPlanWarnsOnEmptyEnabledSource(t *testing.T) {
	p, st := newTestPlanner(t)

	cfg := models.BotConfig{SourceHashtags: true, SourceCompetitors: true}
	_, ok, err := p.Plan(cfg, models.DefaultDelays())
	require.NoError(t, err)
	assert.False(t, ok)

	var logs []models.LogEntry
	_, err = st.Get(store.KeyLogs, &logs)
	require.NoError(t, err)

	var messages []string
	for _, l := range logs {
		messages = append(messages, l.Message)
	}
	assert.Contains(t, messages, "Source 'Hashtags' enabled but list is empty")
	assert.Contains(t, messages, "Source 'Competitors' enabled but list is empty")
}

func TestPlanPicksFromStoredLists(t *testing.T) {
	p, st := newTestPlanner(t)

	require.NoError(t, st.Set(store.KeyTargetHashtags, []string{"art"}))

	target, ok, err := p.Plan(models.BotConfig{SourceHashtags: true}, models.DefaultDelays())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, TargetHashtag, target.Kind)
	assert.Equal(t, "art", target.Value)
}

func TestCycleResetClearsHistory(t *testing.T) {
	p, st := newTestPlanner(t)

	require.NoError(t, st.AddHistory("https://www.instagram.com/p/abc"))
	require.NoError(t, p.CycleReset())

	history, err := st.History()
	require.NoError(t, err)
	assert.Empty(t, history)
}
