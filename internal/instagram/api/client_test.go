package api

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instagram-automation/internal/instagram/analytics"
	"instagram-automation/internal/models"
	"instagram-automation/internal/store"
)

func TestMetaStatsPattern(t *testing.T) {
	html := `<meta content="5.6M Followers, 312 Following, 1,204 Posts - See Instagram photos" name="description">`

	m := metaStatsPattern.FindStringSubmatch(html)
	require.NotNil(t, m)
	assert.Equal(t, 5_600_000, analytics.ParseCount(m[1]))
	assert.Equal(t, 312, analytics.ParseCount(m[2]))
	assert.Equal(t, 1204, analytics.ParseCount(m[3]))

	// Singular form on accounts with one follower
	m = metaStatsPattern.FindStringSubmatch(`1 Follower, 2 Following, 3 Posts`)
	require.NotNil(t, m)
	assert.Equal(t, 1, analytics.ParseCount(m[1]))
}

func TestViewerPattern(t *testing.T) {
	body := []byte(`{"config":{"viewer":{"username":"natgeo.travel","id":"123"}}}`)

	m := viewerPattern.FindSubmatch(body)
	require.NotNil(t, m)
	assert.Equal(t, "natgeo.travel", string(m[1]))

	assert.Nil(t, viewerPattern.FindSubmatch([]byte(`{"loggedIn":false}`)))
}

func TestCsrfFromCookie(t *testing.T) {
	cookie := "mid=abc123; csrftoken=TOK99xyz; ds_user_id=555; sessionid=555%3Aabc"
	assert.Equal(t, "TOK99xyz", csrfFromCookie(cookie))

	assert.Equal(t, "", csrfFromCookie("mid=abc123; sessionid=555"))
	assert.Equal(t, "", csrfFromCookie(""))
}

func newTestClient(t *testing.T) (*Client, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return NewClient(nil, st, zerolog.Nop()), st
}

func TestSaveLoadSelf(t *testing.T) {
	c, _ := newTestClient(t)

	rec := models.ProfileAnalytics{Username: "me", Stats: models.ProfileStats{Followers: 100}}
	require.NoError(t, c.save(rec, true))

	got, err := c.load("me", true)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestSaveLoadCompetitors(t *testing.T) {
	c, _ := newTestClient(t)

	require.NoError(t, c.save(models.ProfileAnalytics{Username: "natgeo", TrustScore: 90}, false))
	require.NoError(t, c.save(models.ProfileAnalytics{Username: "nasa", TrustScore: 95}, false))

	got, err := c.load("natgeo", false)
	require.NoError(t, err)
	assert.Equal(t, 90, got.TrustScore)

	// Unknown competitors load as a zero record
	got, err = c.load("stranger", false)
	require.NoError(t, err)
	assert.Empty(t, got.Username)
}
