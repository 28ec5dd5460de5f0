package coordinator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instagram-automation/internal/models"
	"instagram-automation/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return NewServer("127.0.0.1:0", st, zerolog.Nop()), st
}

func doJSON(t *testing.T, s *Server, method, path string, body []byte, out interface{}) int {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestStatusEndpoint(t *testing.T) {
	s, st := newTestServer(t)

	require.NoError(t, st.SetRunning(true))
	require.NoError(t, st.Set(store.KeyBotStartTime, int64(1234567890)))
	require.NoError(t, st.Set(store.KeyLastKnownUsername, "natgeo"))

	var out struct {
		Running   bool   `json:"running"`
		StartTime int64  `json:"startTime"`
		Username  string `json:"username"`
	}
	code := doJSON(t, s, http.MethodGet, "/api/status", nil, &out)

	assert.Equal(t, http.StatusOK, code)
	assert.True(t, out.Running)
	assert.Equal(t, int64(1234567890), out.StartTime)
	assert.Equal(t, "natgeo", out.Username)
}

func TestStatsEndpoint(t *testing.T) {
	s, st := newTestServer(t)

	require.NoError(t, st.BumpStat(func(b *models.BotStats) { b.Likes = 7 }))

	var out models.BotStats
	code := doJSON(t, s, http.MethodGet, "/api/stats", nil, &out)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 7, out.Likes)
}

func TestLogsEndpointEmpty(t *testing.T) {
	s, _ := newTestServer(t)

	var out []models.LogEntry
	code := doJSON(t, s, http.MethodGet, "/api/logs", nil, &out)

	assert.Equal(t, http.StatusOK, code)
	// Absent key still serves an empty array, never null
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestAnalyticsEndpoint(t *testing.T) {
	s, st := newTestServer(t)

	require.NoError(t, st.Set(store.KeyCurrentUserStats, models.ProfileAnalytics{Username: "me"}))
	require.NoError(t, st.Set(store.KeyCompetitorStats, map[string]models.ProfileAnalytics{
		"natgeo": {Username: "natgeo", TrustScore: 90},
	}))

	var out struct {
		Self        models.ProfileAnalytics            `json:"self"`
		Competitors map[string]models.ProfileAnalytics `json:"competitors"`
	}
	code := doJSON(t, s, http.MethodGet, "/api/analytics", nil, &out)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "me", out.Self.Username)
	assert.Equal(t, 90, out.Competitors["natgeo"].TrustScore)
}

func TestHistoryEndpoint(t *testing.T) {
	s, st := newTestServer(t)

	require.NoError(t, st.UpsertFollowerPoint(models.FollowerPoint{Date: "2026-08-29", Followers: 100}))
	require.NoError(t, st.UpsertFollowerPoint(models.FollowerPoint{Date: "2026-08-30", Followers: 110}))

	var out struct {
		Points []models.FollowerPoint `json:"points"`
		Growth int                    `json:"growth"`
	}
	code := doJSON(t, s, http.MethodGet, "/api/history", nil, &out)

	assert.Equal(t, http.StatusOK, code)
	require.Len(t, out.Points, 2)
	assert.Equal(t, 10, out.Growth)
}

func TestRunEndpoint(t *testing.T) {
	s, st := newTestServer(t)

	code := doJSON(t, s, http.MethodPost, "/api/run", []byte(`{"running": true}`), nil)
	assert.Equal(t, http.StatusOK, code)

	running, err := st.IsRunning()
	require.NoError(t, err)
	assert.True(t, running)

	code = doJSON(t, s, http.MethodPost, "/api/run", []byte(`{"running": false}`), nil)
	assert.Equal(t, http.StatusOK, code)

	running, err = st.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)
}

func TestRunEndpointRejectsBadBody(t *testing.T) {
	s, _ := newTestServer(t)

	code := doJSON(t, s, http.MethodPost, "/api/run", []byte(`not json`), nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
