// Package api implements the headless profile refresh: a chain of
// public and session-authenticated HTTP endpoints that recover profile
// stats without driving the browser. Used by the periodic refresh
// ticker and the status command.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"instagram-automation/internal/browser"
	"instagram-automation/internal/instagram"
	"instagram-automation/internal/instagram/analytics"
	"instagram-automation/internal/intercept"
	"instagram-automation/internal/models"
	"instagram-automation/internal/store"
)

// appID is the web client identifier Instagram's own frontend sends;
// the profile endpoints reject requests without it.
const appID = "936619743392459"

// timelineQueryHash addresses the user timeline GraphQL query.
const timelineQueryHash = "69cba2a860146039ad775e7a9736f56b"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// metaStatsPattern matches the profile page's meta description, e.g.
// "1,234 Followers, 567 Following, 89 Posts".
var metaStatsPattern = regexp.MustCompile(`([\d.,]+[KkMm]?)\s+Followers?,\s+([\d.,]+[KkMm]?)\s+Following,\s+([\d.,]+[KkMm]?)\s+Posts`)

// viewerPattern matches the logged-in account's username in the home
// page's bootstrap JSON.
var viewerPattern = regexp.MustCompile(`"username"\s*:\s*"([A-Za-z0-9._]+)"`)

const maxResponseBody = 4 * 1024 * 1024

// Client fetches profile data over plain HTTP using the saved browser
// session for authentication.
type Client struct {
	httpClient *http.Client
	session    *browser.SessionManager
	store      *store.Store
	logger     zerolog.Logger
}

// NewClient creates a refresh client
func NewClient(session *browser.SessionManager, st *store.Store, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		session:    session,
		store:      st,
		logger:     logger.With().Str("component", "api").Logger(),
	}
}

// Refresh pulls current stats for a username, merges them into the
// stored record, and appends today's follower history point.
func (c *Client) Refresh(username string, self bool) (models.ProfileAnalytics, error) {
	username = strings.ToLower(instagram.CleanHandle(username))
	c.logger.Info().Str("username", username).Msg("Refreshing profile over HTTP")

	user, posts := c.fetchChain(username)
	if user.IsZero() {
		return models.ProfileAnalytics{}, fmt.Errorf("all refresh endpoints failed for @%s", username)
	}

	existing, err := c.load(username, self)
	if err != nil {
		return models.ProfileAnalytics{}, err
	}

	rec := analytics.MergeQuick(existing, user, models.UserRecord{})
	rec.Username = username
	rec.LatestPosts = analytics.MergePosts(existing.LatestPosts, posts)
	rec.EngagementRate = analytics.EngagementRate(rec.LatestPosts, rec.Stats.Followers)
	rec.TrustScore = analytics.TrustScore(rec.Stats, rec.EngagementRate)
	rec.Timestamp = time.Now().UnixMilli()

	if err := c.save(rec, self); err != nil {
		return rec, err
	}

	if self {
		if err := c.store.UpsertFollowerPoint(models.FollowerPoint{
			Date:      store.TodayDate(),
			Followers: rec.Stats.Followers,
			Following: rec.Stats.Following,
			Posts:     rec.Stats.Posts,
		}); err != nil {
			return rec, err
		}
		if err := c.store.Set(store.KeyLastKnownUsername, username); err != nil {
			return rec, err
		}
	}

	return rec, nil
}

// DetectUsername recovers the logged-in account's username from the
// home page bootstrap JSON and stores it for later self refreshes.
// The session cookie must be valid; an anonymous home page carries no
// viewer block.
func (c *Client) DetectUsername() (string, error) {
	body, err := c.get(instagram.HomeURL(), false)
	if err != nil {
		return "", err
	}

	m := viewerPattern.FindSubmatch(body)
	if m == nil {
		return "", fmt.Errorf("no viewer username in home page")
	}

	username := strings.ToLower(string(m[1]))
	if err := c.store.Set(store.KeyLastKnownUsername, username); err != nil {
		return "", err
	}

	c.logger.Info().Str("username", username).Msg("Detected logged-in username")
	return username, nil
}

// fetchChain walks the endpoint chain until one yields a user record.
func (c *Client) fetchChain(username string) (models.UserRecord, []models.PostRecord) {
	user, posts, err := c.fetchWebProfile(username)
	if err != nil {
		c.logger.Debug().Err(err).Msg("web_profile_info failed")
	}

	if !user.IsZero() && len(posts) == 0 && user.ID != "" {
		if more, err := c.fetchTimeline(user.ID); err == nil {
			posts = more
		} else {
			c.logger.Debug().Err(err).Msg("timeline query failed")
		}
		if len(posts) == 0 {
			if more, err := c.fetchProfileGrid(user.ID); err == nil {
				posts = more
			} else {
				c.logger.Debug().Err(err).Msg("profile_grid fallback failed")
			}
		}
	}

	if user.IsZero() {
		if htmlUser, err := c.fetchProfileHTML(username); err == nil {
			user = htmlUser
		} else {
			c.logger.Debug().Err(err).Msg("HTML fallback failed")
		}
	}

	return user, posts
}

// fetchWebProfile hits the web_profile_info endpoint, which carries the
// user block and usually the recent timeline in one payload.
func (c *Client) fetchWebProfile(username string) (models.UserRecord, []models.PostRecord, error) {
	endpoint := instagram.BaseURL + "/api/v1/users/web_profile_info/?username=" + url.QueryEscape(username)

	body, err := c.get(endpoint, true)
	if err != nil {
		return models.UserRecord{}, nil, err
	}

	posts, user := intercept.ParsePayload(body)
	if user == nil {
		return models.UserRecord{}, nil, fmt.Errorf("no user block in web_profile_info response")
	}
	return *user, posts, nil
}

// fetchTimeline pulls the recent posts by user ID via GraphQL.
func (c *Client) fetchTimeline(userID string) ([]models.PostRecord, error) {
	variables, err := json.Marshal(map[string]interface{}{
		"id":    userID,
		"first": models.MaxAnalyticsPosts,
	})
	if err != nil {
		return nil, err
	}

	endpoint := instagram.BaseURL + "/graphql/query/?query_hash=" + timelineQueryHash +
		"&variables=" + url.QueryEscape(string(variables))

	body, err := c.get(endpoint, true)
	if err != nil {
		return nil, err
	}

	posts, _ := intercept.ParsePayload(body)
	if len(posts) == 0 {
		return nil, fmt.Errorf("no posts in timeline response")
	}
	return posts, nil
}

// fetchProfileGrid pulls recent posts from the profile grid feed, the
// endpoint Instagram's own frontend falls back to when the GraphQL
// timeline is unavailable. Requires the full API header set including
// the CSRF token.
func (c *Client) fetchProfileGrid(userID string) ([]models.PostRecord, error) {
	endpoint := instagram.BaseURL + "/api/v1/feed/user/" + url.PathEscape(userID) + "/profile_grid/"

	body, err := c.get(endpoint, true)
	if err != nil {
		return nil, err
	}

	posts, _ := intercept.ParsePayload(body)
	if len(posts) == 0 {
		return nil, fmt.Errorf("no items in profile_grid response")
	}
	return posts, nil
}

// fetchProfileHTML scrapes coarse stats from the profile page's meta
// description when every structured endpoint is blocked.
func (c *Client) fetchProfileHTML(username string) (models.UserRecord, error) {
	body, err := c.get(instagram.ProfileURL(username), false)
	if err != nil {
		return models.UserRecord{}, err
	}

	m := metaStatsPattern.FindStringSubmatch(string(body))
	if m == nil {
		return models.UserRecord{}, fmt.Errorf("no stats meta in profile HTML")
	}

	return models.UserRecord{
		Username:  username,
		Followers: analytics.ParseCount(m[1]),
		Following: analytics.ParseCount(m[2]),
		Posts:     analytics.ParseCount(m[3]),
	}, nil
}

// get performs an authenticated GET. The saved session cookie is
// attached when available; public pages work without it.
func (c *Client) get(endpoint string, apiHeaders bool) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	cookie, cookieErr := c.session.CookieHeader("instagram.com")
	if cookieErr == nil {
		req.Header.Set("Cookie", cookie)
	}

	if apiHeaders {
		req.Header.Set("X-IG-App-ID", appID)
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
		req.Header.Set("Referer", instagram.BaseURL+"/")
		if token := csrfFromCookie(cookie); token != "" {
			req.Header.Set("X-CSRFToken", token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", endpoint, resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
}

// csrfFromCookie pulls the csrftoken value out of a Cookie header; the
// API endpoints reject state-bearing requests without it echoed back.
func csrfFromCookie(cookie string) string {
	for _, part := range strings.Split(cookie, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name == "csrftoken" {
			return value
		}
	}
	return ""
}

func (c *Client) load(username string, self bool) (models.ProfileAnalytics, error) {
	if self {
		var rec models.ProfileAnalytics
		_, err := c.store.Get(store.KeyCurrentUserStats, &rec)
		return rec, err
	}

	all := make(map[string]models.ProfileAnalytics)
	if _, err := c.store.Get(store.KeyCompetitorStats, &all); err != nil {
		return models.ProfileAnalytics{}, err
	}
	return all[username], nil
}

func (c *Client) save(rec models.ProfileAnalytics, self bool) error {
	if self {
		return c.store.Set(store.KeyCurrentUserStats, rec)
	}

	all := make(map[string]models.ProfileAnalytics)
	if _, err := c.store.Get(store.KeyCompetitorStats, &all); err != nil {
		return err
	}
	all[rec.Username] = rec
	return c.store.Set(store.KeyCompetitorStats, all)
}
