// Package analytics audits Instagram profiles by combining captured
// API traffic with DOM harvesting, scoring the result, and persisting
// it for the dashboard.
package analytics

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/rs/zerolog"

	"instagram-automation/internal/browser"
	"instagram-automation/internal/instagram"
	"instagram-automation/internal/instagram/domx"
	"instagram-automation/internal/intercept"
	"instagram-automation/internal/models"
	"instagram-automation/internal/stealth"
	"instagram-automation/internal/store"
)

// Mode selects audit depth.
type Mode int

// Audit modes. A deep audit waits for timeline capture and scores the
// account; a quick audit grabs whatever is immediately available.
const (
	ModeQuick Mode = iota
	ModeDeep
)

const (
	shortProbeTimeout = 2 * time.Second

	// captureWindow is how long a deep audit waits for timeline
	// payloads to arrive after navigation.
	captureWindow = 12 * time.Second

	// capturePacketQuiet is how long the packet stream may stay silent
	// before the page gets nudged again.
	capturePacketQuiet = 4 * time.Second
)

// Manager performs profile audits
type Manager struct {
	browser     *browser.Browser
	pageHelper  *browser.PageHelper
	stealth     *stealth.Controller
	store       *store.Store
	interceptor *intercept.Interceptor
	httpClient  *http.Client
	logger      zerolog.Logger

	captureWindow time.Duration
	quietPeriod   time.Duration
	scroll        func(*rod.Page)
}

// NewManager creates an analytics manager
func NewManager(
	b *browser.Browser,
	st *store.Store,
	stealthCtrl *stealth.Controller,
	interceptor *intercept.Interceptor,
	logger zerolog.Logger,
) *Manager {
	m := &Manager{
		browser:       b,
		pageHelper:    browser.NewPageHelper(logger),
		stealth:       stealthCtrl,
		store:         st,
		interceptor:   interceptor,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		logger:        logger.With().Str("component", "analytics").Logger(),
		captureWindow: captureWindow,
		quietPeriod:   capturePacketQuiet,
	}
	m.scroll = m.nudgeCapture
	return m
}

// Audit navigates to a profile, gathers data from network capture and
// the DOM, merges it with the stored record, and persists the result.
// self marks the operator's own account, which is stored separately
// from competitor records.
func (m *Manager) Audit(page *rod.Page, username string, mode Mode, self bool) (models.ProfileAnalytics, error) {
	username = strings.ToLower(instagram.CleanHandle(username))

	m.logger.Info().
		Str("username", username).
		Bool("deep", mode == ModeDeep).
		Msg("Auditing profile")

	// One profile's capture must never leak into the next.
	m.interceptor.Reset()

	if err := m.browser.Navigate(page, instagram.ProfileURL(username)); err != nil {
		return models.ProfileAnalytics{}, fmt.Errorf("failed to open @%s: %w", username, err)
	}

	if mode == ModeDeep {
		m.awaitCapture(page)
	} else {
		m.stealth.Timing().PageLoadDelay()
	}

	dom := m.harvestDOMUser(page, username)
	capturedPosts, networkUser := m.interceptor.Snapshot()

	var network models.UserRecord
	if networkUser != nil {
		network = *networkUser
	}

	existing, err := m.load(username, self)
	if err != nil {
		return models.ProfileAnalytics{}, err
	}

	var merged models.ProfileAnalytics
	if mode == ModeDeep {
		merged = MergeDeep(existing, network, dom)
	} else {
		merged = MergeQuick(existing, network, dom)
	}
	merged.Username = username
	merged.LatestPosts = MergePosts(existing.LatestPosts, capturedPosts)
	merged.Timestamp = time.Now().UnixMilli()

	if mode == ModeDeep {
		m.backfillLikes(merged.LatestPosts)
		merged.EngagementRate = EngagementRate(merged.LatestPosts, merged.Stats.Followers)
		merged.TrustScore = TrustScore(merged.Stats, merged.EngagementRate)
	}

	if err := m.save(merged, self); err != nil {
		return merged, err
	}

	m.logger.Info().
		Str("username", username).
		Int("followers", merged.Stats.Followers).
		Float64("engagement", merged.EngagementRate).
		Int("trust", merged.TrustScore).
		Msg("Audit complete")

	if err := m.store.AppendLog(fmt.Sprintf("Audited @%s", username), models.LogInfo); err != nil {
		return merged, err
	}

	return merged, nil
}

// selectorProfileControls harvests the header action row, where the
// edit-profile control lives on the viewer's own page.
const selectorProfileControls = "a[href], button, div[role='button']"

// AuditOwn refreshes the stored stats for the logged-in account from
// the profile page already open, without navigating. The scrape only
// fires when the page carries an edit-profile control, which is what
// distinguishes the viewer's own profile from someone else's. Returns
// true once the record is stored so callers can stop retrying.
func (m *Manager) AuditOwn(page *rod.Page) bool {
	cands, _, err := m.pageHelper.HarvestCandidates(page, selectorProfileControls)
	if err != nil || domx.FindFirst(cands, domx.IsEditProfile) < 0 {
		return false
	}

	loc, err := url.Parse(m.pageHelper.GetCurrentURL(page))
	if err != nil {
		return false
	}
	username, ok := instagram.UsernameFromPath(loc.Path)
	if !ok {
		return false
	}

	m.logger.Info().Str("username", username).Msg("Refreshing own profile stats")

	dom := m.harvestDOMUser(page, username)
	if err := m.SaveOwn(username, dom); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to store own profile stats")
		return false
	}
	return true
}

// SaveOwn merges a harvested snapshot of the operator's account into
// the stored record and remembers the handle for session restore.
func (m *Manager) SaveOwn(username string, dom models.UserRecord) error {
	existing, err := m.load(username, true)
	if err != nil {
		return err
	}

	merged := MergeQuick(existing, models.UserRecord{}, dom)
	merged.Username = username
	merged.Timestamp = time.Now().UnixMilli()

	if err := m.store.Set(store.KeyCurrentUserStats, merged); err != nil {
		return err
	}
	if err := m.store.Set(store.KeyLastKnownUsername, username); err != nil {
		return err
	}
	return m.store.AppendLog(fmt.Sprintf("Updated own profile stats for @%s", username), models.LogInfo)
}

// awaitCapture blocks until the capture window closes or the packet
// stream goes quiet with data already in the buffer. A silent stream
// gets the page scrolled so the profile grid keeps lazy-loading posts.
func (m *Manager) awaitCapture(page *rod.Page) {
	deadline := time.After(m.captureWindow)
	quiet := time.NewTimer(m.quietPeriod)
	defer quiet.Stop()

	for {
		select {
		case <-m.interceptor.Packets():
			// Fresh data arrived; extend the quiet period.
			if !quiet.Stop() {
				select {
				case <-quiet.C:
				default:
				}
			}
			quiet.Reset(m.quietPeriod)
		case <-quiet.C:
			posts, _ := m.interceptor.Snapshot()
			if len(posts) > 0 {
				return
			}
			m.scroll(page)
			quiet.Reset(m.quietPeriod / 2)
		case <-deadline:
			return
		}
	}
}

// nudgeCapture coaxes more timeline requests out of a quiet page.
func (m *Manager) nudgeCapture(page *rod.Page) {
	if page == nil {
		return
	}
	if err := m.stealth.Scroll().ScrollDown(page); err != nil {
		m.logger.Debug().Err(err).Msg("Capture scroll failed")
	}
	m.stealth.Timing().MicroDelay()
}

// backfillLikes fills zero like counts from the public embed page.
func (m *Manager) backfillLikes(posts []models.PostRecord) {
	for i := range posts {
		if posts[i].Likes > 0 || posts[i].Shortcode == "" {
			continue
		}
		likes, err := FetchEmbedLikes(m.httpClient, posts[i].Shortcode)
		if err != nil {
			m.logger.Debug().Err(err).Str("shortcode", posts[i].Shortcode).Msg("Embed backfill failed")
			continue
		}
		posts[i].Likes = likes
		m.stealth.Timing().ShortDelay()
	}
}

func (m *Manager) load(username string, self bool) (models.ProfileAnalytics, error) {
	if self {
		var rec models.ProfileAnalytics
		_, err := m.store.Get(store.KeyCurrentUserStats, &rec)
		return rec, err
	}

	all, err := m.competitors()
	if err != nil {
		return models.ProfileAnalytics{}, err
	}
	return all[username], nil
}

func (m *Manager) save(rec models.ProfileAnalytics, self bool) error {
	if self {
		return m.store.Set(store.KeyCurrentUserStats, rec)
	}

	all, err := m.competitors()
	if err != nil {
		return err
	}
	all[rec.Username] = rec
	return m.store.Set(store.KeyCompetitorStats, all)
}

func (m *Manager) competitors() (map[string]models.ProfileAnalytics, error) {
	all := make(map[string]models.ProfileAnalytics)
	if _, err := m.store.Get(store.KeyCompetitorStats, &all); err != nil {
		return nil, err
	}
	return all, nil
}
