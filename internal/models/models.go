// Package models contains shared data structures for the Instagram automation engine.
package models

import (
	"strings"
	"time"
)

// Caps for the persisted ring buffers. Newest entries are kept at the
// head; anything past the cap is evicted from the tail.
const (
	MaxLogEntries     = 50
	MaxFollowedUsers  = 5000
	MaxHistoryEntries = 5000
	MaxAnalyticsPosts = 12
	MaxHistoryDays    = 30
)

// LogSeverity classifies a log entry for the dashboard.
type LogSeverity string

const (
	LogSuccess LogSeverity = "success"
	LogInfo    LogSeverity = "info"
	LogWarning LogSeverity = "warning"
	LogWait    LogSeverity = "wait"
)

// LogEntry is one line of the bounded activity log.
type LogEntry struct {
	Time     string      `json:"time"`
	Message  string      `json:"msg"`
	Severity LogSeverity `json:"type"`
}

// BotStats holds lifetime engagement counters. Persisted on every
// increment, reset only by explicit user action.
type BotStats struct {
	Follows   int `json:"follows"`
	Likes     int `json:"likes"`
	DMs       int `json:"dms"`
	Unfollows int `json:"unfollows"`
}

// FollowedUser is the record created when a follow action succeeds. It is
// the canonical pool the unfollow planner draws candidates from.
type FollowedUser struct {
	Username  string `json:"username"`
	URL       string `json:"url"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
	DateLabel string `json:"dateStr"`
	Protected bool   `json:"protected,omitempty"`
}

// UnfollowEligible reports whether the record is a valid unfollow
// candidate: not protected and followed longer ago than the maturity
// threshold in days.
func (u FollowedUser) UnfollowEligible(now time.Time, maturityDays int) bool {
	if u.Protected {
		return false
	}
	return now.UnixMilli()-u.Timestamp > int64(maturityDays)*86400*1000
}

// BotConfig holds the pure policy switches read at loop start and on
// every change notification.
type BotConfig struct {
	LikeEnabled       bool `json:"likeEnabled" yaml:"like_enabled"`
	FollowEnabled     bool `json:"followEnabled" yaml:"follow_enabled"`
	DMEnabled         bool `json:"dmEnabled" yaml:"dm_enabled"`
	UnfollowEnabled   bool `json:"unfollowEnabled" yaml:"unfollow_enabled"`
	SourceHashtags    bool `json:"sourceHashtags" yaml:"source_hashtags"`
	SourceCompetitors bool `json:"sourceCompetitors" yaml:"source_competitors"`
	ChaosEnabled      bool `json:"chaosEnabled" yaml:"chaos_enabled"`
	ContinuousSession bool `json:"continuousSession" yaml:"continuous_session"`
}

// DelayConfig holds the timing ranges, batch limits and session caps.
// Every field has a safe hardcoded default applied by Normalize; an
// absent value never degrades to a zero-length sleep.
type DelayConfig struct {
	NavMin    int `json:"navMin" yaml:"nav_min"`
	NavMax    int `json:"navMax" yaml:"nav_max"`
	ViewMin   int `json:"viewMin" yaml:"view_min"`
	ViewMax   int `json:"viewMax" yaml:"view_max"`
	ActionMin int `json:"actionMin" yaml:"action_min"`
	ActionMax int `json:"actionMax" yaml:"action_max"`
	GridMin   int `json:"gridMin" yaml:"grid_min"`
	GridMax   int `json:"gridMax" yaml:"grid_max"`

	BatchLimit int `json:"batchLimit" yaml:"batch_limit"`
	BatchPause int `json:"batchPause" yaml:"batch_pause"` // seconds

	UnfollowDays int `json:"unfollowDays" yaml:"unfollow_days"`
	UnfollowMin  int `json:"unfollowMin" yaml:"unfollow_min"`
	UnfollowMax  int `json:"unfollowMax" yaml:"unfollow_max"`

	MaxLikes   int `json:"maxLikes" yaml:"max_likes"`
	MaxFollows int `json:"maxFollows" yaml:"max_follows"`

	ChaosFreq  int `json:"chaosFreq" yaml:"chaos_freq"`   // minutes between runs
	ChaosDur   int `json:"chaosDur" yaml:"chaos_dur"`     // minutes per run
	ChaosGrace int `json:"chaosGrace" yaml:"chaos_grace"` // seconds after engine start before an overdue run may fire
}

// DefaultDelays returns the safe defaults used when nothing is stored.
func DefaultDelays() DelayConfig {
	return DelayConfig{
		NavMin: 10, NavMax: 20,
		ViewMin: 8, ViewMax: 15,
		ActionMin: 3, ActionMax: 7,
		GridMin: 10, GridMax: 15,
		BatchLimit: 15, BatchPause: 720,
		UnfollowDays: 3, UnfollowMin: 10, UnfollowMax: 20,
		MaxLikes: 30, MaxFollows: 20,
		ChaosFreq: 30, ChaosDur: 5, ChaosGrace: 10,
	}
}

// Normalize fills zero or inverted fields with the defaults.
func (d DelayConfig) Normalize() DelayConfig {
	def := DefaultDelays()
	fix := func(v, fallback int) int {
		if v <= 0 {
			return fallback
		}
		return v
	}
	d.NavMin = fix(d.NavMin, def.NavMin)
	d.NavMax = fix(d.NavMax, def.NavMax)
	d.ViewMin = fix(d.ViewMin, def.ViewMin)
	d.ViewMax = fix(d.ViewMax, def.ViewMax)
	d.ActionMin = fix(d.ActionMin, def.ActionMin)
	d.ActionMax = fix(d.ActionMax, def.ActionMax)
	d.GridMin = fix(d.GridMin, def.GridMin)
	d.GridMax = fix(d.GridMax, def.GridMax)
	d.BatchLimit = fix(d.BatchLimit, def.BatchLimit)
	d.BatchPause = fix(d.BatchPause, def.BatchPause)
	d.UnfollowDays = fix(d.UnfollowDays, def.UnfollowDays)
	d.UnfollowMin = fix(d.UnfollowMin, def.UnfollowMin)
	d.UnfollowMax = fix(d.UnfollowMax, def.UnfollowMax)
	d.MaxLikes = fix(d.MaxLikes, def.MaxLikes)
	d.MaxFollows = fix(d.MaxFollows, def.MaxFollows)
	d.ChaosFreq = fix(d.ChaosFreq, def.ChaosFreq)
	d.ChaosDur = fix(d.ChaosDur, def.ChaosDur)
	if d.ChaosGrace < 0 {
		d.ChaosGrace = def.ChaosGrace
	}
	if d.NavMax < d.NavMin {
		d.NavMax = d.NavMin
	}
	if d.ViewMax < d.ViewMin {
		d.ViewMax = d.ViewMin
	}
	if d.ActionMax < d.ActionMin {
		d.ActionMax = d.ActionMin
	}
	if d.GridMax < d.GridMin {
		d.GridMax = d.GridMin
	}
	if d.UnfollowMax < d.UnfollowMin {
		d.UnfollowMax = d.UnfollowMin
	}
	return d
}

// PostRecord is one media item extracted from an intercepted data-feed
// payload or from an API fallback.
type PostRecord struct {
	ID        string `json:"id"`
	Shortcode string `json:"shortcode"`
	Likes     int    `json:"likes"`
	Comments  int    `json:"comments"`
	Timestamp int64  `json:"timestamp"` // unix seconds
	ImageURL  string `json:"url"`
}

// UserRecord is the "current user" block extracted from an intercepted
// payload.
type UserRecord struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
	Verified  bool   `json:"verified"`
	Posts     int    `json:"posts"`
	Followers int    `json:"followers"`
	Following int    `json:"following"`
}

// IsZero reports an empty user record.
func (u UserRecord) IsZero() bool {
	return u.Username == "" && u.ID == ""
}

// ProfileStats is the post/follower/following triple on a profile header.
type ProfileStats struct {
	Posts     int `json:"posts"`
	Followers int `json:"followers"`
	Following int `json:"following"`
}

// ProfileAnalytics is the consolidated analytics record, produced by the
// analytics handler's three-way merge or by the one-shot API refresh.
type ProfileAnalytics struct {
	ID             string       `json:"id,omitempty"`
	Username       string       `json:"username"`
	FullName       string       `json:"fullName"`
	AvatarURL      string       `json:"avatarUrl"`
	Bio            string       `json:"bio"`
	Verified       bool         `json:"isVerified"`
	Stats          ProfileStats `json:"stats"`
	LatestPosts    []PostRecord `json:"latestPosts"`
	EngagementRate float64      `json:"engagementRate"` // percent
	TrustScore     int          `json:"trustScore"`     // 0..100
	Timestamp      int64        `json:"timestamp"`      // unix milliseconds
}

// FollowerPoint is one dated entry of the follower-history series.
type FollowerPoint struct {
	Date      string `json:"date"` // YYYY-MM-DD
	Followers int    `json:"followers"`
	Following int    `json:"following"`
	Posts     int    `json:"posts"`
}

// PrependLog inserts a log entry at the head and enforces the cap.
func PrependLog(logs []LogEntry, entry LogEntry) []LogEntry {
	out := make([]LogEntry, 0, len(logs)+1)
	out = append(out, entry)
	out = append(out, logs...)
	if len(out) > MaxLogEntries {
		out = out[:MaxLogEntries]
	}
	return out
}

// PrependFollowed inserts a followed-user record at the head and enforces
// the cap.
func PrependFollowed(users []FollowedUser, u FollowedUser) []FollowedUser {
	out := make([]FollowedUser, 0, len(users)+1)
	out = append(out, u)
	out = append(out, users...)
	if len(out) > MaxFollowedUsers {
		out = out[:MaxFollowedUsers]
	}
	return out
}

// PrependHistory inserts a normalized URL at the head if not already
// present and enforces the cap. Callers normalize before insertion and
// before lookup, so membership stays case- and query-insensitive.
func PrependHistory(history []string, url string) []string {
	if url == "" {
		return history
	}
	for _, h := range history {
		if h == url {
			return history
		}
	}
	out := make([]string, 0, len(history)+1)
	out = append(out, url)
	out = append(out, history...)
	if len(out) > MaxHistoryEntries {
		out = out[:MaxHistoryEntries]
	}
	return out
}

// HistoryContains reports membership in the processed-history set.
func HistoryContains(history []string, url string) bool {
	for _, h := range history {
		if h == url {
			return true
		}
	}
	return false
}

// RemoveFollowed drops every record matching the username
// (case-insensitive).
func RemoveFollowed(users []FollowedUser, username string) []FollowedUser {
	lower := strings.ToLower(username)
	out := make([]FollowedUser, 0, len(users))
	for _, u := range users {
		if strings.ToLower(u.Username) != lower {
			out = append(out, u)
		}
	}
	return out
}

// FindFollowed returns the record for the username, if tracked.
func FindFollowed(users []FollowedUser, username string) (FollowedUser, bool) {
	lower := strings.ToLower(username)
	for _, u := range users {
		if strings.ToLower(u.Username) == lower {
			return u, true
		}
	}
	return FollowedUser{}, false
}
