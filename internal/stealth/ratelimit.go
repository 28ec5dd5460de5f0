// Package stealth - rate limiting and throttling
// This is additional stealth technique #5
package stealth

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ActionType identifies a rate-limited engagement action
type ActionType string

// Engagement action types
const (
	ActionLike     ActionType = "like"
	ActionFollow   ActionType = "follow"
	ActionUnfollow ActionType = "unfollow"
	ActionNavigate ActionType = "navigate"
)

// RateLimiter handles rate limiting for different action types.
// Session counts reset when the operator restarts the bot; hourly and
// daily windows persist for the lifetime of the process.
type RateLimiter struct {
	logger        zerolog.Logger
	mu            sync.Mutex
	actionCounts  map[ActionType][]time.Time
	sessionCounts map[ActionType]int
	sessionLimits map[ActionType]int
	cooldowns     map[ActionType]time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		logger:        logger.With().Str("module", "ratelimit").Logger(),
		actionCounts:  make(map[ActionType][]time.Time),
		sessionCounts: make(map[ActionType]int),
		sessionLimits: make(map[ActionType]int),
		cooldowns:     make(map[ActionType]time.Time),
	}
}

// SetSessionLimit overrides the per-session cap for an action type.
// Zero or negative restores the default.
func (r *RateLimiter) SetSessionLimit(actionType ActionType, limit int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		delete(r.sessionLimits, actionType)
		return
	}
	r.sessionLimits[actionType] = limit
}

// LimitsFor returns the effective limits for an action type: defaults
// with any configured session cap applied.
func (r *RateLimiter) LimitsFor(actionType ActionType) Limits {
	limits := DefaultLimits(actionType)

	r.mu.Lock()
	if override, ok := r.sessionLimits[actionType]; ok {
		limits.SessionLimit = override
	}
	r.mu.Unlock()

	return limits
}

// Limits defines rate limits for different actions
type Limits struct {
	SessionLimit int
	DailyLimit   int
	HourlyLimit  int
}

// DefaultLimits returns default rate limits for each action type
func DefaultLimits(actionType ActionType) Limits {
	switch actionType {
	case ActionLike:
		return Limits{
			SessionLimit: 30,
			DailyLimit:   120,
			HourlyLimit:  25,
		}
	case ActionFollow:
		return Limits{
			SessionLimit: 20,
			DailyLimit:   80,
			HourlyLimit:  15,
		}
	case ActionUnfollow:
		return Limits{
			SessionLimit: 20,
			DailyLimit:   80,
			HourlyLimit:  15,
		}
	case ActionNavigate:
		return Limits{
			SessionLimit: 500,
			DailyLimit:   1000,
			HourlyLimit:  120,
		}
	default:
		return Limits{
			SessionLimit: 20,
			DailyLimit:   100,
			HourlyLimit:  20,
		}
	}
}

// CanPerform checks if an action can be performed based on rate limits
func (r *RateLimiter) CanPerform(actionType ActionType, limits Limits) (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check cooldown
	if cooldownEnd, ok := r.cooldowns[actionType]; ok {
		if time.Now().Before(cooldownEnd) {
			remaining := time.Until(cooldownEnd)
			r.logger.Debug().
				Str("action", string(actionType)).
				Dur("remaining", remaining).
				Msg("Action in cooldown")
			return false, "in cooldown"
		}
	}

	if limits.SessionLimit > 0 && r.sessionCounts[actionType] >= limits.SessionLimit {
		r.logger.Debug().
			Str("action", string(actionType)).
			Int("sessionCount", r.sessionCounts[actionType]).
			Int("limit", limits.SessionLimit).
			Msg("Session limit reached")
		return false, "session limit reached"
	}

	// Clean old entries
	r.cleanOldEntries(actionType)

	counts := r.actionCounts[actionType]

	// Check hourly limit
	hourlyCount := r.countInWindow(counts, time.Hour)
	if hourlyCount >= limits.HourlyLimit {
		r.logger.Debug().
			Str("action", string(actionType)).
			Int("hourlyCount", hourlyCount).
			Int("limit", limits.HourlyLimit).
			Msg("Hourly limit reached")
		return false, "hourly limit reached"
	}

	// Check daily limit
	dailyCount := r.countInWindow(counts, 24*time.Hour)
	if dailyCount >= limits.DailyLimit {
		r.logger.Debug().
			Str("action", string(actionType)).
			Int("dailyCount", dailyCount).
			Int("limit", limits.DailyLimit).
			Msg("Daily limit reached")
		return false, "daily limit reached"
	}

	return true, ""
}

// RecordAction records that an action was performed
func (r *RateLimiter) RecordAction(actionType ActionType) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.actionCounts[actionType] == nil {
		r.actionCounts[actionType] = make([]time.Time, 0)
	}

	r.actionCounts[actionType] = append(r.actionCounts[actionType], time.Now())
	r.sessionCounts[actionType]++

	r.logger.Debug().
		Str("action", string(actionType)).
		Int("sessionCount", r.sessionCounts[actionType]).
		Msg("Recorded action")
}

// SessionCount returns the number of actions performed this session
func (r *RateLimiter) SessionCount(actionType ActionType) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.sessionCounts[actionType]
}

// ResetSession clears per-session counters. Called on bot activation so
// each run starts with a fresh engagement budget.
func (r *RateLimiter) ResetSession() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessionCounts = make(map[ActionType]int)

	r.logger.Debug().Msg("Session counters reset")
}

// SetCooldown sets a cooldown period for an action type
func (r *RateLimiter) SetCooldown(actionType ActionType, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cooldowns[actionType] = time.Now().Add(duration)

	r.logger.Debug().
		Str("action", string(actionType)).
		Dur("duration", duration).
		Msg("Set cooldown")
}

// GetRemainingQuota returns remaining actions for daily and hourly limits
func (r *RateLimiter) GetRemainingQuota(actionType ActionType, limits Limits) (daily, hourly int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cleanOldEntries(actionType)

	counts := r.actionCounts[actionType]

	hourlyCount := r.countInWindow(counts, time.Hour)
	dailyCount := r.countInWindow(counts, 24*time.Hour)

	return limits.DailyLimit - dailyCount, limits.HourlyLimit - hourlyCount
}

// GetLastActionTime returns the time of the last action of a given type
func (r *RateLimiter) GetLastActionTime(actionType ActionType) *time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := r.actionCounts[actionType]
	if len(counts) == 0 {
		return nil
	}

	lastTime := counts[len(counts)-1]
	return &lastTime
}

// cleanOldEntries removes entries older than 24 hours
func (r *RateLimiter) cleanOldEntries(actionType ActionType) {
	cutoff := time.Now().Add(-24 * time.Hour)

	counts := r.actionCounts[actionType]
	filtered := make([]time.Time, 0, len(counts))

	for _, t := range counts {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}

	r.actionCounts[actionType] = filtered
}

// countInWindow counts actions within a time window
func (r *RateLimiter) countInWindow(times []time.Time, window time.Duration) int {
	cutoff := time.Now().Add(-window)
	count := 0

	for _, t := range times {
		if t.After(cutoff) {
			count++
		}
	}

	return count
}

// ResetLimits clears all rate limit tracking (use with caution)
func (r *RateLimiter) ResetLimits() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.actionCounts = make(map[ActionType][]time.Time)
	r.sessionCounts = make(map[ActionType]int)
	r.cooldowns = make(map[ActionType]time.Time)

	r.logger.Info().Msg("Rate limits reset")
}
