package stealth

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCanPerformDefaults(t *testing.T) {
	r := NewRateLimiter(zerolog.Nop())

	ok, reason := r.CanPerform(ActionLike, DefaultLimits(ActionLike))
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestSessionLimit(t *testing.T) {
	r := NewRateLimiter(zerolog.Nop())
	limits := Limits{SessionLimit: 3, DailyLimit: 100, HourlyLimit: 100}

	for i := 0; i < 3; i++ {
		ok, _ := r.CanPerform(ActionLike, limits)
		assert.True(t, ok)
		r.RecordAction(ActionLike)
	}

	ok, reason := r.CanPerform(ActionLike, limits)
	assert.False(t, ok)
	assert.Equal(t, "session limit reached", reason)

	// Counts are per action type
	ok, _ = r.CanPerform(ActionFollow, limits)
	assert.True(t, ok)

	// Reset clears session counts
	r.ResetSession()
	ok, _ = r.CanPerform(ActionLike, limits)
	assert.True(t, ok)
	assert.Zero(t, r.SessionCount(ActionLike))
}

func TestHourlyLimit(t *testing.T) {
	r := NewRateLimiter(zerolog.Nop())
	limits := Limits{SessionLimit: 0, DailyLimit: 100, HourlyLimit: 2}

	r.RecordAction(ActionFollow)
	r.RecordAction(ActionFollow)

	ok, reason := r.CanPerform(ActionFollow, limits)
	assert.False(t, ok)
	assert.Equal(t, "hourly limit reached", reason)
}

func TestCooldown(t *testing.T) {
	r := NewRateLimiter(zerolog.Nop())

	r.SetCooldown(ActionLike, time.Minute)
	ok, reason := r.CanPerform(ActionLike, DefaultLimits(ActionLike))
	assert.False(t, ok)
	assert.Equal(t, "in cooldown", reason)

	// An expired cooldown no longer blocks
	r.SetCooldown(ActionLike, -time.Second)
	ok, _ = r.CanPerform(ActionLike, DefaultLimits(ActionLike))
	assert.True(t, ok)
}

func TestSessionLimitOverride(t *testing.T) {
	r := NewRateLimiter(zerolog.Nop())

	r.SetSessionLimit(ActionLike, 5)
	assert.Equal(t, 5, r.LimitsFor(ActionLike).SessionLimit)

	// Daily and hourly caps stay at their defaults
	assert.Equal(t, DefaultLimits(ActionLike).DailyLimit, r.LimitsFor(ActionLike).DailyLimit)

	// Zero restores the default
	r.SetSessionLimit(ActionLike, 0)
	assert.Equal(t, DefaultLimits(ActionLike).SessionLimit, r.LimitsFor(ActionLike).SessionLimit)
}

func TestGetRemainingQuota(t *testing.T) {
	r := NewRateLimiter(zerolog.Nop())
	limits := Limits{SessionLimit: 10, DailyLimit: 5, HourlyLimit: 3}

	r.RecordAction(ActionUnfollow)

	daily, hourly := r.GetRemainingQuota(ActionUnfollow, limits)
	assert.Equal(t, 4, daily)
	assert.Equal(t, 2, hourly)
}
