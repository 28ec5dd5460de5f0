// Package config - validation logic for configuration values
package config

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s - %s", e.Field, e.Message)
}

// Validate checks all configuration values for validity
func (c *Config) Validate() error {
	var errs []error

	if c.Delays.BatchLimit <= 0 {
		errs = append(errs, ValidationError{
			Field:   "delays.batch_limit",
			Message: "must be greater than 0",
		})
	}

	if c.Delays.BatchPause <= 0 {
		errs = append(errs, ValidationError{
			Field:   "delays.batch_pause",
			Message: "must be greater than 0",
		})
	}

	if c.Delays.NavMax < c.Delays.NavMin {
		errs = append(errs, ValidationError{
			Field:   "delays.nav_max",
			Message: "must be greater than or equal to nav_min",
		})
	}

	if c.Delays.UnfollowDays <= 0 {
		errs = append(errs, ValidationError{
			Field:   "delays.unfollow_days",
			Message: "must be greater than 0",
		})
	}

	if c.Stealth.StartHour < 0 || c.Stealth.StartHour > 23 {
		errs = append(errs, ValidationError{
			Field:   "stealth.start_hour",
			Message: "must be between 0 and 23",
		})
	}

	if c.Stealth.EndHour < 0 || c.Stealth.EndHour > 23 {
		errs = append(errs, ValidationError{
			Field:   "stealth.end_hour",
			Message: "must be between 0 and 23",
		})
	}

	if c.Stealth.ScheduleOnly && c.Stealth.StartHour >= c.Stealth.EndHour {
		errs = append(errs, ValidationError{
			Field:   "stealth.start_hour/end_hour",
			Message: "start_hour must be less than end_hour",
		})
	}

	if c.Stealth.HoverProbability < 0 || c.Stealth.HoverProbability > 1 {
		errs = append(errs, ValidationError{
			Field:   "stealth.hover_probability",
			Message: "must be between 0 and 1",
		})
	}

	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		errs = append(errs, ValidationError{
			Field:   "browser.viewport",
			Message: "viewport dimensions must be positive",
		})
	}

	if c.Storage.DatabasePath == "" {
		errs = append(errs, ValidationError{
			Field:   "storage.database_path",
			Message: "must not be empty",
		})
	}

	if c.Server.Enabled && c.Server.Addr == "" {
		errs = append(errs, ValidationError{
			Field:   "server.addr",
			Message: "must not be empty when server is enabled",
		})
	}

	if c.Refresh.Enabled && c.Refresh.IntervalHours <= 0 {
		errs = append(errs, ValidationError{
			Field:   "refresh.interval_hours",
			Message: "must be greater than 0 when refresh is enabled",
		})
	}

	for i, tag := range c.Targets.Hashtags {
		if strings.TrimSpace(strings.TrimPrefix(tag, "#")) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("targets.hashtags[%d]", i),
				Message: "must not be blank",
			})
		}
	}

	return errors.Join(errs...)
}

// ValidateForRun checks that the configuration can drive an automation
// session: at least one engagement action and one target source.
func (c *Config) ValidateForRun() error {
	if !c.Bot.LikeEnabled && !c.Bot.FollowEnabled && !c.Bot.UnfollowEnabled {
		return ValidationError{
			Field:   "bot",
			Message: "no engagement actions enabled (like/follow/unfollow all off)",
		}
	}
	if !c.Bot.SourceHashtags && !c.Bot.SourceCompetitors && !c.Bot.UnfollowEnabled {
		return ValidationError{
			Field:   "bot",
			Message: "no target sources enabled (hashtags/competitors/unfollow all off)",
		}
	}
	return nil
}
