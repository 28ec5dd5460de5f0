// Package coordinator owns the pieces around the engagement loop: the
// first-run state seeding, the periodic HTTP profile refresh, and the
// local dashboard API.
package coordinator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"instagram-automation/internal/config"
	"instagram-automation/internal/instagram"
	"instagram-automation/internal/instagram/api"
	"instagram-automation/internal/models"
	"instagram-automation/internal/store"
)

// Coordinator runs the supporting services
type Coordinator struct {
	store  *store.Store
	client *api.Client
	cfg    *config.Config
	logger zerolog.Logger
}

// New creates a coordinator
func New(st *store.Store, client *api.Client, cfg *config.Config, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		store:  st,
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "coordinator").Logger(),
	}
}

// EnsureDefaults seeds every store key a fresh installation needs.
// Existing values are never touched; this runs on every startup.
func (c *Coordinator) EnsureDefaults() error {
	seeds := []struct {
		key   string
		value interface{}
	}{
		{store.KeyIsRunning, false},
		{store.KeyStats, models.BotStats{}},
		{store.KeyBotConfig, c.cfg.Bot},
		{store.KeyDelays, c.cfg.Delays.Normalize()},
		{store.KeyTargetHashtags, cleanList(c.cfg.Targets.Hashtags)},
		{store.KeyTargetCompetitors, cleanList(c.cfg.Targets.Competitors)},
		{store.KeyFollowedUsers, []models.FollowedUser{}},
		{store.KeyProcessedHistory, []string{}},
		{store.KeyLogs, []models.LogEntry{{
			Time:     time.Now().Format("15:04:05"),
			Message:  "Engine installed and ready",
			Severity: models.LogInfo,
		}}},
	}

	for _, seed := range seeds {
		var probe interface{}
		found, err := c.store.Get(seed.key, &probe)
		if err != nil {
			return err
		}
		if found {
			continue
		}
		if err := c.store.Set(seed.key, seed.value); err != nil {
			return err
		}
		c.logger.Debug().Str("key", seed.key).Msg("Seeded default")
	}

	return nil
}

// RunRefresh periodically refreshes the operator's own profile and all
// competitors over HTTP, without touching the browser.
func (c *Coordinator) RunRefresh(ctx context.Context) error {
	interval := time.Duration(c.cfg.Refresh.IntervalHours) * time.Hour

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info().Dur("interval", interval).Msg("Refresh loop started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.refreshAll()
		}
	}
}

func (c *Coordinator) refreshAll() {
	var self string
	if _, err := c.store.Get(store.KeyLastKnownUsername, &self); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to read own username")
	}

	if self == "" {
		detected, err := c.client.DetectUsername()
		if err != nil {
			c.logger.Warn().Err(err).Msg("Own username not known yet, skipping self refresh")
		} else {
			self = detected
		}
	}

	if self != "" {
		if _, err := c.client.Refresh(self, true); err != nil {
			c.logger.Warn().Err(err).Str("username", self).Msg("Self refresh failed")
		}
	}

	_, competitors, err := c.store.TargetLists()
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to read competitor list")
		return
	}

	for _, comp := range competitors {
		handle := instagram.CleanHandle(comp)
		if handle == "" {
			continue
		}
		if _, err := c.client.Refresh(handle, false); err != nil {
			c.logger.Warn().Err(err).Str("username", handle).Msg("Competitor refresh failed")
		}
		// Space the requests out; this runs in the background and has
		// no reason to burst.
		time.Sleep(10 * time.Second)
	}
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if h := instagram.CleanHandle(it); h != "" {
			out = append(out, h)
		}
	}
	return out
}
