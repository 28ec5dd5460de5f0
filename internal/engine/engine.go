// Package engine runs the autonomous engagement loop: one goroutine
// that reads the page, classifies the scene, dispatches the matching
// handler, and paces itself between iterations. All policy and pacing
// state lives in the store, so a mid-run edit from the dashboard takes
// effect on the next iteration.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"instagram-automation/internal/browser"
	"instagram-automation/internal/instagram"
	"instagram-automation/internal/instagram/analytics"
	"instagram-automation/internal/instagram/followers"
	"instagram-automation/internal/instagram/hashtag"
	"instagram-automation/internal/instagram/post"
	"instagram-automation/internal/instagram/profile"
	"instagram-automation/internal/intercept"
	"instagram-automation/internal/models"
	"instagram-automation/internal/planner"
	"instagram-automation/internal/stealth"
	"instagram-automation/internal/store"
)

// Login form probes. Seeing these on an instagram.com page means the
// session died and every further action would hit the login wall.
const (
	selectorLoginUser = "input[name='username']"
	selectorLoginPass = "input[name='password']"
)

// errBackoff is the pause after a handler error before the next
// iteration touches the page again.
const errBackoff = 8 * time.Second

// idlePoll is how often a deactivated engine rechecks the flag.
const idlePoll = 2 * time.Second

// cooldownPoll is the idle sleep while the navigation cooldown holds.
const cooldownPoll = 3 * time.Second

// ownProfileKey marks the own-profile scrape in the session-engaged
// set so a session analyzes the operator's profile at most once.
const ownProfileKey = "own-profile-stats"

// Engine is the engagement loop driver.
type Engine struct {
	browser     *browser.Browser
	pageHelper  *browser.PageHelper
	store       *store.Store
	stealth     *stealth.Controller
	interceptor *intercept.Interceptor
	logger      zerolog.Logger

	planner   *planner.Planner
	profile   *profile.Manager
	hashtag   *hashtag.Manager
	followers *followers.Manager
	post      *post.Manager
	analytics *analytics.Manager

	// Mirrors of watched store keys, refreshed by change notifications
	// so the hot loop never blocks on the database.
	mu        sync.RWMutex
	isRunning bool
	botConfig models.BotConfig
	delays    models.DelayConfig

	// Session-scoped state, touched only by the loop goroutine. The
	// engaged set holds normalized profile URLs already acted on this
	// session so one run never hits the same profile twice.
	startedAt  time.Time
	runID      string
	target     *planner.Target
	batchCount int
	engaged    map[string]struct{}
}

// New wires up an engine with all scene handlers.
func New(
	b *browser.Browser,
	st *store.Store,
	stealthCtrl *stealth.Controller,
	interceptor *intercept.Interceptor,
	logger zerolog.Logger,
) *Engine {
	return &Engine{
		browser:     b,
		pageHelper:  browser.NewPageHelper(logger),
		store:       st,
		stealth:     stealthCtrl,
		interceptor: interceptor,
		logger:      logger.With().Str("component", "engine").Logger(),
		planner:     planner.New(b, st, stealthCtrl, logger),
		profile:     profile.NewManager(b, st, stealthCtrl, logger),
		hashtag:     hashtag.NewManager(b, st, stealthCtrl, logger),
		followers:   followers.NewManager(b, st, stealthCtrl, logger),
		post:        post.NewManager(b, st, stealthCtrl, logger),
		analytics:   analytics.NewManager(b, st, stealthCtrl, interceptor, logger),
		delays:      models.DefaultDelays(),
		engaged:     make(map[string]struct{}),
	}
}

// Analytics exposes the audit manager for one-shot commands.
func (e *Engine) Analytics() *analytics.Manager {
	return e.analytics
}

func (e *Engine) running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isRunning
}

func (e *Engine) config() models.BotConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.botConfig
}

func (e *Engine) delayConfig() models.DelayConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.delays
}

// Run drives the engagement loop until the context ends. The loop
// itself outlives navigation; durable state is re-read every iteration.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.loadMirrors(); err != nil {
		return fmt.Errorf("failed to load initial state: %w", err)
	}

	unsubscribe := e.watchMirrors()
	defer unsubscribe()

	page, err := e.browser.GetPage()
	if err != nil {
		return fmt.Errorf("failed to acquire page: %w", err)
	}
	detach := e.interceptor.Attach(page)
	defer detach()

	wasRunning := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !e.running() {
			wasRunning = false
			time.Sleep(idlePoll)
			continue
		}

		if !wasRunning {
			e.activate()
			wasRunning = true
		}

		if err := e.iterate(page); err != nil {
			e.logger.Error().Err(err).Msg("Loop iteration failed")
			if logErr := e.store.AppendLog(fmt.Sprintf("Recovering from error: %v", err), models.LogWarning); logErr != nil {
				e.logger.Warn().Err(logErr).Msg("Failed to log iteration error")
			}
			time.Sleep(errBackoff)
		}
	}
}

// activate resets per-session state when the flag flips on.
func (e *Engine) activate() {
	e.runID = uuid.NewString()
	e.resetSession()

	if err := e.store.AppendLog("Bot activated", models.LogSuccess); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to log activation")
	}

	e.logger.Info().Str("run", e.runID).Msg("Engagement session started")
}

// resetSession zeroes everything session-scoped: counters, the engaged
// set, the rate-limit session budget and the start stamp. Called on
// activation and at each continuous-cycle boundary.
func (e *Engine) resetSession() {
	e.startedAt = time.Now()
	e.batchCount = 0
	e.target = nil
	e.engaged = make(map[string]struct{})
	e.stealth.RateLimit().ResetSession()

	delays := e.delayConfig()
	e.stealth.RateLimit().SetSessionLimit(stealth.ActionLike, delays.MaxLikes)
	e.stealth.RateLimit().SetSessionLimit(stealth.ActionFollow, delays.MaxFollows)

	if err := e.store.Set(store.KeyBotStartTime, e.startedAt.UnixMilli()); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to stamp session start")
	}
	if err := e.store.Set(store.KeyLastNavTime, int64(0)); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to clear navigation stamp")
	}
}

// iterate is one pass of the loop: rest, safety checks, scene dispatch,
// grid pacing.
func (e *Engine) iterate(page *rod.Page) error {
	delays := e.delayConfig()
	cfg := e.config()

	if delays.BatchLimit > 0 && e.batchCount >= delays.BatchLimit {
		return e.batchRest(delays)
	}

	if !e.stealth.IsWithinSchedule() {
		e.logger.Info().Msg("Outside activity window, idling")
		time.Sleep(time.Minute)
		return nil
	}

	location := e.pageHelper.GetCurrentURL(page)
	if location == "" || !instagram.OnHost(location) {
		e.logger.Info().Str("location", location).Msg("Off-site, returning home")
		return e.browser.Navigate(page, instagram.HomeURL())
	}

	snap := e.snapshot(page)

	if snap.LoginForm {
		return e.fatalLogout()
	}

	if cfg.ChaosEnabled && e.chaosDue(delays, time.Now()) {
		if err := e.store.Set(store.KeyLastChaosTime, time.Now().UnixMilli()); err != nil {
			e.logger.Warn().Err(err).Msg("Failed to stamp chaos time")
		}
		e.runChaos(page, delays)
		return nil
	}

	scene := Classify(location, snap)
	e.logger.Debug().Str("scene", scene.String()).Str("location", location).Msg("Dispatching scene")

	if err := e.dispatch(page, scene, location, cfg); err != nil {
		return err
	}

	e.stealth.Timing().GridDelay()
	return nil
}

// dispatch routes one classified scene to its handler.
func (e *Engine) dispatch(page *rod.Page, scene Scene, location string, cfg models.BotConfig) error {
	switch scene {
	case SceneFollowersDialog:
		host := ""
		if e.target != nil && e.target.Kind == planner.TargetCompetitor {
			host = e.target.Value
		} else {
			host = ProfileUsername(location)
		}
		_, err := e.followers.PickFollower(page, host)
		return err

	case ScenePost:
		author, err := e.post.Engage(page, cfg)
		if err != nil {
			return err
		}
		if author != "" {
			e.markEngaged(author)
			e.batchCount++
		}
		return nil

	case SceneExplore:
		_, err := e.hashtag.PickPost(page)
		return err

	case SceneProfile:
		return e.dispatchProfile(page, location, cfg)

	default:
		if !e.navDue(time.Now()) {
			e.logger.Debug().Msg("Navigation cooldown active, idling")
			time.Sleep(cooldownPoll)
			return nil
		}
		return e.plan(page, cfg)
	}
}

// navDue reports whether the navigation cooldown has elapsed. The
// cooldown is the lower navigation bound, so idle iterations never
// replan faster than the configured pacing.
func (e *Engine) navDue(now time.Time) bool {
	var last int64
	if _, err := e.store.Get(store.KeyLastNavTime, &last); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to read navigation stamp")
		return true
	}
	cooldown := time.Duration(e.delayConfig().NavMin) * time.Second
	return now.Sub(time.UnixMilli(last)) > cooldown
}

func (e *Engine) markEngaged(username string) {
	e.engaged[instagram.Normalize(instagram.ProfileURL(username))] = struct{}{}
}

func (e *Engine) wasEngaged(username string) bool {
	_, ok := e.engaged[instagram.Normalize(instagram.ProfileURL(username))]
	return ok
}

// dispatchProfile decides what a profile page means: the operator's
// own profile to scrape, a matured unfollow target, a competitor whose
// followers we mine, or a fresh prospect.
func (e *Engine) dispatchProfile(page *rod.Page, location string, cfg models.BotConfig) error {
	username := ProfileUsername(location)
	if username == "" {
		return e.plan(page, cfg)
	}

	// Landing on the own profile refreshes the stored analytics, once
	// per session.
	if _, done := e.engaged[ownProfileKey]; !done {
		if e.analytics.AuditOwn(page) {
			e.engaged[ownProfileKey] = struct{}{}
		}
	}

	if e.target != nil && e.target.Kind == planner.TargetUnfollow && strings.EqualFold(e.target.Value, username) {
		e.target = nil
		if err := e.profile.Unfollow(page, username); err != nil {
			return err
		}
		e.batchCount++
		return nil
	}

	if e.isCompetitor(username) {
		return e.profile.OpenFollowers(page, username)
	}

	if e.wasEngaged(username) {
		e.logger.Debug().Str("username", username).Msg("Already engaged this session, backing out")
		if err := e.browser.Back(page); err != nil {
			return err
		}
		e.stealth.Timing().NavDelay()
		return nil
	}

	result, err := e.profile.Prospect(page, username, cfg.FollowEnabled)
	if err != nil {
		return err
	}
	if result == profile.ProspectFollowed {
		e.markEngaged(username)
		e.batchCount++
	}
	return nil
}

func (e *Engine) isCompetitor(username string) bool {
	_, competitors, err := e.store.TargetLists()
	if err != nil {
		e.logger.Warn().Err(err).Msg("Failed to read competitor list")
		return false
	}
	for _, c := range competitors {
		if strings.EqualFold(instagram.CleanHandle(c), username) {
			return true
		}
	}
	return false
}

// plan asks the planner for the next destination. An empty plan either
// starts a fresh cycle (continuous mode) or ends the session.
func (e *Engine) plan(page *rod.Page, cfg models.BotConfig) error {
	target, ok, err := e.planner.Plan(cfg, e.delayConfig())
	if err != nil {
		return err
	}

	if !ok {
		if cfg.ContinuousSession {
			return e.cycleRestart()
		}
		return e.finish(page)
	}

	e.target = &target
	return e.planner.Go(page, target)
}

// cycleRestart begins a fresh cycle without dropping the run flag:
// processed history, session counters, the engaged set and the session
// start stamp all reset, then the loop replans on its next iteration.
// This keeps continuous mode an unbounded sequence of bounded cycles.
func (e *Engine) cycleRestart() error {
	e.logger.Info().Int("batch", e.batchCount).Msg("Sources exhausted, starting a fresh cycle")

	if err := e.planner.CycleReset(); err != nil {
		return err
	}
	e.resetSession()

	e.stealth.Timing().ShortDelay()
	return nil
}

// batchRest pauses the session after a full batch of actions. The rest
// is interruptible so deactivation still lands promptly.
func (e *Engine) batchRest(delays models.DelayConfig) error {
	e.logger.Info().
		Int("batch", e.batchCount).
		Int("pauseSeconds", delays.BatchPause).
		Msg("Batch complete, resting")

	if err := e.store.AppendLog(fmt.Sprintf("Batch of %d done, resting", e.batchCount), models.LogWait); err != nil {
		return err
	}

	deadline := time.Now().Add(time.Duration(delays.BatchPause) * time.Second)
	for time.Now().Before(deadline) {
		if !e.running() {
			return nil
		}
		time.Sleep(time.Second)
	}

	e.batchCount = 0
	return nil
}

// fatalLogout stops the session when the login wall appears. The start
// stamp is removed so the dashboard shows a dead session, not a paused
// one.
func (e *Engine) fatalLogout() error {
	e.logger.Error().Msg("Login form detected, session lost")

	if err := e.store.AppendLog("Session expired, bot stopped. Log in and restart.", models.LogWarning); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to log session loss")
	}
	if err := e.store.SetRunning(false); err != nil {
		return err
	}
	return e.store.Remove(store.KeyBotStartTime)
}

// finish ends a session that ran out of work and parks the browser on
// the home feed.
func (e *Engine) finish(page *rod.Page) error {
	e.logger.Info().Msg("No targets remain, stopping session")

	if err := e.store.AppendLog("All sources processed, bot stopped", models.LogInfo); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to log finish")
	}
	if err := e.store.SetRunning(false); err != nil {
		return err
	}
	if err := e.store.Remove(store.KeyBotStartTime); err != nil {
		return err
	}

	if page != nil {
		if err := e.browser.Navigate(page, instagram.HomeURL()); err != nil {
			e.logger.Warn().Err(err).Msg("Final home navigation failed")
		}
	}
	return nil
}

// snapshot harvests the page state classification needs.
func (e *Engine) snapshot(page *rod.Page) Snapshot {
	var snap Snapshot

	if dialog, ok := e.pageHelper.Dialog(page); ok {
		snap.DialogOpen = true
		if h, err := dialog.Timeout(time.Second).Element("h1, h2, div[role='heading']"); err == nil {
			snap.DialogHeader = e.pageHelper.GetElementText(h)
		}
	}

	snap.LoginForm = e.pageHelper.ElementExists(page, selectorLoginUser) &&
		e.pageHelper.ElementExists(page, selectorLoginPass)

	return snap
}

// loadMirrors seeds the in-memory mirrors from the store.
func (e *Engine) loadMirrors() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if e.isRunning, err = e.store.IsRunning(); err != nil {
		return err
	}
	if e.botConfig, err = e.store.BotConfig(); err != nil {
		return err
	}
	if e.delays, err = e.store.Delays(); err != nil {
		return err
	}
	return nil
}

// watchMirrors subscribes to the watched keys and refreshes mirrors on
// change. Returns a combined unsubscribe.
func (e *Engine) watchMirrors() func() {
	unsubRunning := e.store.Watch(store.KeyIsRunning, func(raw json.RawMessage) {
		running, err := e.store.IsRunning()
		if err != nil {
			e.logger.Warn().Err(err).Msg("Failed to re-read running flag")
			return
		}
		e.mu.Lock()
		e.isRunning = running
		e.mu.Unlock()
		e.logger.Info().Bool("running", running).Msg("Activation flag changed")
	})

	unsubConfig := e.store.Watch(store.KeyBotConfig, func(raw json.RawMessage) {
		cfg, err := e.store.BotConfig()
		if err != nil {
			e.logger.Warn().Err(err).Msg("Failed to re-read bot config")
			return
		}
		e.mu.Lock()
		e.botConfig = cfg
		e.mu.Unlock()
	})

	unsubDelays := e.store.Watch(store.KeyDelays, func(raw json.RawMessage) {
		delays, err := e.store.Delays()
		if err != nil {
			e.logger.Warn().Err(err).Msg("Failed to re-read delays")
			return
		}
		e.mu.Lock()
		e.delays = delays
		e.mu.Unlock()
		e.stealth.RateLimit().SetSessionLimit(stealth.ActionLike, delays.MaxLikes)
		e.stealth.RateLimit().SetSessionLimit(stealth.ActionFollow, delays.MaxFollows)
	})

	return func() {
		unsubRunning()
		unsubConfig()
		unsubDelays()
	}
}
