// Package planner selects where the engagement loop goes next. Target
// selection is pure so it can be tested without a browser; navigation
// is a thin layer on top.
package planner

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/rs/zerolog"

	"instagram-automation/internal/browser"
	"instagram-automation/internal/instagram"
	"instagram-automation/internal/models"
	"instagram-automation/internal/stealth"
	"instagram-automation/internal/store"
)

// TargetKind classifies a planned destination.
type TargetKind int

// Target kinds
const (
	TargetHashtag TargetKind = iota
	TargetCompetitor
	TargetUnfollow
)

func (k TargetKind) String() string {
	switch k {
	case TargetHashtag:
		return "hashtag"
	case TargetCompetitor:
		return "competitor"
	case TargetUnfollow:
		return "unfollow"
	default:
		return "unknown"
	}
}

// Target is one planned destination.
type Target struct {
	Kind  TargetKind
	Value string // tag or username, without prefix
}

// NextTarget picks the next destination from the enabled sources. The
// source order is shuffled so runs do not fall into a fixed rotation.
// Returns false when no source can produce a target.
func NextTarget(
	cfg models.BotConfig,
	hashtags, competitors []string,
	followed []models.FollowedUser,
	unfollowDays int,
	now time.Time,
	rng *rand.Rand,
) (Target, bool) {
	type source int
	const (
		srcHashtags source = iota
		srcCompetitors
		srcUnfollow
	)

	var sources []source
	if cfg.SourceHashtags && len(hashtags) > 0 {
		sources = append(sources, srcHashtags)
	}
	if cfg.SourceCompetitors && len(competitors) > 0 {
		sources = append(sources, srcCompetitors)
	}
	if cfg.UnfollowEnabled {
		if _, ok := oldestEligible(followed, unfollowDays, now); ok {
			sources = append(sources, srcUnfollow)
		}
	}

	if len(sources) == 0 {
		return Target{}, false
	}

	rng.Shuffle(len(sources), func(i, j int) {
		sources[i], sources[j] = sources[j], sources[i]
	})

	switch sources[0] {
	case srcHashtags:
		tag := hashtags[rng.Intn(len(hashtags))]
		return Target{Kind: TargetHashtag, Value: instagram.CleanHandle(tag)}, true
	case srcCompetitors:
		comp := competitors[rng.Intn(len(competitors))]
		return Target{Kind: TargetCompetitor, Value: instagram.CleanHandle(comp)}, true
	default:
		u, _ := oldestEligible(followed, unfollowDays, now)
		return Target{Kind: TargetUnfollow, Value: u.Username}, true
	}
}

// oldestEligible returns the longest-followed user past the maturity
// window. The ledger is newest-first, so scan from the tail.
func oldestEligible(followed []models.FollowedUser, unfollowDays int, now time.Time) (models.FollowedUser, bool) {
	for i := len(followed) - 1; i >= 0; i-- {
		if followed[i].UnfollowEligible(now, unfollowDays) {
			return followed[i], true
		}
	}
	return models.FollowedUser{}, false
}

// Planner executes planned navigation for the engine.
type Planner struct {
	browser *browser.Browser
	store   *store.Store
	stealth *stealth.Controller
	rng     *rand.Rand
	logger  zerolog.Logger
}

// New creates a planner
func New(b *browser.Browser, st *store.Store, stealthCtrl *stealth.Controller, logger zerolog.Logger) *Planner {
	return &Planner{
		browser: b,
		store:   st,
		stealth: stealthCtrl,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:  logger.With().Str("component", "planner").Logger(),
	}
}

// Plan picks the next target from durable state. An enabled source
// whose list is empty is surfaced in the activity log so the operator
// sees why nothing happens.
func (p *Planner) Plan(cfg models.BotConfig, delays models.DelayConfig) (Target, bool, error) {
	hashtags, competitors, err := p.store.TargetLists()
	if err != nil {
		return Target{}, false, err
	}
	followed, err := p.store.FollowedUsers()
	if err != nil {
		return Target{}, false, err
	}

	if cfg.SourceHashtags && len(hashtags) == 0 {
		p.logger.Warn().Msg("Hashtag source enabled but list is empty")
		if err := p.store.AppendLog("Source 'Hashtags' enabled but list is empty", models.LogWarning); err != nil {
			return Target{}, false, err
		}
	}
	if cfg.SourceCompetitors && len(competitors) == 0 {
		p.logger.Warn().Msg("Competitor source enabled but list is empty")
		if err := p.store.AppendLog("Source 'Competitors' enabled but list is empty", models.LogWarning); err != nil {
			return Target{}, false, err
		}
	}

	target, ok := NextTarget(cfg, hashtags, competitors, followed, delays.UnfollowDays, time.Now(), p.rng)
	return target, ok, nil
}

// Go navigates to a target and stamps the navigation time.
func (p *Planner) Go(page *rod.Page, target Target) error {
	var dest string
	switch target.Kind {
	case TargetHashtag:
		dest = instagram.HashtagURL(target.Value)
	case TargetCompetitor, TargetUnfollow:
		dest = instagram.ProfileURL(target.Value)
	default:
		return fmt.Errorf("unplannable target kind %d", target.Kind)
	}

	p.logger.Info().
		Str("kind", target.Kind.String()).
		Str("value", target.Value).
		Msg("Navigating to target")

	if err := p.browser.Navigate(page, dest); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", dest, err)
	}

	if err := p.store.Set(store.KeyLastNavTime, time.Now().UnixMilli()); err != nil {
		return err
	}

	p.stealth.Timing().NavDelay()
	return nil
}

// CycleReset clears the processed history so a continuous session can
// revisit sources with a clean slate.
func (p *Planner) CycleReset() error {
	p.logger.Info().Msg("All sources exhausted, starting a fresh cycle")

	if err := p.store.Set(store.KeyProcessedHistory, []string{}); err != nil {
		return err
	}
	return p.store.AppendLog("Cycle complete, starting over", models.LogInfo)
}
