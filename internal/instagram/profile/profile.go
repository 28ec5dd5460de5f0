// Package profile handles actions taken on Instagram profile pages:
// following fresh prospects, unfollowing matured targets, and opening
// a competitor's followers dialog.
package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/rs/zerolog"

	"instagram-automation/internal/browser"
	"instagram-automation/internal/instagram"
	"instagram-automation/internal/instagram/domx"
	"instagram-automation/internal/models"
	"instagram-automation/internal/stealth"
	"instagram-automation/internal/store"
)

// Profile page selectors
const (
	SelectorActionButtons = "button, div[role='button'], span[role='button']"
	SelectorFollowersLink = "a[href*='/followers']"
	SelectorPostThumbs    = "a[href*='/p/'], a[href*='/reel']"
	SelectorHeader        = "header section"
)

// Dialog confirm retry cadence. Instagram renders the unfollow dialog
// lazily, so the confirm button is polled rather than awaited once.
const (
	confirmRetries  = 5
	confirmInterval = 800 * time.Millisecond
)

// settleDelay lets the profile header and button row hydrate before any
// button harvest; acting on a half-rendered page misreads follow state.
const settleDelay = 3500 * time.Millisecond

// Manager performs profile-page actions
type Manager struct {
	browser    *browser.Browser
	pageHelper *browser.PageHelper
	stealth    *stealth.Controller
	store      *store.Store
	logger     zerolog.Logger
}

// NewManager creates a profile manager
func NewManager(
	b *browser.Browser,
	st *store.Store,
	stealthCtrl *stealth.Controller,
	logger zerolog.Logger,
) *Manager {
	return &Manager{
		browser:    b,
		pageHelper: browser.NewPageHelper(logger),
		stealth:    stealthCtrl,
		store:      st,
		logger:     logger.With().Str("component", "profile").Logger(),
	}
}

// Unfollow removes a previously followed user. The flow is click the
// following button, confirm in the dialog, verify the button flipped
// back to follow, then update the ledger.
func (m *Manager) Unfollow(page *rod.Page, username string) error {
	m.logger.Info().Str("username", username).Msg("Unfollowing user")

	time.Sleep(settleDelay)

	cands, elements, err := m.pageHelper.HarvestCandidates(page, SelectorActionButtons)
	if err != nil {
		return fmt.Errorf("failed to scan profile buttons: %w", err)
	}

	idx := domx.FindFirst(cands, domx.IsFollowingButton)
	if idx < 0 {
		// No following button. Only a visible plain follow button proves
		// the user is already unfollowed; anything else could be a half
		// rendered page, so the record stays for the next cycle.
		if !followPresent(cands) {
			m.logger.Warn().Str("username", username).Msg("No unfollow control found, keeping record")
			return m.store.AppendLog(fmt.Sprintf("Could not find unfollow control for @%s", username), models.LogWarning)
		}
		m.logger.Warn().Str("username", username).Msg("Already unfollowed, dropping from ledger")
		if err := m.store.RemoveFollowed(username); err != nil {
			return err
		}
		return m.store.AppendLog(fmt.Sprintf("@%s was not followed, removed from list", username), models.LogWarning)
	}

	if err := m.stealth.Mouse().ClickElement(page, elements[idx]); err != nil {
		return fmt.Errorf("failed to click following button: %w", err)
	}

	if err := m.confirmUnfollow(page); err != nil {
		m.dismissDialog(page)
		return err
	}

	m.stealth.Timing().ShortDelay()

	// The record only leaves the ledger on a verified unfollow. A confirm
	// click that did not land keeps the user queued for the next cycle.
	if !m.verifyUnfollowed(page) {
		m.logger.Warn().Str("username", username).Msg("Follow button did not reappear after confirm")
		return m.store.AppendLog(fmt.Sprintf("Failed to verify unfollow for @%s, retrying next cycle", username), models.LogWarning)
	}

	m.stealth.RateLimit().RecordAction(stealth.ActionUnfollow)
	m.stealth.Timing().UnfollowDelay()

	if err := m.store.RemoveFollowed(username); err != nil {
		return err
	}
	if err := m.store.BumpStat(func(s *models.BotStats) { s.Unfollows++ }); err != nil {
		return err
	}

	m.logger.Info().Str("username", username).Msg("Unfollowed")
	return m.store.AppendLog(fmt.Sprintf("Unfollowed @%s", username), models.LogSuccess)
}

// followPresent reports whether the button row shows a plain "follow"
// state, the signal that the profile is not currently followed.
func followPresent(cands []domx.Candidate) bool {
	return domx.FindFirst(cands, domx.IsFollowButton) >= 0
}

// confirmUnfollow clicks the confirmation entry in the unfollow dialog.
func (m *Manager) confirmUnfollow(page *rod.Page) error {
	for attempt := 0; attempt < confirmRetries; attempt++ {
		time.Sleep(confirmInterval)

		dialog, ok := m.pageHelper.Dialog(page)
		if !ok {
			continue
		}

		cands, elements, err := m.pageHelper.HarvestCandidates(dialog, SelectorActionButtons)
		if err != nil {
			continue
		}

		if idx := domx.FindFirst(cands, domx.IsUnfollowConfirm); idx >= 0 {
			m.logger.Debug().Int("attempt", attempt+1).Msg("Clicking unfollow confirm")
			return m.stealth.Mouse().ClickElement(page, elements[idx])
		}
	}

	return fmt.Errorf("unfollow confirm dialog never appeared: %w", browser.ErrElementNotFound)
}

// verifyUnfollowed checks the button row flipped back to a follow state.
func (m *Manager) verifyUnfollowed(page *rod.Page) bool {
	cands, _, err := m.pageHelper.HarvestCandidates(page, SelectorActionButtons)
	if err != nil {
		return false
	}
	return followPresent(cands)
}

// dismissDialog closes any open dialog so a failed flow does not strand
// the page behind a modal.
func (m *Manager) dismissDialog(page *rod.Page) {
	if _, ok := m.pageHelper.Dialog(page); !ok {
		return
	}
	if err := m.pageHelper.PressEscape(page); err != nil {
		m.logger.Debug().Err(err).Msg("Escape dismiss failed")
	}
}

// OpenFollowers opens the followers dialog on a competitor profile by
// clicking the followers count link in the header.
func (m *Manager) OpenFollowers(page *rod.Page, username string) error {
	m.logger.Info().Str("username", username).Msg("Opening followers dialog")

	time.Sleep(settleDelay)

	link, err := m.pageHelper.WaitForElement(page, SelectorFollowersLink, 8*time.Second)
	if err != nil {
		return fmt.Errorf("followers link not found on @%s: %w", username, err)
	}

	if err := m.stealth.Mouse().ClickElement(page, link); err != nil {
		return fmt.Errorf("failed to open followers dialog: %w", err)
	}

	return m.store.AppendLog(fmt.Sprintf("Scanning followers of @%s", username), models.LogInfo)
}

// ProspectResult describes what Prospect did with the profile.
type ProspectResult int

// Prospect outcomes
const (
	ProspectSkippedBack ProspectResult = iota
	ProspectOpenedPost
	ProspectFollowed
)

// Prospect engages a candidate profile discovered through the followers
// dialog. Already-processed profiles get one of their posts opened
// instead of a duplicate follow; fresh profiles are followed and the
// ledger updated.
func (m *Manager) Prospect(page *rod.Page, username string, followEnabled bool) (ProspectResult, error) {
	m.logger.Info().Str("username", username).Msg("Evaluating prospect")

	time.Sleep(settleDelay)

	profileURL := instagram.Normalize(instagram.ProfileURL(username))

	seen, err := m.store.InHistory(profileURL)
	if err != nil {
		return ProspectSkippedBack, err
	}
	if seen {
		return m.openFirstPost(page, username)
	}

	if err := m.store.AddHistory(profileURL); err != nil {
		return ProspectSkippedBack, err
	}

	if !followEnabled {
		return m.goBack(page)
	}

	if ok, reason := m.stealth.RateLimit().CanPerform(stealth.ActionFollow, m.stealth.RateLimit().LimitsFor(stealth.ActionFollow)); !ok {
		m.logger.Info().Str("reason", reason).Msg("Follow budget exhausted, backing out")
		return m.goBack(page)
	}

	if err := m.follow(page, username); err != nil {
		m.logger.Warn().Err(err).Str("username", username).Msg("Follow failed")
		return m.goBack(page)
	}

	if _, err := m.goBack(page); err != nil {
		return ProspectFollowed, err
	}
	return ProspectFollowed, nil
}

// follow clicks the follow button and records the new target.
func (m *Manager) follow(page *rod.Page, username string) error {
	cands, elements, err := m.pageHelper.HarvestCandidates(page, SelectorActionButtons)
	if err != nil {
		return fmt.Errorf("failed to scan profile buttons: %w", err)
	}

	if domx.FindFirst(cands, domx.IsFollowingButton) >= 0 {
		m.logger.Debug().Str("username", username).Msg("Already following")
		return nil
	}

	idx := domx.FindFirst(cands, domx.IsFollowButton)
	if idx < 0 {
		return fmt.Errorf("follow button on @%s: %w", username, browser.ErrElementNotFound)
	}

	if err := m.stealth.Mouse().ClickElement(page, elements[idx]); err != nil {
		return err
	}

	m.stealth.RateLimit().RecordAction(stealth.ActionFollow)
	m.stealth.Timing().ActionDelay()

	now := time.Now()
	if err := m.store.SaveFollowed(models.FollowedUser{
		Username:  username,
		URL:       instagram.ProfileURL(username),
		Timestamp: now.UnixMilli(),
		DateLabel: now.Format("2006-01-02"),
	}); err != nil {
		return err
	}
	if err := m.store.BumpStat(func(s *models.BotStats) { s.Follows++ }); err != nil {
		return err
	}

	m.logger.Info().Str("username", username).Msg("Followed")
	return m.store.AppendLog(fmt.Sprintf("Followed @%s", username), models.LogSuccess)
}

// openFirstPost clicks the first post thumbnail on an already-known
// profile, handing control to the post scene.
func (m *Manager) openFirstPost(page *rod.Page, username string) (ProspectResult, error) {
	links, elements, err := m.pageHelper.HarvestLinks(page, SelectorPostThumbs)
	if err != nil || len(links) == 0 {
		m.logger.Debug().Str("username", username).Msg("No posts to open, backing out")
		return m.goBack(page)
	}

	for i, link := range links {
		if !strings.Contains(link.Href, "/p/") && !strings.Contains(link.Href, "/reel") {
			continue
		}
		if err := m.stealth.Mouse().ClickElement(page, elements[i]); err != nil {
			continue
		}
		m.stealth.Timing().ViewDelay()
		return ProspectOpenedPost, nil
	}

	return m.goBack(page)
}

func (m *Manager) goBack(page *rod.Page) (ProspectResult, error) {
	if err := m.browser.Back(page); err != nil {
		return ProspectSkippedBack, fmt.Errorf("history back failed: %w", err)
	}
	m.stealth.Timing().NavDelay()
	return ProspectSkippedBack, nil
}
