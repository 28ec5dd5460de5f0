// Package post handles the open post/reel scene: liking, optionally
// following the author, and closing back out to the previous surface.
package post

import (
	"fmt"
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

// Post scene selectors. A post renders either as a dialog over the grid
// or as its own document; the container probe tries both.
const (
	SelectorDialog        = "div[role='dialog']"
	SelectorArticle       = "article"
	SelectorActionTargets = "span[role='button'], div[role='button'], button, svg[aria-label]"
	SelectorAuthorLink    = "header a[href^='/']"
)

// Manager drives the post scene
type Manager struct {
	browser    *browser.Browser
	pageHelper *browser.PageHelper
	stealth    *stealth.Controller
	store      *store.Store
	logger     zerolog.Logger
}

// NewManager creates a post manager
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
		logger:     logger.With().Str("component", "post").Logger(),
	}
}

// Engage views the open post, likes it when enabled and under budget,
// optionally follows the author, then closes the post. Returns the
// author username when any action actually fired, so the caller can
// mark the profile engaged for this session.
func (m *Manager) Engage(page *rod.Page, cfg models.BotConfig) (string, error) {
	container := m.container(page)
	if container == nil {
		m.logger.Warn().Msg("No post container found, closing")
		return "", m.Close(page)
	}

	m.stealth.Timing().ViewDelay()

	author := m.authorUsername(container)
	if author != "" {
		m.logger.Debug().Str("author", author).Msg("Viewing post")
	}

	interacted := false

	if cfg.LikeEnabled {
		liked, err := m.like(page, container)
		if err != nil {
			m.logger.Warn().Err(err).Msg("Like failed")
		}
		interacted = interacted || liked
	}

	if cfg.FollowEnabled && author != "" {
		followed, err := m.followAuthor(page, container, author)
		if err != nil {
			m.logger.Warn().Err(err).Msg("Author follow failed")
		}
		interacted = interacted || followed
	}

	if !interacted {
		// Nothing fired means the post was already engaged; a short skip
		// beats the full action cooldown here.
		m.logger.Debug().Msg("Already interacted, skipping")
		m.stealth.Timing().ShortDelay()
		return "", m.Close(page)
	}

	return author, m.Close(page)
}

// container returns the element scoping this post's controls.
func (m *Manager) container(page *rod.Page) browser.ElementSource {
	if dialog, ok := m.pageHelper.Dialog(page); ok {
		return dialog
	}

	short := page.Timeout(3 * time.Second)
	defer short.CancelTimeout()

	if article, err := short.Element(SelectorArticle); err == nil {
		return article
	}

	return nil
}

// authorUsername reads the post author from the header anchor.
func (m *Manager) authorUsername(container browser.ElementSource) string {
	links, _, err := m.pageHelper.HarvestLinks(container, SelectorAuthorLink)
	if err != nil {
		return ""
	}
	for _, link := range links {
		if u, ok := instagram.UsernameFromPath(link.Href); ok {
			return u
		}
	}
	return ""
}

// like clicks the like control unless the post is already liked or the
// session budget is spent. Reports whether a like actually fired.
func (m *Manager) like(page *rod.Page, container browser.ElementSource) (bool, error) {
	cands, elements, err := m.pageHelper.HarvestCandidates(container, SelectorActionTargets)
	if err != nil {
		return false, fmt.Errorf("failed to scan post controls: %w", err)
	}

	if domx.FindFirst(cands, domx.IsLikedState) >= 0 {
		m.logger.Debug().Msg("Post already liked")
		return false, nil
	}

	if ok, reason := m.stealth.RateLimit().CanPerform(stealth.ActionLike, m.stealth.RateLimit().LimitsFor(stealth.ActionLike)); !ok {
		m.logger.Info().Str("reason", reason).Msg("Like budget exhausted")
		return false, nil
	}

	idx := domx.FindFirstSVG(cands, domx.IsLikeIcon)
	if idx < 0 {
		return false, fmt.Errorf("like control: %w", browser.ErrElementNotFound)
	}

	if err := m.stealth.Mouse().ClickElement(page, elements[idx]); err != nil {
		return false, err
	}

	m.stealth.RateLimit().RecordAction(stealth.ActionLike)
	m.stealth.Timing().ActionDelay()

	if err := m.store.BumpStat(func(s *models.BotStats) { s.Likes++ }); err != nil {
		return true, err
	}

	m.logger.Info().Msg("Liked post")
	return true, m.store.AppendLog("Liked a post", models.LogSuccess)
}

// followAuthor follows the post author from the post header. Reports
// whether a follow actually fired.
func (m *Manager) followAuthor(page *rod.Page, container browser.ElementSource, author string) (bool, error) {
	if ok, reason := m.stealth.RateLimit().CanPerform(stealth.ActionFollow, m.stealth.RateLimit().LimitsFor(stealth.ActionFollow)); !ok {
		m.logger.Info().Str("reason", reason).Msg("Follow budget exhausted")
		return false, nil
	}

	cands, elements, err := m.pageHelper.HarvestCandidates(container, SelectorActionTargets)
	if err != nil {
		return false, err
	}

	if domx.FindFirst(cands, domx.IsFollowingButton) >= 0 {
		return false, nil
	}

	idx := domx.FindFirst(cands, domx.IsFollowButton)
	if idx < 0 {
		return false, nil
	}

	if err := m.stealth.Mouse().ClickElement(page, elements[idx]); err != nil {
		return false, err
	}

	m.stealth.RateLimit().RecordAction(stealth.ActionFollow)
	m.stealth.Timing().ActionDelay()

	now := time.Now()
	if err := m.store.SaveFollowed(models.FollowedUser{
		Username:  author,
		URL:       instagram.ProfileURL(author),
		Timestamp: now.UnixMilli(),
		DateLabel: now.Format("2006-01-02"),
	}); err != nil {
		return true, err
	}
	if err := m.store.BumpStat(func(s *models.BotStats) { s.Follows++ }); err != nil {
		return true, err
	}

	m.logger.Info().Str("author", author).Msg("Followed post author")
	return true, m.store.AppendLog(fmt.Sprintf("Followed @%s", author), models.LogSuccess)
}

// Close dismisses the post. The escalation is close icon, Escape key,
// history back, and finally a forced home navigation.
func (m *Manager) Close(page *rod.Page) error {
	cands, elements, err := m.pageHelper.HarvestCandidates(page, SelectorActionTargets)
	if err == nil {
		if idx := domx.FindFirstSVG(cands, domx.IsCloseIcon); idx >= 0 {
			if err := m.stealth.Mouse().ClickElement(page, elements[idx]); err == nil {
				m.stealth.Timing().ShortDelay()
				if m.closed(page) {
					return nil
				}
			}
		}
	}

	if err := m.pageHelper.PressEscape(page); err == nil {
		m.stealth.Timing().ShortDelay()
		if m.closed(page) {
			return nil
		}
	}

	if err := m.browser.Back(page); err == nil {
		m.stealth.Timing().ShortDelay()
		if m.closed(page) {
			return nil
		}
	}

	m.logger.Warn().Msg("Post refused to close, forcing home")
	return m.browser.Navigate(page, instagram.HomeURL())
}

// closed reports whether the post surface is gone.
func (m *Manager) closed(page *rod.Page) bool {
	if _, ok := m.pageHelper.Dialog(page); ok {
		return false
	}
	return !instagram.IsPostPath(instagram.Normalize(m.pageHelper.GetCurrentURL(page)))
}
