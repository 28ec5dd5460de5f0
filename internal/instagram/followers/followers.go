// Package followers handles the followers dialog scene on competitor
// profiles: picking the next unprocessed account out of the open
// dialog, or scrolling the list when everyone visible is known.
package followers

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/rs/zerolog"

	"instagram-automation/internal/browser"
	"instagram-automation/internal/instagram"
	"instagram-automation/internal/stealth"
	"instagram-automation/internal/store"
)

// Dialog selectors
const (
	SelectorDialogLinks    = "div[role='dialog'] a[href^='/']"
	SelectorDialogScroller = "div[role='dialog'] div[style*='overflow']"
)

// scrollChunk is how far one dialog scroll reaches, in pixels.
const scrollChunk = 600

// Manager drives the followers dialog scene
type Manager struct {
	browser    *browser.Browser
	pageHelper *browser.PageHelper
	stealth    *stealth.Controller
	store      *store.Store
	logger     zerolog.Logger
}

// NewManager creates a followers dialog manager
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
		logger:     logger.With().Str("component", "followers").Logger(),
	}
}

// PickFollower opens the profile of the first dialog entry whose
// profile has not been processed. Returns the username it navigated to,
// or empty string if it only scrolled the list.
func (m *Manager) PickFollower(page *rod.Page, hostUsername string) (string, error) {
	links, elements, err := m.pageHelper.HarvestLinks(page, SelectorDialogLinks)
	if err != nil {
		return "", fmt.Errorf("failed to scan followers dialog: %w", err)
	}

	host := strings.ToLower(instagram.CleanHandle(hostUsername))

	for i, link := range links {
		username, ok := instagram.UsernameFromPath(link.Href)
		if !ok || username == host {
			continue
		}

		profileURL := instagram.Normalize(instagram.ProfileURL(username))
		seen, err := m.store.InHistory(profileURL)
		if err != nil {
			return "", err
		}
		if seen {
			continue
		}

		m.logger.Info().Str("username", username).Msg("Visiting follower")

		if err := m.stealth.Mouse().ClickElement(page, elements[i]); err != nil {
			m.logger.Debug().Err(err).Str("username", username).Msg("Dialog link click failed, trying next")
			continue
		}

		m.stealth.Timing().NavDelay()
		return username, nil
	}

	m.logger.Debug().Int("visible", len(links)).Msg("All visible followers processed, scrolling dialog")
	return "", m.scrollDialog(page, elements)
}

// scrollDialog advances the dialog list. The overflow container is the
// reliable scroll target; when the markup hides it, nudging the last
// row into view triggers the same lazy load.
func (m *Manager) scrollDialog(page *rod.Page, rows rod.Elements) error {
	scroller, err := page.Timeout(2 * time.Second).Element(SelectorDialogScroller)
	if err == nil {
		if err := m.stealth.Scroll().ScrollContainer(scroller, scrollChunk); err == nil {
			m.stealth.Timing().ThinkDelay()
			return nil
		}
	}

	if len(rows) > 0 {
		last := rows[len(rows)-1]
		if err := last.ScrollIntoView(); err != nil {
			return fmt.Errorf("dialog scroll fallback failed: %w", err)
		}
	}

	m.stealth.Timing().ThinkDelay()
	return nil
}
