// Package hashtag handles the explore/tag grid scene: picking a fresh
// post out of the grid or scrolling deeper when everything visible has
// been processed already.
package hashtag

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/rs/zerolog"

	"instagram-automation/internal/browser"
	"instagram-automation/internal/instagram"
	"instagram-automation/internal/models"
	"instagram-automation/internal/stealth"
	"instagram-automation/internal/store"
)

// Grid selectors
const (
	SelectorGridPosts = "a[href*='/p/'], a[href*='/reel/']"
)

// Manager drives the tag grid scene
type Manager struct {
	browser    *browser.Browser
	pageHelper *browser.PageHelper
	stealth    *stealth.Controller
	store      *store.Store
	logger     zerolog.Logger
}

// NewManager creates a hashtag grid manager
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
		logger:     logger.With().Str("component", "hashtag").Logger(),
	}
}

// PickPost finds the first grid post not yet in the processed history
// and opens it. When the visible grid is exhausted it scrolls further
// down instead, leaving the next pick to a later loop iteration.
func (m *Manager) PickPost(page *rod.Page) (opened bool, err error) {
	links, elements, err := m.pageHelper.HarvestLinks(page, SelectorGridPosts)
	if err != nil {
		return false, fmt.Errorf("failed to scan grid: %w", err)
	}

	if len(links) == 0 {
		m.logger.Debug().Msg("Empty grid, scrolling for content")
		return false, m.scrollGrid(page)
	}

	currentURL := instagram.Normalize(m.pageHelper.GetCurrentURL(page))

	for i, link := range links {
		target := instagram.Normalize(absoluteURL(link.Href))
		if target == "" || target == currentURL {
			continue
		}

		seen, err := m.store.InHistory(target)
		if err != nil {
			return false, err
		}
		if seen {
			continue
		}

		m.logger.Info().Str("url", target).Msg("Opening fresh grid post")

		if err := m.stealth.Mouse().ClickElement(page, elements[i]); err != nil {
			m.logger.Debug().Err(err).Str("url", target).Msg("Grid click failed, trying next")
			continue
		}

		if err := m.store.AddHistory(target); err != nil {
			return true, err
		}

		m.stealth.Timing().ViewDelay()
		return true, nil
	}

	m.logger.Debug().Int("visible", len(links)).Msg("All visible posts processed, scrolling")
	if err := m.store.AppendLog("Grid exhausted, loading more posts", models.LogWait); err != nil {
		return false, err
	}
	return false, m.scrollGrid(page)
}

func (m *Manager) scrollGrid(page *rod.Page) error {
	if err := m.stealth.Scroll().ScrollDown(page); err != nil {
		return fmt.Errorf("grid scroll failed: %w", err)
	}
	m.stealth.Timing().ThinkDelay()
	return nil
}

// absoluteURL resolves a relative anchor href against the site base.
func absoluteURL(href string) string {
	if href == "" {
		return ""
	}
	if href[0] == '/' {
		return instagram.BaseURL + href
	}
	return href
}
