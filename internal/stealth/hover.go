// Package stealth - idle hover behavior between actions
package stealth

import (
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/rs/zerolog"
)

// hoverSelectors is ordered by what a person actually lingers on when
// browsing Instagram: post thumbnails first, then profile links, then
// whatever buttons the page offers.
var hoverSelectors = []string{
	"a[href^='/p/'] img, a[href^='/reel/'] img",
	"main a[role='link']",
	"a, button, [role='button']",
}

// HoverRandomElement drifts the cursor onto some visible page element
// and lets it rest there, the way an undecided reader does. Nothing is
// clicked. Pages with no hoverable content are left alone.
func HoverRandomElement(page *rod.Page, mouse *MouseController, logger zerolog.Logger) error {
	element := pickHoverTarget(page)
	if element == nil {
		return nil
	}

	if err := mouse.MoveToElement(page, element); err != nil {
		return err
	}

	rest := time.Duration(200+rand.Intn(600)) * time.Millisecond
	time.Sleep(rest)

	logger.Debug().Dur("rest", rest).Msg("Hovered an element")
	return nil
}

// pickHoverTarget tries each selector tier in turn and returns a
// random visible match, or nil when the page has nothing to offer.
func pickHoverTarget(page *rod.Page) *rod.Element {
	for _, selector := range hoverSelectors {
		elements, err := page.Elements(selector)
		if err != nil || len(elements) == 0 {
			continue
		}

		// A few random draws beat scanning every element for
		// visibility on a grid with hundreds of thumbnails.
		for attempt := 0; attempt < 3; attempt++ {
			candidate := elements[rand.Intn(len(elements))]
			if visible, err := candidate.Visible(); err == nil && visible {
				return candidate
			}
		}
	}
	return nil
}
