// Package browser - page interaction utilities
package browser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"instagram-automation/internal/instagram/domx"
)

// Common errors
var (
	ErrElementNotFound = errors.New("element not found")
	ErrTimeout         = errors.New("operation timed out")
)

// ElementSource is anything that can be queried for child elements; both
// *rod.Page and *rod.Element satisfy it, so harvesting works on the whole
// document or scoped to a dialog/article container.
type ElementSource interface {
	Elements(selector string) (rod.Elements, error)
}

// PageHelper provides utilities for page interactions
type PageHelper struct {
	logger zerolog.Logger
}

// NewPageHelper creates a new page helper
func NewPageHelper(logger zerolog.Logger) *PageHelper {
	return &PageHelper{
		logger: logger.With().Str("component", "pagehelper").Logger(),
	}
}

// WaitForElement waits for an element to appear with timeout
func (p *PageHelper) WaitForElement(page *rod.Page, selector string, timeout time.Duration) (*rod.Element, error) {
	p.logger.Debug().
		Str("selector", selector).
		Dur("timeout", timeout).
		Msg("Waiting for element")

	page = page.Timeout(timeout)
	defer page.CancelTimeout()

	element, err := page.Element(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}

	if err := element.WaitVisible(); err != nil {
		return nil, fmt.Errorf("element not visible: %s: %w", selector, err)
	}

	return element, nil
}

// ElementExists checks if an element exists on the page
func (p *PageHelper) ElementExists(page *rod.Page, selector string) bool {
	page = page.Timeout(2 * time.Second)
	defer page.CancelTimeout()

	_, err := page.Element(selector)
	return err == nil
}

// GetElementText safely gets text from an element
func (p *PageHelper) GetElementText(element *rod.Element) string {
	text, err := element.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// GetElementAttribute gets an attribute value from an element
func (p *PageHelper) GetElementAttribute(element *rod.Element, attr string) string {
	val, err := element.Attribute(attr)
	if err != nil || val == nil {
		return ""
	}
	return *val
}

// GetCurrentURL returns the current page URL
func (p *PageHelper) GetCurrentURL(page *rod.Page) string {
	info, err := page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Dialog returns the open dialog element, if any.
func (p *PageHelper) Dialog(page *rod.Page) (*rod.Element, bool) {
	page = page.Timeout(time.Second)
	defer page.CancelTimeout()

	el, err := page.Element(`div[role="dialog"]`)
	if err != nil {
		return nil, false
	}
	return el, true
}

// HarvestCandidates collects the interactive elements matching selector
// under root into pure matcher candidates, returning the live elements in
// parallel so the caller can act on a match by index.
func (p *PageHelper) HarvestCandidates(root ElementSource, selector string) ([]domx.Candidate, rod.Elements, error) {
	elements, err := root.Elements(selector)
	if err != nil {
		return nil, nil, err
	}

	cands := make([]domx.Candidate, 0, len(elements))
	for i, el := range elements {
		c := domx.Candidate{
			Index:     i,
			Text:      p.GetElementText(el),
			AriaLabel: p.GetElementAttribute(el, "aria-label"),
		}

		visible, err := el.Visible()
		c.Visible = err == nil && visible

		if svgs, err := el.Elements("svg"); err == nil {
			for _, svg := range svgs {
				s := domx.SVG{
					AriaLabel: p.GetElementAttribute(svg, "aria-label"),
					Fill:      p.GetElementAttribute(svg, "fill"),
					Color:     p.GetElementAttribute(svg, "color"),
				}
				if paths, err := svg.Elements("path"); err == nil {
					for _, path := range paths {
						if d := p.GetElementAttribute(path, "d"); d != "" {
							s.PathData = append(s.PathData, d)
						}
					}
				}
				c.SVGs = append(c.SVGs, s)
			}
		}

		cands = append(cands, c)
	}

	return cands, elements, nil
}

// LinkInfo is one harvested anchor.
type LinkInfo struct {
	Index int
	Href  string
	Text  string
}

// HarvestLinks collects anchors matching selector under root.
func (p *PageHelper) HarvestLinks(root ElementSource, selector string) ([]LinkInfo, rod.Elements, error) {
	elements, err := root.Elements(selector)
	if err != nil {
		return nil, nil, err
	}

	links := make([]LinkInfo, 0, len(elements))
	for i, el := range elements {
		links = append(links, LinkInfo{
			Index: i,
			Href:  p.GetElementAttribute(el, "href"),
			Text:  p.GetElementText(el),
		})
	}

	return links, elements, nil
}

// ScrollBy scrolls the window by the given vertical delta with smooth
// behavior, mirroring a user wheel gesture.
func (p *PageHelper) ScrollBy(page *rod.Page, deltaY int) error {
	_, err := page.Eval(`(y) => window.scrollBy({ top: y, behavior: 'smooth' })`, deltaY)
	return err
}

// ScrollElementBy scrolls an overflow container by the given delta.
func (p *PageHelper) ScrollElementBy(el *rod.Element, deltaY int) error {
	_, err := el.Eval(`(y) => this.scrollBy(0, y)`, deltaY)
	return err
}

// PressEscape dispatches an Escape key press to the page.
func (p *PageHelper) PressEscape(page *rod.Page) error {
	return page.Keyboard.Type(input.Escape)
}

// ContainsText checks if the page contains specific text
func (p *PageHelper) ContainsText(page *rod.Page, text string) bool {
	html, err := page.HTML()
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(html), strings.ToLower(text))
}

// FindElementByText finds an element containing specific text
func (p *PageHelper) FindElementByText(page *rod.Page, selector, text string) (*rod.Element, error) {
	elements, err := page.Elements(selector)
	if err != nil {
		return nil, err
	}

	for _, el := range elements {
		elText, err := el.Text()
		if err != nil {
			continue
		}

		if strings.Contains(strings.ToLower(elText), strings.ToLower(text)) {
			return el, nil
		}
	}

	return nil, fmt.Errorf("%w: no element with text '%s'", ErrElementNotFound, text)
}

// ClickElement performs a plain synthetic click on an element. The
// stealth mouse controller is preferred for engagement actions; this is
// the fallback used inside dialogs where pointer math is unreliable.
func (p *PageHelper) ClickElement(el *rod.Element) error {
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// WaitForURLContains waits until URL contains a specific string
func (p *PageHelper) WaitForURLContains(page *rod.Page, substring string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if strings.Contains(p.GetCurrentURL(page), substring) {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	return fmt.Errorf("%w: URL did not contain '%s'", ErrTimeout, substring)
}
