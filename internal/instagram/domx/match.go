// Package domx implements the element-matching heuristics as pure
// functions over candidates harvested from the live page. The host
// markup is an unstable oracle, so every control is located through an
// ordered list of strategies: exact visible text, localized text set,
// aria-label set, then a structural icon-path fallback. Keeping the
// matching free of browser handles lets each heuristic be exercised
// against fixture candidates.
package domx

import "strings"

// SVG describes an inline icon inside a candidate element.
type SVG struct {
	AriaLabel string
	PathData  []string // "d" attributes of contained <path> elements
	Fill      string
	Color     string
}

// Candidate describes one interactive element (button or role=button)
// harvested from the page.
type Candidate struct {
	Index     int // position in the harvested list, used to click back on the live page
	Text      string
	AriaLabel string
	SVGs      []SVG
	Visible   bool
}

// Localized keyword sets. English and Spanish, matching the host
// surfaces the heuristics were derived from.
var (
	followingKeywords = []string{"following", "siguiendo", "requested", "pendiente"}
	followTexts       = []string{"follow", "seguir"}
	unfollowConfirms  = []string{"unfollow", "dejar de seguir"}
	messageKeywords   = []string{"message", "mensaje", "contact"}
	likeLabels        = []string{"like", "me gusta"}
	unlikeLabels      = []string{"unlike", "ya no me gusta"}
	closeLabels       = []string{"close", "cerrar", "back", "volver"}
	editProfileTexts  = []string{"edit profile", "editar perfil"}
)

// Icon-path fragments observed on the "following" state button (user
// glyph with chevron).
var followingIconPaths = []string{"M12.003 20.003"}

// Icon-path fragments observed on the like glyph across its size
// variants.
var likeIconPaths = []string{"M16.792", "M34.6", "M47.5"}

// likedFill is the fill/color the like glyph takes once active.
const likedFill = "#ed4956"

func containsAny(s string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func equalsAny(s string, keys []string) bool {
	for _, k := range keys {
		if s == k {
			return true
		}
	}
	return false
}

func (c Candidate) text() string      { return strings.ToLower(strings.TrimSpace(c.Text)) }
func (c Candidate) ariaLabel() string { return strings.ToLower(strings.TrimSpace(c.AriaLabel)) }

// IsFollowingButton reports whether the candidate is the
// "following/requested" state button on a profile header.
//
// Strategy order:
//  1. localized following/requested keyword in visible text
//  2. same keyword set in aria-label
//  3. contained svg labeled Following/Siguiendo
//  4. structural icon-path fragment fallback
//
// Message/contact buttons are excluded up front, and the element must be
// visible.
func IsFollowingButton(c Candidate) bool {
	if !c.Visible {
		return false
	}
	text, label := c.text(), c.ariaLabel()
	if containsAny(text, messageKeywords) {
		return false
	}
	if containsAny(text, followingKeywords) || containsAny(label, followingKeywords) {
		return true
	}
	for _, svg := range c.SVGs {
		svgLabel := strings.ToLower(svg.AriaLabel)
		if svgLabel == "following" || svgLabel == "siguiendo" {
			return true
		}
		for _, d := range svg.PathData {
			if containsAny(d, followingIconPaths) {
				return true
			}
		}
	}
	return false
}

// IsFollowButton reports whether the candidate is a plain "follow"
// button. Exact text match first, then aria-label; "following" must not
// slip through, hence equality rather than substring.
func IsFollowButton(c Candidate) bool {
	if !c.Visible {
		return false
	}
	return equalsAny(c.text(), followTexts) || equalsAny(c.ariaLabel(), followTexts)
}

// IsUnfollowConfirm reports whether the candidate is the exact-text
// unfollow confirmation inside the dialog.
func IsUnfollowConfirm(c Candidate) bool {
	return equalsAny(c.text(), unfollowConfirms)
}

// IsLikeIcon reports whether the svg is the like glyph. Icon-path
// fragments are checked before the localized aria-label set because the
// label is absent on some variants.
func IsLikeIcon(svg SVG) bool {
	for _, d := range svg.PathData {
		if containsAny(d, likeIconPaths) {
			return true
		}
	}
	return equalsAny(strings.ToLower(svg.AriaLabel), likeLabels)
}

// IsLikedState reports whether the candidate's like control is already
// in the active ("liked") visual state: filled glyph or an unlike label.
func IsLikedState(c Candidate) bool {
	for _, svg := range c.SVGs {
		if strings.EqualFold(svg.Fill, likedFill) || strings.EqualFold(svg.Color, likedFill) {
			return true
		}
		if equalsAny(strings.ToLower(svg.AriaLabel), unlikeLabels) {
			return true
		}
	}
	return false
}

// IsCloseIcon reports whether the svg is a dialog close/back glyph.
func IsCloseIcon(svg SVG) bool {
	return equalsAny(strings.ToLower(svg.AriaLabel), closeLabels)
}

// IsEditProfile reports whether the candidate is the "edit profile"
// control that gates own-profile analytics.
func IsEditProfile(c Candidate) bool {
	return containsAny(c.text(), editProfileTexts)
}

// FindFirst returns the index of the first candidate satisfying match,
// preserving harvest order, or -1 when none does. The index positions
// back into the element list the candidates were harvested from.
func FindFirst(cands []Candidate, match func(Candidate) bool) int {
	for i, c := range cands {
		if match(c) {
			return i
		}
	}
	return -1
}

// FindFirstSVG is FindFirst for svg-level matchers: it returns the index
// of the first candidate containing an svg satisfying match, or -1.
func FindFirstSVG(cands []Candidate, match func(SVG) bool) int {
	for i, c := range cands {
		for _, svg := range c.SVGs {
			if match(svg) {
				return i
			}
		}
	}
	return -1
}
