// Package analytics - DOM-side profile harvesting
package analytics

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-rod/rod"

	"instagram-automation/internal/models"
)

// Profile header selectors
const (
	SelectorHeader    = "header"
	SelectorStatItems = "header section ul li"
	SelectorFullName  = "header section > div span"
	SelectorAvatar    = "header img"
)

var statValuePattern = regexp.MustCompile(`([\d.,]+)\s*([KkMm]?)`)

// ParseCount converts an abbreviated stat string ("1,234", "5.6K",
// "2.1M") into an integer. Unparseable input yields zero.
func ParseCount(s string) int {
	m := statValuePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}

	num := strings.ReplaceAll(m[1], ",", "")
	val, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}

	switch strings.ToUpper(m[2]) {
	case "K":
		val *= 1_000
	case "M":
		val *= 1_000_000
	}

	return int(val)
}

// ParseHeaderStats maps the three header stat items onto a stats
// triple. The item order on a profile header is posts, followers,
// following; labels are matched first and order used as fallback.
func ParseHeaderStats(items []string) models.ProfileStats {
	var stats models.ProfileStats
	for i, item := range items {
		lower := strings.ToLower(item)
		count := ParseCount(item)

		switch {
		case strings.Contains(lower, "post") || strings.Contains(lower, "publicacion"):
			stats.Posts = count
		case strings.Contains(lower, "follower") || strings.Contains(lower, "seguidor"):
			stats.Followers = count
		case strings.Contains(lower, "following") || strings.Contains(lower, "seguido"):
			stats.Following = count
		default:
			switch i {
			case 0:
				stats.Posts = count
			case 1:
				stats.Followers = count
			case 2:
				stats.Following = count
			}
		}
	}
	return stats
}

// harvestDOMUser reads whatever profile data the rendered header
// exposes. Everything is best-effort; missing pieces stay zero and the
// merge fills them from other sources.
func (m *Manager) harvestDOMUser(page *rod.Page, username string) models.UserRecord {
	user := models.UserRecord{Username: username}

	items, _, err := m.pageHelper.HarvestLinks(page, SelectorStatItems)
	if err == nil && len(items) > 0 {
		texts := make([]string, 0, len(items))
		for _, it := range items {
			texts = append(texts, it.Text)
		}
		stats := ParseHeaderStats(texts)
		user.Posts = stats.Posts
		user.Followers = stats.Followers
		user.Following = stats.Following
	}

	short := page.Timeout(shortProbeTimeout)
	defer short.CancelTimeout()

	if el, err := short.Element(SelectorAvatar); err == nil {
		user.AvatarURL = m.pageHelper.GetElementAttribute(el, "src")
	}
	if el, err := short.Element(SelectorFullName); err == nil {
		user.FullName = m.pageHelper.GetElementText(el)
	}

	return user
}
