// Package analytics - multi-source profile merging
package analytics

import (
	"sort"

	"instagram-automation/internal/models"
)

// Profile data arrives from up to three sources of unequal quality:
// the captured API traffic (authoritative when present), the profile
// DOM (approximate, parsed from abbreviated counts), and whatever
// record was stored by a previous audit.

// MergeDeep consolidates sources for a full audit. Descriptive fields
// that were already stored survive unless empty, so a profile that
// hides its bio mid-audit does not wipe earlier data. Numeric stats
// prefer fresher sources, but a zero never replaces a known value.
func MergeDeep(existing models.ProfileAnalytics, network, dom models.UserRecord) models.ProfileAnalytics {
	out := existing

	out.ID = firstNonEmpty(existing.ID, network.ID, dom.ID)
	out.Username = firstNonEmpty(existing.Username, network.Username, dom.Username)
	out.FullName = firstNonEmpty(existing.FullName, network.FullName, dom.FullName)
	out.AvatarURL = firstNonEmpty(existing.AvatarURL, network.AvatarURL, dom.AvatarURL)
	out.Bio = firstNonEmpty(existing.Bio, network.Bio, dom.Bio)
	out.Verified = existing.Verified || network.Verified || dom.Verified

	out.Stats = models.ProfileStats{
		Posts:     firstNonZero(network.Posts, dom.Posts, existing.Stats.Posts),
		Followers: firstNonZero(network.Followers, dom.Followers, existing.Stats.Followers),
		Following: firstNonZero(network.Following, dom.Following, existing.Stats.Following),
	}

	return out
}

// MergeQuick consolidates sources for a lightweight refresh: freshest
// source wins across the board, stored data only fills gaps.
func MergeQuick(existing models.ProfileAnalytics, network, dom models.UserRecord) models.ProfileAnalytics {
	out := existing

	out.ID = firstNonEmpty(network.ID, dom.ID, existing.ID)
	out.Username = firstNonEmpty(network.Username, dom.Username, existing.Username)
	out.FullName = firstNonEmpty(network.FullName, dom.FullName, existing.FullName)
	out.AvatarURL = firstNonEmpty(network.AvatarURL, dom.AvatarURL, existing.AvatarURL)
	out.Bio = firstNonEmpty(network.Bio, dom.Bio, existing.Bio)
	out.Verified = network.Verified || dom.Verified || existing.Verified

	out.Stats = models.ProfileStats{
		Posts:     firstNonZero(network.Posts, dom.Posts, existing.Stats.Posts),
		Followers: firstNonZero(network.Followers, dom.Followers, existing.Stats.Followers),
		Following: firstNonZero(network.Following, dom.Following, existing.Stats.Following),
	}

	return out
}

// MergePosts prefers freshly captured posts, keeps stored ones
// otherwise, and caps the list at the analytics sample size. Posts are
// ordered newest-first so the cap keeps the most recent sample.
func MergePosts(existing, captured []models.PostRecord) []models.PostRecord {
	src := captured
	if len(src) == 0 {
		src = existing
	}

	posts := make([]models.PostRecord, len(src))
	copy(posts, src)
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Timestamp > posts[j].Timestamp
	})

	if len(posts) > models.MaxAnalyticsPosts {
		posts = posts[:models.MaxAnalyticsPosts]
	}
	return posts
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
