// Package analytics - engagement and trust scoring
package analytics

import "instagram-automation/internal/models"

// EngagementRate computes average per-post interaction as a percentage
// of follower count. Zero followers or an empty sample yields zero.
func EngagementRate(posts []models.PostRecord, followers int) float64 {
	if followers <= 0 || len(posts) == 0 {
		return 0
	}

	total := 0
	for _, p := range posts {
		total += p.Likes + p.Comments
	}

	avg := float64(total) / float64(len(posts))
	return avg / float64(followers) * 100
}

// TrustScore grades an account's legitimacy from its public stats.
// The score starts at a neutral 50 and moves with engagement quality,
// audience ratio, and content volume, clamped to [0, 100].
func TrustScore(stats models.ProfileStats, engagementRate float64) int {
	score := 50

	switch {
	case engagementRate > 5:
		score += 25
	case engagementRate > 3:
		score += 15
	case engagementRate > 1:
		score += 5
	}

	ratio := 0.0
	if stats.Following > 0 {
		ratio = float64(stats.Followers) / float64(stats.Following)
	} else if stats.Followers > 0 {
		// No following at all reads as a broadcast account.
		ratio = float64(stats.Followers)
	}

	switch {
	case ratio > 2:
		score += 15
	case ratio > 1:
		score += 10
	case ratio > 0.5:
		score += 5
	default:
		score -= 10
	}

	switch {
	case stats.Posts > 100:
		score += 10
	case stats.Posts > 50:
		score += 5
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
