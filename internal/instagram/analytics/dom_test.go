package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"instagram-automation/internal/models"
)

func TestParseCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"1,234", 1234},
		{"5.6K", 5600},
		{"5.6k", 5600},
		{"2.1M", 2_100_000},
		{"12", 12},
		{" 847 ", 847},
		{"1,234,567", 1234567},
		{"abc", 0},
		{"", 0},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseCount(tc.in), tc.in)
	}
}

func TestParseHeaderStatsLabeled(t *testing.T) {
	stats := ParseHeaderStats([]string{
		"1,204 posts",
		"5.6M followers",
		"312 following",
	})

	assert.Equal(t, models.ProfileStats{
		Posts:     1204,
		Followers: 5_600_000,
		Following: 312,
	}, stats)
}

func TestParseHeaderStatsSpanish(t *testing.T) {
	stats := ParseHeaderStats([]string{
		"87 publicaciones",
		"1.2K seguidores",
		"450 seguidos",
	})

	assert.Equal(t, models.ProfileStats{
		Posts:     87,
		Followers: 1200,
		Following: 450,
	}, stats)
}

func TestParseHeaderStatsPositionalFallback(t *testing.T) {
	// Numbers without recognizable labels fall back to header order
	stats := ParseHeaderStats([]string{"87", "1.2K", "450"})

	assert.Equal(t, models.ProfileStats{
		Posts:     87,
		Followers: 1200,
		Following: 450,
	}, stats)
}

func TestParseHeaderStatsPartial(t *testing.T) {
	stats := ParseHeaderStats([]string{"5.6M followers"})
	assert.Equal(t, 5_600_000, stats.Followers)
	assert.Zero(t, stats.Posts)
	assert.Zero(t, stats.Following)
}
