// Package analytics - public embed page fallback
package analytics

import (
	"fmt"
	"io"
	"net/http"
	"regexp"

	"instagram-automation/internal/instagram"
)

// The captioned embed page is public and carries the like count even
// when the API surfaces omit it. Used only to backfill posts that came
// through with a zero count.

var embedLikesPattern = regexp.MustCompile(`([\d.,]+[KkMm]?)\s+likes`)

// maxEmbedBody caps how much of the embed page is read.
const maxEmbedBody = 512 * 1024

// FetchEmbedLikes scrapes the like count from a post's embed page.
func FetchEmbedLikes(client *http.Client, shortcode string) (int, error) {
	if shortcode == "" {
		return 0, fmt.Errorf("empty shortcode")
	}

	req, err := http.NewRequest(http.MethodGet, instagram.EmbedURL(shortcode), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("embed fetch for %s: %w", shortcode, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("embed fetch for %s: status %d", shortcode, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEmbedBody))
	if err != nil {
		return 0, err
	}

	return ParseEmbedLikes(string(body))
}

// ParseEmbedLikes extracts the like count from embed page HTML.
func ParseEmbedLikes(html string) (int, error) {
	m := embedLikesPattern.FindStringSubmatch(html)
	if m == nil {
		return 0, fmt.Errorf("no like count in embed page")
	}
	return ParseCount(m[1]), nil
}
