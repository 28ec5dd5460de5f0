// Package instagram holds the URL discipline shared by the scene
// handlers and the navigation planner: canonical page URLs, path
// classification and the normalization applied to every URL before it
// touches the processed-history set.
package instagram

import (
	"net/url"
	"strings"
)

// Host is the target host all automation is scoped to.
const Host = "www.instagram.com"

// BaseURL is the home feed.
const BaseURL = "https://" + Host

// langParam pins the interface language so text heuristics stay stable.
const langParam = "hl=en"

// Reserved first path segments that are never usernames.
var reservedSegments = map[string]bool{
	"explore":  true,
	"accounts": true,
	"direct":   true,
	"p":        true,
	"reels":    true,
	"reel":     true,
	"stories":  true,
	"about":    true,
	"legal":    true,
}

// Normalize reduces a URL to scheme+host+path with the query and
// fragment stripped, the trailing slash removed and everything
// lowercased. It is idempotent: Normalize(Normalize(u)) == Normalize(u).
// Relative inputs keep only the path component.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	for strings.HasSuffix(lower, "/") && lower != "/" {
		lower = strings.TrimSuffix(lower, "/")
	}
	return lower
}

// OnHost reports whether the URL points at the target host.
func OnHost(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Host)
	return host == Host || host == "instagram.com" || strings.HasSuffix(host, ".instagram.com")
}

// IsPostPath reports a post or reel path (direct page or modal route).
func IsPostPath(path string) bool {
	p := strings.ToLower(path)
	return strings.Contains(p, "/p/") || strings.Contains(p, "/reels/") || strings.Contains(p, "/reel/")
}

// IsExplorePath reports a hashtag feed or explore search path.
func IsExplorePath(path string) bool {
	p := strings.ToLower(path)
	return strings.Contains(p, "/explore/tags/") || strings.Contains(p, "/explore/search/")
}

// IsHomePath reports the bare home feed.
func IsHomePath(path string) bool {
	return path == "/" || path == ""
}

// UsernameFromPath extracts a profile handle from a single-segment path.
// Reserved application segments are rejected.
func UsernameFromPath(path string) (string, bool) {
	segs := strings.FieldsFunc(strings.ToLower(path), func(r rune) bool { return r == '/' })
	if len(segs) != 1 {
		return "", false
	}
	if reservedSegments[segs[0]] {
		return "", false
	}
	return segs[0], true
}

// CleanHandle strips the optional @/# prefix and surrounding whitespace
// from a user-edited list entry.
func CleanHandle(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "@"), "#"))
}

// ProfileURL returns the canonical profile page for a handle.
func ProfileURL(handle string) string {
	return BaseURL + "/" + CleanHandle(handle) + "/?" + langParam
}

// HashtagURL returns the canonical hashtag feed for a tag.
func HashtagURL(tag string) string {
	return BaseURL + "/explore/tags/" + CleanHandle(tag) + "/?" + langParam
}

// HomeURL returns the home feed with the pinned language.
func HomeURL() string {
	return BaseURL + "/?" + langParam
}

// EmbedURL returns the public embed page for a post shortcode, used by
// the analytics fallback scraper.
func EmbedURL(shortcode string) string {
	return BaseURL + "/p/" + shortcode + "/embed/captioned/"
}
