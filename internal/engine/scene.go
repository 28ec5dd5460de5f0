// Package engine - scene classification
package engine

import (
	"net/url"
	"strings"

	"instagram-automation/internal/instagram"
)

// Scene identifies what kind of surface the browser is showing. Exactly
// one scene applies at a time; classification priority is the dialog
// first, then the URL shape.
type Scene int

// Scenes, highest classification priority first.
const (
	SceneFollowersDialog Scene = iota
	ScenePost
	SceneExplore
	SceneProfile
	ScenePlanner
)

func (s Scene) String() string {
	switch s {
	case SceneFollowersDialog:
		return "followers-dialog"
	case ScenePost:
		return "post"
	case SceneExplore:
		return "explore"
	case SceneProfile:
		return "profile"
	case ScenePlanner:
		return "planner"
	default:
		return "unknown"
	}
}

// Snapshot is the minimal page state classification needs, harvested
// once per loop iteration.
type Snapshot struct {
	DialogOpen   bool
	DialogHeader string
	LoginForm    bool
}

// followersHeaderWords match the followers dialog title in the
// supported locales.
var followersHeaderWords = []string{"followers", "seguidores"}

// Classify maps a location and page snapshot onto a scene.
func Classify(location string, snap Snapshot) Scene {
	path := pathOf(location)

	if snap.DialogOpen {
		header := strings.ToLower(snap.DialogHeader)
		for _, w := range followersHeaderWords {
			if strings.Contains(header, w) {
				return SceneFollowersDialog
			}
		}
		if strings.Contains(path, "/followers") {
			return SceneFollowersDialog
		}
		// A dialog over a post route is the post itself.
	}

	switch {
	case instagram.IsPostPath(path):
		return ScenePost
	case instagram.IsExplorePath(path):
		return SceneExplore
	}

	if _, ok := instagram.UsernameFromPath(strings.TrimSuffix(path, "/followers")); ok {
		return SceneProfile
	}

	return ScenePlanner
}

// pathOf extracts the normalized path from a location that may be a
// full URL or already a bare path.
func pathOf(location string) string {
	norm := instagram.Normalize(location)
	if u, err := url.Parse(norm); err == nil && u.Host != "" {
		return u.Path
	}
	return norm
}

// ProfileUsername extracts the profile handle from a location known to
// classify as SceneProfile or SceneFollowersDialog.
func ProfileUsername(location string) string {
	path := strings.TrimSuffix(pathOf(location), "/followers")
	if u, ok := instagram.UsernameFromPath(path); ok {
		return u
	}
	return ""
}
