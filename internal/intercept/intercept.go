// Package intercept captures Instagram API traffic flowing through the
// automated browser. It listens to CDP network events on the page,
// pulls response bodies for the endpoints that carry profile and
// timeline data, and accumulates the extracted records for the
// analytics pipeline. Responses are only observed, never modified.
package intercept

import (
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"instagram-automation/internal/models"
)

// watchedPaths are the URL substrings worth pulling bodies for. All
// other traffic is ignored at the event handler, before any body fetch.
var watchedPaths = []string{
	"/graphql/query",
	"/web_profile_info/",
}

// Packet is one captured-and-parsed response delivered to subscribers.
type Packet struct {
	Posts []models.PostRecord
	User  *models.UserRecord
}

// Interceptor observes network responses on a page and accumulates
// profile data across responses. Timelines arrive in pages, so posts
// are merged by ID rather than replaced.
type Interceptor struct {
	logger zerolog.Logger

	mu    sync.Mutex
	posts map[string]models.PostRecord
	order []string
	user  *models.UserRecord

	packets chan Packet
}

// New creates an interceptor. Attach it to a page before navigating.
func New(logger zerolog.Logger) *Interceptor {
	return &Interceptor{
		logger:  logger.With().Str("component", "intercept").Logger(),
		posts:   make(map[string]models.PostRecord),
		packets: make(chan Packet, 16),
	}
}

// Attach subscribes to the page's network events. The returned stop
// function detaches the listener; it is safe to call once.
func (i *Interceptor) Attach(page *rod.Page) func() {
	i.logger.Debug().Msg("Attaching network listener")

	wait := page.EachEvent(func(ev *proto.NetworkResponseReceived) {
		if ev.Response == nil || !i.watched(ev.Response.URL) {
			return
		}

		body, err := proto.NetworkGetResponseBody{RequestID: ev.RequestID}.Call(page)
		if err != nil {
			// Body may already be evicted; common during fast navigation.
			i.logger.Debug().Err(err).Str("url", ev.Response.URL).Msg("Body fetch failed")
			return
		}

		i.ingest(ev.Response.URL, []byte(body.Body))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		wait()
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			// Closing the page's event subscription happens when the
			// page context ends; nothing to tear down beyond waiting.
			i.logger.Debug().Msg("Network listener detached")
		})
	}
}

func (i *Interceptor) watched(url string) bool {
	for _, p := range watchedPaths {
		if strings.Contains(url, p) {
			return true
		}
	}
	return false
}

// ingest parses a captured body and merges it into the buffer.
func (i *Interceptor) ingest(url string, body []byte) {
	posts, user := ParsePayload(body)
	if len(posts) == 0 && user == nil {
		return
	}

	i.mu.Lock()
	for _, p := range posts {
		key := p.ID
		if key == "" {
			key = p.Shortcode
		}
		if _, seen := i.posts[key]; !seen {
			i.order = append(i.order, key)
		}
		i.posts[key] = p
	}
	if user != nil {
		i.user = user
	}
	i.mu.Unlock()

	i.logger.Debug().
		Str("url", url).
		Int("posts", len(posts)).
		Bool("user", user != nil).
		Msg("Captured payload")

	// Non-blocking notify; slow consumers just poll Snapshot instead.
	select {
	case i.packets <- Packet{Posts: posts, User: user}:
	default:
	}
}

// Packets returns the delivery channel for newly captured payloads.
func (i *Interceptor) Packets() <-chan Packet {
	return i.packets
}

// Snapshot returns all posts captured since the last reset, in arrival
// order, plus the most recent user block if any.
func (i *Interceptor) Snapshot() ([]models.PostRecord, *models.UserRecord) {
	i.mu.Lock()
	defer i.mu.Unlock()

	posts := make([]models.PostRecord, 0, len(i.order))
	for _, key := range i.order {
		posts = append(posts, i.posts[key])
	}

	var user *models.UserRecord
	if i.user != nil {
		u := *i.user
		user = &u
	}

	return posts, user
}

// Reset clears the accumulated buffer. Called when analytics moves to a
// new profile so one account's timeline never bleeds into another's.
func (i *Interceptor) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.posts = make(map[string]models.PostRecord)
	i.order = nil
	i.user = nil

	i.logger.Debug().Msg("Capture buffer reset")
}
