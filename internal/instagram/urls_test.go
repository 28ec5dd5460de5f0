package instagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	// Query and fragment stripped, trailing slash removed, lowercased
	assert.Equal(t, "https://www.instagram.com/natgeo",
		Normalize("https://www.instagram.com/NatGeo/?hl=en"))
	assert.Equal(t, "https://www.instagram.com/p/abc123",
		Normalize("https://www.instagram.com/p/ABC123/#comments"))
	assert.Equal(t, "/natgeo", Normalize("/natgeo/"))
	assert.Equal(t, "/", Normalize("/"))
	assert.Equal(t, "", Normalize(""))
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"https://www.instagram.com/NatGeo/?hl=en",
		"/explore/tags/Art/",
		"https://www.instagram.com/p/abc/",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once))
	}
}

func TestOnHost(t *testing.T) {
	assert.True(t, OnHost("https://www.instagram.com/natgeo/"))
	assert.True(t, OnHost("https://instagram.com/"))
	assert.False(t, OnHost("https://www.example.com/instagram"))
	assert.False(t, OnHost("https://notinstagram.com/"))
}

func TestPathClassifiers(t *testing.T) {
	assert.True(t, IsPostPath("/p/abc123"))
	assert.True(t, IsPostPath("/reel/xyz"))
	assert.True(t, IsPostPath("/natgeo/reels/xyz"))
	assert.False(t, IsPostPath("/natgeo"))

	assert.True(t, IsExplorePath("/explore/tags/art"))
	assert.True(t, IsExplorePath("/explore/search/keyword"))
	assert.False(t, IsExplorePath("/explore"))

	assert.True(t, IsHomePath("/"))
	assert.True(t, IsHomePath(""))
	assert.False(t, IsHomePath("/natgeo"))
}

func TestUsernameFromPath(t *testing.T) {
	u, ok := UsernameFromPath("/natgeo")
	assert.True(t, ok)
	assert.Equal(t, "natgeo", u)

	u, ok = UsernameFromPath("/NatGeo/")
	assert.True(t, ok)
	assert.Equal(t, "natgeo", u)

	// Multi-segment paths are never profiles
	_, ok = UsernameFromPath("/p/abc123")
	assert.False(t, ok)

	// Reserved application segments are rejected
	for _, reserved := range []string{"/explore", "/accounts", "/direct", "/reels", "/stories"} {
		_, ok = UsernameFromPath(reserved)
		assert.False(t, ok, reserved)
	}

	_, ok = UsernameFromPath("/")
	assert.False(t, ok)
}

func TestCleanHandle(t *testing.T) {
	assert.Equal(t, "natgeo", CleanHandle("@natgeo"))
	assert.Equal(t, "art", CleanHandle("#art"))
	assert.Equal(t, "natgeo", CleanHandle("  natgeo  "))
	assert.Equal(t, "natgeo", CleanHandle(" @natgeo "))
	assert.Equal(t, "", CleanHandle(""))
}

func TestCanonicalURLs(t *testing.T) {
	assert.Equal(t, "https://www.instagram.com/natgeo/?hl=en", ProfileURL("@natgeo"))
	assert.Equal(t, "https://www.instagram.com/explore/tags/art/?hl=en", HashtagURL("#art"))
	assert.Equal(t, "https://www.instagram.com/?hl=en", HomeURL())
	assert.Equal(t, "https://www.instagram.com/p/abc123/embed/captioned/", EmbedURL("abc123"))
}
