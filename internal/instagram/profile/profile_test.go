package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"instagram-automation/internal/instagram/domx"
)

// The unfollow flow keys two decisions off the button row: whether a
// confirm click verified (follow button reappeared) and whether a
// missing following button means the user is already unfollowed. Both
// must read false on a row that still shows the following state, or a
// confirm that never landed would drop the record anyway.
func TestFollowPresent(t *testing.T) {
	stillFollowing := []domx.Candidate{
		{Text: "Message", Visible: true},
		{Text: "Following", Visible: true},
	}
	assert.False(t, followPresent(stillFollowing))

	unfollowed := []domx.Candidate{
		{Text: "Message", Visible: true},
		{Text: "Follow", Visible: true},
	}
	assert.True(t, followPresent(unfollowed))

	// A half-rendered page with no buttons at all is not proof of either
	// state.
	assert.False(t, followPresent(nil))

	// An invisible follow button does not count as a verified state.
	hidden := []domx.Candidate{{Text: "Follow", Visible: false}}
	assert.False(t, followPresent(hidden))
}
