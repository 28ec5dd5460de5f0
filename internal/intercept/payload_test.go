package intercept

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayloadModernTimeline(t *testing.T) {
	body := `{
		"data": {
			"xdt_api__v1__feed__user_timeline_graphql_connection": {
				"edges": [
					{"node": {
						"pk": "111",
						"code": "AbC123",
						"like_count": 540,
						"comment_count": 32,
						"taken_at": 1700000000,
						"image_versions2": {"candidates": [{"url": "https://cdn/img1.jpg"}]}
					}},
					{"node": {
						"pk": "222",
						"code": "DeF456",
						"like_count": 120,
						"comment_count": 8,
						"taken_at": 1699990000,
						"carousel_media": [
							{"image_versions2": {"candidates": [{"url": "https://cdn/img2.jpg"}]}}
						]
					}}
				]
			}
		}
	}`

	posts, user := ParsePayload([]byte(body))
	require.Len(t, posts, 2)
	assert.Nil(t, user)

	assert.Equal(t, "111", posts[0].ID)
	assert.Equal(t, "AbC123", posts[0].Shortcode)
	assert.Equal(t, 540, posts[0].Likes)
	assert.Equal(t, 32, posts[0].Comments)
	assert.Equal(t, int64(1700000000), posts[0].Timestamp)
	assert.Equal(t, "https://cdn/img1.jpg", posts[0].ImageURL)

	// Carousel posts nest their media one level deeper
	assert.Equal(t, "https://cdn/img2.jpg", posts[1].ImageURL)
}

func TestParsePayloadLegacyTimeline(t *testing.T) {
	body := `{
		"data": {
			"user": {
				"edge_owner_to_timeline_media": {
					"edges": [
						{"node": {
							"id": "333",
							"shortcode": "GhI789",
							"edge_liked_by": {"count": 77},
							"edge_media_to_comment": {"count": 5},
							"taken_at_timestamp": 1698000000,
							"display_url": "https://cdn/img3.jpg"
						}}
					]
				}
			}
		}
	}`

	posts, user := ParsePayload([]byte(body))
	require.Len(t, posts, 1)
	// The legacy user block carries no identity fields
	assert.Nil(t, user)

	assert.Equal(t, "333", posts[0].ID)
	assert.Equal(t, "GhI789", posts[0].Shortcode)
	assert.Equal(t, 77, posts[0].Likes)
	assert.Equal(t, 5, posts[0].Comments)
	assert.Equal(t, "https://cdn/img3.jpg", posts[0].ImageURL)
}

func TestParsePayloadWebProfileInfo(t *testing.T) {
	body := `{
		"data": {
			"xdt_api__v1__users__web_profile_info": {
				"user": {
					"pk": "999",
					"username": "natgeo",
					"full_name": "National Geographic",
					"profile_pic_url_hd": "https://cdn/avatar.jpg",
					"biography": "Experience the world",
					"is_verified": true,
					"media_count": 1204,
					"follower_count": 5600000,
					"following_count": 312
				}
			}
		}
	}`

	posts, user := ParsePayload([]byte(body))
	assert.Empty(t, posts)
	require.NotNil(t, user)

	assert.Equal(t, "999", user.ID)
	assert.Equal(t, "natgeo", user.Username)
	assert.Equal(t, "National Geographic", user.FullName)
	assert.Equal(t, "https://cdn/avatar.jpg", user.AvatarURL)
	assert.Equal(t, "Experience the world", user.Bio)
	assert.True(t, user.Verified)
	assert.Equal(t, 1204, user.Posts)
	assert.Equal(t, 5600000, user.Followers)
	assert.Equal(t, 312, user.Following)
}

func TestParsePayloadIgnoresUnknownShapes(t *testing.T) {
	posts, user := ParsePayload([]byte(`{"data": {"viewer": {"id": "1"}}}`))
	assert.Empty(t, posts)
	assert.Nil(t, user)

	posts, user = ParsePayload([]byte(`not even json`))
	assert.Empty(t, posts)
	assert.Nil(t, user)

	posts, user = ParsePayload(nil)
	assert.Empty(t, posts)
	assert.Nil(t, user)
}

func TestParsePayloadProfileGridItems(t *testing.T) {
	body := `{
		"items": [
			{
				"id": "3100_999",
				"code": "Grid01",
				"fb_like_count": 77,
				"comment_count": 4,
				"taken_at": 1700050000,
				"image_versions2": {"candidates": [{"url": "https://cdn/grid1.jpg"}]}
			},
			{
				"pk": "3101",
				"code": "Grid02",
				"like_count": 15,
				"taken_at": 1700040000,
				"carousel_media": [
					{"image_versions2": {"candidates": [{"url": "https://cdn/grid2.jpg"}]}}
				]
			}
		]
	}`

	posts, user := ParsePayload([]byte(body))
	assert.Nil(t, user)
	require.Len(t, posts, 2)
	assert.Equal(t, "Grid01", posts[0].Shortcode)
	assert.Equal(t, 77, posts[0].Likes)
	assert.Equal(t, "https://cdn/grid1.jpg", posts[0].ImageURL)
	assert.Equal(t, "Grid02", posts[1].Shortcode)
	assert.Equal(t, 15, posts[1].Likes)
	assert.Equal(t, "https://cdn/grid2.jpg", posts[1].ImageURL)
}

func TestParsePayloadSkipsNodesWithoutIdentity(t *testing.T) {
	body := `{
		"data": {
			"xdt_api__v1__feed__user_timeline": {
				"edges": [
					{"node": {"like_count": 10}},
					{"node": {"code": "ok1", "like_count": 20}}
				]
			}
		}
	}`

	posts, _ := ParsePayload([]byte(body))
	require.Len(t, posts, 1)
	assert.Equal(t, "ok1", posts[0].Shortcode)
}
