// Package intercept - response payload extraction
package intercept

import (
	"github.com/ysmood/gson"

	"instagram-automation/internal/models"
)

// timelineConnectionPaths are the JSON locations where a post timeline
// connection may live, depending on which API surface served it.
var timelineConnectionPaths = []string{
	"data.xdt_api__v1__feed__user_timeline_graphql_connection",
	"data.user.edge_owner_to_timeline_media",
	"data.xdt_api__v1__feed__user_timeline",
}

// userPaths are the JSON locations where a user block may live.
var userPaths = []string{
	"data.user",
	"data.xdt_api__v1__users__web_profile_info.user",
}

// ParsePayload extracts post records and an optional user record from a
// captured response body. Unknown shapes yield empty results, never an
// error; the capture stream sees plenty of irrelevant GraphQL traffic.
func ParsePayload(body []byte) ([]models.PostRecord, *models.UserRecord) {
	if len(body) == 0 {
		return nil, nil
	}

	root := gson.NewFrom(string(body))

	var posts []models.PostRecord
	for _, path := range timelineConnectionPaths {
		conn := root.Get(path)
		if conn.Nil() {
			continue
		}
		posts = extractPosts(conn)
		if len(posts) > 0 {
			break
		}
	}

	// The profile_grid feed skips the GraphQL envelope entirely and
	// serves posts as a flat top-level items array.
	if len(posts) == 0 {
		if items := root.Get("items"); !items.Nil() {
			posts = extractItems(items)
		}
	}

	var user *models.UserRecord
	for _, path := range userPaths {
		block := root.Get(path)
		if block.Nil() {
			continue
		}
		if u := extractUser(block); !u.IsZero() {
			user = &u
			break
		}
	}

	return posts, user
}

func extractPosts(conn gson.JSON) []models.PostRecord {
	edges := conn.Get("edges")
	if edges.Nil() {
		return nil
	}

	var posts []models.PostRecord
	for _, edge := range edges.Arr() {
		node := edge.Get("node")
		if node.Nil() {
			continue
		}
		if post, ok := postFromNode(node); ok {
			posts = append(posts, post)
		}
	}

	return posts
}

func extractItems(items gson.JSON) []models.PostRecord {
	var posts []models.PostRecord
	for _, item := range items.Arr() {
		if post, ok := postFromNode(item); ok {
			posts = append(posts, post)
		}
	}
	return posts
}

func postFromNode(node gson.JSON) (models.PostRecord, bool) {
	post := models.PostRecord{
		ID:        firstStr(node, "id", "pk"),
		Shortcode: firstStr(node, "code", "shortcode"),
		Likes:     firstInt(node, "like_count", "fb_like_count", "edge_liked_by.count", "edge_media_preview_like.count"),
		Comments:  firstInt(node, "comment_count", "edge_media_to_comment.count"),
		Timestamp: int64(firstInt(node, "taken_at", "taken_at_timestamp")),
		ImageURL:  postImage(node),
	}

	if post.ID == "" && post.Shortcode == "" {
		return models.PostRecord{}, false
	}
	return post, true
}

// postImage picks the best available thumbnail for a post node. Carousel
// posts nest their media one level deeper.
func postImage(node gson.JSON) string {
	if c := node.Get("image_versions2.candidates"); !c.Nil() {
		if arr := c.Arr(); len(arr) > 0 {
			if url := arr[0].Get("url"); !url.Nil() {
				return url.Str()
			}
		}
	}

	if carousel := node.Get("carousel_media"); !carousel.Nil() {
		if arr := carousel.Arr(); len(arr) > 0 {
			if c := arr[0].Get("image_versions2.candidates"); !c.Nil() {
				if cands := c.Arr(); len(cands) > 0 {
					if url := cands[0].Get("url"); !url.Nil() {
						return url.Str()
					}
				}
			}
		}
	}

	return firstStr(node, "display_url", "thumbnail_src")
}

func extractUser(block gson.JSON) models.UserRecord {
	return models.UserRecord{
		ID:        firstStr(block, "id", "pk"),
		Username:  firstStr(block, "username"),
		FullName:  firstStr(block, "full_name"),
		AvatarURL: firstStr(block, "profile_pic_url_hd", "profile_pic_url"),
		Bio:       firstStr(block, "biography"),
		Verified:  boolAt(block, "is_verified"),
		Posts:     firstInt(block, "media_count", "edge_owner_to_timeline_media.count"),
		Followers: firstInt(block, "follower_count", "edge_followed_by.count"),
		Following: firstInt(block, "following_count", "edge_follow.count"),
	}
}

func firstStr(j gson.JSON, paths ...string) string {
	for _, p := range paths {
		v := j.Get(p)
		if v.Nil() {
			continue
		}
		if s := v.Str(); s != "" {
			return s
		}
	}
	return ""
}

func firstInt(j gson.JSON, paths ...string) int {
	for _, p := range paths {
		v := j.Get(p)
		if v.Nil() {
			continue
		}
		if n := v.Int(); n != 0 {
			return n
		}
	}
	return 0
}

func boolAt(j gson.JSON, path string) bool {
	v := j.Get(path)
	if v.Nil() {
		return false
	}
	return v.Bool()
}
