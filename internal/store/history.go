// Package store - follower-history time series (one row per day).
package store

import (
	"fmt"

	"instagram-automation/internal/models"
)

// UpsertFollowerPoint records today's follower snapshot, replacing an
// existing row for the same date.
func (s *Store) UpsertFollowerPoint(p models.FollowerPoint) error {
	if s.isClosed() {
		return ErrClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO follower_history (date, followers, following, posts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			followers = excluded.followers,
			following = excluded.following,
			posts = excluded.posts
	`, p.Date, p.Followers, p.Following, p.Posts)
	if err != nil {
		return fmt.Errorf("failed to upsert follower history: %w", err)
	}

	return nil
}

// FollowerHistory returns the most recent points, newest first, capped at
// the retention window.
func (s *Store) FollowerHistory() ([]models.FollowerPoint, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(`
		SELECT date, followers, following, posts
		FROM follower_history
		ORDER BY date DESC
		LIMIT ?
	`, models.MaxHistoryDays)
	if err != nil {
		return nil, fmt.Errorf("failed to query follower history: %w", err)
	}
	defer rows.Close()

	var points []models.FollowerPoint
	for rows.Next() {
		var p models.FollowerPoint
		if err := rows.Scan(&p.Date, &p.Followers, &p.Following, &p.Posts); err != nil {
			return nil, fmt.Errorf("failed to scan follower history: %w", err)
		}
		points = append(points, p)
	}

	return points, rows.Err()
}

// GrowthStat returns the follower delta between the two most recent
// history points, or 0 when fewer than two exist.
func (s *Store) GrowthStat() (int, error) {
	points, err := s.FollowerHistory()
	if err != nil {
		return 0, err
	}
	if len(points) < 2 {
		return 0, nil
	}
	return points[0].Followers - points[1].Followers, nil
}
