package store

import (
	"time"

	"instagram-automation/internal/models"
)

// Typed accessors over the KV layer. Handlers mutate durable state
// through these so every write lands in one place and watchers fire.

// AppendLog prepends a log entry to the bounded activity feed.
func (s *Store) AppendLog(message string, severity models.LogSeverity) error {
	var logs []models.LogEntry
	if _, err := s.Get(KeyLogs, &logs); err != nil {
		return err
	}

	logs = models.PrependLog(logs, models.LogEntry{
		Time:     time.Now().Format("15:04:05"),
		Message:  message,
		Severity: severity,
	})

	return s.Set(KeyLogs, logs)
}

// Stats returns the lifetime action counters.
func (s *Store) Stats() (models.BotStats, error) {
	var stats models.BotStats
	_, err := s.Get(KeyStats, &stats)
	return stats, err
}

// BumpStat increments one counter in the lifetime stats.
func (s *Store) BumpStat(bump func(*models.BotStats)) error {
	stats, err := s.Stats()
	if err != nil {
		return err
	}
	bump(&stats)
	return s.Set(KeyStats, stats)
}

// History returns the processed-URL ring.
func (s *Store) History() ([]string, error) {
	var history []string
	_, err := s.Get(KeyProcessedHistory, &history)
	return history, err
}

// AddHistory records a normalized URL as processed.
func (s *Store) AddHistory(url string) error {
	history, err := s.History()
	if err != nil {
		return err
	}
	return s.Set(KeyProcessedHistory, models.PrependHistory(history, url))
}

// InHistory reports whether a normalized URL was already processed.
func (s *Store) InHistory(url string) (bool, error) {
	history, err := s.History()
	if err != nil {
		return false, err
	}
	return models.HistoryContains(history, url), nil
}

// FollowedUsers returns the tracked followed-user ledger.
func (s *Store) FollowedUsers() ([]models.FollowedUser, error) {
	var users []models.FollowedUser
	_, err := s.Get(KeyFollowedUsers, &users)
	return users, err
}

// SaveFollowed prepends a user to the followed ledger.
func (s *Store) SaveFollowed(user models.FollowedUser) error {
	users, err := s.FollowedUsers()
	if err != nil {
		return err
	}
	return s.Set(KeyFollowedUsers, models.PrependFollowed(users, user))
}

// RemoveFollowed drops a user from the ledger after an unfollow.
func (s *Store) RemoveFollowed(username string) error {
	users, err := s.FollowedUsers()
	if err != nil {
		return err
	}
	return s.Set(KeyFollowedUsers, models.RemoveFollowed(users, username))
}

// IsRunning reads the activation flag.
func (s *Store) IsRunning() (bool, error) {
	var running bool
	_, err := s.Get(KeyIsRunning, &running)
	return running, err
}

// SetRunning flips the activation flag.
func (s *Store) SetRunning(v bool) error {
	return s.Set(KeyIsRunning, v)
}

// BotConfig reads the feature toggles.
func (s *Store) BotConfig() (models.BotConfig, error) {
	var cfg models.BotConfig
	_, err := s.Get(KeyBotConfig, &cfg)
	return cfg, err
}

// Delays reads the pacing configuration, normalized.
func (s *Store) Delays() (models.DelayConfig, error) {
	var d models.DelayConfig
	found, err := s.Get(KeyDelays, &d)
	if err != nil {
		return models.DefaultDelays(), err
	}
	if !found {
		return models.DefaultDelays(), nil
	}
	return d.Normalize(), nil
}

// TargetLists reads the hashtag and competitor target lists.
func (s *Store) TargetLists() (hashtags, competitors []string, err error) {
	if _, err = s.Get(KeyTargetHashtags, &hashtags); err != nil {
		return nil, nil, err
	}
	if _, err = s.Get(KeyTargetCompetitors, &competitors); err != nil {
		return nil, nil, err
	}
	return hashtags, competitors, nil
}
