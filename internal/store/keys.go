// Package store - key names shared across components. Each logical key
// has a single steady-state writer; access is last-write-wins.
package store

const (
	KeyIsRunning         = "isRunning"
	KeyStats             = "stats"
	KeyLogs              = "logs"
	KeyBotConfig         = "botConfig"
	KeyDelays            = "delays"
	KeyTargetHashtags    = "targetHashtags"
	KeyTargetCompetitors = "targetCompetitors"
	KeyFollowedUsers     = "followedUsers"
	KeyProcessedHistory  = "processedHistory"
	KeyLastNavTime       = "lastNavTime"
	KeyLastChaosTime     = "lastChaosTime"
	KeyCurrentUserStats  = "currentUserStats"
	KeyCompetitorStats   = "competitorStats"
	KeyBotStartTime      = "botStartTime"
	KeyLastKnownUsername = "lastKnownUsername"
)
