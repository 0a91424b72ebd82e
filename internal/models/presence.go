package models

import "time"

// ActivityType classifies what a user is currently doing.
type ActivityType string

const (
	ActivityListening ActivityType = "listening"
	ActivityBrowsing  ActivityType = "browsing"
	ActivityCreating  ActivityType = "creating"
	ActivityOnline    ActivityType = "online"
	ActivityOffline   ActivityType = "offline"
)

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityListening, ActivityBrowsing, ActivityCreating, ActivityOnline, ActivityOffline:
		return true
	}
	return false
}

// PresenceRecord is a user's most recently known activity as broadcast to
// their followers. One record per user; last writer wins, gated by Seq.
type PresenceRecord struct {
	UserID       string              `json:"userId"`
	Username     string              `json:"username,omitempty"`
	ActivityType ActivityType        `json:"activityType"`
	Details      string              `json:"details,omitempty"`
	SongSnapshot *NowPlayingSnapshot `json:"songSnapshot,omitempty"`
	Seq          uint64              `json:"seq"`
	Timestamp    time.Time           `json:"timestamp"`
}

// NowPlayingSnapshot is an ephemeral record of a single playback instant.
// Every emission supersedes the previous one; nothing merges snapshots.
type NowPlayingSnapshot struct {
	SongID          string    `json:"songId"`
	Title           string    `json:"title"`
	Artist          string    `json:"artist"`
	Album           string    `json:"album,omitempty"`
	CoverURL        string    `json:"coverUrl,omitempty"`
	IsPlaying       bool      `json:"isPlaying"`
	ProgressSeconds float64   `json:"progressSeconds"`
	Timestamp       time.Time `json:"timestamp"`
}

// OnlineUsers is the payload of a users:online fan-out.
type OnlineUsers struct {
	Count   int      `json:"count"`
	UserIDs []string `json:"userIds"`
}
