package models

import "time"

// PartyParticipant is one member of a listen party. IsConnected tracks
// whether the member currently has a live socket; disconnected members stay
// on the roster until they leave or the party ends.
type PartyParticipant struct {
	UserID      string `json:"userId"`
	Username    string `json:"username,omitempty"`
	IsConnected bool   `json:"isConnected"`
}

// ListenParty is a session where participants' playback follows the host's
// now-playing state. CurrentSong is authoritative and set only through the
// host's sync events; Seq increases by one per accepted sync so stale syncs
// can be rejected.
type ListenParty struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	HostID       string              `json:"hostId"`
	CurrentSong  *NowPlayingSnapshot `json:"currentSong,omitempty"`
	Participants []PartyParticipant  `json:"participants"`
	IsActive     bool                `json:"isActive"`
	Seq          uint64              `json:"seq"`
	CreatedAt    time.Time           `json:"createdAt"`
}

// Clone returns a deep copy safe to hand outside the owning service.
func (p *ListenParty) Clone() *ListenParty {
	copied := *p
	copied.Participants = make([]PartyParticipant, len(p.Participants))
	copy(copied.Participants, p.Participants)
	if p.CurrentSong != nil {
		song := *p.CurrentSong
		copied.CurrentSong = &song
	}
	return &copied
}

// HasParticipant reports whether userID is on the roster.
func (p *ListenParty) HasParticipant(userID string) bool {
	for _, m := range p.Participants {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
