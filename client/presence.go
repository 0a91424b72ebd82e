package client

import (
	"sync"

	"github.com/catchhq/catch-backend/internal/models"
)

// maxRecent matches the server-side cap on the recent-activity feed.
const maxRecent = 50

// Presence aggregates friend activity, now-playing snapshots, and the online
// roster as the server pushes them. Updates older than what is already held
// for a user are dropped using the server-assigned per-user seq.
type Presence struct {
	mu     sync.Mutex
	recent []models.PresenceRecord
	online models.OnlineUsers

	nowPlaying map[string]models.NowPlayingSnapshot
	npSeq      map[string]uint64
}

func newPresence() *Presence {
	return &Presence{
		nowPlaying: make(map[string]models.NowPlayingSnapshot),
		npSeq:      make(map[string]uint64),
	}
}

// Recent returns the activity feed, newest first, at most one entry per user.
func (p *Presence) Recent() []models.PresenceRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.PresenceRecord, len(p.recent))
	copy(out, p.recent)
	return out
}

// Online returns the last users:online roster.
func (p *Presence) Online() models.OnlineUsers {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.online
	out.UserIDs = append([]string(nil), p.online.UserIDs...)
	return out
}

// NowPlayingOf returns the freshest playback snapshot known for a user.
func (p *Presence) NowPlayingOf(userID string) (models.NowPlayingSnapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap, ok := p.nowPlaying[userID]
	return snap, ok
}

func (p *Presence) applyActivity(record models.PresenceRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, existing := range p.recent {
		if existing.UserID != record.UserID {
			continue
		}
		if existing.Seq >= record.Seq {
			return
		}
		p.recent = append(p.recent[:i], p.recent[i+1:]...)
		break
	}

	p.recent = append([]models.PresenceRecord{record}, p.recent...)
	if len(p.recent) > maxRecent {
		p.recent = p.recent[:maxRecent]
	}
}

func (p *Presence) applyNowPlaying(userID string, seq uint64, snap models.NowPlayingSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seq <= p.npSeq[userID] {
		return
	}
	p.npSeq[userID] = seq
	p.nowPlaying[userID] = snap
}

func (p *Presence) setOnline(online models.OnlineUsers) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = online
}
