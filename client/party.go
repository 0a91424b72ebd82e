package client

import (
	"sync"

	"github.com/catchhq/catch-backend/internal/models"
)

// PartyPhase is where the local user stands relative to listen parties.
type PartyPhase int

const (
	// PartyIdle means not in any party.
	PartyIdle PartyPhase = iota
	// PartyHosting means a create was emitted or confirmed with the local
	// user as host. Until party:joined arrives the party itself is still
	// unknown and Current returns nil.
	PartyHosting
	// PartyJoined means the local user is a confirmed guest.
	PartyJoined
)

func (p PartyPhase) String() string {
	switch p {
	case PartyHosting:
		return "hosting"
	case PartyJoined:
		return "joined"
	}
	return "idle"
}

// Party is the client-side listen-party state machine. Every transition is
// driven by a server event; emits alone never change what Current returns.
type Party struct {
	ownUserID string

	mu      sync.Mutex
	phase   PartyPhase
	current *models.ListenParty
	lastSeq uint64
}

func newParty(ownUserID string) *Party {
	return &Party{ownUserID: ownUserID}
}

// Phase returns the current phase.
func (p *Party) Phase() PartyPhase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// Current returns a copy of the confirmed party, or nil when there is none
// yet. While a create is pending the phase is already Hosting but Current is
// still nil.
func (p *Party) Current() *models.ListenParty {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	return p.current.Clone()
}

func (p *Party) markHostingPending() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phase = PartyHosting
	p.current = nil
	p.lastSeq = 0
}

func (p *Party) handleJoined(seq uint64, party *models.ListenParty) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = party
	p.lastSeq = seq
	if party.HostID == p.ownUserID {
		p.phase = PartyHosting
	} else {
		p.phase = PartyJoined
	}
}

func (p *Party) handleUpdated(seq uint64, party *models.ListenParty) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.current.ID != party.ID {
		return
	}
	// Roster changes do not bump the party seq, so equal is fresh enough.
	if seq < p.lastSeq {
		return
	}
	p.current = party
	p.lastSeq = seq
}

func (p *Party) handleSync(seq uint64, payload models.PartySyncPayload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.current.ID != payload.PartyID {
		return
	}
	// A replayed or out-of-order sync carries a seq we have already seen.
	if seq <= p.lastSeq {
		return
	}
	p.current.CurrentSong = payload.Song
	p.current.Seq = seq
	p.lastSeq = seq
}

func (p *Party) handleLeft(payload models.PartyLeftPayload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if payload.Ended || payload.UserID == p.ownUserID || payload.UserID == "" {
		p.phase = PartyIdle
		p.current = nil
		p.lastSeq = 0
	}
}

func (p *Party) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phase = PartyIdle
	p.current = nil
	p.lastSeq = 0
}
