package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/catchhq/catch-backend/internal/models"
)

var (
	// ErrPartyNotFound is returned for joins against unknown or ended parties.
	ErrPartyNotFound = errors.New("party not found")
	// ErrNotHost is returned when a non-host emits a sync for a party.
	ErrNotHost = errors.New("only the host can sync playback")
	// ErrNotInParty is returned for leave or sync without a current party.
	ErrNotInParty = errors.New("not in a party")
)

// Parties owns every active listen party. Parties are ephemeral: they live
// in process memory and die with the host. CurrentSong is authoritative and
// only ever replaced by an accepted host sync, each of which bumps the
// party's sequence so receivers can drop anything stale.
type Parties struct {
	broadcast Broadcaster
	logger    zerolog.Logger

	mu         sync.RWMutex
	parties    map[string]*models.ListenParty
	membership map[string]string // userID -> partyID
}

// NewParties builds the listen-party service.
func NewParties(broadcast Broadcaster, logger zerolog.Logger) *Parties {
	return &Parties{
		broadcast:  broadcast,
		logger:     logger.With().Str("component", "parties").Logger(),
		parties:    make(map[string]*models.ListenParty),
		membership: make(map[string]string),
	}
}

// Create starts a new party hosted by the session user and confirms it with
// a party:joined event. A user already in a party leaves it first; hosting
// and membership are mutually exclusive.
func (s *Parties) Create(ctx context.Context, session models.Session, name string) (*models.ListenParty, error) {
	if name == "" {
		return nil, fmt.Errorf("party name cannot be empty")
	}
	if err := s.Leave(ctx, session); err != nil && !errors.Is(err, ErrNotInParty) {
		return nil, err
	}

	party := &models.ListenParty{
		ID:       uuid.NewString(),
		Name:     name,
		HostID:   session.UserID,
		IsActive: true,
		Participants: []models.PartyParticipant{
			{UserID: session.UserID, Username: session.Username, IsConnected: true},
		},
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.parties[party.ID] = party
	s.membership[session.UserID] = party.ID
	s.mu.Unlock()

	s.logger.Info().Str("party", party.ID).Str("host", session.UserID).Str("name", name).Msg("party created")
	s.send([]string{session.UserID}, models.EventPartyJoined, party.Seq, party.Clone())
	return party.Clone(), nil
}

// Join adds the session user to an existing party. The joiner gets
// party:joined with the full party state; everyone else gets party:updated.
func (s *Parties) Join(ctx context.Context, session models.Session, partyID string) error {
	if err := s.Leave(ctx, session); err != nil && !errors.Is(err, ErrNotInParty) {
		return err
	}

	s.mu.Lock()
	party, ok := s.parties[partyID]
	if !ok || !party.IsActive {
		s.mu.Unlock()
		return ErrPartyNotFound
	}
	if !party.HasParticipant(session.UserID) {
		party.Participants = append(party.Participants, models.PartyParticipant{
			UserID: session.UserID, Username: session.Username, IsConnected: true,
		})
	}
	s.membership[session.UserID] = partyID
	snapshot := party.Clone()
	others := otherParticipants(party, session.UserID)
	s.mu.Unlock()

	s.send([]string{session.UserID}, models.EventPartyJoined, snapshot.Seq, snapshot)
	s.send(others, models.EventPartyUpdated, snapshot.Seq, snapshot)
	return nil
}

// Sync replaces the party's current song from the host's playback snapshot
// and fans out party:sync. Non-host syncs are rejected; there is exactly one
// authoritative song per party.
func (s *Parties) Sync(ctx context.Context, session models.Session, snapshot models.NowPlayingSnapshot) error {
	snapshot.Timestamp = time.Now()

	s.mu.Lock()
	partyID, ok := s.membership[session.UserID]
	if !ok {
		s.mu.Unlock()
		return ErrNotInParty
	}
	party := s.parties[partyID]
	if party.HostID != session.UserID {
		s.mu.Unlock()
		return ErrNotHost
	}
	party.Seq++
	song := snapshot
	party.CurrentSong = &song
	seq := party.Seq
	members := participantIDs(party)
	s.mu.Unlock()

	s.send(members, models.EventPartySync, seq, models.PartySyncPayload{PartyID: partyID, Song: &song})
	return nil
}

// Leave removes the session user from their party. When the host leaves the
// party ends for everyone; the caller's state clears only on the party:left
// event, never optimistically.
func (s *Parties) Leave(ctx context.Context, session models.Session) error {
	s.mu.Lock()
	partyID, ok := s.membership[session.UserID]
	if !ok {
		s.mu.Unlock()
		return ErrNotInParty
	}
	party := s.parties[partyID]
	delete(s.membership, session.UserID)

	if party.HostID == session.UserID {
		members := participantIDs(party)
		for _, id := range members {
			delete(s.membership, id)
		}
		party.IsActive = false
		delete(s.parties, partyID)
		s.mu.Unlock()

		s.logger.Info().Str("party", partyID).Msg("party ended by host")
		s.send(members, models.EventPartyLeft, 0, models.PartyLeftPayload{PartyID: partyID, UserID: session.UserID, Ended: true})
		return nil
	}

	for i, m := range party.Participants {
		if m.UserID == session.UserID {
			party.Participants = append(party.Participants[:i], party.Participants[i+1:]...)
			break
		}
	}
	snapshot := party.Clone()
	remaining := participantIDs(party)
	s.mu.Unlock()

	s.send([]string{session.UserID}, models.EventPartyLeft, 0, models.PartyLeftPayload{PartyID: partyID, UserID: session.UserID})
	s.send(remaining, models.EventPartyUpdated, snapshot.Seq, snapshot)
	return nil
}

// HandleDisconnect reacts to a dropped socket. A disconnected host ends the
// party; an ordinary participant is kept on the roster but flagged
// disconnected so the UI can grey them out.
func (s *Parties) HandleDisconnect(ctx context.Context, session models.Session) {
	s.mu.Lock()
	partyID, ok := s.membership[session.UserID]
	if !ok {
		s.mu.Unlock()
		return
	}
	party := s.parties[partyID]

	if party.HostID == session.UserID {
		members := participantIDs(party)
		for _, id := range members {
			delete(s.membership, id)
		}
		party.IsActive = false
		delete(s.parties, partyID)
		s.mu.Unlock()

		s.logger.Info().Str("party", partyID).Msg("host disconnected, party ended")
		s.send(members, models.EventPartyLeft, 0, models.PartyLeftPayload{PartyID: partyID, UserID: session.UserID, Ended: true})
		return
	}

	for i := range party.Participants {
		if party.Participants[i].UserID == session.UserID {
			party.Participants[i].IsConnected = false
			break
		}
	}
	snapshot := party.Clone()
	others := otherParticipants(party, session.UserID)
	s.mu.Unlock()

	s.send(others, models.EventPartyUpdated, snapshot.Seq, snapshot)
}

// Get returns a snapshot of one party.
func (s *Parties) Get(partyID string) (*models.ListenParty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	party, ok := s.parties[partyID]
	if !ok {
		return nil, ErrPartyNotFound
	}
	return party.Clone(), nil
}

// List returns snapshots of every active party.
func (s *Parties) List() []*models.ListenParty {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ListenParty, 0, len(s.parties))
	for _, party := range s.parties {
		out = append(out, party.Clone())
	}
	return out
}

func (s *Parties) send(userIDs []string, event string, seq uint64, payload any) {
	env, err := models.NewEnvelope(event, seq, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event", event).Msg("encode event failed")
		return
	}
	s.broadcast.SendToUsers(userIDs, env)
}

func participantIDs(party *models.ListenParty) []string {
	ids := make([]string, len(party.Participants))
	for i, m := range party.Participants {
		ids[i] = m.UserID
	}
	return ids
}

func otherParticipants(party *models.ListenParty, exclude string) []string {
	var ids []string
	for _, m := range party.Participants {
		if m.UserID != exclude {
			ids = append(ids, m.UserID)
		}
	}
	return ids
}
