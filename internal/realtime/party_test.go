package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/catchhq/catch-backend/internal/models"
)

func newParties(t *testing.T) (*Parties, *recorder) {
	t.Helper()
	rec := &recorder{}
	return NewParties(rec, zerolog.Nop()), rec
}

func TestCreateConfirmsWithPartyJoined(t *testing.T) {
	s, rec := newParties(t)

	party, err := s.Create(context.Background(), session("host"), "Friday Mix")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if party.Name != "Friday Mix" || party.HostID != "host" || !party.IsActive {
		t.Errorf("party = %+v", party)
	}

	joined := rec.byEvent(models.EventPartyJoined)
	if len(joined) != 1 || joined[0].userID != "host" {
		t.Fatalf("party:joined = %v, want one event to host", joined)
	}
	var confirmed models.ListenParty
	if err := json.Unmarshal(joined[0].env.Data, &confirmed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if confirmed.ID != party.ID || confirmed.Name != "Friday Mix" {
		t.Errorf("confirmed = %+v, want the created party", confirmed)
	}
}

func TestJoinNotifiesRoom(t *testing.T) {
	s, rec := newParties(t)
	ctx := context.Background()

	party, err := s.Create(ctx, session("host"), "Mix")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Join(ctx, session("guest"), party.ID); err != nil {
		t.Fatalf("Join: %v", err)
	}

	joined := rec.byEvent(models.EventPartyJoined)
	if len(joined) != 2 || joined[1].userID != "guest" {
		t.Fatalf("party:joined = %v, want second event to guest", joined)
	}
	updated := rec.byEvent(models.EventPartyUpdated)
	if len(updated) != 1 || updated[0].userID != "host" {
		t.Fatalf("party:updated = %v, want one event to host", updated)
	}

	if err := s.Join(ctx, session("guest"), "missing"); !errors.Is(err, ErrPartyNotFound) {
		t.Errorf("join missing party: err = %v, want ErrPartyNotFound", err)
	}
}

func TestSyncIsHostOnlyAndSequenced(t *testing.T) {
	s, rec := newParties(t)
	ctx := context.Background()

	party, err := s.Create(ctx, session("host"), "Mix")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Join(ctx, session("guest"), party.ID); err != nil {
		t.Fatalf("Join: %v", err)
	}

	if err := s.Sync(ctx, session("guest"), models.NowPlayingSnapshot{SongID: "s1"}); !errors.Is(err, ErrNotHost) {
		t.Errorf("guest sync: err = %v, want ErrNotHost", err)
	}

	if err := s.Sync(ctx, session("host"), models.NowPlayingSnapshot{SongID: "s1", Title: "One"}); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := s.Sync(ctx, session("host"), models.NowPlayingSnapshot{SongID: "s2", Title: "Two"}); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	syncs := rec.byEvent(models.EventPartySync)
	// Two syncs, fanned out to host and guest each.
	if len(syncs) != 4 {
		t.Fatalf("sync fan-out count = %d, want 4", len(syncs))
	}
	if syncs[0].env.Seq != 1 || syncs[3].env.Seq != 2 {
		t.Errorf("seqs = %d..%d, want 1 then 2", syncs[0].env.Seq, syncs[3].env.Seq)
	}

	got, err := s.Get(party.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CurrentSong == nil || got.CurrentSong.SongID != "s2" {
		t.Errorf("CurrentSong = %+v, want s2", got.CurrentSong)
	}
	if got.Seq != 2 {
		t.Errorf("party seq = %d, want 2", got.Seq)
	}
}

// Applying an identical snapshot twice leaves the current song unchanged
// apart from the sequence bump announcing the re-emission.
func TestSyncIdempotentPayload(t *testing.T) {
	s, _ := newParties(t)
	ctx := context.Background()

	party, err := s.Create(ctx, session("host"), "Mix")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	snap := models.NowPlayingSnapshot{SongID: "s1", Title: "One", ProgressSeconds: 12}
	if err := s.Sync(ctx, session("host"), snap); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	first, _ := s.Get(party.ID)

	if err := s.Sync(ctx, session("host"), snap); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	second, _ := s.Get(party.ID)

	if second.CurrentSong.SongID != first.CurrentSong.SongID ||
		second.CurrentSong.Title != first.CurrentSong.Title ||
		second.CurrentSong.ProgressSeconds != first.CurrentSong.ProgressSeconds {
		t.Errorf("second application changed the song: %+v vs %+v", first.CurrentSong, second.CurrentSong)
	}
}

func TestHostLeaveEndsParty(t *testing.T) {
	s, rec := newParties(t)
	ctx := context.Background()

	party, err := s.Create(ctx, session("host"), "Mix")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Join(ctx, session("guest"), party.ID); err != nil {
		t.Fatalf("Join: %v", err)
	}

	if err := s.Leave(ctx, session("host")); err != nil {
		t.Fatalf("Leave: %v", err)
	}

	left := rec.byEvent(models.EventPartyLeft)
	if len(left) != 2 {
		t.Fatalf("party:left count = %d, want both members", len(left))
	}
	var payload models.PartyLeftPayload
	if err := json.Unmarshal(left[0].env.Data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !payload.Ended {
		t.Error("host leave should end the party")
	}

	if _, err := s.Get(party.ID); !errors.Is(err, ErrPartyNotFound) {
		t.Errorf("Get after end: err = %v, want ErrPartyNotFound", err)
	}
	// Guest membership was cleared with the party.
	if err := s.Leave(ctx, session("guest")); !errors.Is(err, ErrNotInParty) {
		t.Errorf("guest leave after end: err = %v, want ErrNotInParty", err)
	}
}

func TestGuestLeaveKeepsParty(t *testing.T) {
	s, rec := newParties(t)
	ctx := context.Background()

	party, err := s.Create(ctx, session("host"), "Mix")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Join(ctx, session("guest"), party.ID); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := s.Leave(ctx, session("guest")); err != nil {
		t.Fatalf("Leave: %v", err)
	}

	got, err := s.Get(party.ID)
	if err != nil {
		t.Fatalf("party should survive a guest leave: %v", err)
	}
	if len(got.Participants) != 1 || got.Participants[0].UserID != "host" {
		t.Errorf("participants = %+v, want host only", got.Participants)
	}

	left := rec.byEvent(models.EventPartyLeft)
	if len(left) != 1 || left[0].userID != "guest" {
		t.Errorf("party:left = %v, want one event to guest", left)
	}
}

func TestHostDisconnectEndsParty(t *testing.T) {
	s, rec := newParties(t)
	ctx := context.Background()

	party, err := s.Create(ctx, session("host"), "Mix")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Join(ctx, session("guest"), party.ID); err != nil {
		t.Fatalf("Join: %v", err)
	}

	s.HandleDisconnect(ctx, session("host"))

	if _, err := s.Get(party.ID); !errors.Is(err, ErrPartyNotFound) {
		t.Errorf("party survived host disconnect: err = %v", err)
	}
	if len(rec.byEvent(models.EventPartyLeft)) != 2 {
		t.Error("party:left not fanned out to all members")
	}
}

func TestGuestDisconnectFlagsParticipant(t *testing.T) {
	s, _ := newParties(t)
	ctx := context.Background()

	party, err := s.Create(ctx, session("host"), "Mix")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Join(ctx, session("guest"), party.ID); err != nil {
		t.Fatalf("Join: %v", err)
	}

	s.HandleDisconnect(ctx, session("guest"))

	got, err := s.Get(party.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	for _, m := range got.Participants {
		if m.UserID == "guest" && m.IsConnected {
			t.Error("guest still flagged connected after disconnect")
		}
	}
}

func TestCreateWhileInPartyLeavesFirst(t *testing.T) {
	s, _ := newParties(t)
	ctx := context.Background()

	first, err := s.Create(ctx, session("host"), "First")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create(ctx, session("host"), "Second"); err != nil {
		t.Fatalf("second Create: %v", err)
	}

	// Hosting two parties at once is impossible; the first ended.
	if _, err := s.Get(first.ID); !errors.Is(err, ErrPartyNotFound) {
		t.Errorf("first party still active: err = %v", err)
	}
	if got := s.List(); len(got) != 1 || got[0].Name != "Second" {
		t.Errorf("List = %+v, want only Second", got)
	}
}
