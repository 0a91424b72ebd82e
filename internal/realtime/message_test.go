package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/catchhq/catch-backend/internal/models"
	"github.com/catchhq/catch-backend/internal/storage/memory"
)

func newMessages(t *testing.T) (*Messages, *memory.ConversationStore, *recorder) {
	t.Helper()
	rec := &recorder{}
	store := memory.NewConversationStore()
	return NewMessages(store, rec, zerolog.Nop()), store, rec
}

func TestSendEchoesToBothParticipants(t *testing.T) {
	m, store, rec := newMessages(t)
	ctx := context.Background()

	conv, err := store.StartOrGetConversation(ctx, "a", "b")
	if err != nil {
		t.Fatalf("StartOrGetConversation: %v", err)
	}

	msg, err := m.Send(ctx, session("a"), conv.ID, "hey")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.ID == "" || msg.Type != models.MessageText {
		t.Errorf("msg = %+v", msg)
	}

	received := rec.byEvent(models.EventMessageReceived)
	if len(received) != 2 {
		t.Fatalf("echo count = %d, want both participants (sender sees the message only via echo)", len(received))
	}

	stored, err := store.GetMessages(ctx, conv.ID, 0)
	if err != nil || len(stored) != 1 {
		t.Fatalf("stored = %v, %v, want one message", stored, err)
	}
}

func TestSendRejectsOutsiders(t *testing.T) {
	m, store, _ := newMessages(t)
	ctx := context.Background()

	conv, _ := store.StartOrGetConversation(ctx, "a", "b")
	if _, err := m.Send(ctx, session("c"), conv.ID, "hi"); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("outsider send: err = %v, want ErrNotParticipant", err)
	}
	if _, err := m.Send(ctx, session("a"), conv.ID, ""); err == nil {
		t.Error("empty message accepted")
	}
}

func TestSongShareCarriesSnapshot(t *testing.T) {
	m, store, rec := newMessages(t)
	ctx := context.Background()

	conv, _ := store.StartOrGetConversation(ctx, "a", "b")
	song := &models.NowPlayingSnapshot{SongID: "s1", Title: "One", Artist: "Band"}
	if _, err := m.SendSongShare(ctx, session("a"), conv.ID, "listen to this", song); err != nil {
		t.Fatalf("SendSongShare: %v", err)
	}
	if _, err := m.SendSongShare(ctx, session("a"), conv.ID, "no song", nil); err == nil {
		t.Error("song share without song accepted")
	}

	received := rec.byEvent(models.EventMessageReceived)
	var echoed models.ChatMessage
	if err := json.Unmarshal(received[0].env.Data, &echoed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if echoed.Type != models.MessageSongShare || echoed.Song == nil || echoed.Song.SongID != "s1" {
		t.Errorf("echoed = %+v, want song-share with s1", echoed)
	}
}

func TestTypingRelaysToPeerOnly(t *testing.T) {
	m, store, rec := newMessages(t)
	ctx := context.Background()

	conv, _ := store.StartOrGetConversation(ctx, "a", "b")
	if err := m.Typing(ctx, session("a"), conv.ID); err != nil {
		t.Fatalf("Typing: %v", err)
	}

	typing := rec.byEvent(models.EventMessageTyping)
	if len(typing) != 1 || typing[0].userID != "b" {
		t.Fatalf("typing = %v, want one notice to b", typing)
	}
	var notice models.TypingNotice
	if err := json.Unmarshal(typing[0].env.Data, &notice); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if notice.UserID != "a" || notice.ChatID != conv.ID {
		t.Errorf("notice = %+v", notice)
	}

	// Typing notices are never persisted.
	stored, _ := store.GetMessages(ctx, conv.ID, 0)
	if len(stored) != 0 {
		t.Errorf("typing notice was persisted: %v", stored)
	}
}
