package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/catchhq/catch-backend/internal/auth"
	"github.com/catchhq/catch-backend/internal/models"
	"github.com/catchhq/catch-backend/internal/realtime"
	"github.com/catchhq/catch-backend/internal/storage/memory"
	"github.com/catchhq/catch-backend/internal/telemetry"
)

var testSecret = []byte("ws-test-secret")

type testStack struct {
	server  *httptest.Server
	hub     *Hub
	follows *memory.FollowStore
	convs   *memory.ConversationStore
	parties *realtime.Parties
}

func newStack(t *testing.T) *testStack {
	t.Helper()

	logger := zerolog.Nop()
	metrics := telemetry.New()
	hub := NewHub(logger, metrics)

	follows := memory.NewFollowStore()
	convs := memory.NewConversationStore()
	presence := realtime.NewPresence(memory.NewPresenceStore(), follows, hub, logger)
	parties := realtime.NewParties(hub, logger)
	messages := realtime.NewMessages(convs, hub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	handler := NewHandler(hub, presence, parties, messages, logger, metrics,
		func(*http.Request) bool { return true })

	mux := http.NewServeMux()
	mux.Handle("/ws", auth.Middleware(testSecret)(http.HandlerFunc(handler.ServeWS)))
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return &testStack{server: server, hub: hub, follows: follows, convs: convs, parties: parties}
}

func (s *testStack) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()

	token, err := auth.Issue(testSecret, auth.Claims{UserID: userID, Username: userID}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", userID, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// waitFor reads frames until one matches the event name or the deadline
// passes. Unrelated frames (online rosters and the like) are skipped.
func waitFor(t *testing.T, conn *websocket.Conn, event string) models.Envelope {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		var env models.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("waiting for %s: %v", event, err)
		}
		if env.Event == event {
			return env
		}
	}
	t.Fatalf("no %s event before deadline", event)
	return models.Envelope{}
}

func send(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	env, err := models.NewEnvelope(event, 0, payload)
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if err := conn.WriteJSON(env); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

func TestSessionReceivesOnlineRoster(t *testing.T) {
	s := newStack(t)
	conn := s.dial(t, "alice")

	env := waitFor(t, conn, models.EventUsersOnline)
	var online models.OnlineUsers
	if err := json.Unmarshal(env.Data, &online); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if online.Count != 1 || online.UserIDs[0] != "alice" {
		t.Errorf("online = %+v, want just alice", online)
	}
}

func TestActivityUpdateEchoesToSelf(t *testing.T) {
	s := newStack(t)
	conn := s.dial(t, "alice")
	waitFor(t, conn, models.EventUsersOnline)

	send(t, conn, models.EventActivityUpdate, models.ActivityUpdateRequest{
		ActivityType: models.ActivityListening, Details: "Song X",
	})

	env := waitFor(t, conn, models.EventFriendActivity)
	var record models.PresenceRecord
	if err := json.Unmarshal(env.Data, &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if record.UserID != "alice" || record.Details != "Song X" {
		t.Errorf("record = %+v", record)
	}
	if env.Seq == 0 {
		t.Error("activity event missing sequence number")
	}
}

func TestNowPlayingReachesFollowers(t *testing.T) {
	s := newStack(t)
	if err := s.follows.Follow(context.Background(), "bob", "alice"); err != nil {
		t.Fatalf("Follow: %v", err)
	}

	alice := s.dial(t, "alice")
	bob := s.dial(t, "bob")
	waitFor(t, bob, models.EventUsersOnline)

	send(t, alice, models.EventNowPlaying, models.NowPlayingSnapshot{
		SongID: "s1", Title: "One", Artist: "Band", IsPlaying: true,
	})

	env := waitFor(t, bob, models.EventFriendNowPlaying)
	var payload struct {
		UserID string                    `json:"userId"`
		Song   models.NowPlayingSnapshot `json:"song"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.UserID != "alice" || payload.Song.SongID != "s1" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestPartyLifecycleOverSocket(t *testing.T) {
	s := newStack(t)
	host := s.dial(t, "host")
	guest := s.dial(t, "guest")
	waitFor(t, host, models.EventUsersOnline)
	waitFor(t, guest, models.EventUsersOnline)

	send(t, host, models.EventPartyCreate, models.PartyCreateRequest{Name: "Friday Mix"})
	joined := waitFor(t, host, models.EventPartyJoined)

	var party models.ListenParty
	if err := json.Unmarshal(joined.Data, &party); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if party.Name != "Friday Mix" || party.HostID != "host" {
		t.Errorf("party = %+v", party)
	}

	send(t, guest, models.EventPartyJoin, models.PartyJoinRequest{PartyID: party.ID})
	waitFor(t, guest, models.EventPartyJoined)

	// Host playback drives party:sync for everyone in the room.
	send(t, host, models.EventNowPlaying, models.NowPlayingSnapshot{SongID: "s9", Title: "Nine"})
	sync := waitFor(t, guest, models.EventPartySync)
	var syncPayload models.PartySyncPayload
	if err := json.Unmarshal(sync.Data, &syncPayload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if syncPayload.Song == nil || syncPayload.Song.SongID != "s9" {
		t.Errorf("sync = %+v", syncPayload)
	}
	if sync.Seq == 0 {
		t.Error("party:sync missing sequence number")
	}

	// Host hangup ends the party for the guest.
	_ = host.Close()
	left := waitFor(t, guest, models.EventPartyLeft)
	var leftPayload models.PartyLeftPayload
	if err := json.Unmarshal(left.Data, &leftPayload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !leftPayload.Ended {
		t.Error("host disconnect should end the party")
	}
}

func TestMessageRoundTrip(t *testing.T) {
	s := newStack(t)
	conv, err := s.convs.StartOrGetConversation(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("StartOrGetConversation: %v", err)
	}

	alice := s.dial(t, "alice")
	bob := s.dial(t, "bob")
	waitFor(t, alice, models.EventUsersOnline)
	waitFor(t, bob, models.EventUsersOnline)

	send(t, alice, models.EventMessageSend, models.MessageSendRequest{ChatID: conv.ID, Content: "hey"})

	// Pessimistic echo: the sender sees the message only via the server echo.
	echoed := waitFor(t, alice, models.EventMessageReceived)
	var msg models.ChatMessage
	if err := json.Unmarshal(echoed.Data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Content != "hey" || msg.SenderID != "alice" {
		t.Errorf("msg = %+v", msg)
	}
	waitFor(t, bob, models.EventMessageReceived)

	send(t, alice, models.EventMessageSend, models.MessageSendRequest{ChatID: conv.ID, Typing: true})
	typing := waitFor(t, bob, models.EventMessageTyping)
	var notice models.TypingNotice
	if err := json.Unmarshal(typing.Data, &notice); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if notice.UserID != "alice" {
		t.Errorf("notice = %+v", notice)
	}
}

func TestTeardownStopsDelivery(t *testing.T) {
	s := newStack(t)
	conn := s.dial(t, "alice")
	waitFor(t, conn, models.EventUsersOnline)

	_ = conn.Close()
	waitOffline(t, s.hub, "alice")

	// Events queued after teardown must neither panic nor resurrect the
	// session.
	env, _ := models.NewEnvelope(models.EventFriendActivity, 1, nil)
	s.hub.SendToUser("alice", env)
	s.hub.SendToUsers([]string{"alice", "nobody"}, env)

	if s.hub.IsOnline("alice") {
		t.Error("alice still online after teardown")
	}
}

func TestShutdownUnblocksTeardown(t *testing.T) {
	hub := NewHub(zerolog.Nop(), telemetry.New())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	// A connection's teardown goroutine may still be draining when the hub
	// stops; its Unregister must return rather than block on the dead loop.
	finished := make(chan struct{})
	go func() {
		hub.Unregister(newClient(models.Session{UserID: "alice"}, nil))
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Unregister blocked after hub shutdown")
	}
}

func waitOffline(t *testing.T, hub *Hub, userID string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if !hub.IsOnline(userID) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("%s never detached", userID)
}
