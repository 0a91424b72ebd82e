package messages

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/catchhq/catch-backend/internal/auth"
	"github.com/catchhq/catch-backend/internal/models"
	"github.com/catchhq/catch-backend/internal/realtime"
	"github.com/catchhq/catch-backend/internal/storage/memory"
)

var secret = []byte("messages-test")

type nopBroadcaster struct{}

func (nopBroadcaster) SendToUser(string, models.Envelope)    {}
func (nopBroadcaster) SendToUsers([]string, models.Envelope) {}

func newRouter(t *testing.T) *mux.Router {
	t.Helper()
	store := memory.NewConversationStore()
	h := &Handler{
		Store:    store,
		Messages: realtime.NewMessages(store, nopBroadcaster{}, zerolog.Nop()),
		Logger:   zerolog.Nop(),
	}
	router := mux.NewRouter()
	authed := router.NewRoute().Subrouter()
	authed.Use(auth.Middleware(secret))
	RegisterRoutes(authed, h)
	return router
}

func do(t *testing.T, router *mux.Router, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	token, err := auth.Issue(secret, auth.Claims{UserID: userID, Username: userID}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestStartSendHistory(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/api/v1/messages/start", "alice", map[string]string{"userId": "bob"})
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d, body %s", rec.Code, rec.Body)
	}
	var conv models.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &conv); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rec = do(t, router, http.MethodPost, "/api/v1/messages/send", "alice",
		models.MessageSendRequest{ChatID: conv.ID, Content: "hey"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("send status = %d, body %s", rec.Code, rec.Body)
	}

	rec = do(t, router, http.MethodGet, "/api/v1/messages/"+conv.ID+"/history", "bob", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d, body %s", rec.Code, rec.Body)
	}
	var history []models.ChatMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(history) != 1 || history[0].Content != "hey" {
		t.Errorf("history = %+v", history)
	}
}

func TestHistoryForbiddenForOutsiders(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/api/v1/messages/start", "alice", map[string]string{"userId": "bob"})
	var conv models.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &conv); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rec = do(t, router, http.MethodGet, "/api/v1/messages/"+conv.ID+"/history", "mallory", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("outsider history status = %d, want 403", rec.Code)
	}
	rec = do(t, router, http.MethodPost, "/api/v1/messages/send", "mallory",
		models.MessageSendRequest{ChatID: conv.ID, Content: "hi"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("outsider send status = %d, want 403", rec.Code)
	}
}

func TestStartRejectsSelf(t *testing.T) {
	router := newRouter(t)
	rec := do(t, router, http.MethodPost, "/api/v1/messages/start", "alice", map[string]string{"userId": "alice"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSongShareOverREST(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/api/v1/messages/start", "alice", map[string]string{"userId": "bob"})
	var conv models.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &conv); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rec = do(t, router, http.MethodPost, "/api/v1/messages/send", "alice", models.MessageSendRequest{
		ChatID:  conv.ID,
		Content: "this one",
		Song:    &models.NowPlayingSnapshot{SongID: "s1", Title: "One", Artist: "Band"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("song share status = %d, body %s", rec.Code, rec.Body)
	}
	var msg models.ChatMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != models.MessageSongShare || msg.Song == nil {
		t.Errorf("msg = %+v, want song-share", msg)
	}
}
