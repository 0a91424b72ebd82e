// Package messages serves the conversation REST surface: thread bootstrap,
// listing, history, and HTTP-initiated sends. Live delivery rides the
// socket; these endpoints exist for page loads and clients without one.
package messages

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/catchhq/catch-backend/internal/api/httpjson"
	"github.com/catchhq/catch-backend/internal/auth"
	"github.com/catchhq/catch-backend/internal/models"
	"github.com/catchhq/catch-backend/internal/realtime"
	"github.com/catchhq/catch-backend/internal/storage"
)

// defaultHistoryLimit bounds a history page when the client does not ask
// for a specific size.
const defaultHistoryLimit = 100

// Handler holds the dependencies for messaging endpoints.
type Handler struct {
	Store    storage.ConversationStore
	Messages *realtime.Messages
	Logger   zerolog.Logger
}

// Start opens (or returns) the thread between the caller and another user.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := httpjson.Decode(r, &req); err != nil || req.UserID == "" {
		httpjson.Error(w, http.StatusBadRequest, "userId is required")
		return
	}

	caller := callerID(r)
	if req.UserID == caller {
		httpjson.Error(w, http.StatusBadRequest, "cannot message yourself")
		return
	}

	conv, err := h.Store.StartOrGetConversation(r.Context(), caller, req.UserID)
	if err != nil {
		httpjson.StoreError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, conv)
}

// List returns the caller's threads.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	convs, err := h.Store.ListConversations(r.Context(), callerID(r))
	if err != nil {
		httpjson.StoreError(w, err)
		return
	}
	if convs == nil {
		convs = []*models.Conversation{}
	}
	httpjson.Write(w, http.StatusOK, convs)
}

// History returns a page of messages for one thread.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]
	conv, err := h.Store.GetConversation(r.Context(), chatID)
	if err != nil {
		httpjson.StoreError(w, err)
		return
	}
	if conv.Other(callerID(r)) == "" {
		httpjson.Error(w, http.StatusForbidden, "not a participant")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	msgs, err := h.Store.GetMessages(r.Context(), chatID, limit)
	if err != nil {
		httpjson.StoreError(w, err)
		return
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	httpjson.Write(w, http.StatusOK, msgs)
}

// Send delivers a message through the same service the socket uses, so the
// echo fan-out happens regardless of which transport carried the send.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.MessageSendRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims, _ := auth.FromContext(r.Context())
	session := models.Session{UserID: claims.UserID, Username: claims.Username, DisplayName: claims.DisplayName}

	var msg *models.ChatMessage
	var err error
	if req.Song != nil {
		msg, err = h.Messages.SendSongShare(r.Context(), session, req.ChatID, req.Content, req.Song)
	} else {
		msg, err = h.Messages.Send(r.Context(), session, req.ChatID, req.Content)
	}
	switch {
	case errors.Is(err, realtime.ErrNotParticipant):
		httpjson.Error(w, http.StatusForbidden, "not a participant")
	case errors.Is(err, storage.ErrNotFound):
		httpjson.Error(w, http.StatusNotFound, "conversation not found")
	case err != nil:
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	default:
		httpjson.Write(w, http.StatusCreated, msg)
	}
}

func callerID(r *http.Request) string {
	claims, _ := auth.FromContext(r.Context())
	return claims.UserID
}
