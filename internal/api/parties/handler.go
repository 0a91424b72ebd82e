// Package parties serves the REST surface over the listen-party service:
// creation and membership for clients that drive parties over HTTP, and
// read endpoints for the party browser and share links.
package parties

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/catchhq/catch-backend/internal/api/httpjson"
	"github.com/catchhq/catch-backend/internal/auth"
	"github.com/catchhq/catch-backend/internal/models"
	"github.com/catchhq/catch-backend/internal/realtime"
)

// Handler holds the dependencies for party endpoints.
type Handler struct {
	Parties *realtime.Parties
	Logger  zerolog.Logger
}

// Create starts a party hosted by the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		httpjson.Error(w, http.StatusBadRequest, "party name cannot be empty")
		return
	}

	party, err := h.Parties.Create(r.Context(), sessionFrom(r), req.Name)
	if err != nil {
		httpjson.Error(w, http.StatusInternalServerError, "failed to create party")
		return
	}
	httpjson.Write(w, http.StatusCreated, party)
}

// List returns every active party.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	parties := h.Parties.List()
	if parties == nil {
		parties = []*models.ListenParty{}
	}
	httpjson.Write(w, http.StatusOK, parties)
}

// Data returns one party, for the party screen and share links.
func (h *Handler) Data(w http.ResponseWriter, r *http.Request) {
	party, err := h.Parties.Get(mux.Vars(r)["id"])
	if err != nil {
		httpjson.Error(w, http.StatusNotFound, "party not found")
		return
	}
	httpjson.Write(w, http.StatusOK, party)
}

// Join adds the caller to a party.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	err := h.Parties.Join(r.Context(), sessionFrom(r), mux.Vars(r)["id"])
	if errors.Is(err, realtime.ErrPartyNotFound) {
		httpjson.Error(w, http.StatusNotFound, "party not found")
		return
	}
	if err != nil {
		httpjson.Error(w, http.StatusInternalServerError, "failed to join party")
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]bool{"joined": true})
}

// Leave removes the caller from their party.
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	err := h.Parties.Leave(r.Context(), sessionFrom(r))
	if errors.Is(err, realtime.ErrNotInParty) {
		httpjson.Error(w, http.StatusConflict, "not in a party")
		return
	}
	if err != nil {
		httpjson.Error(w, http.StatusInternalServerError, "failed to leave party")
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]bool{"left": true})
}

func sessionFrom(r *http.Request) models.Session {
	claims, _ := auth.FromContext(r.Context())
	return models.Session{
		UserID:      claims.UserID,
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
	}
}
