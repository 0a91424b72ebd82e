// Package presenceapi serves read endpoints over the presence aggregator:
// the online roster and the recent activity feed.
package presenceapi

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/catchhq/catch-backend/internal/api/httpjson"
	"github.com/catchhq/catch-backend/internal/models"
	"github.com/catchhq/catch-backend/internal/realtime"
)

// Handler holds the dependencies for presence endpoints.
type Handler struct {
	Presence *realtime.Presence
	Logger   zerolog.Logger
}

// Online returns the current online roster.
func (h *Handler) Online(w http.ResponseWriter, r *http.Request) {
	online, err := h.Presence.Online(r.Context())
	if err != nil {
		httpjson.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpjson.Write(w, http.StatusOK, online)
}

// Feed returns the bounded activity history, most recent first.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	feed := h.Presence.Recent()
	if feed == nil {
		feed = []models.PresenceRecord{}
	}
	httpjson.Write(w, http.StatusOK, feed)
}
