package messages

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the messaging endpoints on the authenticated router.
func RegisterRoutes(authed *mux.Router, h *Handler) {
	authed.HandleFunc("/api/v1/messages/start", h.Start).Methods(http.MethodPost)
	authed.HandleFunc("/api/v1/messages", h.List).Methods(http.MethodGet)
	authed.HandleFunc("/api/v1/messages/{id}/history", h.History).Methods(http.MethodGet)
	authed.HandleFunc("/api/v1/messages/send", h.Send).Methods(http.MethodPost)
}
