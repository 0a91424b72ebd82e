package parties

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the party endpoints on the authenticated router.
func RegisterRoutes(authed *mux.Router, h *Handler) {
	authed.HandleFunc("/api/v1/parties", h.Create).Methods(http.MethodPost)
	authed.HandleFunc("/api/v1/parties", h.List).Methods(http.MethodGet)
	authed.HandleFunc("/api/v1/parties/{id}", h.Data).Methods(http.MethodGet)
	authed.HandleFunc("/api/v1/parties/{id}/join", h.Join).Methods(http.MethodPost)
	authed.HandleFunc("/api/v1/parties/leave", h.Leave).Methods(http.MethodPost)
}
