package presenceapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the presence read endpoints on the authenticated
// router.
func RegisterRoutes(authed *mux.Router, h *Handler) {
	authed.HandleFunc("/api/v1/presence/online", h.Online).Methods(http.MethodGet)
	authed.HandleFunc("/api/v1/presence/feed", h.Feed).Methods(http.MethodGet)
}
