package social

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the social-graph endpoints on the authenticated
// router.
func RegisterRoutes(authed *mux.Router, h *Handler) {
	authed.HandleFunc("/api/v1/users/{id}/follow", h.Follow).Methods(http.MethodPost)
	authed.HandleFunc("/api/v1/users/{id}/follow", h.Unfollow).Methods(http.MethodDelete)
	authed.HandleFunc("/api/v1/users/{id}/followers", h.Followers).Methods(http.MethodGet)
	authed.HandleFunc("/api/v1/users/{id}/following", h.Following).Methods(http.MethodGet)
}
