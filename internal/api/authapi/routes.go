package authapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the auth endpoints. Signup and login are public;
// everything behind authed already passed the bearer middleware.
func RegisterRoutes(public, authed *mux.Router, h *Handler) {
	public.HandleFunc("/api/v1/auth/signup", h.Signup).Methods(http.MethodPost)
	public.HandleFunc("/api/v1/auth/login", h.Login).Methods(http.MethodPost)
	authed.HandleFunc("/api/v1/auth/me", h.Me).Methods(http.MethodGet)
}
