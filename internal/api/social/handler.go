// Package social serves the follow graph.
package social

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/catchhq/catch-backend/internal/api/httpjson"
	"github.com/catchhq/catch-backend/internal/auth"
	"github.com/catchhq/catch-backend/internal/storage"
)

// Handler holds the dependencies for social endpoints.
type Handler struct {
	Follows storage.FollowStore
	Users   storage.UserStore
	Logger  zerolog.Logger
}

// Follow makes the caller follow the target user.
func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	target := mux.Vars(r)["id"]
	caller := callerID(r)
	if target == caller {
		httpjson.Error(w, http.StatusBadRequest, "cannot follow yourself")
		return
	}
	if _, err := h.Users.GetUser(r.Context(), target); err != nil {
		httpjson.StoreError(w, err)
		return
	}
	if err := h.Follows.Follow(r.Context(), caller, target); err != nil {
		httpjson.StoreError(w, err)
		return
	}
	h.Logger.Info().Str("follower", caller).Str("followee", target).Msg("follow")
	httpjson.Write(w, http.StatusCreated, map[string]bool{"following": true})
}

// Unfollow removes the caller's follow edge to the target.
func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	if err := h.Follows.Unfollow(r.Context(), callerID(r), mux.Vars(r)["id"]); err != nil {
		httpjson.StoreError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]bool{"following": false})
}

// Followers lists who follows the given user.
func (h *Handler) Followers(w http.ResponseWriter, r *http.Request) {
	h.edgeList(w, r, h.Follows.Followers)
}

// Following lists who the given user follows.
func (h *Handler) Following(w http.ResponseWriter, r *http.Request) {
	h.edgeList(w, r, h.Follows.Following)
}

func (h *Handler) edgeList(w http.ResponseWriter, r *http.Request, fetch func(context.Context, string) ([]string, error)) {
	ids, err := fetch(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpjson.StoreError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"count": len(ids), "userIds": ids})
}

func callerID(r *http.Request) string {
	claims, _ := auth.FromContext(r.Context())
	return claims.UserID
}
