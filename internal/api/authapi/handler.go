// Package authapi serves signup, login, and session introspection.
package authapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/catchhq/catch-backend/internal/api/httpjson"
	"github.com/catchhq/catch-backend/internal/auth"
	"github.com/catchhq/catch-backend/internal/models"
	"github.com/catchhq/catch-backend/internal/storage"
)

// Handler holds the dependencies for the auth endpoints.
type Handler struct {
	Users    storage.UserStore
	Secret   []byte
	TokenTTL time.Duration
	Logger   zerolog.Logger
}

type credentials struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Signup registers an account and returns a fresh session token.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		httpjson.Error(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if len(req.Password) < 8 {
		httpjson.Error(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httpjson.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if user.DisplayName == "" {
		user.DisplayName = user.Username
	}
	if err := h.Users.CreateUser(r.Context(), user); err != nil {
		httpjson.StoreError(w, err)
		return
	}

	h.Logger.Info().Str("user", user.ID).Str("username", user.Username).Msg("account created")
	h.issue(w, user, http.StatusCreated)
}

// Login checks credentials and returns a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Users.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		// Burn a comparison anyway so an unknown username costs the same as
		// a wrong password; the result is discarded.
		auth.CheckPassword(auth.DummyHash, req.Password)
		httpjson.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		// Same answer for unknown user and wrong password.
		httpjson.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.issue(w, user, http.StatusOK)
}

// Me returns the account behind the presented token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.Users.GetUser(r.Context(), claims.UserID)
	if err != nil {
		httpjson.StoreError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, user)
}

func (h *Handler) issue(w http.ResponseWriter, user *models.User, status int) {
	token, err := auth.Issue(h.Secret, auth.Claims{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
	}, h.TokenTTL)
	if err != nil {
		httpjson.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpjson.Write(w, status, sessionResponse{Token: token, User: user})
}
