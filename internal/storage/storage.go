// Package storage defines the repository interfaces the API and realtime
// layers depend on. Backends live in the memory, postgres, and valkeystore
// subpackages; the server picks one per concern at startup.
package storage

import (
	"context"
	"errors"

	"github.com/catchhq/catch-backend/internal/models"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("storage: not found")

// ErrConflict is returned when a write collides with existing state, such as
// a duplicate username or an already-followed user.
var ErrConflict = errors.New("storage: conflict")

// UserStore persists registered accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// ConversationStore persists direct-message threads and their messages.
// Messages are append-only; ordering is insertion order.
type ConversationStore interface {
	StartOrGetConversation(ctx context.Context, user1, user2 string) (*models.Conversation, error)
	GetConversation(ctx context.Context, chatID string) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error)
	AppendMessage(ctx context.Context, msg *models.ChatMessage) error
	GetMessages(ctx context.Context, chatID string, limit int) ([]models.ChatMessage, error)
}

// FollowStore persists the social graph. Follows are directed edges.
type FollowStore interface {
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	Followers(ctx context.Context, userID string) ([]string, error)
	Following(ctx context.Context, userID string) ([]string, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
}

// PresenceStore holds each user's latest presence record and the online set.
// Implementations must apply SetPresence as last-write-wins per user.
type PresenceStore interface {
	SetPresence(ctx context.Context, record models.PresenceRecord) error
	GetPresence(ctx context.Context, userID string) (*models.PresenceRecord, error)
	SetOnline(ctx context.Context, userID string, online bool) error
	OnlineUsers(ctx context.Context) ([]string, error)
}
