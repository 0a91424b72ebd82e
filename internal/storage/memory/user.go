// Package memory provides in-process implementations of the storage
// interfaces. They back development and tests; production deployments point
// the same interfaces at the postgres and valkeystore packages.
package memory

import (
	"context"
	"sync"

	"github.com/catchhq/catch-backend/internal/models"
	"github.com/catchhq/catch-backend/internal/storage"
)

// UserStore keeps registered accounts in two maps, by id and by username.
type UserStore struct {
	mu         sync.RWMutex
	users      map[string]*models.User
	byUsername map[string]string // username -> id
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:      make(map[string]*models.User),
		byUsername: make(map[string]string),
	}
}

func (s *UserStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[user.Username]; taken {
		return storage.ErrConflict
	}
	copied := *user
	s.users[user.ID] = &copied
	s.byUsername[user.Username] = user.ID
	return nil
}

func (s *UserStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *s.users[id]
	return &copied, nil
}
