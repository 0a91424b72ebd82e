package memory

import (
	"context"
	"sync"

	"github.com/catchhq/catch-backend/internal/storage"
)

// FollowStore keeps the social graph as forward and reverse edge sets.
type FollowStore struct {
	mu        sync.RWMutex
	following map[string]map[string]bool // follower -> set of followees
	followers map[string]map[string]bool // followee -> set of followers
}

func NewFollowStore() *FollowStore {
	return &FollowStore{
		following: make(map[string]map[string]bool),
		followers: make(map[string]map[string]bool),
	}
}

func (s *FollowStore) Follow(ctx context.Context, followerID, followeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.following[followerID][followeeID] {
		return storage.ErrConflict
	}
	if s.following[followerID] == nil {
		s.following[followerID] = make(map[string]bool)
	}
	if s.followers[followeeID] == nil {
		s.followers[followeeID] = make(map[string]bool)
	}
	s.following[followerID][followeeID] = true
	s.followers[followeeID][followerID] = true
	return nil
}

func (s *FollowStore) Unfollow(ctx context.Context, followerID, followeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.following[followerID][followeeID] {
		return storage.ErrNotFound
	}
	delete(s.following[followerID], followeeID)
	delete(s.followers[followeeID], followerID)
	return nil
}

func (s *FollowStore) Followers(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return setToSlice(s.followers[userID]), nil
}

func (s *FollowStore) Following(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return setToSlice(s.following[userID]), nil
}

func (s *FollowStore) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.following[followerID][followeeID], nil
}

func setToSlice(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
