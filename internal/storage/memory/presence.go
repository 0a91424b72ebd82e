package memory

import (
	"context"
	"sync"

	"github.com/catchhq/catch-backend/internal/models"
	"github.com/catchhq/catch-backend/internal/storage"
)

// PresenceStore keeps the latest presence record per user and the online set.
type PresenceStore struct {
	mu      sync.RWMutex
	records map[string]models.PresenceRecord
	online  map[string]bool
}

func NewPresenceStore() *PresenceStore {
	return &PresenceStore{
		records: make(map[string]models.PresenceRecord),
		online:  make(map[string]bool),
	}
}

func (s *PresenceStore) SetPresence(ctx context.Context, record models.PresenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.UserID] = record
	return nil
}

func (s *PresenceStore) GetPresence(ctx context.Context, userID string) (*models.PresenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &record, nil
}

func (s *PresenceStore) SetOnline(ctx context.Context, userID string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if online {
		s.online[userID] = true
	} else {
		delete(s.online, userID)
	}
	return nil
}

func (s *PresenceStore) OnlineUsers(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.online))
	for id := range s.online {
		out = append(out, id)
	}
	return out, nil
}
