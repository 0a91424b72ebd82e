package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/catchhq/catch-backend/internal/models"
	"github.com/catchhq/catch-backend/internal/storage"
)

// ConversationStore keeps DM threads and their messages in memory.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
	messages      map[string][]models.ChatMessage // chatID -> append-only log
	userIndex     map[string][]string             // userID -> []chatID
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string][]models.ChatMessage),
		userIndex:     make(map[string][]string),
	}
}

func (s *ConversationStore) StartOrGetConversation(ctx context.Context, user1, user2 string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chatID := range s.userIndex[user1] {
		conv := s.conversations[chatID]
		if conv.Other(user1) == user2 {
			copied := *conv
			return &copied, nil
		}
	}

	conv := &models.Conversation{
		ID:           uuid.NewString(),
		Participants: [2]string{user1, user2},
		CreatedAt:    time.Now(),
	}
	s.conversations[conv.ID] = conv
	s.userIndex[user1] = append(s.userIndex[user1], conv.ID)
	s.userIndex[user2] = append(s.userIndex[user2], conv.ID)

	copied := *conv
	return &copied, nil
}

func (s *ConversationStore) GetConversation(ctx context.Context, chatID string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[chatID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *conv
	return &copied, nil
}

func (s *ConversationStore) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Conversation, 0, len(s.userIndex[userID]))
	for _, chatID := range s.userIndex[userID] {
		copied := *s.conversations[chatID]
		result = append(result, &copied)
	}
	return result, nil
}

func (s *ConversationStore) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[msg.ChatID]; !ok {
		return storage.ErrNotFound
	}
	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], *msg)
	return nil
}

// GetMessages returns up to limit most recent messages in insertion order.
// A limit of 0 returns the whole log.
func (s *ConversationStore) GetMessages(ctx context.Context, chatID string, limit int) ([]models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[chatID]; !ok {
		return nil, storage.ErrNotFound
	}
	log := s.messages[chatID]
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}
	out := make([]models.ChatMessage, len(log))
	copy(out, log)
	return out, nil
}
