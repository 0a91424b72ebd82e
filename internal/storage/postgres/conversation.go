package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/catchhq/catch-backend/internal/models"
	"github.com/catchhq/catch-backend/internal/storage"
)

// ConversationStore implements storage.ConversationStore on the
// conversations and messages tables. Song shares are stored as a JSON column
// because the snapshot shape is owned by the realtime layer, not the schema.
type ConversationStore struct {
	db *sql.DB
}

func NewConversationStore(db *sql.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

func (s *ConversationStore) StartOrGetConversation(ctx context.Context, user1, user2 string) (*models.Conversation, error) {
	// Participants are stored ordered so the pair is unique regardless of
	// which side initiates.
	a, b := user1, user2
	if b < a {
		a, b = b, a
	}

	conv := &models.Conversation{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, participant_a, participant_b, created_at
		 FROM conversations WHERE participant_a = $1 AND participant_b = $2`, a, b).
		Scan(&conv.ID, &conv.Participants[0], &conv.Participants[1], &conv.CreatedAt)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("select conversation: %w", err)
	}

	conv = &models.Conversation{
		ID:           uuid.NewString(),
		Participants: [2]string{a, b},
		CreatedAt:    time.Now(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, participant_a, participant_b, created_at) VALUES ($1, $2, $3, $4)`,
		conv.ID, a, b, conv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return conv, nil
}

func (s *ConversationStore) GetConversation(ctx context.Context, chatID string) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, participant_a, participant_b, created_at FROM conversations WHERE id = $1`, chatID).
		Scan(&conv.ID, &conv.Participants[0], &conv.Participants[1], &conv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select conversation: %w", err)
	}
	return conv, nil
}

func (s *ConversationStore) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, participant_a, participant_b, created_at
		 FROM conversations WHERE participant_a = $1 OR participant_b = $1
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var result []*models.Conversation
	for rows.Next() {
		conv := &models.Conversation{}
		if err := rows.Scan(&conv.ID, &conv.Participants[0], &conv.Participants[1], &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		result = append(result, conv)
	}
	return result, rows.Err()
}

func (s *ConversationStore) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	var song []byte
	if msg.Song != nil {
		var err error
		song, err = json.Marshal(msg.Song)
		if err != nil {
			return fmt.Errorf("marshal song share: %w", err)
		}
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, chat_id, sender_id, content, type, song, created_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7
		 WHERE EXISTS (SELECT 1 FROM conversations WHERE id = $2)`,
		msg.ID, msg.ChatID, msg.SenderID, msg.Content, string(msg.Type), song, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *ConversationStore) GetMessages(ctx context.Context, chatID string, limit int) ([]models.ChatMessage, error) {
	if _, err := s.GetConversation(ctx, chatID); err != nil {
		return nil, err
	}

	query := `SELECT id, chat_id, sender_id, content, type, song, created_at
	          FROM messages WHERE chat_id = $1 ORDER BY created_at DESC, id`
	args := []any{chatID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var newestFirst []models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		var msgType string
		var song []byte
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &msgType, &song, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Type = models.MessageType(msgType)
		if len(song) > 0 {
			msg.Song = &models.NowPlayingSnapshot{}
			if err := json.Unmarshal(song, msg.Song); err != nil {
				return nil, fmt.Errorf("unmarshal song share: %w", err)
			}
		}
		newestFirst = append(newestFirst, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Callers expect insertion order.
	out := make([]models.ChatMessage, len(newestFirst))
	for i, msg := range newestFirst {
		out[len(newestFirst)-1-i] = msg
	}
	return out, nil
}
