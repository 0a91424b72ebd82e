package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/catchhq/catch-backend/internal/models"
	"github.com/catchhq/catch-backend/internal/storage"
)

// ErrNotParticipant is returned when a user sends into a conversation they
// are not part of.
var ErrNotParticipant = errors.New("not a participant of this conversation")

// Messages delivers chat messages and typing notices. Delivery is
// pessimistic for every entity type: a message exists for the sender only
// once the persisted copy comes back as message:received.
type Messages struct {
	store     storage.ConversationStore
	broadcast Broadcaster
	logger    zerolog.Logger
}

// NewMessages builds the message service.
func NewMessages(store storage.ConversationStore, broadcast Broadcaster, logger zerolog.Logger) *Messages {
	return &Messages{
		store:     store,
		broadcast: broadcast,
		logger:    logger.With().Str("component", "messages").Logger(),
	}
}

// Send persists a text message and echoes message:received to both
// participants, the sender included.
func (m *Messages) Send(ctx context.Context, session models.Session, chatID, content string) (*models.ChatMessage, error) {
	return m.deliver(ctx, session, &models.ChatMessage{
		ChatID:   chatID,
		Content:  content,
		Type:     models.MessageText,
		SenderID: session.UserID,
	})
}

// SendSongShare persists a song-share message carrying the snapshot.
func (m *Messages) SendSongShare(ctx context.Context, session models.Session, chatID, content string, song *models.NowPlayingSnapshot) (*models.ChatMessage, error) {
	if song == nil {
		return nil, fmt.Errorf("song share requires a song")
	}
	return m.deliver(ctx, session, &models.ChatMessage{
		ChatID:   chatID,
		Content:  content,
		Type:     models.MessageSongShare,
		Song:     song,
		SenderID: session.UserID,
	})
}

// Typing relays a typing notice to the other participant. Notices are
// fire-and-forget and never persisted; receivers expire them on their own.
func (m *Messages) Typing(ctx context.Context, session models.Session, chatID string) error {
	conv, err := m.peer(ctx, session.UserID, chatID)
	if err != nil {
		return err
	}

	env, err := models.NewEnvelope(models.EventMessageTyping, 0, models.TypingNotice{
		ChatID:   chatID,
		UserID:   session.UserID,
		Username: session.Username,
	})
	if err != nil {
		return err
	}
	m.broadcast.SendToUser(conv, env)
	return nil
}

func (m *Messages) deliver(ctx context.Context, session models.Session, msg *models.ChatMessage) (*models.ChatMessage, error) {
	if msg.Content == "" && msg.Song == nil {
		return nil, fmt.Errorf("message cannot be empty")
	}

	conv, err := m.store.GetConversation(ctx, msg.ChatID)
	if err != nil {
		return nil, err
	}
	if conv.Other(session.UserID) == "" {
		return nil, ErrNotParticipant
	}

	msg.ID = uuid.NewString()
	msg.Timestamp = time.Now()
	if err := m.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	env, err := models.NewEnvelope(models.EventMessageReceived, 0, msg)
	if err != nil {
		return nil, err
	}
	m.broadcast.SendToUsers([]string{conv.Participants[0], conv.Participants[1]}, env)
	return msg, nil
}

func (m *Messages) peer(ctx context.Context, userID, chatID string) (string, error) {
	conv, err := m.store.GetConversation(ctx, chatID)
	if err != nil {
		return "", err
	}
	other := conv.Other(userID)
	if other == "" {
		return "", ErrNotParticipant
	}
	return other, nil
}
