package models

import "time"

// MessageType distinguishes plain text from shared songs.
type MessageType string

const (
	MessageText      MessageType = "text"
	MessageSongShare MessageType = "song-share"
)

// ChatMessage is one entry in a conversation. Ordering is server-receipt
// order; the client-supplied timestamp is informational only.
type ChatMessage struct {
	ID        string              `json:"id"`
	ChatID    string              `json:"chatId"`
	SenderID  string              `json:"senderId"`
	Content   string              `json:"content"`
	Type      MessageType         `json:"type"`
	Song      *NowPlayingSnapshot `json:"song,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// Conversation is a direct-message thread between exactly two users.
type Conversation struct {
	ID           string    `json:"id"`
	Participants [2]string `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Other returns the participant that is not userID, or "" if userID is not
// part of the conversation.
func (c *Conversation) Other(userID string) string {
	switch userID {
	case c.Participants[0]:
		return c.Participants[1]
	case c.Participants[1]:
		return c.Participants[0]
	}
	return ""
}

// TypingNotice is the payload of a message:typing fan-out. Receivers drop the
// username from the chat's typing set after three seconds unless refreshed.
type TypingNotice struct {
	ChatID   string `json:"chatId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}
