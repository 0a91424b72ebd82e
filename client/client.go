// Package client is the Go SDK for the CATCH realtime service. It owns one
// socket connection per session and keeps client-side views of presence,
// the current listen party, and per-chat typing state.
//
// The SDK does not reconnect on its own: a dropped connection surfaces
// through OnDisconnect and Connected, and the owner decides when to call
// Connect again. State tied to the old session (party membership, typing
// timers) is discarded on every disconnect.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/catchhq/catch-backend/internal/models"
)

// ErrNotConnected is returned by every emit while the socket is down.
var ErrNotConnected = errors.New("client: not connected")

// DefaultTypingExpiry is how long a typing indicator lives without refresh.
const DefaultTypingExpiry = 3 * time.Second

// Config describes a session. URL, UserID, and Token are all required; the
// connection is attempted only when the full identity is present.
type Config struct {
	URL    string // websocket endpoint, e.g. wss://api.catch.fm/ws
	UserID string
	Token  string

	// TypingExpiry overrides DefaultTypingExpiry, mostly for tests.
	TypingExpiry time.Duration

	Logger zerolog.Logger

	// OnMessage fires for every message:received, the sender's own echoes
	// included.
	OnMessage func(models.ChatMessage)
	// OnDisconnect fires when the connection drops for any reason other
	// than Close.
	OnDisconnect func(error)
}

// Client is one session's connection plus its client-side state.
type Client struct {
	cfg    Config
	logger zerolog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closing   bool
	loopDone  chan struct{}

	presence *Presence
	party    *Party
	typing   *Typing
}

// New builds a client. Connect must be called before anything is emitted.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.UserID == "" || cfg.Token == "" {
		return nil, fmt.Errorf("client: URL, UserID, and Token are required")
	}
	if cfg.TypingExpiry <= 0 {
		cfg.TypingExpiry = DefaultTypingExpiry
	}
	return &Client{
		cfg:      cfg,
		logger:   cfg.Logger.With().Str("component", "catch-client").Logger(),
		presence: newPresence(),
		party:    newParty(cfg.UserID),
		typing:   newTyping(cfg.TypingExpiry),
	}, nil
}

// Connect opens the socket and starts consuming events.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return fmt.Errorf("client: already connected")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL+"?token="+c.cfg.Token, nil)
	if err != nil {
		return fmt.Errorf("client: dial: %w", err)
	}

	c.conn = conn
	c.connected = true
	c.closing = false
	c.loopDone = make(chan struct{})
	c.typing.restart()
	go c.readLoop(conn, c.loopDone)
	return nil
}

// Connected reports whether the socket is up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close tears the session down: the socket closes, the read loop drains,
// and every pending typing timer is cancelled. No state updates happen
// afterwards, even for events already queued by the server.
func (c *Client) Close() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	conn, done := c.conn, c.loopDone
	c.mu.Unlock()

	err := conn.Close()
	<-done
	return err
}

// Presence returns the presence aggregator view.
func (c *Client) Presence() *Presence { return c.presence }

// Party returns the listen-party state machine view.
func (c *Client) Party() *Party { return c.party }

// Typing returns the typing-indicator view.
func (c *Client) Typing() *Typing { return c.typing }

// UpdateActivity broadcasts the local user's activity. Local state is not
// touched; the record becomes visible through the aggregator only when the
// server echoes it back.
func (c *Client) UpdateActivity(activityType models.ActivityType, details string, song *models.NowPlayingSnapshot) error {
	return c.emit(models.EventActivityUpdate, models.ActivityUpdateRequest{
		ActivityType: activityType,
		Details:      details,
		Song:         song,
	})
}

// UpdateNowPlaying broadcasts the local playback snapshot. Fire-and-forget;
// no acknowledgement is awaited.
func (c *Client) UpdateNowPlaying(snapshot models.NowPlayingSnapshot) error {
	return c.emit(models.EventNowPlaying, snapshot)
}

// CreateListenParty asks the server to start a party. The local state moves
// to Hosting immediately, but CurrentParty stays nil until the party:joined
// confirmation arrives.
func (c *Client) CreateListenParty(name string) error {
	if err := c.emit(models.EventPartyCreate, models.PartyCreateRequest{Name: name}); err != nil {
		return err
	}
	c.party.markHostingPending()
	return nil
}

// JoinListenParty asks to join an existing party; the state moves to Joined
// only on receipt of party:joined.
func (c *Client) JoinListenParty(partyID string) error {
	return c.emit(models.EventPartyJoin, models.PartyJoinRequest{PartyID: partyID})
}

// LeaveListenParty asks to leave. Local party state clears only when the
// server confirms with party:left; there is nothing to roll back.
func (c *Client) LeaveListenParty() error {
	return c.emit(models.EventPartyLeave, nil)
}

// SendMessage delivers a chat message. The message shows up locally through
// OnMessage once the server echoes it.
func (c *Client) SendMessage(chatID, content string) error {
	return c.emit(models.EventMessageSend, models.MessageSendRequest{ChatID: chatID, Content: content})
}

// SendSongShare delivers a song-share message.
func (c *Client) SendSongShare(chatID, content string, song *models.NowPlayingSnapshot) error {
	return c.emit(models.EventSongShare, models.MessageSendRequest{ChatID: chatID, Content: content, Song: song})
}

// SendTyping tells the chat peer the local user is typing.
func (c *Client) SendTyping(chatID string) error {
	return c.emit(models.EventMessageSend, models.MessageSendRequest{ChatID: chatID, Typing: true})
}

func (c *Client) emit(event string, payload any) error {
	env, err := models.NewEnvelope(event, 0, payload)
	if err != nil {
		return fmt.Errorf("client: encode %s: %w", event, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return ErrNotConnected
	}
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("client: emit %s: %w", event, err)
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	var readErr error
	for {
		var env models.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			readErr = err
			break
		}
		c.handle(env)
	}

	c.mu.Lock()
	c.connected = false
	wasClosing := c.closing
	c.mu.Unlock()

	// Session state dies with the connection.
	c.typing.stopAll()
	c.party.reset()

	if !wasClosing && c.cfg.OnDisconnect != nil {
		c.cfg.OnDisconnect(readErr)
	}
}

func (c *Client) handle(env models.Envelope) {
	switch env.Event {
	case models.EventFriendActivity:
		var record models.PresenceRecord
		if decode(env, &record, c.logger) {
			c.presence.applyActivity(record)
		}

	case models.EventFriendNowPlaying:
		var payload friendNowPlaying
		if decode(env, &payload, c.logger) {
			c.presence.applyNowPlaying(payload.UserID, env.Seq, payload.Song)
		}

	case models.EventUsersOnline:
		var online models.OnlineUsers
		if decode(env, &online, c.logger) {
			c.presence.setOnline(online)
		}

	case models.EventPartyJoined:
		var party models.ListenParty
		if decode(env, &party, c.logger) {
			c.party.handleJoined(env.Seq, &party)
		}

	case models.EventPartyUpdated:
		var party models.ListenParty
		if decode(env, &party, c.logger) {
			c.party.handleUpdated(env.Seq, &party)
		}

	case models.EventPartySync:
		var payload models.PartySyncPayload
		if decode(env, &payload, c.logger) {
			c.party.handleSync(env.Seq, payload)
		}

	case models.EventPartyLeft:
		var payload models.PartyLeftPayload
		if decode(env, &payload, c.logger) {
			c.party.handleLeft(payload)
		}

	case models.EventMessageReceived:
		var msg models.ChatMessage
		if decode(env, &msg, c.logger) {
			c.typing.clear(msg.ChatID, msg.SenderID)
			if c.cfg.OnMessage != nil {
				c.cfg.OnMessage(msg)
			}
		}

	case models.EventMessageTyping:
		var notice models.TypingNotice
		if decode(env, &notice, c.logger) {
			c.typing.notice(notice.ChatID, notice.UserID, notice.Username)
		}

	default:
		c.logger.Debug().Str("event", env.Event).Msg("unknown event ignored")
	}
}

type friendNowPlaying struct {
	UserID   string                    `json:"userId"`
	Username string                    `json:"username,omitempty"`
	Song     models.NowPlayingSnapshot `json:"song"`
}

func decode(env models.Envelope, dst any, logger zerolog.Logger) bool {
	if err := json.Unmarshal(env.Data, dst); err != nil {
		logger.Warn().Err(err).Str("event", env.Event).Msg("bad payload dropped")
		return false
	}
	return true
}
