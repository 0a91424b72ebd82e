package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/catchhq/catch-backend/internal/auth"
	"github.com/catchhq/catch-backend/internal/models"
	"github.com/catchhq/catch-backend/internal/realtime"
	"github.com/catchhq/catch-backend/internal/telemetry"
)

// Handler upgrades authenticated requests to websocket sessions and
// dispatches inbound events to the realtime services.
type Handler struct {
	hub      *Hub
	presence *realtime.Presence
	parties  *realtime.Parties
	messages *realtime.Messages
	logger   zerolog.Logger
	metrics  *telemetry.Metrics

	upgrader websocket.Upgrader
}

// NewHandler builds the websocket endpoint handler. checkOrigin decides
// which browser origins may connect.
func NewHandler(hub *Hub, presence *realtime.Presence, parties *realtime.Parties, messages *realtime.Messages,
	logger zerolog.Logger, metrics *telemetry.Metrics, checkOrigin func(*http.Request) bool) *Handler {
	return &Handler{
		hub:      hub,
		presence: presence,
		parties:  parties,
		messages: messages,
		logger:   logger.With().Str("component", "ws").Logger(),
		metrics:  metrics,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
	}
}

// ServeWS is the /ws endpoint. The auth middleware ran before us, so the
// claims are in the request context; a connection exists only while its
// session does.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	session := models.Session{
		UserID:      claims.UserID,
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("upgrade failed")
		return
	}

	client := newClient(session, conn)
	h.hub.Register(client)
	h.presence.HandleConnect(r.Context(), session)
	h.logger.Info().Str("user", session.UserID).Msg("session opened")

	// The request context dies when ServeWS returns; the session outlives it.
	ctx := context.Background()

	go client.writePump()
	go func() {
		// Teardown runs exactly once, when the read pump exits: the hub
		// drops the connection and any party or presence state tied to the
		// session is discarded.
		defer func() {
			h.hub.Unregister(client)
			h.parties.HandleDisconnect(ctx, session)
			h.presence.HandleDisconnect(ctx, session)
			h.logger.Info().Str("user", session.UserID).Msg("session closed")
		}()
		client.readPump(func(env models.Envelope) {
			h.dispatch(ctx, session, env)
		})
	}()
}

// dispatch routes one inbound event to its service. Failures are logged and
// dropped; the client learns about bad requests only through absent echoes,
// matching the fire-and-forget contract of every client->server event.
func (h *Handler) dispatch(ctx context.Context, session models.Session, env models.Envelope) {
	h.metrics.EventsIn.WithLabelValues(env.Event).Inc()

	var err error
	switch env.Event {
	case models.EventActivityUpdate:
		var req models.ActivityUpdateRequest
		if err = json.Unmarshal(env.Data, &req); err == nil {
			err = h.presence.UpdateActivity(ctx, session, req)
		}

	case models.EventNowPlaying:
		var snapshot models.NowPlayingSnapshot
		if err = json.Unmarshal(env.Data, &snapshot); err == nil {
			err = h.presence.NowPlaying(ctx, session, snapshot)
			if err == nil {
				// A hosting user's playback also drives their party.
				syncErr := h.parties.Sync(ctx, session, snapshot)
				if syncErr != nil && !errors.Is(syncErr, realtime.ErrNotInParty) && !errors.Is(syncErr, realtime.ErrNotHost) {
					err = syncErr
				}
			}
		}

	case models.EventPartyCreate:
		var req models.PartyCreateRequest
		if err = json.Unmarshal(env.Data, &req); err == nil {
			_, err = h.parties.Create(ctx, session, req.Name)
		}

	case models.EventPartyJoin:
		var req models.PartyJoinRequest
		if err = json.Unmarshal(env.Data, &req); err == nil {
			err = h.parties.Join(ctx, session, req.PartyID)
		}

	case models.EventPartyLeave:
		err = h.parties.Leave(ctx, session)

	case models.EventMessageSend:
		var req models.MessageSendRequest
		if err = json.Unmarshal(env.Data, &req); err == nil {
			if req.Typing {
				err = h.messages.Typing(ctx, session, req.ChatID)
			} else {
				_, err = h.messages.Send(ctx, session, req.ChatID, req.Content)
			}
		}

	case models.EventSongShare:
		var req models.MessageSendRequest
		if err = json.Unmarshal(env.Data, &req); err == nil {
			_, err = h.messages.SendSongShare(ctx, session, req.ChatID, req.Content, req.Song)
		}

	default:
		h.logger.Warn().Str("event", env.Event).Str("user", session.UserID).Msg("unknown event")
		return
	}

	if err != nil {
		h.logger.Warn().Err(err).Str("event", env.Event).Str("user", session.UserID).Msg("event rejected")
	}
}
