package models

import "encoding/json"

// Event names on the socket. Client→server names mirror what the CATCH web
// client emits; server→client names are what it consumes.
const (
	// Client → server.
	EventNowPlaying     = "music:now-playing"
	EventPartyJoin      = "party:join"
	EventPartyLeave     = "party:leave"
	EventPartyCreate    = "party:create"
	EventMessageSend    = "message:send"
	EventSongShare      = "message:song-share"
	EventActivityUpdate = "activity:update"

	// Server → client.
	EventFriendActivity   = "friend:activity"
	EventFriendNowPlaying = "friend:now-playing"
	EventUsersOnline      = "users:online"
	EventPartyJoined      = "party:joined"
	EventPartyUpdated     = "party:updated"
	EventPartySync        = "party:sync"
	EventPartyLeft        = "party:left"
	EventMessageReceived  = "message:received"
	EventMessageTyping    = "message:typing"
)

// Envelope frames every socket payload. Seq is assigned by the server and is
// monotonic per scope (per user for presence and now-playing, per party for
// sync); client-originated frames carry 0.
type Envelope struct {
	Event string          `json:"event"`
	Seq   uint64          `json:"seq"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals data into a framed event. A nil data yields an
// envelope with no payload.
func NewEnvelope(event string, seq uint64, data any) (Envelope, error) {
	env := Envelope{Event: event, Seq: seq}
	if data == nil {
		return env, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	env.Data = raw
	return env, nil
}

// Client → server payloads.

type ActivityUpdateRequest struct {
	ActivityType ActivityType        `json:"activityType"`
	Details      string              `json:"details,omitempty"`
	Song         *NowPlayingSnapshot `json:"song,omitempty"`
}

type PartyCreateRequest struct {
	Name string `json:"name"`
}

type PartyJoinRequest struct {
	PartyID string `json:"partyId"`
}

type MessageSendRequest struct {
	ChatID  string              `json:"chatId"`
	Content string              `json:"content"`
	Typing  bool                `json:"typing,omitempty"`
	Song    *NowPlayingSnapshot `json:"song,omitempty"`
}

// Server → client payloads.

type PartySyncPayload struct {
	PartyID string              `json:"partyId"`
	Song    *NowPlayingSnapshot `json:"song"`
}

type PartyLeftPayload struct {
	PartyID string `json:"partyId"`
	UserID  string `json:"userId,omitempty"`
	Ended   bool   `json:"ended"`
}
