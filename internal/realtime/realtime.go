// Package realtime holds the domain services behind the socket layer:
// presence aggregation, listen-party playback sync, and message delivery.
// Services own their state exclusively; the transport only dispatches into
// them and fans their events back out.
package realtime

import "github.com/catchhq/catch-backend/internal/models"

// Broadcaster delivers framed events to connected users. The websocket hub
// implements it; tests substitute a recorder. Delivery is best-effort: users
// without a live connection are skipped.
type Broadcaster interface {
	SendToUser(userID string, env models.Envelope)
	SendToUsers(userIDs []string, env models.Envelope)
}
