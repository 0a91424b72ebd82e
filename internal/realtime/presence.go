package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/catchhq/catch-backend/internal/models"
	"github.com/catchhq/catch-backend/internal/storage"
)

// maxRecent bounds the activity history kept for display. The history is not
// a source of truth; the per-user record in the presence store is.
const maxRecent = 50

// Presence aggregates user activity and fans it out to followers. Each user
// holds a monotonic sequence; a record only replaces the previous one for
// that user when its sequence is newer, so out-of-order application cannot
// resurrect stale state.
type Presence struct {
	store     storage.PresenceStore
	follows   storage.FollowStore
	broadcast Broadcaster
	logger    zerolog.Logger

	mu     sync.RWMutex
	recent []models.PresenceRecord
	seqs   map[string]uint64
}

// NewPresence builds the presence service.
func NewPresence(store storage.PresenceStore, follows storage.FollowStore, broadcast Broadcaster, logger zerolog.Logger) *Presence {
	return &Presence{
		store:     store,
		follows:   follows,
		broadcast: broadcast,
		logger:    logger.With().Str("component", "presence").Logger(),
		seqs:      make(map[string]uint64),
	}
}

// UpdateActivity records the session user's new activity and fans it out as
// friend:activity. The sender is included in the fan-out so their own feed
// shows the echoed record.
func (p *Presence) UpdateActivity(ctx context.Context, session models.Session, req models.ActivityUpdateRequest) error {
	if !req.ActivityType.Valid() {
		return fmt.Errorf("unknown activity type %q", req.ActivityType)
	}

	record := models.PresenceRecord{
		UserID:       session.UserID,
		Username:     session.Username,
		ActivityType: req.ActivityType,
		Details:      req.Details,
		SongSnapshot: req.Song,
		Seq:          p.nextSeq(session.UserID),
		Timestamp:    time.Now(),
	}

	p.apply(record)
	if err := p.store.SetPresence(ctx, record); err != nil {
		return fmt.Errorf("persist presence: %w", err)
	}

	env, err := models.NewEnvelope(models.EventFriendActivity, record.Seq, record)
	if err != nil {
		return err
	}
	p.fanOut(ctx, session.UserID, env, true)
	return nil
}

// NowPlaying fans the session user's playback snapshot out to followers as
// friend:now-playing. Snapshots are ephemeral and are not persisted; the
// latest one is folded into the presence record only when the client also
// reports a listening activity.
func (p *Presence) NowPlaying(ctx context.Context, session models.Session, snapshot models.NowPlayingSnapshot) error {
	snapshot.Timestamp = time.Now()
	env, err := models.NewEnvelope(models.EventFriendNowPlaying, p.nextSeq(session.UserID), struct {
		UserID   string                    `json:"userId"`
		Username string                    `json:"username,omitempty"`
		Song     models.NowPlayingSnapshot `json:"song"`
	}{session.UserID, session.Username, snapshot})
	if err != nil {
		return err
	}
	p.fanOut(ctx, session.UserID, env, false)
	return nil
}

// HandleConnect marks the user online and pushes the fresh online roster to
// everyone connected.
func (p *Presence) HandleConnect(ctx context.Context, session models.Session) {
	if err := p.store.SetOnline(ctx, session.UserID, true); err != nil {
		p.logger.Warn().Err(err).Str("user", session.UserID).Msg("mark online failed")
	}
	p.broadcastOnline(ctx)
}

// HandleDisconnect marks the user offline, applies an offline record, and
// refreshes the online roster.
func (p *Presence) HandleDisconnect(ctx context.Context, session models.Session) {
	if err := p.store.SetOnline(ctx, session.UserID, false); err != nil {
		p.logger.Warn().Err(err).Str("user", session.UserID).Msg("mark offline failed")
	}

	record := models.PresenceRecord{
		UserID:       session.UserID,
		Username:     session.Username,
		ActivityType: models.ActivityOffline,
		Seq:          p.nextSeq(session.UserID),
		Timestamp:    time.Now(),
	}
	p.apply(record)
	if err := p.store.SetPresence(ctx, record); err != nil {
		p.logger.Warn().Err(err).Str("user", session.UserID).Msg("persist offline presence failed")
	}

	if env, err := models.NewEnvelope(models.EventFriendActivity, record.Seq, record); err == nil {
		p.fanOut(ctx, session.UserID, env, false)
	}
	p.broadcastOnline(ctx)
}

// Recent returns the bounded activity history, most recently applied first.
func (p *Presence) Recent() []models.PresenceRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]models.PresenceRecord, len(p.recent))
	copy(out, p.recent)
	return out
}

// Online returns the current online roster.
func (p *Presence) Online(ctx context.Context) (models.OnlineUsers, error) {
	ids, err := p.store.OnlineUsers(ctx)
	if err != nil {
		return models.OnlineUsers{}, fmt.Errorf("read online users: %w", err)
	}
	return models.OnlineUsers{Count: len(ids), UserIDs: ids}, nil
}

// apply merges a record into the history: the user's previous entry is
// removed, the new one is prepended, and the list is truncated to maxRecent.
// Records whose sequence is not newer than the user's current entry are
// dropped.
func (p *Presence) apply(record models.PresenceRecord) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := p.recent[:0]
	for _, existing := range p.recent {
		if existing.UserID == record.UserID {
			if existing.Seq >= record.Seq {
				return false
			}
			continue
		}
		kept = append(kept, existing)
	}

	p.recent = append([]models.PresenceRecord{record}, kept...)
	if len(p.recent) > maxRecent {
		p.recent = p.recent[:maxRecent]
	}
	return true
}

func (p *Presence) nextSeq(userID string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seqs[userID]++
	return p.seqs[userID]
}

// fanOut delivers env to everyone following userID, optionally echoing to
// the sender. Follower lookup failures are background noise, not caller
// errors.
func (p *Presence) fanOut(ctx context.Context, userID string, env models.Envelope, echoSelf bool) {
	followers, err := p.follows.Followers(ctx, userID)
	if err != nil {
		p.logger.Warn().Err(err).Str("user", userID).Msg("follower lookup failed")
		followers = nil
	}
	if echoSelf {
		followers = append(followers, userID)
	}
	p.broadcast.SendToUsers(followers, env)
}

func (p *Presence) broadcastOnline(ctx context.Context) {
	online, err := p.Online(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("online roster read failed")
		return
	}
	env, err := models.NewEnvelope(models.EventUsersOnline, 0, online)
	if err != nil {
		return
	}
	p.broadcast.SendToUsers(online.UserIDs, env)
}
