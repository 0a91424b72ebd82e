// Package valkeystore implements the presence store on Valkey so presence
// survives catchd restarts and is shared by multiple instances.
package valkeystore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/catchhq/catch-backend/internal/models"
	"github.com/catchhq/catch-backend/internal/storage"
)

const (
	keyPresence = "catch:presence:" // + userID
	keyOnline   = "catch:online"    // set of userIDs

	// Presence records go stale quickly; the TTL bounds how long a crashed
	// client appears active.
	presenceTTL = 10 * time.Minute
)

// PresenceStore implements storage.PresenceStore on a Valkey instance.
type PresenceStore struct {
	client valkey.Client
}

// New connects to the Valkey instance at addr.
func New(addr string) (*PresenceStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, fmt.Errorf("connect valkey: %w", err)
	}
	return &PresenceStore{client: client}, nil
}

// Close releases the underlying connection pool.
func (s *PresenceStore) Close() {
	s.client.Close()
}

func (s *PresenceStore) SetPresence(ctx context.Context, record models.PresenceRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal presence: %w", err)
	}
	err = s.client.Do(ctx, s.client.B().Set().
		Key(keyPresence+record.UserID).
		Value(string(payload)).
		Ex(presenceTTL).
		Build()).Error()
	if err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return nil
}

func (s *PresenceStore) GetPresence(ctx context.Context, userID string) (*models.PresenceRecord, error) {
	raw, err := s.client.Do(ctx, s.client.B().Get().Key(keyPresence+userID).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get presence: %w", err)
	}

	record := &models.PresenceRecord{}
	if err := json.Unmarshal([]byte(raw), record); err != nil {
		return nil, fmt.Errorf("unmarshal presence: %w", err)
	}
	return record, nil
}

func (s *PresenceStore) SetOnline(ctx context.Context, userID string, online bool) error {
	var cmd valkey.Completed
	if online {
		cmd = s.client.B().Sadd().Key(keyOnline).Member(userID).Build()
	} else {
		cmd = s.client.B().Srem().Key(keyOnline).Member(userID).Build()
	}
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("update online set: %w", err)
	}
	return nil
}

func (s *PresenceStore) OnlineUsers(ctx context.Context) ([]string, error) {
	members, err := s.client.Do(ctx, s.client.B().Smembers().Key(keyOnline).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("read online set: %w", err)
	}
	return members, nil
}
