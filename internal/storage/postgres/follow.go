package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/catchhq/catch-backend/internal/storage"
)

// FollowStore implements storage.FollowStore on the follows table.
type FollowStore struct {
	db *sql.DB
}

func NewFollowStore(db *sql.DB) *FollowStore {
	return &FollowStore{db: db}
}

func (s *FollowStore) Follow(ctx context.Context, followerID, followeeID string) error {
	var inserted string
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO follows (follower_id, followee_id) VALUES ($1, $2)
		 ON CONFLICT (follower_id, followee_id) DO NOTHING
		 RETURNING follower_id`, followerID, followeeID).Scan(&inserted)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert follow: %w", err)
	}
	return nil
}

func (s *FollowStore) Unfollow(ctx context.Context, followerID, followeeID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *FollowStore) Followers(ctx context.Context, userID string) ([]string, error) {
	return s.edgeList(ctx, `SELECT follower_id FROM follows WHERE followee_id = $1`, userID)
}

func (s *FollowStore) Following(ctx context.Context, userID string) ([]string, error) {
	return s.edgeList(ctx, `SELECT followee_id FROM follows WHERE follower_id = $1`, userID)
}

func (s *FollowStore) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)`,
		followerID, followeeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("select follow: %w", err)
	}
	return exists, nil
}

func (s *FollowStore) edgeList(ctx context.Context, query, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list follows: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan follow: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
