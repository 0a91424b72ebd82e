package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/catchhq/catch-backend/internal/models"
	"github.com/catchhq/catch-backend/internal/storage"
)

// UserStore implements storage.UserStore on the users table.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (id, username, display_name, email, password_hash, avatar_url, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Username, user.DisplayName, user.Email, user.PasswordHash, user.AvatarURL, user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		// 23505 is unique_violation: username or email already taken.
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return storage.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, display_name, email, password_hash, avatar_url, created_at
		 FROM users WHERE id = $1`, id))
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, display_name, email, password_hash, avatar_url, created_at
		 FROM users WHERE username = $1`, username))
}

func (s *UserStore) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.DisplayName, &user.Email,
		&user.PasswordHash, &user.AvatarURL, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}
