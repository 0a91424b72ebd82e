package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/catchhq/catch-backend/internal/models"
	"github.com/catchhq/catch-backend/internal/storage"
)

func TestUserStore(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()

	user := &models.User{ID: "u1", Username: "ada", DisplayName: "Ada", CreatedAt: time.Now()}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := store.CreateUser(ctx, &models.User{ID: "u2", Username: "ada"}); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate username: err = %v, want ErrConflict", err)
	}

	got, err := store.GetUserByUsername(ctx, "ada")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got.ID != "u1" {
		t.Errorf("ID = %q, want u1", got.ID)
	}

	if _, err := store.GetUser(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing user: err = %v, want ErrNotFound", err)
	}
}

func TestConversationStoreReusesPair(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore()

	first, err := store.StartOrGetConversation(ctx, "a", "b")
	if err != nil {
		t.Fatalf("StartOrGetConversation: %v", err)
	}
	// Same pair in either order resolves to the same thread.
	second, err := store.StartOrGetConversation(ctx, "b", "a")
	if err != nil {
		t.Fatalf("StartOrGetConversation: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("pair resolved to two threads: %q vs %q", first.ID, second.ID)
	}

	convs, err := store.ListConversations(ctx, "a")
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(convs) != 1 {
		t.Errorf("len(convs) = %d, want 1", len(convs))
	}
}

func TestConversationStoreMessages(t *testing.T) {
	ctx := context.Background()
	store := NewConversationStore()

	conv, err := store.StartOrGetConversation(ctx, "a", "b")
	if err != nil {
		t.Fatalf("StartOrGetConversation: %v", err)
	}

	for _, content := range []string{"one", "two", "three"} {
		err := store.AppendMessage(ctx, &models.ChatMessage{
			ID: content, ChatID: conv.ID, SenderID: "a", Content: content,
			Type: models.MessageText, Timestamp: time.Now(),
		})
		if err != nil {
			t.Fatalf("AppendMessage(%q): %v", content, err)
		}
	}

	msgs, err := store.GetMessages(ctx, conv.ID, 2)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "two" || msgs[1].Content != "three" {
		t.Errorf("limited read = %v, want last two in order", msgs)
	}

	if err := store.AppendMessage(ctx, &models.ChatMessage{ChatID: "missing"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("append to missing chat: err = %v, want ErrNotFound", err)
	}
}

func TestFollowStore(t *testing.T) {
	ctx := context.Background()
	store := NewFollowStore()

	if err := store.Follow(ctx, "a", "b"); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if err := store.Follow(ctx, "a", "b"); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("double follow: err = %v, want ErrConflict", err)
	}

	followers, err := store.Followers(ctx, "b")
	if err != nil {
		t.Fatalf("Followers: %v", err)
	}
	if len(followers) != 1 || followers[0] != "a" {
		t.Errorf("Followers = %v, want [a]", followers)
	}

	ok, err := store.IsFollowing(ctx, "a", "b")
	if err != nil || !ok {
		t.Errorf("IsFollowing = %v, %v, want true", ok, err)
	}

	if err := store.Unfollow(ctx, "a", "b"); err != nil {
		t.Fatalf("Unfollow: %v", err)
	}
	if err := store.Unfollow(ctx, "a", "b"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unfollow twice: err = %v, want ErrNotFound", err)
	}
}

func TestPresenceStoreLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := NewPresenceStore()

	if err := store.SetPresence(ctx, models.PresenceRecord{UserID: "u1", ActivityType: models.ActivityBrowsing, Seq: 1}); err != nil {
		t.Fatalf("SetPresence: %v", err)
	}
	if err := store.SetPresence(ctx, models.PresenceRecord{UserID: "u1", ActivityType: models.ActivityListening, Seq: 2}); err != nil {
		t.Fatalf("SetPresence: %v", err)
	}

	record, err := store.GetPresence(ctx, "u1")
	if err != nil {
		t.Fatalf("GetPresence: %v", err)
	}
	if record.ActivityType != models.ActivityListening {
		t.Errorf("ActivityType = %q, want listening", record.ActivityType)
	}

	if err := store.SetOnline(ctx, "u1", true); err != nil {
		t.Fatalf("SetOnline: %v", err)
	}
	online, err := store.OnlineUsers(ctx)
	if err != nil || len(online) != 1 {
		t.Fatalf("OnlineUsers = %v, %v, want one user", online, err)
	}
	if err := store.SetOnline(ctx, "u1", false); err != nil {
		t.Fatalf("SetOnline(false): %v", err)
	}
	online, _ = store.OnlineUsers(ctx)
	if len(online) != 0 {
		t.Errorf("OnlineUsers after offline = %v, want empty", online)
	}
}
