package client

import (
	"sort"
	"sync"
	"time"
)

// Typing tracks who is typing in which chat. Each (chat, user) pair owns a
// single timer that is reset on every notice, so a user typing continuously
// stays in the set and drops out one expiry after their last keystroke.
type Typing struct {
	expiry time.Duration

	mu      sync.Mutex
	chats   map[string]map[string]*typist
	stopped bool
}

type typist struct {
	username string
	timer    *time.Timer
}

func newTyping(expiry time.Duration) *Typing {
	return &Typing{
		expiry: expiry,
		chats:  make(map[string]map[string]*typist),
	}
}

// Typists returns the usernames currently typing in a chat, sorted.
func (t *Typing) Typists(chatID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var names []string
	for _, entry := range t.chats[chatID] {
		names = append(names, entry.username)
	}
	sort.Strings(names)
	return names
}

func (t *Typing) notice(chatID, userID, username string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}

	chat := t.chats[chatID]
	if chat == nil {
		chat = make(map[string]*typist)
		t.chats[chatID] = chat
	}

	if entry, ok := chat[userID]; ok {
		entry.username = username
		entry.timer.Reset(t.expiry)
		return
	}

	chat[userID] = &typist{
		username: username,
		timer: time.AfterFunc(t.expiry, func() {
			t.clear(chatID, userID)
		}),
	}
}

// clear drops one typist, stopping their timer if it has not fired yet.
func (t *Typing) clear(chatID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	chat := t.chats[chatID]
	entry, ok := chat[userID]
	if !ok {
		return
	}
	entry.timer.Stop()
	delete(chat, userID)
	if len(chat) == 0 {
		delete(t.chats, chatID)
	}
}

// restart re-arms the tracker for a fresh connection.
func (t *Typing) restart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = false
}

// stopAll cancels every timer and empties the sets. Used on disconnect so no
// timer fires into dead state.
func (t *Typing) stopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for _, chat := range t.chats {
		for _, entry := range chat {
			entry.timer.Stop()
		}
	}
	t.chats = make(map[string]map[string]*typist)
}
