package storage

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("storage: record not found")
)

const (
	collectionChats      = "chats"
	collectionMessages   = "messages"
	collectionUserChats  = "user_chats"
	collectionUsers      = "users"
	collectionUserEmails = "user_emails"
)

var collections = []string{
	collectionChats,
	collectionMessages,
	collectionUserChats,
	collectionUsers,
	collectionUserEmails,
}

// DefaultChatPreview seeds the last-message field of a brand-new chat.
const DefaultChatPreview = "Start chatting"

const idPrefixLen = 4

func newChatID(creatorID string, ts int64) string {
	return fmt.Sprintf("chat_%d_%s", ts, idPrefix(creatorID))
}

func newMessageID(senderID string, ts int64) string {
	return fmt.Sprintf("msg_%d_%s", ts, idPrefix(senderID))
}

func idPrefix(userID string) string {
	if len(userID) <= idPrefixLen {
		return userID
	}
	return userID[:idPrefixLen]
}

func nowUnixMilli() int64 {
	return time.Now().UnixMilli()
}

var lastIDMillis atomic.Int64

// idTimestamp returns wall-clock milliseconds, bumped to stay strictly
// increasing within this process. Identifiers embed the timestamp, so two
// records minted in the same millisecond must not share it.
func idTimestamp() int64 {
	now := nowUnixMilli()
	for {
		last := lastIDMillis.Load()
		if now <= last {
			now = last + 1
		}
		if lastIDMillis.CompareAndSwap(last, now) {
			return now
		}
	}
}

// lockKey returns the held mutex for a serialization key. Locks live for
// the lifetime of the Store; the key space is bounded by the chats and
// user pairs touched by one process.
func (s *Store) lockKey(key string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	mu, ok := s.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[key] = mu
	}
	return mu
}

// lockChat serializes writes touching one chat id.
func (s *Store) lockChat(chatID string) func() {
	mu := s.lockKey("chat:" + chatID)
	mu.Lock()
	return mu.Unlock
}

// lockPair serializes chat creation for one unordered user pair.
func (s *Store) lockPair(userA, userB string) func() {
	a, b := userA, userB
	if b < a {
		a, b = b, a
	}
	mu := s.lockKey("pair:" + a + "\x00" + b)
	mu.Lock()
	return mu.Unlock
}
