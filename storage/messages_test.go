package storage

import (
	"strings"
	"testing"
)

func TestAppendMessagePreservesCallOrder(t *testing.T) {
	store := newTestStore(t)
	chat := mustCreateChat(t, store, "user-a", "user-b")

	bodies := []string{"cipher-one", "cipher-two", "cipher-three"}
	for _, body := range bodies {
		if _, err := store.AppendMessage(chat.ChatID, "user-a", "preview", body); err != nil {
			t.Fatalf("AppendMessage %q failed: %v", body, err)
		}
	}

	messages, err := store.ListMessages(chat.ChatID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != len(bodies) {
		t.Fatalf("expected %d messages, got %d", len(bodies), len(messages))
	}

	seen := make(map[string]bool)
	for i, message := range messages {
		if message.Content != bodies[i] {
			t.Fatalf("message %d out of order: got %q want %q", i, message.Content, bodies[i])
		}
		if i > 0 && message.Timestamp < messages[i-1].Timestamp {
			t.Fatalf("timestamps decreased at index %d: %d then %d",
				i, messages[i-1].Timestamp, message.Timestamp)
		}
		if !strings.HasPrefix(message.MessageID, "msg_") {
			t.Fatalf("unexpected message id format %q", message.MessageID)
		}
		if seen[message.MessageID] {
			t.Fatalf("duplicate message id %q", message.MessageID)
		}
		seen[message.MessageID] = true
	}
}

func TestAppendMessageUpdatesChatPreview(t *testing.T) {
	store := newTestStore(t)
	chat := mustCreateChat(t, store, "user-a", "user-b")

	message, err := store.AppendMessage(chat.ChatID, "user-a", "hello", "encrypted-hello")
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if message.SenderID != "user-a" {
		t.Fatalf("expected sender user-a, got %q", message.SenderID)
	}
	if message.Content != "encrypted-hello" {
		t.Fatalf("expected stored content to be the encrypted body, got %q", message.Content)
	}

	updated, err := store.GetChat(chat.ChatID)
	if err != nil {
		t.Fatalf("GetChat failed: %v", err)
	}
	if updated.LastMessage != "hello" {
		t.Fatalf("expected plaintext preview %q, got %q", "hello", updated.LastMessage)
	}
	if updated.Timestamp != message.Timestamp {
		t.Fatalf("expected chat timestamp %d to mirror message, got %d",
			message.Timestamp, updated.Timestamp)
	}
	if updated.Secret != chat.Secret {
		t.Fatalf("expected chat secret to survive preview update")
	}
}

func TestAppendMessageToleratesMissingChatRecord(t *testing.T) {
	store := newTestStore(t)

	// No chat record exists; the message list is still appended.
	message, err := store.AppendMessage("chat_orphan", "user-a", "preview", "ciphertext")
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	messages, err := store.ListMessages("chat_orphan")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 1 || messages[0].MessageID != message.MessageID {
		t.Fatalf("expected orphan append to persist, got %v", messages)
	}
}

func TestAppendMessageValidatesInput(t *testing.T) {
	store := newTestStore(t)
	chat := mustCreateChat(t, store, "user-a", "user-b")

	if _, err := store.AppendMessage("", "user-a", "p", "c"); err == nil {
		t.Fatalf("expected error for empty chat id")
	}
	if _, err := store.AppendMessage(chat.ChatID, "", "p", "c"); err == nil {
		t.Fatalf("expected error for empty sender id")
	}
	if _, err := store.AppendMessage(chat.ChatID, "user-a", "p", ""); err == nil {
		t.Fatalf("expected error for empty encrypted content")
	}
}

func TestListMessagesWithoutRecordIsEmpty(t *testing.T) {
	store := newTestStore(t)

	messages, err := store.ListMessages("chat_missing")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if messages == nil || len(messages) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", messages)
	}
}
