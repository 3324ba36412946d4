package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenCreatesDatabaseAndAppliesMigrations(t *testing.T) {
	dataDir := t.TempDir()
	store, dbPath, err := Open(dataDir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	if dbPath != filepath.Join(dataDir, DefaultDBFileName) {
		t.Fatalf("unexpected db path: got %q", dbPath)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file not created: %v", err)
	}

	var version int
	if err := store.db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		t.Fatalf("read user_version: %v", err)
	}
	if version != len(migrations) {
		t.Fatalf("expected schema version %d, got %d", len(migrations), version)
	}

	var journalMode string
	if err := store.db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Fatalf("expected journal_mode wal, got %q", journalMode)
	}

	for _, collection := range collections {
		var count int
		if err := store.db.QueryRow(
			"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name = ?",
			collection,
		).Scan(&count); err != nil {
			t.Fatalf("check table %q: %v", collection, err)
		}
		if count != 1 {
			t.Fatalf("expected table %q to exist", collection)
		}
	}
}

func TestOpenIsIdempotentAcrossRestarts(t *testing.T) {
	dataDir := t.TempDir()

	store, _, err := Open(dataDir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	chat := mustCreateChat(t, store, "user-a", "user-b")
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, _, err := Open(dataDir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer func() {
		if err := reopened.Close(); err != nil {
			t.Fatalf("Close reopened store failed: %v", err)
		}
	}()

	loaded, err := reopened.GetChat(chat.ChatID)
	if err != nil {
		t.Fatalf("GetChat after reopen failed: %v", err)
	}
	if loaded.ChatID != chat.ChatID {
		t.Fatalf("expected chat %q to survive restart, got %q", chat.ChatID, loaded.ChatID)
	}
}

func TestClearAllEmptiesEveryCollection(t *testing.T) {
	store := newTestStore(t)
	mustSaveUser(t, store, "user-a", "a@example.com")
	chat := mustCreateChat(t, store, "user-a", "user-b")
	if _, err := store.AppendMessage(chat.ChatID, "user-a", "hi", "ciphertext"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	if err := store.ClearAll(); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}

	for _, collection := range collections {
		if count := countRows(t, store, collection); count != 0 {
			t.Fatalf("expected %q to be empty, found %d rows", collection, count)
		}
	}
}

func TestClearChatDataPreservesAccounts(t *testing.T) {
	store := newTestStore(t)
	mustSaveUser(t, store, "user-a", "a@example.com")
	chat := mustCreateChat(t, store, "user-a", "user-b")
	if _, err := store.AppendMessage(chat.ChatID, "user-a", "hi", "ciphertext"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	if err := store.ClearChatData(); err != nil {
		t.Fatalf("ClearChatData failed: %v", err)
	}

	for _, collection := range []string{collectionChats, collectionMessages, collectionUserChats} {
		if count := countRows(t, store, collection); count != 0 {
			t.Fatalf("expected %q to be empty, found %d rows", collection, count)
		}
	}

	user, err := store.GetUser("user-a")
	if err != nil {
		t.Fatalf("GetUser after clear failed: %v", err)
	}
	if user.Email != "a@example.com" {
		t.Fatalf("expected account to survive, got %+v", user)
	}
	if _, err := store.GetUserByEmail("a@example.com"); err != nil {
		t.Fatalf("GetUserByEmail after clear failed: %v", err)
	}
}
