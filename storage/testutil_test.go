package storage

import (
	"testing"

	"cryptext/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dataDir := t.TempDir()
	store, _, err := Open(dataDir)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close test store: %v", err)
		}
	})

	return store
}

func mustSaveUser(t *testing.T, store *Store, userID, email string) {
	t.Helper()

	err := store.SaveUser(models.UserProfile{
		UserID:      userID,
		Email:       email,
		DisplayName: "user " + userID,
		CreatedAt:   nowUnixMilli(),
	})
	if err != nil {
		t.Fatalf("save user %q: %v", userID, err)
	}
}

func mustCreateChat(t *testing.T, store *Store, userA, userB string) models.Chat {
	t.Helper()

	chat, err := store.CreateOrReuseChat(userA, userB)
	if err != nil {
		t.Fatalf("create chat %q/%q: %v", userA, userB, err)
	}
	return chat
}

func countRows(t *testing.T, store *Store, collection string) int {
	t.Helper()

	var count int
	if err := store.db.QueryRow("SELECT COUNT(1) FROM " + collection).Scan(&count); err != nil {
		t.Fatalf("count rows in %q: %v", collection, err)
	}
	return count
}
