package crypto

import "testing"

func TestNewChatSecretIsUniqueAndUsable(t *testing.T) {
	first, err := NewChatSecret()
	if err != nil {
		t.Fatalf("first NewChatSecret failed: %v", err)
	}
	second, err := NewChatSecret()
	if err != nil {
		t.Fatalf("second NewChatSecret failed: %v", err)
	}
	if first == "" || second == "" {
		t.Fatalf("expected non-empty secrets")
	}
	if first == second {
		t.Fatalf("expected distinct secrets across calls")
	}

	encoded, err := EncryptString("hello", first)
	if err != nil {
		t.Fatalf("EncryptString with generated secret failed: %v", err)
	}
	decrypted, err := DecryptString(encoded, first)
	if err != nil {
		t.Fatalf("DecryptString with generated secret failed: %v", err)
	}
	if decrypted != "hello" {
		t.Fatalf("expected %q, got %q", "hello", decrypted)
	}
}
