package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const chatSecretSize = 32

// NewChatSecret generates a random 256-bit passphrase for one chat.
//
// Earlier builds keyed messages on the chat identifier itself, which is
// visible to anyone holding the store. New chats get a real secret at
// creation time instead; the codec interface is unchanged either way.
func NewChatSecret() (string, error) {
	raw := make([]byte, chatSecretSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("%w: generate chat secret: %v", ErrCipher, err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
