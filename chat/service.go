// Package chat implements the user-facing conversation flows: starting a
// thread with another account, sending encrypted messages and reading
// them back as plaintext.
package chat

import (
	"context"
	"errors"
	"fmt"

	"cryptext/crypto"
	"cryptext/identity"
	"cryptext/models"
	"cryptext/storage"
)

// EncryptedPlaceholder is rendered for a message body that cannot be
// decrypted. The failure stays scoped to the affected message.
const EncryptedPlaceholder = "[Encrypted message]"

// ErrNotParticipant indicates the session user is not a member of the
// chat they tried to act on.
var ErrNotParticipant = errors.New("chat: user is not a participant")

// EmailResolver resolves an account email to a user identifier within the
// bounds of the supplied context.
type EmailResolver interface {
	Lookup(ctx context.Context, email string) (string, error)
}

// DecryptedMessage is a stored message with its body decrypted for
// display. Decrypted is false when the body could not be recovered and
// Text holds EncryptedPlaceholder instead.
type DecryptedMessage struct {
	models.Message
	Text      string
	Decrypted bool
}

// Service runs conversation flows for one signed-in session.
type Service struct {
	store   *storage.Store
	session *identity.Session
}

// NewService creates a chat service bound to a session.
func NewService(store *storage.Store, session *identity.Session) (*Service, error) {
	if store == nil {
		return nil, errors.New("chat: store is required")
	}
	if session == nil || session.UserID == "" {
		return nil, errors.New("chat: signed-in session is required")
	}
	return &Service{store: store, session: session}, nil
}

// InboxEntry is a chat as the session user's conversation list shows it:
// the record plus the peer the thread is with.
type InboxEntry struct {
	models.Chat
	PeerID string
}

// Inbox lists the session user's chats with each thread's peer resolved.
func (s *Service) Inbox() ([]InboxEntry, error) {
	chats, err := s.store.ListChatsForUser(s.session.UserID)
	if err != nil {
		return nil, err
	}

	out := make([]InboxEntry, 0, len(chats))
	for _, chat := range chats {
		out = append(out, InboxEntry{
			Chat:   chat,
			PeerID: chat.PeerOf(s.session.UserID),
		})
	}
	return out, nil
}

// Start opens (or reuses) a chat with the account behind recipientEmail,
// resolving the email through the directory within the context's bounds.
func (s *Service) Start(ctx context.Context, resolver EmailResolver, recipientEmail string) (models.Chat, error) {
	if resolver == nil {
		return models.Chat{}, errors.New("chat: resolver is required")
	}

	recipientID, err := resolver.Lookup(ctx, recipientEmail)
	if err != nil {
		return models.Chat{}, fmt.Errorf("resolve recipient %q: %w", recipientEmail, err)
	}

	return s.store.CreateOrReuseChat(s.session.UserID, recipientID)
}

// Send encrypts plaintext under the chat's secret and appends it. An
// encryption failure blocks the send; nothing is persisted for it.
func (s *Service) Send(chatID, plaintext string) (models.Message, error) {
	chat, err := s.store.GetChat(chatID)
	if err != nil {
		return models.Message{}, err
	}
	if !chat.HasParticipant(s.session.UserID) {
		return models.Message{}, ErrNotParticipant
	}

	encrypted, err := crypto.EncryptString(plaintext, chatSecret(chat))
	if err != nil {
		return models.Message{}, fmt.Errorf("encrypt message: %w", err)
	}

	return s.store.AppendMessage(chatID, s.session.UserID, plaintext, encrypted)
}

// History returns the chat's messages in order with bodies decrypted.
// Undecryptable messages degrade to the placeholder individually; one bad
// record never fails the whole listing.
func (s *Service) History(chatID string) ([]DecryptedMessage, error) {
	chat, err := s.store.GetChat(chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(s.session.UserID) {
		return nil, ErrNotParticipant
	}

	messages, err := s.store.ListMessages(chatID)
	if err != nil {
		return nil, err
	}

	secret := chatSecret(chat)
	out := make([]DecryptedMessage, 0, len(messages))
	for _, message := range messages {
		decrypted := DecryptedMessage{Message: message}
		if text, err := crypto.DecryptString(message.Content, secret); err == nil {
			decrypted.Text = text
			decrypted.Decrypted = true
		} else {
			decrypted.Text = EncryptedPlaceholder
		}
		out = append(out, decrypted)
	}

	return out, nil
}

// Delete removes the chat from the session user's side.
func (s *Service) Delete(chatID string) error {
	return s.store.DeleteChat(chatID, s.session.UserID)
}

// chatSecret returns the passphrase for a chat's messages. Chats created
// before per-chat secrets existed fall back to the chat id, which is what
// their stored ciphertext was keyed on.
func chatSecret(chat models.Chat) string {
	if chat.Secret != "" {
		return chat.Secret
	}
	return chat.ChatID
}
