package storage

import (
	"errors"
	"fmt"

	"cryptext/models"
)

// ListMessages returns a chat's messages in stored (append) order. A chat
// with no message record yields an empty slice, not an error.
func (s *Store) ListMessages(chatID string) ([]models.Message, error) {
	if chatID == "" {
		return nil, errors.New("chat_id is required")
	}

	var messages []models.Message
	err := s.getJSON(collectionMessages, chatID, &messages)
	if errors.Is(err, ErrNotFound) {
		return []models.Message{}, nil
	}
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// AppendMessage appends a new message to a chat's list, then mirrors the
// plaintext preview and timestamp onto the chat record.
//
// The two writes are not transactional: the message list can land while
// the preview update fails. An error therefore does not mean the store is
// unchanged. Writes for one chat id are serialized against each other.
func (s *Store) AppendMessage(chatID, senderID, plaintextPreview, encryptedContent string) (models.Message, error) {
	if chatID == "" {
		return models.Message{}, errors.New("chat_id is required")
	}
	if senderID == "" {
		return models.Message{}, errors.New("sender_id is required")
	}
	if encryptedContent == "" {
		return models.Message{}, errors.New("encrypted content is required")
	}

	unlock := s.lockChat(chatID)
	defer unlock()

	messages, err := s.ListMessages(chatID)
	if err != nil {
		return models.Message{}, err
	}

	ts := idTimestamp()
	message := models.Message{
		MessageID: newMessageID(senderID, ts),
		SenderID:  senderID,
		Content:   encryptedContent,
		Timestamp: ts,
	}

	if err := s.putJSON(collectionMessages, chatID, append(messages, message)); err != nil {
		return models.Message{}, fmt.Errorf("append message to chat %q: %w", chatID, err)
	}

	chat, err := s.GetChat(chatID)
	if errors.Is(err, ErrNotFound) {
		// Message list may outlive its chat record; keep the append.
		return message, nil
	}
	if err != nil {
		return models.Message{}, err
	}

	chat.LastMessage = plaintextPreview
	chat.Timestamp = message.Timestamp
	if err := s.putJSON(collectionChats, chatID, chat); err != nil {
		return models.Message{}, fmt.Errorf("update chat %q preview: %w", chatID, err)
	}

	return message, nil
}
