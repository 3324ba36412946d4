package storage

import (
	"errors"
	"fmt"

	"cryptext/crypto"
	"cryptext/models"
)

// ListChatsForUser resolves a user's chat index and loads each referenced
// chat. Index entries pointing at deleted chats are skipped, not errored.
func (s *Store) ListChatsForUser(userID string) ([]models.Chat, error) {
	if userID == "" {
		return nil, errors.New("user_id is required")
	}

	chatIDs, err := s.chatIndex(userID)
	if err != nil {
		return nil, err
	}

	chats := make([]models.Chat, 0, len(chatIDs))
	for _, chatID := range chatIDs {
		chat, err := s.GetChat(chatID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}

	return chats, nil
}

// GetChat fetches one chat record by chat ID.
func (s *Store) GetChat(chatID string) (models.Chat, error) {
	if chatID == "" {
		return models.Chat{}, errors.New("chat_id is required")
	}

	var chat models.Chat
	if err := s.getJSON(collectionChats, chatID, &chat); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// CreateOrReuseChat returns the existing chat between two users, or
// creates one when no thread for the pair exists yet.
//
// The lookup-then-create sequence is serialized per unordered user pair so
// two concurrent first contacts cannot create duplicate threads. A new
// chat gets a default preview, the current timestamp and a fresh random
// message secret.
func (s *Store) CreateOrReuseChat(userA, userB string) (models.Chat, error) {
	if userA == "" || userB == "" {
		return models.Chat{}, errors.New("both user ids are required")
	}
	if userA == userB {
		return models.Chat{}, errors.New("chat participants must be distinct users")
	}

	unlock := s.lockPair(userA, userB)
	defer unlock()

	existing, err := s.ListChatsForUser(userA)
	if err != nil {
		return models.Chat{}, fmt.Errorf("scan existing chats: %w", err)
	}
	for _, chat := range existing {
		if chat.HasParticipant(userB) {
			return chat, nil
		}
	}

	secret, err := crypto.NewChatSecret()
	if err != nil {
		return models.Chat{}, err
	}

	ts := idTimestamp()
	chat := models.Chat{
		ChatID:       newChatID(userA, ts),
		LastMessage:  DefaultChatPreview,
		Timestamp:    ts,
		Participants: []string{userA, userB},
		Secret:       secret,
	}

	if err := s.putJSON(collectionChats, chat.ChatID, chat); err != nil {
		return models.Chat{}, err
	}
	if err := s.addChatToIndex(userA, chat.ChatID); err != nil {
		return models.Chat{}, err
	}
	if err := s.addChatToIndex(userB, chat.ChatID); err != nil {
		return models.Chat{}, err
	}

	return chat, nil
}

// SaveChat writes a chat record as-is. Normal flows go through
// CreateOrReuseChat and AppendMessage; this exists for import and repair
// of records created elsewhere.
func (s *Store) SaveChat(chat models.Chat) error {
	if chat.ChatID == "" {
		return errors.New("chat_id is required")
	}
	if len(chat.Participants) != 2 {
		return errors.New("a chat has exactly two participants")
	}

	unlock := s.lockChat(chat.ChatID)
	defer unlock()

	return s.putJSON(collectionChats, chat.ChatID, chat)
}

// DeleteChat removes a chat for the requesting user: the chat id leaves
// that user's index, and the chat record plus its message list are
// deleted.
//
// The other participant's index is deliberately left alone. Their stale
// entry resolves to a missing record and disappears from listings; this is
// the leave-conversation policy, kept as explicit behavior rather than
// symmetrized.
func (s *Store) DeleteChat(chatID, requestingUserID string) error {
	if chatID == "" {
		return errors.New("chat_id is required")
	}
	if requestingUserID == "" {
		return errors.New("user_id is required")
	}

	unlock := s.lockChat(chatID)
	defer unlock()

	if err := s.removeChatFromIndex(requestingUserID, chatID); err != nil {
		return err
	}
	if err := s.deleteValue(collectionChats, chatID); err != nil {
		return err
	}
	return s.deleteValue(collectionMessages, chatID)
}

func (s *Store) chatIndex(userID string) ([]string, error) {
	var chatIDs []string
	err := s.getJSON(collectionUserChats, userID, &chatIDs)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return chatIDs, nil
}

func (s *Store) addChatToIndex(userID, chatID string) error {
	chatIDs, err := s.chatIndex(userID)
	if err != nil {
		return err
	}
	for _, id := range chatIDs {
		if id == chatID {
			return nil
		}
	}
	return s.putJSON(collectionUserChats, userID, append(chatIDs, chatID))
}

func (s *Store) removeChatFromIndex(userID, chatID string) error {
	chatIDs, err := s.chatIndex(userID)
	if err != nil {
		return err
	}

	kept := chatIDs[:0]
	for _, id := range chatIDs {
		if id != chatID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(chatIDs) {
		return nil
	}
	return s.putJSON(collectionUserChats, userID, kept)
}
