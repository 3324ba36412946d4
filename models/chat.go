package models

// Chat is one two-party conversation thread.
//
// LastMessage holds the plaintext preview of the most recent message. The
// message bodies themselves are stored encrypted; the preview is not. See
// the storage package docs for the consequences of that split.
type Chat struct {
	ChatID       string   `json:"chat_id"`
	LastMessage  string   `json:"last_message"`
	Timestamp    int64    `json:"timestamp"`
	Participants []string `json:"participants"`
	Secret       string   `json:"secret,omitempty"`
}

// HasParticipant reports whether userID is a member of the chat.
func (c Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// PeerOf returns the other participant of a two-party chat, or "" when
// userID is not a participant.
func (c Chat) PeerOf(userID string) string {
	if !c.HasParticipant(userID) {
		return ""
	}
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}
