package models

// Message is one chat message as persisted. Content is ciphertext at rest
// and plaintext only in transit between the codec and the caller.
type Message struct {
	MessageID string `json:"message_id"`
	SenderID  string `json:"sender_id"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}
