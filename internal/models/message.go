package models

import "time"

// Message is a single persisted message. Content and timestamp never
// mutate after the append; only moderation metadata may be revised by a
// later review step outside this service.
type Message struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID int64     `db:"conversation_id" json:"conversation_id"`
	SenderID       int64     `db:"sender_id" json:"sender_id"`
	SenderRole     Role      `db:"sender_role" json:"sender_role"`
	Content        string    `db:"content" json:"content"`
	IsEncrypted    bool      `db:"is_encrypted" json:"is_encrypted"`
	IsFlagged      bool      `db:"is_flagged" json:"is_flagged"`
	SafetyScore    float64   `db:"safety_score" json:"safety_score"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ConversationEvent is broadcasted through websockets to open threads.
type ConversationEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
}
