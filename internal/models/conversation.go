package models

import "time"

// ConversationStatus is the lifecycle state of a conversation.
// Conversations are never deleted, only archived.
type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationArchived ConversationStatus = "archived"
)

// Conversation is a thread between a teacher and a counterparty (parent or
// student), anchored on the child it concerns. At most one active
// conversation exists per (teacher, counterparty, child) triple.
type Conversation struct {
	ID                 int64              `db:"id" json:"id"`
	TeacherID          int64              `db:"teacher_id" json:"teacher_id"`
	CounterpartyID     int64              `db:"counterparty_id" json:"counterparty_id"`
	ChildID            int64              `db:"child_id" json:"child_id"`
	IsEncrypted        bool               `db:"is_encrypted" json:"is_encrypted"`
	Status             ConversationStatus `db:"status" json:"status"`
	LastMessageSnippet string             `db:"last_message_snippet" json:"last_message_snippet"`
	LastMessageAt      time.Time          `db:"last_message_at" json:"last_message_at"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
}

// ConversationSummary is the API-friendly list view for one viewer.
type ConversationSummary struct {
	Conversation
	CounterpartyName string `db:"counterparty_name" json:"counterparty_name"`
	UnreadCount      int    `db:"unread_count" json:"unread_count"`
}

// Participants returns both participant account ids.
func (c Conversation) Participants() [2]int64 {
	return [2]int64{c.TeacherID, c.CounterpartyID}
}

// HasParticipant reports whether the account takes part in the conversation.
func (c Conversation) HasParticipant(accountID int64) bool {
	return c.TeacherID == accountID || c.CounterpartyID == accountID
}
