package models

import "time"

// ChildMessageDirection is relative to the child: "sent" means the child
// wrote the message, "received" means the teacher did.
type ChildMessageDirection string

const (
	ChildMessageSent     ChildMessageDirection = "sent"
	ChildMessageReceived ChildMessageDirection = "received"
)

// ChildMessage is the transparency projection of a student-teacher
// message, one row per guardian of the child. Every student-teacher
// message must have such a row for every guardian; there is no private
// channel between a minor and staff.
type ChildMessage struct {
	ID         int64                 `db:"id" json:"id"`
	MessageID  int64                 `db:"message_id" json:"message_id"`
	ChildID    int64                 `db:"child_id" json:"child_id"`
	GuardianID int64                 `db:"guardian_id" json:"guardian_id"`
	Direction  ChildMessageDirection `db:"direction" json:"direction"`
	Content    string                `db:"content" json:"content"`
	IsRead     bool                  `db:"is_read" json:"is_read"`
	CreatedAt  time.Time             `db:"created_at" json:"created_at"`
}
