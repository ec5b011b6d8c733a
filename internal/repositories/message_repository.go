package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"comms-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// NewMessage carries the scored, policy-checked payload for an append.
type NewMessage struct {
	SenderID    int64
	SenderRole  models.Role
	Content     string
	IsEncrypted bool
	IsFlagged   bool
	SafetyScore float64
}

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	Append(ctx context.Context, conversationID int64, msg NewMessage) (models.Message, error)
	ListForConversation(ctx context.Context, conversationID int64) ([]models.Message, error)
	Get(ctx context.Context, messageID int64) (models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, conversation_id, sender_id, sender_role, content,
    is_encrypted, is_flagged, safety_score, created_at`

// Append stores a message and, in the same transaction, refreshes the
// conversation's snippet and recency and bumps the unread counter of
// every participant except the sender. The conversation row is locked for
// the duration so appends to one conversation are linearized.
func (r *MessageRepo) Append(ctx context.Context, conversationID int64, msg NewMessage) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	var conv models.Conversation
	err = tx.GetContext(ctx, &conv,
		`SELECT `+conversationColumns+` FROM conversations WHERE id=$1 FOR UPDATE`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Message{}, err
	}
	if conv.Status == models.ConversationArchived {
		return models.Message{}, ErrConversationArchived
	}

	var stored models.Message
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (conversation_id, sender_id, sender_role, content, is_encrypted, is_flagged, safety_score)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING `+messageColumns,
		conversationID, msg.SenderID, msg.SenderRole, msg.Content, msg.IsEncrypted, msg.IsFlagged, msg.SafetyScore).
		StructScan(&stored)
	if err != nil {
		return models.Message{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET last_message_snippet = LEFT($2, 120), last_message_at = $3 WHERE id=$1`,
		conversationID, msg.Content, stored.CreatedAt); err != nil {
		return models.Message{}, err
	}

	for _, participant := range conv.Participants() {
		if participant == msg.SenderID {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO conversation_unread (conversation_id, viewer_id, unread) VALUES ($1, $2, 1)
             ON CONFLICT (conversation_id, viewer_id) DO UPDATE SET unread = conversation_unread.unread + 1`,
			conversationID, participant); err != nil {
			return models.Message{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return stored, nil
}

// ListForConversation returns messages in append order.
func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID int64) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id=$1 ORDER BY id ASC`,
		conversationID)
	return msgs, err
}

// Get retrieves a single message.
func (r *MessageRepo) Get(ctx context.Context, messageID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}
