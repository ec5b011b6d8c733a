package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"comms-service/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationArchived = errors.New("conversation archived")
)

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	GetOrCreate(ctx context.Context, teacherID, counterpartyID, childID int64, encrypted bool) (models.Conversation, error)
	Get(ctx context.Context, conversationID int64) (models.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, accountID int64) (bool, error)
	List(ctx context.Context, viewerID int64, filter string) ([]models.ConversationSummary, error)
	Archive(ctx context.Context, conversationID int64) error
	MarkRead(ctx context.Context, conversationID, viewerID int64) error
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

const conversationColumns = `id, teacher_id, counterparty_id, child_id, is_encrypted, status,
    last_message_snippet, last_message_at, created_at`

// GetOrCreate returns the active conversation for the triple, creating it
// if absent. The partial unique index on (teacher_id, counterparty_id,
// child_id) makes the insert race-safe: the loser of a concurrent first
// contact re-reads the winner's row instead of failing.
func (r *ConversationRepo) GetOrCreate(ctx context.Context, teacherID, counterpartyID, childID int64, encrypted bool) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`INSERT INTO conversations (teacher_id, counterparty_id, child_id, is_encrypted)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (teacher_id, counterparty_id, child_id) WHERE status = 'active' DO NOTHING
         RETURNING `+conversationColumns,
		teacherID, counterpartyID, childID, encrypted)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, err
	}

	// Lost the race or the row already existed: read the survivor.
	err = r.db.GetContext(ctx, &conv,
		`SELECT `+conversationColumns+` FROM conversations
         WHERE teacher_id=$1 AND counterparty_id=$2 AND child_id=$3 AND status='active'`,
		teacherID, counterpartyID, childID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// Get fetches a conversation by id.
func (r *ConversationRepo) Get(ctx context.Context, conversationID int64) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// IsParticipant checks whether the account belongs to the conversation.
func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID, accountID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM conversations WHERE id=$1 AND (teacher_id=$2 OR counterparty_id=$2))`,
		conversationID, accountID)
	return exists, err
}

// List returns the viewer's conversations ordered by recency. The filter
// matches the counterparty's name and the last-message snippet,
// case-insensitively. For a teacher the "counterparty" shown is the other
// side; for parents and students it is the teacher.
func (r *ConversationRepo) List(ctx context.Context, viewerID int64, filter string) ([]models.ConversationSummary, error) {
	query := `SELECT c.id, c.teacher_id, c.counterparty_id, c.child_id, c.is_encrypted, c.status,
            c.last_message_snippet, c.last_message_at, c.created_at,
            other.full_name AS counterparty_name,
            COALESCE(u.unread, 0) AS unread_count
        FROM conversations c
        JOIN accounts other
            ON other.id = CASE WHEN c.teacher_id = $1 THEN c.counterparty_id ELSE c.teacher_id END
        LEFT JOIN conversation_unread u ON u.conversation_id = c.id AND u.viewer_id = $1
        WHERE (c.teacher_id = $1 OR c.counterparty_id = $1)
          AND ($2 = '' OR other.full_name ILIKE '%' || $2 || '%' OR c.last_message_snippet ILIKE '%' || $2 || '%')
        ORDER BY c.last_message_at DESC`

	var summaries []models.ConversationSummary
	err := r.db.SelectContext(ctx, &summaries, query, viewerID, filter)
	return summaries, err
}

// Archive moves the conversation out of the active state. Archiving is
// idempotent; the unique triple constraint only covers active rows, so a
// later first contact starts a fresh thread.
func (r *ConversationRepo) Archive(ctx context.Context, conversationID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conversations SET status='archived' WHERE id=$1`, conversationID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// MarkRead zeroes the viewer's unread counter. Other viewers' counters
// are independent rows and stay untouched.
func (r *ConversationRepo) MarkRead(ctx context.Context, conversationID, viewerID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO conversation_unread (conversation_id, viewer_id, unread) VALUES ($1, $2, 0)
         ON CONFLICT (conversation_id, viewer_id) DO UPDATE SET unread = 0`,
		conversationID, viewerID)
	return err
}
