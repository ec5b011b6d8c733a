package repositories

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"comms-service/internal/models"
)

var ErrChildMessageNotFound = errors.New("child message not found")

// ChildMessageRepository persists the guardian transparency projection.
type ChildMessageRepository interface {
	Create(ctx context.Context, entry models.ChildMessage) (models.ChildMessage, error)
	ListForGuardian(ctx context.Context, childID, guardianID int64) ([]models.ChildMessage, error)
	Acknowledge(ctx context.Context, childMessageID, guardianID int64) error
}

// ChildMessageRepo is a sqlx implementation of ChildMessageRepository.
type ChildMessageRepo struct {
	db *sqlx.DB
}

// NewChildMessageRepo constructs a ChildMessageRepo.
func NewChildMessageRepo(db *sqlx.DB) *ChildMessageRepo {
	return &ChildMessageRepo{db: db}
}

const childMessageColumns = `id, message_id, child_id, guardian_id, direction, content, is_read, created_at`

// Create writes one guardian's projection of a message. Re-delivery after
// an async retry is idempotent thanks to the (message_id, guardian_id)
// unique constraint.
func (r *ChildMessageRepo) Create(ctx context.Context, entry models.ChildMessage) (models.ChildMessage, error) {
	var stored models.ChildMessage
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO child_messages (message_id, child_id, guardian_id, direction, content)
         VALUES ($1, $2, $3, $4, $5)
         ON CONFLICT (message_id, guardian_id) DO UPDATE SET message_id = EXCLUDED.message_id
         RETURNING `+childMessageColumns,
		entry.MessageID, entry.ChildID, entry.GuardianID, entry.Direction, entry.Content).
		StructScan(&stored)
	return stored, err
}

// ListForGuardian returns the guardian's view of the child's messages in
// chronological order.
func (r *ChildMessageRepo) ListForGuardian(ctx context.Context, childID, guardianID int64) ([]models.ChildMessage, error) {
	var entries []models.ChildMessage
	err := r.db.SelectContext(ctx, &entries,
		`SELECT `+childMessageColumns+` FROM child_messages
         WHERE child_id=$1 AND guardian_id=$2 ORDER BY id ASC`,
		childID, guardianID)
	return entries, err
}

// Acknowledge marks one projection as read by its guardian.
func (r *ChildMessageRepo) Acknowledge(ctx context.Context, childMessageID, guardianID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE child_messages SET is_read = TRUE WHERE id=$1 AND guardian_id=$2`,
		childMessageID, guardianID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrChildMessageNotFound
	}
	return nil
}
