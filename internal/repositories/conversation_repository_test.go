package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateInsertsFreshConversation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepo(db)
	now := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO conversations`).
		WithArgs(int64(2), int64(1), int64(3), true).
		WillReturnRows(conversationRow("active", true, now))

	conv, err := repo.GetOrCreate(context.Background(), 2, 1, 3, true)

	require.NoError(t, err)
	assert.Equal(t, int64(40), conv.ID)
	assert.True(t, conv.IsEncrypted)
	require.NoError(t, mock.ExpectationsWereMet())
}

// When the insert hits the active-triple index (the row already exists or
// a concurrent first contact won the race), RETURNING yields no row and
// the survivor is read back instead.
func TestGetOrCreateReturnsExistingOnConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepo(db)
	now := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO conversations`).
		WithArgs(int64(2), int64(1), int64(3), true).
		WillReturnRows(sqlmock.NewRows(conversationRowColumns))
	mock.ExpectQuery(`SELECT (.+) FROM conversations WHERE teacher_id=\$1 AND counterparty_id=\$2 AND child_id=\$3 AND status='active'`).
		WithArgs(int64(2), int64(1), int64(3)).
		WillReturnRows(conversationRow("active", true, now))

	conv, err := repo.GetOrCreate(context.Background(), 2, 1, 3, true)

	require.NoError(t, err)
	assert.Equal(t, int64(40), conv.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadZeroesOnlyViewerRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepo(db)

	mock.ExpectExec(`INSERT INTO conversation_unread`).
		WithArgs(int64(40), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkRead(context.Background(), 40, 1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveUnknownConversation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepo(db)

	mock.ExpectExec(`UPDATE conversations SET status='archived'`).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Archive(context.Background(), 99)

	assert.ErrorIs(t, err, ErrConversationNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
