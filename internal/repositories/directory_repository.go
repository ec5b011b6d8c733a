package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"comms-service/internal/models"
)

var ErrAccountNotFound = errors.New("account not found")

// DirectoryRepository is the read side of the relationship graph. Account
// rows and relationship edges are replicated into the service schema by
// the surrounding platform; this service never mutates them.
type DirectoryRepository interface {
	GetAccount(ctx context.Context, accountID int64) (models.Account, error)
	IsGuardian(ctx context.Context, parentID, childID int64) (bool, error)
	Teaches(ctx context.Context, teacherID, childID int64) (bool, error)
	GuardiansOf(ctx context.Context, childID int64) ([]int64, error)
}

// DirectoryRepo is a sqlx implementation of DirectoryRepository.
type DirectoryRepo struct {
	db *sqlx.DB
}

// NewDirectoryRepo constructs a DirectoryRepo.
func NewDirectoryRepo(db *sqlx.DB) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

// GetAccount fetches an account by id.
func (r *DirectoryRepo) GetAccount(ctx context.Context, accountID int64) (models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account,
		`SELECT id, full_name, role, school_id FROM accounts WHERE id=$1`, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, ErrAccountNotFound
	}
	return account, err
}

// IsGuardian checks the parent guardianOf child edge.
func (r *DirectoryRepo) IsGuardian(ctx context.Context, parentID, childID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM guardian_links WHERE parent_id=$1 AND child_id=$2)`,
		parentID, childID)
	return exists, err
}

// Teaches checks whether the teacher teaches the child in any class.
func (r *DirectoryRepo) Teaches(ctx context.Context, teacherID, childID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM class_rosters WHERE teacher_id=$1 AND student_id=$2)`,
		teacherID, childID)
	return exists, err
}

// GuardiansOf lists every guardian of the child.
func (r *DirectoryRepo) GuardiansOf(ctx context.Context, childID int64) ([]int64, error) {
	var guardians []int64
	err := r.db.SelectContext(ctx, &guardians,
		`SELECT parent_id FROM guardian_links WHERE child_id=$1 ORDER BY parent_id`, childID)
	return guardians, err
}
