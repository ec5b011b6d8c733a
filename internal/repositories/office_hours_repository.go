package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"comms-service/internal/models"
)

// OfficeHoursRepository stores per-teacher weekly windows.
type OfficeHoursRepository interface {
	WindowsFor(ctx context.Context, teacherID int64) ([]models.OfficeHoursWindow, error)
	Replace(ctx context.Context, teacherID int64, windows []models.OfficeHoursWindow) error
}

// OfficeHoursRepo is a sqlx implementation of OfficeHoursRepository.
type OfficeHoursRepo struct {
	db *sqlx.DB
}

// NewOfficeHoursRepo constructs an OfficeHoursRepo.
func NewOfficeHoursRepo(db *sqlx.DB) *OfficeHoursRepo {
	return &OfficeHoursRepo{db: db}
}

// WindowsFor returns the teacher's window set ordered by day and start.
func (r *OfficeHoursRepo) WindowsFor(ctx context.Context, teacherID int64) ([]models.OfficeHoursWindow, error) {
	var windows []models.OfficeHoursWindow
	err := r.db.SelectContext(ctx, &windows,
		`SELECT id, teacher_id, day_of_week, start_time, end_time, is_active
         FROM office_hours_windows WHERE teacher_id=$1
         ORDER BY day_of_week, start_time`, teacherID)
	return windows, err
}

// Replace swaps the teacher's whole window set in one transaction. Full
// replace, not patch, so a concurrent reader never observes a partially
// updated, possibly overlapping set.
func (r *OfficeHoursRepo) Replace(ctx context.Context, teacherID int64, windows []models.OfficeHoursWindow) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM office_hours_windows WHERE teacher_id=$1`, teacherID); err != nil {
		return err
	}

	for _, w := range windows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO office_hours_windows (teacher_id, day_of_week, start_time, end_time, is_active)
             VALUES ($1, $2, $3, $4, $5)`,
			teacherID, w.DayOfWeek, w.StartTime, w.EndTime, w.IsActive); err != nil {
			return err
		}
	}

	return tx.Commit()
}
