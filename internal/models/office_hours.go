package models

// OfficeHoursWindow is a weekly availability window for direct
// student-initiated messaging. DayOfWeek follows time.Weekday numbering
// (0 = Sunday). Start and end are "HH:MM" wall-clock times on the same
// day; overnight windows are not supported.
type OfficeHoursWindow struct {
	ID        int64  `db:"id" json:"id"`
	TeacherID int64  `db:"teacher_id" json:"teacher_id"`
	DayOfWeek int    `db:"day_of_week" json:"day_of_week" binding:"min=0,max=6"`
	StartTime string `db:"start_time" json:"start_time" binding:"required"`
	EndTime   string `db:"end_time" json:"end_time" binding:"required"`
	IsActive  bool   `db:"is_active" json:"is_active"`
}
