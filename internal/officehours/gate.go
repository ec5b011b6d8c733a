package officehours

import (
	"context"
	"fmt"
	"sort"
	"time"

	"comms-service/internal/models"
)

// WindowSource provides the stored window set for a teacher.
type WindowSource interface {
	WindowsFor(ctx context.Context, teacherID int64) ([]models.OfficeHoursWindow, error)
}

// Gate answers whether a teacher currently accepts direct student
// messages. The decision is a pure function of the window set and the
// supplied time, so callers pass "now" explicitly.
type Gate struct {
	windows WindowSource
}

// NewGate builds a Gate over the given window source.
func NewGate(windows WindowSource) *Gate {
	return &Gate{windows: windows}
}

// IsOpen reports whether now falls inside any active window for the teacher.
func (g *Gate) IsOpen(ctx context.Context, teacherID int64, now time.Time) (bool, error) {
	windows, err := g.windows.WindowsFor(ctx, teacherID)
	if err != nil {
		return false, err
	}
	return Contains(windows, now), nil
}

// Contains reports whether now falls inside any active window. Start and
// end are both inclusive, matching how the registration UI presents the
// windows to teachers.
func Contains(windows []models.OfficeHoursWindow, now time.Time) bool {
	minute := now.Hour()*60 + now.Minute()
	day := int(now.Weekday())

	for _, w := range windows {
		if !w.IsActive || w.DayOfWeek != day {
			continue
		}
		start, err := parseMinutes(w.StartTime)
		if err != nil {
			continue
		}
		end, err := parseMinutes(w.EndTime)
		if err != nil {
			continue
		}
		if minute >= start && minute <= end {
			return true
		}
	}
	return false
}

// NextOpening returns the start of the earliest upcoming active window
// strictly after now, scanning at most one week ahead. ok is false when
// the teacher has no active windows at all.
func NextOpening(windows []models.OfficeHoursWindow, now time.Time) (time.Time, bool) {
	best := time.Time{}
	found := false

	for _, w := range windows {
		if !w.IsActive {
			continue
		}
		start, err := parseMinutes(w.StartTime)
		if err != nil {
			continue
		}

		dayDelta := (w.DayOfWeek - int(now.Weekday()) + 7) % 7
		candidate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
			AddDate(0, 0, dayDelta).
			Add(time.Duration(start) * time.Minute)
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 7)
		}

		if !found || candidate.Before(best) {
			best = candidate
			found = true
		}
	}
	return best, found
}

// Validate checks a replacement window set: well-formed times, start
// before end, no overnight windows, and no overlapping active windows on
// the same day. Overlaps are rejected rather than resolved last-write-wins
// so the stored set is always unambiguous.
func Validate(windows []models.OfficeHoursWindow) error {
	type span struct {
		day        int
		start, end int
	}
	spans := make([]span, 0, len(windows))

	for i, w := range windows {
		if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
			return fmt.Errorf("window %d: day_of_week %d out of range", i, w.DayOfWeek)
		}
		start, err := parseMinutes(w.StartTime)
		if err != nil {
			return fmt.Errorf("window %d: %w", i, err)
		}
		end, err := parseMinutes(w.EndTime)
		if err != nil {
			return fmt.Errorf("window %d: %w", i, err)
		}
		if start >= end {
			return fmt.Errorf("window %d: start %s must be before end %s", i, w.StartTime, w.EndTime)
		}
		if w.IsActive {
			spans = append(spans, span{day: w.DayOfWeek, start: start, end: end})
		}
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].day != spans[j].day {
			return spans[i].day < spans[j].day
		}
		return spans[i].start < spans[j].start
	})
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		if cur.day == prev.day && cur.start <= prev.end {
			return fmt.Errorf("overlapping windows on day %d", cur.day)
		}
	}
	return nil
}

func parseMinutes(hhmm string) (int, error) {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", hhmm)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}
