package officehours

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"comms-service/internal/mocks"
	"comms-service/internal/models"
)

func window(day int, start, end string) models.OfficeHoursWindow {
	return models.OfficeHoursWindow{DayOfWeek: day, StartTime: start, EndTime: end, IsActive: true}
}

// 2026-06-01 is a Monday.
func mondayAt(hour, minute int) time.Time {
	return time.Date(2026, 6, 1, hour, minute, 0, 0, time.UTC)
}

func TestContainsInsideWindow(t *testing.T) {
	windows := []models.OfficeHoursWindow{window(1, "09:00", "10:00")}
	assert.True(t, Contains(windows, mondayAt(9, 30)))
}

func TestContainsBoundsAreInclusive(t *testing.T) {
	windows := []models.OfficeHoursWindow{window(1, "09:00", "10:00")}
	assert.True(t, Contains(windows, mondayAt(9, 0)))
	assert.True(t, Contains(windows, mondayAt(10, 0)))
	assert.False(t, Contains(windows, mondayAt(8, 59)))
	assert.False(t, Contains(windows, mondayAt(10, 1)))
}

func TestContainsWrongDay(t *testing.T) {
	windows := []models.OfficeHoursWindow{window(2, "09:00", "10:00")}
	assert.False(t, Contains(windows, mondayAt(9, 30)))
}

func TestContainsIgnoresInactiveWindows(t *testing.T) {
	w := window(1, "09:00", "10:00")
	w.IsActive = false
	assert.False(t, Contains([]models.OfficeHoursWindow{w}, mondayAt(9, 30)))
}

func TestContainsNoWindows(t *testing.T) {
	assert.False(t, Contains(nil, mondayAt(9, 30)))
}

func TestContainsAnyWindowOpens(t *testing.T) {
	windows := []models.OfficeHoursWindow{
		window(1, "08:00", "08:30"),
		window(1, "15:00", "16:00"),
	}
	assert.False(t, Contains(windows, mondayAt(12, 0)))
	assert.True(t, Contains(windows, mondayAt(15, 45)))
}

func TestNextOpeningLaterSameDay(t *testing.T) {
	windows := []models.OfficeHoursWindow{window(1, "15:00", "16:00")}

	next, ok := NextOpening(windows, mondayAt(9, 0))

	require.True(t, ok)
	assert.Equal(t, mondayAt(15, 0), next)
}

func TestNextOpeningRollsToNextWeek(t *testing.T) {
	windows := []models.OfficeHoursWindow{window(1, "09:00", "10:00")}

	next, ok := NextOpening(windows, mondayAt(12, 0))

	require.True(t, ok)
	assert.Equal(t, mondayAt(9, 0).AddDate(0, 0, 7), next)
}

func TestNextOpeningPicksEarliestAcrossDays(t *testing.T) {
	windows := []models.OfficeHoursWindow{
		window(5, "09:00", "10:00"),
		window(3, "14:00", "15:00"),
	}

	next, ok := NextOpening(windows, mondayAt(12, 0))

	require.True(t, ok)
	// Wednesday 14:00 beats Friday 09:00.
	assert.Equal(t, time.Date(2026, 6, 3, 14, 0, 0, 0, time.UTC), next)
}

func TestNextOpeningNoActiveWindows(t *testing.T) {
	w := window(1, "09:00", "10:00")
	w.IsActive = false

	_, ok := NextOpening([]models.OfficeHoursWindow{w}, mondayAt(12, 0))

	assert.False(t, ok)
}

func TestValidateAcceptsWellFormedSet(t *testing.T) {
	windows := []models.OfficeHoursWindow{
		window(1, "09:00", "10:00"),
		window(1, "15:00", "16:00"),
		window(3, "09:00", "10:00"),
	}
	assert.NoError(t, Validate(windows))
}

func TestValidateRejectsOverlap(t *testing.T) {
	windows := []models.OfficeHoursWindow{
		window(1, "09:00", "11:00"),
		window(1, "10:30", "12:00"),
	}
	err := Validate(windows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlapping")
}

func TestValidateAllowsOverlapWithInactiveWindow(t *testing.T) {
	inactive := window(1, "09:00", "11:00")
	inactive.IsActive = false
	windows := []models.OfficeHoursWindow{inactive, window(1, "10:30", "12:00")}
	assert.NoError(t, Validate(windows))
}

func TestValidateRejectsBadInput(t *testing.T) {
	cases := []struct {
		name   string
		window models.OfficeHoursWindow
	}{
		{"day out of range", window(7, "09:00", "10:00")},
		{"negative day", window(-1, "09:00", "10:00")},
		{"malformed start", window(1, "9am", "10:00")},
		{"malformed end", window(1, "09:00", "25:00")},
		{"start equals end", window(1, "09:00", "09:00")},
		{"start after end", window(1, "10:00", "09:00")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, Validate([]models.OfficeHoursWindow{tc.window}))
		})
	}
}

func TestGateIsOpenReadsWindowSource(t *testing.T) {
	repo := new(mocks.OfficeHoursRepositoryMock)
	repo.On("WindowsFor", mock.Anything, int64(2)).
		Return([]models.OfficeHoursWindow{window(1, "09:00", "10:00")}, nil).Twice()
	gate := NewGate(repo)

	open, err := gate.IsOpen(context.Background(), 2, mondayAt(9, 30))
	require.NoError(t, err)
	assert.True(t, open)

	open, err = gate.IsOpen(context.Background(), 2, mondayAt(11, 0))
	require.NoError(t, err)
	assert.False(t, open)
	repo.AssertExpectations(t)
}

func TestGateIsOpenSourceError(t *testing.T) {
	repo := new(mocks.OfficeHoursRepositoryMock)
	repo.On("WindowsFor", mock.Anything, int64(2)).
		Return(([]models.OfficeHoursWindow)(nil), assert.AnError).Once()
	gate := NewGate(repo)

	_, err := gate.IsOpen(context.Background(), 2, mondayAt(9, 30))

	require.Error(t, err)
	repo.AssertExpectations(t)
}
