package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationStartEnd(t *testing.T) {
	r := &Reservation{
		StartAt:       "2026-03-03T14:00:00Z",
		DurationHours: 2,
	}

	start, err := r.Start()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC), start)

	end, err := r.End()
	require.NoError(t, err)
	assert.Equal(t, start.Add(2*time.Hour), end)
}

func TestReservationStartRejectsGarbage(t *testing.T) {
	r := &Reservation{StartAt: "tomorrowish"}
	_, err := r.Start()
	require.Error(t, err)
}

func TestReservationSummaryUsesBusinessTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)

	r := &Reservation{
		StartAt:       "2026-03-03T14:00:00Z",
		DurationHours: 2,
		Headcount:     4,
	}

	// 14:00 UTC is 15:00 in Warsaw during winter time.
	assert.Equal(t, "Workshop for 4 people, Tuesday 03.03.2026 at 15:00, 2 hours", r.Summary(loc))
}

func TestReservationSummaryFallsBackOnBadStart(t *testing.T) {
	r := &Reservation{StartAt: "bad", DisplayDetails: "Workshop for 4 people"}
	assert.Equal(t, "Workshop for 4 people", r.Summary(time.UTC))
}
