package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWeekOf(t *testing.T) {
	cases := []struct {
		day  string
		want string
	}{
		{"2026-10-19", "2026-10-19_to_2026-10-25"}, // Monday
		{"2026-10-22", "2026-10-19_to_2026-10-25"}, // Thursday
		{"2026-10-25", "2026-10-19_to_2026-10-25"}, // Sunday
		{"2026-10-26", "2026-10-26_to_2026-11-01"},
		{"2026-12-31", "2026-12-28_to_2027-01-03"},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.day, time.UTC)
		require.NoError(t, err)
		require.Equal(t, tc.want, WeekOf(d.Add(15*time.Hour), time.UTC).Key(), tc.day)
	}
}

func TestWeekBounds(t *testing.T) {
	w := WeekOf(time.Date(2026, 10, 21, 13, 0, 0, 0, time.UTC), time.UTC)
	require.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), w.Start)
	require.Equal(t, time.Date(2026, 10, 25, 23, 59, 59, int(999*time.Millisecond), time.UTC), w.End)
}

func TestParseWeekKey(t *testing.T) {
	w, err := ParseWeekKey("2026-10-19_to_2026-10-25", time.UTC)
	require.NoError(t, err)
	require.Equal(t, "2026-10-19", w.StartKey())

	_, err = ParseWeekKey("2026-10-20_to_2026-10-26", time.UTC)
	require.ErrorIs(t, err, ErrInvalidWeekKey)

	_, err = ParseWeekKey("2026-10-19_to_2026-10-24", time.UTC)
	require.ErrorIs(t, err, ErrInvalidWeekKey)

	_, err = ParseWeekKey("garbage", time.UTC)
	require.ErrorIs(t, err, ErrInvalidWeekKey)
}

func TestDayStartUsesLocation(t *testing.T) {
	lagos := time.FixedZone("WAT", 3600)
	at := time.Date(2026, 10, 19, 23, 30, 0, 0, time.UTC) // 00:30 next day in WAT
	require.Equal(t, "2026-10-20", DateKey(at, lagos))
	require.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, lagos), DayStart(at, lagos))
}
