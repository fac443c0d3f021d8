// Package calendar derives the calendar days and Monday-Sunday weeks that
// prize pools and payouts are keyed by.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

const weekKeySep = "_to_"

var ErrInvalidWeekKey = errors.New("invalid week key")

type Week struct {
	Start time.Time // Monday 00:00:00.000
	End   time.Time // Sunday 23:59:59.999
}

// DayStart returns midnight of t's calendar date in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// WeekOf returns the Monday-Sunday window containing t.
func WeekOf(t time.Time, loc *time.Location) Week {
	day := DayStart(t, loc)
	daysFromMonday := int(day.Weekday()) - 1
	if day.Weekday() == time.Sunday {
		daysFromMonday = 6
	}
	start := day.AddDate(0, 0, -daysFromMonday)
	end := start.AddDate(0, 0, 7).Add(-time.Millisecond)
	return Week{Start: start, End: end}
}

func (w Week) Key() string {
	return w.Start.Format(DateLayout) + weekKeySep + w.End.Format(DateLayout)
}

func (w Week) StartKey() string {
	return w.Start.Format(DateLayout)
}

func (w Week) EndKey() string {
	return w.End.Format(DateLayout)
}

// ParseWeekKey parses "YYYY-MM-DD_to_YYYY-MM-DD" naming a Monday-Sunday week.
func ParseWeekKey(key string, loc *time.Location) (Week, error) {
	parts := strings.Split(key, weekKeySep)
	if len(parts) != 2 {
		return Week{}, ErrInvalidWeekKey
	}
	monday, err := ParseDate(parts[0], loc)
	if err != nil {
		return Week{}, fmt.Errorf("%w: %v", ErrInvalidWeekKey, err)
	}
	if monday.Weekday() != time.Monday {
		return Week{}, fmt.Errorf("%w: %s is not a Monday", ErrInvalidWeekKey, parts[0])
	}
	w := WeekOf(monday, loc)
	if w.EndKey() != parts[1] {
		return Week{}, fmt.Errorf("%w: %s does not end the week", ErrInvalidWeekKey, parts[1])
	}
	return w, nil
}
