// internal/clock/clock.go
package clock

import "time"

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in the given location.
type System struct {
	Location *time.Location
}

func (s System) Now() time.Time {
	if s.Location == nil {
		return time.Now()
	}
	return time.Now().In(s.Location)
}

// Fixed always reports the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f)
}

// Func adapts a function to the Clock interface.
type Func func() time.Time

func (f Func) Now() time.Time {
	return f()
}

// DateOf truncates t to its calendar date, expressed as midnight UTC.
// The calendar date is taken in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the calendar date of c.Now().
func Today(c Clock) time.Time {
	return DateOf(c.Now())
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}

const secondsPerDay = 24 * 60 * 60

// DaysBetween returns the number of whole calendar days from a to b. It works
// on Unix seconds because time.Duration saturates after about 292 years.
func DaysBetween(a, b time.Time) int {
	return int((DateOf(b).Unix() - DateOf(a).Unix()) / secondsPerDay)
}
