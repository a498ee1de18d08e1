package dateutil

import "time"

// Instant is an absolute point in time, in milliseconds since the Unix epoch.
// It carries no timezone; the Calendar operating on it decides whether it is
// read as local time or UTC.
type Instant int64

// Period lengths in milliseconds.
const (
	Second Instant = 1000
	Minute         = 60 * Second
	Hour           = 60 * Minute
	Day            = 24 * Hour
)

// FromTime converts t to an Instant, dropping sub-millisecond precision.
func FromTime(t time.Time) Instant {
	return Instant(t.UnixMilli())
}

// Now returns the current Instant.
func Now() Instant {
	return FromTime(time.Now())
}

// In returns i as a time.Time in loc.
func (i Instant) In(loc *time.Location) time.Time {
	return time.UnixMilli(int64(i)).In(loc)
}

// Week is seven contiguous calendar days, Sunday first.
type Week [7]Instant

// MonthGrid is the minimal run of contiguous Sunday-first weeks covering a
// calendar month, including leading/trailing days of the adjacent months.
type MonthGrid []Week

// Calendar binds day arithmetic to a time reference. The zero value uses
// the process local zone.
type Calendar struct {
	loc *time.Location
}

var (
	// Local reads instants in the process local zone.
	Local = Calendar{loc: time.Local}
	// UTC reads instants in UTC.
	UTC = Calendar{loc: time.UTC}
)

// NewCalendar returns a Calendar for loc; a nil loc means time.Local.
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.Local
	}
	return Calendar{loc: loc}
}

// Location returns the calendar's time reference.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// Time returns t as a time.Time in the calendar's zone.
func (c Calendar) Time(t Instant) time.Time {
	return t.In(c.Location())
}

// Date returns the Instant for midnight of the given calendar date.
func (c Calendar) Date(year int, month time.Month, day int) Instant {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, c.Location()))
}

// TruncateDay zeroes the time of day of t in the calendar's zone.
func (c Calendar) TruncateDay(t Instant) Instant {
	y, m, d := c.Time(t).Date()
	return c.Date(y, m, d)
}

// AddDays moves t by n calendar days keeping its wall-clock time of day.
// Across a DST change the result can be 23 or 25 hours away per day.
func (c Calendar) AddDays(t Instant, n int) Instant {
	return FromTime(c.Time(t).AddDate(0, 0, n))
}

// SubtractDays is AddDays(t, -n).
func (c Calendar) SubtractDays(t Instant, n int) Instant {
	return c.AddDays(t, -n)
}

// SameDay reports whether a and b fall on the same calendar date.
func (c Calendar) SameDay(a, b Instant) bool {
	return c.TruncateDay(a) == c.TruncateDay(b)
}

// EnclosingWeek returns the Sunday on or before day through the following
// Saturday. Each element keeps day's time of day.
func (c Calendar) EnclosingWeek(day Instant) Week {
	offset := int(c.Time(day).Weekday())

	var w Week
	for i := range w {
		w[i] = c.AddDays(day, i-offset)
	}
	return w
}

// EnclosingMonth returns the weeks covering day's month, oldest first.
func (c Calendar) EnclosingMonth(day Instant) MonthGrid {
	t := c.Time(day)
	year, month := t.Year(), t.Month()

	var grid MonthGrid
	for w := c.EnclosingWeek(c.Date(year, month, 1)); c.weekTouches(w, year, month); w = c.EnclosingWeek(c.AddDays(w[6], 1)) {
		grid = append(grid, w)
	}
	return grid
}

func (c Calendar) weekTouches(w Week, year int, month time.Month) bool {
	for _, d := range w {
		t := c.Time(d)
		if t.Year() == year && t.Month() == month {
			return true
		}
	}
	return false
}

// InMonth reports whether t falls in the same year and month as ref.
func (c Calendar) InMonth(t, ref Instant) bool {
	a, b := c.Time(t), c.Time(ref)
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// PreviousMonth returns the last day of the month before t's month, at t's
// time of day.
func (c Calendar) PreviousMonth(t Instant) Instant {
	return c.withDay(t, 0, 0)
}

// NextMonth returns the first day of the month after t's month, at t's
// time of day.
func (c Calendar) NextMonth(t Instant) Instant {
	return c.withDay(t, 1, 1)
}

// MonthFirstDay returns the first day of t's month, at t's time of day.
func (c Calendar) MonthFirstDay(t Instant) Instant {
	return c.withDay(t, 0, 1)
}

func (c Calendar) withDay(t Instant, monthDelta, day int) Instant {
	tm := c.Time(t)
	return FromTime(time.Date(tm.Year(), tm.Month()+time.Month(monthDelta), day,
		tm.Hour(), tm.Minute(), tm.Second(), tm.Nanosecond(), c.Location()))
}

// DateRange returns |days| consecutive days starting at from, walking
// forward for positive days and backward for negative ones. The result is
// always ascending.
func (c Calendar) DateRange(from Instant, days int) []Instant {
	n := days
	if n < 0 {
		n = -n
	}

	out := make([]Instant, n)
	for i := 0; i < n; i++ {
		if days < 0 {
			out[n-1-i] = c.SubtractDays(from, i)
		} else {
			out[i] = c.AddDays(from, i)
		}
	}
	return out
}

// UsingDateOf returns t1's time of day placed on t2's calendar date.
func (c Calendar) UsingDateOf(t1, t2 Instant) Instant {
	a, b := c.Time(t1), c.Time(t2)
	return FromTime(time.Date(b.Year(), b.Month(), b.Day(),
		a.Hour(), a.Minute(), a.Second(), a.Nanosecond(), c.Location()))
}

// UsingTimeOf returns t2's time of day placed on t1's calendar date.
func (c Calendar) UsingTimeOf(t1, t2 Instant) Instant {
	return c.UsingDateOf(t2, t1)
}

// DaysInMonth returns the number of days in month of year (Gregorian).
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// TruncateLocalDay zeroes the time of day of t in the local zone.
func TruncateLocalDay(t Instant) Instant {
	return Local.TruncateDay(t)
}

// TruncateUTCDay zeroes the time of day of t in UTC. Using it where local
// days are meant shifts results by the local UTC offset.
func TruncateUTCDay(t Instant) Instant {
	return UTC.TruncateDay(t)
}

// AddDays moves t by n local calendar days.
func AddDays(t Instant, n int) Instant {
	return Local.AddDays(t, n)
}

// SubtractDays moves t back by n local calendar days.
func SubtractDays(t Instant, n int) Instant {
	return Local.SubtractDays(t, n)
}

// EnclosingWeek returns the local Sunday-first week containing day.
func EnclosingWeek(day Instant) Week {
	return Local.EnclosingWeek(day)
}

// EnclosingMonth returns the local month grid containing day.
func EnclosingMonth(day Instant) MonthGrid {
	return Local.EnclosingMonth(day)
}
