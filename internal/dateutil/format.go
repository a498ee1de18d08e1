package dateutil

import (
	"fmt"
	"strconv"
	"strings"
)

// DaysOfWeek holds short weekday labels, Sunday first.
var DaysOfWeek = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// shortMonths are the picker month labels; September is "Sept" here.
var shortMonths = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sept", "Oct", "Nov", "Dec"}

// DurationDisplay renders seconds as m:ss.
func DurationDisplay(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// TimePeriodDisplay renders a period as "1h 2m 3s", omitting zero parts.
func TimePeriodDisplay(period Instant) string {
	secs := (period / Second) % 60
	mins := (period / Minute) % 60
	hours := period / Hour

	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, strconv.FormatInt(int64(hours), 10)+"h")
	}
	if mins > 0 {
		parts = append(parts, strconv.FormatInt(int64(mins), 10)+"m")
	}
	if secs > 0 {
		parts = append(parts, strconv.FormatInt(int64(secs), 10)+"s")
	}
	return strings.Join(parts, " ")
}

// RelativeDateDisplay renders t as "Today" or "Yesterday" relative to now,
// falling back to DateDisplay.
func (c Calendar) RelativeDateDisplay(t, now Instant) string {
	today := c.TruncateDay(now)
	day := c.TruncateDay(t)
	switch day {
	case today:
		return "Today"
	case c.SubtractDays(today, 1):
		return "Yesterday"
	default:
		return c.DateDisplay(t)
	}
}

// DateDisplay renders t as "Jun. 3".
func (c Calendar) DateDisplay(t Instant) string {
	tm := c.Time(t)
	return tm.Format("Jan") + ". " + strconv.Itoa(tm.Day())
}

// LongDateDisplay renders t as "June 3rd", or "June 3rd 3:05 PM" withTime.
func (c Calendar) LongDateDisplay(t Instant, withTime bool) string {
	tm := c.Time(t)
	out := fmt.Sprintf("%s %d%s", tm.Month(), tm.Day(), ordinalSuffix(tm.Day()))
	if withTime {
		out += fmt.Sprintf(" %d:%02d %s", c.Hour12(t), tm.Minute(), c.AmOrPm(t))
	}
	return out
}

// TimeDisplay renders the 24-hour time of day, e.g. "15:05".
func (c Calendar) TimeDisplay(t Instant) string {
	return c.Time(t).Format("15:04")
}

// RouletteDateDisplay renders the date picker label, e.g. "Mon Jun 3".
func (c Calendar) RouletteDateDisplay(t Instant) string {
	tm := c.Time(t)
	return DaysOfWeek[tm.Weekday()] + " " + shortMonths[tm.Month()-1] + " " + strconv.Itoa(tm.Day())
}

// DateEditDisplay renders the editor label, e.g. "Mon Jun 3, 3:05 PM".
func (c Calendar) DateEditDisplay(t Instant) string {
	return fmt.Sprintf("%s, %d:%02d %s", c.RouletteDateDisplay(t), c.Hour12(t), c.Time(t).Minute(), c.AmOrPm(t))
}

// AmOrPm returns "AM" before noon and "PM" from noon on.
func (c Calendar) AmOrPm(t Instant) string {
	if c.Time(t).Hour() >= 12 {
		return "PM"
	}
	return "AM"
}

// Hour12 returns the 12-hour clock hour, 1..12.
func (c Calendar) Hour12(t Instant) int {
	h := c.Time(t).Hour() % 12
	if h == 0 {
		return 12
	}
	return h
}

func ordinalSuffix(day int) string {
	if n := day % 100; n >= 11 && n <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
