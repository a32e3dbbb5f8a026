// Package calendar holds the date arithmetic behind the month, week and day
// views. Every function is pure; anything that depends on "today" takes it as
// an argument so callers decide which clock to read.
//
// All values are naive local times: a time.Time is interpreted in its own
// location and no zone conversion happens here.
package calendar

import "time"

const (
	minutesPerDay       = 24 * 60
	defaultEventMinutes = 60
	minVisibleMinutes   = 30
	gridCells           = 42
)

// Clock returns the current time. Production code uses time.Now; tests pin it.
type Clock func() time.Time

// DayCell is one square of a month grid.
type DayCell struct {
	Date    time.Time `json:"date"`
	InMonth bool      `json:"in_month"`
	IsToday bool      `json:"is_today"`
}

// Position places a timed block on a 24-hour vertical axis, in percent.
type Position struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// StartOfDay returns the first instant of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return Midnight(y, m, d, t.Location())
}

// Midnight returns the first instant of the calendar day y-m-d in loc.
// Out-of-range days and months are normalized first. In zones where a DST
// jump skips midnight the day starts at the end of the gap, never on the
// day before.
func Midnight(y int, m time.Month, d int, loc *time.Location) time.Time {
	y, m, d = civil(y, m, d).Date()
	t := time.Date(y, m, d, 0, 0, 0, 0, loc)
	for t.Day() != d {
		t = t.Add(time.Minute)
	}
	return t
}

// civil is y-m-d as a UTC date, safe to step with AddDate.
func civil(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return DateKey(a) == DateKey(b)
}

// DateKey formats t as YYYY-MM-DD, ignoring time of day.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseDateKey parses a YYYY-MM-DD key into the start of that day in loc.
func ParseDateKey(s string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return Midnight(t.Year(), t.Month(), t.Day(), loc), nil
}

// MonthGrid returns the 42 Sunday-first cells covering month. month follows
// time.Month (1 = January); out-of-range values are not guarded and are
// normalized the way time.Date normalizes them.
func MonthGrid(year int, month time.Month, today time.Time) []DayCell {
	first := civil(year, month, 1)
	gridStart := first.AddDate(0, 0, -int(first.Weekday()))

	cells := make([]DayCell, gridCells)
	for i := range cells {
		y, m, d := gridStart.AddDate(0, 0, i).Date()
		day := Midnight(y, m, d, today.Location())
		cells[i] = DayCell{
			Date:    day,
			InMonth: m == first.Month() && y == first.Year(),
			IsToday: SameDay(day, today),
		}
	}
	return cells
}

// WeekDays returns Sunday through Saturday of the week containing anchor.
func WeekDays(anchor time.Time) [7]time.Time {
	y, m, d := anchor.Date()
	sunday := d - int(anchor.Weekday())
	var days [7]time.Time
	for i := range days {
		days[i] = Midnight(y, m, sunday+i, anchor.Location())
	}
	return days
}

// EventPosition maps a block onto the day axis. A nil end means a one hour
// block. Height never drops below 30 minutes so short blocks stay visible;
// the underlying times are not changed.
func EventPosition(start time.Time, end *time.Time) Position {
	startMinutes := start.Hour()*60 + start.Minute()

	duration := defaultEventMinutes
	if end != nil {
		duration = int(end.Sub(start).Minutes())
	}
	visible := max(duration, minVisibleMinutes)

	return Position{
		Top:    float64(startMinutes) / minutesPerDay * 100,
		Height: float64(visible) / minutesPerDay * 100,
	}
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func PreviousMonth(year int, month time.Month) (int, time.Month) {
	if month == time.January {
		return year - 1, time.December
	}
	return year, month - 1
}

func NextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}

// PreviousWeek and NextWeek return the start of the day a week before or
// after anchor.
func PreviousWeek(anchor time.Time) time.Time {
	return shiftDays(anchor, -7)
}

func NextWeek(anchor time.Time) time.Time {
	return shiftDays(anchor, 7)
}

func PreviousDay(day time.Time) time.Time {
	return shiftDays(day, -1)
}

func NextDay(day time.Time) time.Time {
	return shiftDays(day, 1)
}

func shiftDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return Midnight(y, m, d+n, t.Location())
}

// MonthRange returns the half-open window covered by MonthGrid.
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	cells := MonthGrid(year, month, Midnight(year, month, 1, loc))
	return cells[0].Date, NextDay(cells[len(cells)-1].Date)
}

// WeekRange returns the half-open window of the week containing anchor.
func WeekRange(anchor time.Time) (time.Time, time.Time) {
	days := WeekDays(anchor)
	return days[0], NextDay(days[6])
}

// DayRange returns the half-open window of day.
func DayRange(day time.Time) (time.Time, time.Time) {
	return StartOfDay(day), NextDay(day)
}
