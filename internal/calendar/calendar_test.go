package calendar

import (
	"fmt"
	"math"
	"testing"
	"time"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestMonthGridAlwaysSixWeeks(t *testing.T) {
	today := date(2024, 6, 15)
	for year := 2023; year <= 2026; year++ {
		for m := time.January; m <= time.December; m++ {
			cells := MonthGrid(year, m, today)
			if len(cells) != 42 {
				t.Fatalf("%d-%02d: got %d cells, want 42", year, m, len(cells))
			}
			for i, c := range cells {
				if int(c.Date.Weekday()) != i%7 {
					t.Errorf("%d-%02d cell %d is %v, header expects %v", year, m, i, c.Date.Weekday(), time.Weekday(i%7))
				}
			}
			if cells[0].Date.Day() != 1 && cells[0].InMonth {
				t.Errorf("%d-%02d: leading padding marked in month", year, m)
			}
		}
	}
}

func TestMonthGridFebruaryLeapYear(t *testing.T) {
	cells := MonthGrid(2024, time.February, date(2024, 2, 10))
	if len(cells) != 42 {
		t.Fatalf("got %d cells, want 42", len(cells))
	}

	// Feb 1 2024 is a Thursday, so the grid starts on Sunday Jan 28.
	if got := DateKey(cells[0].Date); got != "2024-01-28" {
		t.Errorf("first cell = %s, want 2024-01-28", got)
	}
	if got := DateKey(cells[41].Date); got != "2024-03-09" {
		t.Errorf("last cell = %s, want 2024-03-09", got)
	}

	var inMonth int
	var hasLeapDay bool
	for _, c := range cells {
		if c.InMonth {
			inMonth++
		}
		if DateKey(c.Date) == "2024-02-29" {
			hasLeapDay = true
			if !c.InMonth {
				t.Error("Feb 29 should be in month")
			}
		}
	}
	if !hasLeapDay {
		t.Error("grid is missing Feb 29")
	}
	if inMonth != 29 {
		t.Errorf("in-month cells = %d, want 29", inMonth)
	}
}

func TestMonthGridToday(t *testing.T) {
	today := time.Date(2024, 2, 14, 16, 45, 0, 0, time.UTC)
	cells := MonthGrid(2024, time.February, today)

	var todays []string
	for _, c := range cells {
		if c.IsToday {
			todays = append(todays, DateKey(c.Date))
		}
	}
	if len(todays) != 1 || todays[0] != "2024-02-14" {
		t.Errorf("today cells = %v, want [2024-02-14]", todays)
	}

	for _, c := range MonthGrid(2024, time.April, today) {
		if c.IsToday {
			t.Errorf("April grid marks %s as today", DateKey(c.Date))
		}
	}
}

func TestWeekDays(t *testing.T) {
	tests := []struct {
		anchor time.Time
		first  string
		last   string
	}{
		{date(2024, 1, 10), "2024-01-07", "2024-01-13"}, // Wednesday
		{date(2024, 1, 7), "2024-01-07", "2024-01-13"},  // Sunday
		{date(2024, 1, 13), "2024-01-07", "2024-01-13"}, // Saturday
		{date(2024, 1, 1), "2023-12-31", "2024-01-06"},  // spans new year
		{date(2024, 2, 29), "2024-02-25", "2024-03-02"}, // leap day
	}

	for _, tt := range tests {
		days := WeekDays(tt.anchor.Add(15 * time.Hour))
		if got := DateKey(days[0]); got != tt.first {
			t.Errorf("WeekDays(%s)[0] = %s, want %s", DateKey(tt.anchor), got, tt.first)
		}
		if got := DateKey(days[6]); got != tt.last {
			t.Errorf("WeekDays(%s)[6] = %s, want %s", DateKey(tt.anchor), got, tt.last)
		}
		for i, day := range days {
			if int(day.Weekday()) != i {
				t.Errorf("WeekDays(%s)[%d] weekday = %v", DateKey(tt.anchor), i, day.Weekday())
			}
			if day.Hour() != 0 {
				t.Errorf("WeekDays(%s)[%d] not at midnight", DateKey(tt.anchor), i)
			}
		}
	}
}

func TestDateKey(t *testing.T) {
	morning := time.Date(2024, 3, 5, 0, 0, 1, 0, time.UTC)
	evening := time.Date(2024, 3, 5, 23, 59, 59, 0, time.UTC)
	if DateKey(morning) != DateKey(evening) {
		t.Errorf("same day keys differ: %s vs %s", DateKey(morning), DateKey(evening))
	}
	if DateKey(morning) != "2024-03-05" {
		t.Errorf("DateKey = %s, want 2024-03-05", DateKey(morning))
	}

	midnight := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	before := midnight.Add(-time.Second)
	after := midnight.Add(time.Second)
	if DateKey(before) == DateKey(after) {
		t.Errorf("keys around midnight should differ, both %s", DateKey(before))
	}
}

func TestParseDateKey(t *testing.T) {
	got, err := ParseDateKey("2024-02-29", time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.Equal(date(2024, 2, 29)) {
		t.Errorf("got %v", got)
	}
	if _, err := ParseDateKey("2023-02-29", time.UTC); err == nil {
		t.Error("2023-02-29 should not parse")
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEventPosition(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	short := start.Add(10 * time.Minute)

	tests := []struct {
		name   string
		end    *time.Time
		height float64
	}{
		{"explicit end", &end, 90.0 / 1440 * 100},
		{"no end defaults to an hour", nil, 60.0 / 1440 * 100},
		{"short block floored", &short, 30.0 / 1440 * 100},
	}

	for _, tt := range tests {
		pos := EventPosition(start, tt.end)
		if !approx(pos.Top, 540.0/1440*100) {
			t.Errorf("%s: top = %v, want %v", tt.name, pos.Top, 540.0/1440*100)
		}
		if !approx(pos.Height, tt.height) {
			t.Errorf("%s: height = %v, want %v", tt.name, pos.Height, tt.height)
		}
	}

	if pos := EventPosition(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), nil); pos.Top != 0 {
		t.Errorf("midnight top = %v, want 0", pos.Top)
	}
}

func TestMonthNavigation(t *testing.T) {
	if y, m := PreviousMonth(2024, time.January); y != 2023 || m != time.December {
		t.Errorf("PreviousMonth(2024, Jan) = %d %v", y, m)
	}
	if y, m := NextMonth(2024, time.December); y != 2025 || m != time.January {
		t.Errorf("NextMonth(2024, Dec) = %d %v", y, m)
	}
	if y, m := PreviousMonth(2024, time.March); y != 2024 || m != time.February {
		t.Errorf("PreviousMonth(2024, Mar) = %d %v", y, m)
	}
	if y, m := NextMonth(2024, time.June); y != 2024 || m != time.July {
		t.Errorf("NextMonth(2024, Jun) = %d %v", y, m)
	}
}

func TestWeekNavigation(t *testing.T) {
	anchor := date(2024, 12, 30)
	next := NextWeek(anchor)
	if DateKey(next) != "2025-01-06" {
		t.Errorf("NextWeek = %s, want 2025-01-06", DateKey(next))
	}
	if DateKey(PreviousWeek(next)) != "2024-12-30" {
		t.Errorf("PreviousWeek(NextWeek(x)) != x")
	}
	if DateKey(PreviousWeek(date(2024, 1, 3))) != "2023-12-27" {
		t.Errorf("PreviousWeek across year = %s", DateKey(PreviousWeek(date(2024, 1, 3))))
	}
}

func TestOverlaps(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2024, 1, 1, h, 0, 0, 0, time.UTC) }
	tests := []struct {
		a1, a2, b1, b2 int
		want           bool
	}{
		{9, 10, 9, 10, true},
		{9, 11, 10, 12, true},
		{9, 10, 10, 11, false},
		{10, 11, 9, 10, false},
		{8, 12, 9, 10, true},
	}
	for _, tt := range tests {
		if got := Overlaps(at(tt.a1), at(tt.a2), at(tt.b1), at(tt.b2)); got != tt.want {
			t.Errorf("Overlaps(%d-%d, %d-%d) = %v, want %v", tt.a1, tt.a2, tt.b1, tt.b2, got, tt.want)
		}
	}
}

func TestRanges(t *testing.T) {
	start, end := MonthRange(2024, time.February, time.UTC)
	if DateKey(start) != "2024-01-28" || DateKey(end) != "2024-03-10" {
		t.Errorf("MonthRange = %s..%s", DateKey(start), DateKey(end))
	}

	start, end = WeekRange(date(2024, 1, 10))
	if DateKey(start) != "2024-01-07" || DateKey(end) != "2024-01-14" {
		t.Errorf("WeekRange = %s..%s", DateKey(start), DateKey(end))
	}

	start, end = DayRange(time.Date(2024, 1, 10, 13, 0, 0, 0, time.UTC))
	if DateKey(start) != "2024-01-10" || end.Sub(start) != 24*time.Hour {
		t.Errorf("DayRange = %v..%v", start, end)
	}
}

func santiago(t *testing.T) *time.Location {
	t.Helper()
	// Chile springs forward at midnight: 2024-09-08 has no 00:00.
	loc, err := time.LoadLocation("America/Santiago")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

func TestMidnightSkippedByDST(t *testing.T) {
	loc := santiago(t)

	got := Midnight(2024, time.September, 8, loc)
	if DateKey(got) != "2024-09-08" || got.Hour() != 1 {
		t.Errorf("Midnight = %v, want 2024-09-08 01:00", got)
	}
	if key, _ := ParseDateKey("2024-09-08", loc); DateKey(key) != "2024-09-08" {
		t.Errorf("ParseDateKey = %v", key)
	}

	start, end := DayRange(got)
	if DateKey(start) != "2024-09-08" || DateKey(end) != "2024-09-09" {
		t.Errorf("DayRange = %v - %v", start, end)
	}
	if end.Sub(start) != 23*time.Hour {
		t.Errorf("day length = %v, want 23h", end.Sub(start))
	}
}

func TestMonthGridMidnightDST(t *testing.T) {
	loc := santiago(t)

	cells := MonthGrid(2024, time.September, time.Date(2024, 9, 20, 12, 0, 0, 0, loc))
	seen := make(map[string]bool)
	for i, c := range cells {
		key := DateKey(c.Date)
		if seen[key] {
			t.Errorf("cell %d repeats %s", i, key)
		}
		seen[key] = true
		if int(c.Date.Weekday()) != i%7 {
			t.Errorf("cell %d (%s) is %v, want %v", i, key, c.Date.Weekday(), time.Weekday(i%7))
		}
	}
	if DateKey(cells[0].Date) != "2024-09-01" || DateKey(cells[41].Date) != "2024-10-12" {
		t.Errorf("grid spans %s - %s", DateKey(cells[0].Date), DateKey(cells[41].Date))
	}
}

func TestWeekDaysMidnightDST(t *testing.T) {
	loc := santiago(t)

	for _, anchor := range []time.Time{
		Midnight(2024, time.September, 8, loc),
		time.Date(2024, 9, 11, 15, 0, 0, 0, loc),
	} {
		days := WeekDays(anchor)
		for i, d := range days {
			want := fmt.Sprintf("2024-09-%02d", 8+i)
			if DateKey(d) != want || int(d.Weekday()) != i {
				t.Errorf("WeekDays(%v)[%d] = %v, want %s", anchor, i, d, want)
			}
		}
	}

	if got := DateKey(PreviousDay(Midnight(2024, time.September, 9, loc))); got != "2024-09-08" {
		t.Errorf("PreviousDay = %s", got)
	}
	if got := DateKey(NextWeek(Midnight(2024, time.September, 1, loc))); got != "2024-09-08" {
		t.Errorf("NextWeek = %s", got)
	}
}
