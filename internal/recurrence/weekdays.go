package recurrence

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var dayNames = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

var dayAbbrev = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

// WeekdaySet is a set of weekdays, 0=Sunday through 6=Saturday.
type WeekdaySet uint8

// NewWeekdaySet builds a set from the given days. Values outside 0..6 are ignored.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday {
			continue
		}
		s |= 1 << uint(d)
	}
	return s
}

// ParseWeekdays parses a comma separated list of two-letter day codes like "MO,WE".
func ParseWeekdays(s string) (WeekdaySet, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("empty weekday list")
	}

	var set WeekdaySet
	for _, d := range strings.Split(s, ",") {
		wd, ok := dayNames[strings.ToUpper(strings.TrimSpace(d))]
		if !ok {
			return 0, fmt.Errorf("unknown day: %q", d)
		}
		set |= 1 << uint(wd)
	}
	return set, nil
}

func (s WeekdaySet) Contains(d time.Weekday) bool {
	if d < time.Sunday || d > time.Saturday {
		return false
	}
	return s&(1<<uint(d)) != 0
}

func (s WeekdaySet) Len() int {
	n := 0
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Contains(d) {
			n++
		}
	}
	return n
}

// Days returns the members in Sunday-first order.
func (s WeekdaySet) Days() []time.Weekday {
	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Contains(d) {
			days = append(days, d)
		}
	}
	return days
}

// String serializes the set as day codes, e.g. "MO,WE".
func (s WeekdaySet) String() string {
	var parts []string
	for _, d := range s.Days() {
		parts = append(parts, dayAbbrev[d])
	}
	return strings.Join(parts, ",")
}

// Describe returns short English day names, e.g. "Mon, Wed".
func (s WeekdaySet) Describe() string {
	var names []string
	for _, d := range s.Days() {
		names = append(names, d.String()[:3])
	}
	return strings.Join(names, ", ")
}

// MarshalJSON encodes the set as an array of weekday indices.
func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	idx := make([]int, 0, 7)
	for _, d := range s.Days() {
		idx = append(idx, int(d))
	}
	return json.Marshal(idx)
}

func (s *WeekdaySet) UnmarshalJSON(data []byte) error {
	var idx []int
	if err := json.Unmarshal(data, &idx); err != nil {
		return err
	}
	var set WeekdaySet
	for _, i := range idx {
		if i < 0 || i > 6 {
			return fmt.Errorf("weekday out of range: %d", i)
		}
		set |= 1 << uint(i)
	}
	*s = set
	return nil
}
