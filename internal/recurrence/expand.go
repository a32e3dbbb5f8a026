package recurrence

import (
	"time"

	"github.com/dukerupert/classplan/internal/calendar"
)

type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
	StatusRelocated   Status = "relocated"
)

// Instance is one concrete occurrence of a rule.
type Instance struct {
	RuleID   int64     `json:"rule_id"`
	Date     time.Time `json:"date"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Location *string   `json:"location"`
	Status   Status    `json:"status"`
}

// Expand generates one instance for every day in [SemesterStart, SemesterEnd]
// whose weekday is in the rule, ordered by date. A rule with no weekdays or
// an inverted semester yields nothing; callers validate before expanding.
func Expand(ruleID int64, rule Rule) []Instance {
	if rule.Weekdays.Len() == 0 {
		return nil
	}

	loc := rule.SemesterStart.Location()
	first := civilDay(rule.SemesterStart)
	last := civilDay(rule.SemesterEnd)

	var results []Instance
	for cur := first; !cur.After(last); cur = cur.AddDate(0, 0, 1) {
		if !rule.Weekdays.Contains(cur.Weekday()) {
			continue
		}
		day := calendar.Midnight(cur.Year(), cur.Month(), cur.Day(), loc)
		results = append(results, Instance{
			RuleID:   ruleID,
			Date:     day,
			Start:    rule.Start.On(day),
			End:      rule.End.On(day),
			Location: locationPtr(rule.Location),
			Status:   StatusScheduled,
		})
	}
	return results
}

// Occurs reports whether the rule produces an instance on date's calendar day.
func (r Rule) Occurs(date time.Time) bool {
	day := civilDay(date)
	if day.Before(civilDay(r.SemesterStart)) || day.After(civilDay(r.SemesterEnd)) {
		return false
	}
	return r.Weekdays.Contains(day.Weekday())
}

func locationPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
