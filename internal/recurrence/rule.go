package recurrence

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidRule           = errors.New("invalid rule")
	ErrInvalidException      = errors.New("invalid exception")
	ErrExceptionDateMismatch = errors.New("exception date does not match an occurrence")
)

// ValidationError reports a single rejected field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Rule is a weekly class schedule bounded by a semester. Times are naive
// wall-clock values; instances take the location of SemesterStart.
type Rule struct {
	Weekdays      WeekdaySet
	Start         TimeOfDay
	End           TimeOfDay
	SemesterStart time.Time
	SemesterEnd   time.Time
	Location      string
}

// Validate rejects rules that would expand to nothing or to inverted spans.
func (r Rule) Validate() error {
	if r.Weekdays.Len() == 0 {
		return &ValidationError{Field: "weekdays", Message: "at least one weekday is required", Err: ErrInvalidRule}
	}
	if !r.Start.Before(r.End) {
		return &ValidationError{Field: "end_time", Message: "must be later than start_time", Err: ErrInvalidRule}
	}
	if civilDay(r.SemesterEnd).Before(civilDay(r.SemesterStart)) {
		return &ValidationError{Field: "semester_end", Message: "must be on or after semester_start", Err: ErrInvalidRule}
	}
	return nil
}

// Describe returns a human-readable summary like "Mon, Wed 09:00-10:00".
func (r Rule) Describe() string {
	if r.Weekdays.Len() == 0 {
		return ""
	}
	return fmt.Sprintf("%s %s-%s", r.Weekdays.Describe(), r.Start, r.End)
}

// civilDay is t's calendar day as a UTC date, so stepping and comparing days
// is unaffected by DST in t's zone.
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
