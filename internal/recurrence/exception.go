package recurrence

import (
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindCancelled   Kind = "cancelled"
	KindRescheduled Kind = "rescheduled"
	KindMoved       Kind = "moved"
)

func (k Kind) Valid() bool {
	switch k {
	case KindCancelled, KindRescheduled, KindMoved:
		return true
	}
	return false
}

// Exception overrides a single dated instance of a rule.
type Exception struct {
	ID          int64
	RuleID      int64
	Date        time.Time
	Kind        Kind
	NewStart    *TimeOfDay
	NewEnd      *TimeOfDay
	NewLocation *string
	Reason      string
	CreatedAt   time.Time
}

// Validate checks the fields each kind requires.
func (e Exception) Validate() error {
	switch e.Kind {
	case KindCancelled:
		return nil
	case KindRescheduled:
		if e.NewStart == nil {
			return &ValidationError{Field: "new_start_time", Message: "is required for a rescheduled class", Err: ErrInvalidException}
		}
		if e.NewEnd == nil {
			return &ValidationError{Field: "new_end_time", Message: "is required for a rescheduled class", Err: ErrInvalidException}
		}
		if !e.NewStart.Before(*e.NewEnd) {
			return &ValidationError{Field: "new_end_time", Message: "must be later than new_start_time", Err: ErrInvalidException}
		}
		return nil
	case KindMoved:
		if e.NewLocation == nil || strings.TrimSpace(*e.NewLocation) == "" {
			return &ValidationError{Field: "new_location", Message: "is required for a moved class", Err: ErrInvalidException}
		}
		return nil
	}
	return &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown kind %q", e.Kind), Err: ErrInvalidException}
}

// CheckExceptionDate returns ErrExceptionDateMismatch when rule does not
// produce an instance on date.
func CheckExceptionDate(rule Rule, date time.Time) error {
	if !rule.Occurs(date) {
		return &ValidationError{
			Field:   "date",
			Message: fmt.Sprintf("%s is not a scheduled day for this class", dateKey(date)),
			Err:     ErrExceptionDateMismatch,
		}
	}
	return nil
}

type exceptionKey struct {
	ruleID int64
	date   string
}

// Reconcile applies exceptions to a freshly expanded base set. It never moves
// an instance to another date, never adds instances, and does not modify its
// inputs. If two exceptions target the same rule and date, the most recently
// created one wins (ties go to the higher ID).
func Reconcile(base []Instance, exceptions []Exception) []Instance {
	byKey := make(map[exceptionKey]Exception, len(exceptions))
	for _, ex := range exceptions {
		k := exceptionKey{ruleID: ex.RuleID, date: dateKey(ex.Date)}
		if cur, ok := byKey[k]; ok && !newer(ex, cur) {
			continue
		}
		byKey[k] = ex
	}

	results := make([]Instance, 0, len(base))
	for _, inst := range base {
		ex, ok := byKey[exceptionKey{ruleID: inst.RuleID, date: dateKey(inst.Date)}]
		if !ok {
			results = append(results, copyInstance(inst))
			continue
		}

		switch ex.Kind {
		case KindCancelled:
			continue
		case KindRescheduled:
			out := copyInstance(inst)
			if ex.NewStart != nil && ex.NewEnd != nil {
				out.Start = ex.NewStart.On(inst.Date)
				out.End = ex.NewEnd.On(inst.Date)
				out.Status = StatusRescheduled
			}
			results = append(results, out)
		case KindMoved:
			out := copyInstance(inst)
			if ex.NewLocation != nil {
				loc := *ex.NewLocation
				out.Location = &loc
				out.Status = StatusRelocated
			}
			results = append(results, out)
		default:
			results = append(results, copyInstance(inst))
		}
	}
	return results
}

func newer(a, b Exception) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func copyInstance(inst Instance) Instance {
	if inst.Location != nil {
		loc := *inst.Location
		inst.Location = &loc
	}
	return inst
}
