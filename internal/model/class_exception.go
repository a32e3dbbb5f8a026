package model

import (
	"time"

	"github.com/dukerupert/classplan/internal/recurrence"
)

// ClassException overrides one dated instance of a class. At most one
// exists per (class, date).
type ClassException struct {
	ID           int64                 `json:"id"`
	ClassID      int64                 `json:"class_id"`
	Date         time.Time             `json:"date"`
	Kind         recurrence.Kind       `json:"kind"`
	NewStartTime *recurrence.TimeOfDay `json:"new_start_time,omitempty"`
	NewEndTime   *recurrence.TimeOfDay `json:"new_end_time,omitempty"`
	NewLocation  *string               `json:"new_location,omitempty"`
	Reason       string                `json:"reason"`
	CreatedAt    time.Time             `json:"created_at"`
}

func (e ClassException) Exception() recurrence.Exception {
	return recurrence.Exception{
		ID:          e.ID,
		RuleID:      e.ClassID,
		Date:        e.Date,
		Kind:        e.Kind,
		NewStart:    e.NewStartTime,
		NewEnd:      e.NewEndTime,
		NewLocation: e.NewLocation,
		Reason:      e.Reason,
		CreatedAt:   e.CreatedAt,
	}
}

// Exceptions converts a list for the reconciler.
func Exceptions(list []ClassException) []recurrence.Exception {
	out := make([]recurrence.Exception, 0, len(list))
	for _, e := range list {
		out = append(out, e.Exception())
	}
	return out
}
