package model

import (
	"time"

	"github.com/dukerupert/classplan/internal/recurrence"
)

// Class is a weekly recurring timetable entry bounded by a semester.
type Class struct {
	ID            int64                 `json:"id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Instructor    string                `json:"instructor"`
	Location      string                `json:"location"`
	Color         string                `json:"color"`
	Weekdays      recurrence.WeekdaySet `json:"weekdays"`
	StartTime     recurrence.TimeOfDay  `json:"start_time"`
	EndTime       recurrence.TimeOfDay  `json:"end_time"`
	SemesterStart time.Time             `json:"semester_start"`
	SemesterEnd   time.Time             `json:"semester_end"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// Rule returns the schedule part of the class.
func (c Class) Rule() recurrence.Rule {
	return recurrence.Rule{
		Weekdays:      c.Weekdays,
		Start:         c.StartTime,
		End:           c.EndTime,
		SemesterStart: c.SemesterStart,
		SemesterEnd:   c.SemesterEnd,
		Location:      c.Location,
	}
}
