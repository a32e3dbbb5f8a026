package form

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/classplan/internal/timetable"
)

// EventForm is the JSON body for a one-off calendar entry.
type EventForm struct {
	Title       string  `json:"title" validate:"notblank,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	StartTime   string  `json:"start_time" validate:"required,datetime_local"`
	EndTime     *string `json:"end_time" validate:"omitempty,datetime_local"`
	AllDay      bool    `json:"all_day"`
	Location    string  `json:"location" validate:"max=200"`
	Color       string  `json:"color" validate:"omitempty,hexcolor"`
	Category    string  `json:"category" validate:"omitempty,oneof=class exam assignment study personal"`
}

func eventStructValidation(sl validator.StructLevel) {
	f, ok := sl.Current().Interface().(EventForm)
	if !ok || f.EndTime == nil {
		return
	}
	start, _, err1 := parseDateTime(f.StartTime, time.UTC)
	end, _, err2 := parseDateTime(*f.EndTime, time.UTC)
	if err1 == nil && err2 == nil && !end.After(start) {
		sl.ReportError(f.EndTime, "end_time", "EndTime", afterStartTag, "")
	}
}

// Input validates the form and converts it for the service. A start given
// as a bare date marks the event all-day.
func (f EventForm) Input(loc *time.Location) (timetable.EventInput, error) {
	if err := Validate(f); err != nil {
		return timetable.EventInput{}, err
	}

	start, dateOnly, err := ParseDateTime(f.StartTime, loc)
	if err != nil {
		return timetable.EventInput{}, FieldErrors{"start_time": customMessages[dateTimeTag]}
	}
	in := timetable.EventInput{
		Title:       f.Title,
		Description: f.Description,
		StartTime:   start,
		AllDay:      f.AllDay || dateOnly,
		Location:    f.Location,
		Color:       f.Color,
		Category:    f.Category,
	}
	if f.EndTime != nil {
		end, _, err := ParseDateTime(*f.EndTime, loc)
		if err != nil {
			return timetable.EventInput{}, FieldErrors{"end_time": customMessages[dateTimeTag]}
		}
		in.EndTime = &end
	}
	return in, nil
}
