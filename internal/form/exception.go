package form

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/classplan/internal/recurrence"
	"github.com/dukerupert/classplan/internal/timetable"
)

// ExceptionForm is the JSON body for overriding one class day.
type ExceptionForm struct {
	Date         string  `json:"date" validate:"required,date"`
	Kind         string  `json:"kind" validate:"required,oneof=cancelled rescheduled moved"`
	NewStartTime *string `json:"new_start_time" validate:"omitempty,timeofday"`
	NewEndTime   *string `json:"new_end_time" validate:"omitempty,timeofday"`
	NewLocation  *string `json:"new_location" validate:"omitempty,max=200"`
	Reason       string  `json:"reason" validate:"max=500"`
}

func exceptionStructValidation(sl validator.StructLevel) {
	f, ok := sl.Current().Interface().(ExceptionForm)
	if !ok {
		return
	}

	switch recurrence.Kind(f.Kind) {
	case recurrence.KindRescheduled:
		if f.NewStartTime == nil {
			sl.ReportError(f.NewStartTime, "new_start_time", "NewStartTime", requiredByTag, "")
		}
		if f.NewEndTime == nil {
			sl.ReportError(f.NewEndTime, "new_end_time", "NewEndTime", requiredByTag, "")
		}
		if f.NewStartTime == nil || f.NewEndTime == nil {
			return
		}
		start, err1 := recurrence.ParseTimeOfDay(*f.NewStartTime)
		end, err2 := recurrence.ParseTimeOfDay(*f.NewEndTime)
		if err1 == nil && err2 == nil && !start.Before(end) {
			sl.ReportError(f.NewEndTime, "new_end_time", "NewEndTime", afterStartTag, "")
		}
	case recurrence.KindMoved:
		if f.NewLocation == nil || strings.TrimSpace(*f.NewLocation) == "" {
			sl.ReportError(f.NewLocation, "new_location", "NewLocation", requiredByTag, "")
		}
	}
}

func (f ExceptionForm) Input(loc *time.Location) (timetable.ExceptionInput, error) {
	if err := Validate(f); err != nil {
		return timetable.ExceptionInput{}, err
	}

	date, err := ParseDate(f.Date, loc)
	if err != nil {
		return timetable.ExceptionInput{}, FieldErrors{"date": customMessages[dateTag]}
	}

	in := timetable.ExceptionInput{
		Date:   date,
		Kind:   recurrence.Kind(f.Kind),
		Reason: strings.TrimSpace(f.Reason),
	}
	if f.NewStartTime != nil {
		t, _ := recurrence.ParseTimeOfDay(*f.NewStartTime)
		in.NewStartTime = &t
	}
	if f.NewEndTime != nil {
		t, _ := recurrence.ParseTimeOfDay(*f.NewEndTime)
		in.NewEndTime = &t
	}
	if f.NewLocation != nil {
		room := strings.TrimSpace(*f.NewLocation)
		in.NewLocation = &room
	}
	return in, nil
}
