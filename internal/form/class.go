package form

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/classplan/internal/recurrence"
	"github.com/dukerupert/classplan/internal/timetable"
)

// ClassForm is the JSON body for creating or replacing a class.
type ClassForm struct {
	Title         string `json:"title" validate:"notblank,max=200"`
	Description   string `json:"description" validate:"max=2000"`
	Instructor    string `json:"instructor" validate:"max=200"`
	Location      string `json:"location" validate:"max=200"`
	Color         string `json:"color" validate:"omitempty,hexcolor"`
	Weekdays      []int  `json:"weekdays" validate:"required,min=1,max=7,unique,dive,min=0,max=6"`
	StartTime     string `json:"start_time" validate:"required,timeofday"`
	EndTime       string `json:"end_time" validate:"required,timeofday"`
	SemesterStart string `json:"semester_start" validate:"required,date"`
	SemesterEnd   string `json:"semester_end" validate:"required,date"`
}

func classStructValidation(sl validator.StructLevel) {
	f, ok := sl.Current().Interface().(ClassForm)
	if !ok {
		return
	}

	start, err1 := recurrence.ParseTimeOfDay(f.StartTime)
	end, err2 := recurrence.ParseTimeOfDay(f.EndTime)
	if err1 == nil && err2 == nil && !start.Before(end) {
		sl.ReportError(f.EndTime, "end_time", "EndTime", afterStartTag, "")
	}

	semStart, err1 := time.Parse("2006-01-02", f.SemesterStart)
	semEnd, err2 := time.Parse("2006-01-02", f.SemesterEnd)
	if err1 == nil && err2 == nil && semEnd.Before(semStart) {
		sl.ReportError(f.SemesterEnd, "semester_end", "SemesterEnd", onOrAfterTag, "")
	}
}

// Input validates the form and converts it for the service. Dates are
// midnight in loc.
func (f ClassForm) Input(loc *time.Location) (timetable.ClassInput, error) {
	if err := Validate(f); err != nil {
		return timetable.ClassInput{}, err
	}

	days := make([]time.Weekday, 0, len(f.Weekdays))
	for _, d := range f.Weekdays {
		days = append(days, time.Weekday(d))
	}
	// Already validated; errors below cannot occur.
	start, _ := recurrence.ParseTimeOfDay(f.StartTime)
	end, _ := recurrence.ParseTimeOfDay(f.EndTime)
	semStart, err := ParseDate(f.SemesterStart, loc)
	if err != nil {
		return timetable.ClassInput{}, FieldErrors{"semester_start": customMessages[dateTag]}
	}
	semEnd, err := ParseDate(f.SemesterEnd, loc)
	if err != nil {
		return timetable.ClassInput{}, FieldErrors{"semester_end": customMessages[dateTag]}
	}

	return timetable.ClassInput{
		Title:         f.Title,
		Description:   f.Description,
		Instructor:    f.Instructor,
		Location:      f.Location,
		Color:         f.Color,
		Weekdays:      recurrence.NewWeekdaySet(days...),
		StartTime:     start,
		EndTime:       end,
		SemesterStart: semStart,
		SemesterEnd:   semEnd,
	}, nil
}
