// Package form decodes and validates request bodies before they reach the
// timetable service.
package form

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/dukerupert/classplan/internal/calendar"
	"github.com/dukerupert/classplan/internal/recurrence"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

// custom tags
const (
	notBlankTag   = "notblank"
	timeOfDayTag  = "timeofday"
	dateTag       = "date"
	dateTimeTag   = "datetime_local"
	afterStartTag = "after_start"
	onOrAfterTag  = "on_or_after_start"
	requiredByTag = "required_by_kind"
)

var customMessages = map[string]string{
	notBlankTag:   "cannot be blank",
	timeOfDayTag:  "must be a time of day (HH:MM)",
	dateTag:       "must be a date (YYYY-MM-DD)",
	dateTimeTag:   "must be a local date and time (YYYY-MM-DDTHH:MM)",
	afterStartTag: "must be later than the start time",
	onOrAfterTag:  "must be on or after the semester start",
	requiredByTag: "is required for this kind of exception",
}

// DateTime layouts accepted for event times, most specific first. Values are
// naive wall-clock times interpreted in the configured location.
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func init() {
	validate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report JSON names, not Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlank)
	_ = validate.RegisterValidation(timeOfDayTag, isTimeOfDay)
	_ = validate.RegisterValidation(dateTag, isDate)
	_ = validate.RegisterValidation(dateTimeTag, isDateTime)

	validate.RegisterStructValidation(classStructValidation, ClassForm{})
	validate.RegisterStructValidation(exceptionStructValidation, ExceptionForm{})
	validate.RegisterStructValidation(eventStructValidation, EventForm{})

	noop := func(ut.Translator) error { return nil }
	for tag := range customMessages {
		_ = validate.RegisterTranslation(tag, translator, noop, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	return customMessages[fe.Tag()]
}

// FieldErrors maps a JSON field name to a readable message.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks v against its struct tags. It returns FieldErrors when v
// is invalid.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	fields := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = fe.Translate(translator)
	}
	return fields
}

func notBlank(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	return strings.TrimSpace(fl.Field().String()) != ""
}

func isTimeOfDay(fl validator.FieldLevel) bool {
	_, err := recurrence.ParseTimeOfDay(fl.Field().String())
	return err == nil
}

func isDate(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

func isDateTime(fl validator.FieldLevel) bool {
	_, _, err := parseDateTime(fl.Field().String(), time.UTC)
	return err == nil
}

// ParseDate parses a YYYY-MM-DD string as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := calendar.ParseDateKey(strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// ParseDateTime parses a naive local date-time in loc. dateOnly reports that
// s carried no time component.
func ParseDateTime(s string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	return parseDateTime(s, loc)
}

func parseDateTime(s string, loc *time.Location) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if layout == "2006-01-02" {
			if t, err := calendar.ParseDateKey(s, loc); err == nil {
				return t, true, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("parse date-time %q: unrecognized format", s)
}
