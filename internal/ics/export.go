// Package ics renders the timetable as an RFC 5545 iCalendar feed.
//
// All times are written floating (no TZID, no trailing Z) because classes
// are stored as naive wall-clock values. Each class becomes one recurring
// VEVENT with an RRULE; cancelled days are listed in EXDATE and rescheduled
// or moved days get their own VEVENT carrying a RECURRENCE-ID.
package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/dukerupert/classplan/internal/calendar"
	"github.com/dukerupert/classplan/internal/model"
	"github.com/dukerupert/classplan/internal/recurrence"
)

const (
	ProductID = "-//classplan//timetable//EN"

	floatingLayout = "20060102T150405"
	dateLayout     = "20060102"
)

// ClassEntry is a class together with the exceptions stored for it.
type ClassEntry struct {
	Class      model.Class
	Exceptions []model.ClassException
}

var rruleDays = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// Build assembles a calendar from classes and one-off events. Events that
// belong to a class are skipped since the class VEVENT already covers them.
// stamp is written as DTSTAMP on every component.
func Build(classes []ClassEntry, events []model.CalendarEvent, stamp time.Time) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	for _, entry := range classes {
		if err := addClass(cal, entry, stamp); err != nil {
			return nil, fmt.Errorf("class %d: %w", entry.Class.ID, err)
		}
	}
	for _, e := range events {
		if e.ClassID != nil {
			continue
		}
		addEvent(cal, e, stamp)
	}
	return cal, nil
}

// Encode returns the serialized calendar.
func Encode(cal *ical.Calendar) []byte {
	return []byte(cal.Serialize())
}

func ClassUID(id int64) string {
	return fmt.Sprintf("class-%d@classplan", id)
}

func EventUID(id int64) string {
	return fmt.Sprintf("event-%d@classplan", id)
}

func addClass(cal *ical.Calendar, entry ClassEntry, stamp time.Time) error {
	c := entry.Class
	rule := c.Rule()
	base := recurrence.Expand(c.ID, rule)
	if len(base) == 0 {
		return nil
	}

	recur, err := weeklyRule(rule, base[0].Start)
	if err != nil {
		return err
	}

	uid := ClassUID(c.ID)
	master := cal.AddEvent(uid)
	master.SetDtStampTime(stamp)
	master.AddProperty(ical.ComponentPropertyDtStart, floating(base[0].Start))
	master.AddProperty(ical.ComponentPropertyDtEnd, floating(base[0].End))
	master.AddProperty(ical.ComponentPropertyRrule, recur)
	describe(master, c.Title, c.Description, c.Location)
	master.AddProperty(ical.ComponentPropertyCategories, model.CategoryClass)

	effective := recurrence.Reconcile(base, model.Exceptions(entry.Exceptions))
	byDate := make(map[string]recurrence.Instance, len(effective))
	for _, inst := range effective {
		byDate[inst.Date.Format(dateLayout)] = inst
	}

	for _, inst := range base {
		got, ok := byDate[inst.Date.Format(dateLayout)]
		if !ok {
			master.AddProperty(ical.ComponentPropertyExdate, floating(inst.Start))
			continue
		}
		if got.Status == recurrence.StatusScheduled {
			continue
		}

		override := cal.AddEvent(uid)
		override.SetDtStampTime(stamp)
		override.AddProperty(ical.ComponentProperty("RECURRENCE-ID"), floating(inst.Start))
		override.AddProperty(ical.ComponentPropertyDtStart, floating(got.Start))
		override.AddProperty(ical.ComponentPropertyDtEnd, floating(got.End))
		location := c.Location
		if got.Location != nil {
			location = *got.Location
		}
		describe(override, c.Title, c.Description, location)
	}
	return nil
}

// weeklyRule renders the RRULE for rule starting at first. UNTIL is the end
// of the last semester day and, like DTSTART, floating.
func weeklyRule(rule recurrence.Rule, first time.Time) (string, error) {
	days := make([]rrule.Weekday, 0, rule.Weekdays.Len())
	for _, d := range rule.Weekdays.Days() {
		days = append(days, rruleDays[d])
	}

	y, m, d := rule.SemesterEnd.Date()
	until := time.Date(y, m, d, 23, 59, 59, 0, time.UTC)

	opt := rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   first,
		Byweekday: days,
		Until:     until,
	}
	if _, err := rrule.NewRRule(opt); err != nil {
		return "", fmt.Errorf("build rrule: %w", err)
	}

	// rrule-go always writes UNTIL in UTC form.
	s := opt.RRuleString()
	return strings.Replace(s, until.Format(floatingLayout)+"Z", until.Format(floatingLayout), 1), nil
}

func addEvent(cal *ical.Calendar, e model.CalendarEvent, stamp time.Time) {
	ev := cal.AddEvent(EventUID(e.ID))
	ev.SetDtStampTime(stamp)

	if e.AllDay {
		end := calendar.NextDay(e.StartTime)
		if e.EndTime != nil && e.EndTime.After(end) {
			end = *e.EndTime
		}
		ev.AddProperty(ical.ComponentPropertyDtStart, e.StartTime.Format(dateLayout), ical.WithValue("DATE"))
		ev.AddProperty(ical.ComponentPropertyDtEnd, end.Format(dateLayout), ical.WithValue("DATE"))
	} else {
		ev.AddProperty(ical.ComponentPropertyDtStart, floating(e.StartTime))
		if e.EndTime != nil {
			ev.AddProperty(ical.ComponentPropertyDtEnd, floating(*e.EndTime))
		}
	}
	describe(ev, e.Title, e.Description, e.Location)
	if e.Category != "" {
		ev.AddProperty(ical.ComponentPropertyCategories, e.Category)
	}
}

func describe(ev *ical.VEvent, title, description, location string) {
	ev.SetSummary(title)
	if description != "" {
		ev.SetDescription(description)
	}
	if location != "" {
		ev.SetLocation(location)
	}
}

func floating(t time.Time) string {
	return t.Format(floatingLayout)
}
