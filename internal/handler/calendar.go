package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/classplan/internal/calendar"
	"github.com/dukerupert/classplan/internal/form"
	"github.com/dukerupert/classplan/internal/model"
	"github.com/dukerupert/classplan/internal/timetable"
)

// CalendarHandler serves the month, week and day views. Each view carries the
// events overlapping its days, grouped per day.
type CalendarHandler struct {
	svc    *timetable.Service
	loc    *time.Location
	now    calendar.Clock
	logger *slog.Logger
}

func NewCalendarHandler(svc *timetable.Service, loc *time.Location, now calendar.Clock, logger *slog.Logger) *CalendarHandler {
	if now == nil {
		now = time.Now
	}
	return &CalendarHandler{svc: svc, loc: loc, now: now, logger: logger}
}

type monthRef struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type monthDay struct {
	calendar.DayCell
	Key    string                `json:"key"`
	Events []model.CalendarEvent `json:"events"`
}

type monthView struct {
	Year  int        `json:"year"`
	Month int        `json:"month"`
	Prev  monthRef   `json:"prev"`
	Next  monthRef   `json:"next"`
	Days  []monthDay `json:"days"`
}

type timedEvent struct {
	model.CalendarEvent
	Position calendar.Position `json:"position"`
}

type dayColumn struct {
	Date    time.Time             `json:"date"`
	Key     string                `json:"key"`
	IsToday bool                  `json:"is_today"`
	AllDay  []model.CalendarEvent `json:"all_day"`
	Timed   []timedEvent          `json:"timed"`
}

type weekView struct {
	Prev string      `json:"prev"`
	Next string      `json:"next"`
	Days []dayColumn `json:"days"`
}

type dayView struct {
	Prev string `json:"prev"`
	Next string `json:"next"`
	dayColumn
}

func (h *CalendarHandler) today() time.Time {
	return h.now().In(h.loc)
}

// Month serves ?year=&month=, defaulting to the current month.
func (h *CalendarHandler) Month(w http.ResponseWriter, r *http.Request) {
	today := h.today()
	year, month := today.Year(), int(today.Month())

	q := r.URL.Query()
	if s := q.Get("year"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "year must be a number"})
			return
		}
		year = v
	}
	if s := q.Get("month"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > 12 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "month must be 1-12"})
			return
		}
		month = v
	}

	start, end := calendar.MonthRange(year, time.Month(month), h.loc)
	events, err := h.svc.CalendarEvents(r.Context(), start, end)
	if err != nil {
		writeError(w, h.logger, err, "calendar")
		return
	}

	cells := calendar.MonthGrid(year, time.Month(month), today)
	days := make([]monthDay, len(cells))
	for i, cell := range cells {
		dayStart, dayEnd := calendar.DayRange(cell.Date)
		days[i] = monthDay{
			DayCell: cell,
			Key:     calendar.DateKey(cell.Date),
			Events:  eventsBetween(events, dayStart, dayEnd),
		}
	}

	py, pm := calendar.PreviousMonth(year, time.Month(month))
	ny, nm := calendar.NextMonth(year, time.Month(month))
	writeJSON(w, http.StatusOK, monthView{
		Year:  year,
		Month: month,
		Prev:  monthRef{Year: py, Month: int(pm)},
		Next:  monthRef{Year: ny, Month: int(nm)},
		Days:  days,
	})
}

// Week serves ?date=, the week (Sunday first) containing that day.
func (h *CalendarHandler) Week(w http.ResponseWriter, r *http.Request) {
	anchor, ok := h.dateParam(w, r)
	if !ok {
		return
	}

	start, end := calendar.WeekRange(anchor)
	events, err := h.svc.CalendarEvents(r.Context(), start, end)
	if err != nil {
		writeError(w, h.logger, err, "calendar")
		return
	}

	today := h.today()
	days := calendar.WeekDays(anchor)
	view := weekView{
		Prev: calendar.DateKey(calendar.PreviousWeek(anchor)),
		Next: calendar.DateKey(calendar.NextWeek(anchor)),
		Days: make([]dayColumn, 0, len(days)),
	}
	for _, day := range days {
		view.Days = append(view.Days, column(events, day, today))
	}
	writeJSON(w, http.StatusOK, view)
}

// Day serves ?date=, defaulting to today.
func (h *CalendarHandler) Day(w http.ResponseWriter, r *http.Request) {
	day, ok := h.dateParam(w, r)
	if !ok {
		return
	}

	start, end := calendar.DayRange(day)
	events, err := h.svc.CalendarEvents(r.Context(), start, end)
	if err != nil {
		writeError(w, h.logger, err, "calendar")
		return
	}

	writeJSON(w, http.StatusOK, dayView{
		Prev:      calendar.DateKey(calendar.PreviousDay(day)),
		Next:      calendar.DateKey(calendar.NextDay(day)),
		dayColumn: column(events, day, h.today()),
	})
}

func (h *CalendarHandler) dateParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	s := r.URL.Query().Get("date")
	if s == "" {
		return calendar.StartOfDay(h.today()), true
	}
	day, err := form.ParseDate(s, h.loc)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return day, true
}

func column(events []model.CalendarEvent, day, today time.Time) dayColumn {
	dayStart, dayEnd := calendar.DayRange(day)
	col := dayColumn{
		Date:    dayStart,
		Key:     calendar.DateKey(dayStart),
		IsToday: calendar.SameDay(dayStart, today),
		AllDay:  []model.CalendarEvent{},
		Timed:   []timedEvent{},
	}
	for _, e := range eventsBetween(events, dayStart, dayEnd) {
		if e.AllDay {
			col.AllDay = append(col.AllDay, e)
			continue
		}
		start, end := clampToDay(e, dayStart, dayEnd)
		col.Timed = append(col.Timed, timedEvent{
			CalendarEvent: e,
			Position:      calendar.EventPosition(start, end),
		})
	}
	return col
}

// clampToDay trims a timed event to [dayStart, dayEnd) so blocks spanning
// midnight are positioned within each day they cover.
func clampToDay(e model.CalendarEvent, dayStart, dayEnd time.Time) (time.Time, *time.Time) {
	start, end := e.StartTime, e.EndTime
	if start.Before(dayStart) {
		start = dayStart
	}
	if end != nil && end.After(dayEnd) {
		clipped := dayEnd
		end = &clipped
	}
	return start, end
}

// eventsBetween filters events overlapping [start, end). An event without an
// end counts only on the day it starts.
func eventsBetween(events []model.CalendarEvent, start, end time.Time) []model.CalendarEvent {
	out := []model.CalendarEvent{}
	for _, e := range events {
		if e.EndTime == nil {
			if !e.StartTime.Before(start) && e.StartTime.Before(end) {
				out = append(out, e)
			}
			continue
		}
		if calendar.Overlaps(e.StartTime, *e.EndTime, start, end) {
			out = append(out, e)
		}
	}
	return out
}
