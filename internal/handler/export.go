package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/classplan/internal/ics"
	"github.com/dukerupert/classplan/internal/model"
	"github.com/dukerupert/classplan/internal/timetable"
)

const calendarContentType = "text/calendar; charset=utf-8"

// ExportHandler serves the timetable as iCalendar feeds.
type ExportHandler struct {
	svc    *timetable.Service
	now    func() time.Time
	logger *slog.Logger
}

func NewExportHandler(svc *timetable.Service, now func() time.Time, logger *slog.Logger) *ExportHandler {
	if now == nil {
		now = time.Now
	}
	return &ExportHandler{svc: svc, now: now, logger: logger}
}

// Class exports one class with its exceptions.
func (h *ExportHandler) Class(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeBadID(w)
		return
	}

	sched, err := h.svc.ClassSchedule(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "class")
		return
	}

	entries := []ics.ClassEntry{{Class: sched.Class, Exceptions: sched.Exceptions}}
	h.write(w, fmt.Sprintf("class-%d.ics", id), entries, nil)
}

// Timetable exports every class plus the one-off events.
func (h *ExportHandler) Timetable(w http.ResponseWriter, r *http.Request) {
	schedules, events, err := h.svc.Timetable(r.Context())
	if err != nil {
		writeError(w, h.logger, err, "timetable")
		return
	}

	entries := make([]ics.ClassEntry, 0, len(schedules))
	for _, s := range schedules {
		entries = append(entries, ics.ClassEntry{Class: s.Class, Exceptions: s.Exceptions})
	}
	h.write(w, "timetable.ics", entries, events)
}

func (h *ExportHandler) write(w http.ResponseWriter, filename string, entries []ics.ClassEntry, events []model.CalendarEvent) {
	cal, err := ics.Build(entries, events, h.now().UTC())
	if err != nil {
		writeError(w, h.logger, err, "calendar")
		return
	}

	w.Header().Set("Content-Type", calendarContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write(ics.Encode(cal))
}
