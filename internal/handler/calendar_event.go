package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/classplan/internal/form"
	"github.com/dukerupert/classplan/internal/model"
	"github.com/dukerupert/classplan/internal/timetable"
	"github.com/dukerupert/classplan/internal/websocket"
)

type CalendarEventHandler struct {
	svc    *timetable.Service
	hub    Broadcaster
	loc    *time.Location
	logger *slog.Logger
}

func NewCalendarEventHandler(svc *timetable.Service, hub Broadcaster, loc *time.Location, logger *slog.Logger) *CalendarEventHandler {
	return &CalendarEventHandler{svc: svc, hub: hub, loc: loc, logger: logger}
}

func (h *CalendarEventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var f form.EventForm
	if !decodeJSON(w, r, &f) {
		return
	}
	in, err := f.Input(h.loc)
	if err != nil {
		writeError(w, h.logger, err, "event")
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err, "event")
		return
	}

	h.hub.Broadcast(websocket.NewMessage(websocket.EntityEvent, websocket.ActionCreated, event.ID, nil))
	writeJSON(w, http.StatusCreated, event)
}

// List returns events overlapping [start, end). Both bounds accept a date or
// a local date-time.
func (h *CalendarEventHandler) List(w http.ResponseWriter, r *http.Request) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" || endStr == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start and end query parameters are required"})
		return
	}

	start, _, err := form.ParseDateTime(startStr, h.loc)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start must be YYYY-MM-DD or YYYY-MM-DDTHH:MM"})
		return
	}
	end, _, err := form.ParseDateTime(endStr, h.loc)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end must be YYYY-MM-DD or YYYY-MM-DDTHH:MM"})
		return
	}

	events, err := h.svc.CalendarEvents(r.Context(), start, end)
	if err != nil {
		writeError(w, h.logger, err, "event")
		return
	}
	if events == nil {
		events = []model.CalendarEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *CalendarEventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeBadID(w)
		return
	}

	event, err := h.svc.GetEvent(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "event")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarEventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeBadID(w)
		return
	}

	var f form.EventForm
	if !decodeJSON(w, r, &f) {
		return
	}
	in, err := f.Input(h.loc)
	if err != nil {
		writeError(w, h.logger, err, "event")
		return
	}

	event, err := h.svc.UpdateEvent(r.Context(), id, in)
	if err != nil {
		writeError(w, h.logger, err, "event")
		return
	}

	h.hub.Broadcast(websocket.NewMessage(websocket.EntityEvent, websocket.ActionUpdated, id, nil))
	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarEventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeBadID(w)
		return
	}

	if err := h.svc.DeleteEvent(r.Context(), id); err != nil {
		writeError(w, h.logger, err, "event")
		return
	}

	h.hub.Broadcast(websocket.NewMessage(websocket.EntityEvent, websocket.ActionDeleted, id, nil))
	w.WriteHeader(http.StatusNoContent)
}
