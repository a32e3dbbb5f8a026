package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/classplan/internal/form"
	"github.com/dukerupert/classplan/internal/model"
	"github.com/dukerupert/classplan/internal/recurrence"
	"github.com/dukerupert/classplan/internal/timetable"
	"github.com/dukerupert/classplan/internal/websocket"
)

type ClassHandler struct {
	svc    *timetable.Service
	hub    Broadcaster
	loc    *time.Location
	logger *slog.Logger
}

func NewClassHandler(svc *timetable.Service, hub Broadcaster, loc *time.Location, logger *slog.Logger) *ClassHandler {
	return &ClassHandler{svc: svc, hub: hub, loc: loc, logger: logger}
}

type classUpdateResponse struct {
	Class *model.Class `json:"class"`
	timetable.UpdateResult
}

func (h *ClassHandler) List(w http.ResponseWriter, r *http.Request) {
	classes, err := h.svc.ListClasses(r.Context())
	if err != nil {
		writeError(w, h.logger, err, "class")
		return
	}
	if classes == nil {
		classes = []model.Class{}
	}
	writeJSON(w, http.StatusOK, classes)
}

func (h *ClassHandler) Create(w http.ResponseWriter, r *http.Request) {
	var f form.ClassForm
	if !decodeJSON(w, r, &f) {
		return
	}
	in, err := f.Input(h.loc)
	if err != nil {
		writeError(w, h.logger, err, "class")
		return
	}

	c, err := h.svc.CreateClass(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err, "class")
		return
	}

	h.hub.Broadcast(websocket.NewMessage(websocket.EntityClass, websocket.ActionCreated, c.ID, nil))
	writeJSON(w, http.StatusCreated, c)
}

func (h *ClassHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeBadID(w)
		return
	}

	c, err := h.svc.GetClass(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "class")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ClassHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeBadID(w)
		return
	}

	var f form.ClassForm
	if !decodeJSON(w, r, &f) {
		return
	}
	in, err := f.Input(h.loc)
	if err != nil {
		writeError(w, h.logger, err, "class")
		return
	}

	c, result, err := h.svc.UpdateClass(r.Context(), id, in)
	if err != nil {
		writeError(w, h.logger, err, "class")
		return
	}

	action := websocket.ActionUpdated
	if result.Regenerated {
		action = websocket.ActionRegenerated
	}
	h.hub.Broadcast(websocket.NewMessage(websocket.EntityClass, action, id, map[string]any{
		"orphans_discarded": result.OrphansDiscarded,
	}))
	writeJSON(w, http.StatusOK, classUpdateResponse{Class: c, UpdateResult: result})
}

func (h *ClassHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeBadID(w)
		return
	}

	if err := h.svc.DeleteClass(r.Context(), id); err != nil {
		writeError(w, h.logger, err, "class")
		return
	}

	h.hub.Broadcast(websocket.NewMessage(websocket.EntityClass, websocket.ActionDeleted, id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ClassHandler) Instances(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeBadID(w)
		return
	}

	instances, err := h.svc.Instances(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "class")
		return
	}
	if instances == nil {
		instances = []recurrence.Instance{}
	}
	writeJSON(w, http.StatusOK, instances)
}

func (h *ClassHandler) ListExceptions(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeBadID(w)
		return
	}

	list, err := h.svc.ListExceptions(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, "class")
		return
	}
	if list == nil {
		list = []model.ClassException{}
	}
	writeJSON(w, http.StatusOK, list)
}

// SetException creates or replaces the override for one class day.
func (h *ClassHandler) SetException(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeBadID(w)
		return
	}

	var f form.ExceptionForm
	if !decodeJSON(w, r, &f) {
		return
	}
	in, err := f.Input(h.loc)
	if err != nil {
		writeError(w, h.logger, err, "class")
		return
	}

	ex, err := h.svc.SetException(r.Context(), id, in)
	if err != nil {
		writeError(w, h.logger, err, "class")
		return
	}

	h.hub.Broadcast(websocket.NewMessage(websocket.EntityException, websocket.ActionCreated, ex.ID, map[string]any{
		"class_id": id,
		"date":     ex.Date.Format("2006-01-02"),
	}))
	writeJSON(w, http.StatusCreated, ex)
}

func (h *ClassHandler) DeleteException(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeBadID(w)
		return
	}
	exceptionID, err := parsePathInt(r, "exception_id")
	if err != nil {
		writeBadID(w)
		return
	}

	if err := h.svc.DeleteException(r.Context(), id, exceptionID); err != nil {
		writeError(w, h.logger, err, "exception")
		return
	}

	h.hub.Broadcast(websocket.NewMessage(websocket.EntityException, websocket.ActionDeleted, exceptionID, map[string]any{
		"class_id": id,
	}))
	w.WriteHeader(http.StatusNoContent)
}
