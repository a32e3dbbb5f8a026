// Package handler exposes the timetable over a JSON HTTP API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/classplan/internal/form"
	"github.com/dukerupert/classplan/internal/recurrence"
	"github.com/dukerupert/classplan/internal/timetable"
	"github.com/dukerupert/classplan/internal/websocket"
)

const maxBodyBytes = 1 << 20

// Broadcaster publishes change notifications to connected clients.
type Broadcaster interface {
	Broadcast(msg websocket.Message)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseIDParam(r *http.Request) (int64, error) {
	return parsePathInt(r, "id")
}

func parsePathInt(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return false
	}
	return true
}

type validationResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// writeError maps service and form errors to a status code. what names the
// resource in not-found messages. Anything unrecognised is logged and
// reported as a 500 without detail.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, what string) {
	var fields form.FieldErrors
	var ve *recurrence.ValidationError

	switch {
	case errors.As(err, &fields):
		writeJSON(w, http.StatusBadRequest, validationResponse{Error: "validation failed", Fields: fields})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, validationResponse{
			Error:  "validation failed",
			Fields: map[string]string{ve.Field: ve.Message},
		})
	case errors.Is(err, timetable.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, timetable.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": what + " not found"})
	case errors.Is(err, timetable.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": "class events are managed through the class and its exceptions",
		})
	default:
		logger.Error("request failed", "resource", what, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeBadID(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
}
