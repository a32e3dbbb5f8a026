package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/classplan/internal/backup"
	"github.com/dukerupert/classplan/internal/timetable"
	"github.com/dukerupert/classplan/internal/websocket"
)

// Snapshotter takes and lists database snapshots.
type Snapshotter interface {
	Run(ctx context.Context) (*backup.Snapshot, error)
	List() ([]backup.Snapshot, error)
	Status() backup.Status
}

type AdminHandler struct {
	svc     *timetable.Service
	backups Snapshotter
	hub     Broadcaster
	logger  *slog.Logger
}

func NewAdminHandler(svc *timetable.Service, backups Snapshotter, hub Broadcaster, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, backups: backups, hub: hub, logger: logger}
}

// Resync rebuilds the stored events of every class. Classes that fail are
// reported but do not stop the others.
func (h *AdminHandler) Resync(w http.ResponseWriter, r *http.Request) {
	synced, err := h.svc.Resync(r.Context())
	if synced > 0 {
		h.hub.Broadcast(websocket.NewMessage(websocket.EntityTimetable, websocket.ActionResynced, 0, map[string]any{
			"classes": synced,
		}))
	}
	if err != nil {
		h.logger.Error("manual resync", "synced", synced, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  "resync incomplete",
			"synced": synced,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"synced": synced})
}

func (h *AdminHandler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	snap, err := h.backups.Run(r.Context())
	if errors.Is(err, backup.ErrInProgress) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("manual backup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "backup failed"})
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *AdminHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.backups.List()
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list backups"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    h.backups.Status(),
		"snapshots": snaps,
	})
}
