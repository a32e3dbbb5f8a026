package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/classplan/internal/backup"
	"github.com/dukerupert/classplan/internal/config"
	"github.com/dukerupert/classplan/internal/handler"
	"github.com/dukerupert/classplan/internal/middleware"
	"github.com/dukerupert/classplan/internal/store"
	"github.com/dukerupert/classplan/internal/timetable"
	ws "github.com/dukerupert/classplan/internal/websocket"
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	service        *timetable.Service
	backups        *backup.Manager
	classH         *handler.ClassHandler
	calendarEventH *handler.CalendarEventHandler
	calendarH      *handler.CalendarHandler
	exportH        *handler.ExportHandler
	adminH         *handler.AdminHandler
	rateLimiter    *middleware.RateLimiter
	allowedOrigins []string
	writeLimit     int
	logger         *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	loc := cfg.Location()
	hub := ws.NewHub(logger)
	svc := timetable.NewService(store.NewTxManager(db, loc), logger)
	backups := backup.NewManager(backup.Config{
		Dir:        cfg.Backup.Dir,
		Passphrase: cfg.Backup.Passphrase,
		Keep:       cfg.Backup.Keep,
	}, db, func(st backup.Status) {
		extra := map[string]any{}
		if st.Error != "" {
			extra["error"] = st.Error
		}
		hub.Broadcast(ws.NewMessage(ws.EntityBackup, string(st.State), 0, extra))
	}, logger)

	return &Server{
		db:             db,
		hub:            hub,
		service:        svc,
		backups:        backups,
		classH:         handler.NewClassHandler(svc, hub, loc, logger.With("component", "class")),
		calendarEventH: handler.NewCalendarEventHandler(svc, hub, loc, logger.With("component", "calendar_event")),
		calendarH:      handler.NewCalendarHandler(svc, loc, time.Now, logger.With("component", "calendar")),
		exportH:        handler.NewExportHandler(svc, time.Now, logger.With("component", "ics")),
		adminH:         handler.NewAdminHandler(svc, backups, hub, logger.With("component", "admin")),
		rateLimiter:    middleware.NewRateLimiter(),
		allowedOrigins: cfg.AllowedOrigins,
		writeLimit:     cfg.WriteLimit,
		logger:         logger,
	}
}

// Service returns the timetable service for the resync scheduler.
func (s *Server) Service() *timetable.Service {
	return s.service
}

// Backups returns the snapshot manager so main can schedule it.
func (s *Server) Backups() *backup.Manager {
	return s.backups
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.allowedOrigins))

	s.registerAPIRoutes(mux)

	limited := middleware.RateLimit(s.rateLimiter, middleware.WriteKey, s.writeLimit, time.Minute)(mux)
	logged := middleware.RequestLogger(s.logger.With("component", "http"))(limited)
	return middleware.RequestID(logged)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "clients": s.hub.ClientCount()})
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	// Class API routes
	mux.HandleFunc("GET /api/classes", s.classH.List)
	mux.HandleFunc("POST /api/classes", s.classH.Create)
	mux.HandleFunc("GET /api/classes/{id}", s.classH.Get)
	mux.HandleFunc("PUT /api/classes/{id}", s.classH.Update)
	mux.HandleFunc("DELETE /api/classes/{id}", s.classH.Delete)
	mux.HandleFunc("GET /api/classes/{id}/instances", s.classH.Instances)

	// Exception API routes
	mux.HandleFunc("GET /api/classes/{id}/exceptions", s.classH.ListExceptions)
	mux.HandleFunc("POST /api/classes/{id}/exceptions", s.classH.SetException)
	mux.HandleFunc("DELETE /api/classes/{id}/exceptions/{exception_id}", s.classH.DeleteException)

	// Calendar event API routes
	mux.HandleFunc("POST /api/events", s.calendarEventH.Create)
	mux.HandleFunc("GET /api/events", s.calendarEventH.List)
	mux.HandleFunc("GET /api/events/{id}", s.calendarEventH.Get)
	mux.HandleFunc("PUT /api/events/{id}", s.calendarEventH.Update)
	mux.HandleFunc("DELETE /api/events/{id}", s.calendarEventH.Delete)

	// Calendar views
	mux.HandleFunc("GET /api/calendar/month", s.calendarH.Month)
	mux.HandleFunc("GET /api/calendar/week", s.calendarH.Week)
	mux.HandleFunc("GET /api/calendar/day", s.calendarH.Day)

	// iCalendar export
	mux.HandleFunc("GET /api/classes/{id}/ics", s.exportH.Class)
	mux.HandleFunc("GET /api/timetable.ics", s.exportH.Timetable)

	// Admin
	mux.HandleFunc("POST /api/admin/resync", s.adminH.Resync)
	mux.HandleFunc("POST /api/admin/backups", s.adminH.CreateBackup)
	mux.HandleFunc("GET /api/admin/backups", s.adminH.ListBackups)
}
