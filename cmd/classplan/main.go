package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/classplan/internal/backup"
	"github.com/dukerupert/classplan/internal/config"
	"github.com/dukerupert/classplan/internal/database"
	"github.com/dukerupert/classplan/internal/logging"
	"github.com/dukerupert/classplan/internal/server"
	"github.com/dukerupert/classplan/internal/timetable"
	ws "github.com/dukerupert/classplan/internal/websocket"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "decrypt-backup" {
		os.Exit(decryptBackup(os.Args[2:]))
	}

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		logging.Setup("error", "text").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go srv.RateLimiter().RunCleanup(ctx, 5*time.Minute)

	var scheduler *timetable.Scheduler
	if cfg.ResyncEnabled() {
		scheduler, err = timetable.NewScheduler(srv.Service(), cfg.ResyncCron, cfg.Location(), logger)
		if err != nil {
			logger.Error("failed to create resync scheduler", "error", err)
			os.Exit(1)
		}
		scheduler.OnResync(func(synced int) {
			srv.Hub().Broadcast(ws.NewMessage(ws.EntityTimetable, ws.ActionResynced, 0, map[string]any{
				"classes": synced,
			}))
		})
		scheduler.Start()
	}

	if cfg.BackupEnabled() {
		if err := srv.Backups().Start(cfg.Backup.Cron, cfg.Location()); err != nil {
			logger.Error("failed to start backup scheduler", "error", err)
			os.Exit(1)
		}
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("classplan listening", "addr", httpServer.Addr, "timezone", cfg.Location().String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	srv.Backups().Stop(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// decryptBackup restores an encrypted snapshot to a plain SQLite file using
// CLASSPLAN_BACKUP_PASSPHRASE.
func decryptBackup(args []string) int {
	logger := logging.Setup("info", "text")
	if len(args) != 2 {
		logger.Error("usage: classplan decrypt-backup <snapshot.db.enc> <restored.db>")
		return 2
	}
	pass := os.Getenv("CLASSPLAN_BACKUP_PASSPHRASE")
	if pass == "" {
		logger.Error("CLASSPLAN_BACKUP_PASSPHRASE is not set")
		return 1
	}
	if err := backup.DecryptFile(args[0], args[1], pass); err != nil {
		logger.Error("decrypt backup", "src", args[0], "error", err)
		return 1
	}
	logger.Info("backup restored", "dst", args[1])
	return 0
}
