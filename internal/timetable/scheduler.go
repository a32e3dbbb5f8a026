package timetable

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs Resync on a cron schedule.
type Scheduler struct {
	mu      sync.Mutex
	service *Service
	cron    *cron.Cron
	spec    string
	timeout time.Duration
	notify  func(synced int)
	logger  *slog.Logger
}

// NewScheduler parses spec (standard five-field cron syntax, or descriptors
// such as "@daily") in loc.
func NewScheduler(svc *Service, spec string, loc *time.Location, logger *slog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		service: svc,
		cron:    cron.New(cron.WithLocation(loc)),
		spec:    spec,
		timeout: 5 * time.Minute,
		logger:  logger.With("component", "resync"),
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("parse resync schedule %q: %w", spec, err)
	}
	return s, nil
}

// OnResync registers fn to be called after every scheduled run that synced
// at least one class.
func (s *Scheduler) OnResync(fn func(synced int)) {
	s.notify = fn
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("resync scheduler started", "schedule", s.spec)
}

// Stop prevents new runs and waits for a running resync to finish or ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("resync still running at shutdown")
	}
}

func (s *Scheduler) run() {
	if !s.mu.TryLock() {
		s.logger.Warn("previous resync still running, skipping")
		return
	}
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	synced, err := s.service.Resync(ctx)
	if synced > 0 && s.notify != nil {
		s.notify(synced)
	}
	if err != nil {
		s.logger.Error("scheduled resync", "synced", synced, "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Debug("scheduled resync", "synced", synced, "duration", time.Since(start))
}
