// Package backup writes point-in-time snapshots of the timetable database to
// a local directory, optionally encrypted, and prunes old ones.
package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	filePrefix    = "classplan-"
	plainSuffix   = ".db"
	encryptSuffix = ".db.enc"
	stampLayout   = "20060102T150405Z"
)

var ErrInProgress = errors.New("snapshot already in progress")

type Config struct {
	Dir        string
	Passphrase string
	// Keep is how many snapshots survive pruning.
	Keep int
}

// Snapshot describes one file in the backup directory.
type Snapshot struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Encrypted bool      `json:"encrypted"`
	TakenAt   time.Time `json:"taken_at"`
}

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateError   State = "error"
)

type Status struct {
	State        State      `json:"state"`
	LastSnapshot *time.Time `json:"last_snapshot,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// StatusCallback is called whenever the manager changes state.
type StatusCallback func(Status)

type Manager struct {
	mu       sync.Mutex
	running  bool
	status   Status
	cfg      Config
	db       *sql.DB
	callback StatusCallback
	now      func() time.Time
	cron     *cron.Cron
	logger   *slog.Logger
}

func NewManager(cfg Config, db *sql.DB, callback StatusCallback, logger *slog.Logger) *Manager {
	if cfg.Keep <= 0 {
		cfg.Keep = 7
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:      cfg,
		db:       db,
		callback: callback,
		status:   Status{State: StateIdle},
		now:      time.Now,
		logger:   logger.With("component", "backup"),
	}
}

// Start schedules Run on spec in loc.
func (m *Manager) Start(spec string, loc *time.Location) error {
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, m.scheduled); err != nil {
		return fmt.Errorf("parse backup schedule %q: %w", spec, err)
	}
	m.cron = c
	c.Start()
	m.logger.Info("backup scheduler started", "schedule", spec, "dir", m.cfg.Dir)
	return nil
}

// Stop halts the schedule and waits for a running snapshot or ctx.
func (m *Manager) Stop(ctx context.Context) {
	if m.cron == nil {
		return
	}
	select {
	case <-m.cron.Stop().Done():
	case <-ctx.Done():
		m.logger.Warn("backup still running at shutdown")
	}
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

func (m *Manager) scheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if _, err := m.Run(ctx); err != nil {
		m.logger.Error("scheduled backup", "error", err)
	}
}

// Run takes a snapshot and prunes the directory down to Keep files. Only one
// snapshot runs at a time; a concurrent call gets ErrInProgress.
func (m *Manager) Run(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil, ErrInProgress
	}
	m.running = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	m.setStatus(Status{State: StateRunning})

	snap, err := m.snapshot(ctx)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, err
	}
	if err := m.prune(); err != nil {
		m.logger.Warn("prune snapshots", "error", err)
	}

	taken := snap.TakenAt
	m.setStatus(Status{State: StateIdle, LastSnapshot: &taken})
	m.logger.Info("snapshot written", "name", snap.Name, "size", snap.Size, "encrypted", snap.Encrypted)
	return snap, nil
}

func (m *Manager) snapshot(ctx context.Context) (*Snapshot, error) {
	if err := os.MkdirAll(m.cfg.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	taken := m.now().UTC()
	base := filePrefix + taken.Format(stampLayout)
	plainPath := filepath.Join(m.cfg.Dir, base+plainSuffix)

	// VACUUM INTO fails if the target exists.
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", plainPath); err != nil {
		return nil, fmt.Errorf("vacuum into %s: %w", plainPath, err)
	}

	if m.cfg.Passphrase == "" {
		return describe(plainPath, taken, false)
	}

	defer os.Remove(plainPath)
	plain, err := os.ReadFile(plainPath)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	sealed, err := Encrypt(plain, m.cfg.Passphrase)
	if err != nil {
		return nil, err
	}
	encPath := filepath.Join(m.cfg.Dir, base+encryptSuffix)
	if err := os.WriteFile(encPath, sealed, 0o600); err != nil {
		return nil, fmt.Errorf("write encrypted snapshot: %w", err)
	}
	return describe(encPath, taken, true)
}

func describe(path string, taken time.Time, encrypted bool) (*Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}
	return &Snapshot{Name: filepath.Base(path), Size: info.Size(), Encrypted: encrypted, TakenAt: taken}, nil
}

// List returns the snapshots in the backup directory, newest first.
func (m *Manager) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	snaps := []Snapshot{}
	for _, e := range entries {
		snap, ok := parseName(e.Name())
		if !ok || e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		snap.Size = info.Size()
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].TakenAt.After(snaps[j].TakenAt) })
	return snaps, nil
}

func (m *Manager) prune() error {
	snaps, err := m.List()
	if err != nil {
		return err
	}
	var errs []error
	for _, s := range snaps[min(m.cfg.Keep, len(snaps)):] {
		if err := os.Remove(filepath.Join(m.cfg.Dir, s.Name)); err != nil {
			errs = append(errs, err)
			continue
		}
		m.logger.Debug("pruned snapshot", "name", s.Name)
	}
	return errors.Join(errs...)
}

func parseName(name string) (Snapshot, bool) {
	if !strings.HasPrefix(name, filePrefix) {
		return Snapshot{}, false
	}
	rest := strings.TrimPrefix(name, filePrefix)

	encrypted := strings.HasSuffix(rest, encryptSuffix)
	switch {
	case encrypted:
		rest = strings.TrimSuffix(rest, encryptSuffix)
	case strings.HasSuffix(rest, plainSuffix):
		rest = strings.TrimSuffix(rest, plainSuffix)
	default:
		return Snapshot{}, false
	}

	taken, err := time.Parse(stampLayout, rest)
	if err != nil {
		return Snapshot{}, false
	}
	return Snapshot{Name: name, Encrypted: encrypted, TakenAt: taken}, true
}
