package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/classplan/internal/calendar"
	"github.com/dukerupert/classplan/internal/model"
)

// Dates and wall-clock times are stored as zone-less text and read back in
// the store's location. Row bookkeeping timestamps are UTC.
const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

// Execer is satisfied by both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type ClassRepository interface {
	Create(ctx context.Context, c model.Class) (*model.Class, error)
	GetByID(ctx context.Context, id int64) (*model.Class, error)
	List(ctx context.Context) ([]model.Class, error)
	Update(ctx context.Context, c model.Class) (*model.Class, error)
	Delete(ctx context.Context, id int64) error
}

type ExceptionRepository interface {
	Upsert(ctx context.Context, e model.ClassException) (*model.ClassException, error)
	GetByID(ctx context.Context, id int64) (*model.ClassException, error)
	ListByClass(ctx context.Context, classID int64) ([]model.ClassException, error)
	Delete(ctx context.Context, id int64) error
	DeleteByClass(ctx context.Context, classID int64) error
}

type EventRepository interface {
	Create(ctx context.Context, e model.CalendarEvent) (*model.CalendarEvent, error)
	CreateMany(ctx context.Context, events []model.CalendarEvent) error
	GetByID(ctx context.Context, id int64) (*model.CalendarEvent, error)
	ListByDateRange(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error)
	ListByClass(ctx context.Context, classID int64) ([]model.CalendarEvent, error)
	ListStandalone(ctx context.Context) ([]model.CalendarEvent, error)
	Update(ctx context.Context, e model.CalendarEvent) (*model.CalendarEvent, error)
	UpdateClassMetadata(ctx context.Context, classID int64, patch ClassMetadata) (int64, error)
	Delete(ctx context.Context, id int64) error
	DeleteByClass(ctx context.Context, classID int64) error
}

// ClassMetadata is the display-only part of a class copied onto its events.
type ClassMetadata struct {
	Title       string
	Description string
	Location    string
	Color       string
}

type scanner interface {
	Scan(dest ...any) error
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func formatTimestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := calendar.ParseDateKey(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(timestampLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseCreated(created, updated string) (time.Time, time.Time, error) {
	c, err := parseTimestamp(created, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	u, err := parseTimestamp(updated, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return c, u, nil
}

func orLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
