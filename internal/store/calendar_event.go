package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/classplan/internal/model"
)

const eventColumns = `id, class_id, title, description, start_time, end_time, all_day, location, color, category, status,
	created_at, updated_at`

type EventStore struct {
	db  Execer
	loc *time.Location
}

func NewEventStore(db Execer, loc *time.Location) *EventStore {
	return &EventStore{db: db, loc: orLocal(loc)}
}

func (s *EventStore) Create(ctx context.Context, e model.CalendarEvent) (*model.CalendarEvent, error) {
	id, err := s.insert(ctx, e)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// CreateMany inserts events without reading them back.
func (s *EventStore) CreateMany(ctx context.Context, events []model.CalendarEvent) error {
	for _, e := range events {
		if _, err := s.insert(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *EventStore) insert(ctx context.Context, e model.CalendarEvent) (int64, error) {
	if e.Category == "" {
		e.Category = model.CategoryPersonal
	}
	if e.Status == "" {
		e.Status = "scheduled"
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO calendar_events (class_id, title, description, start_time, end_time, all_day, location, color, category, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullInt64(e.ClassID), e.Title, e.Description, formatTimestamp(e.StartTime), nullTimestamp(e.EndTime),
		boolToInt(e.AllDay), e.Location, e.Color, e.Category, e.Status,
	)
	if err != nil {
		return 0, fmt.Errorf("insert calendar event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (s *EventStore) GetByID(ctx context.Context, id int64) (*model.CalendarEvent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM calendar_events WHERE id = ?`, id)
	e, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query calendar event: %w", err)
	}
	return e, nil
}

// ListByDateRange returns events overlapping [start, end). An event without
// an end is a point in time and matches when it starts inside the window.
func (s *EventStore) ListByDateRange(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error) {
	return s.list(ctx,
		`SELECT `+eventColumns+`
		 FROM calendar_events
		 WHERE start_time < ?
		   AND ((end_time IS NOT NULL AND end_time > ?) OR (end_time IS NULL AND start_time >= ?))
		 ORDER BY all_day DESC, start_time ASC, id ASC`,
		formatTimestamp(end), formatTimestamp(start), formatTimestamp(start),
	)
}

func (s *EventStore) ListByClass(ctx context.Context, classID int64) ([]model.CalendarEvent, error) {
	return s.list(ctx,
		`SELECT `+eventColumns+` FROM calendar_events WHERE class_id = ? ORDER BY start_time ASC, id ASC`,
		classID,
	)
}

// ListStandalone returns every event not generated from a class.
func (s *EventStore) ListStandalone(ctx context.Context) ([]model.CalendarEvent, error) {
	return s.list(ctx,
		`SELECT `+eventColumns+` FROM calendar_events WHERE class_id IS NULL ORDER BY start_time ASC, id ASC`,
	)
}

func (s *EventStore) list(ctx context.Context, query string, args ...any) ([]model.CalendarEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calendar events: %w", err)
	}
	defer rows.Close()

	var events []model.CalendarEvent
	for rows.Next() {
		e, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *EventStore) Update(ctx context.Context, e model.CalendarEvent) (*model.CalendarEvent, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE calendar_events
		 SET title = ?, description = ?, start_time = ?, end_time = ?, all_day = ?, location = ?, color = ?,
		     category = ?, updated_at = strftime('%Y-%m-%d %H:%M:%f', 'now')
		 WHERE id = ?`,
		e.Title, e.Description, formatTimestamp(e.StartTime), nullTimestamp(e.EndTime), boolToInt(e.AllDay),
		e.Location, e.Color, e.Category, e.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update calendar event: %w", err)
	}

	return s.GetByID(ctx, e.ID)
}

// UpdateClassMetadata patches display fields on every event of a class in
// place. Relocated instances keep the location their exception gave them.
func (s *EventStore) UpdateClassMetadata(ctx context.Context, classID int64, patch ClassMetadata) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE calendar_events
		 SET title = ?, description = ?, color = ?,
		     location = CASE WHEN status = 'relocated' THEN location ELSE ? END,
		     updated_at = strftime('%Y-%m-%d %H:%M:%f', 'now')
		 WHERE class_id = ?`,
		patch.Title, patch.Description, patch.Color, patch.Location, classID,
	)
	if err != nil {
		return 0, fmt.Errorf("patch class events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (s *EventStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM calendar_events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}

func (s *EventStore) DeleteByClass(ctx context.Context, classID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM calendar_events WHERE class_id = ?", classID)
	if err != nil {
		return fmt.Errorf("delete class events: %w", err)
	}
	return nil
}

func (s *EventStore) scan(sc scanner) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	var classID sql.NullInt64
	var start, created, updated string
	var end sql.NullString
	var allDayInt int

	if err := sc.Scan(&e.ID, &classID, &e.Title, &e.Description, &start, &end, &allDayInt, &e.Location,
		&e.Color, &e.Category, &e.Status, &created, &updated); err != nil {
		return nil, err
	}

	var err error
	if e.StartTime, err = parseTimestamp(start, s.loc); err != nil {
		return nil, err
	}
	if end.Valid {
		t, err := parseTimestamp(end.String, s.loc)
		if err != nil {
			return nil, err
		}
		e.EndTime = &t
	}
	if e.CreatedAt, e.UpdatedAt, err = parseCreated(created, updated); err != nil {
		return nil, err
	}
	e.AllDay = allDayInt != 0
	if classID.Valid {
		e.ClassID = &classID.Int64
	}
	return &e, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTimestamp(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTimestamp(*t), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
