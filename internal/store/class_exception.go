package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/classplan/internal/model"
	"github.com/dukerupert/classplan/internal/recurrence"
)

const exceptionColumns = `id, class_id, exception_date, kind, new_start_time, new_end_time, new_location, reason, created_at`

type ExceptionStore struct {
	db  Execer
	loc *time.Location
}

func NewExceptionStore(db Execer, loc *time.Location) *ExceptionStore {
	return &ExceptionStore{db: db, loc: orLocal(loc)}
}

// Upsert inserts the exception or overwrites the one already stored for the
// same class and date. The overwritten row keeps its id.
func (s *ExceptionStore) Upsert(ctx context.Context, e model.ClassException) (*model.ClassException, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO class_exceptions (class_id, exception_date, kind, new_start_time, new_end_time, new_location, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (class_id, exception_date)
		 DO UPDATE SET
			kind = excluded.kind,
			new_start_time = excluded.new_start_time,
			new_end_time = excluded.new_end_time,
			new_location = excluded.new_location,
			reason = excluded.reason,
			created_at = excluded.created_at
		 RETURNING id`,
		e.ClassID, formatDate(e.Date), string(e.Kind),
		nullTimeOfDay(e.NewStartTime), nullTimeOfDay(e.NewEndTime), nullString(e.NewLocation), e.Reason,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("upsert class exception: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *ExceptionStore) GetByID(ctx context.Context, id int64) (*model.ClassException, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+exceptionColumns+` FROM class_exceptions WHERE id = ?`, id)
	e, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query class exception: %w", err)
	}
	return e, nil
}

func (s *ExceptionStore) ListByClass(ctx context.Context, classID int64) ([]model.ClassException, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+exceptionColumns+` FROM class_exceptions WHERE class_id = ? ORDER BY exception_date ASC`,
		classID,
	)
	if err != nil {
		return nil, fmt.Errorf("query class exceptions: %w", err)
	}
	defer rows.Close()

	var list []model.ClassException
	for rows.Next() {
		e, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan class exception: %w", err)
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

func (s *ExceptionStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM class_exceptions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete class exception: %w", err)
	}
	return nil
}

func (s *ExceptionStore) DeleteByClass(ctx context.Context, classID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM class_exceptions WHERE class_id = ?", classID)
	if err != nil {
		return fmt.Errorf("delete class exceptions: %w", err)
	}
	return nil
}

func (s *ExceptionStore) scan(sc scanner) (*model.ClassException, error) {
	var e model.ClassException
	var date, kind, created string
	var newStart, newEnd, newLocation sql.NullString

	if err := sc.Scan(&e.ID, &e.ClassID, &date, &kind, &newStart, &newEnd, &newLocation, &e.Reason, &created); err != nil {
		return nil, err
	}

	var err error
	if e.Date, err = parseDate(date, s.loc); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTimestamp(created, time.UTC); err != nil {
		return nil, err
	}
	e.Kind = recurrence.Kind(kind)

	if newStart.Valid {
		t, err := recurrence.ParseTimeOfDay(newStart.String)
		if err != nil {
			return nil, fmt.Errorf("exception %d new_start_time: %w", e.ID, err)
		}
		e.NewStartTime = &t
	}
	if newEnd.Valid {
		t, err := recurrence.ParseTimeOfDay(newEnd.String)
		if err != nil {
			return nil, fmt.Errorf("exception %d new_end_time: %w", e.ID, err)
		}
		e.NewEndTime = &t
	}
	if newLocation.Valid {
		e.NewLocation = &newLocation.String
	}
	return &e, nil
}

func nullTimeOfDay(t *recurrence.TimeOfDay) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.String(), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
