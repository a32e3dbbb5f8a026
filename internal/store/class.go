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

const classColumns = `id, title, description, instructor, location, color, weekdays, start_time, end_time,
	semester_start, semester_end, created_at, updated_at`

type ClassStore struct {
	db  Execer
	loc *time.Location
}

func NewClassStore(db Execer, loc *time.Location) *ClassStore {
	return &ClassStore{db: db, loc: orLocal(loc)}
}

func (s *ClassStore) Create(ctx context.Context, c model.Class) (*model.Class, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO classes (title, description, instructor, location, color, weekdays, start_time, end_time, semester_start, semester_end)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Title, c.Description, c.Instructor, c.Location, c.Color, c.Weekdays.String(),
		c.StartTime.String(), c.EndTime.String(), formatDate(c.SemesterStart), formatDate(c.SemesterEnd),
	)
	if err != nil {
		return nil, fmt.Errorf("insert class: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *ClassStore) GetByID(ctx context.Context, id int64) (*model.Class, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+classColumns+` FROM classes WHERE id = ?`, id)
	c, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query class: %w", err)
	}
	return c, nil
}

func (s *ClassStore) List(ctx context.Context) ([]model.Class, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+classColumns+` FROM classes ORDER BY start_time ASC, title COLLATE NOCASE ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	defer rows.Close()

	var classes []model.Class
	for rows.Next() {
		c, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, *c)
	}
	return classes, rows.Err()
}

func (s *ClassStore) Update(ctx context.Context, c model.Class) (*model.Class, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE classes
		 SET title = ?, description = ?, instructor = ?, location = ?, color = ?, weekdays = ?,
		     start_time = ?, end_time = ?, semester_start = ?, semester_end = ?,
		     updated_at = strftime('%Y-%m-%d %H:%M:%f', 'now')
		 WHERE id = ?`,
		c.Title, c.Description, c.Instructor, c.Location, c.Color, c.Weekdays.String(),
		c.StartTime.String(), c.EndTime.String(), formatDate(c.SemesterStart), formatDate(c.SemesterEnd),
		c.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update class: %w", err)
	}

	return s.GetByID(ctx, c.ID)
}

func (s *ClassStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM classes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}

func (s *ClassStore) scan(sc scanner) (*model.Class, error) {
	var c model.Class
	var weekdays, startTime, endTime, semStart, semEnd, created, updated string

	if err := sc.Scan(&c.ID, &c.Title, &c.Description, &c.Instructor, &c.Location, &c.Color,
		&weekdays, &startTime, &endTime, &semStart, &semEnd, &created, &updated); err != nil {
		return nil, err
	}

	var err error
	if c.Weekdays, err = recurrence.ParseWeekdays(weekdays); err != nil {
		return nil, fmt.Errorf("class %d weekdays: %w", c.ID, err)
	}
	if c.StartTime, err = recurrence.ParseTimeOfDay(startTime); err != nil {
		return nil, fmt.Errorf("class %d start_time: %w", c.ID, err)
	}
	if c.EndTime, err = recurrence.ParseTimeOfDay(endTime); err != nil {
		return nil, fmt.Errorf("class %d end_time: %w", c.ID, err)
	}
	if c.SemesterStart, err = parseDate(semStart, s.loc); err != nil {
		return nil, err
	}
	if c.SemesterEnd, err = parseDate(semEnd, s.loc); err != nil {
		return nil, err
	}
	if c.CreatedAt, c.UpdatedAt, err = parseCreated(created, updated); err != nil {
		return nil, err
	}
	return &c, nil
}
