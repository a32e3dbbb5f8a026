package timetable

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/classplan/internal/model"
	"github.com/dukerupert/classplan/internal/recurrence"
	"github.com/dukerupert/classplan/internal/store"
)

// EventInput describes a one-off calendar entry such as an exam or an
// assignment deadline.
type EventInput struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     *time.Time
	AllDay      bool
	Location    string
	Color       string
	Category    string
}

func validCategory(c string) bool {
	switch c {
	case model.CategoryClass, model.CategoryExam, model.CategoryAssignment, model.CategoryStudy, model.CategoryPersonal:
		return true
	}
	return false
}

func (in EventInput) event() (model.CalendarEvent, error) {
	e := model.CalendarEvent{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		AllDay:      in.AllDay,
		Location:    in.Location,
		Color:       in.Color,
		Category:    in.Category,
	}
	if e.Category == "" {
		e.Category = model.CategoryPersonal
	}

	switch {
	case e.Title == "":
		return e, invalid(&recurrence.ValidationError{Field: "title", Message: "is required"})
	case !validCategory(e.Category):
		return e, invalid(&recurrence.ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", e.Category)})
	case e.EndTime != nil && !e.EndTime.After(e.StartTime):
		return e, invalid(&recurrence.ValidationError{Field: "end_time", Message: "must be after start_time"})
	}
	return e, nil
}

// CalendarEvents returns the stored events overlapping [start, end): class
// instances and one-off entries alike.
func (s *Service) CalendarEvents(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error) {
	if !end.After(start) {
		return nil, invalid(&recurrence.ValidationError{Field: "end", Message: "must be after start"})
	}

	var events []model.CalendarEvent
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		var err error
		events, err = repos.Events.ListByDateRange(ctx, start, end)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *Service) GetEvent(ctx context.Context, id int64) (*model.CalendarEvent, error) {
	var e *model.CalendarEvent
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		var err error
		e, err = loadEvent(ctx, repos, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return e, nil
}

func (s *Service) CreateEvent(ctx context.Context, in EventInput) (*model.CalendarEvent, error) {
	e, err := in.event()
	if err != nil {
		return nil, err
	}

	var created *model.CalendarEvent
	err = s.tx.WithTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		var err error
		created, err = repos.Events.Create(ctx, e)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.logger.Info("event created", "event_id", created.ID, "category", created.Category)
	return created, nil
}

// UpdateEvent edits a one-off entry. Class instances are rebuilt from their
// rule and can only be changed through the class or its exceptions.
func (s *Service) UpdateEvent(ctx context.Context, id int64, in EventInput) (*model.CalendarEvent, error) {
	e, err := in.event()
	if err != nil {
		return nil, err
	}
	e.ID = id

	var updated *model.CalendarEvent
	err = s.tx.WithTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		existing, err := loadEvent(ctx, repos, id)
		if err != nil {
			return err
		}
		if existing.ClassID != nil {
			return fmt.Errorf("%w: event belongs to class %d", ErrConflict, *existing.ClassID)
		}
		updated, err = repos.Events.Update(ctx, e)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update event %d: %w", id, err)
	}
	return updated, nil
}

func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		existing, err := loadEvent(ctx, repos, id)
		if err != nil {
			return err
		}
		if existing.ClassID != nil {
			return fmt.Errorf("%w: event belongs to class %d", ErrConflict, *existing.ClassID)
		}
		return repos.Events.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	s.logger.Info("event deleted", "event_id", id)
	return nil
}

func loadEvent(ctx context.Context, repos store.Repositories, id int64) (*model.CalendarEvent, error) {
	e, err := repos.Events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}
	return e, nil
}
