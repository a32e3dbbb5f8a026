// Package timetable keeps the stored calendar consistent with each class's
// recurrence rule and exceptions.
package timetable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/classplan/internal/model"
	"github.com/dukerupert/classplan/internal/recurrence"
	"github.com/dukerupert/classplan/internal/store"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// TxManager runs fn against repositories bound to a single transaction.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repos store.Repositories) error) error
}

type Service struct {
	tx     TxManager
	logger *slog.Logger
}

func NewService(tx TxManager, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{tx: tx, logger: logger.With("component", "timetable")}
}

type ClassInput struct {
	Title         string
	Description   string
	Instructor    string
	Location      string
	Color         string
	Weekdays      recurrence.WeekdaySet
	StartTime     recurrence.TimeOfDay
	EndTime       recurrence.TimeOfDay
	SemesterStart time.Time
	SemesterEnd   time.Time
}

func (in ClassInput) class() model.Class {
	return model.Class{
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Instructor:    in.Instructor,
		Location:      in.Location,
		Color:         in.Color,
		Weekdays:      in.Weekdays,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		SemesterStart: in.SemesterStart,
		SemesterEnd:   in.SemesterEnd,
	}
}

func validateClass(c model.Class) error {
	if c.Title == "" {
		return invalid(&recurrence.ValidationError{Field: "title", Message: "is required", Err: recurrence.ErrInvalidRule})
	}
	if err := c.Rule().Validate(); err != nil {
		return invalid(err)
	}
	return nil
}

type ExceptionInput struct {
	Date         time.Time
	Kind         recurrence.Kind
	NewStartTime *recurrence.TimeOfDay
	NewEndTime   *recurrence.TimeOfDay
	NewLocation  *string
	Reason       string
}

// UpdateResult reports what UpdateClass did to the stored instances.
type UpdateResult struct {
	Regenerated      bool  `json:"regenerated"`
	OrphansDiscarded int   `json:"orphans_discarded"`
	EventsPatched    int64 `json:"events_patched"`
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

func (s *Service) CreateClass(ctx context.Context, in ClassInput) (*model.Class, error) {
	c := in.class()
	if err := validateClass(c); err != nil {
		return nil, err
	}

	var created *model.Class
	var count int
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		var err error
		created, err = repos.Classes.Create(ctx, c)
		if err != nil {
			return err
		}
		count, err = materialize(ctx, repos, *created)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create class: %w", err)
	}

	s.logger.Info("class created", "class_id", created.ID, "schedule", created.Rule().Describe(), "instances", count)
	return created, nil
}

// UpdateClass stores the new class definition. When the schedule changed the
// class's events are rebuilt and exceptions that no longer land on a class
// day are discarded. Otherwise display fields are patched onto the existing
// events in place.
func (s *Service) UpdateClass(ctx context.Context, id int64, in ClassInput) (*model.Class, UpdateResult, error) {
	next := in.class()
	next.ID = id
	if err := validateClass(next); err != nil {
		return nil, UpdateResult{}, err
	}

	var updated *model.Class
	var result UpdateResult
	var orphans []recurrence.Exception
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		existing, err := repos.Classes.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}

		updated, err = repos.Classes.Update(ctx, next)
		if err != nil {
			return err
		}

		if !recurrence.RequiresRegeneration(existing.Rule(), updated.Rule()) {
			result.EventsPatched, err = repos.Events.UpdateClassMetadata(ctx, id, metadata(*updated))
			return err
		}

		stored, err := repos.Exceptions.ListByClass(ctx, id)
		if err != nil {
			return err
		}
		_, orphans = recurrence.PartitionOrphans(updated.Rule(), model.Exceptions(stored))
		for _, o := range orphans {
			if err := repos.Exceptions.Delete(ctx, o.ID); err != nil {
				return err
			}
		}

		if _, err := materialize(ctx, repos, *updated); err != nil {
			return err
		}
		result.Regenerated = true
		result.OrphansDiscarded = len(orphans)
		return nil
	})
	if err != nil {
		return nil, UpdateResult{}, fmt.Errorf("update class %d: %w", id, err)
	}

	for _, o := range orphans {
		s.logger.Warn("discarded orphaned exception",
			"class_id", id,
			"exception_id", o.ID,
			"date", o.Date.Format("2006-01-02"),
			"kind", o.Kind,
		)
	}
	s.logger.Info("class updated", "class_id", id, "regenerated", result.Regenerated, "events_patched", result.EventsPatched)
	return updated, result, nil
}

func (s *Service) DeleteClass(ctx context.Context, id int64) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		existing, err := repos.Classes.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}
		if err := repos.Events.DeleteByClass(ctx, id); err != nil {
			return err
		}
		if err := repos.Exceptions.DeleteByClass(ctx, id); err != nil {
			return err
		}
		return repos.Classes.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete class %d: %w", id, err)
	}
	s.logger.Info("class deleted", "class_id", id)
	return nil
}

func (s *Service) GetClass(ctx context.Context, id int64) (*model.Class, error) {
	var c *model.Class
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		var err error
		c, err = loadClass(ctx, repos, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get class %d: %w", id, err)
	}
	return c, nil
}

func (s *Service) ListClasses(ctx context.Context) ([]model.Class, error) {
	var list []model.Class
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		var err error
		list, err = repos.Classes.List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return list, nil
}

// SetException records an override for one class day, replacing any earlier
// override for the same day, and rebuilds the class's events.
func (s *Service) SetException(ctx context.Context, classID int64, in ExceptionInput) (*model.ClassException, error) {
	ex := model.ClassException{
		ClassID:      classID,
		Date:         in.Date,
		Kind:         in.Kind,
		NewStartTime: in.NewStartTime,
		NewEndTime:   in.NewEndTime,
		NewLocation:  in.NewLocation,
		Reason:       in.Reason,
	}
	// Fields that do not apply to the kind are dropped before storing.
	switch ex.Kind {
	case recurrence.KindCancelled:
		ex.NewStartTime, ex.NewEndTime, ex.NewLocation = nil, nil, nil
	case recurrence.KindRescheduled:
		ex.NewLocation = nil
	case recurrence.KindMoved:
		ex.NewStartTime, ex.NewEndTime = nil, nil
	}
	if err := ex.Exception().Validate(); err != nil {
		return nil, invalid(err)
	}

	var saved *model.ClassException
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		c, err := loadClass(ctx, repos, classID)
		if err != nil {
			return err
		}
		if err := recurrence.CheckExceptionDate(c.Rule(), ex.Date); err != nil {
			return invalid(err)
		}

		saved, err = repos.Exceptions.Upsert(ctx, ex)
		if err != nil {
			return err
		}
		_, err = materialize(ctx, repos, *c)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("set exception for class %d: %w", classID, err)
	}

	s.logger.Info("exception saved",
		"class_id", classID,
		"exception_id", saved.ID,
		"date", saved.Date.Format("2006-01-02"),
		"kind", saved.Kind,
	)
	return saved, nil
}

func (s *Service) DeleteException(ctx context.Context, classID, exceptionID int64) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		c, err := loadClass(ctx, repos, classID)
		if err != nil {
			return err
		}
		ex, err := repos.Exceptions.GetByID(ctx, exceptionID)
		if err != nil {
			return err
		}
		if ex == nil || ex.ClassID != classID {
			return ErrNotFound
		}
		if err := repos.Exceptions.Delete(ctx, exceptionID); err != nil {
			return err
		}
		_, err = materialize(ctx, repos, *c)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete exception %d: %w", exceptionID, err)
	}
	s.logger.Info("exception deleted", "class_id", classID, "exception_id", exceptionID)
	return nil
}

func (s *Service) ListExceptions(ctx context.Context, classID int64) ([]model.ClassException, error) {
	var list []model.ClassException
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		if _, err := loadClass(ctx, repos, classID); err != nil {
			return err
		}
		var err error
		list, err = repos.Exceptions.ListByClass(ctx, classID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list exceptions for class %d: %w", classID, err)
	}
	return list, nil
}

// Instances computes the effective instances of a class from its rule and
// exceptions. Stored events are not consulted.
func (s *Service) Instances(ctx context.Context, classID int64) ([]recurrence.Instance, error) {
	var instances []recurrence.Instance
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		c, err := loadClass(ctx, repos, classID)
		if err != nil {
			return err
		}
		instances, err = effectiveInstances(ctx, repos, *c)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("instances for class %d: %w", classID, err)
	}
	return instances, nil
}

// Resync rebuilds the stored events of every class, one transaction per
// class. It keeps going past failures and returns them joined.
func (s *Service) Resync(ctx context.Context) (int, error) {
	classes, err := s.ListClasses(ctx)
	if err != nil {
		return 0, err
	}

	var errs []error
	synced := 0
	for _, c := range classes {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		err := s.tx.WithTx(ctx, func(ctx context.Context, repos store.Repositories) error {
			_, err := materialize(ctx, repos, c)
			return err
		})
		if err != nil {
			s.logger.Error("resync class", "class_id", c.ID, "error", err)
			errs = append(errs, fmt.Errorf("resync class %d: %w", c.ID, err))
			continue
		}
		synced++
	}

	s.logger.Info("resync complete", "classes", len(classes), "synced", synced)
	return synced, errors.Join(errs...)
}

func loadClass(ctx context.Context, repos store.Repositories, id int64) (*model.Class, error) {
	c, err := repos.Classes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

func effectiveInstances(ctx context.Context, repos store.Repositories, c model.Class) ([]recurrence.Instance, error) {
	stored, err := repos.Exceptions.ListByClass(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return recurrence.Reconcile(recurrence.Expand(c.ID, c.Rule()), model.Exceptions(stored)), nil
}

// materialize replaces the stored events of c with its current effective
// instances and returns how many were written.
func materialize(ctx context.Context, repos store.Repositories, c model.Class) (int, error) {
	instances, err := effectiveInstances(ctx, repos, c)
	if err != nil {
		return 0, err
	}
	if err := repos.Events.DeleteByClass(ctx, c.ID); err != nil {
		return 0, err
	}
	events := make([]model.CalendarEvent, 0, len(instances))
	for _, inst := range instances {
		events = append(events, instanceEvent(c, inst))
	}
	if err := repos.Events.CreateMany(ctx, events); err != nil {
		return 0, err
	}
	return len(events), nil
}

func instanceEvent(c model.Class, inst recurrence.Instance) model.CalendarEvent {
	classID := c.ID
	end := inst.End
	var location string
	if inst.Location != nil {
		location = *inst.Location
	}
	return model.CalendarEvent{
		ClassID:     &classID,
		Title:       c.Title,
		Description: c.Description,
		StartTime:   inst.Start,
		EndTime:     &end,
		Location:    location,
		Color:       c.Color,
		Category:    model.CategoryClass,
		Status:      string(inst.Status),
	}
}

func metadata(c model.Class) store.ClassMetadata {
	return store.ClassMetadata{
		Title:       c.Title,
		Description: c.Description,
		Location:    c.Location,
		Color:       c.Color,
	}
}
