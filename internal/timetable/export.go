package timetable

import (
	"context"
	"fmt"

	"github.com/dukerupert/classplan/internal/model"
	"github.com/dukerupert/classplan/internal/store"
)

// Schedule is a class with the exceptions stored against it.
type Schedule struct {
	Class      model.Class
	Exceptions []model.ClassException
}

// ClassSchedule reads one class and its exceptions in a single transaction.
func (s *Service) ClassSchedule(ctx context.Context, classID int64) (*Schedule, error) {
	var sched *Schedule
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		c, err := loadClass(ctx, repos, classID)
		if err != nil {
			return err
		}
		exceptions, err := repos.Exceptions.ListByClass(ctx, classID)
		if err != nil {
			return err
		}
		sched = &Schedule{Class: *c, Exceptions: exceptions}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("schedule for class %d: %w", classID, err)
	}
	return sched, nil
}

// Timetable returns every class schedule together with all one-off events,
// read from one snapshot.
func (s *Service) Timetable(ctx context.Context) ([]Schedule, []model.CalendarEvent, error) {
	var (
		schedules []Schedule
		events    []model.CalendarEvent
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		classes, err := repos.Classes.List(ctx)
		if err != nil {
			return err
		}
		for _, c := range classes {
			exceptions, err := repos.Exceptions.ListByClass(ctx, c.ID)
			if err != nil {
				return err
			}
			schedules = append(schedules, Schedule{Class: c, Exceptions: exceptions})
		}
		events, err = repos.Events.ListStandalone(ctx)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("read timetable: %w", err)
	}
	return schedules, events, nil
}
