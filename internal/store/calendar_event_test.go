package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/classplan/internal/model"
)

func classEvent(classID int64, day time.Time) model.CalendarEvent {
	end := day.Add(10 * time.Hour)
	return model.CalendarEvent{
		ClassID:   &classID,
		Title:     "Algorithms",
		StartTime: day.Add(9 * time.Hour),
		EndTime:   &end,
		Location:  "Room 101",
		Color:     "#4287f5",
		Category:  model.CategoryClass,
		Status:    "scheduled",
	}
}

func TestEventCreateAndGetByID(t *testing.T) {
	db := setupTestDB(t)
	s := NewEventStore(db, testLoc)
	ctx := context.Background()

	start := time.Date(2024, 1, 5, 10, 0, 0, 0, testLoc)
	end := time.Date(2024, 1, 5, 11, 0, 0, 0, testLoc)

	event, err := s.Create(ctx, model.CalendarEvent{
		Title:       "Study group",
		Description: "Chapter 4",
		StartTime:   start,
		EndTime:     &end,
		Location:    "Library",
		Category:    model.CategoryStudy,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if event.Title != "Study group" {
		t.Errorf("title = %q, want %q", event.Title, "Study group")
	}
	if !event.StartTime.Equal(start) {
		t.Errorf("start = %v, want %v", event.StartTime, start)
	}
	if event.EndTime == nil || !event.EndTime.Equal(end) {
		t.Errorf("end = %v, want %v", event.EndTime, end)
	}
	if event.ClassID != nil {
		t.Errorf("class_id should be nil, got %v", *event.ClassID)
	}
	if event.Status != "scheduled" {
		t.Errorf("status = %q, want scheduled", event.Status)
	}

	got, err := s.GetByID(ctx, event.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Category != model.CategoryStudy {
		t.Errorf("category = %q, want %q", got.Category, model.CategoryStudy)
	}
}

func TestEventGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	s := NewEventStore(db, testLoc)

	got, err := s.GetByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent event")
	}
}

func TestEventDefaultsCategory(t *testing.T) {
	db := setupTestDB(t)
	s := NewEventStore(db, testLoc)

	e, err := s.Create(context.Background(), model.CalendarEvent{
		Title:     "Dentist",
		StartTime: time.Date(2024, 1, 5, 10, 0, 0, 0, testLoc),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.Category != model.CategoryPersonal {
		t.Errorf("category = %q, want personal", e.Category)
	}
	if e.EndTime != nil {
		t.Errorf("end_time = %v, want nil", e.EndTime)
	}
}

func TestEventListByDateRange(t *testing.T) {
	db := setupTestDB(t)
	s := NewEventStore(db, testLoc)
	ctx := context.Background()

	at := func(day, hour int) time.Time { return time.Date(2024, 1, day, hour, 0, 0, 0, testLoc) }
	ptr := func(t time.Time) *time.Time { return &t }

	seed := []model.CalendarEvent{
		{Title: "before", StartTime: at(4, 9), EndTime: ptr(at(4, 10))},
		{Title: "inside", StartTime: at(5, 9), EndTime: ptr(at(5, 10))},
		{Title: "spanning", StartTime: at(4, 22), EndTime: ptr(at(5, 2))},
		{Title: "point", StartTime: at(5, 15)},
		{Title: "allday", StartTime: at(5, 0), EndTime: ptr(at(6, 0)), AllDay: true},
		{Title: "after", StartTime: at(6, 0), EndTime: ptr(at(6, 1))},
		{Title: "ends-at-start", StartTime: at(4, 23), EndTime: ptr(at(5, 0))},
	}
	if err := s.CreateMany(ctx, seed); err != nil {
		t.Fatalf("create many: %v", err)
	}

	list, err := s.ListByDateRange(ctx, at(5, 0), at(6, 0))
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	want := []string{"allday", "spanning", "inside", "point"}
	if len(list) != len(want) {
		var got []string
		for _, e := range list {
			got = append(got, e.Title)
		}
		t.Fatalf("titles = %v, want %v", got, want)
	}
	for i, w := range want {
		if list[i].Title != w {
			t.Errorf("list[%d] = %q, want %q", i, list[i].Title, w)
		}
	}
}

func TestEventUpdateClassMetadata(t *testing.T) {
	db := setupTestDB(t)
	s := NewEventStore(db, testLoc)
	ctx := context.Background()
	c := createClass(t, db)

	moved := classEvent(c.ID, date(2024, 1, 3))
	moved.Location = "Lab 3"
	moved.Status = "relocated"
	if err := s.CreateMany(ctx, []model.CalendarEvent{classEvent(c.ID, date(2024, 1, 1)), moved}); err != nil {
		t.Fatalf("create many: %v", err)
	}

	n, err := s.UpdateClassMetadata(ctx, c.ID, ClassMetadata{
		Title:    "Algorithms II",
		Location: "Room 205",
		Color:    "#ff0000",
	})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if n != 2 {
		t.Errorf("rows = %d, want 2", n)
	}

	list, err := s.ListByClass(ctx, c.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	for _, e := range list {
		if e.Title != "Algorithms II" {
			t.Errorf("title = %q, want Algorithms II", e.Title)
		}
		if e.Color != "#ff0000" {
			t.Errorf("color = %q", e.Color)
		}
	}
	if list[0].Location != "Room 205" {
		t.Errorf("scheduled location = %q, want Room 205", list[0].Location)
	}
	if list[1].Location != "Lab 3" {
		t.Errorf("relocated location = %q, want Lab 3", list[1].Location)
	}
}

func TestEventUpdate(t *testing.T) {
	db := setupTestDB(t)
	s := NewEventStore(db, testLoc)
	ctx := context.Background()

	e, err := s.Create(ctx, model.CalendarEvent{
		Title:     "Exam",
		StartTime: time.Date(2024, 1, 10, 9, 0, 0, 0, testLoc),
		Category:  model.CategoryExam,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	e.Title = "Midterm"
	e.AllDay = true
	got, err := s.Update(ctx, *e)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != "Midterm" || !got.AllDay {
		t.Errorf("got %q all_day=%v, want Midterm all_day=true", got.Title, got.AllDay)
	}
}

func TestEventDeleteByClass(t *testing.T) {
	db := setupTestDB(t)
	s := NewEventStore(db, testLoc)
	ctx := context.Background()
	c := createClass(t, db)

	if err := s.CreateMany(ctx, []model.CalendarEvent{
		classEvent(c.ID, date(2024, 1, 1)),
		classEvent(c.ID, date(2024, 1, 3)),
		{Title: "Personal", StartTime: date(2024, 1, 2)},
	}); err != nil {
		t.Fatalf("create many: %v", err)
	}

	if err := s.DeleteByClass(ctx, c.ID); err != nil {
		t.Fatalf("delete by class: %v", err)
	}

	list, err := s.ListByDateRange(ctx, date(2024, 1, 1), date(2024, 2, 1))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Personal" {
		t.Errorf("remaining = %+v, want only the personal event", list)
	}
}

func TestEventListStandalone(t *testing.T) {
	db := setupTestDB(t)
	s := NewEventStore(db, testLoc)
	ctx := context.Background()
	c := createClass(t, db)

	if err := s.CreateMany(ctx, []model.CalendarEvent{
		{Title: "Final exam", StartTime: date(2024, 5, 10), AllDay: true, Category: model.CategoryExam},
		classEvent(c.ID, date(2024, 1, 1)),
		{Title: "Essay due", StartTime: date(2024, 2, 1).Add(23 * time.Hour), Category: model.CategoryAssignment},
	}); err != nil {
		t.Fatalf("create many: %v", err)
	}

	list, err := s.ListStandalone(ctx)
	if err != nil {
		t.Fatalf("list standalone: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Title != "Essay due" || list[1].Title != "Final exam" {
		t.Errorf("order = %q, %q", list[0].Title, list[1].Title)
	}
}
