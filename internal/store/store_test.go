package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dukerupert/classplan/internal/database"
	"github.com/dukerupert/classplan/internal/model"
	"github.com/dukerupert/classplan/internal/recurrence"
)

var testLoc = time.UTC

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, testLoc)
}

func sampleClass() model.Class {
	return model.Class{
		Title:         "Algorithms",
		Description:   "CS 301",
		Instructor:    "Dr. Hopper",
		Location:      "Room 101",
		Color:         "#4287f5",
		Weekdays:      recurrence.NewWeekdaySet(time.Monday, time.Wednesday),
		StartTime:     recurrence.TimeOfDay{Hour: 9},
		EndTime:       recurrence.TimeOfDay{Hour: 10},
		SemesterStart: date(2024, 1, 1),
		SemesterEnd:   date(2024, 1, 31),
	}
}

func createClass(t *testing.T, db *sql.DB) *model.Class {
	t.Helper()
	c, err := NewClassStore(db, testLoc).Create(context.Background(), sampleClass())
	if err != nil {
		t.Fatalf("create class: %v", err)
	}
	return c
}

func TestWithTxCommits(t *testing.T) {
	db := setupTestDB(t)
	tm := NewTxManager(db, testLoc)
	ctx := context.Background()

	var id int64
	err := tm.WithTx(ctx, func(ctx context.Context, repos Repositories) error {
		c, err := repos.Classes.Create(ctx, sampleClass())
		if err != nil {
			return err
		}
		id = c.ID
		return nil
	})
	if err != nil {
		t.Fatalf("with tx: %v", err)
	}

	got, err := NewClassStore(db, testLoc).GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get class: %v", err)
	}
	if got == nil {
		t.Fatal("class should exist after commit")
	}
}

func TestWithTxRollsBack(t *testing.T) {
	db := setupTestDB(t)
	tm := NewTxManager(db, testLoc)
	ctx := context.Background()

	var id int64
	err := tm.WithTx(ctx, func(ctx context.Context, repos Repositories) error {
		c, err := repos.Classes.Create(ctx, sampleClass())
		if err != nil {
			return err
		}
		id = c.ID
		// end before start violates the table check and aborts the batch
		bad := sampleClass()
		bad.StartTime, bad.EndTime = bad.EndTime, bad.StartTime
		_, err = repos.Classes.Create(ctx, bad)
		return err
	})
	if err == nil {
		t.Fatal("expected error from invalid class")
	}

	got, err := NewClassStore(db, testLoc).GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get class: %v", err)
	}
	if got != nil {
		t.Error("first class should have been rolled back")
	}
}
