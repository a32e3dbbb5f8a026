package model

import "time"

const (
	CategoryClass      = "class"
	CategoryExam       = "exam"
	CategoryAssignment = "assignment"
	CategoryStudy      = "study"
	CategoryPersonal   = "personal"
)

// CalendarEvent is a dated block on the calendar. Class instances are
// materialized here with ClassID set; everything else is a one-off entry.
type CalendarEvent struct {
	ID          int64      `json:"id"`
	ClassID     *int64     `json:"class_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	AllDay      bool       `json:"all_day"`
	Location    string     `json:"location"`
	Color       string     `json:"color"`
	Category    string     `json:"category"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
