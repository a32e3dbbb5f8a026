package handler

import (
	"fmt"
	"net/http"
	"slices"
	"testing"
)

type instanceJSON struct {
	Date     string  `json:"date"`
	Start    string  `json:"start"`
	Location *string `json:"location"`
	Status   string  `json:"status"`
}

func TestClassCreateAndGet(t *testing.T) {
	e := setupTestEnv(t)
	id := createClass(t, e)

	rec := e.do(t, http.MethodGet, fmt.Sprintf("/api/classes/%d", id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[map[string]any](t, rec)
	if got["title"] != "Algorithms" || got["start_time"] != "09:00" {
		t.Errorf("class = %v", got)
	}

	list := decode[[]map[string]any](t, e.do(t, http.MethodGet, "/api/classes", nil))
	if len(list) != 1 {
		t.Errorf("list len = %d, want 1", len(list))
	}

	if types := e.hub.types(); !slices.Equal(types, []string{"class_created"}) {
		t.Errorf("broadcasts = %v", types)
	}
}

func TestClassListEmpty(t *testing.T) {
	e := setupTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/classes", nil)
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestClassCreateValidation(t *testing.T) {
	e := setupTestEnv(t)

	tests := []struct {
		name  string
		edit  func(map[string]any)
		field string
	}{
		{"blank title", func(b map[string]any) { b["title"] = "  " }, "title"},
		{"no weekdays", func(b map[string]any) { b["weekdays"] = []int{} }, "weekdays"},
		{"weekday out of range", func(b map[string]any) { b["weekdays"] = []int{7} }, "weekdays[0]"},
		{"bad time", func(b map[string]any) { b["start_time"] = "9am" }, "start_time"},
		{"end before start", func(b map[string]any) { b["end_time"] = "08:00" }, "end_time"},
		{"semester inverted", func(b map[string]any) { b["semester_end"] = "2023-12-01" }, "semester_end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := classBody()
			tt.edit(body)
			rec := e.do(t, http.MethodPost, "/api/classes", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
			}
			resp := decode[validationResponse](t, rec)
			if resp.Error != "validation failed" {
				t.Errorf("error = %q", resp.Error)
			}
			if _, ok := resp.Fields[tt.field]; !ok {
				t.Errorf("fields = %v, want %q", resp.Fields, tt.field)
			}
		})
	}
}

func TestClassNotFound(t *testing.T) {
	e := setupTestEnv(t)

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/classes/99", nil},
		{http.MethodPut, "/api/classes/99", classBody()},
		{http.MethodDelete, "/api/classes/99", nil},
		{http.MethodGet, "/api/classes/99/instances", nil},
		{http.MethodGet, "/api/classes/99/exceptions", nil},
		{http.MethodPost, "/api/classes/99/exceptions", map[string]any{"date": "2024-01-10", "kind": "cancelled"}},
	}
	for _, tt := range tests {
		rec := e.do(t, tt.method, tt.path, tt.body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s status = %d, want 404", tt.method, tt.path, rec.Code)
			continue
		}
		if got := decode[map[string]string](t, rec)["error"]; got != "class not found" {
			t.Errorf("%s %s error = %q", tt.method, tt.path, got)
		}
	}
}

func TestClassUpdateMetadataAndSchedule(t *testing.T) {
	e := setupTestEnv(t)
	id := createClass(t, e)
	path := fmt.Sprintf("/api/classes/%d", id)

	body := classBody()
	body["location"] = "Room 202"
	rec := e.do(t, http.MethodPut, path, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Class         map[string]any `json:"class"`
		Regenerated   bool           `json:"regenerated"`
		EventsPatched int            `json:"events_patched"`
	}](t, rec)
	if resp.Regenerated || resp.EventsPatched != 10 {
		t.Errorf("metadata update = %+v", resp)
	}
	if resp.Class["location"] != "Room 202" {
		t.Errorf("location = %v", resp.Class["location"])
	}

	// Wednesday 2024-01-10 stops being a class day once the class moves to
	// Tuesday/Thursday.
	e.do(t, http.MethodPost, path+"/exceptions", map[string]any{"date": "2024-01-10", "kind": "cancelled"})

	body["weekdays"] = []int{2, 4}
	rec = e.do(t, http.MethodPut, path, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	sched := decode[struct {
		Regenerated      bool `json:"regenerated"`
		OrphansDiscarded int  `json:"orphans_discarded"`
	}](t, rec)
	if !sched.Regenerated || sched.OrphansDiscarded != 1 {
		t.Errorf("schedule update = %+v", sched)
	}

	want := []string{"class_created", "class_updated", "class_exception_created", "class_regenerated"}
	if types := e.hub.types(); !slices.Equal(types, want) {
		t.Errorf("broadcasts = %v, want %v", types, want)
	}
}

func TestClassDelete(t *testing.T) {
	e := setupTestEnv(t)
	id := createClass(t, e)
	path := fmt.Sprintf("/api/classes/%d", id)

	if rec := e.do(t, http.MethodDelete, path, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, path, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestExceptionLifecycle(t *testing.T) {
	e := setupTestEnv(t)
	id := createClass(t, e)
	base := fmt.Sprintf("/api/classes/%d", id)

	rec := e.do(t, http.MethodPost, base+"/exceptions", map[string]any{
		"date":           "2024-01-10",
		"kind":           "rescheduled",
		"new_start_time": "14:00",
		"new_end_time":   "15:30",
		"reason":         "Faculty meeting",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	ex := decode[struct {
		ID   int64  `json:"id"`
		Kind string `json:"kind"`
	}](t, rec)
	if ex.Kind != "rescheduled" {
		t.Errorf("kind = %q", ex.Kind)
	}

	instances := decode[[]instanceJSON](t, e.do(t, http.MethodGet, base+"/instances", nil))
	if len(instances) != 10 {
		t.Fatalf("instances = %d, want 10", len(instances))
	}
	var found bool
	for _, inst := range instances {
		if inst.Status == "rescheduled" {
			found = true
			if inst.Start[:16] != "2024-01-10T14:00" {
				t.Errorf("rescheduled start = %s", inst.Start)
			}
		}
	}
	if !found {
		t.Error("no rescheduled instance")
	}

	list := decode[[]map[string]any](t, e.do(t, http.MethodGet, base+"/exceptions", nil))
	if len(list) != 1 {
		t.Fatalf("exceptions = %d, want 1", len(list))
	}

	rec = e.do(t, http.MethodDelete, fmt.Sprintf("%s/exceptions/%d", base, ex.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = e.do(t, http.MethodDelete, fmt.Sprintf("%s/exceptions/%d", base, ex.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
	if got := decode[map[string]string](t, rec)["error"]; got != "exception not found" {
		t.Errorf("error = %q", got)
	}
}

func TestExceptionValidation(t *testing.T) {
	e := setupTestEnv(t)
	id := createClass(t, e)
	path := fmt.Sprintf("/api/classes/%d/exceptions", id)

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"unknown kind", map[string]any{"date": "2024-01-10", "kind": "postponed"}, "kind"},
		{"reschedule without times", map[string]any{"date": "2024-01-10", "kind": "rescheduled"}, "new_start_time"},
		{"move without room", map[string]any{"date": "2024-01-10", "kind": "moved", "new_location": " "}, "new_location"},
		{"not a class day", map[string]any{"date": "2024-01-09", "kind": "cancelled"}, "date"},
		{"outside semester", map[string]any{"date": "2024-02-05", "kind": "cancelled"}, "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
			}
			resp := decode[validationResponse](t, rec)
			if _, ok := resp.Fields[tt.field]; !ok {
				t.Errorf("fields = %v, want %q", resp.Fields, tt.field)
			}
		})
	}
}
