package audit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEvent_New(t *testing.T) {
	event := NewEvent("job-1", "reboot", "Rebooting 2 device(s)")

	if event.ID != "job-1" {
		t.Errorf("ID = %q, want job-1", event.ID)
	}
	if event.Kind != "reboot" {
		t.Errorf("Kind = %q, want reboot", event.Kind)
	}
	if event.User == "" {
		t.Error("User should be set")
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestEvent_Chaining(t *testing.T) {
	event := NewEvent("job-1", "reboot", "Rebooting 2 device(s)").
		WithTargets([]string{"10.0.0.1", "10.0.0.2"}).
		WithResult(2, 1, true).
		WithDuration(time.Second)

	if len(event.Targets) != 2 {
		t.Errorf("Targets = %v", event.Targets)
	}
	if event.Total != 2 || event.Completed != 1 {
		t.Errorf("Total/Completed = %d/%d", event.Total, event.Completed)
	}
	if event.Outcome != OutcomeCancelled {
		t.Errorf("Outcome = %q, want %q", event.Outcome, OutcomeCancelled)
	}
	if event.Duration != time.Second {
		t.Errorf("Duration = %v", event.Duration)
	}

	if got := NewEvent("job-2", "scan", "").WithContainer(3).WithResult(5, 5, false); got.Outcome != OutcomeCompleted || got.Container != 3 {
		t.Errorf("scan event = %+v", got)
	}
}

func TestEvent_WithError(t *testing.T) {
	event := NewEvent("job-1", "pool", "").WithError(OutcomeFailed, errors.New("pool template \"x\": resource not found"))
	if event.Outcome != OutcomeFailed {
		t.Errorf("Outcome = %q", event.Outcome)
	}
	if event.Error == "" {
		t.Error("Error should be recorded")
	}

	rejected := NewEvent("job-2", "scan", "").WithError(OutcomeRejected, nil)
	if rejected.Outcome != OutcomeRejected || rejected.Error != "" {
		t.Errorf("rejected event = %+v", rejected)
	}
}

func newTestLogger(t *testing.T, rotation RotationConfig) (*FileLogger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit", "audit.log")
	logger, err := NewFileLogger(path, rotation)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger, path
}

func TestFileLogger_Basic(t *testing.T) {
	logger, path := newTestLogger(t, RotationConfig{})

	event := NewEvent("job-1", "locate", "Locating 1 device(s)").
		WithTargets([]string{"10.0.0.1"}).
		WithResult(1, 1, false)
	if err := logger.Log(event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("log file not created: %v", err)
	}

	events, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].ID != "job-1" || events[0].Targets[0] != "10.0.0.1" {
		t.Errorf("event = %+v", events[0])
	}
}

func TestFileLogger_QueryFilters(t *testing.T) {
	logger, _ := newTestLogger(t, RotationConfig{})

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []*Event{
		{ID: "1", Kind: "scan", User: "ops", Outcome: OutcomeCompleted, Timestamp: base},
		{ID: "2", Kind: "reboot", User: "ops", Outcome: OutcomeCompleted, Targets: []string{"10.0.0.1"}, Timestamp: base.Add(time.Minute)},
		{ID: "3", Kind: "reboot", User: "alice", Outcome: OutcomeCancelled, Targets: []string{"10.0.0.2"}, Timestamp: base.Add(2 * time.Minute)},
		{ID: "4", Kind: "scan", User: "alice", Outcome: OutcomeRejected, Timestamp: base.Add(3 * time.Minute)},
	}
	for _, e := range entries {
		if err := logger.Log(e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"1", "2", "3", "4"}},
		{"kind", Filter{Kind: "reboot"}, []string{"2", "3"}},
		{"user", Filter{User: "alice"}, []string{"3", "4"}},
		{"outcome", Filter{Outcome: OutcomeCancelled}, []string{"3"}},
		{"target", Filter{Target: "10.0.0.1"}, []string{"2"}},
		{"time window", Filter{StartTime: base.Add(30 * time.Second), EndTime: base.Add(150 * time.Second)}, []string{"2", "3"}},
		{"limit keeps newest", Filter{Limit: 2}, []string{"3", "4"}},
		{"offset skips newest", Filter{Offset: 1, Limit: 2}, []string{"2", "3"}},
		{"offset past start", Filter{Offset: 10}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := logger.Query(tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(events) != len(tt.want) {
				t.Fatalf("got %d events, want %v", len(events), tt.want)
			}
			for i, e := range events {
				if e.ID != tt.want[i] {
					t.Errorf("events[%d].ID = %s, want %s", i, e.ID, tt.want[i])
				}
			}
		})
	}
}

func TestFileLogger_SkipsMalformedLines(t *testing.T) {
	logger, path := newTestLogger(t, RotationConfig{})
	if err := logger.Log(NewEvent("good", "scan", "")); err != nil {
		t.Fatal(err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("not json\n")
	f.Close()

	events, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 1 || events[0].ID != "good" {
		t.Errorf("events = %v", events)
	}
}

func TestFileLogger_Rotation(t *testing.T) {
	logger, path := newTestLogger(t, RotationConfig{MaxSize: 1, MaxBackups: 2})

	for i := 0; i < 5; i++ {
		if err := logger.Log(NewEvent("job", "scan", "")); err != nil {
			t.Fatalf("Log %d: %v", i, err)
		}
	}

	backups, err := filepath.Glob(path + ".*")
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 2 {
		t.Errorf("got %d rotated files, want 2: %v", len(backups), backups)
	}

	events, err := logger.Query(Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Errorf("current file holds %d events, want 1", len(events))
	}
}

func TestFileLogger_QueryMissingFile(t *testing.T) {
	logger, path := newTestLogger(t, RotationConfig{})
	os.Remove(path)

	events, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events from missing file", len(events))
	}
}
