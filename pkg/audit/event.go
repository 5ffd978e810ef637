// Package audit records one entry per job submission: who ran what against
// which devices, and how it ended.
package audit

import (
	"os/user"
	"time"
)

// Outcomes recorded for a job.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeRejected  = "rejected" // another job was active
	OutcomeFailed    = "failed"   // preparation error, no device contacted
)

// Event is one audited job.
type Event struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	User      string        `json:"user"`
	Kind      string        `json:"kind"`
	Label     string        `json:"label"`
	Container int64         `json:"container,omitempty"`
	Targets   []string      `json:"targets,omitempty"`
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	Outcome   string        `json:"outcome"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Filter defines criteria for querying audit events
type Filter struct {
	Kind      string
	User      string
	Outcome   string
	Target    string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// NewEvent creates an event for job id of the given kind, attributed to
// the current OS user.
func NewEvent(id, kind, label string) *Event {
	return &Event{
		ID:        id,
		Timestamp: time.Now(),
		User:      currentUser(),
		Kind:      kind,
		Label:     label,
	}
}

// WithTargets sets the device addresses the job addressed
func (e *Event) WithTargets(addrs []string) *Event {
	e.Targets = addrs
	return e
}

// WithContainer sets the scanned container id
func (e *Event) WithContainer(id int64) *Event {
	e.Container = id
	return e
}

// WithResult records task counts and the outcome
func (e *Event) WithResult(total, completed int, cancelled bool) *Event {
	e.Total = total
	e.Completed = completed
	e.Outcome = OutcomeCompleted
	if cancelled {
		e.Outcome = OutcomeCancelled
	}
	return e
}

// WithError marks the event as failed with outcome
func (e *Event) WithError(outcome string, err error) *Event {
	e.Outcome = outcome
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the job duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}
