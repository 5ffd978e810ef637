package jobs

import (
	"sync"

	"github.com/newtron-network/fleetscan/pkg/events"
	"github.com/newtron-network/fleetscan/pkg/model"
)

// Progress counts completed tasks for one job and emits an event on every
// change. Its lock is held only for one increment.
type Progress struct {
	mu        sync.Mutex
	completed int
	total     int
	label     string
	out       events.Emitter
}

// NewProgress returns a zeroed aggregator for total tasks.
func NewProgress(total int, label string, out events.Emitter) *Progress {
	if out == nil {
		out = events.Discard{}
	}
	return &Progress{total: total, label: label, out: out}
}

// Start emits the initial zero-state event.
func (p *Progress) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out.Progress(p.snapshot())
}

// Increment records one completed task and emits the new state. Completed
// never exceeds total.
func (p *Progress) Increment() model.Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.completed < p.total {
		p.completed++
	}
	s := p.snapshot()
	p.out.Progress(s)
	return s
}

// Snapshot returns the current state without emitting.
func (p *Progress) Snapshot() model.Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

func (p *Progress) snapshot() model.Progress {
	ratio := 1.0
	if p.total > 0 {
		ratio = float64(p.completed) / float64(p.total)
	}
	return model.Progress{
		Completed: p.completed,
		Total:     p.total,
		Ratio:     ratio,
		Label:     p.label,
	}
}
