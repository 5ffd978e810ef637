// Package events delivers job results to the presentation side: per-device
// result events and job progress events.
package events

import (
	"sync"

	"github.com/newtron-network/fleetscan/pkg/model"
)

// Emitter receives job events. Implementations must be safe for concurrent
// use; events for different devices arrive in no particular order.
type Emitter interface {
	Miner(ev model.MinerEvent)
	Progress(p model.Progress)
}

// Multi fans every event out to each emitter in order.
type Multi []Emitter

func (m Multi) Miner(ev model.MinerEvent) {
	for _, e := range m {
		e.Miner(ev)
	}
}

func (m Multi) Progress(p model.Progress) {
	for _, e := range m {
		e.Progress(p)
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Miner(model.MinerEvent)  {}
func (Discard) Progress(model.Progress) {}

// Recorder keeps every event in arrival order.
type Recorder struct {
	mu       sync.Mutex
	miners   []model.MinerEvent
	progress []model.Progress
}

func (r *Recorder) Miner(ev model.MinerEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.miners = append(r.miners, ev)
}

func (r *Recorder) Progress(p model.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

// Miners returns a copy of the recorded result events.
func (r *Recorder) Miners() []model.MinerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.MinerEvent(nil), r.miners...)
}

// ProgressEvents returns a copy of the recorded progress events.
func (r *Recorder) ProgressEvents() []model.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Progress(nil), r.progress...)
}

// LastProgress returns the most recent progress event, if any.
func (r *Recorder) LastProgress() (model.Progress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.progress) == 0 {
		return model.Progress{}, false
	}
	return r.progress[len(r.progress)-1], true
}

// Observation returns the last recorded observation for address.
func (r *Recorder) Observation(address string) *model.Observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.miners) - 1; i >= 0; i-- {
		if obs := r.miners[i].Observation; obs != nil && obs.IP == address {
			return obs
		}
	}
	return nil
}
