package jobs

import (
	"fmt"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/newtron-network/fleetscan/pkg/events"
	"github.com/newtron-network/fleetscan/pkg/model"
	"github.com/newtron-network/fleetscan/pkg/util"
)

// Result summarises a finished run.
type Result struct {
	Total     int
	Completed int
	Cancelled bool
}

// Runner executes tasks concurrently. Every task gets its own goroutine;
// an optional cap bounds how many device sessions are in flight at once.
type Runner struct {
	sem *semaphore.Weighted
}

// NewRunner returns a runner allowing at most maxInFlight concurrent
// tasks. Zero or less means one goroutine per task with no cap.
func NewRunner(maxInFlight int) *Runner {
	r := &Runner{}
	if maxInFlight > 0 {
		r.sem = semaphore.NewWeighted(int64(maxInFlight))
	}
	return r
}

// Run launches every task and returns once each has either completed or
// been abandoned because token fired. Completed tasks increment progress;
// abandoned ones do not and are never retried. Device calls already in
// flight are not interrupted, but their late events are dropped.
func (r *Runner) Run(token *Token, tasks []Task, label string, out events.Emitter) Result {
	if out == nil {
		out = events.Discard{}
	}
	progress := NewProgress(len(tasks), label, out)
	return r.run(token, tasks, progress, out)
}

func (r *Runner) run(token *Token, tasks []Task, progress *Progress, out events.Emitter) Result {
	gated := &gatedEmitter{token: token, out: out}
	progress.Start()

	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			if r.runTask(token, t, gated) {
				gated.pass(func() { progress.Increment() })
			}
		}(t)
	}
	wg.Wait()
	gated.close()

	final := progress.Snapshot()
	return Result{
		Total:     final.Total,
		Completed: final.Completed,
		Cancelled: token.Cancelled(),
	}
}

// runTask races t against the token. It reports whether t completed first.
func (r *Runner) runTask(token *Token, t Task, out events.Emitter) bool {
	if token.Cancelled() {
		return false
	}
	if r.sem != nil {
		if err := r.sem.Acquire(token.Context(), 1); err != nil {
			return false
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if r.sem != nil {
			defer r.sem.Release(1)
		}
		defer func() {
			if p := recover(); p != nil {
				util.WithDevice(t.Address()).Errorf("task panicked: %v\n%s", p, debug.Stack())
				obs := model.NewObservation(t.Address())
				obs.AddError(fmt.Sprintf("Internal error: %v", p))
				out.Miner(model.NewMinerEvent(t.Target, obs))
			}
		}()
		t.run(token.Context(), out)
	}()

	select {
	case <-done:
		// Both cases may be ready at once; a task that lost to the
		// token is not counted.
		return !token.Cancelled()
	case <-token.Done():
		util.WithDevice(t.Address()).Debug("abandoned on cancellation")
		return false
	}
}

// gatedEmitter forwards result events until the token fires or the run
// returns. An emit that passed the check before Cancel may still be
// delivered; close waits for it, so nothing is delivered once Run returns.
type gatedEmitter struct {
	token *Token
	out   events.Emitter

	mu     sync.RWMutex
	closed bool
}

// pass runs fn under the gate and reports whether it ran.
func (g *gatedEmitter) pass(fn func()) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed || g.token.Cancelled() {
		return false
	}
	fn()
	return true
}

func (g *gatedEmitter) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

func (g *gatedEmitter) Miner(ev model.MinerEvent) {
	g.pass(func() { g.out.Miner(ev) })
}

func (g *gatedEmitter) Progress(p model.Progress) {
	g.out.Progress(p)
}
