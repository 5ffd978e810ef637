package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/newtron-network/fleetscan/pkg/audit"
	"github.com/newtron-network/fleetscan/pkg/events"
	"github.com/newtron-network/fleetscan/pkg/metrics"
	"github.com/newtron-network/fleetscan/pkg/model"
	"github.com/newtron-network/fleetscan/pkg/util"
)

// Outcome labels recorded for finished jobs.
const (
	OutcomeCompleted = audit.OutcomeCompleted
	OutcomeCancelled = audit.OutcomeCancelled
)

// Handle is a running job.
type Handle struct {
	ID    string
	Kind  string
	Label string

	token   *Token
	started time.Time
	done    chan struct{}
	result  Result

	// Set once preparation succeeds; the handle is visible through
	// Manager.Active before that.
	progress atomic.Pointer[Progress]
}

// Done is closed when the job has settled.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the job settles and returns its result.
func (h *Handle) Wait() Result {
	<-h.done
	return h.result
}

// Progress returns the job's current progress.
func (h *Handle) Progress() model.Progress {
	p := h.progress.Load()
	if p == nil {
		return model.Progress{Label: h.Label}
	}
	return p.Snapshot()
}

// Manager admits one job at a time. A submission while a job is active is
// rejected, not queued.
type Manager struct {
	env     *Env
	runner  *Runner
	out     events.Emitter
	metrics *metrics.Metrics
	audit   audit.Logger

	mu     sync.Mutex
	active *Handle
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMetrics records job and device counters.
func WithMetrics(m *metrics.Metrics) ManagerOption {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithAudit records one audit entry per submission, rejected ones included.
func WithAudit(l audit.Logger) ManagerOption {
	return func(mgr *Manager) { mgr.audit = l }
}

// WithRunner replaces the default uncapped runner.
func WithRunner(r *Runner) ManagerOption {
	return func(mgr *Manager) { mgr.runner = r }
}

// NewManager returns a manager publishing events to out.
func NewManager(env *Env, out events.Emitter, opts ...ManagerOption) *Manager {
	if out == nil {
		out = events.Discard{}
	}
	m := &Manager{env: env, runner: NewRunner(0), out: out}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit prepares job and starts it in the background. It fails with
// util.ErrJobActive while another job runs, or with the preparation error
// before any device is contacted. Per-device outcomes are reported only
// through events.
func (m *Manager) Submit(ctx context.Context, job Job) (*Handle, error) {
	h := &Handle{
		ID:      uuid.NewString(),
		Kind:    job.Kind(),
		Label:   job.Label(),
		token:   NewToken(context.WithoutCancel(ctx)),
		started: time.Now(),
		done:    make(chan struct{}),
	}

	m.mu.Lock()
	if m.active != nil {
		m.mu.Unlock()
		if m.metrics != nil {
			m.metrics.JobsRejected.Inc()
		}
		m.record(h, job, func(e *audit.Event) { e.WithError(audit.OutcomeRejected, util.ErrJobActive) })
		return nil, util.ErrJobActive
	}
	m.active = h
	m.mu.Unlock()

	log := util.WithJob(h.ID, h.Kind)
	tasks, err := Prepare(ctx, job, m.env)
	if err != nil {
		log.Warnf("preparation failed: %v", err)
		m.record(h, job, func(e *audit.Event) { e.WithError(audit.OutcomeFailed, err) })
		m.release(h)
		h.token.release()
		close(h.done)
		return nil, err
	}

	out := m.out
	if m.metrics != nil {
		m.metrics.JobsStarted.WithLabelValues(h.Kind).Inc()
		out = events.Multi{m.out, m.metrics.Emitter(h.Kind)}
	}
	progress := NewProgress(len(tasks), h.Label, out)
	h.progress.Store(progress)
	log.Infof("%s: %d task(s)", h.Label, len(tasks))

	go func() {
		res := m.runner.run(h.token, tasks, progress, out)
		h.result = res
		outcome := OutcomeCompleted
		if res.Cancelled {
			outcome = OutcomeCancelled
		}
		log.Infof("%s: %d/%d in %s", outcome, res.Completed, res.Total,
			time.Since(h.started).Round(time.Millisecond))
		if m.metrics != nil {
			m.metrics.JobsFinished.WithLabelValues(h.Kind, outcome).Inc()
		}
		m.record(h, job, func(e *audit.Event) { e.WithResult(res.Total, res.Completed, res.Cancelled) })
		m.release(h)
		h.token.release()
		close(h.done)
	}()
	return h, nil
}

// Run submits job and waits for it to settle.
func (m *Manager) Run(ctx context.Context, job Job) (Result, error) {
	h, err := m.Submit(ctx, job)
	if err != nil {
		return Result{}, err
	}
	return h.Wait(), nil
}

// Cancel signals the active job. It reports whether a signal was sent;
// cancelling with no active job, or twice, is a no-op.
func (m *Manager) Cancel() bool {
	m.mu.Lock()
	h := m.active
	m.mu.Unlock()
	if h == nil {
		return false
	}
	if h.token.Cancel() {
		util.WithJob(h.ID, h.Kind).Info("cancellation requested")
		return true
	}
	return false
}

// Active returns the running job, or nil.
func (m *Manager) Active() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *Manager) release(h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == h {
		m.active = nil
	}
}

func (m *Manager) record(h *Handle, job Job, outcome func(e *audit.Event)) {
	if m.audit == nil {
		return
	}
	e := audit.NewEvent(h.ID, h.Kind, h.Label).WithDuration(time.Since(h.started))
	if scan, ok := job.(Scan); ok {
		e.WithContainer(scan.ContainerID)
	} else {
		e.WithTargets(jobAddresses(job))
	}
	outcome(e)
	if err := m.audit.Log(e); err != nil {
		util.WithJob(h.ID, h.Kind).Warnf("audit: %v", err)
	}
}

func jobAddresses(job Job) []string {
	switch j := job.(type) {
	case Reboot:
		return j.Addresses
	case Sleep:
		return j.Addresses
	case Locate:
		return j.Addresses
	case SetPool:
		return j.Addresses
	case SetProfile:
		return j.Addresses
	case FetchLogs:
		return j.Addresses
	}
	return nil
}
