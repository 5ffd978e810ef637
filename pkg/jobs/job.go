// Package jobs turns fleet-wide operations into per-device tasks and runs
// them concurrently with progress reporting and cancellation.
package jobs

import (
	"context"
	"fmt"

	"github.com/newtron-network/fleetscan/pkg/credential"
	"github.com/newtron-network/fleetscan/pkg/device"
	"github.com/newtron-network/fleetscan/pkg/events"
	"github.com/newtron-network/fleetscan/pkg/health"
	"github.com/newtron-network/fleetscan/pkg/model"
)

// Job kinds, used for labels, logs and metrics.
const (
	KindScan       = "scan"
	KindReboot     = "reboot"
	KindSleep      = "sleep"
	KindLocate     = "locate"
	KindSetPool    = "pool"
	KindSetProfile = "profile"
	KindFetchLogs  = "logs"
)

// Job is one fleet-wide operation. The set of variants is closed.
type Job interface {
	Kind() string
	Label() string
	isJob()
}

// Scan reads every device in a container.
type Scan struct {
	ContainerID int64
}

// Reboot restarts the listed devices.
type Reboot struct {
	Addresses []string
}

// Sleep puts the listed devices to sleep, or wakes them.
type Sleep struct {
	Addresses []string
	Enabled   bool
}

// Locate toggles the locator light of the listed devices.
type Locate struct {
	Addresses []string
	Enabled   bool
}

// SetPool applies a named pool template to the listed devices.
type SetPool struct {
	Addresses []string
	Template  string
}

// SetProfile changes the performance profile of the listed devices.
type SetProfile struct {
	Addresses []string
	Profile   string
}

// FetchLogs downloads each device's log into Dir as <mac>.log.
type FetchLogs struct {
	Addresses []string
	Dir       string
}

func (Scan) isJob()       {}
func (Reboot) isJob()     {}
func (Sleep) isJob()      {}
func (Locate) isJob()     {}
func (SetPool) isJob()    {}
func (SetProfile) isJob() {}
func (FetchLogs) isJob()  {}

func (Scan) Kind() string       { return KindScan }
func (Reboot) Kind() string     { return KindReboot }
func (Sleep) Kind() string      { return KindSleep }
func (Locate) Kind() string     { return KindLocate }
func (SetPool) Kind() string    { return KindSetPool }
func (SetProfile) Kind() string { return KindSetProfile }
func (FetchLogs) Kind() string  { return KindFetchLogs }

func (j Scan) Label() string { return fmt.Sprintf("Scanning container %d", j.ContainerID) }
func (j Reboot) Label() string {
	return fmt.Sprintf("Rebooting %d device(s)", len(j.Addresses))
}
func (j Sleep) Label() string {
	if j.Enabled {
		return fmt.Sprintf("Sleeping %d device(s)", len(j.Addresses))
	}
	return fmt.Sprintf("Waking %d device(s)", len(j.Addresses))
}
func (j Locate) Label() string {
	if j.Enabled {
		return fmt.Sprintf("Locating %d device(s)", len(j.Addresses))
	}
	return fmt.Sprintf("Clearing locate on %d device(s)", len(j.Addresses))
}
func (j SetPool) Label() string {
	return fmt.Sprintf("Applying pool %q to %d device(s)", j.Template, len(j.Addresses))
}
func (j SetProfile) Label() string {
	return fmt.Sprintf("Setting profile %q on %d device(s)", j.Profile, len(j.Addresses))
}
func (j FetchLogs) Label() string {
	return fmt.Sprintf("Fetching logs from %d device(s)", len(j.Addresses))
}

// Topology resolves containers and devices.
type Topology interface {
	GetContainer(ctx context.Context, id int64) (*model.Container, error)
	FindDevice(ctx context.Context, ip string) (model.Placement, error)
}

// PoolTemplates looks up named pool templates.
type PoolTemplates interface {
	GetPoolTemplate(ctx context.Context, name string) (model.PoolTemplate, error)
}

// CredentialSource loads the vendor credential set.
type CredentialSource interface {
	LoadCredentials(ctx context.Context) (credential.Set, error)
}

// Env holds the collaborators a job needs to prepare its tasks. It is
// shared by every job; tasks keep references to the client, never copies.
type Env struct {
	Topology    Topology
	Pools       PoolTemplates
	Credentials CredentialSource
	Client      device.Client
	Classifier  health.Classifier
	Errors      *health.ErrorTable
	ErrorRetry  RetryPolicy
}

// Task is the resolved work for one device. It reports failures only
// through the device's observation.
type Task struct {
	Target model.Placement
	run    func(ctx context.Context, out events.Emitter)
}

// Address returns the task's device address.
func (t Task) Address() string {
	return t.Target.Device.IP
}

// Prepare resolves job into one task per device, ordered by rack index,
// row and column. Resolution failures are returned before any device is
// contacted.
func Prepare(ctx context.Context, job Job, env *Env) ([]Task, error) {
	switch j := job.(type) {
	case Scan:
		return prepareScan(ctx, j, env)
	case Reboot:
		return prepareEach(ctx, j.Addresses, env, func(w *workflow, p model.Placement) taskFunc {
			return w.reboot(p)
		})
	case Sleep:
		return prepareEach(ctx, j.Addresses, env, func(w *workflow, p model.Placement) taskFunc {
			return w.sleep(p, j.Enabled)
		})
	case Locate:
		return prepareEach(ctx, j.Addresses, env, func(w *workflow, p model.Placement) taskFunc {
			return w.locate(p, j.Enabled)
		})
	case SetPool:
		tmpl, err := env.Pools.GetPoolTemplate(ctx, j.Template)
		if err != nil {
			return nil, fmt.Errorf("pool template %q: %w", j.Template, err)
		}
		return prepareEach(ctx, j.Addresses, env, func(w *workflow, p model.Placement) taskFunc {
			return w.setPool(p, tmpl)
		})
	case SetProfile:
		if j.Profile == "" {
			return nil, fmt.Errorf("set-profile: profile name is required")
		}
		return prepareEach(ctx, j.Addresses, env, func(w *workflow, p model.Placement) taskFunc {
			return w.setProfile(p, j.Profile)
		})
	case FetchLogs:
		if j.Dir == "" {
			return nil, fmt.Errorf("fetch-logs: output directory is required")
		}
		return prepareEach(ctx, j.Addresses, env, func(w *workflow, p model.Placement) taskFunc {
			return w.fetchLogs(p, j.Dir)
		})
	default:
		return nil, fmt.Errorf("unknown job type %T", job)
	}
}

type taskFunc = func(ctx context.Context, out events.Emitter)

func prepareScan(ctx context.Context, j Scan, env *Env) ([]Task, error) {
	c, err := env.Topology.GetContainer(ctx, j.ContainerID)
	if err != nil {
		return nil, fmt.Errorf("resolving container: %w", err)
	}
	w, err := newWorkflow(ctx, env)
	if err != nil {
		return nil, err
	}
	placements := c.Placements()
	tasks := make([]Task, 0, len(placements))
	for _, p := range placements {
		tasks = append(tasks, Task{Target: p, run: w.scan(p)})
	}
	return tasks, nil
}

func prepareEach(ctx context.Context, addresses []string, env *Env, build func(*workflow, model.Placement) taskFunc) ([]Task, error) {
	placements, err := resolve(ctx, env.Topology, addresses)
	if err != nil {
		return nil, err
	}
	w, err := newWorkflow(ctx, env)
	if err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(placements))
	for _, p := range placements {
		tasks = append(tasks, Task{Target: p, run: build(w, p)})
	}
	return tasks, nil
}

// resolve looks up every address, collapsing duplicates, and returns the
// placements in enumeration order. Any unknown address is fatal.
func resolve(ctx context.Context, topo Topology, addresses []string) ([]model.Placement, error) {
	seen := make(map[string]bool, len(addresses))
	var out []model.Placement
	for _, addr := range addresses {
		if seen[addr] {
			continue
		}
		seen[addr] = true
		p, err := topo.FindDevice(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", addr, err)
		}
		out = append(out, p)
	}
	model.SortPlacements(out)
	return out, nil
}
