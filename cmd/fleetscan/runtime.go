package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/newtron-network/fleetscan/pkg/audit"
	"github.com/newtron-network/fleetscan/pkg/device/sshdriver"
	"github.com/newtron-network/fleetscan/pkg/events"
	"github.com/newtron-network/fleetscan/pkg/health"
	"github.com/newtron-network/fleetscan/pkg/jobs"
	"github.com/newtron-network/fleetscan/pkg/metrics"
	"github.com/newtron-network/fleetscan/pkg/settings"
	"github.com/newtron-network/fleetscan/pkg/store"
	"github.com/newtron-network/fleetscan/pkg/util"
)

// openStore opens the database selected by --db or the settings file.
func openStore() (*store.Store, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return st, nil
}

// runtime is everything a job command needs: the store, the job manager
// and the emitters its results flow into.
type runtime struct {
	store   *store.Store
	config  store.Config
	manager *jobs.Manager
	metrics *metrics.Metrics
	console *events.Console
	redis   *events.Redis
	audit   *audit.FileLogger
}

// auditPath is the job audit trail.
func auditPath() string {
	return filepath.Join(settings.Dir(), "audit.log")
}

func newRuntime(ctx context.Context) (*runtime, error) {
	st, err := openStore()
	if err != nil {
		return nil, err
	}
	rt := &runtime{store: st, metrics: metrics.New()}

	rt.config, err = st.LoadConfig(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}
	errTable, err := st.LoadErrorTable(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}

	profiles, err := loadProfiles()
	if err != nil {
		rt.Close()
		return nil, err
	}
	driver := sshdriver.New(sshdriver.Config{
		ConnectTimeout: rt.config.ConnectTimeoutDuration(),
		ReadTimeout:    rt.config.ReadTimeoutDuration(),
	}, profiles)

	env := &jobs.Env{
		Topology:    st,
		Pools:       st,
		Credentials: st,
		Client:      driver,
		Classifier:  health.NewClassifier(rt.config.HashrateThreshold),
		Errors:      errTable,
	}

	var out events.Multi
	if jsonOutput {
		out = append(out, events.NewJSONLines(os.Stdout))
	} else {
		rt.console = events.NewConsole(os.Stdout)
		out = append(out, rt.console)
	}
	if redisAddr != "" {
		r := events.NewRedis(redisAddr)
		if err := r.Connect(); err != nil {
			util.Warnf("Redis %s unreachable, events will not be published: %v", redisAddr, err)
			r.Close()
		} else {
			rt.redis = r
			out = append(out, r)
		}
	}

	opts := []jobs.ManagerOption{
		jobs.WithRunner(jobs.NewRunner(rt.config.MaxConnections)),
		jobs.WithMetrics(rt.metrics),
	}
	if trail, err := audit.NewFileLogger(auditPath(), audit.DefaultRotation); err != nil {
		util.Warnf("Could not initialize audit logging: %v", err)
	} else {
		rt.audit = trail
		opts = append(opts, jobs.WithAudit(trail))
	}
	rt.manager = jobs.NewManager(env, out, opts...)
	return rt, nil
}

func loadProfiles() (*sshdriver.ProfileSet, error) {
	if driversPath == "" {
		return sshdriver.DefaultProfiles()
	}
	p, err := sshdriver.LoadProfiles(driversPath)
	if err != nil {
		return nil, fmt.Errorf("loading driver profiles: %w", err)
	}
	return p, nil
}

// flush prints the collected console rows, if any.
func (rt *runtime) flush() {
	if rt.console != nil {
		rt.console.Flush()
	}
}

func (rt *runtime) Close() {
	if rt.redis != nil {
		rt.redis.Close()
	}
	if rt.audit != nil {
		rt.audit.Close()
	}
	rt.store.Close()
}
