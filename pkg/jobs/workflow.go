package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/newtron-network/fleetscan/pkg/credential"
	"github.com/newtron-network/fleetscan/pkg/device"
	"github.com/newtron-network/fleetscan/pkg/events"
	"github.com/newtron-network/fleetscan/pkg/health"
	"github.com/newtron-network/fleetscan/pkg/model"
	"github.com/newtron-network/fleetscan/pkg/util"
)

// workflow carries what every task of one job shares. Credentials are
// loaded once at preparation.
type workflow struct {
	client     device.Client
	creds      credential.Set
	classifier health.Classifier
	errors     *health.ErrorTable
	retry      RetryPolicy
}

func newWorkflow(ctx context.Context, env *Env) (*workflow, error) {
	if env.Client == nil {
		return nil, fmt.Errorf("no device client configured: %w", util.ErrInvalidConfig)
	}
	creds := credential.Set{}
	if env.Credentials != nil {
		set, err := env.Credentials.LoadCredentials(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading credentials: %w", err)
		}
		creds = set
	}
	table := env.Errors
	if table == nil {
		table = health.DefaultErrorTable()
	}
	return &workflow{
		client:     env.Client,
		creds:      creds,
		classifier: health.NewClassifier(env.Classifier.Threshold),
		errors:     table,
		retry:      env.ErrorRetry.orDefault(),
	}, nil
}

// login opens an authenticated session. On failure it returns an
// observation carrying the failure marker.
func (w *workflow) login(ctx context.Context, p model.Placement) (device.Session, *model.Observation, error) {
	addr := p.Device.IP
	sess, err := device.Login(ctx, w.client, addr, w.creds)
	if err == nil {
		return sess, nil, nil
	}

	obs := model.NewObservation(addr)
	switch {
	case errors.Is(err, util.ErrCancelled):
	case errors.Is(err, util.ErrAuth):
		util.WithDevice(addr).Warnf("login: %v", err)
		obs.AddError(health.AuthFailed)
	default:
		util.WithDevice(addr).Warnf("login: %v", err)
		obs.AddError(health.ConnectFailed)
	}
	return nil, obs, err
}

func (w *workflow) emit(out events.Emitter, p model.Placement, obs *model.Observation) {
	obs.Status = w.classifier.Status(obs)
	out.Miner(model.NewMinerEvent(p, obs))
}

// readValue runs one accessor detached from cancellation. A cancelled ctx
// skips the read.
func readValue[T any](ctx context.Context, log *logrus.Entry, what string, fn func(context.Context) (T, error)) (T, bool) {
	var zero T
	if ctx.Err() != nil {
		return zero, false
	}
	v, err := fn(context.WithoutCancel(ctx))
	if err != nil {
		log.Debugf("read %s: %v", what, err)
		return zero, false
	}
	return v, true
}

// observe reads the device state. Failed reads leave placeholders.
func (w *workflow) observe(ctx context.Context, sess device.Session) *model.Observation {
	addr := sess.Address()
	log := util.WithDevice(addr)
	obs := model.NewObservation(addr)
	obs.Make = sess.Vendor()
	obs.Model = model.Unknown
	obs.MAC = model.Unknown

	if v, ok := readValue(ctx, log, "model", sess.Model); ok {
		obs.Model = v
	}
	if v, ok := readValue(ctx, log, "mac", sess.MAC); ok {
		obs.MAC = v
	}
	if v, ok := readValue(ctx, log, "fans", sess.Fans); ok {
		obs.Fans = v
	}
	if v, ok := readValue(ctx, log, "temperature", sess.Temperature); ok {
		obs.Temperature = model.Float(v)
	}
	if v, ok := readValue(ctx, log, "locate", sess.Locate); ok {
		obs.Locate = v
	}
	pools, _ := readValue(ctx, log, "pools", sess.Pools)
	if v, ok := readValue(ctx, log, "power", sess.Power); ok {
		obs.Power = model.Float(v)
	}
	if v, ok := readValue(ctx, log, "nameplate", sess.Nameplate); ok {
		obs.Nameplate = model.Float(v)
	}
	if v, ok := readValue(ctx, log, "uptime", sess.Uptime); ok {
		obs.Uptime = model.Float(v)
	}
	if v, ok := readValue(ctx, log, "profile", sess.Profile); ok {
		obs.Profile = v
	}

	// A failed read leaves Hashrate unset, but the device is still treated
	// as not hashing when deciding whether to read its error codes.
	hashrate, ok := readValue(ctx, log, "hashrate", sess.Hashrate)
	if ok {
		obs.Hashrate = model.Float(hashrate)
	}

	if ctx.Err() == nil && w.classifier.NeedsErrorQuery(hashrate, obs.Nameplate) {
		w.queryErrors(ctx, sess, obs)
	}

	if len(pools) == 0 || pools[0].URL == "" {
		obs.AddError(health.NoPoolSet)
	}
	obs.Pools = model.NormalizePools(pools)

	if v, ok := readValue(ctx, log, "sleep", sess.Sleep); ok {
		obs.Sleep = v
	}
	return obs
}

func (w *workflow) queryErrors(ctx context.Context, sess device.Session, obs *model.Observation) {
	ioCtx := context.WithoutCancel(ctx)
	var codes []string
	err := w.retry.Do(ctx, func() error {
		c, err := sess.ErrorCodes(ioCtx)
		if err != nil {
			return err
		}
		codes = c
		return nil
	})
	if err != nil {
		util.WithDevice(obs.IP).Debugf("error codes unavailable after %d attempt(s): %v", w.retry.Attempts, err)
		return
	}
	obs.Errors = append(obs.Errors, w.errors.TranslateAll(obs.Make, codes)...)
}

func (w *workflow) scan(p model.Placement) taskFunc {
	return func(ctx context.Context, out events.Emitter) {
		w.refresh(ctx, p, out, nil)
	}
}

// refresh logs in, observes the device and emits the result. extra errors
// are appended to the observation.
func (w *workflow) refresh(ctx context.Context, p model.Placement, out events.Emitter, extra []string) {
	sess, obs, err := w.login(ctx, p)
	if err != nil {
		if errors.Is(err, util.ErrCancelled) {
			return
		}
	} else {
		obs = w.observe(ctx, sess)
		sess.Close()
	}
	for _, e := range extra {
		obs.AddError(e)
	}
	w.emit(out, p, obs)
}

// mutate performs op on the device and then emits a fresh scan of it, so
// the event shows the state the device actually reached.
func (w *workflow) mutate(p model.Placement, what string, op func(context.Context, device.Session) error) taskFunc {
	return func(ctx context.Context, out events.Emitter) {
		sess, obs, err := w.login(ctx, p)
		if err != nil {
			if !errors.Is(err, util.ErrCancelled) {
				w.emit(out, p, obs)
			}
			return
		}

		var extra []string
		opErr := op(context.WithoutCancel(ctx), sess)
		sess.Close()
		if opErr != nil {
			util.WithDevice(p.Device.IP).Warnf("%s: %v", what, opErr)
			extra = append(extra, fmt.Sprintf("%s failed: %v", what, opErr))
		}
		if ctx.Err() != nil {
			return
		}
		w.refresh(ctx, p, out, extra)
	}
}

func (w *workflow) reboot(p model.Placement) taskFunc {
	return w.mutate(p, "Reboot", func(ctx context.Context, s device.Session) error {
		return s.Reboot(ctx)
	})
}

func (w *workflow) sleep(p model.Placement, enabled bool) taskFunc {
	return w.mutate(p, "Sleep", func(ctx context.Context, s device.Session) error {
		return s.SetSleep(ctx, enabled)
	})
}

func (w *workflow) locate(p model.Placement, enabled bool) taskFunc {
	return w.mutate(p, "Locate", func(ctx context.Context, s device.Session) error {
		return s.SetLocate(ctx, enabled)
	})
}

func (w *workflow) setProfile(p model.Placement, profile string) taskFunc {
	return w.mutate(p, "Set profile", func(ctx context.Context, s device.Session) error {
		return s.SetProfile(ctx, profile)
	})
}

func (w *workflow) setPool(p model.Placement, tmpl model.PoolTemplate) taskFunc {
	return w.mutate(p, "Set pool", func(ctx context.Context, s device.Session) error {
		deviceModel, err := s.Model(ctx)
		if err != nil {
			util.WithDevice(p.Device.IP).Debugf("read model for worker name: %v", err)
			deviceModel = model.Unknown
		}
		worker := ExpandWorkerName(tmpl.Worker, p.ContainerNum, deviceModel, p.Device.IP)
		return s.SetPools(ctx, poolsFor(tmpl, worker))
	})
}

// fetchLogs writes the device log to <dir>/<mac>.log and emits a minimal
// observation recording the outcome.
func (w *workflow) fetchLogs(p model.Placement, dir string) taskFunc {
	return func(ctx context.Context, out events.Emitter) {
		sess, obs, err := w.login(ctx, p)
		if err != nil {
			if !errors.Is(err, util.ErrCancelled) {
				w.emit(out, p, obs)
			}
			return
		}
		defer sess.Close()

		addr := p.Device.IP
		log := util.WithDevice(addr)
		obs = model.NewObservation(addr)
		obs.Make = sess.Vendor()
		obs.MAC = model.Unknown

		mac, ok := readValue(ctx, log, "mac", sess.MAC)
		if !ok {
			obs.AddError("Log download failed: MAC address unavailable")
			w.emit(out, p, obs)
			return
		}
		obs.MAC = mac

		data, err := sess.Logs(context.WithoutCancel(ctx))
		if err == nil {
			path := filepath.Join(dir, util.MACFileName(mac)+".log")
			err = os.WriteFile(path, data, 0o644)
			if err == nil {
				log.Debugf("wrote %d bytes to %s", len(data), path)
			}
		}
		if err != nil {
			log.Warnf("fetch logs: %v", err)
			obs.AddError(fmt.Sprintf("Log download failed: %v", err))
		}
		if ctx.Err() != nil {
			return
		}
		w.emit(out, p, obs)
	}
}
