package jobs

import (
	"testing"
	"time"

	"github.com/newtron-network/fleetscan/internal/testutil"
	"github.com/newtron-network/fleetscan/pkg/health"
	"github.com/newtron-network/fleetscan/pkg/model"
)

type fixture struct {
	env       *Env
	store     *testutil.FakeStore
	client    *testutil.FakeClient
	container *model.Container
}

// newFixture builds container 24 with two 5x2 racks holding perRack healthy
// devices each, addressed 10.20.3.1 upward.
func newFixture(t *testing.T, perRack int) *fixture {
	t.Helper()
	c := testutil.Container(24, 2, 5, 2, perRack, "10.20.3.", 1)
	store := testutil.NewFakeStore(c).
		AddCredential("antminer", "admin", "admin").
		AddCredential("antminer", "root", "root").
		AddPool(model.PoolTemplate{
			Name:     "main",
			URLs:     [model.PoolSlots]string{"stratum+tcp://a:3333", "stratum+tcp://b:3333"},
			Worker:   "{can}.{model}.{ip}",
			Password: "x",
		})
	client := testutil.NewFakeClient(testutil.Devices(c)...)
	return &fixture{
		env: &Env{
			Topology:    store,
			Pools:       store,
			Credentials: store,
			Client:      client,
			Classifier:  health.NewClassifier(0.8),
			ErrorRetry:  RetryPolicy{Attempts: 3, Interval: time.Millisecond},
		},
		store:     store,
		client:    client,
		container: c,
	}
}

func (f *fixture) addresses() []string {
	var out []string
	for _, p := range f.container.Placements() {
		out = append(out, p.Device.IP)
	}
	return out
}
