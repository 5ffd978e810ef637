package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newtron-network/fleetscan/pkg/credential"
	"github.com/newtron-network/fleetscan/pkg/events"
	"github.com/newtron-network/fleetscan/pkg/health"
	"github.com/newtron-network/fleetscan/pkg/model"
)

func TestRunner_CompletesEveryTask(t *testing.T) {
	f := newFixture(t, 5)
	tasks, err := Prepare(context.Background(), Scan{ContainerID: 24}, f.env)
	require.NoError(t, err)
	require.Len(t, tasks, 10)

	rec := &events.Recorder{}
	res := NewRunner(0).Run(NewToken(context.Background()), tasks, "scan", rec)

	assert.Equal(t, Result{Total: 10, Completed: 10}, res)
	assert.Len(t, rec.Miners(), 10)

	progress := rec.ProgressEvents()
	require.Len(t, progress, 11, "initial event plus one per task")
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i].Completed, progress[i-1].Completed)
	}
	assert.Equal(t, 1.0, progress[10].Ratio)

	opened, closed := f.client.Sessions()
	assert.Equal(t, opened, closed, "every session is closed by its task")
}

func TestRunner_FaultIsolation(t *testing.T) {
	f := newFixture(t, 5)
	f.client.Device("10.20.3.7").Accept = credential.Credential{Username: "ops", Password: "secret"}

	tasks, err := Prepare(context.Background(), Scan{ContainerID: 24}, f.env)
	require.NoError(t, err)

	rec := &events.Recorder{}
	res := NewRunner(0).Run(NewToken(context.Background()), tasks, "scan", rec)

	assert.Equal(t, 10, res.Completed)
	assert.Len(t, rec.Miners(), 10)
	last, _ := rec.LastProgress()
	assert.Equal(t, 1.0, last.Ratio)

	failed := rec.Observation("10.20.3.7")
	require.NotNil(t, failed)
	assert.Contains(t, failed.Errors, health.AuthFailed)
	assert.Nil(t, failed.Hashrate)

	healthy := rec.Observation("10.20.3.8")
	require.NotNil(t, healthy)
	assert.NotContains(t, healthy.Errors, health.AuthFailed)
}

func TestRunner_UnreachableDevice(t *testing.T) {
	f := newFixture(t, 2)
	f.client.Device("10.20.3.2").Unreachable = true

	tasks, err := Prepare(context.Background(), Scan{ContainerID: 24}, f.env)
	require.NoError(t, err)

	rec := &events.Recorder{}
	NewRunner(0).Run(NewToken(context.Background()), tasks, "scan", rec)

	obs := rec.Observation("10.20.3.2")
	require.NotNil(t, obs)
	assert.Equal(t, []string{health.ConnectFailed}, obs.Errors)
}

func TestRunner_Cancellation(t *testing.T) {
	f := newFixture(t, 5)
	f.client.Gate = make(chan struct{})

	tasks, err := Prepare(context.Background(), Scan{ContainerID: 24}, f.env)
	require.NoError(t, err)

	rec := &events.Recorder{}
	tok := NewToken(context.Background())
	done := make(chan Result)
	go func() {
		done <- NewRunner(0).Run(tok, tasks, "scan", rec)
	}()
	require.Eventually(t, func() bool { return f.client.Waiting() == 10 },
		5*time.Second, 5*time.Millisecond, "tasks never reached the device")

	assert.True(t, tok.Cancel())
	var res Result
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	assert.True(t, res.Cancelled)
	assert.Less(t, res.Completed, res.Total)
	settled := len(rec.ProgressEvents())
	last, ok := rec.LastProgress()
	require.True(t, ok)
	assert.Less(t, last.Ratio, 1.0)

	// Release the abandoned calls and let them finish.
	close(f.client.Gate)
	assert.Eventually(t, func() bool {
		opened, closed := f.client.Sessions()
		return opened == 10 && closed == 10
	}, 5*time.Second, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	assert.Len(t, rec.ProgressEvents(), settled, "no progress after cancellation settled")
	assert.Empty(t, rec.Miners(), "abandoned tasks must not report")
}

func TestRunner_CapBoundsInFlight(t *testing.T) {
	f := newFixture(t, 5)
	tasks, err := Prepare(context.Background(), Scan{ContainerID: 24}, f.env)
	require.NoError(t, err)

	rec := &events.Recorder{}
	res := NewRunner(2).Run(NewToken(context.Background()), tasks, "scan", rec)
	assert.Equal(t, 10, res.Completed)
	assert.Len(t, rec.Miners(), 10)
}

func TestRunner_CancelledWhileWaitingForSlot(t *testing.T) {
	f := newFixture(t, 5)
	f.client.Gate = make(chan struct{})
	defer close(f.client.Gate)

	tasks, err := Prepare(context.Background(), Scan{ContainerID: 24}, f.env)
	require.NoError(t, err)

	tok := NewToken(context.Background())
	done := make(chan Result)
	go func() {
		done <- NewRunner(1).Run(tok, tasks, "scan", nil)
	}()
	tok.Cancel()

	select {
	case res := <-done:
		assert.Zero(t, res.Completed)
		assert.True(t, res.Cancelled)
	case <-time.After(5 * time.Second):
		t.Fatal("waiting for a slot did not observe cancellation")
	}
}

func TestRunner_NoTasks(t *testing.T) {
	rec := &events.Recorder{}
	res := NewRunner(0).Run(NewToken(context.Background()), nil, "empty", rec)
	assert.Equal(t, Result{}, res)
	last, ok := rec.LastProgress()
	require.True(t, ok)
	assert.Equal(t, 1.0, last.Ratio)
}

func TestRunner_TaskFinishingAfterCancelIsNotCounted(t *testing.T) {
	f := newFixture(t, 1)
	target := f.container.Placements()[0]

	// The task fires the token itself, so its done channel and the token
	// are both ready when the runner selects.
	for i := 0; i < 50; i++ {
		tok := NewToken(context.Background())
		task := Task{Target: target, run: func(ctx context.Context, out events.Emitter) {
			tok.Cancel()
			out.Miner(model.NewMinerEvent(target, model.NewObservation(target.Device.IP)))
		}}

		rec := &events.Recorder{}
		res := NewRunner(0).Run(tok, []Task{task}, "scan", rec)
		require.True(t, res.Cancelled)
		require.Zero(t, res.Completed, "iteration %d", i)
		require.Empty(t, rec.Miners())
		require.Len(t, rec.ProgressEvents(), 1, "only the initial event")
	}
}

// blockingEmitter holds every Miner call until release is closed.
type blockingEmitter struct {
	events.Recorder
	entered chan struct{}
	release chan struct{}
}

func (b *blockingEmitter) Miner(ev model.MinerEvent) {
	close(b.entered)
	<-b.release
	b.Recorder.Miner(ev)
}

func TestGatedEmitter_CloseWaitsForInFlightEmit(t *testing.T) {
	out := &blockingEmitter{entered: make(chan struct{}), release: make(chan struct{})}
	g := &gatedEmitter{token: NewToken(context.Background()), out: out}
	ev := model.NewMinerEvent(model.Placement{}, model.NewObservation("10.20.3.1"))

	go g.Miner(ev)
	<-out.entered

	closed := make(chan struct{})
	go func() {
		g.close()
		close(closed)
	}()
	select {
	case <-closed:
		t.Fatal("close returned while an emit was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(out.release)
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("close never returned")
	}
	assert.Len(t, out.Miners(), 1)

	// Nothing passes once closed.
	assert.False(t, g.pass(func() {}))
	g.Miner(ev)
	assert.Len(t, out.Miners(), 1)
}
