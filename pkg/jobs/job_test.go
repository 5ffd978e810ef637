package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newtron-network/fleetscan/internal/testutil"
	"github.com/newtron-network/fleetscan/pkg/util"
)

func taskAddresses(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Address()
	}
	return out
}

func TestPrepare_ScanEnumerationOrder(t *testing.T) {
	f := newFixture(t, 3)

	tasks, err := Prepare(context.Background(), Scan{ContainerID: 24}, f.env)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"10.20.3.1", "10.20.3.2", "10.20.3.3",
		"10.20.3.4", "10.20.3.5", "10.20.3.6",
	}, taskAddresses(tasks))
	assert.Equal(t, 1, tasks[3].Target.RackIndex)
	assert.Equal(t, 24, tasks[0].Target.ContainerNum)
}

func TestPrepare_AddressJobsSortedAndDeduplicated(t *testing.T) {
	f := newFixture(t, 3)

	job := Reboot{Addresses: []string{"10.20.3.5", "10.20.3.1", "10.20.3.5", "10.20.3.3"}}
	tasks, err := Prepare(context.Background(), job, f.env)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.20.3.1", "10.20.3.3", "10.20.3.5"}, taskAddresses(tasks))
}

func TestPrepare_FatalErrorsContactNoDevice(t *testing.T) {
	tests := []struct {
		name string
		job  Job
	}{
		{"unknown container", Scan{ContainerID: 99}},
		{"unknown address", Sleep{Addresses: []string{"10.20.3.1", "10.99.0.1"}, Enabled: true}},
		{"unknown pool template", SetPool{Addresses: []string{"10.20.3.1"}, Template: "backup"}},
		{"missing profile", SetProfile{Addresses: []string{"10.20.3.1"}}},
		{"missing log dir", FetchLogs{Addresses: []string{"10.20.3.1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 3)
			_, err := Prepare(context.Background(), tt.job, f.env)
			require.Error(t, err)

			opened, _ := f.client.Sessions()
			assert.Zero(t, opened)
		})
	}
}

func TestPrepare_NotFoundIsWrapped(t *testing.T) {
	f := newFixture(t, 1)
	_, err := Prepare(context.Background(), Scan{ContainerID: 99}, f.env)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestPrepare_UnreadableCredentials(t *testing.T) {
	f := newFixture(t, 2)
	f.store.CredentialsErr = testutil.ErrStoreDown

	_, err := Prepare(context.Background(), Scan{ContainerID: 24}, f.env)
	assert.ErrorIs(t, err, util.ErrPersistence)
}

func TestPrepare_EmptyAddressList(t *testing.T) {
	f := newFixture(t, 2)
	tasks, err := Prepare(context.Background(), Locate{Enabled: true}, f.env)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestJob_KindsAndLabels(t *testing.T) {
	jobs := []Job{
		Scan{ContainerID: 1}, Reboot{}, Sleep{}, Locate{},
		SetPool{}, SetProfile{}, FetchLogs{},
	}
	seen := map[string]bool{}
	for _, j := range jobs {
		assert.NotEmpty(t, j.Label())
		assert.False(t, seen[j.Kind()], "duplicate kind %s", j.Kind())
		seen[j.Kind()] = true
	}
	assert.Equal(t, "Waking 0 device(s)", Sleep{}.Label())
}
