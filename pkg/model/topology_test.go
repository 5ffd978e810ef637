package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/newtron-network/fleetscan/pkg/util"
)

func testContainer() *Container {
	return &Container{
		ID:  1,
		Num: 24,
		Racks: []Rack{
			{
				ID: 2, Name: "B", Index: 1, Width: 2, Height: 2,
				Devices: []Device{
					{IP: "10.0.1.4", Row: 1, Column: 1},
					{IP: "10.0.1.1", Row: 0, Column: 0},
				},
			},
			{
				ID: 1, Name: "A", Index: 0, Width: 2, Height: 2,
				Devices: []Device{
					{IP: "10.0.0.3", Row: 1, Column: 0},
					{IP: "10.0.0.2", Row: 0, Column: 1},
					{IP: "10.0.0.1", Row: 0, Column: 0},
				},
			},
		},
	}
}

func TestContainer_Placements(t *testing.T) {
	c := testContainer()
	got := c.Placements()

	want := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.1.1", "10.0.1.4"}
	if len(got) != len(want) {
		t.Fatalf("Placements() returned %d, want %d", len(got), len(want))
	}
	for i, ip := range want {
		if got[i].Device.IP != ip {
			t.Errorf("Placements()[%d] = %s, want %s", i, got[i].Device.IP, ip)
		}
		if got[i].ContainerNum != 24 {
			t.Errorf("Placements()[%d].ContainerNum = %d", i, got[i].ContainerNum)
		}
	}
	if c.DeviceCount() != 5 {
		t.Errorf("DeviceCount() = %d, want 5", c.DeviceCount())
	}
}

func TestContainer_Validate(t *testing.T) {
	if err := testContainer().Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Container)
		want   string
	}{
		{
			name:   "row out of bounds",
			mutate: func(c *Container) { c.Racks[0].Devices[0].Row = 2 },
			want:   "row 2",
		},
		{
			name:   "column out of bounds",
			mutate: func(c *Container) { c.Racks[1].Devices[0].Column = -1 },
			want:   "column -1",
		},
		{
			name:   "duplicate slot",
			mutate: func(c *Container) { c.Racks[1].Devices[1].Row, c.Racks[1].Devices[1].Column = 0, 0 },
			want:   "slot (0,0)",
		},
		{
			name:   "duplicate rack index",
			mutate: func(c *Container) { c.Racks[1].Index = 1 },
			want:   "share index 1",
		},
		{
			name:   "bad address",
			mutate: func(c *Container) { c.Racks[0].Devices[0].IP = "miner-1" },
			want:   "invalid device address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testContainer()
			tt.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !errors.Is(err, util.ErrValidationFailed) {
				t.Errorf("Validate() error should wrap ErrValidationFailed: %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error %q should contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestNormalizePools(t *testing.T) {
	tests := []struct {
		name  string
		pools []Pool
	}{
		{"none", nil},
		{"one", []Pool{{URL: "stratum+tcp://a:3333"}}},
		{"four", []Pool{{URL: "a"}, {URL: "b"}, {URL: "c"}, {URL: "d"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePools(tt.pools)
			if len(got) != PoolSlots {
				t.Fatalf("NormalizePools() len = %d, want %d", len(got), PoolSlots)
			}
			if len(tt.pools) > 0 && got[0] != tt.pools[0] {
				t.Errorf("NormalizePools()[0] = %+v, want %+v", got[0], tt.pools[0])
			}
		})
	}
}

func TestNewMinerEvent(t *testing.T) {
	p := testContainer().Placements()[3]
	obs := NewObservation(p.Device.IP)
	ev := NewMinerEvent(p, obs)

	if ev.Rack != 1 || ev.Row != 0 || ev.Column != 0 || ev.Container != 24 {
		t.Errorf("NewMinerEvent() = %+v", ev)
	}
	if ev.Observation.Status != StatusUnknown {
		t.Errorf("new observation status = %q, want unknown", ev.Observation.Status)
	}
}
