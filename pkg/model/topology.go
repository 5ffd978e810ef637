package model

import (
	"fmt"
	"sort"

	"github.com/newtron-network/fleetscan/pkg/util"
)

// Container is the top-level physical grouping (a "can") holding racks.
type Container struct {
	ID    int64  `json:"id" yaml:"id"`
	Num   int    `json:"num" yaml:"num"` // display number used in worker names
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Racks []Rack `json:"racks,omitempty" yaml:"racks,omitempty"`
}

// Rack is a grid of device slots indexed within its container.
type Rack struct {
	ID          int64    `json:"id" yaml:"id"`
	ContainerID int64    `json:"container_id" yaml:"-"`
	Name        string   `json:"name" yaml:"name"`
	Index       int      `json:"index" yaml:"index"`
	Width       int      `json:"width" yaml:"width"`
	Height      int      `json:"height" yaml:"height"`
	Devices     []Device `json:"devices,omitempty" yaml:"devices,omitempty"`
}

// Device is one network-addressable miner occupying a (row, column) slot.
type Device struct {
	ID     int64  `json:"id" yaml:"id"`
	IP     string `json:"ip" yaml:"ip"`
	Row    int    `json:"row" yaml:"row"`
	Column int    `json:"column" yaml:"column"`
}

// Placement is a device resolved together with its rack and container.
// It carries everything a task needs without further topology lookups.
type Placement struct {
	ContainerID  int64  `json:"container_id"`
	ContainerNum int    `json:"container_num"`
	RackID       int64  `json:"rack_id"`
	RackName     string `json:"rack_name"`
	RackIndex    int    `json:"rack_index"`
	Device       Device `json:"device"`
}

// Validate checks slot bounds and uniqueness within the rack.
func (r *Rack) Validate() error {
	v := &util.ValidationBuilder{}
	v.Add(r.Width > 0, fmt.Sprintf("rack %q: width must be positive", r.Name))
	v.Add(r.Height > 0, fmt.Sprintf("rack %q: height must be positive", r.Name))

	seen := make(map[[2]int]string)
	for _, d := range r.Devices {
		if !util.IsValidIPv4(d.IP) {
			v.AddErrorf("rack %q: invalid device address %q", r.Name, d.IP)
		}
		if d.Row < 0 || d.Row >= r.Height {
			v.AddErrorf("rack %q: device %s row %d outside 0..%d", r.Name, d.IP, d.Row, r.Height-1)
		}
		if d.Column < 0 || d.Column >= r.Width {
			v.AddErrorf("rack %q: device %s column %d outside 0..%d", r.Name, d.IP, d.Column, r.Width-1)
		}
		slot := [2]int{d.Row, d.Column}
		if other, ok := seen[slot]; ok {
			v.AddErrorf("rack %q: slot (%d,%d) holds both %s and %s", r.Name, d.Row, d.Column, other, d.IP)
		}
		seen[slot] = d.IP
	}
	return v.Build()
}

// Validate checks every rack and the uniqueness of rack indices.
func (c *Container) Validate() error {
	v := &util.ValidationBuilder{}
	indices := make(map[int]string)
	for i := range c.Racks {
		r := &c.Racks[i]
		if other, ok := indices[r.Index]; ok {
			v.AddErrorf("container %d: racks %q and %q share index %d", c.Num, other, r.Name, r.Index)
		}
		indices[r.Index] = r.Name
		if err := r.Validate(); err != nil {
			if ve, ok := err.(*util.ValidationError); ok {
				for _, msg := range ve.Errors {
					v.AddError(msg)
				}
			}
		}
	}
	return v.Build()
}

// Placements enumerates the container's devices ordered by rack index,
// then row, then column.
func (c *Container) Placements() []Placement {
	var out []Placement
	for _, r := range c.Racks {
		for _, d := range r.Devices {
			out = append(out, Placement{
				ContainerID:  c.ID,
				ContainerNum: c.Num,
				RackID:       r.ID,
				RackName:     r.Name,
				RackIndex:    r.Index,
				Device:       d,
			})
		}
	}
	SortPlacements(out)
	return out
}

// SortPlacements orders placements by container number, rack index, row,
// column. Ties fall back to address so the order is total.
func SortPlacements(p []Placement) {
	sort.SliceStable(p, func(i, j int) bool {
		a, b := p[i], p[j]
		if a.ContainerNum != b.ContainerNum {
			return a.ContainerNum < b.ContainerNum
		}
		if a.RackIndex != b.RackIndex {
			return a.RackIndex < b.RackIndex
		}
		if a.Device.Row != b.Device.Row {
			return a.Device.Row < b.Device.Row
		}
		if a.Device.Column != b.Device.Column {
			return a.Device.Column < b.Device.Column
		}
		return a.Device.IP < b.Device.IP
	})
}

// DeviceCount returns the number of devices across all racks.
func (c *Container) DeviceCount() int {
	n := 0
	for _, r := range c.Racks {
		n += len(r.Devices)
	}
	return n
}
