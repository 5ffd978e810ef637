package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/newtron-network/fleetscan/pkg/credential"
	"github.com/newtron-network/fleetscan/pkg/model"
	"github.com/newtron-network/fleetscan/pkg/util"
)

// FakeStore is an in-memory topology, pool template and credential source.
type FakeStore struct {
	mu          sync.Mutex
	containers  map[int64]*model.Container
	pools       map[string]model.PoolTemplate
	credentials credential.Set

	// CredentialsErr makes LoadCredentials fail.
	CredentialsErr error
}

// NewFakeStore returns a store holding containers.
func NewFakeStore(containers ...*model.Container) *FakeStore {
	s := &FakeStore{
		containers:  make(map[int64]*model.Container),
		pools:       make(map[string]model.PoolTemplate),
		credentials: credential.Set{},
	}
	for _, c := range containers {
		s.containers[c.ID] = c
	}
	return s
}

// AddPool registers a pool template.
func (s *FakeStore) AddPool(p model.PoolTemplate) *FakeStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[p.Name] = p
	return s
}

// AddCredential appends a candidate for vendor.
func (s *FakeStore) AddCredential(vendor, username, password string) *FakeStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials.Add(vendor, credential.Credential{Username: username, Password: password})
	return s
}

func (s *FakeStore) GetContainer(_ context.Context, id int64) (*model.Container, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[id]
	if !ok {
		return nil, fmt.Errorf("container %d: %w", id, util.ErrNotFound)
	}
	return c, nil
}

func (s *FakeStore) FindDevice(_ context.Context, ip string) (model.Placement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.containers {
		for _, p := range c.Placements() {
			if p.Device.IP == ip {
				return p, nil
			}
		}
	}
	return model.Placement{}, fmt.Errorf("device %s: %w", ip, util.ErrNotFound)
}

func (s *FakeStore) GetPoolTemplate(_ context.Context, name string) (model.PoolTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[name]
	if !ok {
		return model.PoolTemplate{}, fmt.Errorf("pool template %q: %w", name, util.ErrNotFound)
	}
	return p, nil
}

func (s *FakeStore) LoadCredentials(context.Context) (credential.Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CredentialsErr != nil {
		return nil, util.NewPersistenceError("load credentials", s.CredentialsErr)
	}
	out := credential.Set{}
	for vendor, list := range s.credentials {
		out[vendor] = append([]credential.Credential(nil), list...)
	}
	return out, nil
}

// ErrStoreDown is a convenience cause for persistence failures in tests.
var ErrStoreDown = errors.New("database is locked")

// Container builds container num (id == num) with racks of width x height
// filled row-major with addresses from base, e.g. "10.0.1." and start 1.
// perRack devices are placed in each rack.
func Container(num, racks, width, height, perRack int, base string, start int) *model.Container {
	c := &model.Container{ID: int64(num), Num: num, Name: fmt.Sprintf("C%d", num)}
	host := start
	for r := 0; r < racks; r++ {
		rack := model.Rack{
			ID:          int64(num*100 + r),
			ContainerID: int64(num),
			Name:        fmt.Sprintf("R%d", r+1),
			Index:       r,
			Width:       width,
			Height:      height,
		}
		for i := 0; i < perRack; i++ {
			rack.Devices = append(rack.Devices, model.Device{
				ID:     int64(host),
				IP:     fmt.Sprintf("%s%d", base, host),
				Row:    i / width,
				Column: i % width,
			})
			host++
		}
		c.Racks = append(c.Racks, rack)
	}
	return c
}

// Devices returns a healthy fake for every device in c.
func Devices(c *model.Container) []*FakeDevice {
	var out []*FakeDevice
	for _, p := range c.Placements() {
		out = append(out, NewFakeDevice(p.Device.IP))
	}
	return out
}
