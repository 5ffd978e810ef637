// Package testutil provides fakes and fixtures shared by package tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/newtron-network/fleetscan/pkg/credential"
	"github.com/newtron-network/fleetscan/pkg/device"
	"github.com/newtron-network/fleetscan/pkg/model"
	"github.com/newtron-network/fleetscan/pkg/util"
)

// Read names accepted by FakeDevice.Fail.
const (
	ReadModel       = "model"
	ReadMAC         = "mac"
	ReadHashrate    = "hashrate"
	ReadTemperature = "temperature"
	ReadFans        = "fans"
	ReadUptime      = "uptime"
	ReadPools       = "pools"
	ReadSleep       = "sleep"
	ReadLocate      = "locate"
	ReadPower       = "power"
	ReadNameplate   = "nameplate"
	ReadProfile     = "profile"
	ReadErrorCodes  = "errors"
	ReadLogs        = "logs"
	WriteReboot     = "reboot"
	WritePools      = "setpools"
	WriteProfile    = "setprofile"
	WriteSleep      = "setsleep"
	WriteLocate     = "setlocate"
)

var errInjected = errors.New("injected failure")

// FakeDevice is the simulated state of one miner. Mutations are reflected
// in later reads so command-then-refresh flows can be observed.
type FakeDevice struct {
	mu sync.Mutex

	Address     string
	Vendor      string
	Model       string
	MAC         string
	Hashrate    float64
	Temperature float64
	Fans        []int
	Uptime      float64
	Power       float64
	Nameplate   float64
	Pools       []model.Pool
	Sleep       bool
	Locate      bool
	Profile     string
	ErrorCodes  []string
	Logs        []byte

	// Accept is the only credential the device takes. The zero value
	// accepts anything.
	Accept credential.Credential
	// Unreachable makes Connect fail.
	Unreachable bool
	// ErrorCodeFailures is the number of ErrorCodes calls that fail before
	// one succeeds.
	ErrorCodeFailures int

	fail     map[string]bool
	attempts []credential.Credential
	calls    map[string]int
	reboots  int
}

// NewFakeDevice returns a healthy antminer at address.
func NewFakeDevice(address string) *FakeDevice {
	return &FakeDevice{
		Address:     address,
		Vendor:      "antminer",
		Model:       "S19-88",
		MAC:         "AA:BB:CC:DD:EE:FF",
		Hashrate:    95,
		Temperature: 65,
		Fans:        []int{5400, 5520},
		Uptime:      3600,
		Power:       3250,
		Nameplate:   100,
		Pools: []model.Pool{
			{URL: "stratum+tcp://pool.example:3333", Username: "w1"},
		},
		Profile: "normal",
		Logs:    []byte("boot ok\n"),
	}
}

// Fail makes the named operation return an error.
func (d *FakeDevice) Fail(ops ...string) *FakeDevice {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail == nil {
		d.fail = make(map[string]bool)
	}
	for _, op := range ops {
		d.fail[op] = true
	}
	return d
}

// Attempts returns the credentials tried against the device, in order.
func (d *FakeDevice) Attempts() []credential.Credential {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]credential.Credential(nil), d.attempts...)
}

// Calls returns how many times an operation was invoked.
func (d *FakeDevice) Calls(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[op]
}

// Reboots returns how many reboots the device received.
func (d *FakeDevice) Reboots() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reboots
}

// CurrentPools returns the pools the device holds now.
func (d *FakeDevice) CurrentPools() []model.Pool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Pool(nil), d.Pools...)
}

func (d *FakeDevice) call(op string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.calls == nil {
		d.calls = make(map[string]int)
	}
	d.calls[op]++
	if d.fail[op] {
		return fmt.Errorf("%s on %s: %w", op, d.Address, errInjected)
	}
	return nil
}

// FakeClient serves FakeDevices by address. When Gate is non-nil every
// Connect blocks until Gate is closed, which lets tests hold tasks in flight.
type FakeClient struct {
	mu      sync.Mutex
	devices map[string]*FakeDevice
	Gate    chan struct{}
	waiting int
	opened  int
	closed  int
}

// NewFakeClient registers devices by address.
func NewFakeClient(devices ...*FakeDevice) *FakeClient {
	c := &FakeClient{devices: make(map[string]*FakeDevice)}
	for _, d := range devices {
		c.devices[d.Address] = d
	}
	return c
}

// Device returns the fake registered at address.
func (c *FakeClient) Device(address string) *FakeDevice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.devices[address]
}

// Sessions returns the number of sessions opened and closed.
func (c *FakeClient) Sessions() (opened, closed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened, c.closed
}

// Waiting returns how many Connect calls have reached the gate.
func (c *FakeClient) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiting
}

func (c *FakeClient) Connect(ctx context.Context, address string) (device.Session, error) {
	if c.Gate != nil {
		c.mu.Lock()
		c.waiting++
		c.mu.Unlock()
		<-c.Gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.devices[address]
	if !ok || d.Unreachable {
		return nil, util.NewConnectionError(address, errors.New("no route to host"))
	}
	c.opened++
	return &FakeSession{dev: d, client: c}, nil
}

// FakeSession implements device.Session on top of a FakeDevice.
type FakeSession struct {
	dev    *FakeDevice
	client *FakeClient
	authed bool
}

var _ device.Session = (*FakeSession)(nil)

func (s *FakeSession) Address() string { return s.dev.Address }
func (s *FakeSession) Vendor() string  { return s.dev.Vendor }

func (s *FakeSession) Authenticate(_ context.Context, username, password string) error {
	d := s.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	c := credential.Credential{Username: username, Password: password}
	d.attempts = append(d.attempts, c)
	if d.Accept != (credential.Credential{}) && d.Accept != c {
		return errors.New("access denied")
	}
	s.authed = true
	return nil
}

func (s *FakeSession) Close() error {
	s.client.mu.Lock()
	s.client.closed++
	s.client.mu.Unlock()
	return nil
}

func (s *FakeSession) read(op string) error {
	if !s.authed {
		return errors.New("not authenticated")
	}
	return s.dev.call(op)
}

func (s *FakeSession) Model(context.Context) (string, error) {
	if err := s.read(ReadModel); err != nil {
		return "", err
	}
	return s.dev.Model, nil
}

func (s *FakeSession) MAC(context.Context) (string, error) {
	if err := s.read(ReadMAC); err != nil {
		return "", err
	}
	return s.dev.MAC, nil
}

func (s *FakeSession) Hashrate(context.Context) (float64, error) {
	if err := s.read(ReadHashrate); err != nil {
		return 0, err
	}
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	if s.dev.Sleep {
		return 0, nil
	}
	return s.dev.Hashrate, nil
}

func (s *FakeSession) Temperature(context.Context) (float64, error) {
	if err := s.read(ReadTemperature); err != nil {
		return 0, err
	}
	return s.dev.Temperature, nil
}

func (s *FakeSession) Fans(context.Context) ([]int, error) {
	if err := s.read(ReadFans); err != nil {
		return nil, err
	}
	return append([]int(nil), s.dev.Fans...), nil
}

func (s *FakeSession) Uptime(context.Context) (float64, error) {
	if err := s.read(ReadUptime); err != nil {
		return 0, err
	}
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	return s.dev.Uptime, nil
}

func (s *FakeSession) Pools(context.Context) ([]model.Pool, error) {
	if err := s.read(ReadPools); err != nil {
		return nil, err
	}
	return s.dev.CurrentPools(), nil
}

func (s *FakeSession) Sleep(context.Context) (bool, error) {
	if err := s.read(ReadSleep); err != nil {
		return false, err
	}
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	return s.dev.Sleep, nil
}

func (s *FakeSession) Locate(context.Context) (bool, error) {
	if err := s.read(ReadLocate); err != nil {
		return false, err
	}
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	return s.dev.Locate, nil
}

func (s *FakeSession) Power(context.Context) (float64, error) {
	if err := s.read(ReadPower); err != nil {
		return 0, err
	}
	return s.dev.Power, nil
}

func (s *FakeSession) Nameplate(context.Context) (float64, error) {
	if err := s.read(ReadNameplate); err != nil {
		return 0, err
	}
	return s.dev.Nameplate, nil
}

func (s *FakeSession) Profile(context.Context) (string, error) {
	if err := s.read(ReadProfile); err != nil {
		return "", err
	}
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	return s.dev.Profile, nil
}

func (s *FakeSession) ErrorCodes(context.Context) ([]string, error) {
	if err := s.read(ReadErrorCodes); err != nil {
		return nil, err
	}
	d := s.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ErrorCodeFailures > 0 {
		d.ErrorCodeFailures--
		return nil, errors.New("error log busy")
	}
	return append([]string(nil), d.ErrorCodes...), nil
}

func (s *FakeSession) Logs(context.Context) ([]byte, error) {
	if err := s.read(ReadLogs); err != nil {
		return nil, err
	}
	return s.dev.Logs, nil
}

func (s *FakeSession) SetPools(_ context.Context, pools []model.Pool) error {
	if err := s.read(WritePools); err != nil {
		return err
	}
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	s.dev.Pools = append([]model.Pool(nil), pools...)
	return nil
}

func (s *FakeSession) SetProfile(_ context.Context, profile string) error {
	if err := s.read(WriteProfile); err != nil {
		return err
	}
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	s.dev.Profile = profile
	return nil
}

func (s *FakeSession) SetSleep(_ context.Context, enabled bool) error {
	if err := s.read(WriteSleep); err != nil {
		return err
	}
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	s.dev.Sleep = enabled
	return nil
}

func (s *FakeSession) SetLocate(_ context.Context, enabled bool) error {
	if err := s.read(WriteLocate); err != nil {
		return err
	}
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	s.dev.Locate = enabled
	return nil
}

func (s *FakeSession) Reboot(context.Context) error {
	if err := s.read(WriteReboot); err != nil {
		return err
	}
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	s.dev.reboots++
	s.dev.Uptime = 0
	return nil
}
