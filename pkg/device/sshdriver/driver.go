// Package sshdriver implements device.Client over SSH. A vendor profile,
// chosen from the device's SSH identification line, maps each accessor to a
// remote command and a jq expression over its output.
package sshdriver

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/newtron-network/fleetscan/pkg/device"
	"github.com/newtron-network/fleetscan/pkg/util"
)

const (
	DefaultPort           = 22
	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 15 * time.Second
)

// Config holds the process-wide transport settings.
type Config struct {
	Port           int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	return c
}

// Driver is the shared device client. It holds no per-device state and is
// safe for concurrent use.
type Driver struct {
	cfg      Config
	profiles *ProfileSet
}

var _ device.Client = (*Driver)(nil)

// New creates a driver.
func New(cfg Config, profiles *ProfileSet) *Driver {
	return &Driver{cfg: cfg.withDefaults(), profiles: profiles}
}

func (d *Driver) hostPort(address string) string {
	return net.JoinHostPort(address, strconv.Itoa(d.cfg.Port))
}

func (d *Driver) dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: d.cfg.ConnectTimeout}
	return dialer.DialContext(ctx, "tcp", d.hostPort(address))
}

// Connect probes the device's SSH identification line to select a vendor
// profile. No credentials are sent.
func (d *Driver) Connect(ctx context.Context, address string) (device.Session, error) {
	banner, err := d.probe(ctx, address)
	if err != nil {
		return nil, util.NewConnectionError(address, err)
	}

	profile := d.profiles.Match(banner)
	if profile == nil {
		return nil, util.NewProtocolError(address, "connect", "no driver profile matches "+strconv.Quote(banner))
	}
	util.WithDevice(address).Debugf("banner %q matched profile %s", banner, profile.Vendor)

	return &Session{
		address: address,
		profile: profile,
		driver:  d,
	}, nil
}

func (d *Driver) probe(ctx context.Context, address string) (string, error) {
	conn, err := d.dial(ctx, address)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(d.cfg.ConnectTimeout)); err != nil {
		return "", err
	}

	// Servers may send other lines before the identification string.
	r := bufio.NewReader(conn)
	for i := 0; i < 8; i++ {
		line, err := r.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(line, "SSH-") {
			return line, nil
		}
		if err != nil {
			return "", fmt.Errorf("reading SSH identification: %w", err)
		}
	}
	return "", fmt.Errorf("no SSH identification line")
}
