package sshdriver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/newtron-network/fleetscan/pkg/device"
	"github.com/newtron-network/fleetscan/pkg/model"
	"github.com/newtron-network/fleetscan/pkg/util"
)

// Session is an SSH connection to one device. It is used by a single task
// and is not safe for concurrent use.
type Session struct {
	address string
	profile *Profile
	driver  *Driver
	client  *ssh.Client
}

var _ device.Session = (*Session)(nil)

func (s *Session) Address() string { return s.address }
func (s *Session) Vendor() string  { return s.profile.Vendor }

// Authenticate dials SSH with password (and keyboard-interactive) auth.
// Each call opens a fresh connection.
func (s *Session) Authenticate(ctx context.Context, username, password string) error {
	s.Close()

	cfg := &ssh.ClientConfig{
		User: username,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		// Miner firmware regenerates host keys on reflash; there is nothing stable to pin.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         s.driver.cfg.ConnectTimeout,
	}

	conn, err := s.driver.dial(ctx, s.address)
	if err != nil {
		return util.NewConnectionError(s.address, err)
	}
	if err := conn.SetDeadline(time.Now().Add(s.driver.cfg.ConnectTimeout)); err != nil {
		conn.Close()
		return util.NewConnectionError(s.address, err)
	}

	hostPort := s.driver.hostPort(s.address)
	c, chans, reqs, err := ssh.NewClientConn(conn, hostPort, cfg)
	if err != nil {
		conn.Close()
		return fmt.Errorf("SSH login %s@%s: %w", username, s.address, err)
	}
	conn.SetDeadline(time.Time{})

	s.client = ssh.NewClient(c, chans, reqs)
	return nil
}

// Close closes the SSH connection, if any.
func (s *Session) Close() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

// exec runs cmd in a new SSH session and returns the combined output.
// The read timeout bounds the whole command.
func (s *Session) exec(ctx context.Context, cmd string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("%s: not authenticated", s.address)
	}

	session, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("SSH session: %w", err)
	}
	defer session.Close()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := session.CombinedOutput(cmd)
		done <- result{out, err}
	}()

	timer := time.NewTimer(s.driver.cfg.ReadTimeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			return string(r.out), fmt.Errorf("SSH exec '%s': %w", cmd, r.err)
		}
		return string(r.out), nil
	case <-timer.C:
		return "", util.NewProtocolError(s.address, cmd, "timed out after "+s.driver.cfg.ReadTimeout.String())
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Session) read(ctx context.Context, name string) (interface{}, error) {
	q, ok := s.profile.Reads[name]
	if !ok {
		return nil, fmt.Errorf("%s on %s: %w", name, s.profile.Vendor, util.ErrUnsupported)
	}
	out, err := s.exec(ctx, q.Command)
	if err != nil {
		return nil, err
	}
	v, err := q.Extract(out)
	if err != nil {
		return nil, util.NewProtocolError(s.address, name, err.Error())
	}
	return v, nil
}

func (s *Session) write(ctx context.Context, name string, pools []model.Pool, profile string, enabled bool) error {
	tmpl, ok := s.profile.Writes[name]
	if !ok {
		return fmt.Errorf("%s on %s: %w", name, s.profile.Vendor, util.ErrUnsupported)
	}
	cmd, err := RenderWrite(tmpl, pools, profile, enabled)
	if err != nil {
		return err
	}
	util.WithDevice(s.address).Debugf("%s: %s", name, cmd)
	_, err = s.exec(ctx, cmd)
	return err
}

func (s *Session) readFloat(ctx context.Context, name string) (float64, error) {
	v, err := s.read(ctx, name)
	if err != nil {
		return 0, err
	}
	f, err := asFloat(v)
	if err != nil {
		return 0, util.NewProtocolError(s.address, name, err.Error())
	}
	return f, nil
}

func (s *Session) readString(ctx context.Context, name string) (string, error) {
	v, err := s.read(ctx, name)
	if err != nil {
		return "", err
	}
	str, err := asString(v)
	if err != nil {
		return "", util.NewProtocolError(s.address, name, err.Error())
	}
	return str, nil
}

func (s *Session) readBool(ctx context.Context, name string) (bool, error) {
	v, err := s.read(ctx, name)
	if err != nil {
		return false, err
	}
	b, err := asBool(v)
	if err != nil {
		return false, util.NewProtocolError(s.address, name, err.Error())
	}
	return b, nil
}

func (s *Session) Model(ctx context.Context) (string, error) {
	return s.readString(ctx, ReadModel)
}

func (s *Session) MAC(ctx context.Context) (string, error) {
	mac, err := s.readString(ctx, ReadMAC)
	return strings.ToUpper(mac), err
}

func (s *Session) Hashrate(ctx context.Context) (float64, error) {
	return s.readFloat(ctx, ReadHashrate)
}

func (s *Session) Temperature(ctx context.Context) (float64, error) {
	return s.readFloat(ctx, ReadTemperature)
}

func (s *Session) Fans(ctx context.Context) ([]int, error) {
	v, err := s.read(ctx, ReadFans)
	if err != nil {
		return nil, err
	}
	fans, err := asInts(v)
	if err != nil {
		return nil, util.NewProtocolError(s.address, ReadFans, err.Error())
	}
	return fans, nil
}

func (s *Session) Uptime(ctx context.Context) (float64, error) {
	return s.readFloat(ctx, ReadUptime)
}

func (s *Session) Pools(ctx context.Context) ([]model.Pool, error) {
	v, err := s.read(ctx, ReadPools)
	if err != nil {
		return nil, err
	}
	pools, err := asPools(v)
	if err != nil {
		return nil, util.NewProtocolError(s.address, ReadPools, err.Error())
	}
	return pools, nil
}

func (s *Session) Sleep(ctx context.Context) (bool, error) {
	return s.readBool(ctx, ReadSleep)
}

func (s *Session) Locate(ctx context.Context) (bool, error) {
	return s.readBool(ctx, ReadLocate)
}

func (s *Session) Power(ctx context.Context) (float64, error) {
	return s.readFloat(ctx, ReadPower)
}

func (s *Session) Nameplate(ctx context.Context) (float64, error) {
	return s.readFloat(ctx, ReadNameplate)
}

func (s *Session) Profile(ctx context.Context) (string, error) {
	return s.readString(ctx, ReadProfile)
}

func (s *Session) ErrorCodes(ctx context.Context) ([]string, error) {
	v, err := s.read(ctx, ReadErrors)
	if err != nil {
		return nil, err
	}
	codes, err := asStrings(v)
	if err != nil {
		return nil, util.NewProtocolError(s.address, ReadErrors, err.Error())
	}
	return codes, nil
}

// Logs returns the raw log output; no jq expression is applied.
func (s *Session) Logs(ctx context.Context) ([]byte, error) {
	q, ok := s.profile.Reads[ReadLogs]
	if !ok {
		return nil, fmt.Errorf("%s on %s: %w", ReadLogs, s.profile.Vendor, util.ErrUnsupported)
	}
	out, err := s.exec(ctx, q.Command)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func (s *Session) SetPools(ctx context.Context, pools []model.Pool) error {
	return s.write(ctx, WriteSetPools, pools, "", false)
}

func (s *Session) SetProfile(ctx context.Context, profile string) error {
	return s.write(ctx, WriteSetProfile, nil, profile, false)
}

func (s *Session) SetSleep(ctx context.Context, enabled bool) error {
	return s.write(ctx, WriteSetSleep, nil, "", enabled)
}

func (s *Session) SetLocate(ctx context.Context, enabled bool) error {
	return s.write(ctx, WriteSetLocate, nil, "", enabled)
}

// Reboot tolerates the connection dropping before an exit status arrives.
func (s *Session) Reboot(ctx context.Context) error {
	err := s.write(ctx, WriteReboot, nil, "", false)
	var missing *ssh.ExitMissingError
	if errors.As(err, &missing) {
		return nil
	}
	return err
}
