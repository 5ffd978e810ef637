// Package device defines the authenticate-then-operate contract the job core
// uses to talk to miners. Transports live in subpackages.
package device

import (
	"context"
	"errors"

	"github.com/newtron-network/fleetscan/pkg/credential"
	"github.com/newtron-network/fleetscan/pkg/model"
	"github.com/newtron-network/fleetscan/pkg/util"
)

// Client opens sessions to devices. One client is shared by every task.
type Client interface {
	Connect(ctx context.Context, address string) (Session, error)
}

// Reader holds the idempotent accessors. Each may fail independently.
type Reader interface {
	Model(ctx context.Context) (string, error)
	MAC(ctx context.Context) (string, error)
	Hashrate(ctx context.Context) (float64, error)
	Temperature(ctx context.Context) (float64, error)
	Fans(ctx context.Context) ([]int, error)
	Uptime(ctx context.Context) (float64, error)
	Pools(ctx context.Context) ([]model.Pool, error)
	Sleep(ctx context.Context) (bool, error)
	Locate(ctx context.Context) (bool, error)
	Power(ctx context.Context) (float64, error)
	Nameplate(ctx context.Context) (float64, error)
	Profile(ctx context.Context) (string, error)
	ErrorCodes(ctx context.Context) ([]string, error)
	Logs(ctx context.Context) ([]byte, error)
}

// Writer holds the mutating operations.
type Writer interface {
	SetPools(ctx context.Context, pools []model.Pool) error
	SetProfile(ctx context.Context, profile string) error
	SetSleep(ctx context.Context, enabled bool) error
	SetLocate(ctx context.Context, enabled bool) error
	Reboot(ctx context.Context) error
}

// Session is a connection to one device. Reader and Writer calls are only
// valid after Authenticate succeeds.
type Session interface {
	Reader
	Writer

	Address() string
	// Vendor identifies the device make; it keys credential lookup.
	Vendor() string
	Authenticate(ctx context.Context, username, password string) error
	Close() error
}

// Login connects to address and authenticates with the vendor's candidate
// credentials. The returned session is owned by the caller.
//
// ctx is polled between credential attempts; the device calls themselves
// run detached from its cancellation and are bounded by the client's
// timeouts instead.
func Login(ctx context.Context, client Client, address string, creds credential.Resolver) (Session, error) {
	ioCtx := context.WithoutCancel(ctx)

	sess, err := client.Connect(ioCtx, address)
	if err != nil {
		var connErr *util.ConnectionError
		if !errors.As(err, &connErr) {
			err = util.NewConnectionError(address, err)
		}
		return nil, err
	}

	vendor := sess.Vendor()
	_, err = credential.Authenticate(ctx, address, vendor, creds.Resolve(vendor),
		func(_ context.Context, c credential.Credential) error {
			return sess.Authenticate(ioCtx, c.Username, c.Password)
		})
	if err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}
