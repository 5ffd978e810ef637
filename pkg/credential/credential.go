// Package credential resolves and tries the ordered username/password
// candidates used to authenticate against a device.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/newtron-network/fleetscan/pkg/util"
)

// Wildcard is the vendor key used when a vendor has no entry of its own.
const Wildcard = "*"

// Credential is one username/password candidate.
type Credential struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

func (c Credential) String() string {
	return c.Username + ":****"
}

// Resolver returns the ordered candidates for a vendor.
type Resolver interface {
	Resolve(vendor string) []Credential
}

// Set maps a vendor identifier to its ordered candidates. Order is
// significant: the first candidate that authenticates wins.
type Set map[string][]Credential

// Add appends c to the candidates for vendor.
func (s Set) Add(vendor string, c Credential) {
	key := strings.ToLower(vendor)
	s[key] = append(s[key], c)
}

// Resolve returns a copy of vendor's candidates, falling back to the
// wildcard entry. Vendor matching is case-insensitive.
func (s Set) Resolve(vendor string) []Credential {
	list, ok := s[strings.ToLower(vendor)]
	if !ok {
		list = s[Wildcard]
	}
	out := make([]Credential, len(list))
	copy(out, list)
	return out
}

// Vendors returns the vendor keys present in the set.
func (s Set) Vendors() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	return out
}

// TryFunc attempts a single candidate. A connection error ends the attempt
// loop; any other error counts as a rejection.
type TryFunc func(ctx context.Context, c Credential) error

// Authenticate tries candidates strictly in order and stops at the first
// success. Exhausting the list yields an *util.AuthError; a device that
// cannot be reached returns the connection error without trying the
// remaining candidates. The context is checked between attempts only; an
// attempt in progress is never interrupted.
func Authenticate(ctx context.Context, address, vendor string, candidates []Credential, try TryFunc) (Credential, error) {
	if len(candidates) == 0 {
		return Credential{}, &util.AuthError{Address: address, Vendor: vendor}
	}

	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return Credential{}, fmt.Errorf("authenticating %s: %w", address, util.ErrCancelled)
		}
		err := try(ctx, c)
		if err == nil {
			util.WithDevice(address).Debugf("authenticated as %s (candidate %d/%d)", c.Username, i+1, len(candidates))
			return c, nil
		}
		if errors.Is(err, util.ErrConnection) {
			return Credential{}, err
		}
		util.WithDevice(address).Debugf("candidate %s rejected: %v", c.Username, err)
	}

	return Credential{}, &util.AuthError{Address: address, Vendor: vendor, Attempts: len(candidates)}
}
