package jobs

import (
	"context"
	"sync"
)

// Token is a job's single-fire cancellation signal. Tasks observe it; only
// the job's owner fires it.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewToken returns an unfired token derived from parent.
func NewToken(parent context.Context) *Token {
	ctx, cancel := context.WithCancel(parent)
	return &Token{ctx: ctx, cancel: cancel}
}

// Cancel fires the token. It reports whether this call fired it; later
// calls are no-ops.
func (t *Token) Cancel() bool {
	fired := false
	t.once.Do(func() {
		fired = true
		t.cancel()
	})
	return fired
}

// Done is closed once the token fires.
func (t *Token) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Cancelled reports whether the token has fired.
func (t *Token) Cancelled() bool {
	return t.ctx.Err() != nil
}

// Context returns a context that is cancelled with the token.
func (t *Token) Context() context.Context {
	return t.ctx
}

// release frees the token's context without marking it fired by Cancel.
func (t *Token) release() {
	t.once.Do(func() {})
	t.cancel()
}
