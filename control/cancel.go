package control

import "sync"

// CancelToken communicates cancellation to a controlled operation. It
// follows the same shape as the W3C DOM AbortSignal: a one-shot, irreversible
// flag plus a reason, with callbacks fired once on cancellation.
//
// Cancellation is accepted but best-effort: nothing in this package checks a
// CancelToken on the caller's behalf. A cancelled token never short-circuits
// a scheduling decision by itself — it only becomes observable to code that
// explicitly calls Cancelled/Reason/OnCancel. This is a deliberate choice
// (see package control's companion design notes): the scheduler already
// owns the only form of "stopping the world" that matters for this engine —
// terminating the iteration — so token-driven cancellation layers a
// cooperative, inspectable signal on top rather than a second shutdown path.
type CancelToken struct {
	mu        sync.Mutex
	handlers  []func(reason any)
	reason    any
	cancelled bool
}

func newCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancelled reports whether the token has been cancelled.
func (t *CancelToken) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Reason returns the cancellation reason, or nil if not yet cancelled.
func (t *CancelToken) Reason() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// OnCancel registers a callback invoked once cancellation occurs. If the
// token is already cancelled, the callback runs immediately, synchronously,
// with the existing reason.
func (t *CancelToken) OnCancel(handler func(reason any)) {
	if handler == nil {
		return
	}
	t.mu.Lock()
	if t.cancelled {
		reason := t.reason
		t.mu.Unlock()
		handler(reason)
		return
	}
	t.handlers = append(t.handlers, handler)
	t.mu.Unlock()
}

func (t *CancelToken) cancel(reason any) {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	t.reason = reason
	handlers := make([]func(any), len(t.handlers))
	copy(handlers, t.handlers)
	t.mu.Unlock()

	for _, h := range handlers {
		h(reason)
	}
}

// CancelSource produces and owns a CancelToken, and is the only way to
// cancel it.
type CancelSource struct {
	token *CancelToken
}

// NewCancelSource constructs a CancelSource with a fresh, uncancelled token.
func NewCancelSource() *CancelSource {
	return &CancelSource{token: newCancelToken()}
}

// Token returns the source's CancelToken. Always the same value.
func (c *CancelSource) Token() *CancelToken {
	return c.token
}

// Cancel cancels the source's token with reason. A nil reason is replaced
// with CancelledError{}. Idempotent: subsequent calls are no-ops.
func (c *CancelSource) Cancel(reason any) {
	if reason == nil {
		reason = &CancelledError{}
	}
	c.token.cancel(reason)
}

// CancelledError is the default reason used when Cancel is called with a
// nil reason.
type CancelledError struct{}

func (e *CancelledError) Error() string { return "control: cancelled" }

// CancelAny returns a CancelToken that cancels as soon as any of tokens
// cancels, carrying that token's reason. If any input is already cancelled,
// the returned token is cancelled immediately. An empty input never
// cancels.
func CancelAny(tokens ...*CancelToken) *CancelToken {
	composite := newCancelToken()
	if len(tokens) == 0 {
		return composite
	}

	for _, tok := range tokens {
		if tok == nil {
			continue
		}
		if tok.Cancelled() {
			composite.cancel(tok.Reason())
			return composite
		}
	}

	var once sync.Once
	for _, tok := range tokens {
		if tok == nil {
			continue
		}
		tok.OnCancel(func(reason any) {
			once.Do(func() { composite.cancel(reason) })
		})
	}
	return composite
}
