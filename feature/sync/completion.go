package sync

import "sync/atomic"

// Completion guards the one-time post-sync step. It replaces a bare
// module-level "sync done" boolean with an explicit state object owned by
// the engine: the guarded function runs exactly once per process lifetime,
// repeated calls are no-ops.
type Completion struct {
	done atomic.Bool
}

// CompleteOnce runs fn if and only if this is the first call. It reports
// whether fn ran, and fn's error when it did.
func (c *Completion) CompleteOnce(fn func() error) (bool, error) {
	if !c.done.CompareAndSwap(false, true) {
		return false, nil
	}
	return true, fn()
}

// Done reports whether the completion step has run.
func (c *Completion) Done() bool {
	return c.done.Load()
}
