// Package lock provides the per-session mutual exclusion used by the booking
// commit protocol.  A Locker hands out one holder per key at a time; waiting
// is bounded by the caller's context.
package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired is returned when the context ends before the lock could be
// taken.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker grants exclusive ownership of a key.  The returned release func
// must be called exactly once; calling it again is a no-op.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
