package lock

import (
	"context"
	"sync"
)

// Local is an in-process keyed lock.  Each key owns a one-slot channel;
// acquiring sends into it and releasing drains it, so a waiter can give up
// when its context ends.  Slots are dropped once no holder or waiter is
// left.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocal returns an empty keyed lock.
func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	s := l.ref(key)
	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, s)
		return nil, ErrNotAcquired
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(key, s)
		})
	}, nil
}

func (l *Local) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Local) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// size reports how many keys are tracked.
func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
