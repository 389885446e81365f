package subscription

import (
	"context"
	"sync"
)

// UnlockFunc releases a previously acquired lock.
type UnlockFunc func()

// Locker serializes read-modify-write cycles per user so two concurrent
// credit-consuming operations cannot both read the same balance before
// either writes. Operations on different keys proceed in parallel.
//
// The default in-process implementation covers single-node deployments;
// multi-instance deployments should use a shared lock (see pkg/redislock).
type Locker interface {
	// Lock blocks until the key lock is acquired or ctx is done.
	Lock(ctx context.Context, key string) (UnlockFunc, error)
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

// NewKeyedMutex returns an in-process Locker with one mutex per key.
// Idle entries are removed once the last holder releases, so memory stays
// proportional to the number of concurrently locked keys.
func NewKeyedMutex() Locker {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

func (k *keyedMutex) Lock(ctx context.Context, key string) (UnlockFunc, error) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyLock{sem: make(chan struct{}, 1)}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
		return func() {
			<-entry.sem
			k.release(key, entry)
		}, nil
	case <-ctx.Done():
		k.release(key, entry)
		return nil, ctx.Err()
	}
}

func (k *keyedMutex) release(key string, entry *keyLock) {
	k.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}
