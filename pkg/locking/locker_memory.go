package locking

import (
	"context"
	"sync"
	"time"
)

// LockerMemory is a process local LockerInterface, the ttl is ignored
type LockerMemory struct {
	locks sync.Map
}

// NewLockerMemory builds a new LockerMemory instance
func NewLockerMemory() *LockerMemory {
	return &LockerMemory{}
}

// Acquire blocks until the lock for key is free or ctx is done
func (l *LockerMemory) Acquire(ctx context.Context, key string, _ time.Duration) (LockInterface, error) {
	lock := l.getLock(key)

	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &LockMemory{
		key: key,
		release: func() {
			<-lock
		},
	}, nil
}

func (l *LockerMemory) getLock(key string) chan struct{} {
	lock, _ := l.locks.LoadOrStore(key, make(chan struct{}, 1))
	return lock.(chan struct{})
}

// LockMemory is a memory implementation of a LockInterface
type LockMemory struct {
	key     string
	release func()
	once    sync.Once
}

// Key returns a key
func (l *LockMemory) Key() string {
	return l.key
}

// Release releases a LockMemory, releasing twice is a no-op
func (l *LockMemory) Release(_ context.Context) error {
	l.once.Do(l.release)
	return nil
}
