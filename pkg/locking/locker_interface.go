package locking

import (
	"context"
	"time"
)

// LockerInterface represents a Locker
type LockerInterface interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (LockInterface, error)
}

// LockInterface represents a Lock
type LockInterface interface {
	Key() string
	Release(ctx context.Context) error
}

// TodoKey is the lock key serializing changes of one todo
func TodoKey(todoID string) string {
	return "todo-" + todoID
}
