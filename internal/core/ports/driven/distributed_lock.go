package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates work across instances so two workers never
// produce a video for the same thread at once.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns true if acquired, false if another instance holds it.
	// The lock expires on its own after the TTL.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock. Best effort; safe to call when the
	// lock is not held or has already expired.
	Release(ctx context.Context, name string) error

	// Extend extends the TTL of a currently held lock. Returns an error
	// if this instance does not hold the lock.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
