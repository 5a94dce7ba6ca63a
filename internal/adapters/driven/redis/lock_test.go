package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return client
}

func TestLockOwnerIDUnique(t *testing.T) {
	client := setupTestRedis(t)

	lock1 := NewLock(client)
	lock2 := NewLock(client)

	if lock1.OwnerID() == "" {
		t.Fatal("expected non-empty owner ID")
	}
	if lock1.OwnerID() == lock2.OwnerID() {
		t.Errorf("expected unique owner IDs, got same: %s", lock1.OwnerID())
	}
}

func TestLockAcquire(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	lock1 := NewLock(client)
	lock2 := NewLock(client)

	acquired, err := lock1.Acquire(ctx, "produce", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Fatal("expected to acquire lock")
	}

	// Held locks cannot be acquired, not even by the holder
	acquired, err = lock2.Acquire(ctx, "produce", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acquired {
		t.Error("expected second instance to fail")
	}

	acquired, err = lock1.Acquire(ctx, "produce", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acquired {
		t.Error("expected reentrant acquire to fail")
	}

	// Other names are independent
	acquired, err = lock1.Acquire(ctx, "scheduler", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected to acquire a differently named lock")
	}
}

func TestLockReleaseOnlyByOwner(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	lock1 := NewLock(client)
	lock2 := NewLock(client)

	if _, err := lock1.Acquire(ctx, "produce", 10*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A different owner releasing is a no-op
	if err := lock2.Release(ctx, "produce"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	acquired, err := lock2.Acquire(ctx, "produce", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acquired {
		t.Fatal("expected lock to still be held after foreign release")
	}

	// The owner releasing frees the lock
	if err := lock1.Release(ctx, "produce"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	acquired, err = lock2.Acquire(ctx, "produce", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acquired {
		t.Error("expected to acquire lock after owner release")
	}
}

func TestLockReleaseNotHeld(t *testing.T) {
	client := setupTestRedis(t)

	lock := NewLock(client)

	if err := lock.Release(context.Background(), "produce"); err != nil {
		t.Errorf("unexpected error releasing unheld lock: %v", err)
	}
}

func TestLockExtend(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	lock1 := NewLock(client)
	lock2 := NewLock(client)

	if _, err := lock1.Acquire(ctx, "produce", 1*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := lock1.Extend(ctx, "produce", 10*time.Second); err != nil {
		t.Fatalf("unexpected error on extend: %v", err)
	}

	if err := lock2.Extend(ctx, "produce", 10*time.Second); err == nil {
		t.Error("expected error when a different owner extends")
	}

	if err := lock1.Extend(ctx, "other", 10*time.Second); err == nil {
		t.Error("expected error when extending an unheld lock")
	}
}

func TestLockPing(t *testing.T) {
	client := setupTestRedis(t)

	lock := NewLock(client)

	if err := lock.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}
}
