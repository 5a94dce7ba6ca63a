package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

const lockPrefix = "storyforge:lock:"

// Lock is a Redis SETNX lease, guarding a thread so two producers never
// render the same video. Every write carries this instance's owner token,
// so release and extend only ever touch a lease that is still ours.
type Lock struct {
	client  *redis.Client
	ownerID string
}

// NewLock creates a lock with a fresh owner token.
func NewLock(client *redis.Client) *Lock {
	return &Lock{
		client:  client,
		ownerID: newOwnerID(),
	}
}

// newOwnerID builds the owner token as hostname:pid:random.
func newOwnerID() string {
	hostname, _ := os.Hostname()
	randomBytes := make([]byte, 8)
	_, _ = rand.Read(randomBytes)
	return fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), hex.EncodeToString(randomBytes))
}

// Acquire takes the named lease for ttl. False without error means another
// instance holds it.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	key := lockPrefix + name
	result, err := l.client.SetNX(ctx, key, l.ownerID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return result, nil
}

// releaseScript deletes only a lease still carrying our token. Once the
// lease expires and another instance takes it, the delete is a no-op.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Release gives up the named lease. Releasing a lease we no longer hold,
// or one that already expired, is not an error.
func (l *Lock) Release(ctx context.Context, name string) error {
	key := lockPrefix + name
	_, err := releaseScript.Run(ctx, l.client, []string{key}, l.ownerID).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// extendScript bumps the TTL only on a lease still carrying our token.
var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Extend pushes out the TTL of a lease this instance holds. A lease that
// expired and moved to another owner cannot be extended.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	key := lockPrefix + name
	result, err := extendScript.Run(ctx, l.client, []string{key}, l.ownerID, ttl.Milliseconds()).Result()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if result.(int64) == 0 {
		return fmt.Errorf("lock %s not held by this instance", name)
	}
	return nil
}

// Ping reports whether the Redis backend is reachable.
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID exposes this instance's owner token.
func (l *Lock) OwnerID() string {
	return l.ownerID
}
