// Package store is the typed Redis store for live entities. Users, games
// and game requests are hashes; secondary indices are plain keys and sorted
// sets; per-entity advisory locks are SETNX+EXPIRE with a compare-and-delete
// release.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrLoginTaken is returned when a login is already claimed.
	ErrLoginTaken = errors.New("store: login taken")
	// ErrLockWait is returned when a lock could not be acquired within the
	// wait budget.
	ErrLockWait = errors.New("store: lock wait timed out")
	// ErrLockLost is returned when the lock's hold expired before the
	// critical section finished; whatever was written may have raced.
	ErrLockLost = errors.New("store: lock lost")
)

const (
	// DefaultLockHold is how long a lock survives a crashed holder.
	DefaultLockHold = 10 * time.Second
	// DefaultLockWait bounds blocking on a contended lock.
	DefaultLockWait = 10 * time.Second

	lockPollInterval = 50 * time.Millisecond
)

// releaseScript deletes the lock only if we still hold it. A zero reply
// means the hold expired and someone else may have entered.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type Store struct {
	rdb      *redis.Client
	lockHold time.Duration
	lockWait time.Duration
}

func New(rdb *redis.Client) *Store {
	return &Store{
		rdb:      rdb,
		lockHold: DefaultLockHold,
		lockWait: DefaultLockWait,
	}
}

func (s *Store) nextID(ctx context.Context, counter string) (int64, error) {
	id, err := s.rdb.Incr(ctx, counter).Result()
	if err != nil {
		return 0, fmt.Errorf("alloc id %s: %w", counter, err)
	}
	return id, nil
}

func lockKey(kind string, id int64) string {
	return fmt.Sprintf("lock:%s:%d", kind, id)
}

// WithLock runs fn while holding the advisory lock for (kind, id). Blocks up
// to the wait budget, polling; the lock auto-expires after the hold budget.
// If the hold expired before fn returned, ErrLockLost is reported so the
// caller's task can be re-enqueued.
func (s *Store) WithLock(ctx context.Context, kind string, id int64, fn func() error) error {
	key := lockKey(kind, id)
	token := uuid.NewString()

	deadline := time.Now().Add(s.lockWait)
	for {
		ok, err := s.rdb.SetNX(ctx, key, token, s.lockHold).Result()
		if err != nil {
			return fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrLockWait, key)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}

	fnErr := fn()

	released, err := releaseScript.Run(ctx, s.rdb, []string{key}, token).Int()
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	if released == 0 {
		return fmt.Errorf("%w: %s", ErrLockLost, key)
	}
	return nil
}

// WithUserLock and WithGameLock name the two entity kinds the engine locks.
// Nested acquisition order is Game first, then users by ascending id.
func (s *Store) WithUserLock(ctx context.Context, userID int64, fn func() error) error {
	return s.WithLock(ctx, "user", userID, fn)
}

func (s *Store) WithGameLock(ctx context.Context, gameID int64, fn func() error) error {
	return s.WithLock(ctx, "game", gameID, fn)
}
