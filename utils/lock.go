package utils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a lock could not be taken within the wait budget.
var ErrLockTimeout = errors.New("lock wait timed out")

// Locker serializes work on a key. The returned unlock func is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// NewLocker prefers a Redis lease so several instances share one lock space,
// and falls back to an in-process lock when Redis is unavailable.
func NewLocker() Locker {
	if rc := GetRedis(); rc != nil {
		return NewRedisLocker(rc, 10*time.Second, 5*time.Second)
	}
	return NewLocalLocker()
}

// LocalLocker is a keyed mutex for a single process.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: map[string]*lockSlot{}}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-slot.ch
				l.release(key, slot)
			})
		}, nil
	case <-ctx.Done():
		l.release(key, slot)
		return nil, ctx.Err()
	}
}

func (l *LocalLocker) release(key string, slot *lockSlot) {
	l.mu.Lock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}

// RedisLocker holds a SET NX lease per key. The lease expires after ttl so a
// crashed holder cannot block a key forever.
type RedisLocker struct {
	rc   *redis.Client
	ttl  time.Duration
	wait time.Duration
}

func NewRedisLocker(rc *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{rc: rc, ttl: ttl, wait: wait}
}

// Only the holder's token may delete the lease.
var unlockScript = redis.NewScript(`if redis.call('GET', KEYS[1]) == ARGV[1] then return redis.call('DEL', KEYS[1]) end; return 0`)

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	backoff := 10 * time.Millisecond
	for {
		ok, err := l.rc.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					if err := unlockScript.Run(rctx, l.rc, []string{key}, token).Err(); err != nil {
						Sugar.Warnf("redis unlock failed key=%s err=%v", key, err)
					}
				})
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 100*time.Millisecond {
			backoff *= 2
		}
	}
}
