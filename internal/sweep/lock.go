package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker provides a cross-process mutual exclusion lease.
type Locker interface {
	// Acquire takes the lease for ttl. ok is false when another holder has it.
	Acquire(ctx context.Context, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker leases a key with SET NX PX.
type RedisLocker struct {
	client *redis.Client
	key    string
}

// NewRedisLocker creates a locker on key.
func NewRedisLocker(client *redis.Client, key string) *RedisLocker {
	if key == "" {
		key = "hr:sweep:lock"
	}
	return &RedisLocker{client: client, key: key}
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, ttl time.Duration) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
	}
	return release, true, nil
}

// MemoryLocker is a process-local Locker honouring ttl expiry.
type MemoryLocker struct {
	mu      sync.Mutex
	token   string
	expires time.Time
	now     func() time.Time
}

// NewMemoryLocker creates an unlocked locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{now: time.Now}
}

// Acquire implements Locker.
func (l *MemoryLocker) Acquire(_ context.Context, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token != "" && l.now().Before(l.expires) {
		return nil, false, nil
	}
	token := uuid.NewString()
	l.token, l.expires = token, l.now().Add(ttl)
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.token == token {
			l.token = ""
		}
		return nil
	}, true, nil
}
