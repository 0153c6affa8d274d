package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultCycleLockKey = "dbsync:cycle-lock"

// releaseScript deletes the key only while it still holds the caller's token,
// so an expired holder cannot release a lock taken over by another instance.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisCycleLock struct {
	client *redis.Client
	key    string
}

func NewRedisCycleLock(client *redis.Client, key string) *RedisCycleLock {
	if key == "" {
		key = DefaultCycleLockKey
	}
	return &RedisCycleLock{client: client, key: key}
}

func (l *RedisCycleLock) Acquire(ctx context.Context, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire cycle lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *RedisCycleLock) Release(ctx context.Context, token string) error {
	deleted, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release cycle lock: %w", err)
	}
	if deleted == 0 {
		return ErrLockNotHeld
	}
	return nil
}
