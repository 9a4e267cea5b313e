// internal/pkg/runlock/runlock.go
package runlock

import (
	"context"
	"fmt"
	"time"

	xerrors "rebill-service/internal/pkg/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when it still holds our token, so
// an expired lock reacquired by another runner is never released by us.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// Lock is a redis-backed advisory lock for billing runs. It keeps two
// schedulers from doing redundant work; it is not what guarantees
// at-most-once charging (the store's conditional updates do).
type Lock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func New(client *redis.Client, key string, ttl time.Duration) *Lock {
	if key == "" {
		key = "billing:run:lock"
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Lock{client: client, key: key, ttl: ttl}
}

// Acquire takes the lock and returns the release token. It returns
// xerrors.ErrConflict when another holder owns the lock.
func (l *Lock) Acquire(ctx context.Context) (string, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return "", xerrors.ErrConflict
	}
	return token, nil
}

// Release gives up the lock if the token still owns it.
func (l *Lock) Release(ctx context.Context, token string) error {
	if err := l.client.Eval(ctx, releaseScript, []string{l.key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}
