// internal/pkg/runlock/runlock_test.go
package runlock

import (
	"context"
	"testing"
	"time"

	xerrors "rebill-service/internal/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLock(t *testing.T) (*Lock, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return New(client, "test:lock", time.Minute), mr
}

func TestAcquireAndRelease(t *testing.T) {
	lock, _ := newTestLock(t)
	ctx := context.Background()

	token, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = lock.Acquire(ctx)
	assert.ErrorIs(t, err, xerrors.ErrConflict)

	require.NoError(t, lock.Release(ctx, token))

	_, err = lock.Acquire(ctx)
	assert.NoError(t, err, "lock must be free after release")
}

func TestReleaseWithWrongTokenKeepsLock(t *testing.T) {
	lock, _ := newTestLock(t)
	ctx := context.Background()

	_, err := lock.Acquire(ctx)
	require.NoError(t, err)

	require.NoError(t, lock.Release(ctx, "not-the-token"))

	_, err = lock.Acquire(ctx)
	assert.ErrorIs(t, err, xerrors.ErrConflict, "wrong token must not release the lock")
}

func TestLockExpires(t *testing.T) {
	lock, mr := newTestLock(t)
	ctx := context.Background()

	_, err := lock.Acquire(ctx)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = lock.Acquire(ctx)
	assert.NoError(t, err, "expired lock must be acquirable")
}
