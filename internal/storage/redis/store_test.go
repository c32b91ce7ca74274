package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/slogan-gen/internal/storage/redis"
	"github.com/steveyegge/slogan-gen/internal/storage/storagetest"
	"github.com/steveyegge/slogan-gen/internal/types"
)

func newTestStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := redis.New(mr.Addr(), "", 0, opts...)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisStoreContract(t *testing.T) {
	store, _ := newTestStore(t)
	storagetest.RunContract(t, store)
}

func TestRedisStoreTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, redis.WithTTL(time.Hour))

	kept := storagetest.NewSession(t, "kept", 0, true)
	require.NoError(t, store.SaveSession(ctx, kept))

	mr.FastForward(2 * time.Hour)

	_, err := store.GetSession(ctx, kept.ID())
	assert.ErrorIs(t, err, types.ErrNotFound)

	// The stale index entry is dropped on the next listing
	list, err := store.ListSessions(ctx, 0, "")
	require.NoError(t, err)
	assert.Empty(t, list)

	members, err := mr.ZMembers(redis.DefaultPrefix + "index")
	if err == nil {
		assert.Empty(t, members)
	}
}

func TestRedisStorePrefix(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, redis.WithPrefix("test:"))

	s := storagetest.NewSession(t, "prefixed", 0, true)
	require.NoError(t, store.SaveSession(ctx, s))

	assert.True(t, mr.Exists("test:"+s.ID()))
	assert.False(t, mr.Exists(redis.DefaultPrefix+s.ID()))
}

func TestRedisStorePingFailsWhenServerGone(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}
