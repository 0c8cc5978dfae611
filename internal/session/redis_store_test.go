package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real server when INKPOST_TEST_REDIS_ADDR is set.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("INKPOST_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("INKPOST_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := DialRedis(ctx, addr, "", 0)
	require.NoError(t, err)
	store := NewRedisStore(rdb)
	defer store.Close()

	id := NewID()
	st := State{IdentityID: 9, Username: "carol"}
	require.NoError(t, store.Save(ctx, id, st, time.Minute))

	got, ok, err := store.Load(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, st, got)

	require.NoError(t, store.Delete(ctx, id))
	_, ok, err = store.Load(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}
