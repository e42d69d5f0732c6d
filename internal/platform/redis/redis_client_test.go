package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Addr(t *testing.T) {
	t.Parallel()

	cfg := Config{Host: "cache.internal", Port: "6380"}

	assert.Equal(t, "cache.internal:6380", cfg.Addr())
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	t.Parallel()

	// port 1 on loopback refuses connections
	rdb, err := NewRedisClient(context.Background(), Config{Host: "127.0.0.1", Port: "1"})

	assert.Error(t, err)
	assert.Nil(t, rdb)
}

func TestNewRedisClient_Success(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	mr.RequireAuth("secret")

	rdb, err := NewRedisClient(context.Background(), Config{Host: mr.Host(), Port: mr.Port(), Password: "secret"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	require.NoError(t, rdb.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewRedisClient_WrongPassword(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	mr.RequireAuth("secret")

	rdb, err := NewRedisClient(context.Background(), Config{Host: mr.Host(), Port: mr.Port(), Password: "wrong"})

	assert.Error(t, err)
	assert.Nil(t, rdb)
}
