package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	for _, addr := range []string{mr.Addr(), "redis://" + mr.Addr() + "/0"} {
		client, err := ConnectRedis(addr)
		require.NoError(t, err, addr)

		require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
		got, err := client.Get(context.Background(), "k").Result()
		require.NoError(t, err)
		assert.Equal(t, "v", got)
		require.NoError(t, client.Close())
	}
}

func TestConnectRedisFailures(t *testing.T) {
	_, err := ConnectRedis("redis://%zz")
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = ConnectRedis(addr)
	assert.Error(t, err)
}
