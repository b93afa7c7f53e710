package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dairyline/milk-distributor/internal/config"
	"github.com/dairyline/milk-distributor/internal/ledger"
)

func newRedisCache(t *testing.T) (*RedisOrderCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	rdb, err := ConnectRedis(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisOrderCache(rdb, zap.NewNop()), mr
}

func TestRedisOrderCache(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips a delivered order", func(t *testing.T) {
		c, mr := newRedisCache(t)
		order := deliveredOrder("order-1")

		c.Set(ctx, order)
		assert.True(t, mr.Exists("order:order-1"))

		got, ok := c.Get(ctx, "order-1")
		require.True(t, ok)
		assert.Equal(t, order.ID, got.ID)
		assert.Equal(t, order.OrderDate, got.OrderDate)
		require.NotNil(t, got.DeliveryDate)
		assert.Equal(t, *order.DeliveryDate, *got.DeliveryDate)
		assert.True(t, order.TotalPrice.Equal(got.TotalPrice))
		assert.Equal(t, ledger.StatusDelivered, got.Status)
	})

	t.Run("entries expire", func(t *testing.T) {
		c, mr := newRedisCache(t)
		c.Set(ctx, deliveredOrder("order-1"))

		mr.FastForward(25 * time.Hour)

		_, ok := c.Get(ctx, "order-1")
		assert.False(t, ok)
	})

	t.Run("undelivered order evicts", func(t *testing.T) {
		c, mr := newRedisCache(t)
		c.Set(ctx, deliveredOrder("order-1"))

		placed := deliveredOrder("order-1")
		placed.Status = ledger.StatusPlaced
		c.Set(ctx, placed)

		assert.False(t, mr.Exists("order:order-1"))
	})

	t.Run("corrupt entry is a miss", func(t *testing.T) {
		c, mr := newRedisCache(t)
		require.NoError(t, mr.Set("order:order-1", "{not json"))

		_, ok := c.Get(ctx, "order-1")
		assert.False(t, ok)
	})

	t.Run("unreachable redis is a miss", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		c := NewRedisOrderCache(rdb, zap.NewNop())
		mr.Close()

		_, ok := c.Get(ctx, "order-1")
		assert.False(t, ok)
		c.Delete(ctx, "order-1")
	})
}

func TestConnectRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := ConnectRedis(context.Background(), config.RedisConfig{Addr: addr})
	assert.ErrorContains(t, err, "redis ping failed")
}
