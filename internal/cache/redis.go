package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dairyline/milk-distributor/internal/config"
	"github.com/dairyline/milk-distributor/internal/ledger"
)

const (
	orderKeyPrefix = "order:"
	defaultTTL     = 24 * time.Hour
)

func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

// RedisOrderCache shares delivered orders between instances. Redis errors
// are logged and treated as misses.
type RedisOrderCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisOrderCache(rdb *redis.Client, logger *zap.Logger) *RedisOrderCache {
	return &RedisOrderCache{
		redis:  rdb,
		ttl:    defaultTTL,
		logger: logger,
	}
}

func orderKey(orderID string) string {
	return orderKeyPrefix + orderID
}

func (c *RedisOrderCache) Get(ctx context.Context, orderID string) (*ledger.Order, bool) {
	data, err := c.redis.Get(ctx, orderKey(orderID)).Bytes()
	switch {
	case err == nil:
	case errors.Is(err, redis.Nil):
		return nil, false
	default:
		c.logger.Warn("redis error, falling back to database", zap.String("order_id", orderID), zap.Error(err))
		return nil, false
	}

	var order ledger.Order
	if err := json.Unmarshal(data, &order); err != nil {
		c.logger.Warn("failed to unmarshal cached order", zap.String("order_id", orderID), zap.Error(err))
		return nil, false
	}
	return &order, true
}

func (c *RedisOrderCache) Set(ctx context.Context, order *ledger.Order) {
	if !order.Status.IsTerminal() {
		c.Delete(ctx, order.ID)
		return
	}

	data, err := json.Marshal(order)
	if err != nil {
		c.logger.Warn("failed to marshal order", zap.String("order_id", order.ID), zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, orderKey(order.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to cache order", zap.String("order_id", order.ID), zap.Error(err))
	}
}

func (c *RedisOrderCache) Delete(ctx context.Context, orderID string) {
	if err := c.redis.Del(ctx, orderKey(orderID)).Err(); err != nil {
		c.logger.Warn("failed to delete cached order", zap.String("order_id", orderID), zap.Error(err))
	}
}
