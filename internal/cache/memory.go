package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dairyline/milk-distributor/internal/ledger"
	"github.com/dairyline/milk-distributor/internal/metrics"
)

// MemoryOrderCache keeps delivered orders in process memory.
type MemoryOrderCache struct {
	mu     sync.RWMutex
	cache  map[string]*ledger.Order
	logger *zap.Logger
}

func NewMemoryOrderCache(logger *zap.Logger) *MemoryOrderCache {
	return &MemoryOrderCache{
		cache:  make(map[string]*ledger.Order),
		logger: logger,
	}
}

func (c *MemoryOrderCache) Get(_ context.Context, orderID string) (*ledger.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	order, found := c.cache[orderID]
	if !found {
		return nil, false
	}
	orderCopy := *order
	return &orderCopy, true
}

// Set stores order if it is delivered and evicts it otherwise.
func (c *MemoryOrderCache) Set(ctx context.Context, order *ledger.Order) {
	if !order.Status.IsTerminal() {
		c.Delete(ctx, order.ID)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	orderCopy := *order
	c.cache[order.ID] = &orderCopy
	metrics.DeliveredOrderCacheItems.Set(float64(len(c.cache)))
	c.logger.Debug("cache: set order", zap.String("order_id", order.ID))
}

func (c *MemoryOrderCache) Delete(_ context.Context, orderID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, found := c.cache[orderID]; found {
		delete(c.cache, orderID)
		metrics.DeliveredOrderCacheItems.Set(float64(len(c.cache)))
		c.logger.Debug("cache: deleted order", zap.String("order_id", orderID))
	}
}

func (c *MemoryOrderCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
