package cache

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dairyline/milk-distributor/internal/date"
	"github.com/dairyline/milk-distributor/internal/ledger"
)

func deliveredOrder(id string) *ledger.Order {
	delivered := date.New(2024, 3, 12)
	return &ledger.Order{
		ID:           id,
		OrderDate:    date.New(2024, 3, 10),
		DeliveryDate: &delivered,
		Quantity:     decimal.RequireFromString("2.5"),
		TotalPrice:   decimal.RequireFromString("175"),
		Status:       ledger.StatusDelivered,
		Address:      "Bangalore",
	}
}

func TestMemoryOrderCache(t *testing.T) {
	ctx := context.Background()

	t.Run("stores delivered orders as copies", func(t *testing.T) {
		c := NewMemoryOrderCache(zap.NewNop())
		order := deliveredOrder("order-1")

		c.Set(ctx, order)
		order.Address = "changed"

		got, ok := c.Get(ctx, "order-1")
		require.True(t, ok)
		assert.Equal(t, "Bangalore", got.Address)

		got.Address = "changed again"
		again, _ := c.Get(ctx, "order-1")
		assert.Equal(t, "Bangalore", again.Address)
	})

	t.Run("ignores and evicts undelivered orders", func(t *testing.T) {
		c := NewMemoryOrderCache(zap.NewNop())
		c.Set(ctx, deliveredOrder("order-1"))

		packed := deliveredOrder("order-1")
		packed.Status = ledger.StatusPacked
		c.Set(ctx, packed)

		_, ok := c.Get(ctx, "order-1")
		assert.False(t, ok)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("delete", func(t *testing.T) {
		c := NewMemoryOrderCache(zap.NewNop())
		c.Set(ctx, deliveredOrder("order-1"))
		c.Set(ctx, deliveredOrder("order-2"))

		c.Delete(ctx, "order-1")
		c.Delete(ctx, "missing")

		_, ok := c.Get(ctx, "order-1")
		assert.False(t, ok)
		assert.Equal(t, 1, c.Len())
	})
}
