package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dairyline/milk-distributor/internal/apperr"
	"github.com/dairyline/milk-distributor/internal/date"
	"github.com/dairyline/milk-distributor/internal/db"
	"github.com/dairyline/milk-distributor/internal/metrics"
	"github.com/dairyline/milk-distributor/internal/repository"
)

type OrderLedgerDeps struct {
	DB          db.DB
	Capacities  *CapacityLedger
	Orders      OrderRepository
	History     HistoryRepository
	Outbox      OutboxRepository
	Cache       OrderCache
	IDs         IDGenerator
	Clock       date.Clock
	EventsTopic string
	Logger      *zap.Logger
}

// OrderLedger owns order records and keeps capacity in step with them.
// Every mutation that touches both runs in a single transaction.
type OrderLedger struct {
	db         db.DB
	capacities *CapacityLedger
	orders     OrderRepository
	history    HistoryRepository
	outbox     OutboxRepository
	cache      OrderCache
	ids        IDGenerator
	clock      date.Clock
	topic      string
	logger     *zap.Logger
	timeNow    func() time.Time
}

func NewOrderLedger(deps OrderLedgerDeps) *OrderLedger {
	l := &OrderLedger{
		db:         deps.DB,
		capacities: deps.Capacities,
		orders:     deps.Orders,
		history:    deps.History,
		outbox:     deps.Outbox,
		cache:      deps.Cache,
		ids:        deps.IDs,
		clock:      deps.Clock,
		topic:      deps.EventsTopic,
		logger:     deps.Logger,
		timeNow:    time.Now,
	}
	if l.cache == nil {
		l.cache = noopCache{}
	}
	if l.ids == nil {
		l.ids = UUIDGenerator{}
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	return l
}

func (l *OrderLedger) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if order, ok := l.cache.Get(ctx, orderID); ok {
		return order, nil
	}

	rec, err := l.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, apperr.NotFound("No order found with that ID")
		}
		metrics.OperationErrorsTotal.WithLabelValues("get_order").Inc()
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	order := orderFromRepo(rec)
	if order.Status.IsTerminal() {
		l.cache.Set(ctx, order)
	}
	return order, nil
}

func (l *OrderLedger) ListOrders(ctx context.Context, day date.Date) ([]*Order, error) {
	recs, err := l.orders.ListByDate(ctx, day.Time())
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("list_orders").Inc()
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]*Order, len(recs))
	for i, rec := range recs {
		orders[i] = orderFromRepo(rec)
	}
	return orders, nil
}

// CreateOrder places an order against today's capacity.
func (l *OrderLedger) CreateOrder(ctx context.Context, in NewOrder) (*Order, error) {
	quantity := in.Quantity.Round(2)
	if !quantity.IsPositive() {
		return nil, apperr.InvalidArgument("Quantity must be greater than 0")
	}
	if quantity.GreaterThan(MaxQuantity) {
		return nil, apperr.InvalidArgument("Quantity not available")
	}
	address := strings.TrimSpace(in.Address)
	if address == "" {
		return nil, apperr.InvalidArgument("Valid address is required")
	}

	today := l.clock.Today()
	capacity, err := l.capacities.GetCapacity(ctx, today)
	if err != nil {
		return nil, err
	}
	if capacity.QuantityLeft.LessThan(quantity) {
		return nil, apperr.InvalidArgument("Quantity not available")
	}

	now := l.timeNow().UTC()
	var created *Order
	err = withTx(ctx, l.db, l.logger, func(tx db.Tx) error {
		reserved, err := l.capacities.reserveTx(ctx, tx, today, quantity)
		if err != nil {
			return err
		}

		rec := &repository.Order{
			ID:         l.ids.NewOrderID(),
			OrderDate:  today.Time(),
			Quantity:   quantity,
			TotalPrice: quantity.Mul(reserved.UnitPrice).Round(2),
			Status:     string(StatusPlaced),
			Address:    address,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := l.orders.CreateTx(ctx, tx, rec); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		if err := l.history.CreateTx(ctx, tx, &repository.HistoryEntry{
			OrderID:   rec.ID,
			Status:    rec.Status,
			ChangedAt: now,
		}); err != nil {
			return fmt.Errorf("failed to add order history entry: %w", err)
		}

		created = orderFromRepo(rec)
		return l.enqueueEventTx(ctx, tx, newOrderEvent(EventOrderCreated, created, now))
	})
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("create_order").Inc()
		return nil, err
	}

	metrics.OrdersCreatedTotal.Inc()
	metrics.CapacityUnitsReservedTotal.Add(quantity.InexactFloat64())
	l.logger.Info("order placed",
		zap.String("order_id", created.ID),
		zap.Stringer("order_date", created.OrderDate),
		zap.Stringer("quantity", created.Quantity),
		zap.Stringer("total_price", created.TotalPrice),
	)

	return created, nil
}

// UpdateOrder applies the generic edit. Only the address can change here.
func (l *OrderLedger) UpdateOrder(ctx context.Context, orderID string, upd OrderUpdate) (*Order, error) {
	var updated *Order
	err := withTx(ctx, l.db, l.logger, func(tx db.Tx) error {
		rec, err := l.lockOrderTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if Status(rec.Status).IsTerminal() {
			return apperr.InvalidArgument("Delivered orders cannot be updated")
		}

		switch {
		case upd.Status != nil:
			return apperr.InvalidArgument("Status cannot be changed here, use the status endpoint")
		case upd.Quantity != nil:
			return apperr.InvalidArgument("Quantity cannot be changed once the order is placed")
		case upd.Address == nil:
			return apperr.InvalidArgument("No fields to update")
		}

		address := strings.TrimSpace(*upd.Address)
		if address == "" {
			return apperr.InvalidArgument("Valid address is required")
		}

		now := l.timeNow().UTC()
		rec.Address = address
		rec.UpdatedAt = now
		if err := l.orders.UpdateTx(ctx, tx, rec); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		updated = orderFromRepo(rec)
		return l.enqueueEventTx(ctx, tx, newOrderEvent(EventOrderUpdated, updated, now))
	})
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("update_order").Inc()
		return nil, err
	}

	l.logger.Info("order updated", zap.String("order_id", orderID))
	return updated, nil
}

// UpdateOrderStatus moves the order one step along
// PLACED -> PACKED -> DISPATCHED -> DELIVERED.
func (l *OrderLedger) UpdateOrderStatus(ctx context.Context, orderID string, rawStatus string) (*Order, error) {
	target, err := ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	var updated *Order
	err = withTx(ctx, l.db, l.logger, func(tx db.Tx) error {
		rec, err := l.lockOrderTx(ctx, tx, orderID)
		if err != nil {
			return err
		}

		current := Status(rec.Status)
		if current.IsTerminal() {
			return apperr.InvalidArgument("Delivered orders cannot be updated")
		}
		if err := current.transitionTo(target); err != nil {
			return err
		}

		now := l.timeNow().UTC()
		rec.Status = string(target)
		rec.DeliveryDate = nil
		if target == StatusDelivered {
			delivered := l.clock.Today().Time()
			rec.DeliveryDate = &delivered
		}
		rec.UpdatedAt = now

		if err := l.orders.UpdateTx(ctx, tx, rec); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		if err := l.history.CreateTx(ctx, tx, &repository.HistoryEntry{
			OrderID:   rec.ID,
			Status:    rec.Status,
			ChangedAt: now,
		}); err != nil {
			return fmt.Errorf("failed to add order history entry: %w", err)
		}

		updated = orderFromRepo(rec)
		return l.enqueueEventTx(ctx, tx, newOrderEvent(EventOrderStatusChanged, updated, now))
	})
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("update_order_status").Inc()
		return nil, err
	}

	metrics.OrderStatusTransitionsTotal.WithLabelValues(string(target)).Inc()
	if updated.Status.IsTerminal() {
		l.cache.Set(ctx, updated)
	}
	l.logger.Info("order status changed",
		zap.String("order_id", orderID),
		zap.String("status", string(target)),
	)

	return updated, nil
}

// DeleteOrder removes an undelivered order and gives its quantity back to
// the capacity of its order date. It returns the last known state.
func (l *OrderLedger) DeleteOrder(ctx context.Context, orderID string) (*Order, error) {
	var deleted *Order
	err := withTx(ctx, l.db, l.logger, func(tx db.Tx) error {
		rec, err := l.lockOrderTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if Status(rec.Status).IsTerminal() {
			return apperr.InvalidArgument("Delivered orders cannot be deleted")
		}

		if err := l.orders.DeleteTx(ctx, tx, rec.ID); err != nil {
			if errors.Is(err, repository.ErrObjectNotFound) {
				return apperr.NotFound("No order found with that ID")
			}
			return fmt.Errorf("failed to delete order: %w", err)
		}

		deleted = orderFromRepo(rec)
		if _, err := l.capacities.releaseTx(ctx, tx, deleted.OrderDate, rec.Quantity); err != nil {
			return err
		}

		return l.enqueueEventTx(ctx, tx, newOrderEvent(EventOrderDeleted, deleted, l.timeNow().UTC()))
	})
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("delete_order").Inc()
		return nil, err
	}

	l.cache.Delete(ctx, orderID)
	metrics.OrdersDeletedTotal.Inc()
	metrics.CapacityUnitsReleasedTotal.Add(deleted.Quantity.InexactFloat64())
	l.logger.Info("order deleted",
		zap.String("order_id", orderID),
		zap.Stringer("released", deleted.Quantity),
		zap.Stringer("order_date", deleted.OrderDate),
	)

	return deleted, nil
}

func (l *OrderLedger) GetOrderHistory(ctx context.Context, orderID string) ([]HistoryEntry, error) {
	if _, err := l.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}

	recs, err := l.history.GetByOrderID(ctx, orderID)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("get_order_history").Inc()
		return nil, fmt.Errorf("failed to get order history: %w", err)
	}

	entries := make([]HistoryEntry, len(recs))
	for i, rec := range recs {
		entries[i] = HistoryEntry{
			Status:    Status(rec.Status),
			ChangedAt: rec.ChangedAt,
		}
	}
	return entries, nil
}

func (l *OrderLedger) lockOrderTx(ctx context.Context, tx db.Tx, orderID string) (*repository.Order, error) {
	rec, err := l.orders.GetByIDTx(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, apperr.NotFound("No order found with that ID")
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return rec, nil
}
