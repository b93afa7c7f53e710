package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dairyline/milk-distributor/internal/db"
	"github.com/dairyline/milk-distributor/internal/repository"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderUpdated       = "order.updated"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderDeleted       = "order.deleted"
)

// OrderEvent is the payload published for every order mutation.
type OrderEvent struct {
	Event      string    `json:"event"`
	OrderID    string    `json:"orderId"`
	Status     Status    `json:"status"`
	OrderDate  string    `json:"orderDate"`
	Quantity   string    `json:"quantity"`
	TotalPrice string    `json:"totalPrice"`
	Address    string    `json:"address,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func newOrderEvent(event string, order *Order, at time.Time) OrderEvent {
	return OrderEvent{
		Event:      event,
		OrderID:    order.ID,
		Status:     order.Status,
		OrderDate:  order.OrderDate.String(),
		Quantity:   order.Quantity.StringFixed(2),
		TotalPrice: order.TotalPrice.StringFixed(2),
		Address:    order.Address,
		OccurredAt: at,
	}
}

func (l *OrderLedger) enqueueEventTx(ctx context.Context, tx db.Tx, event OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Event, err)
	}

	task := &repository.OutboxTask{
		ID:      uuid.New(),
		Status:  repository.TaskStatusCreated,
		Payload: payload,
		Topic:   l.topic,
	}
	if err := l.outbox.CreateTx(ctx, tx, task); err != nil {
		return fmt.Errorf("failed to enqueue %s event: %w", event.Event, err)
	}
	return nil
}
