package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/dairyline/milk-distributor/internal/db"
	"github.com/dairyline/milk-distributor/internal/repository"
)

const orderColumns = "order_id, order_date, delivery_date, quantity, total_price, status, address, created_at, updated_at"

type OrderRepo struct {
	db db.DB
}

func NewOrderRepo(db db.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) CreateTx(ctx context.Context, tx db.Tx, order *repository.Order) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO orders (
            order_id, order_date, delivery_date, quantity, total_price, status, address, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, order.ID, order.OrderDate, order.DeliveryDate, order.Quantity, order.TotalPrice, order.Status, order.Address, order.CreatedAt, order.UpdatedAt)
	return mapError(err)
}

func (r *OrderRepo) GetByID(ctx context.Context, id string) (*repository.Order, error) {
	var order repository.Order
	err := r.db.Get(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE order_id = $1", id)
	if err != nil {
		return nil, mapError(err)
	}
	return &order, nil
}

func (r *OrderRepo) GetByIDTx(ctx context.Context, tx db.Tx, id string) (*repository.Order, error) {
	var order repository.Order
	err := tx.Get(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE order_id = $1 FOR UPDATE", id)
	if err != nil {
		return nil, mapError(err)
	}
	return &order, nil
}

func (r *OrderRepo) UpdateTx(ctx context.Context, tx db.Tx, order *repository.Order) error {
	tag, err := tx.Exec(ctx, `
        UPDATE orders
        SET
            delivery_date = $1,
            status = $2,
            address = $3,
            updated_at = $4
        WHERE order_id = $5
    `, order.DeliveryDate, order.Status, order.Address, order.UpdatedAt, order.ID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

func (r *OrderRepo) DeleteTx(ctx context.Context, tx db.Tx, id string) error {
	tag, err := tx.Exec(ctx, "DELETE FROM orders WHERE order_id = $1", id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

// ListByDate returns the orders placed on day, oldest first.
func (r *OrderRepo) ListByDate(ctx context.Context, day time.Time) ([]*repository.Order, error) {
	var orders []*repository.Order
	err := r.db.Select(ctx, &orders, `
        SELECT `+orderColumns+` FROM orders
        WHERE order_date = $1
        ORDER BY created_at ASC
    `, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}
