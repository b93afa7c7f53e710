package postgresql

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dairyline/milk-distributor/internal/db"
	"github.com/dairyline/milk-distributor/internal/repository"
)

const capacityColumns = "date, max_capacity, quantity_left, unit_price, created_at, updated_at"

type CapacityRepo struct {
	db db.DB
}

func NewCapacityRepo(db db.DB) *CapacityRepo {
	return &CapacityRepo{db: db}
}

func (r *CapacityRepo) GetByDate(ctx context.Context, day time.Time) (*repository.Capacity, error) {
	var capacity repository.Capacity
	err := r.db.Get(ctx, &capacity, "SELECT "+capacityColumns+" FROM capacities WHERE date = $1", day)
	if err != nil {
		return nil, mapError(err)
	}
	return &capacity, nil
}

func (r *CapacityRepo) GetByDateTx(ctx context.Context, tx db.Tx, day time.Time) (*repository.Capacity, error) {
	var capacity repository.Capacity
	err := tx.Get(ctx, &capacity, "SELECT "+capacityColumns+" FROM capacities WHERE date = $1 FOR UPDATE", day)
	if err != nil {
		return nil, mapError(err)
	}
	return &capacity, nil
}

// Create inserts a new day. A concurrent insert of the same day yields
// repository.ErrDuplicate.
func (r *CapacityRepo) Create(ctx context.Context, capacity *repository.Capacity) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO capacities (
            date, max_capacity, quantity_left, unit_price, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6)
    `, capacity.Date, capacity.MaxCapacity, capacity.QuantityLeft, capacity.UnitPrice, capacity.CreatedAt, capacity.UpdatedAt)
	return mapError(err)
}

func (r *CapacityRepo) UpdateTx(ctx context.Context, tx db.Tx, capacity *repository.Capacity) error {
	tag, err := tx.Exec(ctx, `
        UPDATE capacities
        SET
            quantity_left = $1,
            unit_price = $2,
            updated_at = $3
        WHERE date = $4
    `, capacity.QuantityLeft, capacity.UnitPrice, capacity.UpdatedAt, capacity.Date)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

// AdjustQuantityTx adds delta to quantity_left only if the result stays
// non-negative. A missing day or an insufficient balance both yield
// repository.ErrObjectNotFound.
func (r *CapacityRepo) AdjustQuantityTx(ctx context.Context, tx db.Tx, day time.Time, delta decimal.Decimal, updatedAt time.Time) (*repository.Capacity, error) {
	var capacity repository.Capacity
	err := tx.Get(ctx, &capacity, `
        UPDATE capacities
        SET
            quantity_left = quantity_left + $2,
            updated_at = $3
        WHERE date = $1 AND quantity_left + $2 >= 0
        RETURNING `+capacityColumns, day, delta, updatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &capacity, nil
}
