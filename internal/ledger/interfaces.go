//go:generate mockgen -source ./interfaces.go -destination=./mocks/interfaces.go -package=mock_ledger
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dairyline/milk-distributor/internal/db"
	"github.com/dairyline/milk-distributor/internal/repository"
)

type CapacityRepository interface {
	GetByDate(ctx context.Context, day time.Time) (*repository.Capacity, error)
	GetByDateTx(ctx context.Context, tx db.Tx, day time.Time) (*repository.Capacity, error)
	Create(ctx context.Context, capacity *repository.Capacity) error
	UpdateTx(ctx context.Context, tx db.Tx, capacity *repository.Capacity) error
	AdjustQuantityTx(ctx context.Context, tx db.Tx, day time.Time, delta decimal.Decimal, updatedAt time.Time) (*repository.Capacity, error)
}

type OrderRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, order *repository.Order) error
	GetByID(ctx context.Context, id string) (*repository.Order, error)
	GetByIDTx(ctx context.Context, tx db.Tx, id string) (*repository.Order, error)
	UpdateTx(ctx context.Context, tx db.Tx, order *repository.Order) error
	DeleteTx(ctx context.Context, tx db.Tx, id string) error
	ListByDate(ctx context.Context, day time.Time) ([]*repository.Order, error)
}

type HistoryRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, entry *repository.HistoryEntry) error
	GetByOrderID(ctx context.Context, orderID string) ([]*repository.HistoryEntry, error)
}

type OutboxRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, task *repository.OutboxTask) error
}

// OrderCache holds delivered orders, which never change again.
type OrderCache interface {
	Get(ctx context.Context, orderID string) (*Order, bool)
	Set(ctx context.Context, order *Order)
	Delete(ctx context.Context, orderID string)
}

type IDGenerator interface {
	NewOrderID() string
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewOrderID() string {
	return uuid.NewString()
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*Order, bool) { return nil, false }
func (noopCache) Set(context.Context, *Order)                {}
func (noopCache) Delete(context.Context, string)             {}
