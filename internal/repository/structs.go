package repository

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrObjectNotFound = errors.New("not found")
	ErrDuplicate      = errors.New("already exists")
)

// Capacity is one row per calendar day; Date is midnight UTC.
type Capacity struct {
	Date         time.Time       `db:"date"`
	MaxCapacity  decimal.Decimal `db:"max_capacity"`
	QuantityLeft decimal.Decimal `db:"quantity_left"`
	UnitPrice    decimal.Decimal `db:"unit_price"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

type Order struct {
	ID           string          `db:"order_id"`
	OrderDate    time.Time       `db:"order_date"`
	DeliveryDate *time.Time      `db:"delivery_date"`
	Quantity     decimal.Decimal `db:"quantity"`
	TotalPrice   decimal.Decimal `db:"total_price"`
	Status       string          `db:"status"`
	Address      string          `db:"address"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

type HistoryEntry struct {
	ID        int64     `db:"id"`
	OrderID   string    `db:"order_id"`
	Status    string    `db:"status"`
	ChangedAt time.Time `db:"changed_at"`
}
