package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dairyline/milk-distributor/internal/date"
	"github.com/dairyline/milk-distributor/internal/repository"
)

// Config carries the defaults applied to newly created capacity records.
type Config struct {
	MaxCapacity decimal.Decimal
	UnitPrice   decimal.Decimal
}

type Capacity struct {
	Date         date.Date       `json:"date"`
	MaxCapacity  decimal.Decimal `json:"maxCapacity"`
	QuantityLeft decimal.Decimal `json:"quantityLeft"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
}

// CapacityUpdate is a direct edit. Nil fields are left unchanged.
type CapacityUpdate struct {
	QuantityLeft *decimal.Decimal
	UnitPrice    *decimal.Decimal
}

type Order struct {
	ID           string          `json:"orderId"`
	OrderDate    date.Date       `json:"orderDate"`
	DeliveryDate *date.Date      `json:"deliveryDate"`
	Quantity     decimal.Decimal `json:"quantity"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	Status       Status          `json:"status"`
	Address      string          `json:"address"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type NewOrder struct {
	Quantity decimal.Decimal
	Address  string
}

// OrderUpdate is the generic edit. Status and Quantity exist so callers can
// forward them and get a proper rejection.
type OrderUpdate struct {
	Address  *string
	Status   *string
	Quantity *decimal.Decimal
}

type HistoryEntry struct {
	Status    Status    `json:"status"`
	ChangedAt time.Time `json:"changedAt"`
}

func capacityFromRepo(rec *repository.Capacity) *Capacity {
	return &Capacity{
		Date:         date.FromTime(rec.Date),
		MaxCapacity:  rec.MaxCapacity,
		QuantityLeft: rec.QuantityLeft,
		UnitPrice:    rec.UnitPrice,
	}
}

func orderFromRepo(rec *repository.Order) *Order {
	order := &Order{
		ID:         rec.ID,
		OrderDate:  date.FromTime(rec.OrderDate),
		Quantity:   rec.Quantity,
		TotalPrice: rec.TotalPrice,
		Status:     Status(rec.Status),
		Address:    rec.Address,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
	if rec.DeliveryDate != nil {
		d := date.FromTime(*rec.DeliveryDate)
		order.DeliveryDate = &d
	}
	return order
}
