package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dairyline/milk-distributor/internal/apperr"
	"github.com/dairyline/milk-distributor/internal/date"
	"github.com/dairyline/milk-distributor/internal/db"
	"github.com/dairyline/milk-distributor/internal/metrics"
	"github.com/dairyline/milk-distributor/internal/repository"
)

var minUnitPrice = decimal.NewFromInt(1)

// Upper bounds keep stored values inside NUMERIC(12,2) and any
// quantity × unitPrice inside the NUMERIC(14,2) total_price column.
var (
	MaxQuantity  = decimal.RequireFromString("9999999.99")
	MaxUnitPrice = decimal.RequireFromString("99999.99")
)

// CapacityLedger owns the per-day capacity records.
type CapacityLedger struct {
	db      db.DB
	repo    CapacityRepository
	clock   date.Clock
	config  Config
	logger  *zap.Logger
	timeNow func() time.Time
}

func NewCapacityLedger(database db.DB, repo CapacityRepository, clock date.Clock, cfg Config, logger *zap.Logger) *CapacityLedger {
	return &CapacityLedger{
		db:      database,
		repo:    repo,
		clock:   clock,
		config:  cfg,
		logger:  logger,
		timeNow: time.Now,
	}
}

// GetCapacity returns the record for day, creating it with the configured
// defaults when it is missing and day is not in the past.
func (l *CapacityLedger) GetCapacity(ctx context.Context, day date.Date) (*Capacity, error) {
	rec, err := l.repo.GetByDate(ctx, day.Time())
	if err == nil {
		return capacityFromRepo(rec), nil
	}
	if !errors.Is(err, repository.ErrObjectNotFound) {
		metrics.OperationErrorsTotal.WithLabelValues("get_capacity").Inc()
		return nil, fmt.Errorf("failed to get capacity: %w", err)
	}

	if day.Before(l.clock.Today()) {
		return nil, apperr.NotFound("No capacity data found for a past date")
	}

	now := l.timeNow().UTC()
	rec = &repository.Capacity{
		Date:         day.Time(),
		MaxCapacity:  l.config.MaxCapacity.Round(2),
		QuantityLeft: l.config.MaxCapacity.Round(2),
		UnitPrice:    l.config.UnitPrice.Round(2),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := l.repo.Create(ctx, rec); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			metrics.OperationErrorsTotal.WithLabelValues("create_capacity").Inc()
			return nil, fmt.Errorf("failed to create capacity: %w", err)
		}
		// A concurrent first read created it.
		existing, err := l.repo.GetByDate(ctx, day.Time())
		if err != nil {
			return nil, fmt.Errorf("failed to get capacity: %w", err)
		}
		return capacityFromRepo(existing), nil
	}

	metrics.CapacityRecordsCreatedTotal.Inc()
	l.logger.Info("capacity record created",
		zap.Stringer("date", day),
		zap.Stringer("max_capacity", rec.MaxCapacity),
		zap.Stringer("unit_price", rec.UnitPrice),
	)

	return capacityFromRepo(rec), nil
}

// UpdateCapacityDetails applies a direct edit to an existing record.
func (l *CapacityLedger) UpdateCapacityDetails(ctx context.Context, day date.Date, upd CapacityUpdate) (*Capacity, error) {
	if upd.QuantityLeft == nil && upd.UnitPrice == nil {
		return nil, apperr.InvalidArgument("No fields to update")
	}
	if upd.QuantityLeft != nil && upd.QuantityLeft.Round(2).IsNegative() {
		return nil, apperr.InvalidArgument("Quantity left cannot be negative")
	}
	if upd.QuantityLeft != nil && upd.QuantityLeft.Round(2).GreaterThan(MaxQuantity) {
		return nil, apperr.InvalidArgument("Quantity exceeds max capacity")
	}
	if upd.UnitPrice != nil && upd.UnitPrice.Round(2).LessThan(minUnitPrice) {
		return nil, apperr.InvalidArgument("Unit price must be at least 1")
	}
	if upd.UnitPrice != nil && upd.UnitPrice.Round(2).GreaterThan(MaxUnitPrice) {
		return nil, apperr.InvalidArgument("Unit price must be at most " + MaxUnitPrice.StringFixed(2))
	}

	var updated *repository.Capacity
	err := withTx(ctx, l.db, l.logger, func(tx db.Tx) error {
		rec, err := l.lockTx(ctx, tx, day)
		if err != nil {
			return err
		}

		if upd.QuantityLeft != nil {
			quantityLeft := upd.QuantityLeft.Round(2)
			if quantityLeft.GreaterThan(rec.MaxCapacity) {
				return apperr.InvalidArgument("Quantity exceeds max capacity")
			}
			rec.QuantityLeft = quantityLeft
		}
		if upd.UnitPrice != nil {
			rec.UnitPrice = upd.UnitPrice.Round(2)
		}
		rec.UpdatedAt = l.timeNow().UTC()

		if err := l.repo.UpdateTx(ctx, tx, rec); err != nil {
			return fmt.Errorf("failed to update capacity: %w", err)
		}
		updated = rec
		return nil
	})
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("update_capacity").Inc()
		return nil, err
	}

	l.logger.Info("capacity updated",
		zap.Stringer("date", day),
		zap.Stringer("quantity_left", updated.QuantityLeft),
		zap.Stringer("unit_price", updated.UnitPrice),
	)

	return capacityFromRepo(updated), nil
}

// reserveTx takes quantity from day inside the caller's transaction. The row
// lock plus the conditional decrement keep quantityLeft from going negative
// under concurrent orders.
func (l *CapacityLedger) reserveTx(ctx context.Context, tx db.Tx, day date.Date, quantity decimal.Decimal) (*repository.Capacity, error) {
	rec, err := l.lockTx(ctx, tx, day)
	if err != nil {
		return nil, err
	}
	if rec.QuantityLeft.LessThan(quantity) {
		return nil, apperr.InvalidArgument("Quantity not available")
	}

	adjusted, err := l.repo.AdjustQuantityTx(ctx, tx, day.Time(), quantity.Neg(), l.timeNow().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, apperr.InvalidArgument("Quantity not available")
		}
		return nil, fmt.Errorf("failed to reserve capacity: %w", err)
	}
	return adjusted, nil
}

// releaseTx gives quantity back to day. It is not checked against
// maxCapacity.
func (l *CapacityLedger) releaseTx(ctx context.Context, tx db.Tx, day date.Date, quantity decimal.Decimal) (*repository.Capacity, error) {
	adjusted, err := l.repo.AdjustQuantityTx(ctx, tx, day.Time(), quantity, l.timeNow().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, apperr.NotFound(fmt.Sprintf("No capacity found for %s", day))
		}
		return nil, fmt.Errorf("failed to release capacity: %w", err)
	}
	return adjusted, nil
}

func (l *CapacityLedger) lockTx(ctx context.Context, tx db.Tx, day date.Date) (*repository.Capacity, error) {
	rec, err := l.repo.GetByDateTx(ctx, tx, day.Time())
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, apperr.NotFound(fmt.Sprintf("No capacity found for %s", day))
		}
		return nil, fmt.Errorf("failed to get capacity: %w", err)
	}
	return rec, nil
}
