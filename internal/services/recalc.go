package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"laundry_ledger/internal/events"
	"laundry_ledger/internal/models"
	"laundry_ledger/internal/pricing"
	"laundry_ledger/internal/repository"
	"laundry_ledger/pkg/apperrors"
)

type settleOptions struct {
	// guard rejects a total that drops below the payments already collected.
	guard bool
	// keepTotal derives the payment status from the stored total without recomputing it.
	keepTotal bool
	// onlyOnChange skips the header write when neither total nor status moved.
	onlyOnChange bool
}

// settle re-derives the order total and payment status. It is the single place where
// derived values are written, and every mutating transaction calls it before saving.
func settle(order *models.Order, opts settleOptions) (changed bool, err error) {
	total := order.Total
	if !opts.keepTotal {
		total = pricing.ComputeTotal(order.Subtotals(), order.DiscountAdjustment(), order.SurchargeAdjustment())
	}

	paid := order.PaidTotal()
	if opts.guard && pricing.Exceeds(paid, total) {
		return false, paidExceedsTotal(paid, total)
	}

	status := paymentStatusFor(pricing.Remaining(total, paid))
	changed = !total.Equal(order.Total) || status != order.PaymentStatus

	order.Total = total
	order.PaymentStatus = status
	return changed, nil
}

func paidExceedsTotal(paid, total decimal.Decimal) error {
	return apperrors.NewValidationError(fmt.Sprintf(
		"paid total %s exceeds the new order total %s; remove payments first or choose a different total",
		paid.StringFixed(2), total.StringFixed(2),
	)).
		WithContext("paid_total", paid).
		WithContext("proposed_total", total)
}

// mutate runs apply against the locked order inside one transaction, settles the derived
// values and saves the header under the order's version.
func (l *orderLedger) mutate(
	ctx context.Context,
	orderID uint,
	op string,
	event events.EventType,
	opts settleOptions,
	apply func(tx repository.Store, order *models.Order) error,
) (*models.Order, error) {
	var (
		order      *models.Order
		prevStatus models.PaymentStatus
		changed    bool
	)

	err := l.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		order, err = tx.Orders().LockByID(ctx, orderID)
		if err != nil {
			return orderLookup(orderID, err)
		}
		prevStatus = order.PaymentStatus

		if apply != nil {
			if err := apply(tx, order); err != nil {
				return err
			}
		}

		changed, err = settle(order, opts)
		if err != nil {
			return err
		}
		if opts.onlyOnChange && !changed {
			return nil
		}
		return tx.Orders().SaveLedger(ctx, order)
	})
	if err != nil {
		return nil, l.fail(op, orderID, err)
	}

	l.logger.Info("Order ledger updated",
		zap.String("operation", op),
		zap.Uint("order_id", orderID),
		zap.String("total", order.Total.String()),
		zap.String("payment_status", string(order.PaymentStatus)),
		zap.Bool("changed", changed),
	)

	if !opts.onlyOnChange || changed {
		l.afterCommit(ctx, event, order, prevStatus)
	}
	return order, nil
}

// RecalcTotal recomputes and persists the order total. It writes nothing when the stored
// values are already current.
func (l *orderLedger) RecalcTotal(ctx context.Context, orderID uint) (*Breakdown, error) {
	order, err := l.mutate(ctx, orderID, "recalc_total", events.OrderRecalculated,
		settleOptions{onlyOnChange: true}, nil)
	if err != nil {
		return nil, err
	}
	b := NewBreakdown(order)
	return &b, nil
}

// SyncPaymentStatus derives the payment status from the stored total and the payments.
func (l *orderLedger) SyncPaymentStatus(ctx context.Context, orderID uint) (*Breakdown, error) {
	order, err := l.mutate(ctx, orderID, "sync_payment_status", "",
		settleOptions{keepTotal: true, onlyOnChange: true}, nil)
	if err != nil {
		return nil, err
	}
	b := NewBreakdown(order)
	return &b, nil
}

// afterCommit caches the committed breakdown and announces the change. Failures are logged only.
func (l *orderLedger) afterCommit(ctx context.Context, event events.EventType, order *models.Order, prevStatus models.PaymentStatus) {
	b := NewBreakdown(order)
	l.cacheBreakdown(ctx, b)
	if event != "" {
		l.publish(ctx, events.NewOrderEvent(event, order.ID, b))
	}

	if prevStatus != order.PaymentStatus {
		flip := events.OrderReopened
		if order.PaymentStatus == models.PaymentSettled {
			flip = events.OrderSettled
		}
		l.publish(ctx, events.NewOrderEvent(flip, order.ID, b))
	}
}

func (l *orderLedger) cacheBreakdown(ctx context.Context, b Breakdown) {
	if err := l.cache.StoreBreakdown(ctx, b.OrderID, b.Version, b); err != nil {
		l.logger.Warn("Failed to cache breakdown", zap.Uint("order_id", b.OrderID), zap.Error(err))
	}
}

func (l *orderLedger) invalidate(ctx context.Context, orderID uint) {
	if err := l.cache.InvalidateBreakdown(ctx, orderID); err != nil {
		l.logger.Warn("Failed to invalidate breakdown cache", zap.Uint("order_id", orderID), zap.Error(err))
	}
}

func (l *orderLedger) publish(ctx context.Context, event events.OrderEvent) {
	if err := l.publisher.Publish(ctx, event); err != nil {
		l.logger.Error("Failed to publish order event",
			zap.String("type", string(event.Type)),
			zap.Uint("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}

func orderLookup(orderID uint, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFoundError(fmt.Sprintf("order %d not found", orderID))
	}
	return err
}

// mapError turns repository errors into application errors.
func (l *orderLedger) mapError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFoundError("record not found")
	case errors.Is(err, repository.ErrStaleOrder):
		return apperrors.NewConflictError("order was changed by another request; reload and try again")
	}
	return apperrors.NewPersistenceError("failed to persist order changes", err)
}

// fail maps err and logs it: rejections at warn, everything else at error.
func (l *orderLedger) fail(op string, orderID uint, err error) error {
	return l.failWith(op, err, zap.Uint("order_id", orderID))
}

// failItem is fail for item operations that have not resolved the owning order yet.
func (l *orderLedger) failItem(op string, itemID uint, err error) error {
	return l.failWith(op, err, zap.Uint("item_id", itemID))
}

func (l *orderLedger) failWith(op string, err error, subject zap.Field) error {
	err = l.mapError(err)

	fields := []zap.Field{
		zap.String("operation", op),
		subject,
		zap.Error(err),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && len(appErr.Context) > 0 {
		fields = append(fields, zap.Any("details", appErr.Context))
	}

	if apperrors.IsRejection(err) {
		l.logger.Warn("Order ledger operation rejected", fields...)
	} else {
		l.logger.Error("Order ledger operation failed", fields...)
	}
	return err
}
