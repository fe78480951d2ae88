package services

import (
	"context"
	"fmt"

	"laundry_ledger/internal/events"
	"laundry_ledger/internal/models"
	"laundry_ledger/internal/repository"
	"laundry_ledger/pkg/apperrors"
)

// Side selects which adjustment of an order SetAdjustment edits.
type Side string

const (
	SideDiscount  Side = "discount"
	SideSurcharge Side = "surcharge"
)

func ParseSide(raw string) (Side, error) {
	switch Side(raw) {
	case SideDiscount, SideSurcharge:
		return Side(raw), nil
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unknown adjustment side %q", raw))
}

// SetAdjustment replaces the discount or surcharge with raw ("15%" or "5,00"). Unparsable
// input counts as zero. The total is recomputed and guarded in the same transaction.
func (l *orderLedger) SetAdjustment(ctx context.Context, orderID uint, side Side, raw string) (*Breakdown, error) {
	if _, err := ParseSide(string(side)); err != nil {
		return nil, l.fail("set_adjustment", orderID, err)
	}

	order, err := l.mutate(ctx, orderID, "set_adjustment", events.OrderAdjusted, settleOptions{guard: true},
		func(_ repository.Store, order *models.Order) error {
			adj := l.parseAdjustment(string(side), raw)
			if side == SideDiscount {
				order.SetDiscount(adj)
			} else {
				order.SetSurcharge(adj)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	b := NewBreakdown(order)
	return &b, nil
}
