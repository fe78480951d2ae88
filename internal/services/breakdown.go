package services

import (
	"context"

	"github.com/shopspring/decimal"

	"laundry_ledger/internal/models"
	"laundry_ledger/internal/pricing"
)

// Breakdown is the billing read model shown on order screens and attached to events.
type Breakdown struct {
	OrderID                uint                 `json:"order_id"`
	Version                int                  `json:"version"`
	ItemsTotal             decimal.Decimal      `json:"items_total"`
	FixedDiscount          decimal.Decimal      `json:"fixed_discount"`
	PercentDiscountAmount  decimal.Decimal      `json:"percent_discount_amount"`
	FixedSurcharge         decimal.Decimal      `json:"fixed_surcharge"`
	PercentSurchargeAmount decimal.Decimal      `json:"percent_surcharge_amount"`
	GrandTotal             decimal.Decimal      `json:"grand_total"`
	PaidTotal              decimal.Decimal      `json:"paid_total"`
	Remaining              decimal.Decimal      `json:"remaining"`
	PaymentStatus          models.PaymentStatus `json:"payment_status"`
}

// NewBreakdown computes the read model from an order with its items and payments loaded.
func NewBreakdown(order *models.Order) Breakdown {
	b := pricing.Compute(order.Subtotals(), order.DiscountAdjustment(), order.SurchargeAdjustment())
	paid := order.PaidTotal()
	remaining := pricing.Remaining(b.GrandTotal, paid)

	return Breakdown{
		OrderID:                order.ID,
		Version:                order.Version,
		ItemsTotal:             b.ItemsTotal,
		FixedDiscount:          b.FixedDiscount,
		PercentDiscountAmount:  b.PercentDiscount,
		FixedSurcharge:         b.FixedSurcharge,
		PercentSurchargeAmount: b.PercentSurcharge,
		GrandTotal:             b.GrandTotal,
		PaidTotal:              paid,
		Remaining:              remaining,
		PaymentStatus:          paymentStatusFor(remaining),
	}
}

// OrderView is an order together with its breakdown. Payments are sorted for display and
// the adjustments are echoed in the form the inputs accept.
type OrderView struct {
	Order          *models.Order `json:"order"`
	Breakdown      Breakdown     `json:"breakdown"`
	DiscountInput  string        `json:"discount_input"`
	SurchargeInput string        `json:"surcharge_input"`
	HasEntry       bool          `json:"has_entry_payment"`
}

func newOrderView(order *models.Order) OrderView {
	view := OrderView{
		Order:          order,
		Breakdown:      NewBreakdown(order),
		DiscountInput:  pricing.FormatAdjustment(order.DiscountAdjustment()),
		SurchargeInput: pricing.FormatAdjustment(order.SurchargeAdjustment()),
		HasEntry:       order.HasEntryPayment(),
	}
	models.SortForDisplay(order.Payments)
	return view
}

func paymentStatusFor(remaining decimal.Decimal) models.PaymentStatus {
	if pricing.IsSettled(remaining) {
		return models.PaymentSettled
	}
	return models.PaymentOpen
}

// BreakdownCache stores breakdowns between reads. Implementations return an error on a miss.
// StoreBreakdown must ignore a version that is not newer than the cached one, and
// InvalidateBreakdown must keep refusing stores for a deleted order.
type BreakdownCache interface {
	GetBreakdown(ctx context.Context, orderID uint, dest interface{}) error
	StoreBreakdown(ctx context.Context, orderID uint, version int, value interface{}) error
	InvalidateBreakdown(ctx context.Context, orderID uint) error
}

type nopCache struct{}

func (nopCache) GetBreakdown(context.Context, uint, interface{}) error        { return errNoCache }
func (nopCache) StoreBreakdown(context.Context, uint, int, interface{}) error { return nil }
func (nopCache) InvalidateBreakdown(context.Context, uint) error              { return nil }
