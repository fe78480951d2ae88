package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"laundry_ledger/internal/events"
	"laundry_ledger/internal/models"
	"laundry_ledger/internal/pricing"
	"laundry_ledger/internal/repository"
	"laundry_ledger/pkg/apperrors"
)

// PaymentInput records a payment. Discount and Surcharge, when present, are applied to the
// order before the cap is checked.
type PaymentInput struct {
	Amount    pricing.Input  `json:"amount"`
	Method    string         `json:"method"`
	WhenType  string         `json:"when_type"`
	Note      string         `json:"note"`
	Discount  *pricing.Input `json:"discount"`
	Surcharge *pricing.Input `json:"surcharge"`
}

// CheckPayment validates a payment against an order with its items and payments loaded.
// The total is recomputed from the order rather than read from the stored column.
func CheckPayment(order *models.Order, amount decimal.Decimal, when models.WhenType) error {
	if !amount.IsPositive() {
		return apperrors.NewValidationError("payment amount must be a positive number")
	}

	if when == models.WhenEntry && order.HasEntryPayment() {
		return apperrors.NewValidationError("duplicate entry payment: this order already has an entry payment")
	}

	total := pricing.ComputeTotal(order.Subtotals(), order.DiscountAdjustment(), order.SurchargeAdjustment())
	remaining := pricing.Remaining(total, order.PaidTotal())
	if pricing.Exceeds(amount, remaining) {
		return apperrors.NewValidationError(fmt.Sprintf("payment exceeds remaining balance (remaining: %s)", remaining.StringFixed(2))).
			WithContext("remaining", remaining).
			WithContext("amount", amount)
	}
	return nil
}

func (l *orderLedger) AddPayment(ctx context.Context, orderID uint, input PaymentInput) (*models.Payment, error) {
	const op = "add_payment"

	amount, err := pricing.ParseMoney(input.Amount.String())
	if err != nil || !amount.IsPositive() {
		return nil, l.fail(op, orderID, apperrors.NewValidationError("payment amount must be a positive number").
			WithContext("amount", input.Amount.String()))
	}

	method := models.MethodCash
	if input.Method != "" {
		method = models.PaymentMethod(input.Method)
		if !method.Valid() {
			return nil, l.fail(op, orderID, apperrors.NewValidationError(fmt.Sprintf("unknown payment method %q", input.Method)))
		}
	}
	when := models.WhenPickup
	if input.WhenType != "" {
		when = models.WhenType(input.WhenType)
		if !when.Valid() {
			return nil, l.fail(op, orderID, apperrors.NewValidationError(fmt.Sprintf("unknown payment moment %q", input.WhenType)))
		}
	}

	var payment *models.Payment
	_, err = l.mutate(ctx, orderID, op, events.OrderPaymentAdded, settleOptions{guard: true},
		func(tx repository.Store, order *models.Order) error {
			if input.Discount != nil && *input.Discount != "" {
				order.SetDiscount(l.parseAdjustment("discount", input.Discount.String()))
			}
			if input.Surcharge != nil && *input.Surcharge != "" {
				order.SetSurcharge(l.parseAdjustment("surcharge", input.Surcharge.String()))
			}

			if err := CheckPayment(order, amount, when); err != nil {
				return err
			}

			payment = &models.Payment{
				OrderID:  order.ID,
				Amount:   amount,
				Method:   method,
				WhenType: when,
				Note:     input.Note,
			}
			if err := tx.Payments().Create(ctx, payment); err != nil {
				return err
			}
			order.Payments = append(order.Payments, *payment)
			return nil
		})
	if err != nil {
		return nil, err
	}

	l.logger.Info("Payment recorded",
		zap.Uint("order_id", orderID),
		zap.Uint("payment_id", payment.ID),
		zap.String("amount", amount.String()),
		zap.String("when_type", string(when)),
	)
	return payment, nil
}

// RemovePayment deletes a payment of the order. Removal only raises the balance, so there
// is no cap to check.
func (l *orderLedger) RemovePayment(ctx context.Context, orderID, paymentID uint) error {
	_, err := l.mutate(ctx, orderID, "remove_payment", events.OrderPaymentRemoved, settleOptions{keepTotal: true},
		func(tx repository.Store, order *models.Order) error {
			idx := order.FindPayment(paymentID)
			if idx < 0 {
				return apperrors.NewNotFoundError(fmt.Sprintf("payment %d not found on order %d", paymentID, orderID))
			}
			if err := tx.Payments().Delete(ctx, paymentID); err != nil {
				return err
			}
			order.Payments = append(order.Payments[:idx], order.Payments[idx+1:]...)
			return nil
		})
	return err
}
