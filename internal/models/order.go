package models

import (
	"time"

	"github.com/shopspring/decimal"

	"laundry_ledger/internal/pricing"
)

// Order is the billing header. Total and PaymentStatus are derived from the items, the
// adjustments and the payments, and are rewritten by every ledger mutation.
type Order struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	ClientID         uint            `json:"client_id" gorm:"not null;index"`
	Client           *Client         `json:"client,omitempty"`
	Status           OrderStatus     `json:"status" gorm:"type:varchar(20);not null"`
	Total            decimal.Decimal `json:"total" gorm:"type:numeric(18,6);not null"`
	Discount         decimal.Decimal `json:"discount" gorm:"type:numeric(18,6);not null"`
	DiscountPercent  decimal.Decimal `json:"discount_percent" gorm:"type:numeric(18,6);not null"`
	Surcharge        decimal.Decimal `json:"surcharge" gorm:"type:numeric(18,6);not null"`
	SurchargePercent decimal.Decimal `json:"surcharge_percent" gorm:"type:numeric(18,6);not null"`
	Notes            string          `json:"notes" gorm:"type:text"`
	DeliveryDate     *time.Time      `json:"delivery_date"`
	PaymentStatus    PaymentStatus   `json:"payment_status" gorm:"type:varchar(10);not null;index"`
	Version          int             `json:"version" gorm:"not null"`
	Items            []OrderItem     `json:"items" gorm:"constraint:OnDelete:CASCADE"`
	Payments         []Payment       `json:"payments" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderInProgress OrderStatus = "in_progress"
	OrderReady      OrderStatus = "ready"
	OrderDelivered  OrderStatus = "delivered"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderInProgress, OrderReady, OrderDelivered:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentOpen    PaymentStatus = "open"
	PaymentSettled PaymentStatus = "settled"
)

// Subtotals returns the item subtotals in item order.
func (o *Order) Subtotals() []decimal.Decimal {
	subtotals := make([]decimal.Decimal, 0, len(o.Items))
	for _, item := range o.Items {
		subtotals = append(subtotals, item.Subtotal)
	}
	return subtotals
}

// PaidTotal sums the recorded payments.
func (o *Order) PaidTotal() decimal.Decimal {
	paid := decimal.Zero
	for _, p := range o.Payments {
		paid = paid.Add(p.Amount)
	}
	return paid
}

// HasEntryPayment reports whether an entry payment was already recorded.
func (o *Order) HasEntryPayment() bool {
	for _, p := range o.Payments {
		if p.WhenType == WhenEntry {
			return true
		}
	}
	return false
}

func (o *Order) DiscountAdjustment() pricing.Adjustment {
	return pricing.Adjustment{Fixed: o.Discount, Percent: o.DiscountPercent}
}

func (o *Order) SurchargeAdjustment() pricing.Adjustment {
	return pricing.Adjustment{Fixed: o.Surcharge, Percent: o.SurchargePercent}
}

// SetDiscount stores a discount. A percent discount zeroes the fixed one and vice versa.
func (o *Order) SetDiscount(a pricing.Adjustment) {
	o.Discount, o.DiscountPercent = exclusive(a)
}

// SetSurcharge stores a surcharge with the same exclusivity as SetDiscount.
func (o *Order) SetSurcharge(a pricing.Adjustment) {
	o.Surcharge, o.SurchargePercent = exclusive(a)
}

func exclusive(a pricing.Adjustment) (fixed, percent decimal.Decimal) {
	if a.Percent.IsPositive() {
		return decimal.Zero, pricing.ClampPercent(a.Percent)
	}
	if a.Fixed.IsPositive() {
		return a.Fixed, decimal.Zero
	}
	return decimal.Zero, decimal.Zero
}

// FindItem returns the index of the item with the given id, or -1.
func (o *Order) FindItem(itemID uint) int {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// FindPayment returns the index of the payment with the given id, or -1.
func (o *Order) FindPayment(paymentID uint) int {
	for i := range o.Payments {
		if o.Payments[i].ID == paymentID {
			return i
		}
	}
	return -1
}
