package models

import (
	"time"

	"github.com/shopspring/decimal"

	"laundry_ledger/internal/pricing"
)

type OrderItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	OrderID     uint            `json:"order_id" gorm:"not null;index"`
	ServiceID   uint            `json:"service_id" gorm:"not null;index"`
	Service     *Service        `json:"service,omitempty"`
	Description string          `json:"description" gorm:"type:text"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:numeric(18,6);not null"`
	Subtotal    decimal.Decimal `json:"subtotal" gorm:"type:numeric(18,6);not null"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Recompute refreshes Subtotal from Quantity and UnitPrice.
func (i *OrderItem) Recompute() {
	i.Subtotal = pricing.Subtotal(i.Quantity, i.UnitPrice)
}
