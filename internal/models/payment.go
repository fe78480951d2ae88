package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type Payment struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	OrderID   uint            `json:"order_id" gorm:"not null;index"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(18,6);not null"`
	Method    PaymentMethod   `json:"method" gorm:"type:varchar(20);not null"`
	WhenType  WhenType        `json:"when_type" gorm:"type:varchar(10);not null"`
	Note      string          `json:"note"`
	CreatedAt time.Time       `json:"created_at"`
}

type PaymentMethod string

const (
	MethodCash            PaymentMethod = "cash"
	MethodInstantTransfer PaymentMethod = "instant_transfer"
	MethodCard            PaymentMethod = "card"
	MethodBankTransfer    PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodInstantTransfer, MethodCard, MethodBankTransfer:
		return true
	}
	return false
}

// WhenType tells at which moment of the order lifecycle a payment was collected.
type WhenType string

const (
	WhenEntry  WhenType = "entry"
	WhenPickup WhenType = "pickup"
	WhenAfter  WhenType = "after"
)

func (w WhenType) Valid() bool {
	switch w {
	case WhenEntry, WhenPickup, WhenAfter:
		return true
	}
	return false
}

func (w WhenType) rank() int {
	switch w {
	case WhenEntry:
		return 0
	case WhenPickup:
		return 1
	case WhenAfter:
		return 2
	}
	return 3
}

// SortForDisplay orders payments entry, pickup, after, keeping insertion order within a group.
func SortForDisplay(payments []Payment) {
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].WhenType.rank() < payments[j].WhenType.rank()
	})
}
